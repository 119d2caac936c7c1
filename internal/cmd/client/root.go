// Package client holds the viewer-side Cobra commands. They speak the relay
// protocol through pkg/client and print what a downstream consumer would see.
package client

import (
	"github.com/spf13/cobra"
)

// BaseURLFunc returns the relay base URL, e.g. "http://127.0.0.1:8080".
type BaseURLFunc func() string

// NewRoot constructs the client command group for a playcast relay.
func NewRoot(baseURL BaseURLFunc) *cobra.Command {
	root := &cobra.Command{
		Use:   "match",
		Short: "Query a match broadcast on a relay",
	}
	root.AddCommand(newSyncCommand(baseURL))
	root.AddCommand(newGetCommand(baseURL))
	root.AddCommand(newMetaCommand(baseURL))
	return root
}
