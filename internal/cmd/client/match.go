package client

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/rzbill/playcast/pkg/client"
)

// newSyncCommand asks the relay where to join a broadcast.
func newSyncCommand(baseURL BaseURLFunc) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sync <token>",
		Short: "Resolve a joinable fragment for a match broadcast",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			fragment, _ := cmd.Flags().GetInt("fragment")
			c := client.New(baseURL(), args[0])
			s, err := c.SyncAt(cmd.Context(), fragment)
			if err != nil {
				return err
			}
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(s)
		},
	}
	cmd.Flags().Int("fragment", -1, "Fragment to sync from (-1 lets the relay pick the live edge)")
	return cmd
}

// newGetCommand fetches one blob field of a fragment and writes it to stdout
// or a file.
func newGetCommand(baseURL BaseURLFunc) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "get <token> <fragment> <field>",
		Short: "Fetch a start/full/delta payload, decompressed",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			fragment, err := strconv.Atoi(args[1])
			if err != nil {
				return fmt.Errorf("fragment must be an integer: %q", args[1])
			}
			c := client.New(baseURL(), args[0])
			var data []byte
			if args[2] == "start" {
				data, err = c.Start(cmd.Context(), fragment)
			} else {
				data, err = c.Fragment(cmd.Context(), fragment, args[2])
			}
			if err != nil {
				return err
			}
			if out, _ := cmd.Flags().GetString("out"); out != "" {
				return os.WriteFile(out, data, 0o644)
			}
			_, err = os.Stdout.Write(data)
			return err
		},
	}
	cmd.Flags().String("out", "", "Write payload to this file instead of stdout")
	return cmd
}

// newMetaCommand prints the numeric summary of one fragment.
func newMetaCommand(baseURL BaseURLFunc) *cobra.Command {
	return &cobra.Command{
		Use:   "meta <token> <fragment>",
		Short: "Show fragment metadata (ticks, payload sizes, delay)",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			fragment, err := strconv.Atoi(args[1])
			if err != nil {
				return fmt.Errorf("fragment must be an integer: %q", args[1])
			}
			c := client.New(baseURL(), args[0])
			meta, err := c.Metadata(cmd.Context(), fragment)
			if err != nil {
				return err
			}
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(meta)
		},
	}
}
