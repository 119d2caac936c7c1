package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	clientcmd "github.com/rzbill/playcast/internal/cmd/client"
	serverrun "github.com/rzbill/playcast/internal/cmd/server"
	cfgpkg "github.com/rzbill/playcast/internal/config"
	logpkg "github.com/rzbill/playcast/pkg/log"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "playcast",
		Short: "Playcast relay CLI",
		Long:  "Playcast relays live match broadcasts: origins POST fragments, viewers sync and GET them.",
	}

	serverCmd := &cobra.Command{Use: "server", Short: "Server commands"}
	serverStartCmd := &cobra.Command{
		Use:     "start",
		Short:   "Start the relay server",
		Aliases: []string{"run"},
		RunE: func(cmd *cobra.Command, args []string) error {
			cfgPath, _ := cmd.Flags().GetString("config")
			listen, _ := cmd.Flags().GetString("listen")
			gzipLevel, _ := cmd.Flags().GetInt("gzip-level")
			logLevel, _ := cmd.Flags().GetString("log-level")
			logFormat, _ := cmd.Flags().GetString("log-format")

			cfg := cfgpkg.Default()
			if cfgPath != "" {
				loaded, err := cfgpkg.Load(cfgPath)
				if err != nil {
					return fmt.Errorf("load config: %w", err)
				}
				cfg = loaded
			}
			cfgpkg.FromEnv(&cfg)
			// flags win over file and environment
			if cmd.Flags().Changed("listen") {
				cfg.ListenAddr = listen
			}
			if cmd.Flags().Changed("gzip-level") {
				cfg.GzipLevel = gzipLevel
			}
			if logLevel != "" {
				cfg.LogLevel = logLevel
			}
			if logFormat != "" {
				cfg.LogFormat = logFormat
			}

			level, err := logpkg.ParseLevel(cfg.LogLevel)
			if err != nil {
				return fmt.Errorf("invalid log level %q", cfg.LogLevel)
			}
			logger := logpkg.New(os.Stderr, level, cfg.LogFormat)

			if err := serverrun.Run(context.Background(), serverrun.Options{
				Config: cfg,
				Logger: logger,
			}); err != nil {
				return fmt.Errorf("server error: %w", err)
			}
			return nil
		},
	}
	serverStartCmd.Flags().String("config", "", "Path to a JSON or YAML config file")
	serverStartCmd.Flags().String("listen", ":8080", "HTTP listen address")
	serverStartCmd.Flags().Int("gzip-level", 6, "Gzip level for fragment payloads (1-9)")
	serverStartCmd.Flags().String("log-level", os.Getenv("PLAYCAST_LOG_LEVEL"), "Log level: debug|info|warn|error")
	serverStartCmd.Flags().String("log-format", os.Getenv("PLAYCAST_LOG_FORMAT"), "Log format: console|json")
	serverCmd.AddCommand(serverStartCmd)
	rootCmd.AddCommand(serverCmd)

	rootCmd.AddCommand(clientcmd.NewRoot(relayURL))

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func relayURL() string {
	if v := os.Getenv("PLAYCAST_HTTP"); v != "" {
		return v
	}
	return "http://127.0.0.1:8080"
}
