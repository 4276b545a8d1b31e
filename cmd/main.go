package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
)

var (
	rootCmd = &cobra.Command{
		Use:   "genetlinkd",
		Short: "A generic netlink dispatcher.",
		Long: "genetlinkd routes generic netlink requests to the families registered\n" +
			"with it and hands their replies back over an in-process transport.",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			lvl, ok := logLevelMap[logLevelFlag]
			if !ok {
				return fmt.Errorf("unknown log level %q", logLevelFlag)
			}

			logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
				AddSource:   true,
				Level:       lvl,
				ReplaceAttr: logReplacements,
			}))
			slog.SetDefault(logger)

			return nil
		},
	}

	versionCmd = &cobra.Command{
		Use:   "version",
		Short: "Get the built version.",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("built commit: %s\n", builtCommit)
		},
	}

	logLevelFlag string
	logTimeFlag  bool
	confPathFlag string

	builtCommit = "dev"
)

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevelFlag, "log-level", "info", "log level: one of debug, info, warn or error")
	rootCmd.PersistentFlags().BoolVar(&logTimeFlag, "log-time", false, "include timestamps in log lines")
	rootCmd.PersistentFlags().StringVar(&confPathFlag, "conf", "", "path to the configuration file")

	// Disable completion please!
	rootCmd.CompletionOptions.DisableDefaultCmd = true

	// Add the different sub-commands
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(runCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}
