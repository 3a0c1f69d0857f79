// Command viewsearch loads view definitions and documents, compiles
// predicates into filters and runs searches from the command line.
//
// Logging:
//   - Base logger is created here from --log-level
//   - Logger is passed to the engine via Config, never via slog.SetDefault
package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
)

var version = "dev"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "viewsearch",
		Short:         "Compile and run search view predicates",
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	rootCmd.PersistentFlags().StringP("config", "c", "", "view configuration file (.toml, .yaml)")
	rootCmd.PersistentFlags().String("view", "", "view name (default: the only view in the configuration)")
	rootCmd.PersistentFlags().String("log-level", "warn", "log level: debug, info, warn, error")
	rootCmd.PersistentFlags().Bool("strict", false, "reject phrase and geo predicates on fields without the analyzer")

	versionCmd := &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), version)
		},
	}

	rootCmd.AddCommand(newIndexCmd(), newSearchCmd(), newExplainCmd(), versionCmd)
	return rootCmd
}

func loggerFromCmd(cmd *cobra.Command) (*slog.Logger, error) {
	name, _ := cmd.Flags().GetString("log-level")
	var level slog.Level
	if err := level.UnmarshalText([]byte(name)); err != nil {
		return nil, fmt.Errorf("invalid log level %q", name)
	}
	return slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level})), nil
}
