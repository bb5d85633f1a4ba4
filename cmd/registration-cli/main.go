package main

import (
	"fmt"
	"io"
	"os"

	"ms-registration/internal/config"
	"ms-registration/internal/logger"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var Version = "dev"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var envFile string
	var verbose bool

	rootCmd := &cobra.Command{
		Use:           "registration-cli",
		Short:         "Operator tools for the car show registration service",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if envFile != "" {
				_ = godotenv.Load(envFile)
			}
		},
	}
	rootCmd.PersistentFlags().StringVar(&envFile, "env", ".env", "Environment file to load before reading configuration")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Show service logs")

	cliLogger := func(cmd *cobra.Command) *logger.Logger {
		if verbose {
			return logger.NewTestLogger(cmd.ErrOrStderr())
		}
		return logger.NewTestLogger(io.Discard)
	}

	rootCmd.AddCommand(verifySetupCmd(cliLogger))
	rootCmd.AddCommand(availabilityCmd(cliLogger))
	rootCmd.AddCommand(nextEntryCmd(cliLogger))
	rootCmd.AddCommand(normalizeCmd())
	return rootCmd
}

type loggerFactory func(cmd *cobra.Command) *logger.Logger

func loadConfig() *config.Config {
	return config.Load()
}
