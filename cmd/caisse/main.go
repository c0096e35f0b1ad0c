package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"caisse/internal/cli"
	"caisse/internal/config"
	"caisse/internal/log"
)

var (
	version = "dev"

	// Set by the root command before any subcommand runs.
	cfg    *config.Config
	logger *log.Logger

	rootCmd = &cobra.Command{
		Use:   "caisse",
		Short: "Point-of-sale till for associative shops",
		Long: `caisse runs a single till: a pricing keypad, a draft cart and the day's
ledger of transactions, persisted locally. It also prints end-of-day
reports, exports them to spreadsheets and sends the Z-ticket.`,
		SilenceUsage:      true,
		PersistentPreRunE: initConfig,
	}
)

func init() {
	rootCmd.PersistentFlags().String("log-level", "", "log level (debug, info, warn, error), overrides LOG_LEVEL")
	rootCmd.PersistentFlags().String("log-format", "", "log format (text, json), overrides LOG_FORMAT")

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(reportCmd())
	rootCmd.AddCommand(historyCmd())
	rootCmd.AddCommand(exportCmd())
	rootCmd.AddCommand(ticketzCmd())
	rootCmd.AddCommand(workerCmd())
	rootCmd.AddCommand(versionCmd())
}

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	cancel()

	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func initConfig(cmd *cobra.Command, _ []string) error {
	cli.LoadEnvFile()
	if level, _ := cmd.Flags().GetString("log-level"); level != "" {
		_ = os.Setenv("LOG_LEVEL", level)
	}
	if format, _ := cmd.Flags().GetString("log-format"); format != "" {
		_ = os.Setenv("LOG_FORMAT", format)
	}

	c, err := cli.LoadAndValidateConfig()
	if err != nil {
		return err
	}
	cfg = c
	logger = cli.SetupLogger(cfg)
	return nil
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:               "version",
		Short:             "Print the version",
		PersistentPreRunE: func(*cobra.Command, []string) error { return nil },
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintln(cmd.OutOrStdout(), "caisse", version)
		},
	}
}
