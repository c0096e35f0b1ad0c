package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"caisse/internal/services"
)

func reportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "report [date]",
		Short: "Print the summary of a day (today by default)",
		Args:  optionalDate,
		RunE: func(cmd *cobra.Command, args []string) error {
			date, err := dateArg(args)
			if err != nil {
				return err
			}
			a, err := openApp()
			if err != nil {
				return err
			}
			defer a.Close()

			r, err := services.NewClosing(a.history, a.catalog, nil, logger).Report(cmd.Context(), date)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Ticket Z %s\n\n", date)
			for _, l := range r.Lines() {
				fmt.Fprintln(out, l)
			}
			return nil
		},
	}
}

func historyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "history",
		Short: "List the days with a stored ledger, most recent first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := openApp()
			if err != nil {
				return err
			}
			defer a.Close()

			dates, err := a.history.ListDates(cmd.Context())
			if err != nil {
				return err
			}
			if len(dates) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No ledger stored.")
				return nil
			}
			for _, d := range dates {
				fmt.Fprintln(cmd.OutOrStdout(), d)
			}
			return nil
		},
	}
}

func exportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "export [date]",
		Short: "Write the workbook of a day, and push it to Google Sheets when configured",
		Args:  optionalDate,
		RunE: func(cmd *cobra.Command, args []string) error {
			date, err := dateArg(args)
			if err != nil {
				return err
			}
			a, err := openApp()
			if err != nil {
				return err
			}
			defer a.Close()

			writers, err := a.writers(cmd.Context())
			if err != nil {
				return err
			}
			refs, err := services.NewClosing(a.history, a.catalog, nil, logger, writers...).ExportDay(cmd.Context(), date)
			for _, ref := range refs {
				fmt.Fprintln(cmd.OutOrStdout(), ref)
			}
			return err
		},
	}
}

func ticketzCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "ticketz [date]",
		Short: "Send the Z-ticket of a day through the message broker",
		Args:  optionalDate,
		RunE: func(cmd *cobra.Command, args []string) error {
			date, err := dateArg(args)
			if err != nil {
				return err
			}
			if !cfg.AMQPEnabled() {
				return errors.New("AMQP_URL is not set")
			}
			a, err := openApp()
			if err != nil {
				return err
			}
			defer a.Close()

			client, err := broker()
			if err != nil {
				return err
			}
			defer client.Close()

			if err := services.NewClosing(a.history, a.catalog, client, logger).SendTicketZ(cmd.Context(), date); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Ticket Z %s sent\n", date)
			return nil
		},
	}
}
