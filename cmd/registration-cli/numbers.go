package main

import (
	"encoding/json"
	"fmt"
	"strings"

	"ms-registration/internal/app"
	"ms-registration/internal/normalize"
	"ms-registration/internal/registration"

	"github.com/spf13/cobra"
)

func availabilityCmd(newLogger loggerFactory) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "availability",
		Short: "Show remaining Poker Run capacity",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := loadConfig()
			log := newLogger(cmd)
			rows, closeRows, err := app.OpenRowSource(cmd.Context(), cfg, log)
			if err != nil {
				fmt.Fprintf(cmd.ErrOrStderr(), "row store unavailable: %v\n", err)
			}
			defer closeRows()

			_, gate := app.NewSequencing(cfg, rows, log)
			av := gate.Check(cmd.Context())
			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(av)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Poker Run: %d/%d registered, %d remaining\n", av.CurrentCount, av.MaxLimit, av.Remaining)
			fmt.Fprintln(cmd.OutOrStdout(), av.Message)
			return nil
		},
	}
	cmd.Flags().BoolVarP(&asJSON, "json", "j", false, "Output as JSON")
	return cmd
}

func nextEntryCmd(newLogger loggerFactory) *cobra.Command {
	return &cobra.Command{
		Use:   "next-entry",
		Short: "Show the entry and Poker Run numbers the next registration would receive",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := loadConfig()
			log := newLogger(cmd)
			rows, closeRows, err := app.OpenRowSource(cmd.Context(), cfg, log)
			if err != nil {
				return fmt.Errorf("row store unavailable: %w", err)
			}
			defer closeRows()

			seq, _ := app.NewSequencing(cfg, rows, log)
			entry, outcome := seq.AssignEntryNumber(cmd.Context())
			if !outcome.OK() {
				return fmt.Errorf("read entry count: %s", outcome)
			}
			prn, outcome := seq.AssignPokerRunNumber(cmd.Context())
			if !outcome.OK() {
				return fmt.Errorf("read Poker Run count: %s", outcome)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Next entry number:     %s\n", registration.FormatNumber(entry))
			fmt.Fprintf(cmd.OutOrStdout(), "Next Poker Run number: %s\n", registration.FormatNumber(prn))
			return nil
		},
	}
}

func normalizeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "normalize [text...]",
		Short: "Show how free text will be capitalized on sheets and dash sheets",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Fprintln(cmd.OutOrStdout(), normalize.ToDisplay(strings.Join(args, " ")))
			return nil
		},
	}
}
