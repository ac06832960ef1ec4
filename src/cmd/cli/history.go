package main

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"slipway/src/store"
)

var (
	historyLimit  int
	consoleNumber int64
)

// consoleCmd prints the console of a past build.
var consoleCmd = &cobra.Command{
	Use:   "console <job>",
	Short: "Print the console output of a build",
	Long: `Prints the complete console output of a finished or running build.
Defaults to the most recent build; use --number for a specific one.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		text, err := client.BuildConsole(cmd.Context(), args[0], consoleNumber)
		if err != nil {
			return fmt.Errorf("fetch console of %s: %w", args[0], err)
		}
		fmt.Print(text)
		return nil
	},
}

// historyCmd lists recorded builds of a job from the history store.
var historyCmd = &cobra.Command{
	Use:   "history <job>",
	Short: "List recorded builds of a job (requires SLIPWAY_DB_DSN)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if appConfig.PostgresDSN == "" {
			return fmt.Errorf("history requires the SLIPWAY_DB_DSN environment variable")
		}

		pg, err := store.NewPostgresStore(appConfig.PostgresDSN)
		if err != nil {
			return fmt.Errorf("connect history store: %w", err)
		}
		defer pg.Close()

		records, err := pg.History(cmd.Context(), args[0], historyLimit)
		if err != nil {
			return err
		}
		if len(records) == 0 {
			fmt.Printf("no recorded builds for %s\n", args[0])
			return nil
		}

		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "NUMBER\tSTATE\tNAME\tTRIGGERED\tDURATION")
		for _, rec := range records {
			number := "-"
			if rec.Number > 0 {
				number = fmt.Sprintf("#%d", rec.Number)
			}
			name := rec.DisplayName
			if name == "" {
				name = "-"
			}
			duration := "-"
			if rec.CompletedAt != nil {
				duration = rec.CompletedAt.Sub(rec.TriggeredAt).Round(time.Second).String()
			}
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
				number, rec.State, name,
				rec.TriggeredAt.Format(time.RFC3339), duration)
		}
		return w.Flush()
	},
}

func init() {
	historyCmd.Flags().IntVar(&historyLimit, "limit", 20, "maximum number of builds to list")
	consoleCmd.Flags().Int64Var(&consoleNumber, "number", 0, "build number (default: most recent build)")
}
