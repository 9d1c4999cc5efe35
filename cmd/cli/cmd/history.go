package cmd

import (
	"fmt"
	"strings"

	"github.com/angelospk/subdivx-go/pkg/core/history"
	"github.com/spf13/cobra"
)

var historyClear bool

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List the subtitles downloaded so far",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		dir, err := configDir()
		if err != nil {
			return err
		}
		m, err := history.NewManager(dir, logger)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		if historyClear {
			if err := m.Clear(); err != nil {
				return err
			}
			fmt.Fprintln(out, "History cleared.")
			return nil
		}

		records := m.Records()
		if len(records) == 0 {
			fmt.Fprintln(out, "No downloads recorded yet.")
			return nil
		}
		for _, rec := range records {
			fmt.Fprintf(out, "%s  %s\n", rec.SavedAt.Format("2006-01-02 15:04"), rec.SubtitlePath)
			fmt.Fprintf(out, "  Subtitle: %s (%s) [%s]\n", rec.Label, rec.SubtitleID, rec.Language)
			fmt.Fprintf(out, "  Score: %d  Matches: %s\n", rec.Score, strings.Join(rec.Matches, ", "))
		}
		return nil
	},
}

func init() {
	RootCmd.AddCommand(historyCmd)

	historyCmd.Flags().BoolVar(&historyClear, "clear", false, "Forget every recorded download")
}
