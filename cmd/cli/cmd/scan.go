package cmd

import (
	"fmt"
	"path/filepath"
	"sort"

	"github.com/angelospk/subdivx-go/pkg/processor"
	"github.com/spf13/cobra"
)

var (
	scanRecursive bool
	scanLangs     []string
	scanSingle    bool
	scanForce     bool
)

var scanCmd = &cobra.Command{
	Use:   "scan DIR",
	Short: "Download subtitles for every video in a directory",
	Long: `Scans a directory for video files (.mkv .mp4 .avi .mov .wmv .flv .m4v) and
downloads the best subtitle for each one that has no subtitle yet.`,
	Args: cobra.ExactArgs(1),
	RunE: runScan,
}

func init() {
	RootCmd.AddCommand(scanCmd)

	scanCmd.Flags().BoolVarP(&scanRecursive, "recursive", "r", false, "Scan subdirectories")
	scanCmd.Flags().StringSliceVarP(&scanLangs, "lang", "l", nil, "Only accept these languages (e.g. es-MX,es)")
	scanCmd.Flags().BoolVar(&scanSingle, "single", false, "Save as <video>.srt without a language suffix")
	scanCmd.Flags().BoolVarP(&scanForce, "force", "f", false, "Download even if a video already has a subtitle")
}

func runScan(cmd *cobra.Command, args []string) error {
	opts, err := processorOptions(scanLangs, scanSingle, scanForce)
	if err != nil {
		return err
	}

	return withSession(cmd.Context(), providerConfig(), func(s Session) error {
		p := processor.NewProcessor(s, opts, logger)
		report, err := p.ProcessDirectory(cmd.Context(), args[0], scanRecursive)
		if err != nil {
			return fmt.Errorf("scan of %s failed: %w", args[0], err)
		}

		out := cmd.OutOrStdout()
		for _, video := range sortedKeys(report.Saved) {
			fmt.Fprintf(out, "Saved    %s\n", filepath.Base(report.Saved[video]))
		}
		for _, video := range report.Skipped {
			fmt.Fprintf(out, "Skipped  %s\n", filepath.Base(video))
		}
		for _, video := range sortedKeys(report.Failed) {
			fmt.Fprintf(out, "Failed   %s: %v\n", filepath.Base(video), report.Failed[video])
		}
		fmt.Fprintf(out, "%d saved, %d skipped, %d failed\n", len(report.Saved), len(report.Skipped), len(report.Failed))
		return nil
	})
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
