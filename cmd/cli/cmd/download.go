package cmd

import (
	"fmt"

	"github.com/angelospk/subdivx-go/pkg/core/history"
	"github.com/angelospk/subdivx-go/pkg/processor"
	"github.com/spf13/cobra"
)

var (
	downloadLangs  []string
	downloadSingle bool
	downloadForce  bool
)

var downloadCmd = &cobra.Command{
	Use:   "download VIDEO...",
	Short: "Download the best subtitle for one or more videos",
	Long: `Searches subdivx.com for each video, picks the best ranked subtitle and
saves it next to the video as <video>.<language>.srt (or <video>.srt with
--single). When a download fails the next best subtitle is tried.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runDownload,
}

func init() {
	RootCmd.AddCommand(downloadCmd)

	downloadCmd.Flags().StringSliceVarP(&downloadLangs, "lang", "l", nil, "Only accept these languages (e.g. es-MX,es)")
	downloadCmd.Flags().BoolVar(&downloadSingle, "single", false, "Save as <video>.srt without a language suffix")
	downloadCmd.Flags().BoolVarP(&downloadForce, "force", "f", false, "Download even if the video already has a subtitle")
}

func runDownload(cmd *cobra.Command, args []string) error {
	opts, err := processorOptions(downloadLangs, downloadSingle, downloadForce)
	if err != nil {
		return err
	}

	return withSession(cmd.Context(), providerConfig(), func(s Session) error {
		p := processor.NewProcessor(s, opts, logger)
		failed := 0
		for _, videoPath := range args {
			subPath, err := p.ProcessFile(cmd.Context(), videoPath)
			if err != nil {
				failed++
				fmt.Fprintf(cmd.ErrOrStderr(), "%s: %v\n", videoPath, err)
				continue
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Saved %s\n", subPath)
		}
		if failed > 0 {
			return fmt.Errorf("%d of %d downloads failed", failed, len(args))
		}
		return nil
	})
}

// processorOptions builds the shared download options, history included.
func processorOptions(langs []string, single, force bool) (processor.Options, error) {
	tags, err := parseLanguages(langs)
	if err != nil {
		return processor.Options{}, err
	}
	opts := processor.Options{Languages: tags, Single: single, Overwrite: force}

	dir, err := configDir()
	if err != nil {
		logger.Warnf("Download history disabled: %v", err)
		return opts, nil
	}
	recorder, err := history.NewManager(dir, logger)
	if err != nil {
		logger.Warnf("Download history disabled: %v", err)
		return opts, nil
	}
	opts.Recorder = recorder
	return opts, nil
}
