package cmd

import (
	"fmt"
	"io"
	"strings"

	"github.com/angelospk/subdivx-go/pkg/core/metadata"
	"github.com/angelospk/subdivx-go/pkg/core/subdivx"
	"github.com/angelospk/subdivx-go/pkg/processor"
	"github.com/spf13/cobra"
)

var (
	searchQuery string
	searchLangs []string
	searchLimit int
)

// searchCmd represents the search command
var searchCmd = &cobra.Command{
	Use:   "search [VIDEO]",
	Short: "Search subdivx for subtitles",
	Long: `Searches subdivx.com either with a raw query or for a video file.
For a video file the results are scored against the file name and listed
best first, with the attributes each subtitle matched.

Examples:
  subdivx search "The.Big.Bang.Theory.S07E05.720p.HDTV.x264-DIMENSION.mkv"
  subdivx search --lang es-MX Inception.2010.1080p.BluRay.mkv
  subdivx search --query "Inception.2010"`,
	Args: cobra.MaximumNArgs(1),
	RunE: runSearch,
}

func init() {
	RootCmd.AddCommand(searchCmd)

	searchCmd.Flags().StringVarP(&searchQuery, "query", "q", "", "Raw search string (skips video parsing and scoring)")
	searchCmd.Flags().StringSliceVarP(&searchLangs, "lang", "l", nil, "Only list these languages (e.g. es-MX,es)")
	searchCmd.Flags().IntVarP(&searchLimit, "limit", "n", 10, "Maximum results to print (0 prints all)")
}

func runSearch(cmd *cobra.Command, args []string) error {
	if searchQuery == "" && len(args) == 0 {
		return fmt.Errorf("either --query or a VIDEO argument must be provided")
	}
	if searchQuery != "" && len(args) > 0 {
		return fmt.Errorf("--query and a VIDEO argument are mutually exclusive")
	}
	langs, err := parseLanguages(searchLangs)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()

	return withSession(cmd.Context(), providerConfig(), func(s Session) error {
		if searchQuery != "" {
			logger.WithField("query", searchQuery).Info("Searching subtitles...")
			subs, err := s.Query(cmd.Context(), searchQuery)
			if err != nil {
				return fmt.Errorf("subtitle search failed: %w", err)
			}
			printSubtitles(out, subs)
			return nil
		}

		video, err := metadata.ParseVideo(args[0])
		if err != nil {
			return err
		}
		logger.WithField("video", video.String()).Info("Searching subtitles...")
		p := processor.NewProcessor(s, processor.Options{Languages: langs}, logger)
		candidates, err := p.Search(cmd.Context(), video)
		if err != nil {
			return fmt.Errorf("subtitle search failed: %w", err)
		}
		printCandidates(out, video, candidates)
		return nil
	})
}

func printSubtitles(out io.Writer, subs []*subdivx.Subtitle) {
	if len(subs) == 0 {
		fmt.Fprintln(out, "No subtitles found matching the criteria.")
		return
	}
	fmt.Fprintf(out, "Found %d subtitles:\n", len(subs))
	fmt.Fprintln(out, "--------------------------------------------------")
	for i, sub := range subs {
		if searchLimit > 0 && i >= searchLimit {
			fmt.Fprintf(out, "... %d more\n", len(subs)-i)
			break
		}
		printSubtitle(out, sub)
		fmt.Fprintln(out, "--------------------------------------------------")
	}
}

func printCandidates(out io.Writer, video *metadata.Video, candidates []processor.Candidate) {
	if len(candidates) == 0 {
		fmt.Fprintf(out, "No subtitles found for %s.\n", video)
		return
	}
	fmt.Fprintf(out, "Found %d subtitles for %s:\n", len(candidates), video)
	fmt.Fprintln(out, "--------------------------------------------------")
	for i, c := range candidates {
		if searchLimit > 0 && i >= searchLimit {
			fmt.Fprintf(out, "... %d more\n", len(candidates)-i)
			break
		}
		printSubtitle(out, c.Subtitle)
		fmt.Fprintf(out, "  Score: %d/%d\n", c.Score, processor.MaxScore(video))
		fmt.Fprintf(out, "  Matches: %s\n", strings.Join(c.Matches.Sorted(), ", "))
		fmt.Fprintln(out, "--------------------------------------------------")
	}
}

func printSubtitle(out io.Writer, sub *subdivx.Subtitle) {
	fmt.Fprintf(out, "ID: %s\n", sub.ID)
	fmt.Fprintf(out, "  Label: %s\n", sub.Label)
	fmt.Fprintf(out, "  Language: %s\n", sub.Language)
	fmt.Fprintf(out, "  Uploader: %s\n", sub.Uploader)
	fmt.Fprintf(out, "  Downloads: %d\n", sub.Downloads)
	if sub.Description != "" {
		fmt.Fprintf(out, "  Description: %s\n", sub.Description)
	}
}
