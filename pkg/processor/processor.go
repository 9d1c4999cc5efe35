package processor

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	coreErrors "github.com/angelospk/subdivx-go/pkg/core/errors"
	"github.com/angelospk/subdivx-go/pkg/core/fileops"
	"github.com/angelospk/subdivx-go/pkg/core/history"
	"github.com/angelospk/subdivx-go/pkg/core/metadata"
	"github.com/angelospk/subdivx-go/pkg/core/subdivx"
	log "github.com/sirupsen/logrus"
	"golang.org/x/text/language"
)

// SubtitleProvider is the part of the subdivx provider the processor needs.
type SubtitleProvider interface {
	ListSubtitles(ctx context.Context, video *metadata.Video, languages []language.Tag) ([]*subdivx.Subtitle, error)
	DownloadSubtitle(ctx context.Context, sub *subdivx.Subtitle) error
}

// Recorder keeps track of saved subtitles.
type Recorder interface {
	Add(rec history.Record) error
}

// Ensure the real types satisfy the interfaces.
var (
	_ SubtitleProvider = (*subdivx.Provider)(nil)
	_ Recorder         = (*history.Manager)(nil)
)

// Known video extensions
var videoExtensions = map[string]bool{
	".mkv": true, ".mp4": true, ".avi": true, ".mov": true, ".wmv": true, ".flv": true, ".m4v": true,
}

// Options tune what the processor downloads and how it is saved.
type Options struct {
	Languages []language.Tag // Empty accepts every language
	Single    bool           // Save as "<video>.srt" without a language suffix
	Overwrite bool           // Download even when a sidecar subtitle exists
	Recorder  Recorder       // Optional
}

// Processor picks, downloads and saves subtitles for video files.
type Processor struct {
	provider SubtitleProvider
	opts     Options
	logger   *log.Logger
}

// NewProcessor creates a new Processor instance.
func NewProcessor(provider SubtitleProvider, opts Options, logger *log.Logger) *Processor {
	if logger == nil {
		logger = log.New()
		logger.SetFormatter(&log.TextFormatter{})
		logger.SetOutput(os.Stdout)
		logger.SetLevel(log.InfoLevel)
	}
	return &Processor{
		provider: provider,
		opts:     opts,
		logger:   logger,
	}
}

// Search lists and ranks the subtitles for a video, best first.
func (p *Processor) Search(ctx context.Context, video *metadata.Video) ([]Candidate, error) {
	subs, err := p.provider.ListSubtitles(ctx, video, p.opts.Languages)
	if err != nil {
		return nil, fmt.Errorf("failed to list subtitles for %s: %w", video, err)
	}
	return Rank(video, subs), nil
}

// DownloadBest downloads the best ranked subtitle for a video. A candidate
// that fails to download or is not a valid subtitle gives way to the next.
func (p *Processor) DownloadBest(ctx context.Context, video *metadata.Video) (*Candidate, error) {
	candidates, err := p.Search(ctx, video)
	if err != nil {
		return nil, err
	}
	if len(candidates) == 0 {
		return nil, fmt.Errorf("%w for %s", coreErrors.ErrNoSubtitles, video)
	}

	var lastErr error
	for i := range candidates {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		c := &candidates[i]
		p.logger.Debugf("Trying %s (score %d, matches %v)", c.Subtitle, c.Score, c.Matches.Sorted())

		if !c.Subtitle.HasContent() {
			if err := p.provider.DownloadSubtitle(ctx, c.Subtitle); err != nil {
				p.logger.Warnf("Download of %s failed: %v", c.Subtitle.ID, err)
				lastErr = err
				continue
			}
		}
		if err := fileops.ValidateSubtitle(c.Subtitle.Content()); err != nil {
			p.logger.Warnf("Discarding %s: %v", c.Subtitle.ID, err)
			lastErr = err
			continue
		}
		return c, nil
	}
	return nil, fmt.Errorf("no candidate for %s could be downloaded: %w", video, lastErr)
}

// ProcessFile downloads the best subtitle for one video and saves it next
// to the video. It returns the subtitle path.
func (p *Processor) ProcessFile(ctx context.Context, videoPath string) (string, error) {
	video, err := metadata.ParseVideo(videoPath)
	if err != nil {
		return "", err
	}
	p.logger.Infof("Processing video: %s (%s)", filepath.Base(videoPath), video)

	best, err := p.DownloadBest(ctx, video)
	if err != nil {
		return "", err
	}

	content := best.Subtitle.Content()
	if detected := fileops.DetectLanguage(content); detected != language.Und {
		if base, _ := detected.Base(); base.String() != "es" {
			p.logger.Warnf("Subtitle %s reads as %s, not Spanish", best.Subtitle.ID, detected)
		}
	}

	subPath := fileops.SubtitlePath(videoPath, best.Subtitle.Language, p.opts.Single)
	if err := fileops.SaveSubtitle(subPath, content); err != nil {
		return "", err
	}
	p.logger.Infof("Saved %s (score %d/%d)", filepath.Base(subPath), best.Score, MaxScore(video))

	if p.opts.Recorder != nil {
		rec := history.Record{
			VideoPath:    videoPath,
			SubtitlePath: subPath,
			SubtitleID:   best.Subtitle.ID,
			Label:        best.Subtitle.Label,
			Language:     best.Subtitle.Language.String(),
			Score:        best.Score,
			Matches:      best.Matches.Sorted(),
		}
		if err := p.opts.Recorder.Add(rec); err != nil {
			p.logger.Warnf("Failed to record download of %s: %v", subPath, err)
		}
	}
	return subPath, nil
}

// ScanDirectory lists the video files under rootPath.
func (p *Processor) ScanDirectory(ctx context.Context, rootPath string, recursive bool) ([]string, error) {
	var videos []string

	err := filepath.WalkDir(rootPath, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			if path == rootPath {
				return err
			}
			p.logger.Warnf("Error accessing path %q: %v", path, err)
			if d != nil && d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if ctx.Err() != nil {
			p.logger.Info("Context cancelled during directory scan")
			return ctx.Err()
		}

		if d.IsDir() {
			if path != rootPath && !recursive {
				p.logger.Debugf("Skipping directory (not recursive): %s", path)
				return filepath.SkipDir
			}
			return nil
		}

		if videoExtensions[strings.ToLower(filepath.Ext(path))] {
			videos = append(videos, path)
		}
		return nil
	})
	if err != nil {
		if !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded) {
			p.logger.Errorf("Error walking directory %q: %v", rootPath, err)
		}
		return nil, err
	}

	p.logger.Infof("Scan complete. Found %d video files in %s (Recursive: %t)", len(videos), rootPath, recursive)
	return videos, nil
}

// Report summarizes a directory run.
type Report struct {
	Saved   map[string]string // video path -> subtitle path
	Skipped []string          // videos that already had a subtitle
	Failed  map[string]error  // video path -> reason
}

// ProcessDirectory saves subtitles for every video under rootPath that
// has none yet. Per-video failures are collected in the report.
func (p *Processor) ProcessDirectory(ctx context.Context, rootPath string, recursive bool) (*Report, error) {
	videos, err := p.ScanDirectory(ctx, rootPath, recursive)
	if err != nil {
		return nil, err
	}

	report := &Report{
		Saved:  make(map[string]string),
		Failed: make(map[string]error),
	}
	for _, videoPath := range videos {
		if err := ctx.Err(); err != nil {
			return report, err
		}

		if !p.opts.Overwrite {
			has, err := fileops.HasSubtitle(videoPath)
			if err != nil {
				report.Failed[videoPath] = err
				continue
			}
			if has {
				p.logger.Infof("Skipping %s: subtitle already present", filepath.Base(videoPath))
				report.Skipped = append(report.Skipped, videoPath)
				continue
			}
		}

		subPath, err := p.ProcessFile(ctx, videoPath)
		if err != nil {
			p.logger.Warnf("No subtitle saved for %s: %v", filepath.Base(videoPath), err)
			report.Failed[videoPath] = err
			continue
		}
		report.Saved[videoPath] = subPath
	}

	p.logger.Infof("Processing complete. Saved %d, skipped %d, failed %d.", len(report.Saved), len(report.Skipped), len(report.Failed))
	return report, nil
}
