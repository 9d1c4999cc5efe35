package fileops

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/abadojack/whatlanggo"
	coreErrors "github.com/angelospk/subdivx-go/pkg/core/errors"
	"golang.org/x/text/language"
)

// SubtitleExtensions are the sidecar types HasSubtitle recognizes.
var SubtitleExtensions = []string{".srt", ".ass", ".ssa", ".sub"}

var (
	srtTimingRe = regexp.MustCompile(`\d{1,2}:\d{2}:\d{2}[,.]\d{1,3}\s*-->\s*\d{1,2}:\d{2}:\d{2}[,.]\d{1,3}`)
	ssaHeaderRe = regexp.MustCompile(`(?mi)^\[(script info|v4\+? styles|events)\]`)
	markupRe    = regexp.MustCompile(`<[^>]*>|\{[^}]*\}`)
	indexLineRe = regexp.MustCompile(`^\d+$`)
)

// SubtitlePath returns where the subtitle for videoPath is stored:
// "<video base>.<tag>.srt", or "<video base>.srt" when single is set.
func SubtitlePath(videoPath string, tag language.Tag, single bool) string {
	base := strings.TrimSuffix(videoPath, filepath.Ext(videoPath))
	if single || tag == language.Und {
		return base + ".srt"
	}
	return fmt.Sprintf("%s.%s.srt", base, tag)
}

// SaveSubtitle writes content to path through a temporary file in the
// same directory.
func SaveSubtitle(path string, content []byte) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".subdivx-*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temporary file in '%s': %w", dir, err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(content); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write subtitle '%s': %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to write subtitle '%s': %w", path, err)
	}
	if err := os.Chmod(tmp.Name(), 0o644); err != nil {
		return fmt.Errorf("failed to set permissions on '%s': %w", path, err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("failed to move subtitle into place '%s': %w", path, err)
	}
	return nil
}

// HasSubtitle reports whether a sidecar subtitle already sits next to the
// video, whatever its language suffix.
func HasSubtitle(videoPath string) (bool, error) {
	dir := filepath.Dir(videoPath)
	base := filepath.Base(strings.TrimSuffix(videoPath, filepath.Ext(videoPath)))

	entries, err := os.ReadDir(dir)
	if err != nil {
		return false, fmt.Errorf("failed to list '%s': %w", dir, err)
	}
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasPrefix(name, base+".") {
			continue
		}
		if isSubtitleFile(name) {
			return true, nil
		}
	}
	return false, nil
}

// ValidateSubtitle checks that content looks like SubRip (a timing line)
// or SubStation Alpha (a section header).
func ValidateSubtitle(content []byte) error {
	if len(bytes.TrimSpace(content)) == 0 {
		return fmt.Errorf("%w: empty", coreErrors.ErrInvalidSubtitle)
	}
	if srtTimingRe.Match(content) || ssaHeaderRe.Match(content) {
		return nil
	}
	return coreErrors.ErrInvalidSubtitle
}

// DetectLanguage guesses the language of the subtitle dialogue. It returns
// language.Und when the text is too short or ambiguous to tell.
func DetectLanguage(content []byte) language.Tag {
	text := dialogueText(content)
	if text == "" {
		return language.Und
	}

	info := whatlanggo.Detect(text)
	if !info.IsReliable() {
		return language.Und
	}
	tag, err := language.Parse(info.Lang.Iso6391())
	if err != nil {
		return language.Und
	}
	return tag
}

// dialogueText drops cue numbers, timing lines and markup from SubRip text.
func dialogueText(content []byte) string {
	var b strings.Builder
	for _, line := range strings.Split(string(content), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || indexLineRe.MatchString(line) || srtTimingRe.MatchString(line) {
			continue
		}
		line = strings.TrimSpace(markupRe.ReplaceAllString(line, ""))
		if line == "" {
			continue
		}
		b.WriteString(line)
		b.WriteByte(' ')
	}
	return strings.TrimSpace(b.String())
}

func isSubtitleFile(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	for _, e := range SubtitleExtensions {
		if ext == e {
			return true
		}
	}
	return false
}
