package metadata

import (
	"fmt"
	"path/filepath"
	"strings"

	ptn "github.com/razsteinmetz/go-ptn"
	log "github.com/sirupsen/logrus"
)

// Kind tells episodes and movies apart.
type Kind string

const (
	KindEpisode Kind = "episode"
	KindMovie   Kind = "movie"
)

// Video is the target a subtitle is searched and scored for.
type Video struct {
	Name string `json:"name"` // Raw file name (or path) the metadata came from
	Kind Kind   `json:"kind"`

	Series  string `json:"series,omitempty"` // Episodes only
	Title   string `json:"title,omitempty"`  // Movies only
	Year    int    `json:"year,omitempty"`
	Season  int    `json:"season,omitempty"`
	Episode int    `json:"episode,omitempty"`

	ReleaseGroup string `json:"releaseGroup,omitempty"`
	Resolution   string `json:"resolution,omitempty"` // e.g., "1080p", "720p"
	Source       string `json:"source,omitempty"`     // e.g., "Blu-ray", "WEB-DL"
}

// IsEpisode reports whether the video is an episode of a series.
func (v *Video) IsEpisode() bool {
	return v.Kind == KindEpisode
}

func (v *Video) String() string {
	if v.IsEpisode() {
		return fmt.Sprintf("%s S%02dE%02d", v.Series, v.Season, v.Episode)
	}
	if v.Year > 0 {
		return fmt.Sprintf("%s (%d)", v.Title, v.Year)
	}
	return v.Title
}

// ParseVideo guesses the video metadata from a release file name.
// A season or episode number in the name makes it an episode.
func ParseVideo(path string) (*Video, error) {
	name := filepath.Base(path)
	if name == "" || name == "." || name == string(filepath.Separator) {
		return nil, fmt.Errorf("cannot parse video from empty name %q", path)
	}

	parsed, err := ptn.Parse(name)
	if err != nil {
		return nil, fmt.Errorf("failed to parse video file name '%s': %w", name, err)
	}

	title := strings.TrimSpace(parsed.Title)
	if title == "" {
		base := strings.TrimSuffix(name, filepath.Ext(name))
		title = strings.TrimSpace(strings.ReplaceAll(base, ".", " "))
	}

	v := &Video{
		Name:         name,
		Year:         parsed.Year,
		ReleaseGroup: strings.TrimSpace(parsed.Group),
		Resolution:   strings.TrimSpace(parsed.Resolution),
		Source:       NormalizeSource(parsed.Quality),
	}
	if parsed.Season > 0 || parsed.Episode > 0 {
		v.Kind = KindEpisode
		v.Series = title
		v.Season = parsed.Season
		v.Episode = parsed.Episode
	} else {
		v.Kind = KindMovie
		v.Title = title
	}

	log.Debugf("Parsed video '%s' as %s: %s", name, v.Kind, v)
	return v, nil
}

// NormalizeSource maps the many spellings of a release source onto the
// names used for matching (WEB-DL, WEBRip, Blu-ray, HDTV, DVD).
func NormalizeSource(raw string) string {
	s := strings.ToLower(strings.TrimSpace(raw))
	switch {
	case s == "":
		return ""
	case strings.Contains(s, "web-dl"), strings.Contains(s, "webdl"), strings.Contains(s, "web dl"):
		return "WEB-DL"
	case strings.Contains(s, "webrip"), strings.Contains(s, "web-rip"), strings.Contains(s, "web rip"):
		return "WEBRip"
	case strings.Contains(s, "bluray"), strings.Contains(s, "blu-ray"), strings.Contains(s, "bdrip"), strings.Contains(s, "brrip"):
		return "Blu-ray"
	case strings.Contains(s, "hdtv"):
		return "HDTV"
	case strings.Contains(s, "dvd"):
		return "DVD"
	}
	return strings.TrimSpace(raw)
}
