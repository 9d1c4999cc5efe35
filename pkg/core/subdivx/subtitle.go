package subdivx

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	coreErrors "github.com/angelospk/subdivx-go/pkg/core/errors"
	"golang.org/x/text/language"
)

// Label shapes. The year variant is tried first, so "Title (2014) S01E02"
// keeps its year.
var (
	seriesLabelRe = regexp.MustCompile(`^(?:(?P<name_b>.*)[ .]\((?P<year>\d{4})\)[ .][Ss](?P<season_b>\d{1,2})[Ee](?P<episode_b>\d{1,2})|(?P<name_a>.*)[ .][Ss](?P<season_a>\d{1,2})[Ee](?P<episode_a>\d{1,2}))`)
	movieLabelRe  = regexp.MustCompile(`(.*?[ .]\(\d{4})\)[ .a-zA-Z]*(\d{3,4}p)?`)
)

// EpisodeLabel holds what an episodic label says about the video.
type EpisodeLabel struct {
	Series  string
	Season  int
	Episode int
	Year    *int // nil when the label carries no "(Year)"
}

// MovieLabel holds what a "Title (Year) [quality]" label says about the video.
type MovieLabel struct {
	Title string
	Year  int
}

// ParseEpisodeLabel reads "Title (Year) SxxEyy..." or "Title SxxEyy...".
func ParseEpisodeLabel(label string) (EpisodeLabel, error) {
	m := seriesLabelRe.FindStringSubmatch(label)
	if m == nil {
		return EpisodeLabel{}, fmt.Errorf("%w: %q is not an episode label", coreErrors.ErrInvalidLabel, label)
	}
	group := func(name string) string {
		return m[seriesLabelRe.SubexpIndex(name)]
	}

	var out EpisodeLabel
	name, season, episode := group("name_a"), group("season_a"), group("episode_a")
	if y := group("year"); y != "" {
		name, season, episode = group("name_b"), group("season_b"), group("episode_b")
		year, _ := strconv.Atoi(y)
		out.Year = &year
	}
	out.Series = strings.ReplaceAll(name, ".", " ")
	out.Season, _ = strconv.Atoi(season)
	out.Episode, _ = strconv.Atoi(episode)
	return out, nil
}

// ParseMovieLabel reads "Title (Year) [quality]".
func ParseMovieLabel(label string) (MovieLabel, error) {
	m := movieLabelRe.FindStringSubmatch(label)
	if m == nil {
		return MovieLabel{}, fmt.Errorf("%w: %q is not a movie label", coreErrors.ErrInvalidLabel, label)
	}
	// m[1] ends with "[ .](YYYY": six characters of separator, paren and year.
	head := m[1]
	year, _ := strconv.Atoi(head[len(head)-4:])
	return MovieLabel{
		Title: strings.ReplaceAll(head[:len(head)-6], ".", " "),
		Year:  year,
	}, nil
}

// Subtitle is one listing parsed from a search results page.
type Subtitle struct {
	ID          string       `json:"id"`
	Label       string       `json:"label"`
	Description string       `json:"description"`
	Downloads   int          `json:"downloads"`
	Uploader    string       `json:"uploader"`
	Language    language.Tag `json:"language"`
	ArchiveURL  string       `json:"archiveUrl"`

	// Derived from Label when it has an episodic shape.
	IsEpisode  bool   `json:"isEpisode"`
	Series     string `json:"series,omitempty"`
	Season     int    `json:"season,omitempty"`
	Episode    int    `json:"episode,omitempty"`
	SeriesYear *int   `json:"seriesYear,omitempty"`

	// Derived from Label when it has the "Title (Year)" shape.
	MovieTitle string `json:"movieTitle,omitempty"`
	MovieYear  int    `json:"movieYear,omitempty"`

	content []byte
}

// NewSubtitle builds a listing record, inferring its language and parsing
// the label once. Labels that fit no shape leave the derived fields empty.
func NewSubtitle(id, label, description string, downloads int, uploader, archiveURL string) *Subtitle {
	s := &Subtitle{
		ID:          id,
		Label:       label,
		Description: description,
		Downloads:   downloads,
		Uploader:    uploader,
		Language:    InferLanguage(description, uploader),
		ArchiveURL:  archiveURL,
	}
	if ep, err := ParseEpisodeLabel(label); err == nil {
		s.IsEpisode = true
		s.Series = ep.Series
		s.Season = ep.Season
		s.Episode = ep.Episode
		s.SeriesYear = ep.Year
	}
	if mv, err := ParseMovieLabel(label); err == nil {
		s.MovieTitle = mv.Title
		s.MovieYear = mv.Year
	}
	return s
}

// Content returns the downloaded subtitle bytes, nil before a download.
func (s *Subtitle) Content() []byte {
	return s.content
}

// HasContent reports whether the subtitle was downloaded.
func (s *Subtitle) HasContent() bool {
	return s.content != nil
}

// SetContent stores the downloaded bytes. Content is write-once.
func (s *Subtitle) SetContent(content []byte) error {
	if s.content != nil {
		return coreErrors.ErrContentAlreadySet
	}
	if content == nil {
		content = []byte{}
	}
	s.content = content
	return nil
}

func (s *Subtitle) String() string {
	return fmt.Sprintf("<Subtitle %s %q [%s]>", s.ID, s.Label, s.Language)
}
