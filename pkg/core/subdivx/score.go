package subdivx

import (
	"sort"
	"strings"

	"github.com/angelospk/subdivx-go/pkg/core/metadata"
)

// Match is an attribute of the target video a subtitle agrees with.
type Match string

const (
	MatchSeries       Match = "series"
	MatchSeason       Match = "season"
	MatchEpisode      Match = "episode"
	MatchTitle        Match = "title"
	MatchYear         Match = "year"
	MatchReleaseGroup Match = "release_group"
	MatchResolution   Match = "resolution"
	MatchSource       Match = "source"
	// MatchVideoCodec is awarded to Latin American Spanish candidates so they
	// win ties. Hosts rank on this name; it has nothing to do with codecs.
	MatchVideoCodec Match = "video_codec"
)

// MatchSet is an unordered set of matches.
type MatchSet map[Match]struct{}

// NewMatchSet returns a set holding the given matches.
func NewMatchSet(matches ...Match) MatchSet {
	set := make(MatchSet, len(matches))
	for _, m := range matches {
		set.Add(m)
	}
	return set
}

func (s MatchSet) Add(m Match) {
	s[m] = struct{}{}
}

func (s MatchSet) Has(m Match) bool {
	_, ok := s[m]
	return ok
}

// Sorted lists the matches alphabetically.
func (s MatchSet) Sorted() []string {
	out := make([]string, 0, len(s))
	for m := range s {
		out = append(out, string(m))
	}
	sort.Strings(out)
	return out
}

// sourceSynonyms lists the spellings a description may use for a source.
var sourceSynonyms = map[string][]string{
	"web-dl":  {"web-dl", "web dl", "webdl"},
	"webrip":  {"web rip", "webrip", "web-rip"},
	"blu-ray": {"bluray", "bdrip", "brrip"},
}

// GetMatches compares a listing with the target video. It has no side
// effects; the host turns the set into a rank.
func GetMatches(sub *Subtitle, video *metadata.Video) MatchSet {
	matches := NewMatchSet()
	if sub == nil || video == nil {
		return matches
	}

	switch video.Kind {
	case metadata.KindEpisode:
		if video.Series != "" && metadata.Sanitize(sub.Series) == metadata.Sanitize(video.Series) {
			matches.Add(MatchSeries)
		}
		if video.Season != 0 && sub.Season == video.Season {
			matches.Add(MatchSeason)
		}
		if video.Episode != 0 && sub.Episode == video.Episode {
			matches.Add(MatchEpisode)
		}
	case metadata.KindMovie:
		if video.Title != "" && metadata.Sanitize(sub.MovieTitle) == metadata.Sanitize(video.Title) {
			matches.Add(MatchTitle)
		}
		if video.Year != 0 && sub.MovieYear == video.Year {
			matches.Add(MatchYear)
		}
	default:
		return matches
	}

	if video.ReleaseGroup != "" && containsFold(sub.Description, video.ReleaseGroup) {
		matches.Add(MatchReleaseGroup)
	}
	if video.Resolution != "" && containsFold(sub.Description, video.Resolution) {
		matches.Add(MatchResolution)
	}
	if video.Source != "" && sourceInDescription(sub.Description, video.Source) {
		matches.Add(MatchSource)
	}
	if isLatinoFriendly(sub.Description, sub.Uploader) {
		matches.Add(MatchVideoCodec)
	}
	return matches
}

func sourceInDescription(description, source string) bool {
	desc := strings.ToLower(description)
	if words, ok := sourceSynonyms[strings.ToLower(source)]; ok {
		return containsAny(desc, words)
	}
	return strings.Contains(desc, strings.ToLower(source))
}

func containsFold(s, substr string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(substr))
}
