package processor

import (
	"sort"

	"github.com/angelospk/subdivx-go/pkg/core/metadata"
	"github.com/angelospk/subdivx-go/pkg/core/subdivx"
)

// Match weights. A full series/season/episode match outweighs every
// secondary attribute put together.
var (
	episodeWeights = map[subdivx.Match]int{
		subdivx.MatchSeries:       405,
		subdivx.MatchYear:         135,
		subdivx.MatchSeason:       45,
		subdivx.MatchEpisode:      45,
		subdivx.MatchReleaseGroup: 15,
		subdivx.MatchSource:       7,
		subdivx.MatchResolution:   2,
		subdivx.MatchVideoCodec:   2,
	}
	movieWeights = map[subdivx.Match]int{
		subdivx.MatchTitle:        135,
		subdivx.MatchYear:         45,
		subdivx.MatchReleaseGroup: 15,
		subdivx.MatchSource:       7,
		subdivx.MatchResolution:   2,
		subdivx.MatchVideoCodec:   2,
	}
)

// Candidate is a listing scored against a video.
type Candidate struct {
	Subtitle *subdivx.Subtitle
	Matches  subdivx.MatchSet
	Score    int
}

// Score sums the weights of the matches for the video kind.
func Score(video *metadata.Video, matches subdivx.MatchSet) int {
	weights := movieWeights
	if video.IsEpisode() {
		weights = episodeWeights
	}
	score := 0
	for m := range matches {
		score += weights[m]
	}
	return score
}

// MaxScore is the score of a listing matching every weighted attribute.
func MaxScore(video *metadata.Video) int {
	weights := movieWeights
	if video.IsEpisode() {
		weights = episodeWeights
	}
	total := 0
	for _, w := range weights {
		total += w
	}
	return total
}

// Rank scores every subtitle and orders them best first. Equal scores go
// to the most downloaded listing; remaining ties keep site order.
func Rank(video *metadata.Video, subs []*subdivx.Subtitle) []Candidate {
	candidates := make([]Candidate, 0, len(subs))
	for _, sub := range subs {
		matches := subdivx.GetMatches(sub, video)
		candidates = append(candidates, Candidate{
			Subtitle: sub,
			Matches:  matches,
			Score:    Score(video, matches),
		})
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].Score != candidates[j].Score {
			return candidates[i].Score > candidates[j].Score
		}
		return candidates[i].Subtitle.Downloads > candidates[j].Subtitle.Downloads
	})
	return candidates
}
