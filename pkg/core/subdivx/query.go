package subdivx

import (
	"fmt"
	"path/filepath"
	"regexp"

	"github.com/angelospk/subdivx-go/pkg/core/metadata"
	log "github.com/sirupsen/logrus"
)

// seriesFilenameRe recognizes "Title Year SxxEyy" file names; series
// released that way are also titled with their year on the site.
var seriesFilenameRe = regexp.MustCompile(`^(?:(?P<name_b>.*)[ .](?P<year>\d{4})[ .][Ss](?P<season_b>\d{1,2})[Ee](?P<episode_b>\d{1,2}).*|(?P<name_a>.*)[ .][Ss](?P<season_a>\d{1,2})[Ee](?P<episode_a>\d{1,2}).*)`)

// nameHasYear reports whether an episode file name carries the series year.
func nameHasYear(name string) bool {
	m := seriesFilenameRe.FindStringSubmatch(filepath.Base(name))
	if m == nil {
		return false
	}
	return m[seriesFilenameRe.SubexpIndex("year")] != ""
}

// BuildQuery returns the search string for a video:
// "Series.Year.SxxEyy", "Series.SxxEyy", "Title.Year" or, for a movie
// without a known year, "Title".
func BuildQuery(video *metadata.Video) string {
	if video.IsEpisode() {
		if nameHasYear(video.Name) {
			return fmt.Sprintf("%s.%d.S%02dE%02d", video.Series, video.Year, video.Season, video.Episode)
		}
		return fmt.Sprintf("%s.S%02dE%02d", video.Series, video.Season, video.Episode)
	}
	if video.Year == 0 {
		log.Debugf("No year for movie %q, searching by title only", video.Title)
		return video.Title
	}
	return fmt.Sprintf("%s.%d", video.Title, video.Year)
}
