package processor_test

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"sort"
	"testing"

	coreErrors "github.com/angelospk/subdivx-go/pkg/core/errors"
	"github.com/angelospk/subdivx-go/pkg/core/history"
	"github.com/angelospk/subdivx-go/pkg/core/metadata"
	"github.com/angelospk/subdivx-go/pkg/core/subdivx"
	"github.com/angelospk/subdivx-go/pkg/processor"
	log "github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/language"
)

const validSRT = "1\n00:00:01,000 --> 00:00:04,000\n¿Dónde estabas anoche? Te estuvimos buscando por toda la ciudad.\n"

// --- Mocks --- //

type MockProvider struct {
	mock.Mock
	contents map[string][]byte // subtitle id -> content served on download
}

var _ processor.SubtitleProvider = (*MockProvider)(nil)

func (m *MockProvider) ListSubtitles(ctx context.Context, video *metadata.Video, languages []language.Tag) ([]*subdivx.Subtitle, error) {
	args := m.Called(ctx, video, languages)
	subs, _ := args.Get(0).([]*subdivx.Subtitle)
	return subs, args.Error(1)
}

func (m *MockProvider) DownloadSubtitle(ctx context.Context, sub *subdivx.Subtitle) error {
	args := m.Called(ctx, sub)
	if err := args.Error(0); err != nil {
		return err
	}
	return sub.SetContent(m.contents[sub.ID])
}

type MockRecorder struct {
	mock.Mock
}

func (m *MockRecorder) Add(rec history.Record) error {
	return m.Called(rec).Error(0)
}

// --- End Mocks --- //

func testLogger() *log.Logger {
	logger := log.New()
	logger.SetOutput(io.Discard)
	return logger
}

func episodeVideo() *metadata.Video {
	return &metadata.Video{
		Name:         "The.Big.Bang.Theory.S07E05.720p.HDTV.x264-DIMENSION.mkv",
		Kind:         metadata.KindEpisode,
		Series:       "The Big Bang Theory",
		Season:       7,
		Episode:      5,
		ReleaseGroup: "DIMENSION",
		Resolution:   "720p",
	}
}

func TestRank(t *testing.T) {
	video := episodeVideo()
	wrongEpisode := subdivx.NewSubtitle("A", "The.Big.Bang.Theory.S07E04", "720p DIMENSION", 9000, "u", "")
	exact := subdivx.NewSubtitle("B", "The.Big.Bang.Theory.S07E05", "720p DIMENSION", 10, "u", "")
	popular := subdivx.NewSubtitle("C", "The.Big.Bang.Theory.S07E05", "LOL", 500, "u", "")
	plain := subdivx.NewSubtitle("D", "The.Big.Bang.Theory.S07E05", "LOL", 100, "u", "")

	ranked := processor.Rank(video, []*subdivx.Subtitle{wrongEpisode, plain, exact, popular})
	require.Len(t, ranked, 4)

	var ids []string
	for _, c := range ranked {
		ids = append(ids, c.Subtitle.ID)
	}
	assert.Equal(t, []string{"B", "C", "D", "A"}, ids)
	assert.Equal(t, 405+45+45+15+2, ranked[0].Score)
	assert.Equal(t, 405+45+45, ranked[1].Score)
	assert.True(t, ranked[0].Matches.Has(subdivx.MatchReleaseGroup))
}

func TestRank_LatinoWinsTies(t *testing.T) {
	video := episodeVideo()
	spain := subdivx.NewSubtitle("ES", "The.Big.Bang.Theory.S07E05", "castellano", 1000, "u", "")
	latino := subdivx.NewSubtitle("MX", "The.Big.Bang.Theory.S07E05", "Latino", 1, "u", "")

	ranked := processor.Rank(video, []*subdivx.Subtitle{spain, latino})
	assert.Equal(t, "MX", ranked[0].Subtitle.ID)
}

func TestScore(t *testing.T) {
	episode := episodeVideo()
	movie := &metadata.Video{Kind: metadata.KindMovie, Title: "Inception", Year: 2010}

	assert.Equal(t, 0, processor.Score(episode, subdivx.NewMatchSet()))
	assert.Equal(t, 405+135, processor.Score(episode, subdivx.NewMatchSet(subdivx.MatchSeries, subdivx.MatchYear)))
	assert.Equal(t, 135+45, processor.Score(movie, subdivx.NewMatchSet(subdivx.MatchTitle, subdivx.MatchYear)))
	assert.Equal(t, 0, processor.Score(movie, subdivx.NewMatchSet(subdivx.MatchSeries)), "series is not weighted for movies")

	assert.Equal(t, 656, processor.MaxScore(episode))
	assert.Equal(t, 206, processor.MaxScore(movie))
}

func TestDownloadBest(t *testing.T) {
	ctx := context.Background()
	video := episodeVideo()
	best := subdivx.NewSubtitle("BEST", "The.Big.Bang.Theory.S07E05", "720p DIMENSION", 1, "u", "")
	second := subdivx.NewSubtitle("SECOND", "The.Big.Bang.Theory.S07E05", "", 1, "u", "")

	provider := &MockProvider{contents: map[string][]byte{"BEST": []byte(validSRT)}}
	provider.On("ListSubtitles", ctx, video, []language.Tag(nil)).Return([]*subdivx.Subtitle{second, best}, nil)
	provider.On("DownloadSubtitle", ctx, best).Return(nil)

	p := processor.NewProcessor(provider, processor.Options{}, testLogger())
	got, err := p.DownloadBest(ctx, video)
	require.NoError(t, err)
	assert.Equal(t, "BEST", got.Subtitle.ID)
	assert.Equal(t, validSRT, string(got.Subtitle.Content()))
	provider.AssertExpectations(t)
	provider.AssertNotCalled(t, "DownloadSubtitle", ctx, second)
}

func TestDownloadBest_FallsBackOnFailure(t *testing.T) {
	ctx := context.Background()
	video := episodeVideo()
	broken := subdivx.NewSubtitle("BROKEN", "The.Big.Bang.Theory.S07E05", "720p DIMENSION", 1, "u", "")
	garbage := subdivx.NewSubtitle("GARBAGE", "The.Big.Bang.Theory.S07E05", "720p", 1, "u", "")
	fallback := subdivx.NewSubtitle("FALLBACK", "The.Big.Bang.Theory.S07E05", "", 1, "u", "")

	provider := &MockProvider{contents: map[string][]byte{
		"GARBAGE":  []byte("<html>Debe iniciar sesión</html>"),
		"FALLBACK": []byte(validSRT),
	}}
	provider.On("ListSubtitles", ctx, video, mock.Anything).Return([]*subdivx.Subtitle{fallback, garbage, broken}, nil)
	provider.On("DownloadSubtitle", ctx, broken).Return(coreErrors.ErrUnsupportedArchive)
	provider.On("DownloadSubtitle", ctx, garbage).Return(nil)
	provider.On("DownloadSubtitle", ctx, fallback).Return(nil)

	p := processor.NewProcessor(provider, processor.Options{}, testLogger())
	got, err := p.DownloadBest(ctx, video)
	require.NoError(t, err)
	assert.Equal(t, "FALLBACK", got.Subtitle.ID)
	provider.AssertNumberOfCalls(t, "DownloadSubtitle", 3)
}

func TestDownloadBest_AllFail(t *testing.T) {
	ctx := context.Background()
	video := episodeVideo()
	only := subdivx.NewSubtitle("ONLY", "The.Big.Bang.Theory.S07E05", "", 1, "u", "")

	provider := &MockProvider{}
	provider.On("ListSubtitles", ctx, video, mock.Anything).Return([]*subdivx.Subtitle{only}, nil)
	provider.On("DownloadSubtitle", ctx, only).Return(coreErrors.ErrNoSubtitleInArchive)

	p := processor.NewProcessor(provider, processor.Options{}, testLogger())
	_, err := p.DownloadBest(ctx, video)
	assert.ErrorIs(t, err, coreErrors.ErrNoSubtitleInArchive)
}

func TestDownloadBest_NoResults(t *testing.T) {
	ctx := context.Background()
	video := episodeVideo()
	langs := []language.Tag{subdivx.LatinAmericanSpanish}

	provider := &MockProvider{}
	provider.On("ListSubtitles", ctx, video, langs).Return([]*subdivx.Subtitle{}, nil)

	p := processor.NewProcessor(provider, processor.Options{Languages: langs}, testLogger())
	_, err := p.DownloadBest(ctx, video)
	assert.ErrorIs(t, err, coreErrors.ErrNoSubtitles)
	provider.AssertExpectations(t)
}

func TestDownloadBest_ListError(t *testing.T) {
	ctx := context.Background()
	video := episodeVideo()
	boom := errors.New("site down")

	provider := &MockProvider{}
	provider.On("ListSubtitles", ctx, video, mock.Anything).Return(nil, boom)

	p := processor.NewProcessor(provider, processor.Options{}, testLogger())
	_, err := p.DownloadBest(ctx, video)
	assert.ErrorIs(t, err, boom)
}

func TestProcessFile(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	videoPath := filepath.Join(dir, "The.Big.Bang.Theory.S07E05.720p.HDTV.x264-DIMENSION.mkv")
	require.NoError(t, os.WriteFile(videoPath, nil, 0o644))

	sub := subdivx.NewSubtitle("X1", "The.Big.Bang.Theory.S07E05", "DIMENSION latino", 1, "u", "")
	provider := &MockProvider{contents: map[string][]byte{"X1": []byte(validSRT)}}
	provider.On("ListSubtitles", ctx, mock.AnythingOfType("*metadata.Video"), mock.Anything).Return([]*subdivx.Subtitle{sub}, nil)
	provider.On("DownloadSubtitle", ctx, sub).Return(nil)

	recorder := &MockRecorder{}
	recorder.On("Add", mock.MatchedBy(func(rec history.Record) bool {
		return rec.VideoPath == videoPath && rec.SubtitleID == "X1" && rec.Language == "es-MX"
	})).Return(nil)

	p := processor.NewProcessor(provider, processor.Options{Recorder: recorder}, testLogger())
	subPath, err := p.ProcessFile(ctx, videoPath)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "The.Big.Bang.Theory.S07E05.720p.HDTV.x264-DIMENSION.es-MX.srt"), subPath)

	saved, err := os.ReadFile(subPath)
	require.NoError(t, err)
	assert.Equal(t, validSRT, string(saved))
	recorder.AssertExpectations(t)
}

func TestProcessFile_Single(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	videoPath := filepath.Join(dir, "Inception.2010.1080p.BluRay.x264-SPARKS.mkv")
	require.NoError(t, os.WriteFile(videoPath, nil, 0o644))

	sub := subdivx.NewSubtitle("M1", "Inception (2010) 1080p", "SPARKS", 1, "u", "")
	provider := &MockProvider{contents: map[string][]byte{"M1": []byte(validSRT)}}
	provider.On("ListSubtitles", ctx, mock.Anything, mock.Anything).Return([]*subdivx.Subtitle{sub}, nil)
	provider.On("DownloadSubtitle", ctx, sub).Return(nil)

	p := processor.NewProcessor(provider, processor.Options{Single: true}, testLogger())
	subPath, err := p.ProcessFile(ctx, videoPath)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "Inception.2010.1080p.BluRay.x264-SPARKS.srt"), subPath)
	assert.FileExists(t, subPath)
}

func TestScanDirectory(t *testing.T) {
	dir := t.TempDir()
	nested := filepath.Join(dir, "Season 1")
	require.NoError(t, os.MkdirAll(nested, 0o755))
	for _, name := range []string{"a.mkv", "b.MP4", "c.srt", "notes.txt"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), nil, 0o644))
	}
	require.NoError(t, os.WriteFile(filepath.Join(nested, "d.m4v"), nil, 0o644))

	p := processor.NewProcessor(&MockProvider{}, processor.Options{}, testLogger())

	videos, err := p.ScanDirectory(context.Background(), dir, false)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{filepath.Join(dir, "a.mkv"), filepath.Join(dir, "b.MP4")}, videos)

	videos, err = p.ScanDirectory(context.Background(), dir, true)
	require.NoError(t, err)
	sort.Strings(videos)
	assert.Equal(t, []string{filepath.Join(dir, "Season 1", "d.m4v"), filepath.Join(dir, "a.mkv"), filepath.Join(dir, "b.MP4")}, videos)

	_, err = p.ScanDirectory(context.Background(), filepath.Join(dir, "missing"), true)
	assert.Error(t, err)
}

func TestScanDirectory_Cancelled(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.mkv"), nil, 0o644))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	p := processor.NewProcessor(&MockProvider{}, processor.Options{}, testLogger())
	_, err := p.ScanDirectory(ctx, dir, true)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestProcessDirectory(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	withSub := filepath.Join(dir, "Show.S01E01.mkv")
	needsSub := filepath.Join(dir, "Show.S01E02.mkv")
	noResults := filepath.Join(dir, "Show.S01E03.mkv")
	for _, path := range []string{withSub, needsSub, noResults} {
		require.NoError(t, os.WriteFile(path, nil, 0o644))
	}
	require.NoError(t, os.WriteFile(filepath.Join(dir, "Show.S01E01.es.srt"), []byte(validSRT), 0o644))

	sub := subdivx.NewSubtitle("E2", "Show.S01E02", "", 1, "u", "")
	provider := &MockProvider{contents: map[string][]byte{"E2": []byte(validSRT)}}
	provider.On("ListSubtitles", ctx, mock.MatchedBy(func(v *metadata.Video) bool { return v.Episode == 2 }), mock.Anything).
		Return([]*subdivx.Subtitle{sub}, nil)
	provider.On("ListSubtitles", ctx, mock.MatchedBy(func(v *metadata.Video) bool { return v.Episode == 3 }), mock.Anything).
		Return([]*subdivx.Subtitle{}, nil)
	provider.On("DownloadSubtitle", ctx, sub).Return(nil)

	p := processor.NewProcessor(provider, processor.Options{}, testLogger())
	report, err := p.ProcessDirectory(ctx, dir, false)
	require.NoError(t, err)

	assert.Equal(t, []string{withSub}, report.Skipped)
	require.Contains(t, report.Saved, needsSub)
	assert.Equal(t, filepath.Join(dir, "Show.S01E02.es-MX.srt"), report.Saved[needsSub])
	require.Contains(t, report.Failed, noResults)
	assert.ErrorIs(t, report.Failed[noResults], coreErrors.ErrNoSubtitles)
	provider.AssertNotCalled(t, "ListSubtitles", ctx, mock.MatchedBy(func(v *metadata.Video) bool { return v.Episode == 1 }), mock.Anything)
}
