package subdivx

import (
	"bytes"
	"testing"

	coreErrors "github.com/angelospk/subdivx-go/pkg/core/errors"
	"github.com/klauspost/compress/zip"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type zipEntry struct {
	name    string
	content string
}

func buildZip(t *testing.T, entries ...zipEntry) []byte {
	t.Helper()
	var buf bytes.Buffer
	w := zip.NewWriter(&buf)
	for _, e := range entries {
		f, err := w.Create(e.name)
		require.NoError(t, err)
		_, err = f.Write([]byte(e.content))
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())
	return buf.Bytes()
}

func TestSelectSubtitleEntry(t *testing.T) {
	tests := []struct {
		name     string
		entries  []string
		expected string
	}{
		{"last qualifying wins", []string{"a.FORZADO.srt", "b.srt", "c.srt"}, "c.srt"},
		{"single entry taken as is", []string{"Show.FORZADO.srt"}, "Show.FORZADO.srt"},
		{"single non-subtitle taken as is", []string{"readme.txt"}, "readme.txt"},
		{"skips hidden", []string{"a.srt", ".b.srt"}, "a.srt"},
		{"skips hidden in folder", []string{"subs/a.srt", "subs/._a.srt"}, "subs/a.srt"},
		{"skips non-subtitles", []string{"a.srt", "info.nfo", "cover.jpg"}, "a.srt"},
		{"skips spain", []string{"Show.Latino.srt", "Show.España.srt"}, "Show.Latino.srt"},
		{"skips dos encoded spain", []string{"Show.srt", "Show.Espa§a.srt"}, "Show.srt"},
		{"accepts other subtitle formats", []string{"a.srt", "b.ASS"}, "b.ASS"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := SelectSubtitleEntry(tt.entries)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestSelectSubtitleEntry_NoneQualifies(t *testing.T) {
	_, err := SelectSubtitleEntry([]string{"a.FORZADO.srt", "info.nfo"})
	assert.ErrorIs(t, err, coreErrors.ErrNoSubtitleInArchive)

	_, err = SelectSubtitleEntry(nil)
	assert.ErrorIs(t, err, coreErrors.ErrNoSubtitleInArchive)
}

func TestDetectArchive(t *testing.T) {
	kind, err := DetectArchive(buildZip(t, zipEntry{"a.srt", "1"}))
	require.NoError(t, err)
	assert.Equal(t, ArchiveZip, kind)

	kind, err = DetectArchive([]byte("Rar!\x1a\x07\x00\x00\x00\x00\x00\x00\x00"))
	require.NoError(t, err)
	assert.Equal(t, ArchiveRar, kind)

	_, err = DetectArchive([]byte("1\n00:00:01,000 --> 00:00:02,000\nHola\n"))
	assert.ErrorIs(t, err, coreErrors.ErrUnsupportedArchive)
}

func TestExtractSubtitle_Zip(t *testing.T) {
	data := buildZip(t,
		zipEntry{"Show.S01E01.FORZADO.srt", "forced"},
		zipEntry{"Show.S01E01.srt", "1\r\n00:00:01,000 --> 00:00:02,000\r\nHola\r\n"},
		zipEntry{"info.nfo", "nfo"},
	)

	name, content, err := ExtractSubtitle(data)
	require.NoError(t, err)
	assert.Equal(t, "Show.S01E01.srt", name)
	assert.Equal(t, "1\n00:00:01,000 --> 00:00:02,000\nHola\n", string(content))
}

func TestExtractSubtitle_Rar(t *testing.T) {
	data := []byte(readTestdata(t, "multi.rar"))

	kind, err := DetectArchive(data)
	require.NoError(t, err)
	assert.Equal(t, ArchiveRar, kind)

	name, content, err := ExtractSubtitle(data)
	require.NoError(t, err)
	assert.Equal(t, "c.srt", name)
	assert.Equal(t, "1\n00:00:01,000 --> 00:00:02,000\nC\n", string(content))
}

func TestExtractSubtitle_Errors(t *testing.T) {
	_, _, err := ExtractSubtitle([]byte("<html>not an archive</html>"))
	assert.ErrorIs(t, err, coreErrors.ErrUnsupportedArchive)

	_, _, err = ExtractSubtitle(buildZip(t, zipEntry{"a.nfo", ""}, zipEntry{"b.txt", ""}))
	assert.ErrorIs(t, err, coreErrors.ErrNoSubtitleInArchive)

	_, _, err = ExtractSubtitle([]byte("Rar!\x1a\x07\x00\x00\x00\x00\x00\x00\x00"))
	require.Error(t, err)
	assert.NotErrorIs(t, err, coreErrors.ErrUnsupportedArchive)
}

func TestFixLineEnding(t *testing.T) {
	assert.Equal(t, []byte("a\nb\n"), FixLineEnding([]byte("a\r\nb\r\n")))
	assert.Equal(t, []byte("a\nb"), FixLineEnding([]byte("a\nb")))
}
