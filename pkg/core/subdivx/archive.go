package subdivx

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"

	coreErrors "github.com/angelospk/subdivx-go/pkg/core/errors"
	"github.com/gabriel-vasile/mimetype"
	"github.com/klauspost/compress/zip"
	"github.com/nwaples/rardecode/v2"
	log "github.com/sirupsen/logrus"
)

// Archive kinds served by the site.
const (
	ArchiveRar = "rar"
	ArchiveZip = "zip"
)

// subtitleExtensions are the file types picked out of multi-file archives.
var subtitleExtensions = []string{".srt", ".sub", ".ssa", ".ass"}

// forcedSuffix marks forced-only subtitle files.
const forcedSuffix = "FORZADO.srt"

// spainFilenameTokens mark Spain-dialect files. The "§" spellings are how
// "ñ" shows up in names stored by old DOS archivers.
var spainFilenameTokens = []string{"Espa§a", "espa§a", "España", "españa"}

type archive interface {
	Names() []string
	Read(name string) ([]byte, error)
}

// DetectArchive sniffs the archive kind from its signature.
func DetectArchive(data []byte) (string, error) {
	detected := mimetype.Detect(data)
	for m := detected; m != nil; m = m.Parent() {
		switch {
		case m.Is("application/x-rar-compressed"):
			return ArchiveRar, nil
		case m.Is("application/zip"):
			return ArchiveZip, nil
		}
	}
	return "", fmt.Errorf("%w: got %s", coreErrors.ErrUnsupportedArchive, detected.String())
}

// ExtractSubtitle opens a downloaded archive and returns the selected
// subtitle entry with normalized line endings.
func ExtractSubtitle(data []byte) (string, []byte, error) {
	kind, err := DetectArchive(data)
	if err != nil {
		return "", nil, err
	}
	log.Debugf("Identified %s archive", kind)

	var arc archive
	switch kind {
	case ArchiveRar:
		arc, err = openRar(data)
	default:
		arc, err = openZip(data)
	}
	if err != nil {
		return "", nil, fmt.Errorf("failed to open %s archive: %w", kind, err)
	}

	name, err := SelectSubtitleEntry(arc.Names())
	if err != nil {
		return "", nil, err
	}
	raw, err := arc.Read(name)
	if err != nil {
		return "", nil, fmt.Errorf("failed to read %q from %s archive: %w", name, kind, err)
	}
	return name, FixLineEnding(raw), nil
}

// SelectSubtitleEntry chooses the archive entry to use. A lone entry is
// always taken. Otherwise every entry that is not forced, hidden, a
// non-subtitle or a Spain-dialect file qualifies, and the last one wins.
func SelectSubtitleEntry(names []string) (string, error) {
	if len(names) == 1 {
		return names[0], nil
	}

	selected := ""
	for _, name := range names {
		log.Debugf("Archive entry %s", name)
		switch {
		case strings.HasSuffix(name, forcedSuffix):
			log.Debugf("Skipping forced subtitle %s", name)
		case strings.HasPrefix(path.Base(strings.ReplaceAll(name, "\\", "/")), "."):
			log.Debugf("Skipping hidden file %s", name)
		case !hasSubtitleExtension(name):
			log.Debugf("Skipping non-subtitle file %s", name)
		case containsAny(name, spainFilenameTokens):
			log.Debugf("Skipping Spain subtitle file %s", name)
		default:
			log.Debugf("Subtitle candidate selected: %s", name)
			selected = name
		}
	}
	if selected == "" {
		return "", coreErrors.ErrNoSubtitleInArchive
	}
	return selected, nil
}

// FixLineEnding converts CRLF line endings to LF.
func FixLineEnding(content []byte) []byte {
	return bytes.ReplaceAll(content, []byte("\r\n"), []byte("\n"))
}

func hasSubtitleExtension(name string) bool {
	lower := strings.ToLower(name)
	for _, ext := range subtitleExtensions {
		if strings.HasSuffix(lower, ext) {
			return true
		}
	}
	return false
}

type zipArchive struct {
	reader *zip.Reader
}

func openZip(data []byte) (*zipArchive, error) {
	r, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, err
	}
	return &zipArchive{reader: r}, nil
}

func (z *zipArchive) Names() []string {
	names := make([]string, 0, len(z.reader.File))
	for _, f := range z.reader.File {
		names = append(names, f.Name)
	}
	return names
}

func (z *zipArchive) Read(name string) ([]byte, error) {
	for _, f := range z.reader.File {
		if f.Name != name {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return nil, err
		}
		defer rc.Close()
		return io.ReadAll(rc)
	}
	return nil, fmt.Errorf("entry %q not found", name)
}

// rarArchive is decoded eagerly: rar can only be read front to back.
type rarArchive struct {
	names    []string
	contents map[string][]byte
}

func openRar(data []byte) (*rarArchive, error) {
	r, err := rardecode.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}

	arc := &rarArchive{contents: make(map[string][]byte)}
	for {
		hdr, err := r.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		arc.names = append(arc.names, hdr.Name)
		if hdr.IsDir {
			continue
		}
		content, err := io.ReadAll(r)
		if err != nil {
			return nil, fmt.Errorf("failed to decompress %q: %w", hdr.Name, err)
		}
		arc.contents[hdr.Name] = content
	}
	return arc, nil
}

func (a *rarArchive) Names() []string {
	return a.names
}

func (a *rarArchive) Read(name string) ([]byte, error) {
	content, ok := a.contents[name]
	if !ok {
		return nil, fmt.Errorf("entry %q not found", name)
	}
	return content, nil
}
