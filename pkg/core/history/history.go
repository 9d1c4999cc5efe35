package history

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
)

const defaultHistoryFile = "history.json"

// Record is one subtitle saved next to a video.
type Record struct {
	VideoPath    string    `json:"videoPath"`
	SubtitlePath string    `json:"subtitlePath"`
	SubtitleID   string    `json:"subtitleId"`
	Label        string    `json:"label"`
	Language     string    `json:"language"`
	Score        int       `json:"score"`
	Matches      []string  `json:"matches,omitempty"`
	SavedAt      time.Time `json:"savedAt"`
}

// Manager keeps the download history, newest first, persisted as JSON.
type Manager struct {
	records []Record
	lock    sync.RWMutex

	filePath string
	logger   *log.Logger
}

// NewManager creates the history stored under configDir and loads any
// existing state. A history that cannot be read starts empty.
func NewManager(configDir string, logger *log.Logger) (*Manager, error) {
	if logger == nil {
		logger = log.StandardLogger()
	}
	if err := os.MkdirAll(configDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create config directory %s: %w", configDir, err)
	}

	m := &Manager{
		filePath: filepath.Join(configDir, defaultHistoryFile),
		logger:   logger,
	}
	if err := m.Load(); err != nil {
		m.logger.Warnf("Failed to load history from %s: %v. Starting with empty history.", m.filePath, err)
	}
	return m, nil
}

// FilePath returns where the history is persisted.
func (m *Manager) FilePath() string {
	return m.filePath
}

// Load replaces the in-memory history with the persisted one.
func (m *Manager) Load() error {
	m.lock.Lock()
	defer m.lock.Unlock()

	data, err := os.ReadFile(m.filePath)
	if err != nil {
		if os.IsNotExist(err) {
			m.logger.Debugf("History file %s does not exist, starting fresh.", m.filePath)
			m.records = nil
			return nil
		}
		return fmt.Errorf("failed to read history file %s: %w", m.filePath, err)
	}
	if len(data) == 0 {
		m.records = nil
		return nil
	}

	var loaded []Record
	if err := json.Unmarshal(data, &loaded); err != nil {
		return fmt.Errorf("failed to unmarshal history from %s: %w", m.filePath, err)
	}
	m.records = loaded
	m.logger.Debugf("History loaded from %s (%d items)", m.filePath, len(m.records))
	return nil
}

// save writes the history; the caller holds the lock.
func (m *Manager) save() error {
	data, err := json.MarshalIndent(m.records, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal history: %w", err)
	}
	if err := os.WriteFile(m.filePath, data, 0o644); err != nil {
		return fmt.Errorf("failed to write history file %s: %w", m.filePath, err)
	}
	return nil
}

// Add prepends a record and persists the history. A record for a video
// already in the history replaces the older one.
func (m *Manager) Add(rec Record) error {
	if rec.VideoPath == "" {
		return fmt.Errorf("history record without video path")
	}
	if rec.SavedAt.IsZero() {
		rec.SavedAt = time.Now()
	}

	m.lock.Lock()
	defer m.lock.Unlock()

	kept := make([]Record, 0, len(m.records)+1)
	kept = append(kept, rec)
	for _, existing := range m.records {
		if existing.VideoPath != rec.VideoPath {
			kept = append(kept, existing)
		}
	}
	m.records = kept
	m.logger.Debugf("Added %s to history (Total: %d)", rec.SubtitlePath, len(m.records))
	return m.save()
}

// Records returns a copy of the history, newest first.
func (m *Manager) Records() []Record {
	m.lock.RLock()
	defer m.lock.RUnlock()

	out := make([]Record, len(m.records))
	copy(out, m.records)
	return out
}

// Lookup returns the latest record for a video.
func (m *Manager) Lookup(videoPath string) (Record, bool) {
	m.lock.RLock()
	defer m.lock.RUnlock()

	for _, rec := range m.records {
		if rec.VideoPath == videoPath {
			return rec, true
		}
	}
	return Record{}, false
}

// Clear empties the history and persists the empty state.
func (m *Manager) Clear() error {
	m.lock.Lock()
	defer m.lock.Unlock()

	if len(m.records) == 0 {
		return nil
	}
	m.records = nil
	m.logger.Info("Cleared download history.")
	return m.save()
}
