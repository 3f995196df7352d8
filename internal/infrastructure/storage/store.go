package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// File and directory permission modes for checkpoint files.
const (
	dirPermissions  = 0750
	filePermissions = 0600
)

// defaultSaveDelay is the debounce window used when Config.SaveDelay is zero.
const defaultSaveDelay = 10 * time.Second

// Sentinel errors for storage operations.
var (
	// ErrVersionMismatch is returned when a stored document's envelope
	// version differs from the configured version.
	ErrVersionMismatch = errors.New("storage: document version mismatch")
)

// Logger is the minimal logging interface used by this package.
// Satisfied by logging.Logger.
type Logger interface {
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// Config contains checkpoint store settings.
type Config struct {
	// Path is the filesystem path of the JSON document.
	Path string

	// Key identifies the document and is written into the envelope.
	Key string

	// Version is the envelope version this store reads and writes.
	Version int

	// SaveDelay is the debounce window for DelaySave. Defaults to 10s.
	SaveDelay time.Duration
}

// envelope wraps the stored document with identification and versioning.
type envelope struct {
	Version int             `json:"version"`
	Key     string          `json:"key"`
	Data    json.RawMessage `json:"data"`
}

// Store is a file-backed JSON checkpoint with debounced saves.
//
// Thread Safety:
//   - All methods are safe for concurrent use from multiple goroutines.
type Store struct {
	cfg Config

	mu      sync.Mutex
	timer   *time.Timer
	pending func() any

	logger   Logger
	loggerMu sync.RWMutex
}

// New creates a Store for the given configuration.
func New(cfg Config) *Store {
	if cfg.SaveDelay <= 0 {
		cfg.SaveDelay = defaultSaveDelay
	}
	return &Store{cfg: cfg}
}

// SetLogger sets a logger for debounced write failures.
// If not set, failures are silently dropped.
func (s *Store) SetLogger(logger Logger) {
	s.loggerMu.Lock()
	s.logger = logger
	s.loggerMu.Unlock()
}

// Load reads the stored document into v.
//
// Parameters:
//   - v: Destination for the unmarshalled document data
//
// Returns:
//   - bool: false if no document exists yet
//   - error: If the file cannot be read, parsed, or has a different version
func (s *Store) Load(v any) (bool, error) {
	raw, err := os.ReadFile(s.cfg.Path)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, fmt.Errorf("reading %s: %w", s.cfg.Path, err)
	}

	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return false, fmt.Errorf("parsing %s: %w", s.cfg.Path, err)
	}
	if env.Version != s.cfg.Version {
		return false, fmt.Errorf("%w: got %d, want %d", ErrVersionMismatch, env.Version, s.cfg.Version)
	}

	if err := json.Unmarshal(env.Data, v); err != nil {
		return false, fmt.Errorf("parsing %s data: %w", s.cfg.Path, err)
	}
	return true, nil
}

// Save writes data to the document immediately.
//
// The write is atomic: data is written to a temp file in the same directory
// and renamed over the target, so a crash mid-write leaves the previous
// checkpoint intact.
func (s *Store) Save(data any) error {
	raw, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("encoding document: %w", err)
	}

	env := envelope{
		Version: s.cfg.Version,
		Key:     s.cfg.Key,
		Data:    raw,
	}
	doc, err := json.MarshalIndent(env, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding envelope: %w", err)
	}

	dir := filepath.Dir(s.cfg.Path)
	if err := os.MkdirAll(dir, dirPermissions); err != nil {
		return fmt.Errorf("creating storage directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(s.cfg.Path)+".tmp*")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(doc); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("writing temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("closing temp file: %w", err)
	}
	if err := os.Chmod(tmpPath, filePermissions); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("setting file permissions: %w", err)
	}
	if err := os.Rename(tmpPath, s.cfg.Path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("renaming temp file: %w", err)
	}

	return nil
}

// DelaySave schedules a debounced write of data() after the save delay.
//
// Each call cancels any pending write and restarts the countdown, so a
// burst of calls produces a single write. The callback is invoked when the
// timer fires, immediately before the write, so the document reflects the
// state at flush time rather than schedule time. Write failures are logged,
// never returned.
func (s *Store) DelaySave(data func() any) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.pending = data
	if s.timer != nil {
		s.timer.Stop()
	}
	s.timer = time.AfterFunc(s.cfg.SaveDelay, s.flushPending)
}

// flushPending writes the pending document, if any.
func (s *Store) flushPending() {
	s.mu.Lock()
	data := s.pending
	s.pending = nil
	s.timer = nil
	s.mu.Unlock()

	if data == nil {
		return
	}
	if err := s.Save(data()); err != nil {
		s.logWriteError(err)
	}
}

// Flush writes any pending document immediately and cancels the timer.
// Call during shutdown so the final state is not lost to the debounce window.
func (s *Store) Flush() error {
	s.mu.Lock()
	data := s.pending
	s.pending = nil
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	s.mu.Unlock()

	if data == nil {
		return nil
	}
	return s.Save(data())
}

// HasPending reports whether a debounced write is scheduled.
func (s *Store) HasPending() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pending != nil
}

// Path returns the filesystem path of the document.
func (s *Store) Path() string {
	return s.cfg.Path
}

// logWriteError logs a debounced write failure if a logger is set.
func (s *Store) logWriteError(err error) {
	s.loggerMu.RLock()
	logger := s.logger
	s.loggerMu.RUnlock()

	if logger != nil {
		logger.Error("checkpoint write failed", "path", s.cfg.Path, "error", err)
	}
}
