package persistence

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"sync"

	"go.uber.org/zap"

	"gitorbit/internal/storage"
)

// Store reads and writes the app data file
type Store struct {
	fs     storage.FileSystem
	logger *zap.Logger
	newID  func() string

	mu   sync.Mutex
	path string
}

// Option configures a Store
type Option func(*Store)

// WithIDGenerator replaces the uuid generator used by migrations
func WithIDGenerator(fn func() string) Option {
	return func(s *Store) {
		s.newID = fn
	}
}

// NewStore creates a store for the app data file at path
func NewStore(fsys storage.FileSystem, path string, logger *zap.Logger, opts ...Option) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Store{
		fs:     fsys,
		path:   path,
		logger: logger,
		newID:  newUUID,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Path returns the file the store reads from
func (s *Store) Path() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.path
}

// Load reads the app data file. A missing file yields Default and found=false.
func (s *Store) Load() (data AppData, found bool, err error) {
	path := s.Path()

	raw, err := s.fs.LoadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			s.logger.Info("app data file not found, using defaults", zap.String("path", path))
			return Default(path), false, nil
		}
		return AppData{}, false, fmt.Errorf("failed to read %s: %w", path, err)
	}

	data, err = s.decode(raw, path)
	if err != nil {
		return AppData{}, true, s.quarantine(path, raw, err)
	}
	return data, true, nil
}

// quarantine keeps a copy of an unreadable file so the next save cannot destroy it
func (s *Store) quarantine(path string, raw []byte, cause error) error {
	backup := path + ".corrupt"
	if err := s.fs.SaveFile(backup, raw); err != nil {
		s.logger.Error("failed to keep a copy of the unreadable app data file", zap.String("path", backup), zap.Error(err))
		return cause
	}
	s.logger.Warn("kept a copy of the unreadable app data file", zap.String("path", backup))
	return fmt.Errorf("%w (a copy was saved to %s)", cause, backup)
}

func (s *Store) decode(raw []byte, path string) (AppData, error) {
	var doc document
	if err := json.Unmarshal(raw, &doc); err != nil {
		return AppData{}, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	if doc == nil {
		doc = document{}
	}

	from, err := migrate(doc, s.newID)
	if err != nil {
		return AppData{}, fmt.Errorf("failed to migrate %s: %w", path, err)
	}
	if from < CurrentVersion {
		s.logger.Info("migrated app data file",
			zap.String("path", path),
			zap.Int("from", from),
			zap.Int("to", CurrentVersion))
	} else if from > CurrentVersion {
		s.logger.Warn("app data file is newer than this build, unknown keys are ignored",
			zap.String("path", path),
			zap.Int("version", from))
	}

	migrated, err := json.Marshal(doc)
	if err != nil {
		return AppData{}, fmt.Errorf("failed to re-encode %s: %w", path, err)
	}

	// Settings missing from the file keep their defaults.
	data := Default(path)
	if err := json.Unmarshal(migrated, &data); err != nil {
		return AppData{}, fmt.Errorf("failed to decode %s: %w", path, err)
	}
	if data.Settings.AppDataPath == "" {
		data.Settings.AppDataPath = path
	}
	settings, reset := data.Settings.Repair(path)
	if len(reset) > 0 {
		s.logger.Warn("invalid settings in app data file were reset to defaults",
			zap.String("path", path),
			zap.Strings("reasons", reset))
		data.Settings = settings
	}
	if data.DiffViewType == "" {
		data.DiffViewType = Default(path).DiffViewType
	}
	return data, nil
}

// Save writes data to data.Settings.AppDataPath, falling back to the store path.
// The target becomes the path of later loads. Writes are serialized.
func (s *Store) Save(data AppData) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	target := data.Settings.AppDataPath
	if target == "" {
		target = s.path
	}
	data.Version = CurrentVersion

	encoded, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode app data: %w", err)
	}
	if err := s.fs.SaveFile(target, encoded); err != nil {
		return fmt.Errorf("failed to write %s: %w", target, err)
	}

	if target != s.path {
		s.logger.Info("app data file moved", zap.String("from", s.path), zap.String("to", target))
		s.path = target
	}
	s.logger.Debug("app data saved", zap.String("path", target), zap.Int("bytes", len(encoded)))
	return nil
}
