package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/defi-staking/gateway/internal/models"
	"go.uber.org/zap"
)

// FileStore keeps the session record in a single JSON document on disk.
type FileStore struct {
	path string
	log  *zap.Logger
	now  func() time.Time
}

func NewFileStore(path string, log *zap.Logger) *FileStore {
	return &FileStore{path: path, log: log, now: time.Now}
}

func (s *FileStore) Save(_ context.Context, user models.AuthSession, walletType string) error {
	rec := Record{
		User:       user,
		Timestamp:  s.now().UnixMilli(),
		WalletType: walletType,
	}
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal session record: %w", err)
	}

	// Write-then-rename so a crash mid-save cannot leave a truncated record.
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("write session record: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("commit session record: %w", err)
	}
	return nil
}

func (s *FileStore) Load(ctx context.Context) (*Record, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read session record: %w", err)
	}

	var rec Record
	if err := json.Unmarshal(data, &rec); err != nil || !rec.valid() {
		// Fail closed: malformed records are deleted, never partially trusted.
		s.log.Warn("discarding malformed session record", zap.String("path", s.path))
		_ = s.Clear(ctx)
		return nil, nil
	}
	return &rec, nil
}

func (s *FileStore) Clear(_ context.Context) error {
	err := os.Remove(s.path)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("clear session record: %w", err)
	}
	return nil
}

// DefaultPath resolves the record location under the user config dir when the
// configured path is not absolute.
func DefaultPath(name string) string {
	if filepath.IsAbs(name) {
		return name
	}
	dir, err := os.UserConfigDir()
	if err != nil {
		return name
	}
	return filepath.Join(dir, "defi-staking", name)
}
