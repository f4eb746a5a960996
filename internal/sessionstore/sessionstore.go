// Package sessionstore backs up, restores, and deletes a session's auth
// directory between the local filesystem (where the Browser Worker
// Interface reads and writes live device state) and the Object Store
// Adapter (durable, survives a worker process restart).
package sessionstore

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/felipe/wagateway/internal/logger"
	"github.com/felipe/wagateway/internal/objectstore"
)

// Service is the Session Storage Service.
type Service struct {
	baseDir string
	store *objectstore.Store
	logger *logger.ComponentLogger
}

func New(baseDir string, store *objectstore.Store) *Service {
	return &Service{baseDir: baseDir, store: store, logger: logger.ForComponent("sessionstore")}
}

// AuthDir returns the local filesystem path holding a session's device
// state, keyed by session id so distinct sessions never collide.
func (s *Service) AuthDir(sessionID string) string {
	return filepath.Join(s.baseDir, sessionID)
}

// Restore pulls a session's auth directory down from the object store
// before the Browser Worker Interface is constructed. Absence in the
// object store is not an error: it means first-time auth is required.
func (s *Service) Restore(ctx context.Context, sessionID string) error {
	if s.store == nil || !s.store.Enabled() {
		return nil
	}
	prefix := objectstore.Key(sessionID, "")
	keys, err := s.store.List(ctx, prefix)
	if err != nil {
		return fmt.Errorf("sessionstore restore list: %w", err)
	}
	if len(keys) == 0 {
		s.logger.Debug().Str("session_id", sessionID).Msg("no backup found, first-time auth required")
		return nil
	}

	authDir := s.AuthDir(sessionID)
	if err := os.MkdirAll(authDir, 0o700); err != nil {
		return fmt.Errorf("sessionstore restore mkdir: %w", err)
	}

	for _, key := range keys {
		data, err := s.store.Get(ctx, key)
		if err != nil {
			return fmt.Errorf("sessionstore restore get %s: %w", key, err)
		}
		rel := relativeKey(sessionID, key)
		dest := filepath.Join(authDir, rel)
		if err := os.MkdirAll(filepath.Dir(dest), 0o700); err != nil {
			return fmt.Errorf("sessionstore restore mkdir %s: %w", dest, err)
		}
		if err := os.WriteFile(dest, data, 0o600); err != nil {
			return fmt.Errorf("sessionstore restore write %s: %w", dest, err)
		}
	}

	s.logger.Info().Str("session_id", sessionID).Int("files", len(keys)).Msg("auth directory restored")
	return nil
}

// Backup uploads every file under a session's auth directory to the
// object store. Called asynchronously once a session authenticates;
// failures are logged and do not affect session status.
func (s *Service) Backup(ctx context.Context, sessionID string) error {
	if s.store == nil || !s.store.Enabled() {
		return nil
	}
	authDir := s.AuthDir(sessionID)
	entries, err := walkFiles(authDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("sessionstore backup walk: %w", err)
	}

	for _, rel := range entries {
		data, err := os.ReadFile(filepath.Join(authDir, rel))
		if err != nil {
			return fmt.Errorf("sessionstore backup read %s: %w", rel, err)
		}
		key := objectstore.Key(sessionID, rel)
		if err := s.store.Put(ctx, key, data); err != nil {
			return fmt.Errorf("sessionstore backup put %s: %w", key, err)
		}
	}

	s.logger.Info().Str("session_id", sessionID).Int("files", len(entries)).Msg("auth directory backed up")
	return nil
}

// Delete removes both the local auth directory and its object store
// mirror. Called when a session is explicitly disconnected by its user.
func (s *Service) Delete(ctx context.Context, sessionID string) error {
	authDir := s.AuthDir(sessionID)
	if err := os.RemoveAll(authDir); err != nil {
		return fmt.Errorf("sessionstore delete local: %w", err)
	}
	if s.store != nil && s.store.Enabled() {
		if err := s.store.DeletePrefix(ctx, objectstore.Key(sessionID, "")); err != nil {
			return fmt.Errorf("sessionstore delete remote: %w", err)
		}
	}
	s.logger.Info().Str("session_id", sessionID).Msg("auth directory deleted")
	return nil
}

func relativeKey(sessionID, key string) string {
	prefix := objectstore.Key(sessionID, "")
	rel := key
	if len(key) >= len(prefix) {
		rel = key[len(prefix):]
	}
	return rel
}

func walkFiles(root string) ([]string, error) {
	var files []string
	err := filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		files = append(files, rel)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return files, nil
}
