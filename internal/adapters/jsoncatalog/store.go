// Package jsoncatalog stocke le catalogue dans un document JSON unique
// (output.json), avec en option une copie par série dans un dossier miroir.
package jsoncatalog

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"time"

	"github.com/gofrs/flock"
	"github.com/rs/zerolog"

	"github.com/Guilhem-Bonnet/anivideo-sync/internal/domain"
)

const lockRetry = 50 * time.Millisecond

type Options struct {
	// MirrorDir reçoit <slug>.json pour chaque série. Vide = désactivé.
	MirrorDir string
}

type Store struct {
	logger zerolog.Logger
	path   string
	opts   Options
	lock   *flock.Flock
}

func New(logger zerolog.Logger, path string, opts Options) *Store {
	return &Store{
		logger: logger,
		path:   path,
		opts:   opts,
		lock:   flock.New(path + ".lock"),
	}
}

func (s *Store) Path() string { return s.path }

func (s *Store) Load(ctx context.Context) ([]domain.Show, error) {
	ok, err := s.lock.TryRLockContext(ctx, lockRetry)
	if err != nil {
		return nil, fmt.Errorf("lock catalog: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("lock catalog: %s busy", s.path)
	}
	defer func() { _ = s.lock.Unlock() }()

	b, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return []domain.Show{}, nil
		}
		return nil, fmt.Errorf("read catalog: %w", err)
	}
	if len(bytes.TrimSpace(b)) == 0 {
		return []domain.Show{}, nil
	}

	var shows []domain.Show
	if err := json.Unmarshal(b, &shows); err != nil {
		return nil, fmt.Errorf("decode catalog %s: %w", s.path, err)
	}
	return shows, nil
}

// Save écrit dans un fichier temporaire du même dossier puis renomme:
// un lecteur voit l'ancien ou le nouveau catalogue, jamais un mélange.
func (s *Store) Save(ctx context.Context, shows []domain.Show) error {
	b, err := encode(shows)
	if err != nil {
		return fmt.Errorf("encode catalog: %w", err)
	}

	ok, err := s.lock.TryLockContext(ctx, lockRetry)
	if err != nil {
		return fmt.Errorf("lock catalog: %w", err)
	}
	if !ok {
		return fmt.Errorf("lock catalog: %s busy", s.path)
	}
	defer func() { _ = s.lock.Unlock() }()

	if err := writeAtomic(s.path, b); err != nil {
		return err
	}
	s.logger.Info().Str("path", s.path).Int("shows", len(shows)).Msg("catalog saved")

	if s.opts.MirrorDir != "" {
		// Le miroir est secondaire: une erreur ici ne remet pas en cause la sauvegarde.
		if err := s.writeMirror(shows); err != nil {
			s.logger.Warn().Err(err).Str("dir", s.opts.MirrorDir).Msg("catalog mirror failed")
		}
	}
	return nil
}

func encode(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	// Les embeds sont du HTML: pas d'échappement <.
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func writeAtomic(path string, b []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create catalog dir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	cleanup := func() { _ = os.Remove(tmpName) }

	if _, err := tmp.Write(b); err != nil {
		_ = tmp.Close()
		cleanup()
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		cleanup()
		return fmt.Errorf("sync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		cleanup()
		return fmt.Errorf("replace catalog: %w", err)
	}
	return nil
}

var unsafeSlug = regexp.MustCompile(`[^a-zA-Z0-9._-]+`)

// MirrorName renvoie le nom de fichier miroir d'une série.
func MirrorName(id string) string {
	name := unsafeSlug.ReplaceAllString(id, "-")
	if name == "" || name == "." || name == ".." {
		name = "show"
	}
	return name + ".json"
}

func (s *Store) writeMirror(shows []domain.Show) error {
	var errs []error
	for _, sh := range shows {
		b, err := encode(sh)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", sh.ID, err))
			continue
		}
		if err := writeAtomic(filepath.Join(s.opts.MirrorDir, MirrorName(sh.ID)), b); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", sh.ID, err))
		}
	}
	return errors.Join(errs...)
}
