package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/Guilhem-Bonnet/anivideo-sync/internal/domain"
)

// Une seule ligne: les réglages de synchro.
const settingsKey = "sync"

type SettingsRepository struct {
	db *sql.DB
}

func NewSettingsRepository(db *sql.DB) *SettingsRepository {
	return &SettingsRepository{db: db}
}

// Get part des valeurs par défaut: un champ absent de la ligne stockée
// (réglage ajouté depuis) garde sa valeur par défaut.
func (r *SettingsRepository) Get(ctx context.Context) (domain.Settings, error) {
	s := domain.DefaultSettings()
	var b []byte
	err := r.db.QueryRowContext(ctx, `SELECT value_json FROM settings WHERE key = ?`, settingsKey).Scan(&b)
	if errors.Is(err, sql.ErrNoRows) {
		return s, nil
	}
	if err != nil {
		return domain.Settings{}, err
	}
	if err := json.Unmarshal(b, &s); err != nil {
		return domain.Settings{}, fmt.Errorf("decode settings: %w", err)
	}
	return s, nil
}

func (r *SettingsRepository) Put(ctx context.Context, settings domain.Settings) (domain.Settings, error) {
	b, err := json.Marshal(settings)
	if err != nil {
		return domain.Settings{}, err
	}
	_, err = r.db.ExecContext(ctx, `
		INSERT INTO settings(key, value_json, updated_at) VALUES(?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value_json = excluded.value_json, updated_at = excluded.updated_at
	`, settingsKey, b, formatTime(time.Now()))
	if err != nil {
		return domain.Settings{}, err
	}
	return r.Get(ctx)
}
