package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/Guilhem-Bonnet/anivideo-sync/internal/domain"
)

// CatalogRepository est le backend SQLite du catalogue: un document JSON par
// série, clé = slug. L'ordre du catalogue est conservé via position.
type CatalogRepository struct {
	db *sql.DB
}

func NewCatalogRepository(db *sql.DB) *CatalogRepository {
	return &CatalogRepository{db: db}
}

func (r *CatalogRepository) Load(ctx context.Context) ([]domain.Show, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id, doc_json FROM catalog_shows ORDER BY position ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []domain.Show{}
	for rows.Next() {
		var id string
		var doc []byte
		if err := rows.Scan(&id, &doc); err != nil {
			return nil, err
		}
		var sh domain.Show
		if err := json.Unmarshal(doc, &sh); err != nil {
			return nil, fmt.Errorf("decode show %s: %w", id, err)
		}
		out = append(out, sh)
	}
	return out, rows.Err()
}

// Save remplace tout le catalogue dans une seule transaction.
func (r *CatalogRepository) Save(ctx context.Context, shows []domain.Show) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM catalog_shows`); err != nil {
		return err
	}
	now := formatTime(time.Now())
	for i, sh := range shows {
		doc, err := json.Marshal(sh)
		if err != nil {
			return fmt.Errorf("encode show %s: %w", sh.ID, err)
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO catalog_shows(id, position, doc_json, updated_at) VALUES(?, ?, ?, ?)
		`, sh.ID, i, doc, now); err != nil {
			return fmt.Errorf("insert show %s: %w", sh.ID, err)
		}
	}
	return tx.Commit()
}
