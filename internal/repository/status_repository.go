package repository

import (
	"context"
	"database/sql"

	"github.com/iliyamo/group-travel-bidding/internal/model"
)

// StatusRepo reads the statuses table.
type StatusRepo struct {
	db *sql.DB
}

// NewStatusRepo returns a new StatusRepo bound to the given database.
func NewStatusRepo(db *sql.DB) *StatusRepo { return &StatusRepo{db: db} }

// List returns every status row ordered by id.
func (r *StatusRepo) List(ctx context.Context) ([]model.StatusEntry, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id, code, name FROM statuses ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.StatusEntry
	for rows.Next() {
		var e model.StatusEntry
		var code string
		if err := rows.Scan(&e.ID, &code, &e.Name); err != nil {
			return nil, err
		}
		e.Code = model.StatusCode(code)
		out = append(out, e)
	}
	return out, rows.Err()
}

// LoadCatalog builds the StatusCatalog used for the lifetime of the process.
func (r *StatusRepo) LoadCatalog(ctx context.Context) (*model.StatusCatalog, error) {
	entries, err := r.List(ctx)
	if err != nil {
		return nil, err
	}
	return model.NewStatusCatalog(entries), nil
}
