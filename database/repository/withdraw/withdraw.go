package withdraw

import (
	"context"
	"fmt"
	"time"

	"github.com/gofrs/uuid"
	"github.com/thrasher-corp/gctwithdraw/database"
	"github.com/thrasher-corp/gctwithdraw/log"
)

const (
	selectColumns = `id, run_id, exchange, coin, network, address, label, address_index, amount, fee, status, exchange_id, error_message, created_at`
	insertRecord  = `INSERT INTO withdrawal_records (` + selectColumns + `)
VALUES (:id, :run_id, :exchange, :coin, :network, :address, :label, :address_index, :amount, :fee, :status, :exchange_id, :error_message, :created_at)`
)

// New returns a repository bound to a connected database instance
func New(i *database.Instance) (*Repository, error) {
	db, err := i.GetSQL()
	if err != nil {
		return nil, err
	}
	return &Repository{db: db}, nil
}

// Event stores a new withdrawal attempt
func (r *Repository) Event(ctx context.Context, rec *Record) error {
	if rec == nil {
		return errNilRecord
	}
	if rec.RunID.IsNil() {
		return errRunIDRequired
	}
	if rec.ID.IsNil() {
		id, err := uuid.NewV4()
		if err != nil {
			return err
		}
		rec.ID = id
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("event transaction begin failed: %w", err)
	}
	if _, err = tx.NamedExecContext(ctx, insertRecord, rec); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			log.Errorf(log.DatabaseMgr, "Event transaction rollback failed: %v", rbErr)
		}
		return fmt.Errorf("event insert failed: %w", err)
	}
	return tx.Commit()
}

// GetByRunID returns every attempt for a batch run ordered by address index
func (r *Repository) GetByRunID(ctx context.Context, runID uuid.UUID) ([]Record, error) {
	if runID.IsNil() {
		return nil, errRunIDRequired
	}
	var resp []Record
	query := r.db.Rebind(`SELECT ` + selectColumns + ` FROM withdrawal_records WHERE run_id = ? ORDER BY address_index ASC, created_at ASC`)
	if err := r.db.SelectContext(ctx, &resp, query, runID); err != nil {
		return nil, err
	}
	return resp, nil
}

// GetRecent returns the latest attempts across all runs, newest first
func (r *Repository) GetRecent(ctx context.Context, limit int) ([]Record, error) {
	if limit <= 0 {
		return nil, errInvalidLimit
	}
	var resp []Record
	query := r.db.Rebind(`SELECT ` + selectColumns + ` FROM withdrawal_records ORDER BY created_at DESC LIMIT ?`)
	if err := r.db.SelectContext(ctx, &resp, query, limit); err != nil {
		return nil, err
	}
	return resp, nil
}
