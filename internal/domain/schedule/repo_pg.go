package schedule

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/medvault/medvault/internal/platform/db"
)

type queryable interface {
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
}

type scheduleRepoPG struct{ pool *pgxpool.Pool }

func NewRepoPG(pool *pgxpool.Pool) Repository {
	return &scheduleRepoPG{pool: pool}
}

func (r *scheduleRepoPG) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	return r.pool
}

const entryCols = `id, user_id, document_id, name, dose, frequency, created_at`

func (r *scheduleRepoPG) Insert(ctx context.Context, e *Entry) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO schedule_entries (id, user_id, document_id, name, dose, frequency)
		VALUES ($1,$2,$3,$4,$5,$6)`,
		e.ID, e.UserID, e.DocumentID, e.Name, e.Dose, e.Frequency)
	return err
}

func (r *scheduleRepoPG) ListByUser(ctx context.Context, userID string) ([]Entry, error) {
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT `+entryCols+` FROM schedule_entries
		WHERE user_id = $1 ORDER BY created_at DESC, name`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	entries := []Entry{}
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.ID, &e.UserID, &e.DocumentID, &e.Name, &e.Dose, &e.Frequency, &e.CreatedAt); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func (r *scheduleRepoPG) DeleteByDocument(ctx context.Context, documentID uuid.UUID) error {
	_, err := r.conn(ctx).Exec(ctx,
		`DELETE FROM schedule_entries WHERE document_id = $1`, documentID)
	return err
}
