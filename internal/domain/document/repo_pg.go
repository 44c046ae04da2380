package document

import (
	"context"
	"errors"

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

type documentRepoPG struct{ pool *pgxpool.Pool }

func NewRepoPG(pool *pgxpool.Pool) Repository {
	return &documentRepoPG{pool: pool}
}

func (r *documentRepoPG) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	return r.pool
}

const documentCols = `id, user_id, storage_key, original_filename, content_type, size,
	status, accepted, retry_count, last_retry_at, upload_date`

func scanDocument(row pgx.Row) (*Document, error) {
	var d Document
	err := row.Scan(&d.ID, &d.UserID, &d.StorageKey, &d.OriginalFilename, &d.ContentType,
		&d.Size, &d.Status, &d.Accepted, &d.RetryCount, &d.LastRetryAt, &d.UploadDate)
	return &d, err
}

func (r *documentRepoPG) Insert(ctx context.Context, d *Document) error {
	if d.ID == uuid.Nil {
		d.ID = uuid.New()
	}
	return r.conn(ctx).QueryRow(ctx, `
		INSERT INTO documents (id, user_id, storage_key, original_filename, content_type,
			size, status, accepted, retry_count, last_retry_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
		RETURNING upload_date`,
		d.ID, d.UserID, d.StorageKey, d.OriginalFilename, d.ContentType,
		d.Size, d.Status, d.Accepted, d.RetryCount, d.LastRetryAt).Scan(&d.UploadDate)
}

func (r *documentRepoPG) GetByID(ctx context.Context, userID string, id uuid.UUID) (*Document, error) {
	d, err := scanDocument(r.conn(ctx).QueryRow(ctx,
		`SELECT `+documentCols+` FROM documents WHERE id = $1 AND user_id = $2`, id, userID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return d, nil
}

func (r *documentRepoPG) ListByUser(ctx context.Context, userID string, limit, offset int) ([]Document, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx,
		`SELECT COUNT(*) FROM documents WHERE user_id = $1`, userID).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := r.conn(ctx).Query(ctx, `
		SELECT `+documentCols+` FROM documents
		WHERE user_id = $1 ORDER BY upload_date DESC
		LIMIT $2 OFFSET $3`, userID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	docs := []Document{}
	for rows.Next() {
		d, err := scanDocument(rows)
		if err != nil {
			return nil, 0, err
		}
		docs = append(docs, *d)
	}
	return docs, total, rows.Err()
}

func (r *documentRepoPG) Update(ctx context.Context, d *Document) error {
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE documents SET status=$3, accepted=$4, retry_count=$5, last_retry_at=$6
		WHERE id = $1 AND user_id = $2`,
		d.ID, d.UserID, d.Status, d.Accepted, d.RetryCount, d.LastRetryAt)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *documentRepoPG) Delete(ctx context.Context, userID string, id uuid.UUID) error {
	tag, err := r.conn(ctx).Exec(ctx,
		`DELETE FROM documents WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

type recordRepoPG struct{ pool *pgxpool.Pool }

func NewRecordRepoPG(pool *pgxpool.Pool) RecordRepository {
	return &recordRepoPG{pool: pool}
}

func (r *recordRepoPG) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	return r.pool
}

const recordCols = `id, document_id, user_id, payload, boxes, llm_raw, annotated_key,
	accepted, accepted_at, extraction_date`

func scanRecord(row pgx.Row) (*ExtractionRecord, error) {
	var rec ExtractionRecord
	err := row.Scan(&rec.ID, &rec.DocumentID, &rec.UserID, &rec.Payload, &rec.Boxes,
		&rec.LLMRaw, &rec.AnnotatedKey, &rec.Accepted, &rec.AcceptedAt, &rec.ExtractionDate)
	return &rec, err
}

func (r *recordRepoPG) Insert(ctx context.Context, rec *ExtractionRecord) error {
	if rec.ID == uuid.Nil {
		rec.ID = uuid.New()
	}
	return r.conn(ctx).QueryRow(ctx, `
		INSERT INTO extraction_records (id, document_id, user_id, payload, boxes,
			llm_raw, annotated_key, accepted, accepted_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
		RETURNING extraction_date`,
		rec.ID, rec.DocumentID, rec.UserID, rec.Payload, rec.Boxes,
		rec.LLMRaw, rec.AnnotatedKey, rec.Accepted, rec.AcceptedAt).Scan(&rec.ExtractionDate)
}

func (r *recordRepoPG) GetByDocument(ctx context.Context, documentID uuid.UUID) (*ExtractionRecord, error) {
	rec, err := scanRecord(r.conn(ctx).QueryRow(ctx,
		`SELECT `+recordCols+` FROM extraction_records WHERE document_id = $1`, documentID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return rec, nil
}

func (r *recordRepoPG) Update(ctx context.Context, rec *ExtractionRecord) error {
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE extraction_records SET payload=$2, boxes=$3, llm_raw=$4, annotated_key=$5,
			accepted=$6, accepted_at=$7, extraction_date=$8
		WHERE id = $1`,
		rec.ID, rec.Payload, rec.Boxes, rec.LLMRaw, rec.AnnotatedKey,
		rec.Accepted, rec.AcceptedAt, rec.ExtractionDate)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *recordRepoPG) DeleteByDocument(ctx context.Context, documentID uuid.UUID) error {
	_, err := r.conn(ctx).Exec(ctx,
		`DELETE FROM extraction_records WHERE document_id = $1`, documentID)
	return err
}

func (r *recordRepoPG) ListAccepted(ctx context.Context, userID string) ([]ExtractionRecord, error) {
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT `+recordCols+` FROM extraction_records
		WHERE user_id = $1 AND accepted ORDER BY extraction_date`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	records := []ExtractionRecord{}
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, *rec)
	}
	return records, rows.Err()
}
