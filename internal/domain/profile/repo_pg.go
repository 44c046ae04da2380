package profile

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

type profileRepoPG struct{ pool *pgxpool.Pool }

func NewRepoPG(pool *pgxpool.Pool) Repository {
	return &profileRepoPG{pool: pool}
}

func (r *profileRepoPG) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	return r.pool
}

const profileCols = `id, user_id, present_conditions, diagnosed_conditions,
	medications_past, medications_current, allergies, medical_history,
	family_history, surgeries, immunizations, lifestyle_factors,
	created_at, updated_at`

func scanProfile(row pgx.Row) (*MedicalProfile, error) {
	var p MedicalProfile
	err := row.Scan(&p.ID, &p.UserID, &p.PresentConditions, &p.DiagnosedConditions,
		&p.MedicationsPast, &p.MedicationsCurrent, &p.Allergies, &p.MedicalHistory,
		&p.FamilyHistory, &p.Surgeries, &p.Immunizations, &p.LifestyleFactors,
		&p.CreatedAt, &p.UpdatedAt)
	return &p, err
}

func (r *profileRepoPG) GetByUserID(ctx context.Context, userID string) (*MedicalProfile, error) {
	p, err := scanProfile(r.conn(ctx).QueryRow(ctx,
		`SELECT `+profileCols+` FROM medical_profiles WHERE user_id = $1`, userID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return p, nil
}

func (r *profileRepoPG) Create(ctx context.Context, p *MedicalProfile) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO medical_profiles (id, user_id, present_conditions, diagnosed_conditions,
			medications_past, medications_current, allergies, medical_history,
			family_history, surgeries, immunizations, lifestyle_factors)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)`,
		p.ID, p.UserID, p.PresentConditions, p.DiagnosedConditions,
		p.MedicationsPast, p.MedicationsCurrent, p.Allergies, p.MedicalHistory,
		p.FamilyHistory, p.Surgeries, p.Immunizations, p.LifestyleFactors)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return ErrAlreadyExists
		}
		return err
	}
	return nil
}

func (r *profileRepoPG) Update(ctx context.Context, p *MedicalProfile) error {
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE medical_profiles SET present_conditions=$2, diagnosed_conditions=$3,
			medications_past=$4, medications_current=$5, allergies=$6, medical_history=$7,
			family_history=$8, surgeries=$9, immunizations=$10, lifestyle_factors=$11,
			updated_at=NOW()
		WHERE user_id = $1`,
		p.UserID, p.PresentConditions, p.DiagnosedConditions,
		p.MedicationsPast, p.MedicationsCurrent, p.Allergies, p.MedicalHistory,
		p.FamilyHistory, p.Surgeries, p.Immunizations, p.LifestyleFactors)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
