package profile

import "context"

type Repository interface {
	GetByUserID(ctx context.Context, userID string) (*MedicalProfile, error)
	Create(ctx context.Context, p *MedicalProfile) error
	Update(ctx context.Context, p *MedicalProfile) error
}
