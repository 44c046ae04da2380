package profile

import (
	"time"

	"github.com/google/uuid"
)

// MedicalProfile is the per-user aggregate of health facts. Free-text fields
// are nil when nothing is known. MedicationsCurrent is a comma-joined summary
// maintained from accepted prescription documents.
type MedicalProfile struct {
	ID                  uuid.UUID `json:"id"`
	UserID              string    `json:"user_id"`
	PresentConditions   *string   `json:"present_conditions"`
	DiagnosedConditions *string   `json:"diagnosed_conditions"`
	MedicationsPast     *string   `json:"medications_past"`
	MedicationsCurrent  *string   `json:"medications_current"`
	Allergies           *string   `json:"allergies"`
	MedicalHistory      *string   `json:"medical_history"`
	FamilyHistory       *string   `json:"family_history"`
	Surgeries           *string   `json:"surgeries"`
	Immunizations       *string   `json:"immunizations"`
	LifestyleFactors    *string   `json:"lifestyle_factors"`
	CreatedAt           time.Time `json:"created_at"`
	UpdatedAt           time.Time `json:"updated_at"`
}

// field returns a pointer to the named free-text field so the reconciler can
// read and write fields generically.
func (p *MedicalProfile) field(name string) **string {
	switch name {
	case "present_conditions":
		return &p.PresentConditions
	case "diagnosed_conditions":
		return &p.DiagnosedConditions
	case "medications_past":
		return &p.MedicationsPast
	case "medications_current":
		return &p.MedicationsCurrent
	case "allergies":
		return &p.Allergies
	case "medical_history":
		return &p.MedicalHistory
	case "family_history":
		return &p.FamilyHistory
	case "surgeries":
		return &p.Surgeries
	case "immunizations":
		return &p.Immunizations
	case "lifestyle_factors":
		return &p.LifestyleFactors
	}
	return nil
}

// Field returns the named field's value, or "" when unset.
func (p *MedicalProfile) Field(name string) string {
	f := p.field(name)
	if f == nil || *f == nil {
		return ""
	}
	return **f
}

// SetField stores value in the named field; an empty value clears it.
func (p *MedicalProfile) SetField(name, value string) {
	f := p.field(name)
	if f == nil {
		return
	}
	if value == "" {
		*f = nil
		return
	}
	v := value
	*f = &v
}

// ProfileInput carries client-supplied profile fields for create and update.
type ProfileInput struct {
	PresentConditions   *string `json:"present_conditions"`
	DiagnosedConditions *string `json:"diagnosed_conditions"`
	MedicationsPast     *string `json:"medications_past"`
	MedicationsCurrent  *string `json:"medications_current"`
	Allergies           *string `json:"allergies"`
	MedicalHistory      *string `json:"medical_history"`
	FamilyHistory       *string `json:"family_history"`
	Surgeries           *string `json:"surgeries"`
	Immunizations       *string `json:"immunizations"`
	LifestyleFactors    *string `json:"lifestyle_factors"`
}

func (in *ProfileInput) apply(p *MedicalProfile) {
	set := func(name string, v *string) {
		if v != nil {
			p.SetField(name, *v)
		}
	}
	set("present_conditions", in.PresentConditions)
	set("diagnosed_conditions", in.DiagnosedConditions)
	set("medications_past", in.MedicationsPast)
	set("medications_current", in.MedicationsCurrent)
	set("allergies", in.Allergies)
	set("medical_history", in.MedicalHistory)
	set("family_history", in.FamilyHistory)
	set("surgeries", in.Surgeries)
	set("immunizations", in.Immunizations)
	set("lifestyle_factors", in.LifestyleFactors)
}
