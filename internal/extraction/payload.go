// Package extraction defines the canonical shape of data extracted from a
// prescription document and the normalization rules that coerce arbitrary
// model output or user corrections into that shape.
package extraction

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidPayload is returned when input cannot be coerced into a Payload.
var ErrInvalidPayload = errors.New("invalid extraction payload")

// MedicationDetail is one structured medication entry.
type MedicationDetail struct {
	Name      string  `json:"name"`
	Dose      *string `json:"dose,omitempty"`
	Frequency *string `json:"frequency,omitempty"`
}

// Payload is the canonical extraction result. Medicines and
// MedicationsDetails are always present (possibly empty); every other field
// is an optional free-text string.
type Payload struct {
	Medicines           []string           `json:"medicines"`
	MedicationsDetails  []MedicationDetail `json:"medications_details"`
	AdditionalInfo      *string            `json:"additional_info,omitempty"`
	PresentConditions   *string            `json:"present_conditions,omitempty"`
	DiagnosedConditions *string            `json:"diagnosed_conditions,omitempty"`
	MedicationsPast     *string            `json:"medications_past,omitempty"`
	Allergies           *string            `json:"allergies,omitempty"`
	MedicalHistory      *string            `json:"medical_history,omitempty"`
	FamilyHistory       *string            `json:"family_history,omitempty"`
	Surgeries           *string            `json:"surgeries,omitempty"`
	Immunizations       *string            `json:"immunizations,omitempty"`
	LifestyleFactors    *string            `json:"lifestyle_factors,omitempty"`
}

// ProfileFieldNames lists the free-text fields a payload can contribute to a
// medical profile, in stable order.
var ProfileFieldNames = []string{
	"present_conditions",
	"diagnosed_conditions",
	"medications_past",
	"allergies",
	"medical_history",
	"family_history",
	"surgeries",
	"immunizations",
	"lifestyle_factors",
}

// ProfileField returns the value of the named profile field, or "" when the
// field is unset or unknown.
func (p *Payload) ProfileField(name string) string {
	if p == nil {
		return ""
	}
	var v *string
	switch name {
	case "present_conditions":
		v = p.PresentConditions
	case "diagnosed_conditions":
		v = p.DiagnosedConditions
	case "medications_past":
		v = p.MedicationsPast
	case "allergies":
		v = p.Allergies
	case "medical_history":
		v = p.MedicalHistory
	case "family_history":
		v = p.FamilyHistory
	case "surgeries":
		v = p.Surgeries
	case "immunizations":
		v = p.Immunizations
	case "lifestyle_factors":
		v = p.LifestyleFactors
	}
	if v == nil {
		return ""
	}
	return *v
}

// MedicineSummary joins the payload's trimmed medicine names with ", ",
// matching the format stored in a profile's medications_current field.
func (p *Payload) MedicineSummary() string {
	if p == nil {
		return ""
	}
	var meds []string
	for _, m := range p.Medicines {
		if mm := strings.TrimSpace(m); mm != "" {
			meds = append(meds, mm)
		}
	}
	return strings.Join(meds, ", ")
}

// Normalize coerces a decoded JSON value into a Payload. Missing medicines
// and medications_details become empty lists; optional string fields pass
// through unchanged. Input that is not an object, or whose fields have the
// wrong type, yields ErrInvalidPayload.
func Normalize(v any) (*Payload, error) {
	switch t := v.(type) {
	case *Payload:
		out := *t
		if out.Medicines == nil {
			out.Medicines = []string{}
		}
		if out.MedicationsDetails == nil {
			out.MedicationsDetails = []MedicationDetail{}
		}
		return &out, nil
	case map[string]any:
		return normalizeMap(t)
	default:
		return nil, fmt.Errorf("%w: expected object, got %T", ErrInvalidPayload, v)
	}
}

func normalizeMap(m map[string]any) (*Payload, error) {
	p := &Payload{
		Medicines:          []string{},
		MedicationsDetails: []MedicationDetail{},
	}

	if raw, ok := m["medicines"]; ok && raw != nil {
		list, ok := raw.([]any)
		if !ok {
			return nil, fmt.Errorf("%w: medicines must be a list", ErrInvalidPayload)
		}
		for _, item := range list {
			s, ok := item.(string)
			if !ok {
				return nil, fmt.Errorf("%w: medicines entries must be strings", ErrInvalidPayload)
			}
			p.Medicines = append(p.Medicines, s)
		}
	}

	if raw, ok := m["medications_details"]; ok && raw != nil {
		list, ok := raw.([]any)
		if !ok {
			return nil, fmt.Errorf("%w: medications_details must be a list", ErrInvalidPayload)
		}
		for _, item := range list {
			obj, ok := item.(map[string]any)
			if !ok {
				return nil, fmt.Errorf("%w: medications_details entries must be objects", ErrInvalidPayload)
			}
			d, err := normalizeDetail(obj)
			if err != nil {
				return nil, err
			}
			p.MedicationsDetails = append(p.MedicationsDetails, *d)
		}
	}

	assign := map[string]**string{
		"additional_info":      &p.AdditionalInfo,
		"present_conditions":   &p.PresentConditions,
		"diagnosed_conditions": &p.DiagnosedConditions,
		"medications_past":     &p.MedicationsPast,
		"allergies":            &p.Allergies,
		"medical_history":      &p.MedicalHistory,
		"family_history":       &p.FamilyHistory,
		"surgeries":            &p.Surgeries,
		"immunizations":        &p.Immunizations,
		"lifestyle_factors":    &p.LifestyleFactors,
	}
	for key, dst := range assign {
		raw, ok := m[key]
		if !ok || raw == nil {
			continue
		}
		s, ok := raw.(string)
		if !ok {
			return nil, fmt.Errorf("%w: %s must be a string", ErrInvalidPayload, key)
		}
		v := s
		*dst = &v
	}

	return p, nil
}

func normalizeDetail(obj map[string]any) (*MedicationDetail, error) {
	d := &MedicationDetail{}
	raw, ok := obj["name"]
	if !ok || raw == nil {
		return nil, fmt.Errorf("%w: medication detail missing name", ErrInvalidPayload)
	}
	name, ok := raw.(string)
	if !ok {
		return nil, fmt.Errorf("%w: medication detail name must be a string", ErrInvalidPayload)
	}
	d.Name = name

	for key, dst := range map[string]**string{"dose": &d.Dose, "frequency": &d.Frequency} {
		raw, ok := obj[key]
		if !ok || raw == nil {
			continue
		}
		s, ok := raw.(string)
		if !ok {
			return nil, fmt.Errorf("%w: medication detail %s must be a string", ErrInvalidPayload, key)
		}
		v := s
		*dst = &v
	}
	return d, nil
}
