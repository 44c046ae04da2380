package extraction

import (
	"encoding/json"
	"errors"
	"reflect"
	"testing"
)

func TestNormalizeEmptyObject(t *testing.T) {
	p, err := Normalize(map[string]any{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.Medicines == nil || len(p.Medicines) != 0 {
		t.Errorf("expected empty medicines list, got %#v", p.Medicines)
	}
	if p.MedicationsDetails == nil || len(p.MedicationsDetails) != 0 {
		t.Errorf("expected empty medications_details list, got %#v", p.MedicationsDetails)
	}
	if p.Allergies != nil {
		t.Errorf("expected nil allergies, got %q", *p.Allergies)
	}
}

func TestNormalizeIdempotent(t *testing.T) {
	in := map[string]any{
		"medicines": []any{"Metformin", "Atorvastatin"},
		"medications_details": []any{
			map[string]any{"name": "Metformin", "dose": "500mg", "frequency": "twice daily"},
		},
		"allergies": "penicillin",
	}
	first, err := Normalize(in)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	second, err := Normalize(first)
	if err != nil {
		t.Fatalf("unexpected error on second pass: %v", err)
	}
	if !reflect.DeepEqual(first, second) {
		t.Errorf("normalize is not idempotent: %#v vs %#v", first, second)
	}
}

func TestNormalizeRejectsWrongShapes(t *testing.T) {
	cases := []struct {
		name string
		in   any
	}{
		{"non-object", "just a string"},
		{"medicines not a list", map[string]any{"medicines": "Metformin"}},
		{"medicine entry not a string", map[string]any{"medicines": []any{42}}},
		{"detail not an object", map[string]any{"medications_details": []any{"Metformin"}}},
		{"detail missing name", map[string]any{"medications_details": []any{map[string]any{"dose": "500mg"}}}},
		{"field not a string", map[string]any{"allergies": []any{"penicillin"}}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := Normalize(tc.in); !errors.Is(err, ErrInvalidPayload) {
				t.Errorf("expected ErrInvalidPayload, got %v", err)
			}
		})
	}
}

func TestNormalizeDropsNullFields(t *testing.T) {
	p, err := Normalize(map[string]any{
		"medicines":       nil,
		"allergies":       nil,
		"medical_history": "asthma as a child",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(p.Medicines) != 0 {
		t.Errorf("expected empty medicines, got %#v", p.Medicines)
	}
	if p.Allergies != nil {
		t.Errorf("expected nil allergies, got %q", *p.Allergies)
	}
	if p.MedicalHistory == nil || *p.MedicalHistory != "asthma as a child" {
		t.Errorf("unexpected medical_history: %v", p.MedicalHistory)
	}
}

func TestProfileField(t *testing.T) {
	al := "penicillin"
	p := &Payload{Allergies: &al}
	if got := p.ProfileField("allergies"); got != "penicillin" {
		t.Errorf("expected penicillin, got %q", got)
	}
	if got := p.ProfileField("surgeries"); got != "" {
		t.Errorf("expected empty surgeries, got %q", got)
	}
	if got := p.ProfileField("no_such_field"); got != "" {
		t.Errorf("expected empty for unknown field, got %q", got)
	}
}

func TestMedicineSummaryTrimsAndJoins(t *testing.T) {
	p := &Payload{Medicines: []string{" Metformin ", "", "Atorvastatin"}}
	if got := p.MedicineSummary(); got != "Metformin, Atorvastatin" {
		t.Errorf("unexpected summary: %q", got)
	}
}

func TestPayloadJSONRoundTrip(t *testing.T) {
	dose := "500mg"
	p := &Payload{
		Medicines:          []string{"Metformin"},
		MedicationsDetails: []MedicationDetail{{Name: "Metformin", Dose: &dose}},
	}
	raw, err := json.Marshal(p)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := m["medicines"]; !ok {
		t.Error("medicines missing from encoded payload")
	}
	if _, ok := m["allergies"]; ok {
		t.Error("unset allergies should be omitted from encoded payload")
	}
}
