package chat

import (
	"strings"

	"github.com/medvault/medvault/internal/domain/profile"
)

const contextHeader = "User medical profile (use as context for answering; do not reveal private identifiers):"

// ProfileContext renders a profile into the retrieval context block prepended
// to the chat system prompt. Returns "" for a nil or empty profile.
func ProfileContext(p *profile.MedicalProfile) string {
	if p == nil {
		return ""
	}

	var parts []string
	add := func(label, value string) {
		if value != "" {
			parts = append(parts, label+": "+value)
		}
	}

	add("Present conditions", p.Field("present_conditions"))
	add("Diagnosed conditions", p.Field("diagnosed_conditions"))
	add("Medications (current)", p.Field("medications_current"))
	add("Medications (past)", p.Field("medications_past"))
	add("Allergies", p.Field("allergies"))
	add("Medical history", p.Field("medical_history"))
	add("Family history", p.Field("family_history"))
	add("Surgeries", p.Field("surgeries"))
	add("Immunizations", p.Field("immunizations"))
	add("Lifestyle factors", p.Field("lifestyle_factors"))

	if len(parts) == 0 {
		return ""
	}
	return contextHeader + "\n" + strings.Join(parts, "\n")
}
