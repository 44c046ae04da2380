package profile

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/medvault/medvault/internal/extraction"
)

// Reconcile recomputes the profile from the user's accepted extractions.
// It runs after a document is accepted and after one is deleted; removed is
// the payload of the record that just left the accepted set, or nil when
// nothing was removed.
//
// Medicines from accepted records are unioned most-recent-first with
// case-insensitive dedup into medications_current. For each free-text field
// the most recent non-empty value wins. When no candidate remains for a
// field, the current value is cleared only if it was sourced from the
// removed record; user-entered values survive.
func (s *Service) Reconcile(ctx context.Context, userID string, removed *extraction.Payload) error {
	records, err := s.records.ListAccepted(ctx, userID)
	if err != nil {
		return err
	}

	// Most recent first; nil timestamps sort as the distant past.
	sort.SliceStable(records, func(i, j int) bool {
		ai, aj := tsOrMin(records[i].AcceptedAt), tsOrMin(records[j].AcceptedAt)
		if !ai.Equal(aj) {
			return ai.After(aj)
		}
		return tsOrMin(records[i].ExtractionDate).After(tsOrMin(records[j].ExtractionDate))
	})

	var medsUnion []string
	seen := map[string]bool{}
	candidates := map[string]string{}

	for _, rec := range records {
		if rec.Payload == nil {
			continue
		}
		for _, m := range rec.Payload.Medicines {
			mm := strings.TrimSpace(m)
			if mm == "" {
				continue
			}
			key := strings.ToLower(mm)
			if !seen[key] {
				seen[key] = true
				medsUnion = append(medsUnion, mm)
			}
		}
		for _, fname := range extraction.ProfileFieldNames {
			if _, ok := candidates[fname]; ok {
				continue
			}
			if v := strings.TrimSpace(rec.Payload.ProfileField(fname)); v != "" {
				candidates[fname] = v
			}
		}
	}

	// Recompute only updates an existing profile. Creation stays with the
	// profile CRUD; without a row there is nothing to merge into or clear.
	p, err := s.repo.GetByUserID(ctx, userID)
	if err == ErrNotFound {
		return nil
	}
	if err != nil {
		return err
	}

	if len(medsUnion) > 0 {
		p.SetField("medications_current", strings.Join(medsUnion, ", "))
	} else if removed != nil {
		// Clear only when the summary came from the removed record.
		prevSummary := removed.MedicineSummary()
		cur := strings.TrimSpace(p.Field("medications_current"))
		if prevSummary != "" && cur != "" && cur == prevSummary {
			p.SetField("medications_current", "")
		}
	}

	for _, fname := range extraction.ProfileFieldNames {
		if cand, ok := candidates[fname]; ok {
			p.SetField(fname, cand)
			continue
		}
		if removed == nil {
			continue
		}
		prev := strings.TrimSpace(removed.ProfileField(fname))
		cur := strings.TrimSpace(p.Field(fname))
		if prev != "" && cur != "" && cur == prev {
			p.SetField(fname, "")
		}
	}

	return s.repo.Update(ctx, p)
}

func tsOrMin(t *time.Time) time.Time {
	if t == nil {
		return time.Time{}
	}
	return *t
}
