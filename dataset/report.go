package dataset

import (
	"github.com/google/uuid"
)

// LoadReport summarizes one load for data-quality visibility.
// Loaded + Skipped + Filtered always equals Rows.
type LoadReport struct {
	BatchID   string                 `json:"batch_id"`
	Sources   []string               `json:"sources"`
	Rows      int                    `json:"rows"`
	Loaded    int                    `json:"loaded"`
	Skipped   int                    `json:"skipped"`
	Filtered  int                    `json:"filtered"`
	Unlocated int                    `json:"unlocated"`
	Reasons   map[SkipReason]int     `json:"reasons,omitempty"`
	Warnings  []RowValidationWarning `json:"warnings,omitempty"`

	maxWarnings int
}

func newReport(maxWarnings int) LoadReport {
	return LoadReport{
		BatchID:     uuid.NewString(),
		Reasons:     map[SkipReason]int{},
		maxWarnings: maxWarnings,
	}
}

func (r *LoadReport) skip(w RowValidationWarning) {
	r.Skipped++
	r.Reasons[w.Reason]++
	if len(r.Warnings) < r.maxWarnings {
		r.Warnings = append(r.Warnings, w)
	}
}

// Balanced reports whether every input row is accounted for.
func (r LoadReport) Balanced() bool {
	return r.Loaded+r.Skipped+r.Filtered == r.Rows
}
