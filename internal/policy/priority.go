// Package policy holds the business rules shared by prompt construction,
// decoding and task correction.
package policy

import (
	"fmt"

	"github.com/sells-group/crm-assist/internal/model"
)

// Lead score thresholds for the priority rubric.
const (
	HighScoreThreshold   = 80
	MediumScoreThreshold = 40
)

// Priority applies the rubric to the client's stored lead score.
func Priority(c model.Client) model.Priority {
	return PriorityForScore(c, c.LeadScore)
}

// PriorityForScore applies the rubric using score in place of the client's
// stored lead score:
//
//	high:   score >= 80, or a customer with upsell potential
//	medium: score 40-79, or an active lead
//	low:    everything else
func PriorityForScore(c model.Client, score int) model.Priority {
	switch {
	case score >= HighScoreThreshold:
		return model.PriorityHigh
	case c.Type == model.ClientTypeCustomer && c.UpsellPotential:
		return model.PriorityHigh
	case score >= MediumScoreThreshold:
		return model.PriorityMedium
	case c.Type == model.ClientTypeLead && c.IsActive():
		return model.PriorityMedium
	default:
		return model.PriorityLow
	}
}

// RubricText renders the rubric for inclusion in prompts.
func RubricText() string {
	return fmt.Sprintf(`Priority rules (apply exactly):
- "high": lead score >= %d, or the client is a customer with upsell potential
- "medium": lead score between %d and %d, or the client is an active lead
- "low": every other case`,
		HighScoreThreshold, MediumScoreThreshold, HighScoreThreshold-1)
}
