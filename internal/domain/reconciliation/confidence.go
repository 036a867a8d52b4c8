package reconciliation

import "fmt"

// IdentificationMethod records how a transaction was linked to its payer.
// Method and confidence are independent signals: the method says how the
// link was made, the score says how sure the engine is. Both are persisted
// for audit display.
type IdentificationMethod string

const (
	MethodCNPJMatch      IdentificationMethod = "cnpj_match"
	MethodCPFMatch       IdentificationMethod = "cpf_match"
	MethodQSAMatch       IdentificationMethod = "qsa_match" // via a registered partner/shareholder
	MethodInvoiceMatch   IdentificationMethod = "invoice_match"
	MethodPatternLearned IdentificationMethod = "pattern_learned"
	MethodNone           IdentificationMethod = "none"
)

// IsValid checks if the identification method is valid
func (m IdentificationMethod) IsValid() bool {
	switch m {
	case MethodCNPJMatch, MethodCPFMatch, MethodQSAMatch, MethodInvoiceMatch, MethodPatternLearned, MethodNone:
		return true
	}
	return false
}

// String returns the string representation of the method
func (m IdentificationMethod) String() string {
	return string(m)
}

// ConfidenceLevel buckets a numeric confidence for review surfaces
type ConfidenceLevel string

const (
	ConfidenceHigh   ConfidenceLevel = "high"   // >= 90
	ConfidenceMedium ConfidenceLevel = "medium" // 70-89
	ConfidenceLow    ConfidenceLevel = "low"    // < 70
)

// LevelForScore buckets a 0-100 confidence score
func LevelForScore(score int) ConfidenceLevel {
	switch {
	case score >= 90:
		return ConfidenceHigh
	case score >= 70:
		return ConfidenceMedium
	default:
		return ConfidenceLow
	}
}

// Criteria weights for amount/date-based matches. An exact amount with
// date proximity reaches the high bucket on its own; a recognizable payer
// name tops it up.
const (
	weightExactAmount       = 60
	weightDateProximity     = 30
	weightNameInDescription = 10
)

// MatchCriteria are the boolean signals observed for a proposed match
type MatchCriteria struct {
	ExactAmount       bool `json:"exact_amount"`
	DateProximity     bool `json:"date_proximity"`
	NameInDescription bool `json:"name_in_description"`
}

// ScoreMatch computes the 0-100 confidence for a proposed match given its
// identification method and observed criteria.
//
// Identifier-backed methods (CNPJ, CPF, QSA, learned rule) carry a floor
// from the identifier itself and gain the rest from amount agreement;
// plain invoice matches are scored purely from the criteria weights.
func ScoreMatch(method IdentificationMethod, criteria MatchCriteria) int {
	switch method {
	case MethodCNPJMatch, MethodCPFMatch:
		if criteria.ExactAmount {
			return 95
		}
		return 80
	case MethodPatternLearned:
		if criteria.ExactAmount {
			return 90
		}
		return 75
	case MethodQSAMatch:
		if criteria.ExactAmount {
			return 85
		}
		return 70
	case MethodInvoiceMatch:
		score := 0
		if criteria.ExactAmount {
			score += weightExactAmount
		}
		if criteria.DateProximity {
			score += weightDateProximity
		}
		if criteria.NameInDescription {
			score += weightNameInDescription
		}
		return score
	default:
		return 0
	}
}

// Reasoning renders a short human-readable explanation of a score
func Reasoning(method IdentificationMethod, criteria MatchCriteria, score int) string {
	switch method {
	case MethodCNPJMatch:
		return fmt.Sprintf("payer CNPJ found in description (confidence %d)", score)
	case MethodCPFMatch:
		return fmt.Sprintf("payer CPF found in description (confidence %d)", score)
	case MethodQSAMatch:
		return fmt.Sprintf("registered partner name found in description (confidence %d)", score)
	case MethodPatternLearned:
		return fmt.Sprintf("description matches a learned rule (confidence %d)", score)
	case MethodInvoiceMatch:
		parts := ""
		if criteria.ExactAmount {
			parts += "exact amount"
		}
		if criteria.DateProximity {
			if parts != "" {
				parts += ", "
			}
			parts += "due date within window"
		}
		if criteria.NameInDescription {
			if parts != "" {
				parts += ", "
			}
			parts += "payer name in description"
		}
		if parts == "" {
			parts = "no supporting criteria"
		}
		return fmt.Sprintf("invoice match: %s (confidence %d)", parts, score)
	default:
		return "no identification"
	}
}
