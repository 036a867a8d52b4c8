package valueobject

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Competence is the billing period (month/year) an invoice represents,
// independent of its due date. Serialized as "MM/YYYY".
type Competence struct {
	month int
	year  int
}

// NewCompetence creates a Competence from month and year
func NewCompetence(month, year int) (Competence, error) {
	if month < 1 || month > 12 {
		return Competence{}, fmt.Errorf("invalid competence month: %d", month)
	}
	if year < 2000 || year > 2200 {
		return Competence{}, fmt.Errorf("invalid competence year: %d", year)
	}
	return Competence{month: month, year: year}, nil
}

// ParseCompetence parses the "MM/YYYY" wire format
func ParseCompetence(s string) (Competence, error) {
	parts := strings.Split(s, "/")
	if len(parts) != 2 || len(parts[0]) != 2 || len(parts[1]) != 4 {
		return Competence{}, fmt.Errorf("invalid competence %q: expected MM/YYYY", s)
	}
	month, err := strconv.Atoi(parts[0])
	if err != nil {
		return Competence{}, fmt.Errorf("invalid competence %q: expected MM/YYYY", s)
	}
	year, err := strconv.Atoi(parts[1])
	if err != nil {
		return Competence{}, fmt.Errorf("invalid competence %q: expected MM/YYYY", s)
	}
	return NewCompetence(month, year)
}

// CompetenceFromTime derives the competence of a point in time
func CompetenceFromTime(t time.Time) Competence {
	return Competence{month: int(t.Month()), year: t.Year()}
}

// Month returns the competence month (1-12)
func (c Competence) Month() int {
	return c.month
}

// Year returns the competence year
func (c Competence) Year() int {
	return c.year
}

// IsZero returns true for the zero competence
func (c Competence) IsZero() bool {
	return c.month == 0 && c.year == 0
}

// Equals returns true when both competences name the same billing period
func (c Competence) Equals(other Competence) bool {
	return c.month == other.month && c.year == other.year
}

// Before returns true when this competence precedes the other
func (c Competence) Before(other Competence) bool {
	if c.year != other.year {
		return c.year < other.year
	}
	return c.month < other.month
}

// Next returns the following billing period
func (c Competence) Next() Competence {
	if c.month == 12 {
		return Competence{month: 1, year: c.year + 1}
	}
	return Competence{month: c.month + 1, year: c.year}
}

// String returns the "MM/YYYY" representation
func (c Competence) String() string {
	return fmt.Sprintf("%02d/%04d", c.month, c.year)
}

// MarshalJSON implements json.Marshaler
func (c Competence) MarshalJSON() ([]byte, error) {
	return json.Marshal(c.String())
}

// UnmarshalJSON implements json.Unmarshaler
func (c *Competence) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("invalid competence JSON: %w", err)
	}
	parsed, err := ParseCompetence(s)
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

// Value implements driver.Valuer for database storage
func (c Competence) Value() (driver.Value, error) {
	return c.String(), nil
}

// Scan implements sql.Scanner for database retrieval
func (c *Competence) Scan(value any) error {
	if value == nil {
		*c = Competence{}
		return nil
	}

	var strVal string
	switch v := value.(type) {
	case string:
		strVal = v
	case []byte:
		strVal = string(v)
	default:
		return fmt.Errorf("cannot scan %T into Competence", value)
	}

	parsed, err := ParseCompetence(strVal)
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}
