package domain

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// DueDate is a due date as sent by clients: either a calendar day
// ("2006-01-02", taken as midnight UTC) or an RFC 3339 timestamp. The
// zero value means no date; an empty string decodes to it.
type DueDate struct {
	time.Time
}

// ParseDueDate accepts a calendar day, an RFC 3339 timestamp or "".
func ParseDueDate(s string) (DueDate, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return DueDate{}, nil
	}
	if t, err := time.ParseInLocation(time.DateOnly, s, time.UTC); err == nil {
		return DueDate{t}, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return DueDate{}, fmt.Errorf("%w: due date %q is neither YYYY-MM-DD nor RFC 3339", ErrInvalid, s)
	}
	return DueDate{t}, nil
}

func (d *DueDate) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*d = DueDate{}
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("%w: due date must be a string", ErrInvalid)
	}
	parsed, err := ParseDueDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

func (d DueDate) MarshalJSON() ([]byte, error) {
	if d.IsZero() {
		return []byte("null"), nil
	}
	return d.Time.MarshalJSON()
}

// TimePtr returns nil for a nil or zero date.
func (d *DueDate) TimePtr() *time.Time {
	if d == nil || d.IsZero() {
		return nil
	}
	t := d.Time
	return &t
}
