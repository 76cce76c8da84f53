package models

import "time"

// Check is the record of validating one candidate card number.
type Check struct {
	ID string `json:"id"`
	// Number is the candidate as given. Only kept in memory; stores and reports use Masked.
	Number    string    `json:"-"`
	Masked    string    `json:"masked"`
	Valid     bool      `json:"valid"`
	Reason    string    `json:"reason,omitempty"`
	Luhn      bool      `json:"luhn"`
	CheckedAt time.Time `json:"checked_at"`
}

// Verdict is the word printed for the check: "valid" or "invalid".
func (c Check) Verdict() string {
	if c.Valid {
		return "valid"
	}
	return "invalid"
}
