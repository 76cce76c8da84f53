// Package cardformat checks the textual shape of a card number:
// four groups of four digits, optionally hyphen separated, starting with 4, 5 or 6.
//
// The repeated digit rule only looks at the run that starts the string.
// "4444-1234-5678-9012" fails, "4123-4444-5678-9012" passes.
package cardformat

import "errors"

const (
	groups     = 4
	groupLen   = 4
	separator  = '-'
	repeatRun  = 4
	minLeading = '4'
	maxLeading = '6'
)

var (
	ErrEmpty          = errors.New("card number is empty")
	ErrRepeatedDigits = errors.New("card number starts with four repeated digits")
	ErrLeadingDigit   = errors.New("card number must start with 4, 5 or 6")
	ErrCharacter      = errors.New("card number contains a character other than a digit or hyphen")
	ErrLength         = errors.New("card number must have 16 digits")
	ErrGrouping       = errors.New("card number hyphens must separate groups of four digits")
)

// Validate reports whether s is a well formed card number.
func Validate(s string) bool {
	return Check(s) == nil
}

// Check returns nil for a well formed card number, or the first rule s breaks.
func Check(s string) error {
	if s == "" {
		return ErrEmpty
	}
	if leadingRepeat(s) {
		return ErrRepeatedDigits
	}
	if s[0] < minLeading || s[0] > maxLeading {
		return ErrLeadingDigit
	}
	for i := 0; i < len(s); i++ {
		if !isDigit(s[i]) && s[i] != separator {
			return ErrCharacter
		}
	}

	pos := 0
	for g := 0; g < groups; g++ {
		if g > 0 && pos < len(s) && s[pos] == separator {
			pos++
		}
		for k := 0; k < groupLen; k++ {
			if pos >= len(s) {
				return ErrLength
			}
			if !isDigit(s[pos]) {
				return ErrGrouping
			}
			pos++
		}
	}
	if pos != len(s) {
		if digitCount(s) != groups*groupLen {
			return ErrLength
		}
		return ErrGrouping
	}
	return nil
}

// leadingRepeat reports whether s opens with the same digit four times,
// each repeat optionally preceded by one hyphen.
func leadingRepeat(s string) bool {
	if !isDigit(s[0]) {
		return false
	}
	d := s[0]
	pos := 1
	for n := 1; n < repeatRun; n++ {
		if pos < len(s) && s[pos] == separator {
			pos++
		}
		if pos >= len(s) || s[pos] != d {
			return false
		}
		pos++
	}
	return true
}

func digitCount(s string) int {
	n := 0
	for i := 0; i < len(s); i++ {
		if isDigit(s[i]) {
			n++
		}
	}
	return n
}

func isDigit(b byte) bool {
	return b >= '0' && b <= '9'
}
