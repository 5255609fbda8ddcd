package validation

import (
	"errors"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/example/couture/internal/models"
)

// DateLayout is the accepted format for calendar dates.
const DateLayout = "2006-01-02"

var emailPattern = regexp.MustCompile(`^[a-zA-Z0-9][a-zA-Z0-9._%+-]*[a-zA-Z0-9]@[a-zA-Z0-9][a-zA-Z0-9.-]*[a-zA-Z0-9]\.[a-zA-Z]{2,}$`)

var nonDigits = regexp.MustCompile(`\D`)

// Phone numbers are accepted with these digit counts once separators are removed.
var phoneDigitCounts = map[int]bool{10: true, 11: true, 13: true, 14: true}

const passwordSpecials = "!@#$%^&*()-_+=[]{}|;:,.<>?/~`"

// Required fails when the trimmed value is empty.
func Required(value, message string) Rule {
	return func() error {
		if strings.TrimSpace(value) == "" {
			return errors.New(message)
		}
		return nil
	}
}

// Email checks an address against a conservative pattern: no leading or
// trailing special characters, a single @, a dotted domain and a TLD of at
// least two letters.
func Email(value string) error {
	if !emailPattern.MatchString(strings.TrimSpace(value)) {
		return errors.New("Enter a valid email address.")
	}
	return nil
}

// NormalizePhone strips every non-digit and checks the digit count. A leading
// plus sign is kept.
func NormalizePhone(value string) (string, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return "", errors.New("Phone number is required.")
	}
	plus := strings.HasPrefix(value, "+")
	if strings.Count(value, "+") > 1 || (strings.Contains(value, "+") && !plus) {
		return "", errors.New("Enter a valid phone number.")
	}
	digits := nonDigits.ReplaceAllString(value, "")
	if !phoneDigitCounts[len(digits)] {
		return "", errors.New("Phone number must contain 10, 11, 13 or 14 digits.")
	}
	if plus {
		return "+" + digits, nil
	}
	return digits, nil
}

// Length checks the character count of the trimmed value.
func Length(value string, min, max int, label string) error {
	n := utf8.RuneCountInString(strings.TrimSpace(value))
	if n < min {
		return fmt.Errorf("%s must be at least %d characters long.", label, min)
	}
	if max > 0 && n > max {
		return fmt.Errorf("%s must be at most %d characters long.", label, max)
	}
	return nil
}

// OneOf checks a case-insensitive value against the allowed options and
// returns the canonical option.
func OneOf(value string, options []string) (string, error) {
	v := strings.ToLower(strings.TrimSpace(value))
	for _, opt := range options {
		if v == strings.ToLower(opt) {
			return opt, nil
		}
	}
	return "", fmt.Errorf("Select a valid choice. %q is not one of %s.", value, strings.Join(options, ", "))
}

// ParseDate parses a YYYY-MM-DD value in UTC.
func ParseDate(value string) (time.Time, error) {
	d, err := time.Parse(DateLayout, strings.TrimSpace(value))
	if err != nil {
		return time.Time{}, errors.New("Date has wrong format. Use YYYY-MM-DD.")
	}
	return d, nil
}

// DateWindow checks that date falls between today and today + maxDays,
// both inclusive. Only the calendar day of now is used.
func DateWindow(date, now time.Time, maxDays int) error {
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	day := time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, time.UTC)
	if day.Before(today) {
		return errors.New("Timeline cannot be in the past.")
	}
	if day.After(today.AddDate(0, 0, maxDays)) {
		return fmt.Errorf("Timeline cannot be more than %d days from today.", maxDays)
	}
	return nil
}

// Measurement parses a measurement value. An empty optional value yields nil.
func Measurement(value string, r models.MeasurementRange) (*float64, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		if r.Required {
			return nil, errors.New("This measurement is required.")
		}
		return nil, nil
	}
	f, err := strconv.ParseFloat(value, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return nil, errors.New("A valid number is required.")
	}
	if f <= 0 {
		return nil, errors.New("Ensure this value is greater than 0.")
	}
	if f < r.Min || f > r.Max {
		return nil, fmt.Errorf("Ensure this value is between %g and %g.", r.Min, r.Max)
	}
	return &f, nil
}

// Password checks the strength rules and reports every unmet rule.
func Password(value string) error {
	var msgs Messages
	if utf8.RuneCountInString(value) < 8 {
		msgs = append(msgs, "Password must be at least 8 characters long.")
	}
	var digit, lower, upper, special bool
	for _, r := range value {
		switch {
		case unicode.IsDigit(r):
			digit = true
		case unicode.IsLower(r):
			lower = true
		case unicode.IsUpper(r):
			upper = true
		case strings.ContainsRune(passwordSpecials, r):
			special = true
		}
	}
	if !digit {
		msgs = append(msgs, "Password must contain at least one digit.")
	}
	if !lower {
		msgs = append(msgs, "Password must contain at least one lowercase letter.")
	}
	if !upper {
		msgs = append(msgs, "Password must contain at least one uppercase letter.")
	}
	if !special {
		msgs = append(msgs, "Password must contain at least one special character ("+passwordSpecials+").")
	}
	if len(msgs) > 0 {
		return msgs
	}
	return nil
}

// TitleName trims a personal name and upper-cases the first letter of each word.
func TitleName(value string) string {
	words := strings.Fields(value)
	for i, w := range words {
		runes := []rune(strings.ToLower(w))
		runes[0] = unicode.ToUpper(runes[0])
		words[i] = string(runes)
	}
	return strings.Join(words, " ")
}
