// Package checker runs the card format validator over an ordered list of candidates,
// prints one line per candidate and hands every result to the configured recorders.
package checker

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/alovak/cardcheck/checks/models"
	"github.com/alovak/cardcheck/internal/cardformat"
	"github.com/alovak/cardcheck/internal/cardgen"
	"github.com/google/uuid"
	"golang.org/x/exp/slog"
)

type Format string

const (
	FormatText Format = "text"
	FormatJSON Format = "json"
)

// ParseFormat maps a flag value to a Format.
func ParseFormat(s string) (Format, error) {
	switch Format(s) {
	case FormatText, FormatJSON:
		return Format(s), nil
	default:
		return "", fmt.Errorf("unsupported format %q (want text or json)", s)
	}
}

// Recorder receives every check after its line has been written.
type Recorder interface {
	Record(ctx context.Context, check models.Check) error
}

// DefaultCandidates returns the built-in candidates in print order.
func DefaultCandidates() []string {
	return []string{
		"A123-4567-8901-2345",
		"B111-2222-3333-4444",
		"C999-8888-7777-6666",
		"4567-1234-5678-9012",
	}
}

type Checker struct {
	out       io.Writer
	format    Format
	recorders []Recorder
	logger    *slog.Logger
	now       func() time.Time
	newID     func() string
}

type Option func(*Checker)

func WithFormat(f Format) Option {
	return func(c *Checker) {
		if f != "" {
			c.format = f
		}
	}
}

// WithRecorder appends r to the recorders; nil is ignored.
func WithRecorder(r Recorder) Option {
	return func(c *Checker) {
		if r != nil {
			c.recorders = append(c.recorders, r)
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(c *Checker) {
		if now != nil {
			c.now = now
		}
	}
}

func New(logger *slog.Logger, out io.Writer, opts ...Option) *Checker {
	c := &Checker{
		out:    out,
		format: FormatText,
		logger: logger.With(slog.String("component", "checker")),
		now:    time.Now,
		newID:  func() string { return uuid.New().String() },
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Run validates candidates in order. It stops at the first write or record failure
// and returns the checks completed so far.
func (c *Checker) Run(ctx context.Context, candidates []string) ([]models.Check, error) {
	checks := make([]models.Check, 0, len(candidates))
	for _, number := range candidates {
		if err := ctx.Err(); err != nil {
			return checks, err
		}

		check := c.Check(number)
		if err := c.write(check); err != nil {
			return checks, fmt.Errorf("writing result: %w", err)
		}
		c.logger.Debug("card checked",
			slog.String("card", check.Masked),
			slog.Bool("valid", check.Valid),
			slog.String("reason", check.Reason),
		)

		for _, r := range c.recorders {
			if err := r.Record(ctx, check); err != nil {
				return checks, fmt.Errorf("recording check %s: %w", check.ID, err)
			}
		}
		checks = append(checks, check)
	}

	c.logger.Info("run finished", slog.Int("checked", len(checks)))
	return checks, nil
}

// Check validates a single number without printing or recording it.
func (c *Checker) Check(number string) models.Check {
	check := models.Check{
		ID:        c.newID(),
		Number:    number,
		Masked:    cardgen.MaskPAN(number),
		Luhn:      cardgen.LuhnValid(number),
		CheckedAt: c.now().UTC(),
	}
	if err := cardformat.Check(number); err != nil {
		check.Reason = err.Error()
	} else {
		check.Valid = true
	}
	return check
}

type jsonLine struct {
	ID         string    `json:"id"`
	CardNumber string    `json:"card_number"`
	Valid      bool      `json:"valid"`
	Reason     string    `json:"reason,omitempty"`
	Luhn       bool      `json:"luhn"`
	CheckedAt  time.Time `json:"checked_at"`
}

func (c *Checker) write(check models.Check) error {
	if c.format == FormatJSON {
		return json.NewEncoder(c.out).Encode(jsonLine{
			ID:         check.ID,
			CardNumber: check.Number,
			Valid:      check.Valid,
			Reason:     check.Reason,
			Luhn:       check.Luhn,
			CheckedAt:  check.CheckedAt,
		})
	}
	_, err := fmt.Fprintf(c.out, "%s is %s.\n", check.Number, check.Verdict())
	return err
}
