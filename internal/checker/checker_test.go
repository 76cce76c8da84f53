package checker_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/alovak/cardcheck/checks/models"
	"github.com/alovak/cardcheck/internal/checker"
	"github.com/stretchr/testify/require"
	"golang.org/x/exp/slog"
)

type recorderFunc func(ctx context.Context, check models.Check) error

func (f recorderFunc) Record(ctx context.Context, check models.Check) error { return f(ctx, check) }

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestRun_DefaultCandidates(t *testing.T) {
	var out bytes.Buffer
	c := checker.New(discardLogger(), &out)

	checks, err := c.Run(context.Background(), checker.DefaultCandidates())
	require.NoError(t, err)
	require.Len(t, checks, 4)

	want := "A123-4567-8901-2345 is invalid.\n" +
		"B111-2222-3333-4444 is invalid.\n" +
		"C999-8888-7777-6666 is invalid.\n" +
		"4567-1234-5678-9012 is valid.\n"
	require.Equal(t, want, out.String())
}

func TestRun_PreservesOrderAndRecords(t *testing.T) {
	var out bytes.Buffer
	var recorded []models.Check
	rec := recorderFunc(func(_ context.Context, check models.Check) error {
		recorded = append(recorded, check)
		return nil
	})
	now := time.Date(2026, time.October, 18, 9, 30, 0, 0, time.FixedZone("X", 3600))
	c := checker.New(discardLogger(), &out,
		checker.WithRecorder(rec),
		checker.WithClock(func() time.Time { return now }),
	)

	input := []string{"4123456789012345", "", "7123-4567-8901-2345"}
	checks, err := c.Run(context.Background(), input)
	require.NoError(t, err)
	require.Equal(t, checks, recorded)

	lines := strings.Split(strings.TrimSuffix(out.String(), "\n"), "\n")
	require.Equal(t, []string{
		"4123456789012345 is valid.",
		" is invalid.",
		"7123-4567-8901-2345 is invalid.",
	}, lines)

	require.True(t, checks[0].Valid)
	require.Empty(t, checks[0].Reason)
	require.Equal(t, "412345******2345", checks[0].Masked)
	require.Equal(t, now.UTC(), checks[0].CheckedAt)
	require.NotEmpty(t, checks[0].ID)
	require.NotEqual(t, checks[0].ID, checks[1].ID)

	require.False(t, checks[1].Valid)
	require.NotEmpty(t, checks[1].Reason)
	require.False(t, checks[2].Valid)
}

func TestRun_RecorderErrorStops(t *testing.T) {
	var out bytes.Buffer
	boom := errors.New("store down")
	calls := 0
	rec := recorderFunc(func(context.Context, models.Check) error {
		calls++
		return boom
	})
	c := checker.New(discardLogger(), &out, checker.WithRecorder(rec))

	checks, err := c.Run(context.Background(), checker.DefaultCandidates())
	require.ErrorIs(t, err, boom)
	require.Empty(t, checks)
	require.Equal(t, 1, calls)
	require.Equal(t, "A123-4567-8901-2345 is invalid.\n", out.String())
}

func TestRun_CancelledContext(t *testing.T) {
	var out bytes.Buffer
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	checks, err := checker.New(discardLogger(), &out).Run(ctx, checker.DefaultCandidates())
	require.ErrorIs(t, err, context.Canceled)
	require.Empty(t, checks)
	require.Empty(t, out.String())
}

func TestRun_JSONFormat(t *testing.T) {
	var out bytes.Buffer
	c := checker.New(discardLogger(), &out, checker.WithFormat(checker.FormatJSON))

	_, err := c.Run(context.Background(), checker.DefaultCandidates())
	require.NoError(t, err)

	dec := json.NewDecoder(&out)
	var got []map[string]any
	for dec.More() {
		var line map[string]any
		require.NoError(t, dec.Decode(&line))
		got = append(got, line)
	}
	require.Len(t, got, 4)
	require.Equal(t, "A123-4567-8901-2345", got[0]["card_number"])
	require.Equal(t, false, got[0]["valid"])
	require.NotEmpty(t, got[0]["reason"])
	require.Equal(t, "4567-1234-5678-9012", got[3]["card_number"])
	require.Equal(t, true, got[3]["valid"])
	require.Equal(t, true, got[3]["luhn"])
	_, hasReason := got[3]["reason"]
	require.False(t, hasReason)
}

func TestParseFormat(t *testing.T) {
	f, err := checker.ParseFormat("json")
	require.NoError(t, err)
	require.Equal(t, checker.FormatJSON, f)

	_, err = checker.ParseFormat("xml")
	require.Error(t, err)
}
