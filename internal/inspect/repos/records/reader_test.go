package records

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/haukened/rr-inspect/internal/inspect/common/clock"
	"github.com/haukened/rr-inspect/internal/inspect/domain"
)

type warnLogger struct{ warns []map[string]any }

func (l *warnLogger) Info(map[string]any, string)  {}
func (l *warnLogger) Error(map[string]any, string) {}
func (l *warnLogger) Debug(map[string]any, string) {}
func (l *warnLogger) Panic(map[string]any, string) {}
func (l *warnLogger) Fatal(map[string]any, string) {}
func (l *warnLogger) Warn(f map[string]any, _ string) {
	l.warns = append(l.warns, f)
}

func collect(t *testing.T, r *Reader, input string) ([]domain.Record, Stats) {
	t.Helper()
	var out []domain.Record
	st, err := r.Each(context.Background(), strings.NewReader(input), "test", func(rec domain.Record) error {
		out = append(out, rec)
		return nil
	})
	require.NoError(t, err)
	return out, st
}

func TestEach_Grammar(t *testing.T) {
	at := time.Date(2025, 8, 1, 12, 0, 0, 0, time.UTC)
	logger := &warnLogger{}
	r := NewReader(Options{Clock: &clock.MockClock{CurrentTime: at}, Logger: logger})

	input := strings.Join([]string{
		"# source,domain",
		"10.0.0.1,good.com",
		"",
		" 2.2.2.2 , Evil.COM. , extra, fields",
		"not-a-record",
		"3.3.3.3,",
		",ok.com",
		"4.4.4.4,mybank.net",
	}, "\n")

	got, st := collect(t, r, input)

	want := []domain.Record{
		domain.NewRecord("10.0.0.1", "good.com", at),
		domain.NewRecord("2.2.2.2", "evil.com", at),
		domain.NewRecord("4.4.4.4", "mybank.net", at),
	}
	assert.Equal(t, want, got)
	assert.Equal(t, domain.PriorityHigh, got[2].Priority)
	assert.Equal(t, Stats{Lines: 8, Records: 3, Skipped: 3}, st)

	require.Len(t, logger.warns, 3)
	assert.Equal(t, 5, logger.warns[0]["line"])
	assert.Equal(t, "test", logger.warns[0]["source"])
}

func TestEach_PriorityFollowsCanonicalDomain(t *testing.T) {
	r := NewReader(Options{Clock: &clock.MockClock{}, Logger: &warnLogger{}})

	got, _ := collect(t, r, "1.1.1.1,IRS.GOV\n5.5.5.5,Example.COM.\n6.6.6.6,Intranet.LOCAL\n")
	require.Len(t, got, 3)

	assert.Equal(t, "irs.gov", got[0].Domain)
	assert.Equal(t, domain.PriorityHigh, got[0].Priority)
	assert.Equal(t, "example.com", got[1].Domain)
	assert.Equal(t, domain.PriorityMedium, got[1].Priority)
	assert.Equal(t, "intranet.local", got[2].Domain)
	assert.Equal(t, domain.PriorityLow, got[2].Priority)
}

func TestEach_CallbackErrorStops(t *testing.T) {
	r := NewReader(Options{Logger: &warnLogger{}})
	stop := errors.New("stop")
	calls := 0

	st, err := r.Each(context.Background(), strings.NewReader("1.1.1.1,a.com\n2.2.2.2,b.com\n"), "test", func(domain.Record) error {
		calls++
		return stop
	})
	assert.ErrorIs(t, err, stop)
	assert.Equal(t, 1, calls)
	assert.Equal(t, 0, st.Records)
}

func TestEach_ContextCancelled(t *testing.T) {
	r := NewReader(Options{Logger: &warnLogger{}})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := r.Each(ctx, strings.NewReader("1.1.1.1,a.com\n"), "test", func(domain.Record) error {
		t.Fatal("callback must not run after cancellation")
		return nil
	})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestEach_Limiter(t *testing.T) {
	assert.Nil(t, NewLimiter(0))
	assert.Nil(t, NewLimiter(-3))

	lim := NewLimiter(1000)
	require.NotNil(t, lim)
	assert.Equal(t, 1000, lim.Burst())

	r := NewReader(Options{Logger: &warnLogger{}, Limiter: NewLimiter(0.5)})
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	calls := 0
	_, err := r.Each(ctx, strings.NewReader("1.1.1.1,a.com\n2.2.2.2,b.com\n"), "test", func(domain.Record) error {
		calls++
		return nil
	})
	require.Error(t, err, "second record must wait far beyond the deadline")
	assert.Equal(t, 1, calls)
}

func TestEachFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "packets.txt")
	require.NoError(t, os.WriteFile(path, []byte("1.1.1.1,a.com\n"), 0o600))

	r := NewReader(Options{Logger: &warnLogger{}})
	n := 0
	st, err := r.EachFile(context.Background(), path, func(domain.Record) error { n++; return nil })
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, 1, st.Records)

	_, err = r.EachFile(context.Background(), filepath.Join(t.TempDir(), "nope.txt"), func(domain.Record) error { return nil })
	assert.ErrorIs(t, err, os.ErrNotExist)
}
