// Package records streams pre-parsed traffic records from a text source.
package records

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"math"
	"os"
	"strings"

	"golang.org/x/time/rate"

	"github.com/haukened/rr-inspect/internal/inspect/common/clock"
	"github.com/haukened/rr-inspect/internal/inspect/common/log"
	"github.com/haukened/rr-inspect/internal/inspect/common/utils"
	"github.com/haukened/rr-inspect/internal/inspect/domain"
)

// Options configures a Reader. Every field is optional.
type Options struct {
	Clock  clock.Clock
	Logger log.Logger
	// Limiter throttles record emission; nil emits as fast as fn accepts.
	Limiter *rate.Limiter
}

// Stats summarizes one pass over a source.
type Stats struct {
	Lines   int // lines read, including blanks and comments
	Records int // records handed to the callback
	Skipped int // malformed lines
}

// Reader turns "address,domain[,...]" lines into records.
type Reader struct {
	clock   clock.Clock
	logger  log.Logger
	limiter *rate.Limiter
}

// NewReader returns a Reader.
func NewReader(opts Options) *Reader {
	if opts.Clock == nil {
		opts.Clock = clock.RealClock{}
	}
	if opts.Logger == nil {
		opts.Logger = log.GetLogger()
	}
	return &Reader{clock: opts.Clock, logger: opts.Logger, limiter: opts.Limiter}
}

// NewLimiter returns a limiter allowing perSecond records per second, or nil
// when perSecond <= 0.
func NewLimiter(perSecond float64) *rate.Limiter {
	if perSecond <= 0 {
		return nil
	}
	burst := int(math.Max(1, math.Ceil(perSecond)))
	return rate.NewLimiter(rate.Limit(perSecond), burst)
}

// Each reads src line by line and calls fn for every valid record.
// Blank lines and lines starting with '#' are ignored. Lines with fewer than
// two comma-separated fields, or an empty address or domain, are logged as
// warnings and skipped. Extra fields are ignored. Domains are canonicalised.
//
// Each stops at the first error from fn, from reading src, or from ctx.
func (r *Reader) Each(ctx context.Context, src io.Reader, name string, fn func(domain.Record) error) (Stats, error) {
	var st Stats
	scanner := bufio.NewScanner(src)

	for scanner.Scan() {
		st.Lines++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		parts := strings.Split(line, ",")
		if len(parts) < 2 {
			st.Skipped++
			r.logger.Warn(map[string]any{"source": name, "line": st.Lines, "text": line}, "Skipping invalid record format")
			continue
		}
		addr := strings.TrimSpace(parts[0])
		host := utils.CanonicalDomain(parts[1])
		if addr == "" || host == "" {
			st.Skipped++
			r.logger.Warn(map[string]any{"source": name, "line": st.Lines, "text": line}, "Skipping record with empty field")
			continue
		}

		if r.limiter != nil {
			if err := r.limiter.Wait(ctx); err != nil {
				return st, err
			}
		} else if err := ctx.Err(); err != nil {
			return st, err
		}

		if err := fn(domain.NewRecord(addr, host, r.clock.Now())); err != nil {
			return st, err
		}
		st.Records++
	}

	if err := scanner.Err(); err != nil {
		return st, fmt.Errorf("error reading records from %s: %w", name, err)
	}
	return st, nil
}

// EachFile opens path and streams its records through fn.
func (r *Reader) EachFile(ctx context.Context, path string, fn func(domain.Record) error) (Stats, error) {
	f, err := os.Open(path)
	if err != nil {
		return Stats{}, fmt.Errorf("failed to open records file: %w", err)
	}
	defer f.Close()
	return r.Each(ctx, f, path, fn)
}
