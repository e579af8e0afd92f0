// Package authority implements the decision authority: it owns the block
// rules and the per-source rate state, and turns a record into a Decision.
package authority

import (
	"errors"
	"fmt"
	"io"
	"os"
	"sync"
	"sync/atomic"

	"github.com/haukened/rr-inspect/internal/inspect/common/counter"
	"github.com/haukened/rr-inspect/internal/inspect/common/log"
	"github.com/haukened/rr-inspect/internal/inspect/domain"
	"github.com/haukened/rr-inspect/internal/inspect/repos/rules"
)

// DefaultRateLimit is the number of records a source may send before every
// further record from it is blocked.
const DefaultRateLimit = 5

// ErrRulesLoaded is returned when LoadRules is called a second time.
var ErrRulesLoaded = errors.New("rules already loaded")

// Options configures an Authority.
type Options struct {
	// RateLimit is the hit threshold; a post-increment count above it blocks.
	// Zero or negative selects DefaultRateLimit.
	RateLimit int64
	// Rules configures the lookup pipeline of the loaded rule set.
	Rules  rules.Options
	Logger log.Logger
}

// Authority decides block/forward for records. Rules are loaded once and
// read without locks afterwards; the rate state is a concurrent map of
// per-address atomic counters.
type Authority struct {
	limit  int64
	opts   rules.Options
	logger log.Logger

	loadMu sync.Mutex
	rules  atomic.Pointer[rules.RuleSet]
	hits   counter.Map
}

// New returns an Authority with no rules loaded.
func New(opts Options) *Authority {
	limit := opts.RateLimit
	if limit <= 0 {
		limit = DefaultRateLimit
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.NewNoopLogger()
	}
	return &Authority{limit: limit, opts: opts.Rules, logger: logger}
}

// LoadRules parses the rule source and installs the block sets. It must run
// once, before any Decide call; later calls return ErrRulesLoaded.
func (a *Authority) LoadRules(source io.Reader, name string) error {
	a.loadMu.Lock()
	defer a.loadMu.Unlock()

	if a.rules.Load() != nil {
		return ErrRulesLoaded
	}
	parsed, err := rules.Parse(source, name, a.logger)
	if err != nil {
		return fmt.Errorf("failed to read rules from %s: %w", name, err)
	}
	rs := rules.NewRuleSet(parsed, a.opts)
	a.rules.Store(rs)

	a.logger.Info(map[string]any{
		"source":    name,
		"rules":     rs.Len(),
		"addresses": len(rs.Addresses()),
		"domains":   len(rs.Domains()),
	}, "Rules loaded")
	return nil
}

// LoadRulesFile opens path and loads rules from it.
func (a *Authority) LoadRulesFile(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open rules file: %w", err)
	}
	defer f.Close()
	return a.LoadRules(f, path)
}

// Decide evaluates a record in strict order: blocked address, blocked
// domain, then the rate limit. The rate counter is incremented for every
// record that is not rule-blocked, including ones that end up rate limited.
// The returned reason comes from this call's own increment.
//
// Calling Decide before LoadRules behaves as if the rule set were empty.
func (a *Authority) Decide(r domain.Record) domain.Decision {
	if rs := a.rules.Load(); rs != nil {
		if rs.BlocksAddress(r.SourceAddress) || rs.BlocksDomain(r.Domain) {
			return domain.Block(domain.ReasonSecurityRuleMatch)
		}
	}
	if a.hits.Inc(r.SourceAddress) > a.limit {
		return domain.Block(domain.ReasonRateLimitExceeded)
	}
	return domain.Forward()
}

// IsRateLimited reports whether the address's current count exceeds the
// threshold. It is a pure read and is not used to classify decisions.
func (a *Authority) IsRateLimited(address string) bool {
	return a.hits.Get(address) > a.limit
}

// Hits returns the current rate counter for address (0 if never seen).
func (a *Authority) Hits(address string) int64 {
	return a.hits.Get(address)
}

// RateLimit returns the configured threshold.
func (a *Authority) RateLimit() int64 { return a.limit }

// RuleStats returns lookup metrics of the loaded rule set.
func (a *Authority) RuleStats() rules.Stats {
	if rs := a.rules.Load(); rs != nil {
		return rs.Stats()
	}
	return rules.Stats{}
}
