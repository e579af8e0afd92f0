package rules

import (
	"sort"
	"sync/atomic"

	"github.com/haukened/rr-inspect/internal/inspect/domain"
)

// DefaultFPRate is the Bloom false-positive target used when none is given.
const DefaultFPRate = 0.01

// Options configures the lookup pipeline of a RuleSet. Both fields are
// optional: without a Factory every lookup goes to the exact sets, and
// without a Cache nothing is memoised.
type Options struct {
	Factory BloomFactory
	FPRate  float64
	Cache   MatchCache
}

// RuleSet holds the blocked addresses and blocked domains. It is built once
// and is read-only afterwards, so lookups need no locking; the Bloom filters
// and the match cache are themselves safe for concurrent readers.
//
// Lookups run bloom, then cache, then set.
type RuleSet struct {
	addresses map[string]struct{}
	domains   map[string]struct{}

	addrBloom   BloomFilter
	domainBloom BloomFilter
	cache       MatchCache

	bloomRejects atomic.Uint64
	setLookups   atomic.Uint64
}

// NewRuleSet builds the two block sets from parsed rules. Duplicate rules
// collapse to a single entry.
func NewRuleSet(rules []domain.BlockRule, opts Options) *RuleSet {
	rs := &RuleSet{
		addresses: make(map[string]struct{}),
		domains:   make(map[string]struct{}),
		cache:     opts.Cache,
	}
	for _, r := range rules {
		switch r.Kind {
		case domain.BlockRuleAddress:
			rs.addresses[r.Value] = struct{}{}
		case domain.BlockRuleDomain:
			rs.domains[r.Value] = struct{}{}
		default:
			// ignore
		}
	}

	if opts.Factory != nil {
		fp := opts.FPRate
		if !(fp > 0 && fp < 1) {
			fp = DefaultFPRate
		}
		rs.addrBloom = buildBloom(opts.Factory, rs.addresses, fp)
		rs.domainBloom = buildBloom(opts.Factory, rs.domains, fp)
	}
	return rs
}

func buildBloom(f BloomFactory, set map[string]struct{}, fp float64) BloomFilter {
	bf := f.New(uint64(len(set)), fp)
	for k := range set {
		bf.Add([]byte(k))
	}
	return bf
}

// BlocksAddress reports whether the source address is blocked.
func (rs *RuleSet) BlocksAddress(addr string) bool {
	return rs.lookup("ip:", addr, rs.addrBloom, rs.addresses)
}

// BlocksDomain reports whether the destination domain is blocked. The domain
// must already be canonical.
func (rs *RuleSet) BlocksDomain(name string) bool {
	return rs.lookup("domain:", name, rs.domainBloom, rs.domains)
}

func (rs *RuleSet) lookup(prefix, key string, bf BloomFilter, set map[string]struct{}) bool {
	if len(set) == 0 {
		return false
	}
	// 1) checkBloom: early-allow if definitively negative
	if bf != nil && !bf.MightContain([]byte(key)) {
		rs.bloomRejects.Add(1)
		return false
	}
	// 2) checkCache
	ck := prefix + key
	if rs.cache != nil {
		if matched, ok := rs.cache.Get(ck); ok {
			return matched
		}
	}
	// 3) checkSet
	rs.setLookups.Add(1)
	_, matched := set[key]
	// 4) updateCache
	if rs.cache != nil {
		rs.cache.Put(ck, matched)
	}
	return matched
}

// Len returns the total number of distinct rules.
func (rs *RuleSet) Len() int { return len(rs.addresses) + len(rs.domains) }

// Addresses returns the blocked addresses in ascending order.
func (rs *RuleSet) Addresses() []string { return sortedKeys(rs.addresses) }

// Domains returns the blocked domains in ascending order.
func (rs *RuleSet) Domains() []string { return sortedKeys(rs.domains) }

// Stats returns lookup metrics.
func (rs *RuleSet) Stats() Stats {
	st := Stats{
		Addresses:    len(rs.addresses),
		Domains:      len(rs.domains),
		BloomRejects: rs.bloomRejects.Load(),
		SetLookups:   rs.setLookups.Load(),
	}
	if rs.cache != nil {
		st.Cache = rs.cache.Stats()
	}
	return st
}

func sortedKeys(m map[string]struct{}) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
