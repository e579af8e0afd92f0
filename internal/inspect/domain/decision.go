package domain

import "fmt"

// Reason explains why a record was blocked.
type Reason uint8

const (
	ReasonNone Reason = iota
	ReasonSecurityRuleMatch
	ReasonRateLimitExceeded
)

// String returns the stable identifier of the reason.
func (r Reason) String() string {
	switch r {
	case ReasonNone:
		return "NONE"
	case ReasonSecurityRuleMatch:
		return "SECURITY_RULE_MATCH"
	case ReasonRateLimitExceeded:
		return "RATE_LIMIT_EXCEEDED"
	default:
		return fmt.Sprintf("Reason(%d)", r)
	}
}

// Description is the human readable text used in inspection events.
func (r Reason) Description() string {
	switch r {
	case ReasonSecurityRuleMatch:
		return "Security Rule Match"
	case ReasonRateLimitExceeded:
		return "Rate Limit Exceeded"
	default:
		return ""
	}
}

// Decision is the verdict for one record. Reason is ReasonNone exactly when
// Blocked is false; use the constructors to keep that pairing.
type Decision struct {
	Blocked bool
	Reason  Reason
}

// Forward returns a not-blocked decision.
func Forward() Decision { return Decision{} }

// Block returns a blocked decision with the given reason.
func Block(reason Reason) Decision { return Decision{Blocked: true, Reason: reason} }

// Valid reports whether Blocked and Reason agree.
func (d Decision) Valid() bool {
	if d.Blocked {
		return d.Reason == ReasonSecurityRuleMatch || d.Reason == ReasonRateLimitExceeded
	}
	return d.Reason == ReasonNone
}

// Verdict is the outward label of a decision.
type Verdict string

const (
	VerdictBlocked   Verdict = "BLOCKED"
	VerdictForwarded Verdict = "FORWARDED"
)

// Verdict returns BLOCKED or FORWARDED.
func (d Decision) Verdict() Verdict {
	if d.Blocked {
		return VerdictBlocked
	}
	return VerdictForwarded
}

// Outcome is what an inspection task reports to the statistics aggregator.
type Outcome struct {
	Record   Record
	Decision Decision
}
