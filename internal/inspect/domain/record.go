package domain

import (
	"fmt"
	"strings"
	"time"
)

// Priority is the informational traffic class of a record, derived from its
// destination domain.
type Priority uint8

const (
	PriorityLow Priority = iota
	PriorityMedium
	PriorityHigh
)

// String returns the upper-case name of the priority.
func (p Priority) String() string {
	switch p {
	case PriorityHigh:
		return "HIGH"
	case PriorityMedium:
		return "MEDIUM"
	case PriorityLow:
		return "LOW"
	default:
		return fmt.Sprintf("Priority(%d)", p)
	}
}

// ClassifyPriority maps a domain to its priority. Checks run in a fixed order:
// .gov, .edu or any name containing "bank" is HIGH; .com or .org is MEDIUM;
// everything else is LOW.
func ClassifyPriority(domain string) Priority {
	switch {
	case strings.HasSuffix(domain, ".gov"),
		strings.HasSuffix(domain, ".edu"),
		strings.Contains(domain, "bank"):
		return PriorityHigh
	case strings.HasSuffix(domain, ".com"),
		strings.HasSuffix(domain, ".org"):
		return PriorityMedium
	default:
		return PriorityLow
	}
}

// Record is one unit of inspected traffic. Values are immutable once built;
// construct them with NewRecord so Priority is always consistent with Domain.
type Record struct {
	SourceAddress string
	Domain        string
	Priority      Priority
	CreatedAt     time.Time
}

// NewRecord builds a Record and classifies its priority.
func NewRecord(sourceAddress, domain string, createdAt time.Time) Record {
	return Record{
		SourceAddress: sourceAddress,
		Domain:        domain,
		Priority:      ClassifyPriority(domain),
		CreatedAt:     createdAt,
	}
}

// String renders the record for log lines.
func (r Record) String() string {
	return fmt.Sprintf("[%s] source=%s domain=%s", r.Priority, r.SourceAddress, r.Domain)
}
