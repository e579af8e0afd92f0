package domain

import (
	"fmt"
	"strings"
)

// BlockRuleKind defines what a rule matches against.
//
// address - matches the record's source address exactly
// domain  - matches the record's destination domain exactly
type BlockRuleKind uint8

const (
	// BlockRuleAddress blocks every record from one source address.
	BlockRuleAddress BlockRuleKind = iota
	// BlockRuleDomain blocks every record to one destination domain.
	BlockRuleDomain
)

// String returns the rule-file action for the kind.
func (k BlockRuleKind) String() string {
	switch k {
	case BlockRuleAddress:
		return "BLOCK_IP"
	case BlockRuleDomain:
		return "BLOCK_DOMAIN"
	default:
		return fmt.Sprintf("BlockRuleKind(%d)", k)
	}
}

// ParseBlockRuleKind converts a rule-file action into a BlockRuleKind.
// Accepts: "BLOCK_IP", "BLOCK_DOMAIN" (case-insensitive).
func ParseBlockRuleKind(s string) (BlockRuleKind, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "BLOCK_IP":
		return BlockRuleAddress, nil
	case "BLOCK_DOMAIN":
		return BlockRuleDomain, nil
	default:
		return 0, fmt.Errorf("unsupported rule action: %q", s)
	}
}

// BlockRule is a single rule line after parsing.
type BlockRule struct {
	Kind   BlockRuleKind
	Value  string // address, or canonical domain for BlockRuleDomain
	Source string // file or stream the rule came from
	Line   int
}

// Validate checks the rule for required fields and a supported kind.
func (r BlockRule) Validate() error {
	if r.Value == "" {
		return fmt.Errorf("rule value must not be empty")
	}
	switch r.Kind {
	case BlockRuleAddress, BlockRuleDomain:
		return nil
	default:
		return fmt.Errorf("unsupported BlockRuleKind: %d", r.Kind)
	}
}
