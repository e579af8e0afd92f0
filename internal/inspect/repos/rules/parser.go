package rules

import (
	"bufio"
	"io"
	"strings"

	logpkg "github.com/haukened/rr-inspect/internal/inspect/common/log"
	"github.com/haukened/rr-inspect/internal/inspect/common/utils"
	"github.com/haukened/rr-inspect/internal/inspect/domain"
)

// Parse reads rule lines of the form "<ACTION> <VALUE>" into BlockRules.
//
// Behavior:
// - ACTION is BLOCK_IP or BLOCK_DOMAIN, case-insensitive
// - Blank lines and lines starting with '#' are ignored
// - Lines with fewer than two whitespace-separated tokens are skipped
// - Unknown actions are skipped; extra tokens after VALUE are ignored
// - Domain values are canonicalised with utils.CanonicalDomain
//
// Only read errors are returned; malformed content never fails the parse.
func Parse(r io.Reader, source string, logger logpkg.Logger) ([]domain.BlockRule, error) {
	scanner := bufio.NewScanner(r)
	out := make([]domain.BlockRule, 0, 64)
	logger.Debug(map[string]any{"source": source}, "parse_rules_start")

	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(strings.TrimPrefix(scanner.Text(), "\uFEFF"))
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		fields := strings.Fields(line)
		if len(fields) < 2 {
			logger.Debug(map[string]any{"line": lineNum, "text": line}, "skip_malformed")
			continue
		}

		kind, err := domain.ParseBlockRuleKind(fields[0])
		if err != nil {
			logger.Debug(map[string]any{"line": lineNum, "action": fields[0]}, "skip_unknown_action")
			continue
		}

		value := fields[1]
		if kind == domain.BlockRuleDomain {
			value = utils.CanonicalDomain(value)
		}
		rule := domain.BlockRule{Kind: kind, Value: value, Source: source, Line: lineNum}
		if err := rule.Validate(); err != nil {
			logger.Debug(map[string]any{"line": lineNum, "error": err.Error()}, "skip_invalid_rule")
			continue
		}
		out = append(out, rule)
	}

	if err := scanner.Err(); err != nil {
		logger.Debug(map[string]any{"source": source, "error": err.Error()}, "parse_rules_scan_error")
		return nil, err
	}
	logger.Debug(map[string]any{"source": source, "count": len(out)}, "parse_rules_done")
	return out, nil
}
