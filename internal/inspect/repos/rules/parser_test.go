package rules

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/haukened/rr-inspect/internal/inspect/common/log"
	"github.com/haukened/rr-inspect/internal/inspect/domain"
)

func TestParse_Grammar(t *testing.T) {
	input := strings.Join([]string{
		"# security rules",
		"",
		"BLOCK_IP 10.0.0.1",
		"block_domain Evil.COM.",
		"   Block_Ip   192.168.1.9   trailing tokens ignored",
		"BLOCK_IP",
		"ALLOW_IP 1.1.1.1",
		"  # indented comment",
		"\uFEFFBLOCK_DOMAIN ads.example.org",
	}, "\n")

	got, err := Parse(strings.NewReader(input), "rules.txt", log.NewNoopLogger())
	require.NoError(t, err)

	want := []domain.BlockRule{
		{Kind: domain.BlockRuleAddress, Value: "10.0.0.1", Source: "rules.txt", Line: 3},
		{Kind: domain.BlockRuleDomain, Value: "evil.com", Source: "rules.txt", Line: 4},
		{Kind: domain.BlockRuleAddress, Value: "192.168.1.9", Source: "rules.txt", Line: 5},
		{Kind: domain.BlockRuleDomain, Value: "ads.example.org", Source: "rules.txt", Line: 9},
	}
	assert.Equal(t, want, got)
}

func TestParse_Empty(t *testing.T) {
	got, err := Parse(strings.NewReader(""), "empty", log.NewNoopLogger())
	require.NoError(t, err)
	assert.Empty(t, got)
}

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) { return 0, errors.New("disk on fire") }

func TestParse_ReadError(t *testing.T) {
	got, err := Parse(failingReader{}, "broken", log.NewNoopLogger())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk on fire")
	assert.Nil(t, got)
}
