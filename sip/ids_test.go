package sip

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGenerateBranchHasMagicCookie(t *testing.T) {
	b := GenerateBranch()
	assert.True(t, strings.HasPrefix(b, RFC3261BranchMagicCookie))
}

func TestGenerateBranchUnique(t *testing.T) {
	assert.NotEqual(t, GenerateBranch(), GenerateBranch())
}

func TestGenerateTagEntropy(t *testing.T) {
	tag := GenerateTag()
	assert.GreaterOrEqual(t, len(tag)*4, 32)
	assert.NotEqual(t, tag, GenerateTag())
}
