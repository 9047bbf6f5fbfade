package gitmeta

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewReader_NonRepoYieldsZeroValues(t *testing.T) {
	r := NewReader(t.TempDir())

	info := r.Info()
	assert.False(t, info.IsRepo)
	assert.Empty(t, info.Commit)
	assert.Empty(t, info.Branch)
}

func TestLastModified_NonRepoIsZeroTime(t *testing.T) {
	r := NewReader(t.TempDir())
	assert.True(t, r.LastModified("docs/index.md").IsZero())
}
