package diff

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestUnified(t *testing.T) {
	body, over := Unified("a/comment", "b/comment", "one\ntwo\nthree", "one\n2\nthree\n", Options{})
	assert.False(t, over)
	assert.True(t, strings.HasPrefix(body, "--- a/comment\n+++ b/comment\n"), body)
	assert.Contains(t, body, "-two\n")
	assert.Contains(t, body, "+2\n")
	assert.Contains(t, body, " one\n")
}

func TestUnifiedEqualIsEmpty(t *testing.T) {
	body, over := Unified("a", "b", "same\r\n", "same\n", Options{})
	assert.False(t, over)
	assert.Empty(t, body)
}

func TestUnifiedOversize(t *testing.T) {
	body, over := Unified("a", "b", "xxxx", "yyyy", Options{MaxBytes: 4})
	assert.True(t, over)
	assert.Contains(t, body, "# diff omitted (oversize)")
}

func TestAddedAndRemoved(t *testing.T) {
	body, _ := Added("b/x", "hello", Options{})
	assert.Contains(t, body, "--- /dev/null\n")
	assert.Contains(t, body, "+hello\n")

	body, _ = Removed("a/x", "bye", Options{Context: 1})
	assert.Contains(t, body, "+++ /dev/null\n")
	assert.Contains(t, body, "-bye\n")
}
