package sortutil

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSortedCopies(t *testing.T) {
	in := []string{"b", "a", "c"}
	assert.Equal(t, []string{"a", "b", "c"}, Sorted(in))
	assert.Equal(t, []string{"b", "a", "c"}, in)
	assert.Nil(t, Sorted([]string(nil)))
}

func TestKeys(t *testing.T) {
	assert.Equal(t, []string{"a", "b"}, Keys(map[string]int{"b": 2, "a": 1}))
	assert.Equal(t, []int{1, 5}, Keys(map[int]bool{5: true, 1: false}))
	assert.Empty(t, Keys(map[string]int{}))
}
