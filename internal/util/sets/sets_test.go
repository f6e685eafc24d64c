package sets

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSet(t *testing.T) {
	s := New("b", "a")
	assert.True(t, s.Has("a"))
	assert.False(t, s.Add("a"))
	assert.True(t, s.Add("c"))
	s.Delete("b")
	assert.Equal(t, []string{"a", "c"}, Sorted(s))
}

func TestOrdered(t *testing.T) {
	o := NewOrdered[string]()
	o.Add("z")
	o.Add("a")
	o.Add("z")
	assert.Equal(t, []string{"z", "a"}, o.Items())
	assert.Equal(t, 2, o.Len())
	assert.True(t, o.Has("a"))
}
