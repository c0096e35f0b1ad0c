package nav

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestOptions(t *testing.T) {
	opts := Labels("Oui", "", "Non")
	assert.Equal(t, KindLabel, opts[0].Kind)
	assert.True(t, opts[1].IsBlank())
	assert.Equal(t, "Non", opts[2].String())

	c := Custom(struct{ Amount string }{"5.00 €"}, "5.00 €")
	assert.Equal(t, KindCustom, c.Kind)
	assert.False(t, c.IsBlank())
	assert.NotNil(t, c.View)
}

func TestStack(t *testing.T) {
	var s Stack
	assert.False(t, s.Back())

	var trail []string
	s.Push("menu", func() { trail = append(trail, "menu") })
	s.Push("history", func() { trail = append(trail, "history") })
	assert.Equal(t, 2, s.Depth())
	assert.Equal(t, []string{"menu", "history"}, s.Names())

	top, ok := s.Peek()
	assert.True(t, ok)
	assert.Equal(t, "history", top.Name)

	assert.True(t, s.Back())
	assert.True(t, s.Back())
	assert.Equal(t, []string{"history", "menu"}, trail)
	assert.Zero(t, s.Depth())

	s.Push("x", nil)
	assert.True(t, s.Back(), "nil continuation is just popped")
	s.Push("y", nil)
	s.Reset()
	_, ok = s.Pop()
	assert.False(t, ok)
}
