package screen

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLimitedCursorSnapsDownOnConstruction(t *testing.T) {
	c := LimitedCursor([]int{0, 2, 4, 8}, 7)
	assert.Equal(t, 4, c.Position())
}

func TestLimitedCursorDownStopsAtLastAllowed(t *testing.T) {
	c := LimitedCursor([]int{0, 2, 4, 8}, 7)
	c = c.Down()
	assert.Equal(t, 8, c.Position())
	c = c.Down()
	assert.Equal(t, 8, c.Position())
}

func TestLimitedCursorUpStopsAtFirstAllowed(t *testing.T) {
	c := LimitedCursor([]int{0, 2, 4, 8}, 0)
	c = c.Up()
	assert.Equal(t, 0, c.Position())
}

func TestFreeCursorStaysInBounds(t *testing.T) {
	c := FreeCursor(3)
	for i := 0; i < 10; i++ {
		c = c.Down()
		assert.GreaterOrEqual(t, c.Position(), 0)
		assert.Less(t, c.Position(), 3)
	}
	for i := 0; i < 10; i++ {
		c = c.Up()
		assert.GreaterOrEqual(t, c.Position(), 0)
		assert.Less(t, c.Position(), 3)
	}
}

func TestNoneCursorIgnoresMovement(t *testing.T) {
	c := NoneCursor()
	assert.Equal(t, -1, c.Up().Position())
	assert.Equal(t, -1, c.Down().Position())
}
