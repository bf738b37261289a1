package journal

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

type counterRef struct{ id int }

func TestRevertToSnapshot(t *testing.T) {
	j := New()
	values := []int{0, 0}

	set := func(i, v int) {
		prev := values[i]
		values[i] = v
		j.Append(counterRef{i}, func() { values[i] = prev })
	}

	set(0, 1)
	snap := j.Snapshot()
	set(0, 2)
	set(1, 5)
	set(0, 3)

	assert.Equal(t, 4, j.Length())
	j.RevertToSnapshot(snap)

	assert.Equal(t, []int{1, 0}, values)
	assert.Equal(t, 1, j.Length())
}

func TestDirtyDeduplicatesInFirstTouchOrder(t *testing.T) {
	j := New()
	j.Append(counterRef{2}, func() {})
	j.Append(nil, func() {})
	j.Append(counterRef{1}, func() {})
	j.Append(counterRef{2}, func() {})

	assert.Equal(t, []any{counterRef{2}, counterRef{1}}, j.Dirty())

	j.Reset()
	assert.Empty(t, j.Dirty())
	assert.Equal(t, 0, j.Length())
}

func TestRevertInvalidSnapshotPanics(t *testing.T) {
	j := New()
	assert.Panics(t, func() { j.RevertToSnapshot(3) })
}
