package jobs

import (
	"testing"

	"github.com/endeavored/sectionwatch/internal/pkg/models"
	"github.com/stretchr/testify/assert"
)

func TestWatchlistAddRemove(t *testing.T) {
	wl := NewWatchlist(cs1332, cs1332)
	assert.Len(t, wl.Courses(), 1)

	assert.True(t, wl.Add(math1554))
	assert.False(t, wl.Add(math1554))
	assert.Equal(t, []string{"CS1332", "MATH1554"}, wl.Strings())

	assert.True(t, wl.Remove(cs1332))
	assert.False(t, wl.Remove(cs1332))
	assert.Equal(t, []string{"MATH1554"}, wl.Strings())
}

func TestWatchlistCoursesIsACopy(t *testing.T) {
	wl := NewWatchlist(cs1332, math1554)
	courses := wl.Courses()
	wl.Remove(cs1332)
	assert.Len(t, courses, 2)
}

func TestSnapshotStore(t *testing.T) {
	store := NewSnapshotStore()
	assert.Nil(t, store.Get(cs1332))

	snap := snapshot(t, section("1", 1, 1, 0, 0))
	store.Put(cs1332, snap)
	store.Put(math1554, nil)
	assert.Same(t, snap, store.Get(cs1332))
	assert.Equal(t, 1, store.Len())

	store.Reset()
	assert.Nil(t, store.Get(cs1332))
	assert.Zero(t, store.Len())
}

func TestSnapshotStoreRetain(t *testing.T) {
	store := NewSnapshotStore()
	store.Put(cs1332, snapshot(t, section("1", 1, 1, 0, 0)))
	store.Put(math1554, snapshot(t, section("2", 1, 1, 0, 0)))

	store.Retain([]models.Course{math1554})
	assert.Nil(t, store.Get(cs1332))
	assert.NotNil(t, store.Get(math1554))

	store.Retain(nil)
	assert.Zero(t, store.Len())
}
