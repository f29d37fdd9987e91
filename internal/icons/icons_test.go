package icons

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"plancal/internal/datekey"
	"plancal/internal/model"
)

const day = datekey.Key("11/05/2024")

func TestAdvanceCyclesBackToZero(t *testing.T) {
	c := New(NewMemoryStore())

	var got []int
	for i := 0; i < 5; i++ {
		idx, ok := c.Advance(day)
		require.True(t, ok)
		got = append(got, idx)
	}
	assert.Equal(t, []int{1, 2, 3, 4, 0}, got)
}

func TestAdvanceFromClearedSentinel(t *testing.T) {
	store := NewMemoryStore()
	c := New(store)
	c.Clear(day)

	v, _, _ := store.Get(string(day))
	assert.Equal(t, "-1", v)

	idx, ok := c.Advance(day)
	require.True(t, ok)
	assert.Equal(t, 0, idx)
}

func TestAdvanceIgnoredWhileLoading(t *testing.T) {
	store := NewMemoryStore()
	c := New(store)

	c.BeginLoad()
	_, ok := c.Advance(day)
	assert.False(t, ok)
	_, found, _ := store.Get(string(day))
	assert.False(t, found)

	c.EndLoad()
	idx, ok := c.Advance(day)
	assert.True(t, ok)
	assert.Equal(t, 1, idx)
}

func TestHydrateOmitsAbsentAndInvalid(t *testing.T) {
	store := NewMemoryStore()
	require.NoError(t, store.Set("11/01/2024", "3"))
	require.NoError(t, store.Set("11/02/2024", "-1"))
	require.NoError(t, store.Set("11/03/2024", "banana"))
	require.NoError(t, store.Set("11/04/2024", "9"))
	require.NoError(t, store.Set("12/01/2024", "2"))

	keys, err := datekey.MonthKeys(2024, 10)
	require.NoError(t, err)
	c := New(store)
	got := c.Hydrate(keys)
	assert.Equal(t, map[datekey.Key]int{"11/01/2024": 3, "11/02/2024": model.NoIcon}, got)

	_, ok := c.Index("11/05/2024")
	assert.False(t, ok)
	_, ok = c.Index("12/01/2024")
	assert.False(t, ok, "other months are not hydrated")
}

func TestFileStorePersists(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state", "icons.json")

	s, err := OpenFileStore(path)
	require.NoError(t, err)
	c := New(s)
	c.Advance(day)
	c.Advance(day)

	reopened, err := OpenFileStore(path)
	require.NoError(t, err)
	v, ok, err := reopened.Get(string(day))
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "2", v)

	require.NoError(t, reopened.Delete(string(day)))
	_, ok, _ = reopened.Get(string(day))
	assert.False(t, ok)
}

func TestOpenFileStoreRejectsCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "icons.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o600))
	_, err := OpenFileStore(path)
	assert.Error(t, err)
}

type failingStore struct{ *MemoryStore }

func (failingStore) Set(string, string) error { return errors.New("disk full") }

func TestAdvanceKeepsValueWhenStoreFails(t *testing.T) {
	c := New(failingStore{NewMemoryStore()})
	idx, ok := c.Advance(day)
	assert.True(t, ok)
	assert.Equal(t, 1, idx)
	got, _ := c.Index(day)
	assert.Equal(t, 1, got)
}
