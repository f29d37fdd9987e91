package cache

import (
	"math/rand"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"plancal/internal/datekey"
	apperrors "plancal/internal/errors"
	"plancal/internal/model"
	"plancal/internal/tz"
)

func keyFunc(t *testing.T) KeyFunc {
	t.Helper()
	n, err := tz.New("Asia/Seoul")
	require.NoError(t, err)
	return n.Key
}

func ev(id int64, clock, start string) model.Event {
	return model.Event{ID: id, Title: "e", Time: clock, StartDate: start}
}

func times(list []model.Event) []string {
	out := make([]string, 0, len(list))
	for _, e := range list {
		out = append(out, e.Time)
	}
	return out
}

func ids(list []model.Event) []int64 {
	out := make([]int64, 0, len(list))
	for _, e := range list {
		out = append(out, e.ID)
	}
	return out
}

func TestRebuildKeysByNormalizedStart(t *testing.T) {
	c, errs := Rebuild([]model.Event{
		ev(1, "01:30:00", "2024-11-04T16:30:00Z"),
		ev(2, "10:00:00", "2024-11-04T01:00:00Z"),
		ev(3, "00:15:00", "2024-11-04T15:15:00Z"),
		ev(4, "09:00:00", "not a date"),
	}, keyFunc(t))

	require.Len(t, errs, 1)
	assert.Equal(t, []int64{3, 1}, ids(c.Events("11/05/2024")))
	assert.Equal(t, []int64{2}, ids(c.Events("11/04/2024")))
	assert.Equal(t, 3, c.Len())
}

func TestRebuildStableOnTies(t *testing.T) {
	c, errs := Rebuild([]model.Event{
		ev(1, "09:00:00", "2024-11-05T00:00:00Z"),
		ev(2, "08:00:00", "2024-11-05T00:00:00Z"),
		ev(3, "09:00:00", "2024-11-05T00:00:00Z"),
	}, keyFunc(t))
	require.Empty(t, errs)
	assert.Equal(t, []int64{2, 1, 3}, ids(c.Events("11/05/2024")))
}

func TestInsertReplaceRemove(t *testing.T) {
	c := New()
	k := datekey.Key("11/05/2024")

	c.Insert(k, ev(1, "12:00:00", ""))
	c.Insert(k, ev(2, "08:00:00", ""))
	c.Insert(k, ev(3, "18:00:00", ""))
	assert.Equal(t, []int64{2, 1, 3}, ids(c.Events(k)))

	require.NoError(t, c.Replace(k, 2, ev(2, "20:00:00", "")))
	assert.Equal(t, []int64{1, 3, 2}, ids(c.Events(k)))

	err := c.Replace(k, 99, ev(99, "01:00:00", ""))
	require.Error(t, err)
	assert.True(t, apperrors.Is(err, apperrors.ErrCodeInconsistentState))

	removed, idx, emptied, err := c.Remove(k, 3)
	require.NoError(t, err)
	assert.Equal(t, int64(3), removed.ID)
	assert.Equal(t, 1, idx)
	assert.False(t, emptied)

	_, _, _, err = c.Remove(k, 3)
	assert.True(t, apperrors.Is(err, apperrors.ErrCodeInconsistentState))

	_, _, emptied, _ = c.Remove(k, 1)
	assert.False(t, emptied)
	_, _, emptied, _ = c.Remove(k, 2)
	assert.True(t, emptied)
	assert.Empty(t, c.Keys())
}

func TestRestoreOriginalPosition(t *testing.T) {
	c := New()
	k := datekey.Key("11/05/2024")
	c.Insert(k, ev(1, "09:00:00", ""))
	c.Insert(k, ev(2, "09:00:00", ""))
	c.Insert(k, ev(3, "09:00:00", ""))

	removed, idx, _, err := c.Remove(k, 2)
	require.NoError(t, err)
	c.Restore(k, removed, idx)
	assert.Equal(t, []int64{1, 2, 3}, ids(c.Events(k)))

	// Restore at the head of the day.
	removed, idx, emptied, err := c.Remove(k, 1)
	require.NoError(t, err)
	require.False(t, emptied)
	c.Restore(k, removed, idx)
	assert.Equal(t, []int64{1, 2, 3}, ids(c.Events(k)))
}

func TestEventsReturnsCopy(t *testing.T) {
	c := New()
	k := datekey.Key("11/05/2024")
	c.Insert(k, ev(1, "09:00:00", ""))

	got := c.Events(k)
	got[0].Title = "mutated"
	assert.Equal(t, "e", c.Events(k)[0].Title)
}

func TestSortedAfterRandomOperations(t *testing.T) {
	rnd := rand.New(rand.NewSource(7))
	c := New()
	keys := []datekey.Key{"11/04/2024", "11/05/2024", "11/06/2024"}
	clocks := []string{"00:00:00", "06:15:00", "09:00:00", "12:30:00", "18:45:00", "23:59:00"}
	var nextID int64

	for i := 0; i < 500; i++ {
		k := keys[rnd.Intn(len(keys))]
		switch rnd.Intn(3) {
		case 0:
			nextID++
			c.Insert(k, ev(nextID, clocks[rnd.Intn(len(clocks))], ""))
		case 1:
			if list := c.Events(k); len(list) > 0 {
				target := list[rnd.Intn(len(list))]
				require.NoError(t, c.Replace(k, target.ID, ev(target.ID, clocks[rnd.Intn(len(clocks))], "")))
			}
		case 2:
			if list := c.Events(k); len(list) > 0 {
				target := list[rnd.Intn(len(list))]
				_, _, _, err := c.Remove(k, target.ID)
				require.NoError(t, err)
			}
		}
		for _, kk := range keys {
			assert.True(t, sort.StringsAreSorted(times(c.Events(kk))))
		}
	}
}
