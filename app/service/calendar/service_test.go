package calendar

import (
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testTimes = []string{"14:00", "14:30", "15:00"}

func newTestService(t *testing.T) (*Service, string) {
	t.Helper()

	path := filepath.Join(t.TempDir(), "meetings.jsonl")

	return NewService(testTimes, NewStore(path)), path
}

func TestSlotKeyIdentifiesSlotNotAttendee(t *testing.T) {
	a := Meeting{Date: "2026-08-30", Time: "14:00", AttendeeName: "Maria"}
	b := Meeting{Date: "2026-08-30", Time: "14:00", AttendeeName: "João"}
	c := Meeting{Date: "2026-08-31", Time: "14:00", AttendeeName: "Maria"}

	assert.Equal(t, a.SlotKey(), b.SlotKey())
	assert.NotEqual(t, a.SlotKey(), c.SlotKey())
}

func TestCommitMarksSlotTaken(t *testing.T) {
	svc, _ := newTestService(t)

	require.True(t, svc.IsAvailable("2026-08-30", "14:00"))

	meeting, err := svc.Commit("2026-08-30", "domingo", "14:00", "Maria")
	require.NoError(t, err)
	assert.NotEmpty(t, meeting.ID)
	assert.Equal(t, "14:00", meeting.Time)

	assert.False(t, svc.IsAvailable("2026-08-30", "14:00"))
	assert.True(t, svc.IsAvailable("2026-08-31", "14:00"), "other dates stay free")
}

func TestCommitSameSlotTwiceConflicts(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.Commit("2026-08-30", "domingo", "14:00", "Maria")
	require.NoError(t, err)

	_, err = svc.Commit("2026-08-30", "domingo", "14:00", "João")
	assert.ErrorIs(t, err, ErrSlotTaken)

	assert.Len(t, svc.Meetings(), 1, "conflict must not create a duplicate meeting")
}

func TestCommitRejectsMalformedTime(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.Commit("2026-08-30", "domingo", "2pm", "Maria")
	assert.ErrorIs(t, err, ErrBadTime)
}

func TestNextAvailableRespectsPriorityOrder(t *testing.T) {
	svc, _ := newTestService(t)

	got, ok := svc.NextAvailable("2026-08-30")
	require.True(t, ok)
	assert.Equal(t, "14:00", got)

	_, err := svc.Commit("2026-08-30", "domingo", "14:00", "Maria")
	require.NoError(t, err)

	got, ok = svc.NextAvailable("2026-08-30")
	require.True(t, ok)
	assert.Equal(t, "14:30", got)
}

func TestNextAvailableWhenDayIsFull(t *testing.T) {
	svc, _ := newTestService(t)

	for _, tt := range testTimes {
		_, err := svc.Commit("2026-08-30", "domingo", tt, "Maria")
		require.NoError(t, err)
	}

	_, ok := svc.NextAvailable("2026-08-30")
	assert.False(t, ok)
}

func TestBookedTimesKeepsPriorityOrder(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.Commit("2026-08-30", "domingo", "15:00", "Maria")
	require.NoError(t, err)
	_, err = svc.Commit("2026-08-30", "domingo", "14:00", "João")
	require.NoError(t, err)

	assert.Equal(t, []string{"14:00", "15:00"}, svc.BookedTimes("2026-08-30"))
	assert.Empty(t, svc.BookedTimes("2026-08-31"))
}

func TestReloadReproducesMeetings(t *testing.T) {
	svc, path := newTestService(t)

	_, err := svc.Commit("2026-08-30", "domingo", "14:00", "Maria")
	require.NoError(t, err)
	_, err = svc.Commit("2026-08-31", "segunda-feira", "15:00", "João")
	require.NoError(t, err)

	reloaded := NewService(testTimes, NewStore(path))

	assert.ElementsMatch(t, svc.Meetings(), reloaded.Meetings())
	assert.False(t, reloaded.IsAvailable("2026-08-30", "14:00"))
}

func TestCorruptStoreFallsBackToEmptyCalendar(t *testing.T) {
	path := filepath.Join(t.TempDir(), "meetings.jsonl")
	require.NoError(t, os.WriteFile(path, []byte("{not json\n"), 0644))

	svc := NewService(testTimes, NewStore(path))

	assert.Empty(t, svc.Meetings())
	assert.True(t, svc.IsAvailable("2026-08-30", "14:00"))
}

func TestCommitFailsWhenStoreUnwritable(t *testing.T) {
	// A regular file as a path component makes every write fail with
	// ENOTDIR, regardless of the uid the tests run under.
	blocker := filepath.Join(t.TempDir(), "blocker")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0644))

	svc := NewService(testTimes, NewStore(filepath.Join(blocker, "meetings.jsonl")))

	_, err := svc.Commit("2026-08-30", "domingo", "14:00", "Maria")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrSlotTaken, "a persistence failure is not a slot conflict")

	assert.Empty(t, svc.Meetings(), "a failed commit must not keep in-memory state")
	assert.True(t, svc.IsAvailable("2026-08-30", "14:00"))
}

func TestCancelFreesSlot(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.Commit("2026-08-30", "domingo", "14:00", "Maria")
	require.NoError(t, err)

	require.NoError(t, svc.Cancel("2026-08-30", "14:00"))
	assert.True(t, svc.IsAvailable("2026-08-30", "14:00"))

	assert.ErrorIs(t, svc.Cancel("2026-08-30", "14:00"), ErrNoMeeting)
}

func TestConcurrentCommitsSingleWinner(t *testing.T) {
	svc, _ := newTestService(t)

	const attempts = 16

	var wg sync.WaitGroup
	errs := make([]error, attempts)

	for i := 0; i < attempts; i++ {
		i := i
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, errs[i] = svc.Commit("2026-08-30", "domingo", "14:00", "Maria")
		}()
	}

	wg.Wait()

	winners := 0
	for _, err := range errs {
		if err == nil {
			winners++
		} else {
			assert.ErrorIs(t, err, ErrSlotTaken)
		}
	}

	assert.Equal(t, 1, winners)
	assert.Len(t, svc.Meetings(), 1)
}
