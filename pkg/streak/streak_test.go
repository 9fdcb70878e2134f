package streak

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var today = time.Date(2024, time.March, 2, 9, 30, 0, 0, time.UTC)

// day returns the key n days before today.
func day(t *testing.T, n int) string {
	t.Helper()
	k, err := AddDays(Key(today), -n)
	require.NoError(t, err)
	return k
}

func run(t *testing.T, from, count int) Ledger {
	t.Helper()
	l := Ledger{}
	for i := from; i < from+count; i++ {
		l[day(t, i)] = true
	}
	return l
}

func TestCompute_Empty(t *testing.T) {
	assert.Equal(t, 0, Compute(nil, nil, today))
	assert.Equal(t, 0, Compute(Ledger{}, MilestoneSet{}, today))
}

func TestCompute_ConsecutiveRunEndingToday(t *testing.T) {
	for _, n := range []int{1, 2, 7, 30} {
		assert.Equal(t, n, Compute(run(t, 0, n), nil, today), "run of %d", n)
	}
}

func TestCompute_MilestoneInsideRunIsSkipped(t *testing.T) {
	l := run(t, 0, 6)
	delete(l, day(t, 3))
	ms := NewMilestoneSet(day(t, 3))

	assert.Equal(t, 5, Compute(l, ms, today))
}

func TestCompute_MissStopsWalk(t *testing.T) {
	l := Ledger{
		day(t, 0): true,
		day(t, 1): true,
		day(t, 2): false,
		day(t, 3): true,
	}
	assert.Equal(t, 2, Compute(l, nil, today))
}

func TestCompute_TodayNotActionedStartsYesterday(t *testing.T) {
	l := Ledger{
		day(t, 1): true,
		day(t, 2): true,
	}
	assert.Equal(t, 2, Compute(l, nil, today))
}

func TestCompute_TodayMilestoneDoesNotStepBack(t *testing.T) {
	l := Ledger{day(t, 1): true, day(t, 2): true}
	ms := NewMilestoneSet(day(t, 0))

	assert.Equal(t, 2, Compute(l, ms, today))
}

func TestCompute_MissYesterdayAndToday(t *testing.T) {
	l := Ledger{day(t, 2): true, day(t, 3): true}
	assert.Equal(t, 0, Compute(l, nil, today))
}

func TestCompute_CapsAtOneYear(t *testing.T) {
	assert.Equal(t, MaxLookback, Compute(run(t, 0, 400), nil, today))
}

func TestCompute_MilestonesConsumeLookback(t *testing.T) {
	ms := MilestoneSet{}
	for i := 1; i < 400; i++ {
		ms.Add(day(t, i))
	}
	l := Ledger{day(t, 0): true, day(t, 380): true}

	// 366 iterations cover today plus 365 milestone days; day 380 is never reached.
	assert.Equal(t, 1, Compute(l, ms, today))
}

func TestCompute_DoneWinsOverMilestone(t *testing.T) {
	l := run(t, 0, 3)
	ms := NewMilestoneSet(day(t, 1))

	assert.Equal(t, 3, Compute(l, ms, today))
}

func TestCompute_CrossesLeapDayAndMonth(t *testing.T) {
	l := Ledger{
		"2024-03-02": true,
		"2024-03-01": true,
		"2024-02-29": true,
		"2024-02-28": true,
	}
	assert.Equal(t, 4, Compute(l, nil, today))
}

func TestCompute_UsesLocalCalendarDate(t *testing.T) {
	tokyo := time.FixedZone("JST", 9*3600)
	// 2024-03-01T20:00Z is already 2024-03-02 in Tokyo.
	now := time.Date(2024, time.March, 1, 20, 0, 0, 0, time.UTC).In(tokyo)

	l := Ledger{"2024-03-02": true}
	assert.Equal(t, 1, Compute(l, nil, now))
	assert.Equal(t, "2024-03-02", Key(now))
	assert.Equal(t, "2024-03-01", Today(now, time.UTC))
}

func TestCompute_YearBoundary(t *testing.T) {
	now := time.Date(2025, time.January, 1, 0, 5, 0, 0, time.UTC)
	l := Ledger{"2025-01-01": true, "2024-12-31": true, "2024-12-30": true}
	assert.Equal(t, 3, Compute(l, nil, now))
}

func TestMilestoneSet_DuplicatesCollapse(t *testing.T) {
	s := NewMilestoneSet("2024-01-05", "2024-01-05", "2024-01-06")
	assert.Len(t, s, 2)
	assert.True(t, s.Has("2024-01-05"))
	assert.False(t, MilestoneSet(nil).Has("2024-01-05"))
}

func TestParseKey(t *testing.T) {
	got, err := ParseKey("2024-02-29", time.UTC)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, time.February, 29, 0, 0, 0, 0, time.UTC), got)

	_, err = ParseKey("2024-13-01", time.UTC)
	assert.Error(t, err)
	_, err = ParseKey("", time.UTC)
	assert.Error(t, err)
}

func TestAddDays(t *testing.T) {
	got, err := AddDays("2024-12-31", 1)
	require.NoError(t, err)
	assert.Equal(t, "2025-01-01", got)

	got, err = AddDays("2024-03-01", -1)
	require.NoError(t, err)
	assert.Equal(t, "2024-02-29", got)
}
