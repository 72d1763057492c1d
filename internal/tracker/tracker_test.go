package tracker

import (
	"strings"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"no-lights-dtek/internal/dtek"
)

var testAddr = dtek.Address{City: "Київ", Street: "Хрещатик", House: "22"}

func strPtr(s string) *string { return &s }

func result(status dtek.StatusKind) *dtek.ScrapeResult {
	return &dtek.ScrapeResult{Current: dtek.OutageStatus{Status: status}}
}

func TestDetect_FirstCheck(t *testing.T) {
	clock := clockwork.NewFakeClockAt(time.Date(2025, 11, 3, 10, 0, 0, 0, time.UTC))
	now := clock.Now()

	res := result(dtek.StatusOff)
	res.GroupName = strPtr("Черга 3.1")

	d := Detect(nil, res, now)
	assert.True(t, d.Changed)
	assert.True(t, d.First)
	require.NotNil(t, d.Next.LastStatus)
	assert.Equal(t, dtek.StatusOff, *d.Next.LastStatus)
	assert.Equal(t, now, *d.Next.LastOffAt)
	assert.Nil(t, d.Next.LastOnAt)
	assert.Equal(t, now, *d.Next.LastStatusChangedAt)
	assert.Equal(t, now, *d.Next.LastCheckedAt)
	assert.Equal(t, now, d.Next.CreatedAt)
	assert.Equal(t, "Черга 3.1", *d.Next.GroupName)

	// A registered subscriber that was never checked is still a first check.
	prev := NewSubscriberState(testAddr, now.Add(-time.Hour))
	d = Detect(&prev, result(dtek.StatusOn), now)
	assert.True(t, d.First)
	assert.True(t, d.Changed)
	assert.Equal(t, testAddr, d.Next.Address)
	assert.Equal(t, now.Add(-time.Hour), d.Next.CreatedAt)
}

func TestDetect_SameStatusOnlyTouchesCheckedAt(t *testing.T) {
	clock := clockwork.NewFakeClockAt(time.Date(2025, 11, 3, 10, 0, 0, 0, time.UTC))
	first := Detect(nil, result(dtek.StatusOn), clock.Now())

	clock.Advance(10 * time.Minute)
	d := Detect(&first.Next, result(dtek.StatusOn), clock.Now())

	assert.False(t, d.Changed)
	assert.False(t, d.First)
	assert.Equal(t, *first.Next.LastStatusChangedAt, *d.Next.LastStatusChangedAt)
	assert.Equal(t, *first.Next.LastOnAt, *d.Next.LastOnAt)
	assert.Equal(t, clock.Now(), *d.Next.LastCheckedAt)
}

func TestDetect_Transitions(t *testing.T) {
	clock := clockwork.NewFakeClockAt(time.Date(2025, 11, 3, 10, 0, 0, 0, time.UTC))
	on := Detect(nil, result(dtek.StatusOn), clock.Now())
	onAt := clock.Now()

	clock.Advance(2 * time.Hour)
	off := Detect(&on.Next, result(dtek.StatusOff), clock.Now())
	assert.True(t, off.Changed)
	assert.Equal(t, onAt, *off.Next.LastOnAt)
	assert.Equal(t, clock.Now(), *off.Next.LastOffAt)
	assert.Equal(t, clock.Now(), *off.Next.LastStatusChangedAt)

	clock.Advance(time.Hour)
	unknown := Detect(&off.Next, result(dtek.StatusUnknown), clock.Now())
	assert.True(t, unknown.Changed)
	assert.Equal(t, dtek.StatusUnknown, *unknown.Next.LastStatus)
	assert.Equal(t, *off.Next.LastOffAt, *unknown.Next.LastOffAt)
	assert.Equal(t, onAt, *unknown.Next.LastOnAt)
}

func TestDetect_KeepsGroupWhenMissing(t *testing.T) {
	now := time.Date(2025, 11, 3, 10, 0, 0, 0, time.UTC)
	res := result(dtek.StatusOn)
	res.GroupName = strPtr("Черга 1.2")
	first := Detect(nil, res, now)

	d := Detect(&first.Next, result(dtek.StatusOn), now.Add(time.Minute))
	require.NotNil(t, d.Next.GroupName)
	assert.Equal(t, "Черга 1.2", *d.Next.GroupName)
}

func TestDetect_DoesNotMutatePrevious(t *testing.T) {
	now := time.Date(2025, 11, 3, 10, 0, 0, 0, time.UTC)
	first := Detect(nil, result(dtek.StatusOn), now)
	prev := first.Next

	_ = Detect(&prev, result(dtek.StatusOff), now.Add(time.Hour))
	assert.Equal(t, dtek.StatusOn, *prev.LastStatus)
	assert.Nil(t, prev.LastOffAt)
	assert.Equal(t, now, *prev.LastCheckedAt)
}

func TestFormatDuration(t *testing.T) {
	cases := map[time.Duration]string{
		0:                             "0 хв",
		45 * time.Minute:              "45 хв",
		3 * time.Hour:                 "3 год",
		3*time.Hour + 5*time.Minute:   "3 год 5 хв",
		26*time.Hour + 30*time.Minute: "26 год 30 хв",
		-90 * time.Minute:             "1 год 30 хв",
	}
	for d, want := range cases {
		assert.Equal(t, want, FormatDuration(d), d.String())
	}
}

func TestFormat_FreshOutage(t *testing.T) {
	clock := clockwork.NewFakeClockAt(time.Date(2025, 11, 3, 10, 0, 0, 0, time.UTC))
	on := Detect(&SubscriberState{Address: testAddr}, result(dtek.StatusOn), clock.Now())

	clock.Advance(3*time.Hour + 20*time.Minute)
	res := result(dtek.StatusOff)
	res.GroupName = strPtr("Черга 3.1")
	res.Current.Reason = strPtr("Екстренні відключення")
	res.Current.Restore = strPtr("14:00 03.11.2025")
	res.Current.UpdatedAt = strPtr("09:15 03.11.2025")
	res.ResolvedAddress.Text = strPtr("м. Київ, вул. Хрещатик, 22")
	off := Detect(&on.Next, res, clock.Now())

	msg := Format(res, off.Next, clock.Now(), "https://viewer.example/schedule")
	lines := strings.Split(msg, "\n")

	assert.Equal(t, msgHeadlineOff, lines[0])
	assert.Equal(t, "📍 м. Київ, вул. Хрещатик, 22", lines[1])
	assert.Equal(t, "👥 Черга: Черга 3.1", lines[2])
	assert.Equal(t, "⏱ Світло було 3 год 20 хв", lines[3])
	assert.Equal(t, "⚠️ Причина: Екстренні відключення", lines[4])
	assert.Equal(t, "🔌 Орієнтовне відновлення: 14:00 03.11.2025", lines[5])
	assert.Equal(t, "🔄 Оновлено: 09:15 03.11.2025", lines[6])
	assert.NotContains(t, msg, "Початок")
	assert.Contains(t, msg, `<a href="https://viewer.example/schedule?city=`)
	assert.Contains(t, msg, "&amp;house=22")
}

func TestFormat_OngoingState(t *testing.T) {
	clock := clockwork.NewFakeClockAt(time.Date(2025, 11, 3, 10, 0, 0, 0, time.UTC))
	first := Detect(&SubscriberState{Address: testAddr}, result(dtek.StatusOn), clock.Now())

	clock.Advance(50 * time.Minute)
	d := Detect(&first.Next, result(dtek.StatusOn), clock.Now())

	msg := Format(result(dtek.StatusOn), d.Next, clock.Now(), "")
	assert.Contains(t, msg, "⏱ Світло є вже 50 хв")
	assert.Contains(t, msg, "📍 Київ, Хрещатик, 22")
	assert.NotContains(t, msg, "<a href")
	assert.NotContains(t, msg, "Черга")
}

func TestFormat_OmitsUnknownDurations(t *testing.T) {
	now := time.Date(2025, 11, 3, 10, 0, 0, 0, time.UTC)
	d := Detect(&SubscriberState{Address: testAddr}, result(dtek.StatusOff), now)

	msg := Format(result(dtek.StatusOff), d.Next, now, "")
	assert.NotContains(t, msg, "⏱")

	unknown := Format(result(dtek.StatusUnknown), d.Next, now, "")
	assert.True(t, strings.HasPrefix(unknown, msgHeadlineUnknown))
	assert.NotContains(t, unknown, "⏱")
}

func TestFormat_ReturnAfterUnknownHasNoStaleDuration(t *testing.T) {
	clock := clockwork.NewFakeClockAt(time.Date(2025, 11, 3, 10, 0, 0, 0, time.UTC))
	on := Detect(&SubscriberState{Address: testAddr}, result(dtek.StatusOn), clock.Now())
	clock.Advance(time.Hour)
	off := Detect(&on.Next, result(dtek.StatusOff), clock.Now())
	clock.Advance(time.Hour)
	backAt := clock.Now()
	back := Detect(&off.Next, result(dtek.StatusOn), backAt)
	clock.Advance(5 * time.Hour)
	unknown := Detect(&back.Next, result(dtek.StatusUnknown), clock.Now())
	clock.Advance(30 * time.Minute)
	again := Detect(&unknown.Next, result(dtek.StatusOn), clock.Now())

	require.NotNil(t, again.Next.PreviousStatus)
	assert.Equal(t, dtek.StatusUnknown, *again.Next.PreviousStatus)

	msg := Format(result(dtek.StatusOn), again.Next, clock.Now(), "")
	assert.NotContains(t, msg, "Світла не було")
	assert.NotContains(t, msg, "⏱")

	// A real OFF -> ON flip still reports how long power was out.
	msg = Format(result(dtek.StatusOn), back.Next, backAt, "")
	assert.Contains(t, msg, "⏱ Світла не було 1 год")
}

func TestFormat_EscapesHTML(t *testing.T) {
	now := time.Date(2025, 11, 3, 10, 0, 0, 0, time.UTC)
	res := result(dtek.StatusOff)
	res.Current.Reason = strPtr("<b>ремонт</b> & заміна")

	msg := Format(res, SubscriberState{Address: testAddr}, now, "")
	assert.Contains(t, msg, "&lt;b&gt;ремонт&lt;/b&gt; &amp; заміна")
}

func TestViewerLink(t *testing.T) {
	assert.Empty(t, ViewerLink("", testAddr))
	link := ViewerLink("https://viewer.example/?tab=week", testAddr)
	assert.True(t, strings.HasPrefix(link, "https://viewer.example/?"))
	assert.Contains(t, link, "tab=week")
	assert.Contains(t, link, "house=22")
}

func dayOf(cells map[int]dtek.HourCell) dtek.DaySchedule {
	day := make(dtek.DaySchedule, dtek.HoursPerDay)
	for h := range day {
		day[h] = dtek.CellOn
	}
	for h, c := range cells {
		day[h] = c
	}
	return day
}

func TestNextOutageBlock(t *testing.T) {
	day := dayOf(map[int]dtek.HourCell{
		3: dtek.CellOff, 15: dtek.CellOffSecondHalf, 16: dtek.CellOff, 17: dtek.CellOffFirstHalf,
		21: dtek.CellOffMaybe, 23: dtek.CellOff,
	})

	start, end, ok := nextOutageBlock(day, 10)
	require.True(t, ok)
	assert.Equal(t, 15, start)
	assert.Equal(t, 18, end)

	start, end, ok = nextOutageBlock(day, 18)
	require.True(t, ok)
	assert.Equal(t, 23, start)
	assert.Equal(t, 0, end)

	_, _, ok = nextOutageBlock(day, 23)
	assert.False(t, ok)
}

func TestFormat_ScheduleHints(t *testing.T) {
	// 13:30 in Kyiv.
	now := time.Date(2025, 11, 3, 11, 30, 0, 0, time.UTC)

	on := result(dtek.StatusOn)
	on.Day.Today = dayOf(map[int]dtek.HourCell{15: dtek.CellOff, 16: dtek.CellOff})
	msg := Format(on, SubscriberState{Address: testAddr}, now, "")
	assert.Contains(t, msg, "📅 Наступне відключення за графіком: 15:00 - 17:00")

	off := result(dtek.StatusOff)
	off.Day.Today = dayOf(map[int]dtek.HourCell{13: dtek.CellOff, 14: dtek.CellOff})
	msg = Format(off, SubscriberState{Address: testAddr}, now, "")
	assert.Contains(t, msg, "📅 За графіком світло з 15:00")

	// Power is off while the schedule says on: no promise about its return.
	off.Day.Today = dayOf(map[int]dtek.HourCell{18: dtek.CellOff})
	msg = Format(off, SubscriberState{Address: testAddr}, now, "")
	assert.NotContains(t, msg, "📅")
}
