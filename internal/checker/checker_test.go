package checker

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"no-lights-dtek/internal/dtek"
	"no-lights-dtek/internal/models"
	"no-lights-dtek/internal/registry"
	"no-lights-dtek/internal/tracker"
)

type fakeRegistry struct {
	states  map[int64]*tracker.SubscriberState
	order   []int64
	listErr error
	saveErr error
}

func newFakeRegistry() *fakeRegistry {
	return &fakeRegistry{states: map[int64]*tracker.SubscriberState{}}
}

func (r *fakeRegistry) add(id int64, addr dtek.Address) {
	s := tracker.NewSubscriberState(addr, time.Date(2025, 11, 1, 0, 0, 0, 0, time.UTC))
	r.states[id] = &s
	r.order = append(r.order, id)
}

func (r *fakeRegistry) List(context.Context) ([]int64, error) {
	return r.order, r.listErr
}

func (r *fakeRegistry) Get(_ context.Context, id int64) (*tracker.SubscriberState, error) {
	s, ok := r.states[id]
	if !ok {
		return nil, registry.ErrNotFound
	}
	cp := *s
	return &cp, nil
}

func (r *fakeRegistry) Save(_ context.Context, id int64, state tracker.SubscriberState) error {
	if r.saveErr != nil {
		return r.saveErr
	}
	r.states[id] = &state
	return nil
}

// fakeScraper answers by street name and tracks that sessions never overlap.
type fakeScraper struct {
	status  map[string]dtek.StatusKind
	errs    map[string]error
	calls   []string
	active  int
	overlap bool
	onCall  func()
}

func (s *fakeScraper) ResolveAndExtract(ctx context.Context, addr dtek.Address) (*dtek.ScrapeResult, error) {
	s.active++
	defer func() { s.active-- }()
	if s.active > 1 {
		s.overlap = true
	}
	s.calls = append(s.calls, addr.Street)
	if s.onCall != nil {
		s.onCall()
	}
	if err := s.errs[addr.Street]; err != nil {
		return nil, err
	}
	if _, ok := ctx.Deadline(); !ok {
		return nil, errors.New("no deadline on check context")
	}
	group := "Черга 2.1"
	text := "м. Київ, вул. " + addr.Street
	return &dtek.ScrapeResult{
		Current:         dtek.OutageStatus{Status: s.status[addr.Street]},
		GroupName:       &group,
		ResolvedAddress: dtek.ResolvedAddress{Text: &text},
	}, nil
}

type sent struct {
	id   int64
	text string
}

type fakeNotifier struct {
	sent []sent
	err  error
}

func (n *fakeNotifier) Notify(_ context.Context, id int64, text string) error {
	if n.err != nil {
		return n.err
	}
	n.sent = append(n.sent, sent{id, text})
	return nil
}

type fakeEvents struct {
	events []*models.StatusEvent
}

func (e *fakeEvents) RecordStatusEvent(_ context.Context, ev *models.StatusEvent) error {
	e.events = append(e.events, ev)
	return nil
}

func addrOn(street string) dtek.Address {
	return dtek.Address{City: "Київ", Street: street, House: "1"}
}

func newTestChecker(reg *fakeRegistry, sc *fakeScraper, n *fakeNotifier, opts Options) (*Checker, *clockwork.FakeClock) {
	clock := clockwork.NewFakeClockAt(time.Date(2025, 11, 3, 10, 0, 0, 0, time.UTC))
	opts.Clock = clock
	return New(sc, reg, n, opts), clock
}

func TestRunBatch_FirstCheckIsSilentByDefault(t *testing.T) {
	reg := newFakeRegistry()
	reg.add(1, addrOn("Хрещатик"))
	sc := &fakeScraper{status: map[string]dtek.StatusKind{"Хрещатик": dtek.StatusOn}}
	n := &fakeNotifier{}
	events := &fakeEvents{}
	c, clock := newTestChecker(reg, sc, n, Options{Events: events})

	stats, err := c.RunBatch(context.Background())
	require.NoError(t, err)
	assert.Equal(t, BatchStats{Checked: 1, Changed: 1}, stats)
	assert.Empty(t, n.sent)
	require.Len(t, events.events, 1)
	assert.Equal(t, "ON", events.events[0].Status)

	state := reg.states[1]
	require.NotNil(t, state.LastStatus)
	assert.Equal(t, dtek.StatusOn, *state.LastStatus)
	assert.Equal(t, clock.Now(), *state.LastCheckedAt)
}

func TestRunBatch_NotifyFirstCheck(t *testing.T) {
	reg := newFakeRegistry()
	reg.add(1, addrOn("Хрещатик"))
	sc := &fakeScraper{status: map[string]dtek.StatusKind{"Хрещатик": dtek.StatusOff}}
	n := &fakeNotifier{}
	c, _ := newTestChecker(reg, sc, n, Options{NotifyFirstCheck: true})

	stats, err := c.RunBatch(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Notified)
	require.Len(t, n.sent, 1)
	assert.Contains(t, n.sent[0].text, "Світла немає")
}

func TestRunBatch_NotifiesOnTransition(t *testing.T) {
	reg := newFakeRegistry()
	reg.add(1, addrOn("Хрещатик"))
	sc := &fakeScraper{status: map[string]dtek.StatusKind{"Хрещатик": dtek.StatusOn}}
	n := &fakeNotifier{}
	c, clock := newTestChecker(reg, sc, n, Options{ViewerURL: "https://viewer.example"})
	ctx := context.Background()

	_, err := c.RunBatch(ctx)
	require.NoError(t, err)

	clock.Advance(90 * time.Minute)
	stats, err := c.RunBatch(ctx)
	require.NoError(t, err)
	assert.Equal(t, BatchStats{Checked: 1}, stats)

	clock.Advance(30 * time.Minute)
	sc.status["Хрещатик"] = dtek.StatusOff
	stats, err = c.RunBatch(ctx)
	require.NoError(t, err)
	assert.Equal(t, BatchStats{Checked: 1, Changed: 1, Notified: 1}, stats)

	require.Len(t, n.sent, 1)
	assert.Equal(t, int64(1), n.sent[0].id)
	assert.Contains(t, n.sent[0].text, "Світло було 2 год")
	assert.Contains(t, n.sent[0].text, "viewer.example")
}

func TestRunBatch_IsolatesFailures(t *testing.T) {
	reg := newFakeRegistry()
	reg.add(1, addrOn("Хрещатик"))
	reg.add(2, addrOn("Неіснуюча"))
	reg.add(3, addrOn("Січових Стрільців"))
	reg.order = append(reg.order, 99) // listed but missing

	sc := &fakeScraper{
		status: map[string]dtek.StatusKind{"Хрещатик": dtek.StatusOn, "Січових Стрільців": dtek.StatusOff},
		errs: map[string]error{
			"Неіснуюча": &dtek.AddressNotResolvedError{Field: dtek.FieldStreet, Err: errors.New("no suggestions")},
		},
	}
	c, _ := newTestChecker(reg, sc, &fakeNotifier{}, Options{})

	stats, err := c.RunBatch(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, stats.Checked)
	assert.Equal(t, 2, stats.Failed)
	assert.Equal(t, []string{"Хрещатик", "Неіснуюча", "Січових Стрільців"}, sc.calls)
	assert.False(t, sc.overlap)

	// The failed subscriber keeps its previous snapshot.
	assert.Nil(t, reg.states[2].LastStatus)
	assert.Nil(t, reg.states[2].LastCheckedAt)
}

func TestRunBatch_NotifyErrorDoesNotFail(t *testing.T) {
	reg := newFakeRegistry()
	reg.add(1, addrOn("Хрещатик"))
	sc := &fakeScraper{status: map[string]dtek.StatusKind{"Хрещатик": dtek.StatusOff}}
	n := &fakeNotifier{err: errors.New("bot blocked by user")}
	c, _ := newTestChecker(reg, sc, n, Options{NotifyFirstCheck: true})

	stats, err := c.RunBatch(context.Background())
	require.NoError(t, err)
	assert.Equal(t, BatchStats{Checked: 1, Changed: 1}, stats)
}

func TestRunBatch_SaveErrorCountsAsFailure(t *testing.T) {
	reg := newFakeRegistry()
	reg.add(1, addrOn("Хрещатик"))
	reg.saveErr = errors.New("redis down")
	sc := &fakeScraper{status: map[string]dtek.StatusKind{"Хрещатик": dtek.StatusOn}}
	n := &fakeNotifier{}
	c, _ := newTestChecker(reg, sc, n, Options{NotifyFirstCheck: true})

	stats, err := c.RunBatch(context.Background())
	require.NoError(t, err)
	assert.Equal(t, BatchStats{Failed: 1}, stats)
	assert.Empty(t, n.sent)
}

func TestRunBatch_ListError(t *testing.T) {
	reg := newFakeRegistry()
	reg.listErr = errors.New("redis down")
	c, _ := newTestChecker(reg, &fakeScraper{}, &fakeNotifier{}, Options{})

	_, err := c.RunBatch(context.Background())
	assert.Error(t, err)
}

func TestRunBatch_StopsOnCancel(t *testing.T) {
	reg := newFakeRegistry()
	reg.add(1, addrOn("Хрещатик"))
	reg.add(2, addrOn("Басейна"))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sc := &fakeScraper{
		status: map[string]dtek.StatusKind{"Хрещатик": dtek.StatusOn, "Басейна": dtek.StatusOn},
		onCall: cancel,
	}
	c, _ := newTestChecker(reg, sc, &fakeNotifier{}, Options{})

	stats, err := c.RunBatch(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, []string{"Хрещатик"}, sc.calls)
	assert.Equal(t, BatchStats{Checked: 1, Changed: 1}, stats)
}
