package booking_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/avstrong/hotelbooking/internal/booking"
	"github.com/avstrong/hotelbooking/internal/catalog"
	"github.com/avstrong/hotelbooking/internal/clock"
	"github.com/avstrong/hotelbooking/internal/idgen/simple"
	"github.com/avstrong/hotelbooking/internal/logger"
	"github.com/avstrong/hotelbooking/internal/storage/memory"
)

var now = time.Date(2024, time.May, 1, 12, 0, 0, 0, time.UTC)

type slotStore interface {
	Load(ctx context.Context) ([]booking.Booking, error)
	Save(ctx context.Context, bookings []booking.Booking) error
}

type flakyStorage struct {
	*memory.DB
	fail error
}

func (f *flakyStorage) Save(ctx context.Context, bookings []booking.Booking) error {
	if f.fail != nil {
		return f.fail
	}

	return f.DB.Save(ctx, bookings)
}

type fakePublisher struct {
	mu     sync.Mutex
	events []booking.Event
	err    error
}

func (p *fakePublisher) Publish(_ context.Context, e booking.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.events = append(p.events, e)

	return p.err
}

type fakeRecorder struct {
	created, cancelled int
	failed             []string
}

func (r *fakeRecorder) BookingCreated()         { r.created++ }
func (r *fakeRecorder) BookingCancelled()       { r.cancelled++ }
func (r *fakeRecorder) PersistFailed(op string) { r.failed = append(r.failed, op) }

// fixedIDs replays a scripted id sequence.
type fixedIDs struct {
	ids []int
}

func (g *fixedIDs) GetID(_ context.Context) (int, error) {
	if len(g.ids) == 0 {
		return 0, errors.New("exhausted")
	}

	id := g.ids[0]
	g.ids = g.ids[1:]

	return id, nil
}

func newDB() *memory.DB {
	return memory.New(memory.Config{L: logger.NewNop(), Slot: "bookings"})
}

func newManager(t *testing.T, st slotStore, opts ...func(*booking.Config)) *booking.Manager {
	t.Helper()

	conf := booking.Config{
		L:           logger.NewNop(),
		Storage:     st,
		IDGenerator: simple.New(),
		Clock:       clock.Fixed(now),
		RoomTypes:   []string{"standard", "deluxe", "suite"},
	}

	for _, opt := range opts {
		opt(&conf)
	}

	m, err := booking.New(context.Background(), conf)
	require.NoError(t, err)

	return m
}

func hotel() catalog.Hotel {
	return catalog.Hotel{ID: 1, Name: "Grand Palace Hotel", Location: "New York", Rating: 5, PricePerNight: 100}
}

func validInput() booking.CreateInput {
	return booking.CreateInput{
		Hotel:    hotel(),
		Guest:    booking.Guest{Name: "Ada Lovelace", Email: "ada@example.com", Phone: "+15550100"},
		RoomType: "deluxe",
		CheckIn:  booking.NewDate(2024, time.June, 1),
		CheckOut: booking.NewDate(2024, time.June, 4),
		Guests:   2,
	}
}

func TestNew_requiresDependencies(t *testing.T) {
	_, err := booking.New(context.Background(), booking.Config{L: logger.NewNop()})
	require.Error(t, err)
}

func TestCreate(t *testing.T) {
	m := newManager(t, newDB())

	b, err := m.Create(context.Background(), validInput())
	require.NoError(t, err)

	assert.Equal(t, 1, b.ID)
	assert.Equal(t, 3, b.Nights)
	assert.InDelta(t, 300.0, b.TotalPrice, 0)
	assert.Equal(t, booking.StatusConfirmed, b.Status)
	assert.Equal(t, 1, b.HotelID)
	assert.Equal(t, "Grand Palace Hotel", b.HotelName)
	assert.Equal(t, "New York", b.HotelLocation)
	assert.Equal(t, "Ada Lovelace", b.GuestName)
	assert.Equal(t, "deluxe", b.RoomType)
	assert.Equal(t, booking.GuestCount(2), b.Guests)
	assert.Equal(t, now, b.CreatedAt)

	list := m.List(context.Background())
	require.Len(t, list, 1)
	assert.Equal(t, b, list[0])
}

func TestCreate_trimsGuestFields(t *testing.T) {
	m := newManager(t, newDB())

	input := validInput()
	input.Guest.Name = "  Ada  "
	input.RoomType = " suite "

	b, err := m.Create(context.Background(), input)
	require.NoError(t, err)
	assert.Equal(t, "Ada", b.GuestName)
	assert.Equal(t, "suite", b.RoomType)
}

func TestCreate_returnsCopy(t *testing.T) {
	m := newManager(t, newDB())

	b, err := m.Create(context.Background(), validInput())
	require.NoError(t, err)

	b.Status = booking.StatusCancelled
	b.TotalPrice = 1

	stored, err := m.Get(context.Background(), b.ID)
	require.NoError(t, err)
	assert.Equal(t, booking.StatusConfirmed, stored.Status)
	assert.InDelta(t, 300.0, stored.TotalPrice, 0)

	list := m.List(context.Background())
	list[0].GuestName = "mutated"
	assert.Equal(t, "Ada Lovelace", m.List(context.Background())[0].GuestName)
}

func TestCreate_snapshotsHotelPrice(t *testing.T) {
	m := newManager(t, newDB())
	ctx := context.Background()

	first, err := m.Create(ctx, validInput())
	require.NoError(t, err)

	repriced := validInput()
	repriced.Hotel.PricePerNight = 150
	repriced.Hotel.Name = "Grand Palace Hotel & Spa"

	second, err := m.Create(ctx, repriced)
	require.NoError(t, err)
	assert.InDelta(t, 450.0, second.TotalPrice, 0)

	again, err := m.Get(ctx, first.ID)
	require.NoError(t, err)
	assert.InDelta(t, 300.0, again.TotalPrice, 0)
	assert.Equal(t, "Grand Palace Hotel", again.HotelName)
}

func TestCreate_validation(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(*booking.CreateInput)
		field     string
		dateRange bool
	}{
		{
			name:   "empty guest name",
			mutate: func(in *booking.CreateInput) { in.Guest.Name = "" },
			field:  "guestName",
		},
		{
			name:   "blank guest name",
			mutate: func(in *booking.CreateInput) { in.Guest.Name = "   " },
			field:  "guestName",
		},
		{
			name:   "no guests",
			mutate: func(in *booking.CreateInput) { in.Guests = 0 },
			field:  "guests",
		},
		{
			name:   "negative guests",
			mutate: func(in *booking.CreateInput) { in.Guests = -1 },
			field:  "guests",
		},
		{
			name:   "unknown room type",
			mutate: func(in *booking.CreateInput) { in.RoomType = "penthouse" },
			field:  "roomType",
		},
		{
			name:   "missing room type",
			mutate: func(in *booking.CreateInput) { in.RoomType = "" },
			field:  "roomType",
		},
		{
			name:   "no hotel",
			mutate: func(in *booking.CreateInput) { in.Hotel = catalog.Hotel{} },
			field:  "hotelId",
		},
		{
			name:   "missing check-in",
			mutate: func(in *booking.CreateInput) { in.CheckIn = booking.Date{} },
			field:  "checkin",
		},
		{
			name:   "missing check-out",
			mutate: func(in *booking.CreateInput) { in.CheckOut = booking.Date{} },
			field:  "checkout",
		},
		{
			name: "reversed range",
			mutate: func(in *booking.CreateInput) {
				in.CheckIn = booking.NewDate(2024, time.June, 4)
				in.CheckOut = booking.NewDate(2024, time.June, 1)
			},
			field:     "checkout",
			dateRange: true,
		},
		{
			name: "same day",
			mutate: func(in *booking.CreateInput) {
				in.CheckOut = in.CheckIn
			},
			field:     "checkout",
			dateRange: true,
		},
		{
			name: "check-in in the past",
			mutate: func(in *booking.CreateInput) {
				in.CheckIn = booking.NewDate(2024, time.April, 30)
			},
			field: "checkin",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db := newDB()
			m := newManager(t, db)

			input := validInput()
			tt.mutate(&input)

			_, err := m.Create(context.Background(), input)
			require.Error(t, err)

			inputErr := booking.IsValidationError(err)
			require.NotNil(t, inputErr, "want a validation error, got %v", err)
			assert.Contains(t, inputErr.Fields(), tt.field)

			if tt.dateRange {
				require.ErrorIs(t, err, booking.ErrInvalidDateRange)
			}

			assert.Empty(t, m.List(context.Background()))

			_, saved := db.Raw("bookings")
			assert.False(t, saved, "nothing must be persisted for rejected input")
		})
	}
}

func TestCreate_reportsEveryInvalidField(t *testing.T) {
	m := newManager(t, newDB())

	input := validInput()
	input.Guest.Name = ""
	input.Guests = 0
	input.CheckIn, input.CheckOut = input.CheckOut, input.CheckIn

	_, err := m.Create(context.Background(), input)

	inputErr := booking.IsValidationError(err)
	require.NotNil(t, inputErr)
	assert.Len(t, inputErr.Fields(), 3)
	require.ErrorIs(t, err, booking.ErrInvalidDateRange)
}

func TestCancel(t *testing.T) {
	m := newManager(t, newDB())
	ctx := context.Background()

	created, err := m.Create(ctx, validInput())
	require.NoError(t, err)

	cancelled, err := m.Cancel(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, booking.StatusCancelled, cancelled.Status)
	assert.Equal(t, created.ID, cancelled.ID)
	assert.InDelta(t, created.TotalPrice, cancelled.TotalPrice, 0)

	list := m.List(ctx)
	require.Len(t, list, 1, "cancellation keeps the record")
	assert.Equal(t, booking.StatusCancelled, list[0].Status)
}

func TestCancel_isIdempotent(t *testing.T) {
	db := newDB()
	rec := &fakeRecorder{}
	pub := &fakePublisher{}
	m := newManager(t, db, func(c *booking.Config) {
		c.Recorder = rec
		c.Publisher = pub
	})
	ctx := context.Background()

	created, err := m.Create(ctx, validInput())
	require.NoError(t, err)

	once, err := m.Cancel(ctx, created.ID)
	require.NoError(t, err)

	stateAfterOnce := m.List(ctx)
	rawAfterOnce, _ := db.Raw("bookings")

	twice, err := m.Cancel(ctx, created.ID)
	require.NoError(t, err)

	assert.Equal(t, once, twice)
	assert.Equal(t, stateAfterOnce, m.List(ctx))

	rawAfterTwice, _ := db.Raw("bookings")
	assert.Equal(t, rawAfterOnce, rawAfterTwice)
	assert.Equal(t, 1, rec.cancelled)
	assert.Len(t, pub.events, 2, "one created and one cancelled event")
}

func TestCancel_notFound(t *testing.T) {
	m := newManager(t, newDB())

	_, err := m.Cancel(context.Background(), 999)
	require.ErrorIs(t, err, booking.ErrNotFound)

	_, err = m.Get(context.Background(), 999)
	require.ErrorIs(t, err, booking.ErrNotFound)
}

func TestPersistence_roundTrip(t *testing.T) {
	db := newDB()
	ctx := context.Background()

	first := newManager(t, db)

	a, err := first.Create(ctx, validInput())
	require.NoError(t, err)

	b, err := first.Create(ctx, validInput())
	require.NoError(t, err)

	_, err = first.Cancel(ctx, a.ID)
	require.NoError(t, err)

	before := first.List(ctx)

	reloaded := newManager(t, db)
	assert.Equal(t, before, reloaded.List(ctx))

	c, err := reloaded.Create(ctx, validInput())
	require.NoError(t, err)
	assert.Greater(t, c.ID, b.ID, "ids continue after the persisted ones")
}

func TestLoad_fallsBackToEmpty(t *testing.T) {
	tests := []struct {
		name    string
		payload string
	}{
		{name: "corrupt json", payload: "{not json"},
		{name: "duplicate ids", payload: `[{"id":1,"status":"confirmed"},{"id":1,"status":"cancelled"}]`},
		{name: "unknown status", payload: `[{"id":1,"status":"archived"}]`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db := newDB()
			db.Put("bookings", []byte(tt.payload))

			m := newManager(t, db)
			assert.Empty(t, m.List(context.Background()))

			_, err := m.Create(context.Background(), validInput())
			require.NoError(t, err)
		})
	}
}

func TestLoad_legacyPayload(t *testing.T) {
	db := newDB()
	db.Put("bookings", []byte(`[{"id":1718000000000,"hotelId":2,"hotelName":"Ocean View Resort",
		"hotelLocation":"Miami","guestName":"Bo","guestEmail":"","guestPhone":"","roomType":"deluxe",
		"checkin":"2024-06-01","checkout":"2024-06-03","guests":"3",
		"bookingDate":"2024-05-20T08:00:00.000Z","status":"confirmed","totalPrice":398,"nights":2}]`))

	m := newManager(t, db)
	ctx := context.Background()

	list := m.List(ctx)
	require.Len(t, list, 1)
	assert.Equal(t, booking.GuestCount(3), list[0].Guests)

	cancelled, err := m.Cancel(ctx, 1718000000000)
	require.NoError(t, err)
	assert.Equal(t, booking.StatusCancelled, cancelled.Status)

	created, err := m.Create(ctx, validInput())
	require.NoError(t, err)
	assert.Greater(t, created.ID, 1718000000000)
}

func TestCreate_writeFailureLeavesStateUnchanged(t *testing.T) {
	st := &flakyStorage{DB: newDB(), fail: errors.New("disk full")}
	rec := &fakeRecorder{}
	pub := &fakePublisher{}
	m := newManager(t, st, func(c *booking.Config) {
		c.Recorder = rec
		c.Publisher = pub
	})
	ctx := context.Background()

	_, err := m.Create(ctx, validInput())
	require.ErrorIs(t, err, booking.ErrPersist)
	assert.Empty(t, m.List(ctx))
	assert.Equal(t, []string{"create"}, rec.failed)
	assert.Empty(t, pub.events)

	st.fail = nil

	b, err := m.Create(ctx, validInput())
	require.NoError(t, err)
	assert.Len(t, m.List(ctx), 1)

	persisted, err := st.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, []booking.Booking{b}, persisted)
}

func TestCancel_writeFailureLeavesStateUnchanged(t *testing.T) {
	st := &flakyStorage{DB: newDB()}
	m := newManager(t, st)
	ctx := context.Background()

	b, err := m.Create(ctx, validInput())
	require.NoError(t, err)

	st.fail = errors.New("disk full")

	_, err = m.Cancel(ctx, b.ID)
	require.ErrorIs(t, err, booking.ErrPersist)

	got, err := m.Get(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, booking.StatusConfirmed, got.Status)

	persisted, err := st.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, booking.StatusConfirmed, persisted[0].Status)
}

func TestCreate_idsAreUnique(t *testing.T) {
	m := newManager(t, newDB())
	ctx := context.Background()

	seen := make(map[int]struct{})

	for range 50 {
		b, err := m.Create(ctx, validInput())
		require.NoError(t, err)

		_, dup := seen[b.ID]
		require.False(t, dup, "id %d handed out twice", b.ID)
		seen[b.ID] = struct{}{}
	}
}

func TestCreate_skipsIDsAlreadyInUse(t *testing.T) {
	db := newDB()
	db.Put("bookings", []byte(`[{"id":1,"status":"confirmed"},{"id":2,"status":"confirmed"}]`))

	m := newManager(t, db, func(c *booking.Config) {
		c.IDGenerator = &fixedIDs{ids: []int{1, 2, 7}}
	})

	b, err := m.Create(context.Background(), validInput())
	require.NoError(t, err)
	assert.Equal(t, 7, b.ID)

	_, err = m.Create(context.Background(), validInput())
	require.ErrorIs(t, err, booking.ErrNextID)
	assert.Len(t, m.List(context.Background()), 3)
}

func TestCreate_concurrent(t *testing.T) {
	m := newManager(t, newDB())

	const workers = 20

	var wg sync.WaitGroup

	for range workers {
		wg.Add(1)

		go func() {
			defer wg.Done()

			if _, err := m.Create(context.Background(), validInput()); err != nil {
				t.Error(err)
			}
		}()
	}

	wg.Wait()

	list := m.List(context.Background())
	require.Len(t, list, workers)

	ids := make(map[int]struct{}, workers)
	for _, b := range list {
		ids[b.ID] = struct{}{}
	}

	assert.Len(t, ids, workers)
}

func TestCreate_idempotencyKey(t *testing.T) {
	m := newManager(t, newDB())
	ctx := booking.NewContextWithIdempotencyKey(context.Background(), "form-submit-1")

	first, err := m.Create(ctx, validInput())
	require.NoError(t, err)

	second, err := m.Create(ctx, validInput())
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Len(t, m.List(ctx), 1)

	other, err := m.Create(booking.NewContextWithIdempotencyKey(context.Background(), "form-submit-2"), validInput())
	require.NoError(t, err)
	assert.NotEqual(t, first.ID, other.ID)
}

// settableClock reports whatever instant the test last set.
type settableClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *settableClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.t
}

func (c *settableClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.t = t
}

func TestCreate_idempotencyKeyReplaysAfterCheckInPassed(t *testing.T) {
	clk := &settableClock{t: now}
	m := newManager(t, newDB(), func(c *booking.Config) { c.Clock = clk })
	ctx := booking.NewContextWithIdempotencyKey(context.Background(), "form-submit-1")

	input := validInput()
	input.CheckIn = booking.NewDate(2024, time.May, 2)
	input.CheckOut = booking.NewDate(2024, time.May, 4)

	first, err := m.Create(ctx, input)
	require.NoError(t, err)

	clk.Set(now.AddDate(0, 0, 5))

	second, err := m.Create(ctx, input)
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Len(t, m.List(ctx), 1)

	_, err = m.Create(context.Background(), input)
	require.NotNil(t, booking.IsValidationError(err))
}

// blockingPublisher holds every Publish call until release is closed.
type blockingPublisher struct {
	started chan struct{}
	release chan struct{}
}

func (p *blockingPublisher) Publish(ctx context.Context, _ booking.Event) error {
	p.started <- struct{}{}

	select {
	case <-p.release:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func TestCreate_slowPublisherDoesNotBlockReads(t *testing.T) {
	pub := &blockingPublisher{started: make(chan struct{}, 1), release: make(chan struct{})}
	m := newManager(t, newDB(), func(c *booking.Config) { c.Publisher = pub })
	ctx := context.Background()

	created := make(chan error, 1)

	go func() {
		_, err := m.Create(ctx, validInput())
		created <- err
	}()

	select {
	case <-pub.started:
	case <-time.After(time.Second):
		t.Fatal("event was not published")
	}

	listed := make(chan []booking.Booking, 1)

	go func() { listed <- m.List(ctx) }()

	select {
	case bookings := <-listed:
		assert.Len(t, bookings, 1)
	case <-time.After(time.Second):
		t.Fatal("List blocked while an event was being published")
	}

	close(pub.release)
	require.NoError(t, <-created)
}

func TestEventsAndRecorder(t *testing.T) {
	rec := &fakeRecorder{}
	pub := &fakePublisher{err: errors.New("broker down")}
	m := newManager(t, newDB(), func(c *booking.Config) {
		c.Recorder = rec
		c.Publisher = pub
	})
	ctx := context.Background()

	b, err := m.Create(ctx, validInput())
	require.NoError(t, err, "publish failures must not fail the booking")

	_, err = m.Cancel(ctx, b.ID)
	require.NoError(t, err)

	require.Len(t, pub.events, 2)
	assert.Equal(t, booking.EventCreated, pub.events[0].Type)
	assert.Equal(t, booking.EventCancelled, pub.events[1].Type)
	assert.Equal(t, b.ID, pub.events[1].BookingID)
	assert.Equal(t, booking.StatusCancelled, pub.events[1].Booking.Status)
	assert.Equal(t, now, pub.events[0].OccurredAt)

	assert.Equal(t, 1, rec.created)
	assert.Equal(t, 1, rec.cancelled)
	assert.Empty(t, rec.failed)
}

func TestQuote(t *testing.T) {
	m := newManager(t, newDB())

	q, err := m.Quote(hotel(), booking.NewDate(2024, time.June, 1), booking.NewDate(2024, time.June, 4))
	require.NoError(t, err)
	assert.Equal(t, 3, q.Nights)
	assert.InDelta(t, 100.0, q.PricePerNight, 0)
	assert.InDelta(t, 300.0, q.TotalPrice, 0)
	assert.Empty(t, m.List(context.Background()), "quoting must not book")

	_, err = m.Quote(hotel(), booking.NewDate(2024, time.April, 1), booking.NewDate(2024, time.April, 4))
	require.NotNil(t, booking.IsValidationError(err))
}

func TestValidateStay_usesLocation(t *testing.T) {
	// 2024-05-01 12:00 UTC is already 2024-05-02 in UTC+14.
	m := newManager(t, newDB(), func(c *booking.Config) {
		c.Location = time.FixedZone("LINT", 14*60*60)
	})

	err := m.ValidateStay(booking.NewDate(2024, time.May, 1), booking.NewDate(2024, time.May, 3))
	inputErr := booking.IsValidationError(err)
	require.NotNil(t, inputErr)
	assert.Contains(t, inputErr.Fields(), "checkin")

	require.NoError(t, m.ValidateStay(booking.NewDate(2024, time.May, 2), booking.NewDate(2024, time.May, 3)))
}
