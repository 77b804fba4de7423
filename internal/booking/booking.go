package booking

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/avstrong/hotelbooking/internal/catalog"
	"github.com/avstrong/hotelbooking/internal/clock"
	"github.com/avstrong/hotelbooking/internal/logger"
)

// maxIDAttempts bounds how many colliding ids are skipped before giving up.
const maxIDAttempts = 16

type idGenerator interface {
	GetID(ctx context.Context) (int, error)
}

// idAdvancer is implemented by generators that can skip past ids already in use.
type idAdvancer interface {
	Advance(minID int)
}

type storage interface {
	Load(ctx context.Context) ([]Booking, error)
	Save(ctx context.Context, bookings []Booking) error
}

type publisher interface {
	Publish(ctx context.Context, event Event) error
}

type recorder interface {
	BookingCreated()
	BookingCancelled()
	PersistFailed(operation string)
}

type Config struct {
	L           *logger.Logger
	Storage     storage
	IDGenerator idGenerator
	Clock       clock.Clock
	// Location defines the calendar day treated as today. UTC when nil.
	Location  *time.Location
	RoomTypes []string

	Publisher publisher
	Recorder  recorder
	Tracer    trace.Tracer
}

// Manager owns the booking collection and is the only writer of its persisted copy.
// Every mutation is persisted before it becomes visible.
type Manager struct {
	mu          sync.Mutex
	l           *logger.Logger
	storage     storage
	idGenerator idGenerator
	clock       clock.Clock
	location    *time.Location
	validator   *inputValidator
	publisher   publisher
	recorder    recorder
	tracer      trace.Tracer

	bookings    []Booking
	index       map[int]int
	idempotency map[string]int
}

// New builds a Manager and loads whatever the storage holds. Missing or unreadable
// data leaves the manager empty; it never fails startup.
func New(ctx context.Context, conf Config) (*Manager, error) {
	if conf.L == nil || conf.Storage == nil || conf.IDGenerator == nil {
		return nil, errors.New("booking manager requires a logger, a storage and an id generator")
	}

	v, err := newInputValidator(conf.RoomTypes)
	if err != nil {
		return nil, err
	}

	m := &Manager{
		l:           conf.L,
		storage:     conf.Storage,
		idGenerator: conf.IDGenerator,
		clock:       conf.Clock,
		location:    conf.Location,
		validator:   v,
		publisher:   conf.Publisher,
		recorder:    conf.Recorder,
		tracer:      conf.Tracer,
		index:       make(map[int]int),
		idempotency: make(map[string]int),
	}

	if m.clock == nil {
		m.clock = clock.System{}
	}

	if m.tracer == nil {
		m.tracer = noop.NewTracerProvider().Tracer("booking")
	}

	m.load(ctx)

	return m, nil
}

func (m *Manager) load(ctx context.Context) {
	loaded, err := m.storage.Load(ctx)
	if err != nil {
		m.l.LogWarnf("Could not load persisted bookings, starting empty: %v", err.Error())

		return
	}

	index := make(map[int]int, len(loaded))
	maxID := 0

	for i, b := range loaded {
		if _, dup := index[b.ID]; dup {
			m.l.LogWarnf("Persisted bookings contain duplicate id %d, starting empty", b.ID)

			return
		}

		index[b.ID] = i
		maxID = max(maxID, b.ID)
	}

	m.bookings = loaded
	m.index = index

	if adv, ok := m.idGenerator.(idAdvancer); ok {
		adv.Advance(maxID)
	}

	m.l.LogInfo("Loaded %d persisted bookings", len(loaded))
}

func (m *Manager) today() Date {
	return DateOf(clock.Today(m.clock, m.location))
}

// ValidateStay checks a requested date range against today.
func (m *Manager) ValidateStay(checkIn, checkOut Date) error {
	return ValidateStay(checkIn, checkOut, m.today())
}

// Quote prices a stay without booking it.
func (m *Manager) Quote(hotel catalog.Hotel, checkIn, checkOut Date) (Quote, error) {
	if err := m.ValidateStay(checkIn, checkOut); err != nil {
		return Quote{}, err
	}

	return Price(hotel, checkIn, checkOut)
}

func (m *Manager) validate(input *CreateInput) error {
	input.Guest.Name = strings.TrimSpace(input.Guest.Name)
	input.Guest.Email = strings.TrimSpace(input.Guest.Email)
	input.Guest.Phone = strings.TrimSpace(input.Guest.Phone)
	input.RoomType = strings.TrimSpace(input.RoomType)

	inputErr := NewValidationError()

	if err := m.validator.check(input); err != nil {
		fieldsErr := IsValidationError(err)
		if fieldsErr == nil {
			return err
		}

		inputErr.merge(fieldsErr)
	}

	if stayErr := IsValidationError(m.ValidateStay(input.CheckIn, input.CheckOut)); stayErr != nil {
		inputErr.merge(stayErr)
	}

	return inputErr.orNil()
}

func (m *Manager) nextID(ctx context.Context) (int, error) {
	for range maxIDAttempts {
		id, err := m.idGenerator.GetID(ctx)
		if err != nil {
			return 0, fmt.Errorf("%w: %w", ErrNextID, err)
		}

		if _, taken := m.index[id]; !taken {
			return id, nil
		}
	}

	return 0, fmt.Errorf("%w: %d consecutive ids already in use", ErrNextID, maxIDAttempts)
}

// commit persists next and only then makes it the current collection.
func (m *Manager) commit(ctx context.Context, operation string, next []Booking) error {
	if err := m.storage.Save(ctx, next); err != nil {
		if m.recorder != nil {
			m.recorder.PersistFailed(operation)
		}

		m.l.LogErrorf("Could not persist bookings on %s: %v", operation, err.Error())

		return fmt.Errorf("%w: %w", ErrPersist, err)
	}

	index := make(map[int]int, len(next))
	for i, b := range next {
		index[b.ID] = i
	}

	m.bookings = next
	m.index = index

	return nil
}

// publish is called after m.mu is released.
func (m *Manager) publish(ctx context.Context, eventType EventType, b Booking) {
	if m.publisher == nil {
		return
	}

	event := Event{
		Type:       eventType,
		BookingID:  b.ID,
		OccurredAt: m.clock.Now().UTC(),
		Booking:    b,
	}

	if err := m.publisher.Publish(ctx, event); err != nil {
		m.l.LogErrorf("Could not publish %s event for booking %d: %v", eventType, b.ID, err.Error())
	}
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}

	span.End()
}

// bookingForKeyLocked returns the booking first created under an idempotency key.
// The caller holds m.mu.
func (m *Manager) bookingForKeyLocked(key string) (Booking, bool) {
	id, seen := m.idempotency[key]
	if !seen {
		return Booking{}, false
	}

	idx, ok := m.index[id]
	if !ok {
		return Booking{}, false
	}

	return m.bookings[idx], true
}

func (m *Manager) replayed(ctx context.Context) (Booking, bool) {
	key, ok := IdempotencyKeyFromContext(ctx)
	if !ok {
		return Booking{}, false
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	return m.bookingForKeyLocked(key)
}

// Create validates the input, prices the stay and persists the new booking before
// returning it. A repeated idempotency key returns the first booking without
// validating again, so a retry after the check-in day has passed still succeeds.
func (m *Manager) Create(ctx context.Context, input CreateInput) (_ Booking, err error) {
	ctx, span := m.tracer.Start(ctx, "booking.Create",
		trace.WithAttributes(attribute.Int("hotel.id", input.Hotel.ID)))
	defer func() { endSpan(span, err) }()

	if b, ok := m.replayed(ctx); ok {
		m.l.LogInfo("Booking %d returned for repeated idempotency key", b.ID)

		return b, nil
	}

	if err = m.validate(&input); err != nil {
		return Booking{}, err
	}

	quote, err := Price(input.Hotel, input.CheckIn, input.CheckOut)
	if err != nil {
		return Booking{}, err
	}

	b, created, err := m.insert(ctx, input, quote)
	if err != nil {
		return Booking{}, err
	}

	span.SetAttributes(attribute.Int("booking.id", b.ID))

	if created {
		m.publish(ctx, EventCreated, b)
	}

	return b, nil
}

// insert appends and persists a booking under the lock. created is false when a
// concurrent request with the same idempotency key got there first.
func (m *Manager) insert(ctx context.Context, input CreateInput, quote Quote) (_ Booking, created bool, _ error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	key, hasKey := IdempotencyKeyFromContext(ctx)
	if hasKey {
		if b, ok := m.bookingForKeyLocked(key); ok {
			return b, false, nil
		}
	}

	id, err := m.nextID(ctx)
	if err != nil {
		return Booking{}, false, err
	}

	b := Booking{
		ID:            id,
		HotelID:       input.Hotel.ID,
		HotelName:     input.Hotel.Name,
		HotelLocation: input.Hotel.Location,
		GuestName:     input.Guest.Name,
		GuestEmail:    input.Guest.Email,
		GuestPhone:    input.Guest.Phone,
		RoomType:      input.RoomType,
		CheckIn:       input.CheckIn,
		CheckOut:      input.CheckOut,
		Guests:        GuestCount(input.Guests),
		CreatedAt:     m.clock.Now().UTC(),
		Status:        StatusConfirmed,
		TotalPrice:    quote.TotalPrice,
		Nights:        quote.Nights,
	}

	next := append(slices.Clone(m.bookings), b)
	if err = m.commit(ctx, "create", next); err != nil {
		return Booking{}, false, fmt.Errorf("save booking %d: %w", id, err)
	}

	if hasKey {
		m.idempotency[key] = id
	}

	if m.recorder != nil {
		m.recorder.BookingCreated()
	}

	m.l.LogInfo("Booking %d created for hotel %d, %d nights, total %.2f", id, b.HotelID, b.Nights, b.TotalPrice)

	return b, true, nil
}

// List returns every booking, cancelled ones included, in creation order.
func (m *Manager) List(ctx context.Context) []Booking {
	_, span := m.tracer.Start(ctx, "booking.List")
	defer span.End()

	m.mu.Lock()
	defer m.mu.Unlock()

	return slices.Clone(m.bookings)
}

func (m *Manager) Get(ctx context.Context, id int) (_ Booking, err error) {
	_, span := m.tracer.Start(ctx, "booking.Get", trace.WithAttributes(attribute.Int("booking.id", id)))
	defer func() { endSpan(span, err) }()

	m.mu.Lock()
	defer m.mu.Unlock()

	idx, ok := m.index[id]
	if !ok {
		return Booking{}, fmt.Errorf("booking %d: %w", id, ErrNotFound)
	}

	return m.bookings[idx], nil
}

// Cancel moves a confirmed booking to cancelled and persists it. Cancelling a
// booking that is already cancelled returns it unchanged.
func (m *Manager) Cancel(ctx context.Context, id int) (_ Booking, err error) {
	ctx, span := m.tracer.Start(ctx, "booking.Cancel", trace.WithAttributes(attribute.Int("booking.id", id)))
	defer func() { endSpan(span, err) }()

	b, changed, err := m.cancel(ctx, id)
	if err != nil {
		return Booking{}, err
	}

	if changed {
		m.publish(ctx, EventCancelled, b)
	}

	return b, nil
}

func (m *Manager) cancel(ctx context.Context, id int) (_ Booking, changed bool, _ error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	idx, ok := m.index[id]
	if !ok {
		return Booking{}, false, fmt.Errorf("booking %d: %w", id, ErrNotFound)
	}

	if m.bookings[idx].Status == StatusCancelled {
		return m.bookings[idx], false, nil
	}

	next := slices.Clone(m.bookings)
	next[idx].Status = StatusCancelled

	if err := m.commit(ctx, "cancel", next); err != nil {
		return Booking{}, false, fmt.Errorf("cancel booking %d: %w", id, err)
	}

	if m.recorder != nil {
		m.recorder.BookingCancelled()
	}

	m.l.LogInfo("Booking %d cancelled", id)

	return next[idx], true, nil
}
