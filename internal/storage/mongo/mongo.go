package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/avstrong/hotelbooking/internal/booking"
	"github.com/avstrong/hotelbooking/internal/logger"
	"github.com/avstrong/hotelbooking/internal/storage"
)

const defaultTimeout = 10 * time.Second

type Config struct {
	L          *logger.Logger
	URI        string
	Database   string
	Collection string
	Slot       string
	Timeout    time.Duration
}

// slotDocument stores the encoded payload verbatim so every backend shares one layout.
type slotDocument struct {
	Slot      string    `bson:"_id"`
	Payload   string    `bson:"payload"`
	UpdatedAt time.Time `bson:"updatedAt"`
}

type Store struct {
	l          *logger.Logger
	client     *mongo.Client
	collection *mongo.Collection
	slot       string
	timeout    time.Duration
}

func New(ctx context.Context, conf Config) (*Store, error) {
	timeout := conf.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	connectCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	client, err := mongo.Connect(connectCtx, options.Client().ApplyURI(conf.URI))
	if err != nil {
		return nil, fmt.Errorf("connect to mongo: %w", err)
	}

	if err := client.Ping(connectCtx, nil); err != nil {
		_ = client.Disconnect(context.Background())

		return nil, fmt.Errorf("ping mongo: %w", err)
	}

	conf.L.LogInfo("Connected to mongo, slot %q in %s.%s", conf.Slot, conf.Database, conf.Collection)

	return &Store{
		l:          conf.L,
		client:     client,
		collection: client.Database(conf.Database).Collection(conf.Collection),
		slot:       conf.Slot,
		timeout:    timeout,
	}, nil
}

func (s *Store) Load(ctx context.Context) ([]booking.Booking, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	var doc slotDocument

	err := s.collection.FindOne(ctx, bson.M{"_id": s.slot}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}

	if err != nil {
		return nil, fmt.Errorf("find slot %q: %w", s.slot, err)
	}

	bookings, err := storage.Decode([]byte(doc.Payload))
	if err != nil {
		return nil, fmt.Errorf("slot %q: %w", s.slot, err)
	}

	return bookings, nil
}

func (s *Store) Save(ctx context.Context, bookings []booking.Booking) error {
	raw, err := storage.Encode(bookings)
	if err != nil {
		return err //nolint:wrapcheck
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	doc := slotDocument{
		Slot:      s.slot,
		Payload:   string(raw),
		UpdatedAt: time.Now().UTC(),
	}

	_, err = s.collection.ReplaceOne(ctx, bson.M{"_id": s.slot}, doc, options.Replace().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("upsert slot %q: %w", s.slot, err)
	}

	return nil
}

func (s *Store) Close(ctx context.Context) error {
	if err := s.client.Disconnect(ctx); err != nil {
		return fmt.Errorf("disconnect from mongo: %w", err)
	}

	return nil
}
