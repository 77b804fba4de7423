package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"

	"go.opentelemetry.io/otel"

	"github.com/avstrong/hotelbooking/internal/booking"
	"github.com/avstrong/hotelbooking/internal/config"
	"github.com/avstrong/hotelbooking/internal/events/kafka"
	"github.com/avstrong/hotelbooking/internal/idgen/simple"
	"github.com/avstrong/hotelbooking/internal/logger"
	"github.com/avstrong/hotelbooking/internal/metrics"
	"github.com/avstrong/hotelbooking/internal/migration"
	"github.com/avstrong/hotelbooking/internal/storage/file"
	"github.com/avstrong/hotelbooking/internal/storage/memory"
	"github.com/avstrong/hotelbooking/internal/storage/mongo"
	"github.com/avstrong/hotelbooking/internal/storage/postgres"
	"github.com/avstrong/hotelbooking/internal/transport/web"
)

const serviceName = "hotelbooking"

type bookingStorage interface {
	Load(ctx context.Context) ([]booking.Booking, error)
	Save(ctx context.Context, bookings []booking.Booking) error
}

// openStorage returns the configured backend and a function releasing its connections.
func openStorage(ctx context.Context, conf config.Storage, l *logger.Logger) (bookingStorage, func(), error) {
	switch conf.Driver {
	case config.DriverMemory:
		return memory.New(memory.Config{L: l, Slot: conf.Slot}), func() {}, nil
	case config.DriverFile:
		st, err := file.New(file.Config{L: l, Path: conf.FilePath})
		if err != nil {
			return nil, nil, fmt.Errorf("open file storage: %w", err)
		}

		return st, func() {}, nil
	case config.DriverMongo:
		st, err := mongo.New(ctx, mongo.Config{
			L:          l,
			URI:        conf.MongoURI,
			Database:   conf.MongoDatabase,
			Collection: conf.MongoCollection,
			Slot:       conf.Slot,
		})
		if err != nil {
			return nil, nil, fmt.Errorf("open mongo storage: %w", err)
		}

		return st, func() {
			if err := st.Close(context.Background()); err != nil {
				l.LogErrorf("Failed to disconnect from mongo: %v", err.Error())
			}
		}, nil
	case config.DriverPostgres:
		st, err := postgres.New(ctx, postgres.Config{L: l, DSN: conf.PostgresDSN, Slot: conf.Slot})
		if err != nil {
			return nil, nil, fmt.Errorf("open postgres storage: %w", err)
		}

		return st, st.Close, nil
	default:
		return nil, nil, fmt.Errorf("%w: unknown storage driver %q", config.ErrInvalid, conf.Driver)
	}
}

func Run(conf *config.Config, l *logger.Logger) error {
	ctx, cancel := signal.NotifyContext(
		context.Background(),
		syscall.SIGINT,
		syscall.SIGTERM,
		syscall.SIGHUP,
	)
	defer cancel()

	hotels, err := migration.Up(l)
	if err != nil {
		return fmt.Errorf("seed catalog: %w", err)
	}

	storage, closeStorage, err := openStorage(ctx, conf.Storage, l)
	if err != nil {
		return err
	}
	defer closeStorage()

	l.LogInfo("Bookings are stored with the %s driver", conf.Storage.Driver)

	m := metrics.New(serviceName)

	bookingConf := booking.Config{
		L:           l,
		Storage:     storage,
		IDGenerator: simple.New(),
		Location:    conf.Location,
		RoomTypes:   conf.RoomTypes,
		Recorder:    m,
		Tracer:      otel.Tracer(serviceName),
	}

	if len(conf.Kafka.Brokers) > 0 {
		publisher, err := kafka.New(kafka.Config{
			L:            l,
			Brokers:      conf.Kafka.Brokers,
			Topic:        conf.Kafka.Topic,
			BatchTimeout: conf.Kafka.BatchTimeout,
		})
		if err != nil {
			return fmt.Errorf("init event publisher: %w", err)
		}

		defer func() {
			if err := publisher.Close(); err != nil {
				l.LogErrorf("Failed to close event publisher: %v", err.Error())
			}
		}()

		bookingConf.Publisher = publisher

		l.LogInfo("Booking events are published to topic %s", conf.Kafka.Topic)
	}

	bookManager, err := booking.New(ctx, bookingConf)
	if err != nil {
		return fmt.Errorf("init booking manager: %w", err)
	}

	webConf := web.Conf{
		L:                 l,
		ServerLogger:      l.StdLogger(),
		Host:              conf.HTTP.Host,
		Port:              conf.HTTP.Port,
		ReadHeaderTimeout: conf.HTTP.ReadHeaderTimeout,
		LivenessEndpoint:  conf.HTTP.LivenessEndpoint,
		MetricsEndpoint:   conf.HTTP.MetricsEndpoint,
	}

	srv, err := web.New(ctx, webConf, hotels, bookManager, m)
	if err != nil {
		return fmt.Errorf("init http server: %w", err)
	}

	//nolint:contextcheck
	go func() {
		<-ctx.Done()

		ctx, cancel := context.WithTimeout(context.Background(), conf.HTTP.ShutdownTimeout)
		defer cancel()

		if err := srv.Srv().Shutdown(ctx); err != nil {
			l.LogErrorf("Failed to stop http server: %v", err.Error())
		}
	}()

	l.LogInfo("Application is running on %v:%v...", webConf.Host, webConf.Port)

	if err := srv.Srv().ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		l.LogErrorf("Failed to run http server: %v", err.Error())

		cancel()
	}

	l.LogInfo("Application stopped gracefully")

	return nil
}
