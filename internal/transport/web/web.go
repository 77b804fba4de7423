package web

import (
	"context"
	"errors"
	"log"
	"net"
	"net/http"
	"time"

	"github.com/avstrong/hotelbooking/internal/booking"
	"github.com/avstrong/hotelbooking/internal/catalog"
	"github.com/avstrong/hotelbooking/internal/logger"
	"github.com/avstrong/hotelbooking/internal/metrics"
)

var ErrPanic = errors.New("handler panicked")

type Server struct {
	srv      *http.Server
	router   *http.ServeMux
	l        *logger.Logger
	conf     Conf
	catalog  *catalog.Catalog
	bManager *booking.Manager
	metrics  *metrics.Metrics
}

type Conf struct {
	L                 *logger.Logger
	ServerLogger      *log.Logger
	Host              string
	Port              string
	ReadHeaderTimeout time.Duration
	LivenessEndpoint  string
	MetricsEndpoint   string
}

func New(
	ctx context.Context,
	conf Conf,
	hotels *catalog.Catalog,
	bookingManager *booking.Manager,
	m *metrics.Metrics,
) (*Server, error) {
	if hotels == nil || bookingManager == nil || m == nil {
		return nil, errors.New("http server requires a catalog, a booking manager and metrics")
	}

	mux := http.NewServeMux()

	//nolint:exhaustruct
	srv := &http.Server{
		Addr:              net.JoinHostPort(conf.Host, conf.Port),
		ReadHeaderTimeout: conf.ReadHeaderTimeout,
		ErrorLog:          conf.ServerLogger,
		Handler:           mux,
		BaseContext: func(listener net.Listener) context.Context {
			return ctx
		},
	}

	server := &Server{
		srv:      srv,
		router:   mux,
		l:        conf.L,
		conf:     conf,
		catalog:  hotels,
		bManager: bookingManager,
		metrics:  m,
	}

	server.addRoutes(mux)

	return server, nil
}

func (s *Server) Srv() *http.Server {
	return s.srv
}
