package metrics

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/prometheus/common/expfmt"

	"github.com/psantana5/modelguard/pkg/logging"
	"github.com/psantana5/modelguard/pkg/ratelimit"
	"github.com/psantana5/modelguard/pkg/tracing"
)

const (
	// ScrapeRPS and ScrapeBurst bound requests per client address
	ScrapeRPS   = 5
	ScrapeBurst = 10

	limiterIdle = 10 * time.Minute
)

// Server exposes /metrics and /health
type Server struct {
	srv     *http.Server
	limiter *ratelimit.Limiter
	logger  *logging.Logger
	done    chan struct{}
}

// NewRouter builds the metrics router. tp may be nil.
func NewRouter(gatherer prometheus.Gatherer, tp *tracing.Provider) *mux.Router {
	router := mux.NewRouter()
	router.Use(tracing.HTTPMiddleware(tp))

	router.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})).Methods("GET")
	router.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"healthy"}`))
	}).Methods("GET")

	return router
}

// NewServer creates a metrics server listening on addr
func NewServer(addr string, gatherer prometheus.Gatherer, tp *tracing.Provider, logger *logging.Logger) *Server {
	if logger == nil {
		logger = logging.Nop()
	}
	limiter := ratelimit.NewLimiter(ScrapeRPS, ScrapeBurst)
	return &Server{
		srv: &http.Server{
			Addr:         addr,
			Handler:      limiter.Middleware(ratelimit.RemoteIPKey)(NewRouter(gatherer, tp)),
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 10 * time.Second,
		},
		limiter: limiter,
		logger:  logger,
		done:    make(chan struct{}),
	}
}

// EnableTLS makes Start serve HTTPS with cfg. Call before Start.
func (s *Server) EnableTLS(cfg *tls.Config) {
	s.srv.TLSConfig = cfg
}

// Start serves in the background
func (s *Server) Start() {
	go func() {
		var err error
		if s.srv.TLSConfig != nil {
			s.logger.Info(fmt.Sprintf("Metrics server listening on %s (TLS)", s.srv.Addr))
			err = s.srv.ListenAndServeTLS("", "")
		} else {
			s.logger.Info(fmt.Sprintf("Metrics server listening on %s", s.srv.Addr))
			err = s.srv.ListenAndServe()
		}
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("Metrics server error", map[string]interface{}{"error": err.Error()})
		}
	}()

	go func() {
		ticker := time.NewTicker(limiterIdle)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				s.limiter.Prune(limiterIdle)
			case <-s.done:
				return
			}
		}
	}()
}

// Shutdown stops the server
func (s *Server) Shutdown(ctx context.Context) error {
	select {
	case <-s.done:
	default:
		close(s.done)
	}
	return s.srv.Shutdown(ctx)
}

// WriteText writes every metric family from gatherer in Prometheus text format
func WriteText(w io.Writer, gatherer prometheus.Gatherer) error {
	families, err := gatherer.Gather()
	if err != nil {
		return fmt.Errorf("failed to gather metrics: %w", err)
	}

	encoder := expfmt.NewEncoder(w, expfmt.NewFormat(expfmt.TypeTextPlain))
	for _, mf := range families {
		if err := encoder.Encode(mf); err != nil {
			return fmt.Errorf("failed to encode metric %s: %w", mf.GetName(), err)
		}
	}
	return nil
}
