// This file is to handle things such as metrics/health/topology inspection.

package webapi

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"

	"github.com/couchbase/peer-endpoints/pkg/topology"
	"github.com/couchbase/peer-endpoints/pkg/version"
)

type TopologyProvider interface {
	Latest() *topology.Snapshot
}

type WebServerOptions struct {
	Logger        *zap.Logger
	LogLevel      *zap.AtomicLevel
	ListenAddress string
	Topology      TopologyProvider
}

type WebServer struct {
	logger        *zap.Logger
	logLevel      *zap.AtomicLevel
	listenAddress string
	topology      TopologyProvider
	httpServer    *http.Server
}

func NewWebServer(opts WebServerOptions) *WebServer {
	w := &WebServer{
		logger:        opts.Logger,
		logLevel:      opts.LogLevel,
		listenAddress: opts.ListenAddress,
		topology:      opts.Topology,
	}

	w.httpServer = &http.Server{
		Handler:      w.Handler(),
		Addr:         w.listenAddress,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	return w
}

func (w *WebServer) handleRoot(rw http.ResponseWriter, r *http.Request) {
	rw.WriteHeader(200)
	_, err := rw.Write([]byte("Welcome to the " + version.Application + " internal webapi"))
	if err != nil {
		w.logger.Debug("failed to write generic root response", zap.Error(err))
	}
}

func (w *WebServer) handleHealth(rw http.ResponseWriter, r *http.Request) {
	if w.topology != nil && w.topology.Latest() == nil {
		rw.WriteHeader(http.StatusServiceUnavailable)
		return
	}

	rw.WriteHeader(http.StatusOK)
}

func (w *WebServer) handleTopology(rw http.ResponseWriter, r *http.Request) {
	var snapshot *topology.Snapshot
	if w.topology != nil {
		snapshot = w.topology.Latest()
	}
	if snapshot == nil {
		http.Error(rw, "topology not yet available", http.StatusServiceUnavailable)
		return
	}

	rw.Header().Set("Content-Type", "application/json")
	err := json.NewEncoder(rw).Encode(snapshot)
	if err != nil {
		w.logger.Debug("failed to write topology response", zap.Error(err))
	}
}

func (w *WebServer) Handler() http.Handler {
	r := mux.NewRouter()

	r.Handle("/metrics", promhttp.Handler())
	r.HandleFunc("/healthz", w.handleHealth).Methods(http.MethodGet)
	r.HandleFunc("/topology", w.handleTopology).Methods(http.MethodGet)
	if w.logLevel != nil {
		// zap.AtomicLevel serves GET and PUT of {"level": "..."}
		r.Handle("/loglevel", w.logLevel).Methods(http.MethodGet, http.MethodPut)
	}
	r.HandleFunc("/", w.handleRoot)

	return otelhttp.NewHandler(r, "webapi")
}

func (w *WebServer) ListenAndServe() error {
	err := w.httpServer.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

func (w *WebServer) Shutdown(ctx context.Context) error {
	return w.httpServer.Shutdown(ctx)
}
