package web

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/ritzau/notegraph/pkg/linkgraph"
	"github.com/ritzau/notegraph/pkg/logging"
	"github.com/ritzau/notegraph/pkg/metrics"
	"github.com/ritzau/notegraph/pkg/model"
	"github.com/ritzau/notegraph/pkg/pubsub"
	"github.com/ritzau/notegraph/pkg/reconcile"
	"github.com/ritzau/notegraph/pkg/vault"
)

// maxCommandBytes bounds a command body; note content is the only large field
const maxCommandBytes = 8 << 20

// GraphEdge is one resolved link, flattened for clients that want an edge list
type GraphEdge struct {
	Source string `json:"source"`
	Target string `json:"target"`
	Label  string `json:"label,omitempty"`
}

// GraphData holds the current graph for visualization
type GraphData struct {
	Nodes []*model.Node `json:"nodes"`
	Edges []GraphEdge   `json:"edges"`
}

// CyclesData lists link cycles and unresolved references
type CyclesData struct {
	Cycles   []linkgraph.Cycle   `json:"cycles"`
	Dangling map[string][]string `json:"dangling"`
	Orphans  []string            `json:"orphans"`
}

// Options configures the server. Zero values disable the optional routes.
type Options struct {
	Metrics *metrics.Collector
	// Vault, when set, is served on the vault endpoints so other processes can use
	// this one as their HTTP backend.
	Vault vault.Store
}

// Server represents the web server
type Server struct {
	router    *mux.Router
	session   *reconcile.Session
	publisher *pubsub.SSEPublisher
	opts      Options
}

// NewServer creates a server for session and registers it as the session's subscriber.
func NewServer(session *reconcile.Session, opts Options) *Server {
	publisher := pubsub.NewSSEPublisher()
	publisher.ConfigureTopic(pubsub.TopicSyncStatus, pubsub.TopicConfig{BufferSize: 1})
	// A client that misses a delta is out of sync for good; drop it so it reconnects for a snapshot
	publisher.ConfigureTopic(pubsub.TopicGraphDelta, pubsub.TopicConfig{CloseOnOverflow: true})

	s := &Server{
		router:    mux.NewRouter(),
		session:   session,
		publisher: publisher,
		opts:      opts,
	}

	session.Subscribe(s.publishDelta)
	session.OnStatus(s.publishStatus)
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	s.router.Use(logging.RequestIDMiddleware)

	s.router.HandleFunc("/api/graph", s.handleGraph).Methods("GET")
	s.router.HandleFunc("/api/subscribe/deltas", s.handleSubscribeDeltas).Methods("GET")
	s.router.HandleFunc("/api/subscribe/status", s.handleSubscribeStatus).Methods("GET")
	s.router.HandleFunc("/api/commands", s.handleCommand).Methods("POST")
	s.router.HandleFunc("/api/links", s.handleLinks).Methods("GET")
	s.router.HandleFunc("/api/cycles", s.handleCycles).Methods("GET")
	s.router.HandleFunc("/api/distances", s.handleDistances).Methods("GET")

	if s.opts.Metrics != nil {
		s.router.Handle("/metrics", s.opts.Metrics.Handler()).Methods("GET")
	}
	if s.opts.Vault != nil {
		vault.RegisterRoutes(s.router, s.opts.Vault)
	}
}

// Handler returns the HTTP handler, for tests and embedding
func (s *Server) Handler() http.Handler {
	return s.router
}

// publishDelta runs under the session lock, so deltas reach the topic in dispatch order
func (s *Server) publishDelta(d model.Delta) {
	if err := s.publisher.Publish(pubsub.TopicGraphDelta, pubsub.EventDelta, pubsub.NewDeltaBatch(d)); err != nil && !errors.Is(err, pubsub.ErrClosed) {
		logging.Error("failed to publish delta", "error", err)
	}
}

func (s *Server) publishStatus(st reconcile.Status) {
	status := pubsub.SyncStatus{
		Outcome:  st.Outcome.String(),
		Nodes:    st.Nodes,
		CanUndo:  st.UndoDepth > 0,
		CanRedo:  st.RedoDepth > 0,
		LastPoll: st.LastPoll,
	}
	if err := s.publisher.Publish(pubsub.TopicSyncStatus, pubsub.EventStatus, status); err != nil && !errors.Is(err, pubsub.ErrClosed) {
		logging.Error("failed to publish sync status", "error", err)
	}
}

func (s *Server) handleGraph(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, buildGraphData(s.session.Graph()))
}

func buildGraphData(g model.Graph) GraphData {
	data := GraphData{Nodes: g.Nodes(), Edges: []GraphEdge{}}
	for _, n := range data.Nodes {
		for _, e := range n.Edges {
			data.Edges = append(data.Edges, GraphEdge{Source: n.ID, Target: e.Target, Label: e.Label})
		}
	}
	return data
}

// handleSubscribeDeltas streams a snapshot followed by every delta. The subscription is
// opened before the snapshot is taken, so a delta landing in between is sent again after
// the snapshot; applying it twice gives the same graph.
func (s *Server) handleSubscribeDeltas(w http.ResponseWriter, r *http.Request) {
	sub, err := s.publisher.Subscribe(r.Context(), pubsub.TopicGraphDelta)
	if err != nil {
		http.Error(w, err.Error(), http.StatusServiceUnavailable)
		return
	}
	defer sub.Close()

	snapshot, err := json.Marshal(pubsub.Snapshot{Nodes: s.session.Graph().Nodes()})
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	startSSE(w)
	first := pubsub.Event{
		Topic:   pubsub.TopicGraphDelta,
		Type:    pubsub.EventSnapshot,
		Data:    snapshot,
		Version: s.publisher.Version(pubsub.TopicGraphDelta),
	}
	if err := writeEvent(w, first); err != nil {
		logging.WarnContext(r.Context(), "failed to write snapshot", "error", err)
		return
	}
	stream(w, r, sub)
}

func (s *Server) handleSubscribeStatus(w http.ResponseWriter, r *http.Request) {
	sub, err := s.publisher.Subscribe(r.Context(), pubsub.TopicSyncStatus)
	if err != nil {
		http.Error(w, err.Error(), http.StatusServiceUnavailable)
		return
	}
	defer sub.Close()

	startSSE(w)
	stream(w, r, sub)
}

func startSSE(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("Access-Control-Allow-Origin", "*") // CORS support

	// Send initial comment to establish connection (Safari compatibility)
	fmt.Fprintf(w, ": connected\n\n")
	if flusher, ok := w.(http.Flusher); ok {
		flusher.Flush()
	}
}

func stream(w http.ResponseWriter, r *http.Request, sub pubsub.Subscription) {
	for event := range sub.Events() {
		if err := writeEvent(w, event); err != nil {
			logging.DebugContext(r.Context(), "subscriber went away", "topic", sub.Topic(), "error", err)
			return
		}
	}
}

func writeEvent(w http.ResponseWriter, event pubsub.Event) error {
	if err := pubsub.WriteSSE(w, event); err != nil {
		return err
	}
	if flusher, ok := w.(http.Flusher); ok {
		flusher.Flush()
	}
	return nil
}

func (s *Server) handleCommand(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxCommandBytes))
	if err != nil {
		writeError(w, http.StatusBadRequest, "failed to read request body")
		return
	}

	cmd, err := reconcile.DecodeCommand(body)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	res, err := s.session.Execute(r.Context(), cmd)
	if err != nil {
		var unsupported *reconcile.UnsupportedOperationError
		switch {
		case errors.As(err, &unsupported), errors.Is(err, reconcile.ErrInvalidCommand):
			writeError(w, http.StatusBadRequest, err.Error())
		case errors.Is(err, reconcile.ErrNotRunning):
			writeError(w, http.StatusServiceUnavailable, err.Error())
		default:
			logging.ErrorContext(r.Context(), "command failed", "error", err)
			writeError(w, http.StatusInternalServerError, err.Error())
		}
		return
	}

	if res.Delta == nil {
		res.Delta = model.Delta{}
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleLinks(w http.ResponseWriter, r *http.Request) {
	id := r.URL.Query().Get("id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "missing id parameter")
		return
	}

	summary, ok := linkgraph.New(s.session.Graph()).Summary(id)
	if !ok {
		writeError(w, http.StatusNotFound, fmt.Sprintf("note not found: %s", id))
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

func (s *Server) handleCycles(w http.ResponseWriter, r *http.Request) {
	lg := linkgraph.New(s.session.Graph())
	writeJSON(w, http.StatusOK, CyclesData{
		Cycles:   lg.Cycles(),
		Dangling: lg.Dangling(),
		Orphans:  lg.Orphans(),
	})
}

// handleDistances returns link distances from the notes named by repeated "from" parameters
func (s *Server) handleDistances(w http.ResponseWriter, r *http.Request) {
	from := r.URL.Query()["from"]
	if len(from) == 0 {
		writeError(w, http.StatusBadRequest, "missing from parameter")
		return
	}
	writeJSON(w, http.StatusOK, linkgraph.New(s.session.Graph()).Distances(from))
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logging.Error("failed to encode response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// Start serves on port until ctx is done, then shuts down gracefully.
func (s *Server) Start(ctx context.Context, port int) error {
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		logging.Info("starting web server", "url", fmt.Sprintf("http://localhost:%d", port))
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		s.publisher.Close()
		return fmt.Errorf("web server failed: %w", err)
	case <-ctx.Done():
	}

	// Closing the publisher ends every open event stream, so Shutdown does not wait on them
	s.publisher.Close()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("web server shutdown: %w", err)
	}
	logging.Info("web server stopped")
	return nil
}
