package admin

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/wormhole-foundation/wormhole/sdk/vaa"

	"github.com/wormhole-foundation/wormhole-dashboard-sub001/internal/domain/model"
	"github.com/wormhole-foundation/wormhole-dashboard-sub001/internal/store"
	"github.com/wormhole-foundation/wormhole-dashboard-sub001/internal/supervisor"
)

const (
	defaultMissingLimit     = 100
	maxMissingLimit         = 1000
	defaultMissingOlderThan = time.Hour
	digestHexLen            = 64
)

// CheckpointLister lists the checkpoints of one watcher scope.
type CheckpointLister interface {
	ListCheckpoints(ctx context.Context) ([]model.Checkpoint, error)
}

type LifeCycleGetter interface {
	Get(ctx context.Context, digest string) (*model.LifeCycle, error)
}

// HealthProvider returns per-worker health snapshots.
type HealthProvider interface {
	Snapshot() []supervisor.HealthSnapshot
}

// Server is the read API polled by downstream dashboards.
type Server struct {
	messages    store.MessageReader
	checkpoints map[model.Scope]CheckpointLister
	lifecycles  LifeCycleGetter
	health      HealthProvider
	nowFn       func() time.Time
	logger      *slog.Logger
}

func NewServer(messages store.MessageReader, logger *slog.Logger, opts ...ServerOption) *Server {
	s := &Server{
		messages:    messages,
		checkpoints: map[model.Scope]CheckpointLister{model.ScopeMessages: messages},
		nowFn:       time.Now,
		logger:      logger.With("component", "admin"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ServerOption configures optional dependencies for the server.
type ServerOption func(*Server)

// WithCheckpointScope exposes another scope's checkpoints under ?scope=.
func WithCheckpointScope(scope model.Scope, l CheckpointLister) ServerOption {
	return func(s *Server) { s.checkpoints[scope] = l }
}

func WithLifeCycles(g LifeCycleGetter) ServerOption {
	return func(s *Server) { s.lifecycles = g }
}

func WithHealthProvider(hp HealthProvider) ServerOption {
	return func(s *Server) { s.health = hp }
}

// Handler returns the HTTP handler for the read API.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/v1/checkpoints", s.handleCheckpoints)
	mux.HandleFunc("GET /api/v1/message-counts", s.handleMessageCounts)
	mux.HandleFunc("GET /api/v1/missing-vaas", s.handleMissingVaas)
	mux.HandleFunc("GET /api/v1/lifecycles/{digest}", s.handleLifeCycle)
	mux.HandleFunc("GET /api/v1/health", s.handleHealth)
	return mux
}

// writeJSON writes v as JSON with the given HTTP status code.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

type checkpointResponse struct {
	Chain        uint16    `json:"chain"`
	ChainName    string    `json:"chain_name"`
	Scope        string    `json:"scope"`
	LastBlock    uint64    `json:"last_block"`
	LastBlockKey string    `json:"last_block_key"`
	UpdatedAt    time.Time `json:"updated_at"`
}

func (s *Server) handleCheckpoints(w http.ResponseWriter, r *http.Request) {
	scope := model.Scope(r.URL.Query().Get("scope"))
	if scope == "" {
		scope = model.ScopeMessages
	}
	lister, ok := s.checkpoints[scope]
	if !ok {
		writeError(w, http.StatusBadRequest, "unknown scope")
		return
	}

	cps, err := lister.ListCheckpoints(r.Context())
	if err != nil {
		s.logger.Error("list checkpoints failed", "scope", scope, "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	resp := make([]checkpointResponse, len(cps))
	for i, cp := range cps {
		resp[i] = checkpointResponse{
			Chain:        uint16(cp.Chain),
			ChainName:    cp.Chain.String(),
			Scope:        string(cp.Scope),
			LastBlock:    cp.LastBlockKey.Number,
			LastBlockKey: cp.LastBlockKey.String(),
			UpdatedAt:    cp.UpdatedAt,
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleMessageCounts(w http.ResponseWriter, r *http.Request) {
	counts, err := s.messages.CountMessages(r.Context())
	if err != nil {
		s.logger.Error("count messages failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	if counts == nil {
		counts = []model.MessageCounts{}
	}
	writeJSON(w, http.StatusOK, counts)
}

func (s *Server) handleMissingVaas(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	chainParam := q.Get("chain")
	if chainParam == "" {
		writeError(w, http.StatusBadRequest, "chain query param required")
		return
	}
	chain, err := model.ParseChainID(chainParam)
	if err != nil || chain == vaa.ChainIDUnset {
		writeError(w, http.StatusBadRequest, "invalid chain")
		return
	}

	limit := defaultMissingLimit
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 || n > maxMissingLimit {
			writeError(w, http.StatusBadRequest, "limit must be between 1 and 1000")
			return
		}
		limit = n
	}

	olderThan := defaultMissingOlderThan
	if v := q.Get("older_than"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil || d < 0 {
			writeError(w, http.StatusBadRequest, "older_than must be a non-negative duration")
			return
		}
		olderThan = d
	}

	msgs, err := s.messages.ListMissingVaas(r.Context(), chain, s.nowFn().Add(-olderThan), limit)
	if err != nil {
		s.logger.Error("list missing vaas failed", "chain", chain, "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	if msgs == nil {
		msgs = []model.ObservedMessage{}
	}
	writeJSON(w, http.StatusOK, msgs)
}

func (s *Server) handleLifeCycle(w http.ResponseWriter, r *http.Request) {
	if s.lifecycles == nil {
		writeError(w, http.StatusServiceUnavailable, "lifecycles not available")
		return
	}
	digest, err := normalizeDigest(r.PathValue("digest"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	lc, err := s.lifecycles.Get(r.Context(), digest)
	if err != nil {
		s.logger.Error("get life cycle failed", "digest", digest, "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	if lc == nil {
		writeError(w, http.StatusNotFound, "life cycle not found")
		return
	}
	writeJSON(w, http.StatusOK, lc)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if s.health == nil {
		writeError(w, http.StatusServiceUnavailable, "health not available")
		return
	}
	writeJSON(w, http.StatusOK, s.health.Snapshot())
}

// normalizeDigest accepts a 32-byte hex digest with or without 0x and returns
// the stored lowercase form.
func normalizeDigest(s string) (string, error) {
	s = strings.TrimPrefix(strings.ToLower(s), "0x")
	if len(s) != digestHexLen {
		return "", errors.New("digest must be 32 bytes of hex")
	}
	if _, err := hex.DecodeString(s); err != nil {
		return "", errors.New("digest must be 32 bytes of hex")
	}
	return s, nil
}
