// Package trigger exposes the "run one batch" HTTP surface that external
// schedulers call. One POST route per stage worker, gated by a bearer token.
package trigger

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"launchpro/internal/campaign"
	"launchpro/internal/config"
	"launchpro/internal/logging"
	"launchpro/internal/workers"
)

// Runner is one stage worker's batch entry point.
type Runner interface {
	RunOnce(ctx context.Context) (workers.Summary, error)
}

// Server drives stage workers over HTTP.
type Server struct {
	cfg     *config.Config
	store   *campaign.Store
	runners map[string]Runner
	budgets map[string]time.Duration
	logger  *slog.Logger
	handler http.Handler
	httpSrv *http.Server
}

// Stage names accepted by the run endpoints.
const (
	StageApproval   = "approval"
	StageTracking   = "tracking"
	StageProcessing = "processing"
	StageDesignSync = "design-sync"
)

// StageNames returns the known stage names in pipeline order.
func StageNames() []string {
	return []string{StageApproval, StageTracking, StageProcessing, StageDesignSync}
}

// NewServer wires the four workers into an HTTP server bound per config.
func NewServer(cfg *config.Config, store *campaign.Store, approval, tracking, processing, designSync Runner, logger *slog.Logger) *Server {
	s := &Server{
		cfg:   cfg,
		store: store,
		runners: map[string]Runner{
			StageApproval:   approval,
			StageTracking:   tracking,
			StageProcessing: processing,
			StageDesignSync: designSync,
		},
		budgets: map[string]time.Duration{
			StageApproval:   time.Duration(cfg.Workers.ApprovalBudgetMinutes) * time.Minute,
			StageTracking:   time.Duration(cfg.Workers.TrackingBudgetMinutes) * time.Minute,
			StageProcessing: time.Duration(cfg.Workers.ProcessorBudgetMinutes) * time.Minute,
			StageDesignSync: time.Duration(cfg.Workers.DesignSyncBudgetMinutes) * time.Minute,
		},
		logger: logging.NewComponentLogger(logger, "trigger"),
	}

	router := chi.NewRouter()
	router.Get("/healthz", s.handleHealth)
	router.Group(func(r chi.Router) {
		r.Use(s.requireToken)
		r.Post("/run/{stage}", s.handleRun)
	})
	s.handler = router
	return s
}

// Handler exposes the router; tests drive it through httptest.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// ListenAndServe blocks serving requests until the context is canceled, then
// shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	s.httpSrv = &http.Server{
		Addr:              s.cfg.API.Bind,
		Handler:           s.handler,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		errCh <- s.httpSrv.ListenAndServe()
	}()
	s.logger.Info("trigger server listening", logging.String("bind", s.cfg.API.Bind))

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return s.httpSrv.Shutdown(shutdownCtx)
	}
}

// requireToken rejects requests that do not carry the configured bearer
// token. An unconfigured token closes the surface entirely.
func (s *Server) requireToken(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := strings.TrimSpace(s.cfg.API.Token)
		if token == "" {
			s.writeError(w, http.StatusServiceUnavailable, "api token not configured")
			return
		}
		supplied := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
		if subtle.ConstantTimeCompare([]byte(supplied), []byte(token)) != 1 {
			s.writeError(w, http.StatusUnauthorized, "invalid token")
			return
		}
		next.ServeHTTP(w, r)
	})
}

type runResponse struct {
	Worker     string `json:"worker"`
	BatchID    string `json:"batch_id"`
	Scanned    int    `json:"scanned"`
	Succeeded  int    `json:"succeeded"`
	Failed     int    `json:"failed"`
	Skipped    int    `json:"skipped"`
	DurationMS int64  `json:"duration_ms"`
}

func (s *Server) handleRun(w http.ResponseWriter, r *http.Request) {
	stage := chi.URLParam(r, "stage")
	runner, ok := s.runners[stage]
	if !ok || runner == nil {
		s.writeError(w, http.StatusNotFound, "unknown stage")
		return
	}

	ctx := r.Context()
	if budget := s.budgets[stage]; budget > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, budget)
		defer cancel()
	}

	summary, err := runner.RunOnce(ctx)
	if err != nil {
		s.logger.Error("stage run failed", logging.String("stage", stage), logging.Error(err))
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, runResponse{
		Worker:     summary.Worker,
		BatchID:    summary.BatchID,
		Scanned:    summary.Scanned,
		Succeeded:  summary.Succeeded,
		Failed:     summary.Failed,
		Skipped:    summary.Skipped,
		DurationMS: summary.Duration.Milliseconds(),
	})
}

type healthResponse struct {
	Status     string `json:"status"`
	Total      int    `json:"total"`
	Pending    int    `json:"pending"`
	InFlight   int    `json:"in_flight"`
	Generating int    `json:"generating"`
	Active     int    `json:"active"`
	Failed     int    `json:"failed"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	summary, err := s.store.Health(r.Context())
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, healthResponse{
		Status:     "ok",
		Total:      summary.Total,
		Pending:    summary.Pending,
		InFlight:   summary.InFlight,
		Generating: summary.Generating,
		Active:     summary.Active,
		Failed:     summary.Failed,
	})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.Error("encode response", logging.Error(err))
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, map[string]string{"error": message})
}
