package main

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/DeafMist/prevword/internal/bootstrap"
	"github.com/DeafMist/prevword/internal/config"
	"github.com/DeafMist/prevword/internal/logger"
	"github.com/DeafMist/prevword/internal/models"
	"github.com/DeafMist/prevword/internal/resolver"
)

type wordResolver interface {
	Resolve(ctx context.Context, puzzleDate string) (models.Resolution, error)
	ResolveForPath(ctx context.Context, urlPath string) (models.Resolution, error)
}

type pinger interface {
	Ping(ctx context.Context) error
}

func main() {
	log := logger.New("api")
	cfg, err := config.LoadAPI()
	if err != nil {
		log.Error("load config", slog.Any("err", err))
		os.Exit(1)
	}

	svc, err := bootstrap.Build(cfg.Common, log)
	if err != nil {
		log.Error("init resolver", slog.Any("err", err))
		os.Exit(1)
	}
	defer svc.Close()

	srv := &server{log: log, resolver: svc.Resolver, store: svc}

	httpServer := &http.Server{
		Addr:              cfg.BindAddr,
		Handler:           srv.routes(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      cfg.FetchTimeout + 15*time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	go func() {
		log.Info("api server starting", slog.String("addr", cfg.BindAddr))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server stopped", slog.Any("err", err))
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	log.Info("shutdown signal received")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Error("server shutdown", slog.Any("err", err))
	}
}

type server struct {
	log      *slog.Logger
	resolver wordResolver
	store    pinger
}

func (s *server) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Get("/health", s.handleHealth)
	r.Get("/previous-word", s.handlePreviousWord)
	return r
}

type errorResponse struct {
	Error string `json:"error"`
	Kind  string `json:"kind,omitempty"`
}

type wordResponse struct {
	ID         string `json:"id"`
	PuzzleDate string `json:"puzzleDate"`
	TargetDate string `json:"targetDate"`
	Word       string `json:"word"`
	Unknown    bool   `json:"unknown"`
	FromCache  bool   `json:"fromCache"`
	Source     string `json:"source"`
}

func (s *server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if err := s.store.Ping(ctx); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, errorResponse{Error: err.Error()})
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handlePreviousWord answers ?puzzle=YYYY-MM-DD, or ?path=/some/page/YYYY-MM-DD the way
// an embedding page would pass its own location. With neither, today is used.
func (s *server) handlePreviousWord(w http.ResponseWriter, r *http.Request) {
	puzzle := strings.TrimSpace(r.URL.Query().Get("puzzle"))
	path := strings.TrimSpace(r.URL.Query().Get("path"))

	var (
		res models.Resolution
		err error
	)
	if puzzle == "" && path != "" {
		res, err = s.resolver.ResolveForPath(r.Context(), path)
	} else {
		res, err = s.resolver.Resolve(r.Context(), puzzle)
	}
	if err != nil {
		kind := resolver.Describe(err)
		status := http.StatusBadGateway
		switch kind {
		case "invalid_date":
			status = http.StatusBadRequest
		case "internal":
			status = http.StatusInternalServerError
		}
		s.log.Warn("previous word failed",
			slog.String("kind", kind),
			slog.String("request_id", middleware.GetReqID(r.Context())),
			slog.Any("err", err),
		)
		writeJSON(w, status, errorResponse{Error: err.Error(), Kind: kind})
		return
	}

	writeJSON(w, http.StatusOK, wordResponse{
		ID:         res.ID,
		PuzzleDate: res.PuzzleDate,
		TargetDate: res.TargetDate,
		Word:       res.Display(),
		Unknown:    res.Unknown,
		FromCache:  res.FromCache,
		Source:     res.SourceURL,
	})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
