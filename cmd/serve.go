package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/brooks-street/outreach-pipeline/internal/model"
	"github.com/brooks-street/outreach-pipeline/internal/store"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		env, err := initPipeline(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		api := &apiServer{env: env}

		r := chi.NewRouter()
		r.Use(middleware.RequestID)
		r.Use(middleware.Recoverer)
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: []string{"*"},
			AllowedMethods: []string{"GET", "POST", "OPTIONS"},
			AllowedHeaders: []string{"Content-Type"},
		}))

		r.Get("/health", api.health)
		r.Post("/batch", api.startBatch(ctx))
		r.Route("/buildings", func(r chi.Router) {
			r.Get("/", api.listBuildings)
			r.Get("/{id}", api.getBuilding)
			r.Post("/{id}/approve", api.approveBuilding)
			r.Post("/{id}/contact", api.resolveContact)
			r.Post("/{id}/outreach", api.sendOutreach)
		})

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}

		srv := &http.Server{
			Addr:    fmt.Sprintf(":%d", port),
			Handler: r,
		}

		go func() {
			<-ctx.Done()
			zap.L().Info("shutting down server")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				zap.L().Warn("server shutdown", zap.Error(err))
			}
		}()

		zap.L().Info("starting server", zap.Int("port", port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return eris.Wrap(err, "server listen")
		}

		return nil
	},
}

type apiServer struct {
	env *pipelineEnv
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func (s *apiServer) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// startBatch kicks off a region batch in the background. Batches
// outlive the request, so they run on the server context, not the
// request context.
func (s *apiServer) startBatch(serverCtx context.Context) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Regions []model.Region `json:"regions"`
			Limit   int            `json:"limit"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		if len(req.Regions) == 0 {
			writeError(w, http.StatusBadRequest, "regions are required")
			return
		}

		go func() {
			result, err := s.env.Orchestrator.RunBatch(serverCtx, req.Regions, req.Limit)
			if err != nil {
				zap.L().Error("batch failed", zap.Error(err))
				return
			}
			accepted, duplicates, failed := result.Counts()
			zap.L().Info("batch complete",
				zap.Int("accepted", accepted),
				zap.Int("duplicates", duplicates),
				zap.Int("failed", failed))
		}()

		writeJSON(w, http.StatusAccepted, map[string]any{
			"status":  "accepted",
			"regions": len(req.Regions),
		})
	}
}

func (s *apiServer) listBuildings(w http.ResponseWriter, r *http.Request) {
	filter := store.RecordFilter{}
	q := r.URL.Query()
	if v := q.Get("approved"); v != "" {
		b := v == "true"
		filter.Approved = &b
	}
	if v := q.Get("residential"); v != "" {
		b := v == "true"
		filter.Residential = &b
	}
	if v := q.Get("verified"); v != "" {
		b := v == "true"
		filter.Verified = &b
	}

	records, err := s.env.Store.ListRecords(r.Context(), filter)
	if err != nil {
		zap.L().Error("list records failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "list failed")
		return
	}
	if records == nil {
		records = []model.Record{}
	}
	writeJSON(w, http.StatusOK, records)
}

func (s *apiServer) getBuilding(w http.ResponseWriter, r *http.Request) {
	rec, err := s.env.Store.GetRecord(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "record not found")
			return
		}
		zap.L().Error("get record failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "get failed")
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

// approveBuilding marks a record approved and, when it has no contact
// email yet, runs contact resolution so the record is ready for
// outreach. Resolution failure does not undo the approval.
func (s *apiServer) approveBuilding(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := s.env.Store.ApproveRecord(r.Context(), id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "record not found")
			return
		}
		zap.L().Error("approve failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "approve failed")
		return
	}

	rec, err := s.env.Store.GetRecord(r.Context(), id)
	if err != nil {
		zap.L().Error("load approved record failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "approve failed")
		return
	}
	if rec.Contact == nil || rec.Contact.Email == "" {
		if resolved, err := s.env.Orchestrator.ResolveFor(r.Context(), id); err != nil {
			zap.L().Warn("contact resolution on approval failed",
				zap.String("record_id", id),
				zap.Error(err))
		} else {
			rec.Contact = resolved
		}
	}
	writeJSON(w, http.StatusOK, rec)
}

func (s *apiServer) resolveContact(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	resolved, err := s.env.Orchestrator.ResolveFor(r.Context(), id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "record not found")
			return
		}
		zap.L().Error("contact resolution failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "contact resolution failed")
		return
	}
	writeJSON(w, http.StatusOK, resolved)
}

func (s *apiServer) sendOutreach(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req struct {
		Subject string `json:"subject"`
		Body    string `json:"body"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Subject == "" || req.Body == "" {
		writeError(w, http.StatusBadRequest, "subject and body are required")
		return
	}

	logEntry, err := s.env.Outreach.Send(r.Context(), id, req.Subject, req.Body)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "record not found")
			return
		}
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, logEntry)
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	rootCmd.AddCommand(serveCmd)
}
