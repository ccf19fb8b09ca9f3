package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/lead-research/internal/model"
	"github.com/sells-group/lead-research/internal/orchestrator"
	"github.com/sells-group/lead-research/internal/store"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the lead-research HTTP API",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		env, err := initApp(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}

		srv := &http.Server{
			Addr:    fmt.Sprintf(":%d", port),
			Handler: buildRouter(ctx, env),
		}

		go func() {
			<-ctx.Done()
			zap.L().Info("shutting down server")
			_ = srv.Shutdown(ctx)
		}()

		zap.L().Info("starting server", zap.Int("port", port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return eris.Wrap(err, "server listen")
		}

		return nil
	},
}

// buildRouter assembles the HTTP API. baseCtx outlives individual requests
// and is the context background research runs against.
func buildRouter(baseCtx context.Context, env *appEnv) *chi.Mux {
	router := chi.NewRouter()
	router.Use(
		chiMiddleware.RequestID,
		chiMiddleware.Recoverer,
		cors.Handler(cors.Options{
			AllowedOrigins: []string{"*"},
			AllowedMethods: []string{"GET", "POST", "OPTIONS"},
			AllowedHeaders: []string{"*"},
			MaxAge:         300,
		}),
	)

	router.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	router.Post("/leads", func(w http.ResponseWriter, r *http.Request) {
		var lead model.Lead
		if err := json.NewDecoder(r.Body).Decode(&lead); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		created, err := env.Store.CreateLead(r.Context(), lead)
		if err != nil {
			zap.L().Error("serve: create lead failed", zap.Error(err))
			writeError(w, http.StatusInternalServerError, "create lead failed")
			return
		}
		writeJSON(w, http.StatusCreated, created)
	})

	router.Get("/leads", func(w http.ResponseWriter, r *http.Request) {
		limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
		offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))
		leads, err := env.Store.ListLeads(r.Context(), store.LeadFilter{
			Status: model.LeadStatus(r.URL.Query().Get("status")),
			Limit:  limit,
			Offset: offset,
		})
		if err != nil {
			zap.L().Error("serve: list leads failed", zap.Error(err))
			writeError(w, http.StatusInternalServerError, "list leads failed")
			return
		}
		writeJSON(w, http.StatusOK, leads)
	})

	router.Get("/leads/{id}", func(w http.ResponseWriter, r *http.Request) {
		lead, err := env.Store.GetLead(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, http.StatusNotFound, "lead not found")
			return
		}
		writeJSON(w, http.StatusOK, lead)
	})

	router.Get("/leads/{id}/packet", func(w http.ResponseWriter, r *http.Request) {
		packet, err := env.Store.GetPacketByLead(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			zap.L().Error("serve: load packet failed", zap.Error(err))
			writeError(w, http.StatusInternalServerError, "load packet failed")
			return
		}
		if packet == nil {
			writeError(w, http.StatusNotFound, "no research packet for lead")
			return
		}
		writeJSON(w, http.StatusOK, packet)
	})

	router.Post("/leads/{id}/research", func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		force := r.URL.Query().Get("force") == "true"

		// Advisory check so callers can tell "started" from "already
		// running". ProcessLead re-checks atomically, so a race here only
		// costs the caller a short-circuited duplicate run.
		if env.Coordinator.InFlight(id) {
			writeJSON(w, http.StatusConflict, map[string]string{
				"status":  "in_flight",
				"lead_id": id,
			})
			return
		}

		// Research runs in the background against the server context so
		// it survives the HTTP request; results land in the store and
		// the notification webhook.
		go func() {
			result, err := env.Orchestrator.ProcessLead(baseCtx, id, orchestrator.Options{Force: force})
			if err != nil {
				zap.L().Error("serve: research failed",
					zap.String("lead_id", id),
					zap.Error(err),
				)
				return
			}
			zap.L().Info("serve: research finished",
				zap.String("lead_id", id),
				zap.String("status", string(result.Status)),
			)
		}()

		writeJSON(w, http.StatusAccepted, map[string]string{
			"status":  "accepted",
			"lead_id": id,
		})
	})

	router.Post("/research/batch", func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			LeadIDs []string `json:"lead_ids"`
			Force   bool     `json:"force"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		if len(req.LeadIDs) == 0 {
			writeError(w, http.StatusBadRequest, "lead_ids is required")
			return
		}

		// Fire and forget: the handle is discarded, callers observe
		// results via the store or the notification channel.
		env.Orchestrator.ProcessQueue(baseCtx, req.LeadIDs, orchestrator.Options{Force: req.Force})

		writeJSON(w, http.StatusAccepted, map[string]any{
			"status": "accepted",
			"total":  len(req.LeadIDs),
		})
	})

	return router
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	rootCmd.AddCommand(serveCmd)
}
