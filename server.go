package main

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"dentalytics/pkg/auth"
)

// serveAPI runs the dashboard JSON API until ctx is cancelled.
func serveAPI(ctx context.Context, a *App, addr string) error {
	if addr == "" {
		addr = a.cfg.ListenAddr
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	mux.Handle("GET /metrics", promhttp.Handler())
	mux.HandleFunc("GET /api/channels", a.handleChannels)
	mux.HandleFunc("GET /api/channels/{key}/report", a.handleReport)
	mux.HandleFunc("GET /api/overview", a.handleOverview)

	srv := &http.Server{
		Addr:         addr,
		Handler:      mux,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 5 * time.Minute, // a cold overview is many sequential API calls
	}

	errCh := make(chan error, 1)
	go func() {
		a.log.Info("dashboard api listening", zap.String("addr", addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutCtx)
	case err := <-errCh:
		return err
	}
}

func (a *App) handleChannels(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, a.registry.Channels)
}

func (a *App) handleReport(w http.ResponseWriter, r *http.Request) {
	key := r.PathValue("key")
	if _, ok := a.registry.Get(key); !ok {
		writeError(w, http.StatusNotFound, "unknown channel")
		return
	}

	days := queryInt(r, "days", 28)
	if days < 1 || days > 365 {
		writeError(w, http.StatusBadRequest, "days must be 1..365")
		return
	}
	force := r.URL.Query().Get("force") == "true"

	rep, err := a.BuildReport(r.Context(), key, days, queryInt(r, "top", 10), force)
	if err != nil {
		a.writeAPIError(w, key, err)
		return
	}
	writeJSON(w, http.StatusOK, rep)
}

func (a *App) handleOverview(w http.ResponseWriter, r *http.Request) {
	days := queryInt(r, "days", 28)
	if days < 1 || days > 365 {
		writeError(w, http.StatusBadRequest, "days must be 1..365")
		return
	}

	ov, err := a.BuildOverview(r.Context(), days, queryInt(r, "top", 10), false)
	if err != nil {
		a.writeAPIError(w, "", err)
		return
	}
	writeJSON(w, http.StatusOK, ov)
}

// writeAPIError maps an upstream failure to a status the dashboard can act
// on: auth problems and burned quota are 503 (nothing the caller can fix by
// retrying now), transient classes are 502.
func (a *App) writeAPIError(w http.ResponseWriter, channel string, err error) {
	a.log.Error("api request failed", zap.String("channel", channel), zap.Error(err))

	if errors.Is(err, auth.ErrAuthRequired) {
		writeError(w, http.StatusServiceUnavailable, "channel needs interactive authorization, run: dentalytics auth "+channel)
		return
	}
	switch auth.Classify(err) {
	case auth.ClassQuotaExhausted:
		writeError(w, http.StatusServiceUnavailable, "api quota exhausted")
	case auth.ClassTransient:
		writeError(w, http.StatusBadGateway, "upstream api unavailable")
	default:
		writeError(w, http.StatusInternalServerError, "report failed")
	}
}

func queryInt(r *http.Request, name string, def int) int {
	v := r.URL.Query().Get(name)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
