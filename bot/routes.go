package bot

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/prepline/prepbot/chat/telegram"
)

// Routes returns the webhook listener's handler.
func (a *App) Routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST "+a.cfg.Telegram.WebhookPath, a.handleWebhook)
	mux.HandleFunc("GET /healthz", a.handleHealthz)
	return mux
}

// handleWebhook acknowledges the update immediately and processes it in
// the background: Telegram retries the whole update when the webhook
// response is slow, and a model reply can take a minute.
func (a *App) handleWebhook(w http.ResponseWriter, r *http.Request) {
	if !telegram.VerifySecret(r, a.cfg.Telegram.WebhookSecret) {
		a.logger.Warn("webhook secret mismatch", zap.String("remote", r.RemoteAddr))
		http.Error(w, "forbidden", http.StatusForbidden)
		return
	}

	upd, err := telegram.DecodeUpdate(r.Body)
	if err != nil {
		a.logger.Warn("webhook decode failed", zap.Error(err))
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}

	w.WriteHeader(http.StatusOK)

	go a.HandleUpdate(context.WithoutCancel(r.Context()), upd)
}

// handleHealthz probes the model backend.
func (a *App) handleHealthz(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	status := map[string]any{"status": "ok", "provider": a.provider.Name()}
	code := http.StatusOK
	if hs, err := a.provider.HealthCheck(ctx); err != nil || !hs.Healthy {
		status["status"] = "degraded"
		code = http.StatusServiceUnavailable
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(status)
}
