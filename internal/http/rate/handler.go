package rate

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/kiwipeso/kiwipeso/internal/rate"
)

type Handler struct {
	provider *rate.Provider
}

func NewHandler(provider *rate.Provider) *Handler {
	return &Handler{provider: provider}
}

func (h *Handler) Routes(r chi.Router) {
	r.Get("/", h.current)
	r.Get("/convert", h.convert)
}

type snapshotResponse struct {
	Available bool       `json:"available"`
	Rate      float64    `json:"rate,omitempty"`
	Fallback  bool       `json:"fallback,omitempty"`
	FetchedAt *time.Time `json:"fetched_at,omitempty"`
}

func (h *Handler) current(w http.ResponseWriter, _ *http.Request) {
	resp := snapshotResponse{}

	if snap, ok := h.provider.Current(); ok {
		resp.Available = true
		resp.Rate = snap.Rate
		resp.Fallback = snap.Fallback
		resp.FetchedAt = &snap.FetchedAt
	}

	w.Header().Set("Content-Type", "application/json")

	if err := json.NewEncoder(w).Encode(resp); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

type convertResponse struct {
	PHPAmount string `json:"php"`
	NZDAmount string `json:"nzd"`
}

// convert returns an empty target amount when the source does not parse
// or no rate is available yet: unknown and zero are distinct states.
func (h *Handler) convert(w http.ResponseWriter, r *http.Request) {
	amount := r.URL.Query().Get("amount")

	resp := convertResponse{
		PHPAmount: amount,
		NZDAmount: h.provider.Convert(amount),
	}

	w.Header().Set("Content-Type", "application/json")

	if err := json.NewEncoder(w).Encode(resp); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}
