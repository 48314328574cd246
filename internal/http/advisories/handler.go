package advisories

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/kiwipeso/kiwipeso/internal/advisory"
)

type Handler struct {
	board *advisory.Board
}

func NewHandler(board *advisory.Board) *Handler {
	return &Handler{board: board}
}

// List reports the current advisories so clients can render non-blocking
// notices and clear them when they disappear.
func (h *Handler) List(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	if err := json.NewEncoder(w).Encode(h.board.List()); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}
