package history

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/kiwipeso/kiwipeso/internal/history"
	"github.com/kiwipeso/kiwipeso/internal/rate"
)

type Handler struct {
	svc   *history.Service
	rates *rate.Provider
}

func NewHandler(svc *history.Service, rates *rate.Provider) *Handler {
	return &Handler{svc: svc, rates: rates}
}

func (h *Handler) Routes(r chi.Router) {
	r.Post("/", h.save)
	r.Get("/", h.list)
	r.Delete("/", h.clear)
	r.Patch("/{id}", h.update)
	r.Delete("/{id}", h.remove)
	r.Put("/{id}/photos/{slot}", h.attachPhoto)
	r.Delete("/{id}/photos/{slot}", h.detachPhoto)
}

type saveRequest struct {
	PHPAmount string `json:"php"`
}

func (h *Handler) save(w http.ResponseWriter, r *http.Request) {
	var req saveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	snap, ok := h.rates.Current()
	if !ok {
		http.Error(w, "no exchange rate available yet", http.StatusUnprocessableEntity)
		return
	}

	// Rate and converted amount come from the same snapshot; a refresh
	// landing mid-save must not split the pair.
	nzd := snap.Convert(req.PHPAmount)
	if nzd == "" {
		http.Error(w, "amount does not convert to a finite number", http.StatusUnprocessableEntity)
		return
	}

	rec, err := h.svc.Append(r.Context(), req.PHPAmount, nzd, snap.Rate)
	if err != nil {
		if errors.Is(err, history.ErrIncomplete) {
			http.Error(w, err.Error(), http.StatusUnprocessableEntity)
			return
		}

		http.Error(w, err.Error(), http.StatusInternalServerError)

		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)

	if err := json.NewEncoder(w).Encode(toResponse(rec)); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

func (h *Handler) list(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	if err := json.NewEncoder(w).Encode(toResponseList(h.svc.List())); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

type updateRequest struct {
	StoreName *string `json:"storeName,omitempty"`
	Rating    *int    `json:"rating,omitempty"`
}

// update amends one record field-by-field: only fields present in the
// request change, siblings are preserved. A missing id is silently
// ignored, matching the store's deletion-race semantics.
func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		http.Error(w, "invalid id", http.StatusBadRequest)
		return
	}

	var req updateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	// The rating is the only field that can fail validation, so it is
	// applied first: a rejected request must not leave the record half
	// updated.
	if req.Rating != nil {
		if err := h.svc.SetRating(r.Context(), id, *req.Rating); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
	}

	if req.StoreName != nil {
		h.svc.UpdateStoreName(r.Context(), id, *req.StoreName)
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) remove(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		http.Error(w, "invalid id", http.StatusBadRequest)
		return
	}

	h.svc.Remove(r.Context(), id)
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) clear(w http.ResponseWriter, r *http.Request) {
	h.svc.Clear(r.Context())
	w.WriteHeader(http.StatusNoContent)
}

type attachPhotoRequest struct {
	Photo []byte `json:"photo"`
}

func (h *Handler) attachPhoto(w http.ResponseWriter, r *http.Request) {
	id, slot, err := parsePhotoTarget(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	var req attachPhotoRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	if err := h.svc.AttachPhoto(r.Context(), id, slot, req.Photo); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) detachPhoto(w http.ResponseWriter, r *http.Request) {
	id, slot, err := parsePhotoTarget(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	if err := h.svc.DetachPhoto(r.Context(), id, slot); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func parseID(r *http.Request) (int64, error) {
	return strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
}

func parsePhotoTarget(r *http.Request) (int64, history.PhotoSlot, error) {
	id, err := parseID(r)
	if err != nil {
		return 0, 0, errors.New("invalid id")
	}

	slot, err := strconv.Atoi(chi.URLParam(r, "slot"))
	if err != nil {
		return 0, 0, errors.New("invalid photo slot")
	}

	return id, history.PhotoSlot(slot), nil
}
