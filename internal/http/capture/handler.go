package capture

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/kiwipeso/kiwipeso/internal/camera"
	"github.com/kiwipeso/kiwipeso/internal/history"
	"github.com/kiwipeso/kiwipeso/internal/rate"
	"github.com/kiwipeso/kiwipeso/internal/recognize"
)

const maxUploadBytes = 8 << 20

// Handler exposes the camera-backed flows and the OCR-assisted amount
// path. Uploaded frames and camera captures funnel into the same
// recognition pipeline.
type Handler struct {
	session  *camera.Session
	pipeline *recognize.Pipeline
	histSvc  *history.Service
	rates    *rate.Provider
}

func NewHandler(session *camera.Session, pipeline *recognize.Pipeline, histSvc *history.Service, rates *rate.Provider) *Handler {
	return &Handler{
		session:  session,
		pipeline: pipeline,
		histSvc:  histSvc,
		rates:    rates,
	}
}

func (h *Handler) Routes(r chi.Router) {
	r.Post("/start", h.start)
	r.Post("/cancel", h.cancel)
	r.Post("/photo", h.capturePhoto)
	r.Post("/amount", h.captureAmount)
}

// RecognizeRoutes serves direct image uploads, for clients that capture
// frames on their own hardware.
func (h *Handler) RecognizeRoutes(r chi.Router) {
	r.Post("/", h.recognizeUpload)
}

type startResponse struct {
	Token uuid.UUID `json:"token"`
}

func (h *Handler) start(w http.ResponseWriter, r *http.Request) {
	token, err := h.session.Start(r.Context())
	if err != nil {
		http.Error(w, err.Error(), http.StatusConflict)
		return
	}

	w.Header().Set("Content-Type", "application/json")

	if err := json.NewEncoder(w).Encode(startResponse{Token: token}); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

type tokenRequest struct {
	Token uuid.UUID `json:"token"`
}

func (h *Handler) cancel(w http.ResponseWriter, r *http.Request) {
	var req tokenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	h.session.Cancel(req.Token)
	w.WriteHeader(http.StatusNoContent)
}

type capturePhotoRequest struct {
	Token    uuid.UUID `json:"token"`
	RecordID int64     `json:"id"`
	Slot     int       `json:"slot"`
}

// capturePhoto grabs the current frame and attaches it to a history
// record photo slot.
func (h *Handler) capturePhoto(w http.ResponseWriter, r *http.Request) {
	var req capturePhotoRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	frame, err := h.session.Capture(r.Context(), req.Token)
	if err != nil {
		writeCaptureError(w, err)
		return
	}

	if err := h.histSvc.AttachPhoto(r.Context(), req.RecordID, history.PhotoSlot(req.Slot), frame); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// captureAmount grabs the current frame and runs it through the
// recognition pipeline instead of storing it.
func (h *Handler) captureAmount(w http.ResponseWriter, r *http.Request) {
	var req tokenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	frame, err := h.session.Capture(r.Context(), req.Token)
	if err != nil {
		writeCaptureError(w, err)
		return
	}

	h.readAmount(w, r, frame)
}

func (h *Handler) recognizeUpload(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		http.Error(w, "failed to parse form: "+err.Error(), http.StatusBadRequest)
		return
	}

	file, _, err := r.FormFile("image")
	if err != nil {
		http.Error(w, "image field is required", http.StatusBadRequest)
		return
	}
	defer file.Close()

	// Read one byte past the limit: a truncated image would reach the
	// recognition engine as a corrupt frame.
	image, err := io.ReadAll(io.LimitReader(file, maxUploadBytes+1))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	if len(image) > maxUploadBytes {
		http.Error(w, "image exceeds the upload limit", http.StatusRequestEntityTooLarge)
		return
	}

	h.readAmount(w, r, image)
}

type amountResponse struct {
	Found     bool   `json:"found"`
	PHPAmount string `json:"php,omitempty"`
	NZDAmount string `json:"nzd,omitempty"`
}

func (h *Handler) readAmount(w http.ResponseWriter, r *http.Request, image []byte) {
	amount, found, err := h.pipeline.ReadAmount(r.Context(), image)
	if err != nil {
		if errors.Is(err, recognize.ErrBusy) {
			http.Error(w, err.Error(), http.StatusConflict)
			return
		}

		// Recognition failure is advisory: prior input stays untouched.
		http.Error(w, err.Error(), http.StatusBadGateway)

		return
	}

	resp := amountResponse{Found: found}
	if found {
		resp.PHPAmount = amount
		resp.NZDAmount = h.rates.Convert(amount)
	}

	w.Header().Set("Content-Type", "application/json")

	if err := json.NewEncoder(w).Encode(resp); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

func writeCaptureError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, camera.ErrNotStreaming), errors.Is(err, camera.ErrStaleToken):
		http.Error(w, err.Error(), http.StatusConflict)
	default:
		http.Error(w, err.Error(), http.StatusBadGateway)
	}
}
