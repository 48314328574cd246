package history_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kiwipeso/kiwipeso/internal/advisory"
	"github.com/kiwipeso/kiwipeso/internal/history"
	historyHandler "github.com/kiwipeso/kiwipeso/internal/http/history"
	"github.com/kiwipeso/kiwipeso/internal/rate"
	"github.com/kiwipeso/kiwipeso/internal/storage/memory"
)

type fixture struct {
	router http.Handler
	svc    *history.Service
}

func newFixture(t *testing.T, withRate bool) fixture {
	t.Helper()

	board := advisory.NewBoard()
	svc := history.NewService(memory.New(), board)

	rates := rate.NewProvider(rateServer(t).URL, board)
	if withRate {
		rates.Refresh(context.Background())
	}

	router := chi.NewRouter()
	router.Route("/history", historyHandler.NewHandler(svc, rates).Routes)

	return fixture{router: router, svc: svc}
}

func rateServer(t *testing.T) *httptest.Server {
	t.Helper()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(`{"rates":{"NZD":0.027}}`))
	}))
	t.Cleanup(srv.Close)

	return srv
}

func (f fixture) do(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()

	var reader *strings.Reader
	if body == "" {
		reader = strings.NewReader("")
	} else {
		reader = strings.NewReader(body)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")

	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)

	return rec
}

func TestHandler_SaveAndList(t *testing.T) {
	f := newFixture(t, true)

	rec := f.do(t, http.MethodPost, "/history", `{"php":"1000"}`)
	require.Equal(t, http.StatusCreated, rec.Code)

	var saved struct {
		ID        int64   `json:"id"`
		PHPAmount string  `json:"php"`
		NZDAmount string  `json:"nzd"`
		Rate      float64 `json:"rate"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &saved))
	assert.NotZero(t, saved.ID)
	assert.Equal(t, "1000", saved.PHPAmount)
	assert.Equal(t, "27.00", saved.NZDAmount)
	assert.Equal(t, 0.027, saved.Rate)
	assert.Equal(t, rate.Snapshot{Rate: saved.Rate}.Convert(saved.PHPAmount), saved.NZDAmount,
		"the stored amount must be derived from the stored rate")

	rec = f.do(t, http.MethodGet, "/history", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var listed []json.RawMessage
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &listed))
	assert.Len(t, listed, 1)
}

func TestHandler_SaveRejectsUnconvertibleAmount(t *testing.T) {
	f := newFixture(t, true)

	rec := f.do(t, http.MethodPost, "/history", `{"php":"abc"}`)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	rec = f.do(t, http.MethodPost, "/history", `{"php":""}`)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestHandler_SaveRequiresRate(t *testing.T) {
	f := newFixture(t, false)

	rec := f.do(t, http.MethodPost, "/history", `{"php":"1000"}`)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestHandler_UpdateMergesFields(t *testing.T) {
	f := newFixture(t, true)

	saved, err := f.svc.Append(context.Background(), "500", "13.50", 0.027)
	require.NoError(t, err)

	path := "/history/" + strconv.FormatInt(saved.ID, 10)

	rec := f.do(t, http.MethodPatch, path, `{"storeName":"SM Hypermarket"}`)
	require.Equal(t, http.StatusNoContent, rec.Code)

	rec = f.do(t, http.MethodPatch, path, `{"rating":5}`)
	require.Equal(t, http.StatusNoContent, rec.Code)

	got := f.svc.List()[0]
	assert.Equal(t, "SM Hypermarket", got.StoreName)
	assert.Equal(t, 5, got.Rating)
}

func TestHandler_UpdateInvalidRating(t *testing.T) {
	f := newFixture(t, true)

	saved, err := f.svc.Append(context.Background(), "500", "13.50", 0.027)
	require.NoError(t, err)

	rec := f.do(t, http.MethodPatch, "/history/"+strconv.FormatInt(saved.ID, 10), `{"rating":9}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandler_UpdateRejectedRequestChangesNothing(t *testing.T) {
	f := newFixture(t, true)

	saved, err := f.svc.Append(context.Background(), "500", "13.50", 0.027)
	require.NoError(t, err)

	body := `{"storeName":"SM Hypermarket","rating":9}`
	rec := f.do(t, http.MethodPatch, "/history/"+strconv.FormatInt(saved.ID, 10), body)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	got := f.svc.List()[0]
	assert.Empty(t, got.StoreName, "a rejected request must not apply any of its fields")
	assert.Zero(t, got.Rating)
}

func TestHandler_UpdateMissingIDIsSilent(t *testing.T) {
	f := newFixture(t, true)

	rec := f.do(t, http.MethodPatch, "/history/12345", `{"storeName":"ghost"}`)
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestHandler_Photos(t *testing.T) {
	f := newFixture(t, true)

	saved, err := f.svc.Append(context.Background(), "500", "13.50", 0.027)
	require.NoError(t, err)

	base := "/history/" + strconv.FormatInt(saved.ID, 10) + "/photos/1"

	rec := f.do(t, http.MethodPut, base, `{"photo":"/9j/4AAQ"}`)
	require.Equal(t, http.StatusNoContent, rec.Code)
	assert.NotEmpty(t, f.svc.List()[0].Photo1)

	rec = f.do(t, http.MethodDelete, base, "")
	require.Equal(t, http.StatusNoContent, rec.Code)
	assert.Nil(t, f.svc.List()[0].Photo1)

	rec = f.do(t, http.MethodPut, "/history/"+strconv.FormatInt(saved.ID, 10)+"/photos/3", `{"photo":"/9j/4AAQ"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandler_DeleteAndClear(t *testing.T) {
	f := newFixture(t, true)
	ctx := context.Background()

	first, err := f.svc.Append(ctx, "100", "2.70", 0.027)
	require.NoError(t, err)
	_, err = f.svc.Append(ctx, "200", "5.40", 0.027)
	require.NoError(t, err)

	rec := f.do(t, http.MethodDelete, "/history/"+strconv.FormatInt(first.ID, 10), "")
	require.Equal(t, http.StatusNoContent, rec.Code)
	assert.Len(t, f.svc.List(), 1)

	rec = f.do(t, http.MethodDelete, "/history", "")
	require.Equal(t, http.StatusNoContent, rec.Code)
	assert.Empty(t, f.svc.List())
}
