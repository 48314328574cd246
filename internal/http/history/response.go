package history

import (
	"github.com/kiwipeso/kiwipeso/internal/history"
)

type recordResponse struct {
	ID        int64   `json:"id"`
	PHPAmount string  `json:"php"`
	NZDAmount string  `json:"nzd"`
	Rate      float64 `json:"rate"`
	Timestamp string  `json:"timestamp"`
	StoreName string  `json:"storeName"`
	Rating    int     `json:"rating"`
	Photo1    []byte  `json:"photo1,omitempty"`
	Photo2    []byte  `json:"photo2,omitempty"`
}

func toResponse(rec history.Record) recordResponse {
	return recordResponse{
		ID:        rec.ID,
		PHPAmount: rec.PHPAmount,
		NZDAmount: rec.NZDAmount,
		Rate:      rec.Rate,
		Timestamp: rec.Timestamp,
		StoreName: rec.StoreName,
		Rating:    rec.Rating,
		Photo1:    rec.Photo1,
		Photo2:    rec.Photo2,
	}
}

func toResponseList(recs []history.Record) []recordResponse {
	resp := make([]recordResponse, len(recs))
	for i, rec := range recs {
		resp[i] = toResponse(rec)
	}

	return resp
}
