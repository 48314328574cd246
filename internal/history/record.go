package history

import "errors"

// PhotoSlot selects one of the two photo attachments on a record.
type PhotoSlot int

const (
	PhotoSlot1 PhotoSlot = 1
	PhotoSlot2 PhotoSlot = 2
)

var (
	ErrIncomplete     = errors.New("both source and target amounts are required")
	ErrInvalidRating  = errors.New("rating must be between 0 and 5")
	ErrInvalidSlot    = errors.New("photo slot must be 1 or 2")
	ErrMissingPayload = errors.New("photo payload is required")
)

// Record is one saved conversion. PHPAmount is preserved verbatim as
// entered or recognized; NZDAmount and Rate are fixed at save time and
// never recomputed. The JSON keys match the persisted collection format.
type Record struct {
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

func (r *Record) photo(slot PhotoSlot) *[]byte {
	if slot == PhotoSlot1 {
		return &r.Photo1
	}

	return &r.Photo2
}
