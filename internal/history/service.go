package history

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/kiwipeso/kiwipeso/internal/advisory"
)

//go:generate mockgen -source=service.go -destination=store_mock.go -package=history

// Store is the persistence capability backing the history collection.
// Absence of the key is a valid "no history yet" state, distinct from a
// present-but-empty collection.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Put(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
}

// UsageReporter is optionally implemented by stores that account for a
// space budget. A zero quota disables accounting.
type UsageReporter interface {
	Usage(ctx context.Context) (used, quota int64, err error)
}

const (
	// Key is the fixed storage key holding the serialized collection.
	Key = "conversionHistory"

	// Cap bounds the collection; inserting beyond it evicts the oldest record.
	Cap = 10

	quotaWarnRatio  = 0.8
	timestampLayout = "2/01/2006, 3:04:05 pm"
)

// Service owns the ordered conversion-record collection and its mirrored
// persisted representation. Every mutation re-serializes the whole
// collection synchronously, so the in-memory state and the persisted copy
// never diverge after a completed operation. In-memory state stays the
// source of truth for the session even if a mirrored write fails.
type Service struct {
	store      Store
	advisories *advisory.Board
	now        func() time.Time

	mu      sync.Mutex
	records []Record
	lastID  int64
}

func NewService(store Store, board *advisory.Board) *Service {
	return &Service{
		store:      store,
		advisories: board,
		now:        time.Now,
		records:    []Record{},
	}
}

// Load reads the persisted collection if present. Absence or a parse
// failure yields an empty collection; it never blocks startup.
func (s *Service) Load(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.records = []Record{}

	value, ok, err := s.store.Get(ctx, Key)
	if err != nil {
		slog.Warn("failed to read persisted history", "error", err)
		return
	}

	if !ok {
		return
	}

	var records []Record
	if err := json.Unmarshal(value, &records); err != nil {
		slog.Warn("discarding unparseable persisted history", "error", err)
		return
	}

	s.records = records
	if s.records == nil {
		s.records = []Record{}
	}

	for _, rec := range s.records {
		if rec.ID > s.lastID {
			s.lastID = rec.ID
		}
	}
}

// Append prepends a new record, truncates the collection to the cap and
// persists it. Both amount strings must be non-empty: a record can only
// be created from a successfully computed conversion.
func (s *Service) Append(ctx context.Context, phpAmount, nzdAmount string, rate float64) (Record, error) {
	if phpAmount == "" || nzdAmount == "" {
		return Record{}, ErrIncomplete
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	rec := Record{
		ID:        s.nextID(),
		PHPAmount: phpAmount,
		NZDAmount: nzdAmount,
		Rate:      rate,
		Timestamp: s.now().Format(timestampLayout),
	}

	s.records = append([]Record{rec}, s.records...)
	if len(s.records) > Cap {
		s.records = s.records[:Cap]
	}

	s.persist(ctx)

	return rec, nil
}

// List returns a copy of the collection, newest first.
func (s *Service) List() []Record {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]Record, len(s.records))
	copy(out, s.records)

	return out
}

// UpdateStoreName replaces the store name on the record with the given id,
// preserving every other field. A missing id is a no-op: deletion races
// are expected and silently ignored.
func (s *Service) UpdateStoreName(ctx context.Context, id int64, name string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.amend(ctx, id, func(rec *Record) {
		rec.StoreName = name
	})
}

// SetRating sets the 0-5 purchase-intent rating; zero means unrated.
func (s *Service) SetRating(ctx context.Context, id int64, rating int) error {
	if rating < 0 || rating > 5 {
		return ErrInvalidRating
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.amend(ctx, id, func(rec *Record) {
		rec.Rating = rating
	})

	return nil
}

// AttachPhoto stores the payload in the given slot.
func (s *Service) AttachPhoto(ctx context.Context, id int64, slot PhotoSlot, payload []byte) error {
	if slot != PhotoSlot1 && slot != PhotoSlot2 {
		return ErrInvalidSlot
	}

	if len(payload) == 0 {
		return ErrMissingPayload
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.amend(ctx, id, func(rec *Record) {
		*rec.photo(slot) = payload
	})

	return nil
}

// DetachPhoto removes the payload from the given slot.
func (s *Service) DetachPhoto(ctx context.Context, id int64, slot PhotoSlot) error {
	if slot != PhotoSlot1 && slot != PhotoSlot2 {
		return ErrInvalidSlot
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.amend(ctx, id, func(rec *Record) {
		*rec.photo(slot) = nil
	})

	return nil
}

// Remove filters the record out by id and persists the result. An empty
// collection persists as an empty array, distinct from "nothing persisted".
func (s *Service) Remove(ctx context.Context, id int64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	kept := make([]Record, 0, len(s.records))
	for _, rec := range s.records {
		if rec.ID != id {
			kept = append(kept, rec)
		}
	}

	if len(kept) == len(s.records) {
		return
	}

	s.records = kept
	s.persist(ctx)
}

// Clear empties the collection and deletes the persisted key outright.
// On reload this reads as "no history yet", not as an empty collection.
func (s *Service) Clear(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.records = []Record{}

	if err := s.store.Delete(ctx, Key); err != nil {
		slog.Warn("failed to delete persisted history", "error", err)
	}

	s.checkQuota(ctx)
}

// amend applies fn to the record with the given id and persists. Caller
// holds the mutex. A missing id leaves the collection untouched.
func (s *Service) amend(ctx context.Context, id int64, fn func(*Record)) {
	for i := range s.records {
		if s.records[i].ID == id {
			fn(&s.records[i])
			s.persist(ctx)

			return
		}
	}
}

// nextID returns a time-derived id that stays strictly monotonic even
// when two saves land on the same millisecond.
func (s *Service) nextID() int64 {
	id := s.now().UnixMilli()
	if id <= s.lastID {
		id = s.lastID + 1
	}

	s.lastID = id

	return id
}

// persist mirrors the collection to the store. A failed write is logged
// and never rolls back in-memory state. Caller holds the mutex.
func (s *Service) persist(ctx context.Context) {
	value, err := json.Marshal(s.records)
	if err != nil {
		slog.Error("failed to serialize history", "error", err)
		return
	}

	if err := s.store.Put(ctx, Key, value); err != nil {
		slog.Warn("failed to persist history", "error", err)
	}

	s.checkQuota(ctx)
}

func (s *Service) checkQuota(ctx context.Context) {
	reporter, ok := s.store.(UsageReporter)
	if !ok {
		return
	}

	used, quota, err := reporter.Usage(ctx)
	if err != nil || quota <= 0 {
		return
	}

	if float64(used) >= quotaWarnRatio*float64(quota) {
		s.advisories.Set(advisory.KindStorage, "Storage space is running low. Consider deleting some photos.")
		return
	}

	s.advisories.Clear(advisory.KindStorage)
}
