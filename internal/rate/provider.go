package rate

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/kiwipeso/kiwipeso/internal/advisory"
)

const (
	// FallbackRate is installed whenever the live PHP→NZD rate cannot be
	// retrieved.
	FallbackRate = 0.027

	baseCurrency   = "PHP"
	targetCurrency = "NZD"

	fetchTimeout = 10 * time.Second
)

// Snapshot is the current exchange rate plus its freshness. It is
// replaced wholesale on every refresh, never partially updated.
type Snapshot struct {
	Rate      float64
	FetchedAt time.Time
	Fallback  bool
}

// Convert computes the target amount for a source amount at this
// snapshot's rate, rounded to two fractional digits. An amount that does
// not parse as a finite number yields an empty string: "unknown" and
// "zero" are distinct states. Callers that store both the rate and the
// converted amount must derive both from the same snapshot.
func (s Snapshot) Convert(amount string) string {
	d, err := decimal.NewFromString(strings.TrimSpace(amount))
	if err != nil {
		return ""
	}

	return d.Mul(decimal.NewFromFloat(s.Rate)).Round(2).StringFixed(2)
}

// Provider maintains the current PHP→NZD conversion rate. The rate source
// is untrusted: a missing or malformed NZD cross-rate is a failure, not a
// zero rate.
type Provider struct {
	client     *http.Client
	baseURL    string
	advisories *advisory.Board
	now        func() time.Time

	mu   sync.RWMutex
	snap Snapshot
	have bool
}

// NewProvider creates a Provider fetching from baseURL, which is expected
// to serve the rate table at <baseURL>/<base-currency>.
func NewProvider(baseURL string, board *advisory.Board) *Provider {
	return &Provider{
		client:     &http.Client{Timeout: fetchTimeout},
		baseURL:    strings.TrimRight(baseURL, "/"),
		advisories: board,
		now:        time.Now,
	}
}

type ratesPayload struct {
	Rates map[string]float64 `json:"rates"`
}

// Refresh performs one outbound fetch and replaces the snapshot. Any
// failure installs the fallback snapshot and raises the rate advisory;
// the next scheduled tick is the retry.
func (p *Provider) Refresh(ctx context.Context) {
	value, err := p.fetch(ctx)
	if err != nil {
		slog.Warn("exchange rate fetch failed, using fallback", "error", err)
		p.advisories.Set(advisory.KindRate, "Failed to fetch exchange rate. Using stored rate.")
		p.install(Snapshot{Rate: FallbackRate, FetchedAt: p.now(), Fallback: true})

		return
	}

	p.advisories.Clear(advisory.KindRate)
	p.install(Snapshot{Rate: value, FetchedAt: p.now()})
}

func (p *Provider) fetch(ctx context.Context) (float64, error) {
	url := fmt.Sprintf("%s/%s", p.baseURL, baseCurrency)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return 0, fmt.Errorf("creating request: %w", err)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("fetching rates: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("unexpected status code %d", resp.StatusCode)
	}

	var payload ratesPayload
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return 0, fmt.Errorf("decoding rates payload: %w", err)
	}

	value, ok := payload.Rates[targetCurrency]
	if !ok || value <= 0 {
		return 0, fmt.Errorf("missing %s rate in payload", targetCurrency)
	}

	return value, nil
}

func (p *Provider) install(snap Snapshot) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.snap = snap
	p.have = true
}

// Current returns the latest snapshot. ok is false until the first
// refresh has completed.
func (p *Provider) Current() (Snapshot, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	return p.snap, p.have
}

// Convert converts an amount at the current snapshot's rate, or yields an
// empty string when no snapshot exists yet.
func (p *Provider) Convert(amount string) string {
	snap, ok := p.Current()
	if !ok {
		return ""
	}

	return snap.Convert(amount)
}
