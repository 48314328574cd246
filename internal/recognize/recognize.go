package recognize

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"sync/atomic"

	"github.com/kiwipeso/kiwipeso/internal/advisory"
	"github.com/kiwipeso/kiwipeso/internal/textenc"
)

//go:generate mockgen -source=recognize.go -destination=engine_mock.go -package=recognize

// Engine runs text recognition over an image payload. The language hint
// is advisory; engines may ignore it. Output bytes are untrusted and are
// normalized before use.
type Engine interface {
	Recognize(ctx context.Context, image []byte, lang string) ([]byte, error)
}

// ErrBusy is returned when a recognition pass is already in flight.
var ErrBusy = errors.New("recognition already in progress")

// The integer part is optional, so a receipt printing ".45" extracts
// verbatim rather than losing its decimal point.
var amountPattern = regexp.MustCompile(`\d+(?:\.\d+)?|\.\d+`)

// ExtractAmount returns the first decimal-number substring in text.
func ExtractAmount(text string) (string, bool) {
	match := amountPattern.FindString(text)
	if match == "" {
		return "", false
	}

	return match, true
}

// Pipeline turns a captured frame into a candidate source amount. It is
// the only operation in the system with a busy state visible to
// collaborators, so conflicting actions can be disabled while a pass runs.
type Pipeline struct {
	engine     Engine
	advisories *advisory.Board
	lang       string

	busy   atomic.Bool
	onBusy atomic.Pointer[func(bool)]
}

func NewPipeline(engine Engine, board *advisory.Board, lang string) *Pipeline {
	return &Pipeline{
		engine:     engine,
		advisories: board,
		lang:       lang,
	}
}

// OnBusy registers a listener notified on entry into and exit from the
// processing state.
func (p *Pipeline) OnBusy(fn func(bool)) {
	p.onBusy.Store(&fn)
}

func (p *Pipeline) Busy() bool {
	return p.busy.Load()
}

// ReadAmount recognizes text in the image and extracts the first numeric
// substring. found is false both when the engine saw no digits and when
// recognition failed; the error distinguishes the latter. An engine
// failure raises the recognition advisory and the caller leaves prior
// input untouched.
func (p *Pipeline) ReadAmount(ctx context.Context, image []byte) (amount string, found bool, err error) {
	if !p.busy.CompareAndSwap(false, true) {
		return "", false, ErrBusy
	}

	p.notify(true)
	defer func() {
		p.busy.Store(false)
		p.notify(false)
	}()

	raw, err := p.engine.Recognize(ctx, image, p.lang)
	if err != nil {
		slog.Warn("text recognition failed", "error", err)
		p.advisories.Set(advisory.KindRecognition, "Could not read the price tag. Enter the amount manually.")

		return "", false, fmt.Errorf("recognizing text: %w", err)
	}

	p.advisories.Clear(advisory.KindRecognition)

	text, err := textenc.Normalize(raw)
	if err != nil {
		return "", false, fmt.Errorf("decoding recognized text: %w", err)
	}

	amount, found = ExtractAmount(text)

	return amount, found, nil
}

func (p *Pipeline) notify(busy bool) {
	if fn := p.onBusy.Load(); fn != nil {
		(*fn)(busy)
	}
}
