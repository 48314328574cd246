package advisory

import "sync"

// Kind identifies one advisory condition.
type Kind string

const (
	KindRate        Kind = "rate"
	KindStorage     Kind = "storage"
	KindCamera      Kind = "camera"
	KindRecognition Kind = "recognition"
)

// Board holds the current set of advisories. An advisory is non-blocking:
// it is shown to the user but never halts the operation's fallback path.
// The component that raises one clears it on its next success.
type Board struct {
	mu       sync.RWMutex
	messages map[Kind]string
}

func NewBoard() *Board {
	return &Board{messages: make(map[Kind]string)}
}

func (b *Board) Set(kind Kind, message string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.messages[kind] = message
}

func (b *Board) Clear(kind Kind) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.messages, kind)
}

func (b *Board) Get(kind Kind) (string, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	msg, ok := b.messages[kind]

	return msg, ok
}

// List returns a copy of the current advisories.
func (b *Board) List() map[Kind]string {
	b.mu.RLock()
	defer b.mu.RUnlock()

	out := make(map[Kind]string, len(b.messages))
	for k, v := range b.messages {
		out[k] = v
	}

	return out
}
