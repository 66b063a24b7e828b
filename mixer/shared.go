package mixer

import (
	"log/slog"

	"github.com/sbl8/ctxmix/core"
	"github.com/sbl8/ctxmix/kernels"
)

// Shared is the prediction context every node of a mixer tree reads: the
// bit being coded, the kernel variant, the update queue and optional
// storage. One Shared serves one predictor and is not safe for concurrent
// use.
type Shared struct {
	// Y is the value of the most recently coded bit.
	Y int

	Variant kernels.Variant
	Updates *UpdateBroadcaster

	// Arena, when set, supplies weight and input storage for new nodes.
	Arena *core.Arena

	Logger *slog.Logger
}

// SharedOption configures a Shared.
type SharedOption func(*Shared)

// WithVariant selects the kernel variant. The default is kernels.Best().
func WithVariant(v kernels.Variant) SharedOption {
	return func(sh *Shared) { sh.Variant = v }
}

// WithArena makes new nodes take their storage from a.
func WithArena(a *core.Arena) SharedOption {
	return func(sh *Shared) { sh.Arena = a }
}

// WithLogger sets the logger used at construction time.
func WithLogger(l *slog.Logger) SharedOption {
	return func(sh *Shared) {
		if l != nil {
			sh.Logger = l
		}
	}
}

// NewShared returns a context using the best kernel variant and a
// discarding logger unless overridden.
func NewShared(opts ...SharedOption) *Shared {
	sh := &Shared{
		Variant: kernels.Best(),
		Updates: &UpdateBroadcaster{},
		Logger:  slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(sh)
	}
	return sh
}

// Update records the coded bit and notifies every node that predicted it.
func (sh *Shared) Update(bit int) {
	if bit&^1 != 0 {
		panic("mixer: bit must be 0 or 1")
	}
	sh.Y = bit
	sh.Updates.Broadcast()
}
