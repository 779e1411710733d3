package contextwin

import (
	"winnow/common"
)

const (
	// DefaultContextWindow is assumed when the model descriptor is absent
	// or carries no window size.
	DefaultContextWindow = 128_000

	// Per-window buffers reserved out of the raw context window. The
	// default buffer pairs with the 128k window.
	smallWindowBuffer   = 27_000
	defaultWindowBuffer = 30_000
	largeWindowBuffer   = 40_000

	// Floors for the generic policy below.
	minGenericBuffer  = 40_000
	minEffectiveMax   = 1_000
	genericBufferFrac = 0.2
)

// WindowInfo is the budget oracle's answer for one model descriptor.
type WindowInfo struct {
	ContextWindow  int
	MaxAllowedSize int
}

// ContextWindowInfo maps a model descriptor to its context window and the
// maximum request size allowed against it. Known window sizes use fixed
// buffers; anything else reserves 20% of the window (at least 40k), clamped
// so the result never drops below half the window or 1000 tokens.
func ContextWindowInfo(model *common.ModelInfo) WindowInfo {
	window := DefaultContextWindow
	if model != nil && model.ContextWindow > 0 {
		window = model.ContextWindow
	}

	var maxAllowed int
	switch window {
	case 64_000:
		maxAllowed = window - smallWindowBuffer
	case 128_000:
		maxAllowed = window - defaultWindowBuffer
	case 200_000:
		maxAllowed = window - largeWindowBuffer
	default:
		buffer := int(genericBufferFrac * float64(window))
		if buffer < minGenericBuffer {
			buffer = minGenericBuffer
		}
		maxAllowed = max(window-buffer, window/2, minEffectiveMax)
	}

	return WindowInfo{ContextWindow: window, MaxAllowedSize: maxAllowed}
}
