package loader

import (
	"fmt"
	"strings"

	"github.com/wippyai/zigpkg/errors"
)

// Variant selects which loading paths Initialize may try.
type Variant int

const (
	// VariantUnspecified tries the native library, then the guest module.
	VariantUnspecified Variant = iota
	// VariantNative tries only the native library.
	VariantNative
	// VariantGuest tries only the guest module.
	VariantGuest
)

func (v Variant) String() string {
	switch v {
	case VariantUnspecified:
		return "auto"
	case VariantNative:
		return "native"
	case VariantGuest:
		return "guest"
	default:
		return fmt.Sprintf("Variant(%d)", int(v))
	}
}

// ParseVariant parses a variant name. "node" and "wasm" are accepted as
// aliases for native and guest.
func ParseVariant(s string) (Variant, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "auto":
		return VariantUnspecified, nil
	case "native", "node":
		return VariantNative, nil
	case "guest", "wasm":
		return VariantGuest, nil
	default:
		return VariantUnspecified, errors.InvalidInput(errors.PhaseInit,
			fmt.Sprintf("unknown variant %q (want auto, native or guest)", s))
	}
}

func (v Variant) valid() bool {
	return v >= VariantUnspecified && v <= VariantGuest
}

// State is the loader lifecycle state.
type State int

const (
	StateUninitialized State = iota
	StateLoading
	StateReady
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateLoading:
		return "loading"
	case StateReady:
		return "ready"
	case StateFailed:
		return "failed"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}
