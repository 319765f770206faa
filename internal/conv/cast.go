package conv

import (
	"errors"
	"fmt"
	"math"
)

// ErrOverflow is returned when a value does not fit the target type.
var ErrOverflow = errors.New("integer overflow")

func overflow(v any, target string) error {
	return fmt.Errorf("%w: %v cannot be converted to %s", ErrOverflow, v, target)
}

// IntToUint32 converts int to uint32.
func IntToUint32(v int) (uint32, error) {
	if v < 0 || uint64(v) > math.MaxUint32 {
		return 0, overflow(v, "uint32")
	}
	return uint32(v), nil
}

// IntToUint64 converts int to uint64.
func IntToUint64(v int) (uint64, error) {
	if v < 0 {
		return 0, overflow(v, "uint64")
	}
	return uint64(v), nil
}

// Uint64ToInt converts uint64 to int.
func Uint64ToInt(v uint64) (int, error) {
	if v > uint64(math.MaxInt) {
		return 0, overflow(v, "int")
	}
	return int(v), nil
}

// Float64ToInt32 truncates an already floored float64 to int32.
// NaN and values outside the int32 range are rejected.
func Float64ToInt32(v float64) (int32, error) {
	if math.IsNaN(v) || v < math.MinInt32 || v > math.MaxInt32 {
		return 0, overflow(v, "int32")
	}
	return int32(v), nil
}
