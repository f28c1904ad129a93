package util

// Unpacks a slice into arguments
// If the slice has less elements than variables passed in, the rest of the variables are not modified
// If the slice has more elements than the variables passed in, the additional elements are ignored
// Copied and adjusted from https://stackoverflow.com/a/19832661
func Unpack[T any](toUnpack []T, unpackInto ...*T) {
	limit := len(toUnpack)
	if len(unpackInto) < limit {
		limit = len(unpackInto)
	}
	for i := 0; i < limit; i++ {
		*unpackInto[i] = toUnpack[i]
	}
}

// Clamp returns value limited to the inclusive range [low, high]
func Clamp(value, low, high int) int {
	if value < low {
		return low
	}
	if value > high {
		return high
	}
	return value
}
