package wire

// Default maximum frame size (16 MB). Glyph results are occasionally large
// (entity lists for big grids) but never unbounded.
const DefaultMaxFrame int = 16_777_216

// Hard limit on frame size (64 MB) - a length prefix beyond this is treated
// as a corrupt stream rather than an allocation request.
const MaxFrameHardLimit int = 67_108_864

// Limits bounds the sizes accepted or produced by a reader/writer pair.
type Limits struct {
	MaxFrame int
}

// DefaultLimits returns the default limits.
func DefaultLimits() Limits {
	return Limits{MaxFrame: DefaultMaxFrame}
}
