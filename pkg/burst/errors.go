package burst

import(
	"fmt"
)

// The error taxonomy. Geometry and configuration problems are caught
// before any expensive work starts; merge/finish failures abort the
// burst with the stage attached. Per-tile alignment shortfalls are
// never errors - see AlignmentDegraded.

// InvalidDimensionsError means a frame or pyramid request has
// malformed geometry.
type InvalidDimensionsError struct {
	What string
}

func (e InvalidDimensionsError)Error() string {
	return fmt.Sprintf("invalid dimensions: %s", e.What)
}

// DimensionMismatchError means an alternate frame's geometry
// disagrees with the reference.
type DimensionMismatchError struct {
	FrameIndex     int
	Want, Got      string
}

func (e DimensionMismatchError)Error() string {
	return fmt.Sprintf("frame %d geometry %s does not match reference %s", e.FrameIndex, e.Got, e.Want)
}

// EmptyBurstError means no input frames were supplied.
type EmptyBurstError struct{}

func (e EmptyBurstError)Error() string { return "burst contains no frames" }

// ConfigurationError means a pipeline parameter is invalid or
// missing. Always raised at pipeline start, never mid-run.
type ConfigurationError struct {
	What string
}

func (e ConfigurationError)Error() string {
	return fmt.Sprintf("bad configuration: %s", e.What)
}

// Finishing failures are finish.FinishingError, tagged with the stage
// that failed; the orchestrator propagates them untouched.

// An AlignmentDegraded is a notice, not an error: a tile's search
// failed to improve on zero motion, so it fell back to (0,0) and the
// burst carried on. The robustness weighting in the merge contains
// whatever is wrong with the tile.
type AlignmentDegraded struct {
	FrameIndex     int
	TileX, TileY   int
}

func (d AlignmentDegraded)String() string {
	return fmt.Sprintf("frame %d tile (%d,%d) fell back to zero motion", d.FrameIndex, d.TileX, d.TileY)
}
