// Package constants provides shared constants used across the codebase.
// Centralizing these values ensures consistency and makes them easier to modify.
package constants

// Face matching constants
const (
	// DefaultTolerance is the default maximum Euclidean distance for a face match.
	// Lower values = stricter matching
	DefaultTolerance = 0.6

	// DefaultEmbeddingDim is the dimension of dlib face descriptors
	DefaultEmbeddingDim = 128

	// UnknownName is the label drawn for faces that match no gallery entry
	UnknownName = "Unknown"

	// AttributeTimeNow is the time value reported with every recognized identity
	AttributeTimeNow = "Now"
)

// Pipeline constants
const (
	// DefaultDownscale is the linear factor applied to frames before detection (1/4 = 1/16 area)
	DefaultDownscale = 0.25

	// DefaultJPEGQuality is the JPEG quality of streamed frames
	DefaultJPEGQuality = 95

	// StreamBoundary is the multipart boundary of the video feed
	StreamBoundary = "frame"
)

// Annotation constants
const (
	// BoxThickness is the outline width of face boxes in pixels
	BoxThickness = 2

	// LabelStripHeight is the height of the filled strip at the bottom of a face box
	LabelStripHeight = 35

	// LabelInset is the horizontal and vertical offset of label text inside the strip
	LabelInset = 6
)

// Event channel constants
const (
	// EventChannelBuffer is the buffer size for event channels
	EventChannelBuffer = 100

	// FrameChannelBuffer is the buffer size for per-viewer frame channels.
	// A viewer that falls behind loses frames instead of slowing the producer.
	FrameChannelBuffer = 2
)
