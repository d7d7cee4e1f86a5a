package stream

import (
	"fmt"
	"io"
	"mime/multipart"
	"net/textproto"
	"strconv"

	"github.com/kozaktomas/facecam/internal/constants"
)

// MultipartWriter frames JPEG payloads as parts of a multipart/x-mixed-replace
// stream. Each part carries its Content-Type and Content-Length.
type MultipartWriter struct {
	mw *multipart.Writer
}

// NewMultipartWriter writes parts to w using the "frame" boundary.
func NewMultipartWriter(w io.Writer) *MultipartWriter {
	mw := multipart.NewWriter(w)
	if err := mw.SetBoundary(constants.StreamBoundary); err != nil {
		// The boundary is a valid constant.
		panic(err)
	}
	return &MultipartWriter{mw: mw}
}

// ContentType is the response content type for the stream.
func (m *MultipartWriter) ContentType() string {
	return "multipart/x-mixed-replace; boundary=" + m.mw.Boundary()
}

// WriteFrame writes one JPEG part.
func (m *MultipartWriter) WriteFrame(data []byte) error {
	h := make(textproto.MIMEHeader)
	h.Set("Content-Type", "image/jpeg")
	h.Set("Content-Length", strconv.Itoa(len(data)))

	part, err := m.mw.CreatePart(h)
	if err != nil {
		return fmt.Errorf("failed to create part: %w", err)
	}
	if _, err := part.Write(data); err != nil {
		return fmt.Errorf("failed to write frame: %w", err)
	}
	return nil
}

// Close writes the closing boundary.
func (m *MultipartWriter) Close() error {
	return m.mw.Close()
}
