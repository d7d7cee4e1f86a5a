package facedetect

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"image"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"strings"
	"time"

	"github.com/kozaktomas/facecam/internal/facematch"
)

const (
	defaultServiceURL = "http://localhost:8000"
	// uploadQuality is the JPEG quality of frames sent to the service.
	uploadQuality = 90
)

// Remote detects faces with an HTTP face embedding service.
type Remote struct {
	baseURL string
	model   Model
	client  *http.Client
}

// NewRemote creates a client for the service at baseURL.
func NewRemote(baseURL string, model Model, timeout time.Duration) *Remote {
	if baseURL == "" {
		baseURL = defaultServiceURL
	}
	if model == "" {
		model = ModelHOG
	}
	return &Remote{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		model:   model,
		client:  &http.Client{Timeout: timeout},
	}
}

// faceDetection represents a single detected face
type faceDetection struct {
	FaceIndex int       `json:"face_index"`
	Dim       int       `json:"dim"`
	Embedding []float32 `json:"embedding"`
	BBox      []float64 `json:"bbox"` // [x1, y1, x2, y2]
	DetScore  float64   `json:"det_score"`
}

// faceResponse represents the response from the face embedding endpoint
type faceResponse struct {
	FacesCount int             `json:"faces_count"`
	Faces      []faceDetection `json:"faces"`
	Model      string          `json:"model"`
}

// Detect uploads img as JPEG and converts the service's detections.
func (r *Remote) Detect(ctx context.Context, img image.Image) ([]facematch.Face, error) {
	data, err := encodeJPEG(img, uploadQuality)
	if err != nil {
		return nil, err
	}

	body, err := r.postMultipartImage(ctx, "/embed/face", data)
	if err != nil {
		return nil, err
	}

	var resp faceResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}

	faces := make([]facematch.Face, 0, len(resp.Faces))
	for _, d := range resp.Faces {
		box, ok := facematch.BoxFromCorners(d.BBox)
		if !ok {
			return nil, fmt.Errorf("face %d: invalid bbox %v", d.FaceIndex, d.BBox)
		}
		if len(d.Embedding) == 0 {
			return nil, fmt.Errorf("face %d: empty embedding returned", d.FaceIndex)
		}
		faces = append(faces, facematch.Face{Box: box, Embedding: toFloat64(d.Embedding)})
	}
	return faces, nil
}

// Close releases idle connections.
func (r *Remote) Close() error {
	r.client.CloseIdleConnections()
	return nil
}

// postMultipartImage posts JPEG data as the "file" field of a multipart form.
func (r *Remote) postMultipartImage(ctx context.Context, endpoint string, imageData []byte) ([]byte, error) {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", `form-data; name="file"; filename="frame.jpg"`)
	h.Set("Content-Type", "image/jpeg")
	part, err := writer.CreatePart(h)
	if err != nil {
		return nil, fmt.Errorf("failed to create form file: %w", err)
	}
	if _, err := part.Write(imageData); err != nil {
		return nil, fmt.Errorf("failed to write image data: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("failed to close multipart writer: %w", err)
	}

	u := r.baseURL + endpoint + "?" + url.Values{"model": {string(r.model)}}.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, &buf)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("API error (status %d): %s", resp.StatusCode, string(body))
	}

	return body, nil
}
