package display

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/disintegration/imaging"

	"github.com/martinemde/codeloop/agentloop"
)

// ImageSink saves plot payloads as PNG files.
type ImageSink struct {
	dir     string
	maxSide int

	mu sync.Mutex
	n  map[string]int
}

// NewImageSink creates dir if needed and returns a sink writing into it.
func NewImageSink(dir string, maxSide int) (*ImageSink, error) {
	if dir == "" {
		return nil, fmt.Errorf("image directory not set")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create image dir: %w", err)
	}
	if maxSide <= 0 {
		maxSide = DefaultImageMaxSide
	}
	return &ImageSink{dir: dir, maxSide: maxSide, n: make(map[string]int)}, nil
}

// Dir returns the output directory.
func (s *ImageSink) Dir() string { return s.dir }

// Save decodes a base64 PNG or JPEG payload, scales it to fit the maximum
// side, and writes plot-<run>-<n>.png. It returns the written path.
func (s *ImageSink) Save(runID string, img agentloop.Image) (string, error) {
	data, err := base64.StdEncoding.DecodeString(img.Data)
	if err != nil {
		return "", fmt.Errorf("decode %s payload: %w", img.MIMEType, err)
	}
	decoded, err := imaging.Decode(bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("decode %s image: %w", img.MIMEType, err)
	}

	b := decoded.Bounds()
	if b.Dx() > s.maxSide || b.Dy() > s.maxSide {
		decoded = imaging.Fit(decoded, s.maxSide, s.maxSide, imaging.Lanczos)
	}

	s.mu.Lock()
	s.n[runID]++
	n := s.n[runID]
	s.mu.Unlock()

	path := filepath.Join(s.dir, fmt.Sprintf("plot-%s-%d.png", shortID(runID), n))
	if err := imaging.Save(decoded, path); err != nil {
		return "", fmt.Errorf("save image: %w", err)
	}
	return path, nil
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	if id == "" {
		return "run"
	}
	return id
}
