package imaging

import (
	"bytes"
	"fmt"
	"io"

	"github.com/disintegration/imaging"
)

// Avatar holds a normalized avatar image ready for storage.
type Avatar struct {
	Data        []byte
	ContentType string
	Width       int
	Height      int
}

// Config for avatar processing
type Config struct {
	MaxSize int // max width/height in pixels (default 512)
	Quality int // JPEG quality 1-100 (default 85)
}

// DefaultConfig returns default processing config
func DefaultConfig() Config {
	return Config{MaxSize: 512, Quality: 85}
}

// Processor normalizes uploaded avatar images.
type Processor struct {
	config Config
}

// NewProcessor creates image processor
func NewProcessor(config Config) *Processor {
	if config.MaxSize <= 0 {
		config.MaxSize = 512
	}
	if config.Quality <= 0 || config.Quality > 100 {
		config.Quality = 85
	}
	return &Processor{config: config}
}

// ProcessAvatar decodes an uploaded image, downscales it to fit within
// MaxSize x MaxSize and re-encodes it as JPEG.
func (p *Processor) ProcessAvatar(reader io.Reader) (*Avatar, error) {
	img, err := imaging.Decode(reader)
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}

	bounds := img.Bounds()
	if bounds.Dx() > p.config.MaxSize || bounds.Dy() > p.config.MaxSize {
		img = imaging.Fit(img, p.config.MaxSize, p.config.MaxSize, imaging.Lanczos)
	}

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.JPEG, imaging.JPEGQuality(p.config.Quality)); err != nil {
		return nil, fmt.Errorf("failed to encode image: %w", err)
	}

	out := img.Bounds()
	return &Avatar{
		Data:        buf.Bytes(),
		ContentType: "image/jpeg",
		Width:       out.Dx(),
		Height:      out.Dy(),
	}, nil
}
