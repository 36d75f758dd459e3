package display

import (
	"context"
	"fmt"
	"image"
	"image/png"
	"os"
	"path/filepath"
)

// Transport delivers a rendered frame to the physical display.
//
// Implementations are expected to be slow (seconds per push) and need
// not be safe for concurrent use: the controller guarantees at most one
// push in flight.
type Transport interface {
	Push(ctx context.Context, img *image.Gray) error
	Clear(ctx context.Context) error
}

// FileTransport writes frames as PNG files instead of driving hardware.
// Used in mock mode and for the preview endpoint; the hardware driver
// for the panel implements the same interface out of tree.
type FileTransport struct {
	dir    string
	width  int
	height int
}

// NewFileTransport creates a transport writing to dir/display.png.
func NewFileTransport(dir string, width, height int) (*FileTransport, error) {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("creating preview directory: %w", err)
	}
	return &FileTransport{dir: dir, width: width, height: height}, nil
}

// PreviewPath returns the path of the current frame image.
func (t *FileTransport) PreviewPath() string {
	return filepath.Join(t.dir, "display.png")
}

// Push writes the frame atomically (temp file + rename) so readers of
// the preview file never see a partial PNG.
func (t *FileTransport) Push(ctx context.Context, img *image.Gray) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(t.dir, "display-*.png.tmp")
	if err != nil {
		return fmt.Errorf("creating temp frame file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if err := png.Encode(tmp, img); err != nil {
		tmp.Close()
		return fmt.Errorf("encoding frame: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing temp frame file: %w", err)
	}

	if err := os.Rename(tmp.Name(), t.PreviewPath()); err != nil {
		return fmt.Errorf("publishing frame: %w", err)
	}
	return nil
}

// Clear writes an all-white frame.
func (t *FileTransport) Clear(ctx context.Context) error {
	img := image.NewGray(image.Rect(0, 0, t.width, t.height))
	for i := range img.Pix {
		img.Pix[i] = 0xFF
	}
	return t.Push(ctx, img)
}
