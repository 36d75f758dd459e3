package display

import (
	"context"
	"image"
	"image/png"
	"os"
	"testing"
)

func TestFileTransportPushWritesPNG(t *testing.T) {
	dir := t.TempDir()
	transport, err := NewFileTransport(dir, 100, 60)
	if err != nil {
		t.Fatalf("NewFileTransport() error: %v", err)
	}

	img := image.NewGray(image.Rect(0, 0, 100, 60))
	for i := range img.Pix {
		img.Pix[i] = 0xFF
	}
	img.Pix[0] = 0x00

	if err := transport.Push(context.Background(), img); err != nil {
		t.Fatalf("Push() error: %v", err)
	}

	f, err := os.Open(transport.PreviewPath())
	if err != nil {
		t.Fatalf("opening preview file: %v", err)
	}
	defer f.Close()

	decoded, err := png.Decode(f)
	if err != nil {
		t.Fatalf("decoding preview PNG: %v", err)
	}
	if decoded.Bounds().Dx() != 100 || decoded.Bounds().Dy() != 60 {
		t.Errorf("unexpected dimensions: %v", decoded.Bounds())
	}
}

func TestFileTransportClear(t *testing.T) {
	dir := t.TempDir()
	transport, err := NewFileTransport(dir, 10, 10)
	if err != nil {
		t.Fatalf("NewFileTransport() error: %v", err)
	}

	if err := transport.Clear(context.Background()); err != nil {
		t.Fatalf("Clear() error: %v", err)
	}

	f, err := os.Open(transport.PreviewPath())
	if err != nil {
		t.Fatalf("opening preview file: %v", err)
	}
	defer f.Close()

	decoded, err := png.Decode(f)
	if err != nil {
		t.Fatalf("decoding preview PNG: %v", err)
	}
	gray, ok := decoded.(*image.Gray)
	if !ok {
		t.Fatalf("expected grayscale PNG, got %T", decoded)
	}
	for i, p := range gray.Pix {
		if p != 0xFF {
			t.Fatalf("pixel %d not white after clear: %d", i, p)
		}
	}
}

func TestFileTransportCancelledContext(t *testing.T) {
	transport, err := NewFileTransport(t.TempDir(), 10, 10)
	if err != nil {
		t.Fatalf("NewFileTransport() error: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := transport.Push(ctx, image.NewGray(image.Rect(0, 0, 10, 10))); err == nil {
		t.Error("expected error for cancelled context")
	}
}
