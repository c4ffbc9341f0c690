package frames

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"
)

func writeFrames(t *testing.T, dir string, names ...string) {
	t.Helper()
	if err := os.MkdirAll(dir, 0755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	for _, name := range names {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(name), 0644); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
	}
}

func TestDirSourceReadsFramesInOrder(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "gate-cam")
	writeFrames(t, dir, "frame_002.jpg", "frame_001.PNG", "notes.txt", "frame_003.jpeg")

	src, err := OpenDir(dir, Options{Camera: "gate"})
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer src.Close()
	if src.Len() != 3 {
		t.Fatalf("expected 3 frames, got %d", src.Len())
	}

	want := []string{"frame_001.PNG", "frame_002.jpg", "frame_003.jpeg"}
	for i, name := range want {
		frame, err := src.Next(context.Background())
		if err != nil {
			t.Fatalf("next %d: %v", i, err)
		}
		if string(frame.Image) != name || frame.Ref.Index != i {
			t.Fatalf("expected %s at %d, got %s at %d", name, i, frame.Image, frame.Ref.Index)
		}
		if frame.Ref.Source != "gate-cam" || frame.Ref.Camera != "gate" {
			t.Fatalf("unexpected ref %+v", frame.Ref)
		}
	}
	if _, err := src.Next(context.Background()); !errors.Is(err, io.EOF) {
		t.Fatalf("expected io.EOF, got %v", err)
	}
}

func TestDirSourceCanceledContext(t *testing.T) {
	dir := t.TempDir()
	writeFrames(t, dir, "a.jpg")
	src, _ := OpenDir(dir, Options{})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := src.Next(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestListVideos(t *testing.T) {
	root := t.TempDir()
	writeFrames(t, filepath.Join(root, "b"), "1.jpg")
	writeFrames(t, filepath.Join(root, "a"), "1.png")
	writeFrames(t, filepath.Join(root, "empty"), "readme.md")

	videos, err := ListVideos(root)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(videos) != 2 || filepath.Base(videos[0]) != "a" || filepath.Base(videos[1]) != "b" {
		t.Fatalf("unexpected videos %v", videos)
	}

	single := filepath.Join(root, "a")
	videos, err = ListVideos(single)
	if err != nil || len(videos) != 1 || videos[0] != single {
		t.Fatalf("expected frame directory itself, got %v (%v)", videos, err)
	}
}
