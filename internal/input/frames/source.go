package frames

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"incidentwatch/internal/visual"
	"incidentwatch/pkg/models"
)

// Extensions lists the accepted frame image extensions.
var Extensions = []string{".jpg", ".jpeg", ".png"}

// Options tags every frame read from a directory.
type Options struct {
	Source   string
	Camera   string
	Location *models.Location
}

// DirSource reads a directory of frame images in lexical order as one video.
type DirSource struct {
	paths []string
	pos   int
	opts  Options
}

// OpenDir lists the frame images under dir.
func OpenDir(dir string, opts Options) (*DirSource, error) {
	paths, err := listFrames(dir)
	if err != nil {
		return nil, err
	}
	if opts.Source == "" {
		opts.Source = filepath.Base(dir)
	}
	return &DirSource{paths: paths, opts: opts}, nil
}

// Len returns the number of frames in the directory.
func (s *DirSource) Len() int {
	return len(s.paths)
}

// Next reads the next frame, or returns io.EOF when the directory is exhausted.
func (s *DirSource) Next(ctx context.Context) (visual.Frame, error) {
	if err := ctx.Err(); err != nil {
		return visual.Frame{}, err
	}
	if s.pos >= len(s.paths) {
		return visual.Frame{}, io.EOF
	}
	path := s.paths[s.pos]
	data, err := os.ReadFile(path)
	if err != nil {
		return visual.Frame{}, fmt.Errorf("read frame %s: %w", path, err)
	}
	frame := visual.Frame{
		Ref: models.FrameRef{
			Source: s.opts.Source,
			Camera: s.opts.Camera,
			Index:  s.pos,
		},
		Location: s.opts.Location,
		Image:    data,
	}
	s.pos++
	return frame, nil
}

// Close releases the source.
func (s *DirSource) Close() error {
	s.pos = len(s.paths)
	return nil
}

// ListVideos returns root itself when it holds frames, otherwise its subdirectories that do.
func ListVideos(root string) ([]string, error) {
	entries, err := os.ReadDir(root)
	if err != nil {
		return nil, fmt.Errorf("read video directory: %w", err)
	}

	var videos []string
	for _, e := range entries {
		if !e.IsDir() && isFrame(e.Name()) {
			return []string{root}, nil
		}
		if e.IsDir() {
			videos = append(videos, filepath.Join(root, e.Name()))
		}
	}

	var out []string
	for _, dir := range videos {
		paths, err := listFrames(dir)
		if err != nil {
			return nil, err
		}
		if len(paths) > 0 {
			out = append(out, dir)
		}
	}
	sort.Strings(out)
	return out, nil
}

func listFrames(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read frame directory: %w", err)
	}
	var paths []string
	for _, e := range entries {
		if e.IsDir() || !isFrame(e.Name()) {
			continue
		}
		paths = append(paths, filepath.Join(dir, e.Name()))
	}
	sort.Strings(paths)
	return paths, nil
}

func isFrame(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	for _, allowed := range Extensions {
		if ext == allowed {
			return true
		}
	}
	return false
}
