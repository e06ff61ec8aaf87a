package capture

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// FileSource decodes a single still image, the "upload a photo" path.
// It yields at most one frame and then reports io.EOF.
type FileSource struct {
	path     string
	consumed bool
}

// NewFileSource creates a source over one image file
func NewFileSource(path string) *FileSource {
	return &FileSource{path: path}
}

// Open verifies the file is readable
func (s *FileSource) Open(ctx context.Context) error {
	info, err := os.Stat(s.path)
	if err != nil {
		return classifyOpenError(err)
	}
	if info.IsDir() {
		return fmt.Errorf("%w: %s is a directory", ErrUnsupported, s.path)
	}
	return nil
}

// Next decodes the image once; later calls report exhaustion
func (s *FileSource) Next(ctx context.Context) (string, error) {
	if s.consumed {
		return "", io.EOF
	}
	s.consumed = true
	return DecodeImageFile(s.path)
}

// Close releases nothing; the file handle is scoped to the decode call
func (s *FileSource) Close() error {
	return nil
}

// SpoolSource watches a directory for new image frames, the stand-in for
// a live camera feed: each frame dropped into the spool is one decode
// attempt. Frames that decode to nothing are steady state.
type SpoolSource struct {
	dir  string
	seen map[string]bool
}

// NewSpoolSource creates a source over a frame spool directory
func NewSpoolSource(dir string) *SpoolSource {
	return &SpoolSource{
		dir:  dir,
		seen: make(map[string]bool),
	}
}

// Open verifies the spool directory is usable
func (s *SpoolSource) Open(ctx context.Context) error {
	info, err := os.Stat(s.dir)
	if err != nil {
		return classifyOpenError(err)
	}
	if !info.IsDir() {
		return fmt.Errorf("%w: %s is not a directory", ErrUnsupported, s.dir)
	}
	return nil
}

// Next tries every frame not yet attempted, oldest name first
func (s *SpoolSource) Next(ctx context.Context) (string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return "", classifyOpenError(err)
	}

	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || s.seen[entry.Name()] || !isImageName(entry.Name()) {
			continue
		}
		names = append(names, entry.Name())
	}
	sort.Strings(names)

	for _, name := range names {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		s.seen[name] = true
		text, err := DecodeImageFile(filepath.Join(s.dir, name))
		if err != nil {
			// A bad frame is not a reason to stop the feed
			continue
		}
		return text, nil
	}

	return "", ErrNoFrame
}

// Close releases the seen set
func (s *SpoolSource) Close() error {
	s.seen = nil
	return nil
}

func isImageName(name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".png", ".jpg", ".jpeg":
		return true
	default:
		return false
	}
}
