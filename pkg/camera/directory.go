package camera

import (
	"context"
	"fmt"
	"image"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"ProjectZukan/pkg/utils"
)

// DirectorySource replays the images of a directory in name order, forever.
type DirectorySource struct {
	files    []string
	interval time.Duration

	mu   sync.Mutex
	next int
}

func NewDirectorySource(dir string, interval time.Duration) (*DirectorySource, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read frame directory '%s': %w", dir, err)
	}

	var files []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		switch strings.ToLower(filepath.Ext(e.Name())) {
		case ".jpg", ".jpeg", ".png":
			files = append(files, filepath.Join(dir, e.Name()))
		}
	}
	sort.Strings(files)

	return &DirectorySource{files: files, interval: interval}, nil
}

func (s *DirectorySource) Capture(ctx context.Context) (image.Image, error) {
	if s.interval > 0 {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(s.interval):
		}
	}

	s.mu.Lock()
	if len(s.files) == 0 {
		s.mu.Unlock()
		return nil, fmt.Errorf("%w: no images in directory", ErrCapture)
	}
	path := s.files[s.next]
	s.next = (s.next + 1) % len(s.files)
	s.mu.Unlock()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCapture, err)
	}

	img, err := utils.DecodeImage(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrCapture, filepath.Base(path), err)
	}
	return img, nil
}

func (s *DirectorySource) Close() error {
	return nil
}
