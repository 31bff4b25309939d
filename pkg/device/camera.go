package device

import (
	"errors"
	"fmt"
	"image"
	_ "image/jpeg" // frame formats
	_ "image/png"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"
)

var (
	// ErrDeviceUnavailable - the requested capture device cannot be opened
	ErrDeviceUnavailable = errors.New("capture device unavailable")
	// ErrNoFrame - the device did not deliver a frame
	ErrNoFrame = errors.New("no frame available")
)

// Handle - opened capture device
type Handle interface {
	Index() int
}

// FrameSource - camera abstraction
type FrameSource interface {
	Open(index int) (Handle, error)
	Read(h Handle) (image.Image, error)
	Release(h Handle) error
}

// ImageDirSource - FrameSource serving still images, device N is the directory <root>/<N>.
// Frames are read in file name order and the sequence loops.
type ImageDirSource struct {
	root string
}

// NewImageDirSource - ImageDirSource constructor
func NewImageDirSource(root string) *ImageDirSource {
	return &ImageDirSource{root: root}
}

type dirHandle struct {
	mu     sync.Mutex
	index  int
	frames []string
	next   int
	closed bool
}

func (h *dirHandle) Index() int { return h.index }

// Open - lists the frames of device index
func (s *ImageDirSource) Open(index int) (Handle, error) {
	dir := filepath.Join(s.root, strconv.Itoa(index))
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrDeviceUnavailable, dir, err)
	}

	var frames []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		switch strings.ToLower(filepath.Ext(e.Name())) {
		case ".png", ".jpg", ".jpeg":
			frames = append(frames, filepath.Join(dir, e.Name()))
		}
	}
	if len(frames) == 0 {
		return nil, fmt.Errorf("%w: %s holds no frames", ErrDeviceUnavailable, dir)
	}
	sort.Strings(frames)
	return &dirHandle{index: index, frames: frames}, nil
}

// Read - decodes the next frame
func (s *ImageDirSource) Read(h Handle) (image.Image, error) {
	dh, ok := h.(*dirHandle)
	if !ok || dh == nil {
		return nil, fmt.Errorf("%w: foreign handle", ErrNoFrame)
	}
	dh.mu.Lock()
	if dh.closed {
		dh.mu.Unlock()
		return nil, fmt.Errorf("%w: device released", ErrNoFrame)
	}
	path := dh.frames[dh.next]
	dh.next = (dh.next + 1) % len(dh.frames)
	dh.mu.Unlock()

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNoFrame, err)
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrNoFrame, path, err)
	}
	return img, nil
}

// Release - closes the handle, further reads fail
func (s *ImageDirSource) Release(h Handle) error {
	dh, ok := h.(*dirHandle)
	if !ok || dh == nil {
		return fmt.Errorf("cannot release foreign handle")
	}
	dh.mu.Lock()
	defer dh.mu.Unlock()
	dh.closed = true
	return nil
}
