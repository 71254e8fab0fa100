//go:build gocv

package capture

import (
	"context"
	"fmt"
	"image"
	"sync"

	"gocv.io/x/gocv"
)

func init() {
	RegisterDevice(openDevice)
}

// deviceSource reads from a local camera through OpenCV.
type deviceSource struct {
	index int
	mu    sync.Mutex
	cap   *gocv.VideoCapture
	mat   gocv.Mat
}

func openDevice(index int) (Source, error) {
	s := &deviceSource{index: index, mat: gocv.NewMat()}
	if err := s.open(); err != nil {
		s.mat.Close()
		return nil, err
	}
	return s, nil
}

func (s *deviceSource) open() error {
	c, err := gocv.OpenVideoCapture(s.index)
	if err != nil {
		return fmt.Errorf("opening camera %d: %w", s.index, err)
	}
	if !c.IsOpened() {
		c.Close()
		return fmt.Errorf("camera %d could not be opened", s.index)
	}
	s.cap = c
	return nil
}

func (s *deviceSource) Read(ctx context.Context) (image.Image, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cap == nil {
		return nil, fmt.Errorf("camera %d is closed", s.index)
	}
	if ok := s.cap.Read(&s.mat); !ok || s.mat.Empty() {
		return nil, ErrNoFrame
	}
	img, err := s.mat.ToImage()
	if err != nil {
		return nil, fmt.Errorf("converting frame: %w", err)
	}
	return img, nil
}

func (s *deviceSource) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cap != nil {
		s.cap.Close()
		s.cap = nil
	}
	return s.mat.Close()
}
