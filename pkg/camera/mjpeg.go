package camera

import (
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"strings"
	"sync"
	"time"

	"ProjectZukan/pkg/log"
	"ProjectZukan/pkg/utils"
)

const maxMJPEGFrameSize = 8 * 1024 * 1024

// MJPEGSource reads a multipart/x-mixed-replace stream in the background and keeps only the
// newest frame. Capture hands out each frame at most once.
type MJPEGSource struct {
	url     string
	client  *http.Client
	timeout time.Duration

	mu       sync.Mutex
	latest   []byte
	seq      uint64
	lastRead uint64
	lastErr  error
	notify   chan struct{}

	cancel context.CancelFunc
	done   chan struct{}
}

func NewMJPEGSource(url string, timeout time.Duration) *MJPEGSource {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}

	ctx, cancel := context.WithCancel(context.Background())
	s := &MJPEGSource{
		url:     url,
		client:  &http.Client{},
		timeout: timeout,
		notify:  make(chan struct{}),
		cancel:  cancel,
		done:    make(chan struct{}),
	}
	go s.run(ctx)
	return s
}

func (s *MJPEGSource) run(ctx context.Context) {
	defer close(s.done)

	for ctx.Err() == nil {
		err := s.stream(ctx)
		if ctx.Err() != nil {
			return
		}

		s.mu.Lock()
		s.lastErr = err
		s.mu.Unlock()

		log.Warn(log.Fields{
			"url":   s.url,
			"error": fmt.Sprint(err),
		}, "MJPEG stream ended, reconnecting")

		select {
		case <-ctx.Done():
			return
		case <-time.After(time.Second):
		}
	}
}

func (s *MJPEGSource) stream(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.url, nil)
	if err != nil {
		return err
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	mediaType, params, err := mime.ParseMediaType(resp.Header.Get("Content-Type"))
	if err != nil {
		return err
	}
	if !strings.HasPrefix(mediaType, "multipart/") {
		return fmt.Errorf("unexpected content type %q", mediaType)
	}
	boundary := strings.TrimPrefix(params["boundary"], "--")
	if boundary == "" {
		return errors.New("missing multipart boundary")
	}

	mr := multipart.NewReader(resp.Body, boundary)
	for {
		part, err := mr.NextPart()
		if err != nil {
			return err
		}

		data, err := io.ReadAll(io.LimitReader(part, maxMJPEGFrameSize))
		part.Close()
		if err != nil {
			return err
		}
		if len(data) == 0 {
			continue
		}
		s.publish(data)
	}
}

func (s *MJPEGSource) publish(data []byte) {
	s.mu.Lock()
	s.latest = data
	s.seq++
	close(s.notify)
	s.notify = make(chan struct{})
	s.mu.Unlock()
}

func (s *MJPEGSource) Capture(ctx context.Context) (image.Image, error) {
	deadline := time.NewTimer(s.timeout)
	defer deadline.Stop()

	for {
		s.mu.Lock()
		if s.seq > s.lastRead {
			data := s.latest
			s.lastRead = s.seq
			s.mu.Unlock()

			img, err := utils.DecodeImage(data)
			if err != nil {
				return nil, fmt.Errorf("%w: %v", ErrCapture, err)
			}
			return img, nil
		}
		wait := s.notify
		lastErr := s.lastErr
		s.mu.Unlock()

		select {
		case <-wait:
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-deadline.C:
			if lastErr != nil {
				return nil, fmt.Errorf("%w: no frame within %s: %v", ErrCapture, s.timeout, lastErr)
			}
			return nil, fmt.Errorf("%w: no frame within %s", ErrCapture, s.timeout)
		}
	}
}

func (s *MJPEGSource) Close() error {
	s.cancel()
	<-s.done
	return nil
}
