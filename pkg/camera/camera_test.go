package camera

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func solidImage(w, h int, c color.Color) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, c)
		}
	}
	return img
}

func writePNG(t *testing.T, path string, w, h int) {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, solidImage(w, h, color.White)))
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o644))
}

func TestNew_SourceSelection(t *testing.T) {
	src, err := New("none", Options{})
	require.NoError(t, err)
	require.Nil(t, src)

	src, err = New("", Options{})
	require.NoError(t, err)
	require.Nil(t, src)

	_, err = New("ftp://camera", Options{})
	require.Error(t, err)

	_, err = New("device:abc", Options{})
	require.Error(t, err)
}

func TestDirectorySource_CyclesInNameOrder(t *testing.T) {
	dir := t.TempDir()
	writePNG(t, filepath.Join(dir, "b.png"), 8, 4)
	writePNG(t, filepath.Join(dir, "a.png"), 4, 4)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("skip"), 0o644))

	src, err := NewDirectorySource(dir, 0)
	require.NoError(t, err)
	defer src.Close()

	ctx := context.Background()
	widths := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		img, err := src.Capture(ctx)
		require.NoError(t, err)
		widths = append(widths, img.Bounds().Dx())
	}
	require.Equal(t, []int{4, 8, 4}, widths)
}

func TestDirectorySource_EmptyDirectoryIsCaptureError(t *testing.T) {
	src, err := NewDirectorySource(t.TempDir(), 0)
	require.NoError(t, err)

	_, err = src.Capture(context.Background())
	require.ErrorIs(t, err, ErrCapture)
}

func TestMJPEGSource_ReturnsStreamedFrame(t *testing.T) {
	var frame bytes.Buffer
	require.NoError(t, jpeg.Encode(&frame, solidImage(6, 3, color.RGBA{R: 255, A: 255}), nil))

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mw := multipart.NewWriter(w)
		w.Header().Set("Content-Type", "multipart/x-mixed-replace; boundary="+mw.Boundary())

		for i := 0; i < 2; i++ {
			part, err := mw.CreatePart(textproto.MIMEHeader{"Content-Type": {"image/jpeg"}})
			if err != nil {
				return
			}
			_, _ = part.Write(frame.Bytes())
		}
		w.(http.Flusher).Flush()
		<-r.Context().Done()
	}))
	defer srv.Close()

	src := NewMJPEGSource(srv.URL, 2*time.Second)
	defer src.Close()

	img, err := src.Capture(context.Background())
	require.NoError(t, err)
	require.Equal(t, 6, img.Bounds().Dx())
	require.Equal(t, 3, img.Bounds().Dy())
}

func TestMJPEGSource_TimeoutIsCaptureError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "offline", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	src := NewMJPEGSource(srv.URL, 100*time.Millisecond)
	defer src.Close()

	_, err := src.Capture(context.Background())
	require.ErrorIs(t, err, ErrCapture)
}
