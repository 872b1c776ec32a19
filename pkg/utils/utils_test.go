package utils

import (
	"encoding/base64"
	"image"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestDecodeBase64Image(t *testing.T) {
	u := New()
	raw := []byte{0xff, 0xd8, 0xff, 0x00}
	encoded := base64.StdEncoding.EncodeToString(raw)

	got, err := u.DecodeBase64Image(encoded)
	require.NoError(t, err)
	require.Equal(t, raw, got)

	got, err = u.DecodeBase64Image("data:image/jpeg;base64," + encoded)
	require.NoError(t, err)
	require.Equal(t, raw, got)

	_, err = u.DecodeBase64Image("  ")
	require.ErrorIs(t, err, ErrNoFile)

	_, err = u.DecodeBase64Image("%%%")
	require.ErrorIs(t, err, ErrInvalidImage)
}

func TestFitWidth(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 1000, 500))

	small := FitWidth(img, 200)
	require.Equal(t, 200, small.Bounds().Dx())
	require.Equal(t, 100, small.Bounds().Dy())

	require.Equal(t, img, FitWidth(img, 2000))
	require.Equal(t, img, FitWidth(img, 0))
}

func TestEncodeDecodeImage(t *testing.T) {
	data, err := EncodeJPEG(image.NewRGBA(image.Rect(0, 0, 8, 4)), 80)
	require.NoError(t, err)

	img, err := DecodeImage(data)
	require.NoError(t, err)
	require.Equal(t, 8, img.Bounds().Dx())

	_, err = DecodeImage([]byte("nope"))
	require.ErrorIs(t, err, ErrInvalidImage)
}

func TestNewULIDFromTimestamp(t *testing.T) {
	id, err := New().NewULIDFromTimestamp(time.Now())
	require.NoError(t, err)
	require.Len(t, id, 26)
}
