package vision

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func encodePNG(t *testing.T, img image.Image) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func solidImage(w, h int, c color.RGBA) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetRGBA(x, y, c)
		}
	}
	return img
}

func TestDecodeImage(t *testing.T) {
	data := encodePNG(t, solidImage(4, 4, color.RGBA{R: 10, G: 20, B: 30, A: 255}))

	img, err := decodeImage(data)
	require.NoError(t, err)
	assert.Equal(t, 4, img.Bounds().Dx())
	assert.Equal(t, 4, img.Bounds().Dy())
}

func TestDecodeImageGarbage(t *testing.T) {
	_, err := decodeImage([]byte("definitely not an image"))
	require.Error(t, err)

	var decodeErr *DecodeError
	assert.ErrorAs(t, err, &decodeErr)
}

func TestResizeImage(t *testing.T) {
	src := solidImage(8, 8, color.RGBA{R: 100, G: 100, B: 100, A: 255})

	resized := resizeImage(src, 4, 2)
	assert.Equal(t, 4, resized.Bounds().Dx())
	assert.Equal(t, 2, resized.Bounds().Dy())

	// Same target size returns the input untouched.
	same := resizeImage(src, 8, 8)
	assert.Same(t, image.Image(src), same)
}

func TestImageToFloat32CHW(t *testing.T) {
	src := solidImage(2, 2, color.RGBA{R: 255, G: 127, B: 0, A: 255})

	mean := [3]float32{127.5, 127.5, 127.5}
	std := [3]float32{128.0, 128.0, 128.0}
	data := imageToFloat32CHW(src, 2, 2, mean, std)
	require.Len(t, data, 3*2*2)

	// Channel planes are contiguous: R first, then G, then B.
	for i := 0; i < 4; i++ {
		assert.InDelta(t, (255.0-127.5)/128.0, data[i], 1e-6)
		assert.InDelta(t, (127.0-127.5)/128.0, data[4+i], 1e-6)
		assert.InDelta(t, (0.0-127.5)/128.0, data[8+i], 1e-6)
	}
}

func TestCropFace(t *testing.T) {
	src := solidImage(100, 100, color.RGBA{R: 50, G: 50, B: 50, A: 255})

	crop := cropFace(src, [4]float32{20, 20, 60, 60})
	require.NotNil(t, crop)
	// 40x40 box plus 10% padding on each side.
	assert.Equal(t, 48, crop.Bounds().Dx())
	assert.Equal(t, 48, crop.Bounds().Dy())
}

func TestCropFaceDegenerateBox(t *testing.T) {
	src := solidImage(10, 10, color.RGBA{A: 255})

	assert.Nil(t, cropFace(src, [4]float32{5, 5, 5, 5}))
	assert.Nil(t, cropFace(src, [4]float32{8, 8, 2, 2}))
}

func TestClamp(t *testing.T) {
	assert.Equal(t, 0, clampI(-3, 0, 10))
	assert.Equal(t, 10, clampI(42, 0, 10))
	assert.Equal(t, 7, clampI(7, 0, 10))
	assert.Equal(t, float32(1.0), clampF(3.5, 0, 1))
	assert.Equal(t, float32(0.25), clampF(0.25, 0, 1))
}
