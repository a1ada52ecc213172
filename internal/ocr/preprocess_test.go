package ocr

import (
	"bytes"
	"encoding/binary"
	"hash/crc32"
	"image"
	"image/color"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testPage(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			c := color.RGBA{R: 240, G: 235, B: 220, A: 255}
			if y > h/3 && y < h/2 && x > w/5 && x < 4*w/5 {
				c = color.RGBA{R: 30, G: 30, B: 40, A: 255}
			}
			img.Set(x, y, c)
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

// withPHYs inserts a pHYs chunk (pixels per metre) right after IHDR.
func withPHYs(data []byte, ppm uint32) []byte {
	chunk := make([]byte, 0, 21)
	body := make([]byte, 13)
	copy(body[:4], "pHYs")
	binary.BigEndian.PutUint32(body[4:8], ppm)
	binary.BigEndian.PutUint32(body[8:12], ppm)
	body[12] = 1
	chunk = binary.BigEndian.AppendUint32(chunk, 9)
	chunk = append(chunk, body...)
	chunk = binary.BigEndian.AppendUint32(chunk, crc32.ChecksumIEEE(body))

	const ihdrEnd = 8 + 4 + 4 + 13 + 4
	out := append([]byte{}, data[:ihdrEnd]...)
	out = append(out, chunk...)
	return append(out, data[ihdrEnd:]...)
}

func TestPreprocessor_ScalesToTargetDPI(t *testing.T) {
	p := NewPreprocessor()
	tests := []struct {
		name    string
		density float64
		wantW   int
		wantH   int
	}{
		{"already 300 dpi", 300, 60, 40},
		{"150 dpi doubles", 150, 120, 80},
		{"unknown density assumes 72", 0, 250, 167},
	}
	src := testPage(t, 60, 40)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := p.Process(src, ImageMeta{Density: tt.density})
			require.NoError(t, err)

			img, err := png.Decode(bytes.NewReader(out))
			require.NoError(t, err)
			assert.Equal(t, tt.wantW, img.Bounds().Dx())
			assert.Equal(t, tt.wantH, img.Bounds().Dy())
			_, gray := img.(*image.Gray)
			assert.True(t, gray, "output is single channel")
		})
	}
}

func TestPreprocessor_StretchesContrast(t *testing.T) {
	out, err := NewPreprocessor().Process(testPage(t, 60, 40), ImageMeta{Density: 300})
	require.NoError(t, err)
	img, err := png.Decode(bytes.NewReader(out))
	require.NoError(t, err)
	g := img.(*image.Gray)

	paper := g.GrayAt(5, 5).Y
	ink := g.GrayAt(30, 17).Y
	assert.GreaterOrEqual(t, paper, uint8(250))
	assert.LessOrEqual(t, ink, uint8(5))
}

func TestPreprocessor_MaxDimension(t *testing.T) {
	p := &Preprocessor{TargetDPI: 300, MaxDimension: 100}
	out, err := p.Process(testPage(t, 60, 40), ImageMeta{Density: 72})
	require.NoError(t, err)
	img, err := png.Decode(bytes.NewReader(out))
	require.NoError(t, err)
	assert.Equal(t, 100, img.Bounds().Dx())
	assert.Equal(t, 67, img.Bounds().Dy())
}

func TestPreprocessor_RejectsGarbage(t *testing.T) {
	_, err := NewPreprocessor().Process([]byte("not an image"), ImageMeta{})
	require.ErrorIs(t, err, ErrImageProcessing)
}

func TestDetectDensity(t *testing.T) {
	page := testPage(t, 10, 10)
	assert.Zero(t, DetectDensity(page))
	assert.InDelta(t, 300.0, DetectDensity(withPHYs(page, 11811)), 0.01)

	jfif := []byte{0xFF, 0xD8, 0xFF, 0xE0, 0x00, 0x10, 'J', 'F', 'I', 'F', 0x00, 0x01, 0x02, 0x01, 0x00, 0xC8, 0x00, 0xC8, 0x00, 0x00}
	assert.Equal(t, 200.0, DetectDensity(jfif))
	assert.Zero(t, DetectDensity([]byte("plain")))

	// a pHYs-tagged file still decodes and scales from the recorded density
	out, err := NewPreprocessor().Process(withPHYs(testPage(t, 30, 20), 5906), ImageMeta{})
	require.NoError(t, err)
	img, err := png.Decode(bytes.NewReader(out))
	require.NoError(t, err)
	assert.Equal(t, 60, img.Bounds().Dx())
}

func TestEnhance_RemovesSpeckle(t *testing.T) {
	img := image.NewGray(image.Rect(0, 0, 9, 9))
	for i := range img.Pix {
		img.Pix[i] = 128
	}
	img.SetGray(4, 4, color.Gray{Y: 255})

	out := enhance(img)
	assert.Equal(t, out.GrayAt(0, 0), out.GrayAt(4, 4), "isolated speck is filtered out")
	assert.Equal(t, img.Bounds(), out.Bounds())
}

func TestStretchLevels(t *testing.T) {
	bins := make([]int, 256)
	bins[40] = 500
	bins[200] = 500
	lut := stretchLevels(bins)
	assert.Equal(t, uint8(0), lut[40])
	assert.Equal(t, uint8(255), lut[200])
	assert.Equal(t, uint8(128), lut[120])

	flat := make([]int, 256)
	flat[90] = 10
	lut = stretchLevels(flat)
	assert.Equal(t, uint8(90), lut[90], "single-level image is left alone")
	assert.Equal(t, uint8(7), stretchLevels(nil)[7])
}
