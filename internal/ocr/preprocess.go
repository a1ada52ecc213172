package ocr

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"image"
	"image/color"
	_ "image/jpeg" // register decoder
	"image/png"
	"math"

	"github.com/anthonynsimon/bild/adjust"
	"github.com/anthonynsimon/bild/effect"
	"github.com/anthonynsimon/bild/histogram"
	"golang.org/x/image/draw"

	"github.com/joseph-ayodele/lexiscan/constants"
)

// ErrImageProcessing wraps every preprocessing failure.
var ErrImageProcessing = errors.New("image preprocessing failed")

// ImageMeta describes the source raster. Zero values mean unknown.
type ImageMeta struct {
	Width   int
	Height  int
	Density float64 // dots per inch
}

// Preprocessing defaults.
const (
	DefaultDensity   = 72.0
	DefaultDimension = 1000
	contrastGain     = 1.1
	contrastOffset   = -0.1
	gammaLift        = 1.1
	medianRadius     = 1
	sharpenSigma     = 0.8
	sharpenAmount    = 1
	normalizeTail    = 0.01
)

// Preprocessor cleans a page image for OCR: rescale to the target DPI, grayscale,
// histogram stretch, contrast and gamma, 3x3 median, unsharp mask.
type Preprocessor struct {
	TargetDPI    int
	MaxDimension int // longest output side in px; 0 = no cap
}

func NewPreprocessor() *Preprocessor {
	return &Preprocessor{
		TargetDPI:    constants.TargetDPI,
		MaxDimension: 2 * constants.PageHeightPx,
	}
}

// Process decodes data (PNG or JPEG), runs the cleanup chain and returns PNG bytes.
// Density is read from the file when meta does not carry it.
func (p *Preprocessor) Process(data []byte, meta ImageMeta) ([]byte, error) {
	src, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: decode: %v", ErrImageProcessing, err)
	}
	if meta.Density <= 0 {
		meta.Density = DetectDensity(data)
	}
	b := src.Bounds()
	if meta.Width <= 0 {
		meta.Width = b.Dx()
	}
	if meta.Height <= 0 {
		meta.Height = b.Dy()
	}
	if meta.Width <= 0 {
		meta.Width = DefaultDimension
	}
	if meta.Height <= 0 {
		meta.Height = DefaultDimension
	}

	w, h := p.targetSize(meta)
	scaled := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.CatmullRom.Scale(scaled, scaled.Bounds(), src, b, draw.Src, nil)
	gray := enhance(scaled)

	var buf bytes.Buffer
	enc := png.Encoder{CompressionLevel: png.BestSpeed}
	if err := enc.Encode(&buf, gray); err != nil {
		return nil, fmt.Errorf("%w: encode: %v", ErrImageProcessing, err)
	}
	return buf.Bytes(), nil
}

func (p *Preprocessor) targetSize(meta ImageMeta) (int, int) {
	density := meta.Density
	if density <= 0 {
		density = DefaultDensity
	}
	target := float64(p.TargetDPI)
	if target <= 0 {
		target = constants.TargetDPI
	}
	scale := target / density
	w := float64(meta.Width) * scale
	h := float64(meta.Height) * scale
	if p.MaxDimension > 0 {
		if longest := math.Max(w, h); longest > float64(p.MaxDimension) {
			k := float64(p.MaxDimension) / longest
			w, h = w*k, h*k
		}
	}
	return max(1, int(math.Round(w))), max(1, int(math.Round(h)))
}

// enhance runs the cleanup chain on a resized page and returns one channel.
func enhance(img image.Image) *image.Gray {
	gray := effect.Grayscale(img)
	levels := stretchLevels(histogram.NewRGBAHistogram(gray).R.Bins)
	var lut [256]uint8
	for i := range lut {
		lut[i] = clamp8(float64(levels[i])*contrastGain + contrastOffset*255)
	}
	out := adjust.Apply(gray, func(c color.RGBA) color.RGBA {
		v := lut[c.R]
		return color.RGBA{R: v, G: v, B: v, A: c.A}
	})
	out = adjust.Gamma(out, gammaLift)
	out = effect.Median(out, medianRadius)
	out = effect.UnsharpMask(out, sharpenSigma, sharpenAmount)
	rgba := effect.Grayscale(out)
	g := image.NewGray(rgba.Bounds())
	draw.Draw(g, g.Bounds(), rgba, rgba.Bounds().Min, draw.Src)
	return g
}

// stretchLevels maps luminance so the 1st..99th percentiles of bins span 0..255.
// A flat histogram yields the identity.
func stretchLevels(bins []int) [256]uint8 {
	var lut [256]uint8
	for i := range lut {
		lut[i] = uint8(i)
	}
	total := 0
	for _, n := range bins {
		total += n
	}
	if total == 0 || len(bins) < 256 {
		return lut
	}
	cut := int(float64(total) * normalizeTail)
	lo, hi := 0, 255
	for acc := 0; lo < 255; lo++ {
		acc += bins[lo]
		if acc > cut {
			break
		}
	}
	for acc := 0; hi > 0; hi-- {
		acc += bins[hi]
		if acc > cut {
			break
		}
	}
	if hi <= lo {
		return lut
	}
	span := float64(hi - lo)
	for i := range lut {
		lut[i] = clamp8((float64(i) - float64(lo)) * 255 / span)
	}
	return lut
}

// DetectDensity reads the DPI recorded in a PNG pHYs chunk or a JPEG JFIF header.
// It returns 0 when none is present.
func DetectDensity(data []byte) float64 {
	switch {
	case bytes.HasPrefix(data, []byte("\x89PNG\r\n\x1a\n")):
		return pngDensity(data[8:])
	case bytes.HasPrefix(data, []byte{0xFF, 0xD8}):
		return jfifDensity(data[2:])
	}
	return 0
}

func pngDensity(b []byte) float64 {
	for len(b) >= 12 {
		n := int(binary.BigEndian.Uint32(b[:4]))
		typ := string(b[4:8])
		if n < 0 || len(b) < 12+n {
			return 0
		}
		if typ == "pHYs" && n >= 9 {
			ppuX := binary.BigEndian.Uint32(b[8:12])
			if b[16] == 1 { // unit: metre
				return float64(ppuX) * 0.0254
			}
			return 0
		}
		if typ == "IDAT" || typ == "IEND" {
			return 0
		}
		b = b[12+n:]
	}
	return 0
}

func jfifDensity(b []byte) float64 {
	// APP0: FF E0 len(2) "JFIF\0" ver(2) units(1) Xdensity(2) Ydensity(2)
	if len(b) < 16 || b[0] != 0xFF || b[1] != 0xE0 || string(b[4:9]) != "JFIF\x00" {
		return 0
	}
	units := b[11]
	x := float64(binary.BigEndian.Uint16(b[12:14]))
	switch units {
	case 1:
		return x
	case 2:
		return x * 2.54
	}
	return 0
}

func clampF(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return v
}

func clamp8(v float64) uint8 {
	return uint8(math.Round(clampF(v)))
}
