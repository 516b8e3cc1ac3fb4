// Package imaging derives the stored and transient renditions of an uploaded
// image: a grayscale copy for text extraction, a full-color PNG and a bounded
// thumbnail.
package imaging

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/png"

	_ "image/jpeg"

	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp"

	"github.com/dmitrijs2005/meduploads/internal/common"
)

// Variant tags used in filenames.
const (
	TagGrayscale = "grayscale"
	TagColor     = "color"
	TagThumbnail = "thumb"
)

// OutputExt and OutputContentType describe every encoded variant.
const (
	OutputExt         = "png"
	OutputContentType = "image/png"
)

// maxPixels bounds decoded image area.
const maxPixels = 40_000_000

var supportedFormats = map[string]struct{}{
	"jpeg": {},
	"png":  {},
	"webp": {},
}

// Source is one uploaded image as received.
type Source struct {
	Data     []byte
	Filename string
	UserID   int64
}

// Variant is one encoded rendition.
type Variant struct {
	Tag      string
	Filename string
	Data     []byte
	Width    int
	Height   int
}

// VariantSet holds the three renditions of one Source.
type VariantSet struct {
	Format    string
	Grayscale Variant
	Color     Variant
	Thumbnail Variant
}

// Generator produces VariantSets. It is safe for concurrent use.
type Generator struct {
	thumbSize int
	namer     *Namer
	encoder   png.Encoder
}

func NewGenerator(thumbSize int, namer *Namer) *Generator {
	if namer == nil {
		namer = NewNamer()
	}
	return &Generator{
		thumbSize: thumbSize,
		namer:     namer,
		encoder:   png.Encoder{CompressionLevel: png.DefaultCompression},
	}
}

// Generate decodes src and renders its variants. index is the position of the
// file within its batch and feeds the filename token. Undecodable or
// unsupported input yields a KindProcessing error.
func (g *Generator) Generate(src Source, index int) (*VariantSet, error) {
	const op = "imaging.generate"

	img, format, err := decode(src.Data)
	if err != nil {
		return nil, common.Errorf(common.KindProcessing, op, "file %d (%s): %w", index, src.Filename, err)
	}

	token, err := g.namer.Token(index)
	if err != nil {
		return nil, common.E(common.KindProcessing, op, err)
	}
	base := BaseName(src.Filename)

	set := &VariantSet{Format: format}

	gray := toGray(img)
	if set.Grayscale, err = g.render(TagGrayscale, gray, base, src.UserID, token); err != nil {
		return nil, common.E(common.KindProcessing, op, err)
	}
	if set.Color, err = g.render(TagColor, img, base, src.UserID, token); err != nil {
		return nil, common.E(common.KindProcessing, op, err)
	}
	if set.Thumbnail, err = g.render(TagThumbnail, Thumbnail(img, g.thumbSize), base, src.UserID, token); err != nil {
		return nil, common.E(common.KindProcessing, op, err)
	}

	return set, nil
}

func (g *Generator) render(tag string, img image.Image, base string, userID int64, token string) (Variant, error) {
	var buf bytes.Buffer
	if err := g.encoder.Encode(&buf, img); err != nil {
		return Variant{}, fmt.Errorf("encode %s: %w", tag, err)
	}
	b := img.Bounds()
	return Variant{
		Tag:      tag,
		Filename: g.namer.Name(base, tag, userID, token, OutputExt),
		Data:     buf.Bytes(),
		Width:    b.Dx(),
		Height:   b.Dy(),
	}, nil
}

func decode(data []byte) (image.Image, string, error) {
	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		if errors.Is(err, image.ErrFormat) {
			return nil, "", common.ErrUnsupportedFormat
		}
		return nil, "", fmt.Errorf("decode config: %w", err)
	}
	if _, ok := supportedFormats[format]; !ok {
		return nil, "", fmt.Errorf("%w: %s", common.ErrUnsupportedFormat, format)
	}
	if cfg.Width <= 0 || cfg.Height <= 0 || cfg.Width*cfg.Height > maxPixels {
		return nil, "", fmt.Errorf("image dimensions %dx%d out of range", cfg.Width, cfg.Height)
	}

	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, "", fmt.Errorf("decode: %w", err)
	}
	return img, format, nil
}

func toGray(img image.Image) *image.Gray {
	b := img.Bounds()
	gray := image.NewGray(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(gray, gray.Bounds(), img, b.Min, draw.Src)
	return gray
}

// Thumbnail scales img down to fit a bound×bound box, preserving aspect ratio.
// Images already inside the box are returned unchanged.
func Thumbnail(img image.Image, bound int) image.Image {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	if bound <= 0 || (w <= bound && h <= bound) {
		return img
	}

	tw, th := FitWithin(w, h, bound)
	dst := image.NewRGBA(image.Rect(0, 0, tw, th))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, b, draw.Src, nil)
	return dst
}

// FitWithin returns the largest size with w:h proportions that fits a
// bound×bound box without exceeding the original size. Each side is at least 1.
func FitWithin(w, h, bound int) (int, int) {
	if w <= bound && h <= bound {
		return w, h
	}
	var tw, th int
	if w >= h {
		tw = bound
		th = h * bound / w
	} else {
		th = bound
		tw = w * bound / h
	}
	if tw < 1 {
		tw = 1
	}
	if th < 1 {
		th = 1
	}
	return tw, th
}
