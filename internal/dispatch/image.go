package dispatch

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"image"
	"image/color"
	"io"
	"net/http"

	"github.com/disintegration/imaging"
	"github.com/gen2brain/avif"
	"github.com/gen2brain/webp"

	"filewell/internal/formats"
	"filewell/internal/services"
)

// ICO directory entries store sizes in a byte; 0 means 256.
const maxICODimension = 256

type rasterEncoder func(w io.Writer, img *image.NRGBA, p formats.Preset) error

// Raster encoders by target key. Targets without alpha support are
// flattened onto white first.
var rasterEncoders = map[string]rasterEncoder{
	"png": func(w io.Writer, img *image.NRGBA, _ formats.Preset) error {
		return imaging.Encode(w, img, imaging.PNG)
	},
	"jpeg": func(w io.Writer, img *image.NRGBA, p formats.Preset) error {
		opts := []imaging.EncodeOption{}
		if p.Quality > 0 {
			opts = append(opts, imaging.JPEGQuality(p.Quality))
		}
		return imaging.Encode(w, flatten(img), imaging.JPEG, opts...)
	},
	"gif": func(w io.Writer, img *image.NRGBA, _ formats.Preset) error {
		return imaging.Encode(w, img, imaging.GIF)
	},
	"tiff": func(w io.Writer, img *image.NRGBA, _ formats.Preset) error {
		return imaging.Encode(w, img, imaging.TIFF)
	},
	"bmp": func(w io.Writer, img *image.NRGBA, _ formats.Preset) error {
		return imaging.Encode(w, img, imaging.BMP)
	},
	"webp": func(w io.Writer, img *image.NRGBA, p formats.Preset) error {
		return webp.Encode(w, img, webp.Options{Quality: p.Quality, Lossless: p.Lossless, Method: 4, Exact: true})
	},
	"avif": func(w io.Writer, img *image.NRGBA, p formats.Preset) error {
		return avif.Encode(w, img, avif.Options{Quality: p.Quality, QualityAlpha: p.Quality, Speed: p.Speed})
	},
	"ico": encodeICO,
}

func (d *Dispatcher) convertImage(src Source, target string) (Result, error) {
	enc, ok := rasterEncoders[target]
	if !ok {
		msg := fmt.Sprintf("no raster encoder for %s", target)
		return Result{}, services.Wrap(services.ErrUnsupportedConversion, "dispatch", "encode image", msg, nil)
	}

	decoded, err := imaging.Decode(bytes.NewReader(src.Data), imaging.AutoOrientation(true))
	if err != nil {
		msg := fmt.Sprintf("failed to load %s for conversion", displayName(src))
		return Result{}, services.Wrap(services.ErrImageDecodeFailed, "dispatch", "decode image", msg, err)
	}
	surface := imaging.Clone(decoded)

	var buf bytes.Buffer
	if err := enc(&buf, surface, d.registry.PresetFor(target)); err != nil {
		msg := fmt.Sprintf("failed to encode %s as %s", displayName(src), target)
		return Result{}, services.Wrap(services.ErrEncodeFailed, "dispatch", "encode image", msg, err)
	}
	if buf.Len() == 0 {
		msg := fmt.Sprintf("failed to encode %s as %s", displayName(src), target)
		return Result{}, services.Wrap(services.ErrEncodeFailed, "dispatch", "encode image", msg, nil)
	}

	data := buf.Bytes()
	return Result{
		Data:        data,
		ContentType: d.resolveContentType(target, func() string { return http.DetectContentType(data) }),
		Attempts:    1,
	}, nil
}

// flatten composites img onto an opaque white background.
func flatten(img *image.NRGBA) *image.NRGBA {
	b := img.Bounds()
	bg := imaging.New(b.Dx(), b.Dy(), color.White)
	return imaging.Overlay(bg, img, image.Pt(0, 0), 1.0)
}

// encodeICO writes a single-image icon with a PNG payload. Images larger
// than an icon can hold are scaled to fit.
func encodeICO(w io.Writer, img *image.NRGBA, _ formats.Preset) error {
	if img.Bounds().Dx() > maxICODimension || img.Bounds().Dy() > maxICODimension {
		img = imaging.Fit(img, maxICODimension, maxICODimension, imaging.Lanczos)
	}
	var payload bytes.Buffer
	if err := imaging.Encode(&payload, img, imaging.PNG); err != nil {
		return err
	}

	width, height := img.Bounds().Dx(), img.Bounds().Dy()
	dimension := func(v int) uint8 {
		if v >= maxICODimension {
			return 0
		}
		return uint8(v)
	}

	var header [6 + 16]byte
	binary.LittleEndian.PutUint16(header[2:], 1) // type: icon
	binary.LittleEndian.PutUint16(header[4:], 1) // image count
	header[6] = dimension(width)
	header[7] = dimension(height)
	binary.LittleEndian.PutUint16(header[10:], 1)  // colour planes
	binary.LittleEndian.PutUint16(header[12:], 32) // bits per pixel
	binary.LittleEndian.PutUint32(header[14:], uint32(payload.Len()))
	binary.LittleEndian.PutUint32(header[18:], uint32(len(header)))

	if _, err := w.Write(header[:]); err != nil {
		return err
	}
	_, err := w.Write(payload.Bytes())
	return err
}
