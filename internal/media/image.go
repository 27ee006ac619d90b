// Package media resizes uploaded photos and stores them on disk or in S3.
package media

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/jpeg"
	_ "image/png"
	"io"
	"time"

	"github.com/chai2010/webp"
	"golang.org/x/image/draw"

	"github.com/harentsoaR/tour-booking-api/internal/apperr"
)

const (
	FormatJPEG = "jpeg"
	FormatWebP = "webp"

	quality = 90
)

var (
	UserPhotoSize = image.Pt(500, 500)
	TourImageSize = image.Pt(2000, 1333)
)

// Cover scales src to fill size exactly, cropping the overflow evenly from
// both sides.
func Cover(src image.Image, size image.Point) image.Image {
	sb := src.Bounds()
	var crop image.Rectangle
	// Compare aspect ratios without floats: sw/sh vs tw/th.
	if sb.Dx()*size.Y > sb.Dy()*size.X {
		w := sb.Dy() * size.X / size.Y
		off := (sb.Dx() - w) / 2
		crop = image.Rect(sb.Min.X+off, sb.Min.Y, sb.Min.X+off+w, sb.Max.Y)
	} else {
		h := sb.Dx() * size.Y / size.X
		off := (sb.Dy() - h) / 2
		crop = image.Rect(sb.Min.X, sb.Min.Y+off, sb.Max.X, sb.Min.Y+off+h)
	}
	dst := image.NewRGBA(image.Rect(0, 0, size.X, size.Y))
	draw.CatmullRom.Scale(dst, dst.Bounds(), src, crop, draw.Over, nil)
	return dst
}

func encode(w io.Writer, img image.Image, format string) error {
	switch format {
	case FormatWebP:
		return webp.Encode(w, img, &webp.Options{Quality: quality})
	default:
		return jpeg.Encode(w, img, &jpeg.Options{Quality: quality})
	}
}

func contentType(format string) string {
	if format == FormatWebP {
		return "image/webp"
	}
	return "image/jpeg"
}

// Processor turns uploads into stored, resized images.
type Processor struct {
	storage Storage
	format  string
	now     func() time.Time
}

func NewProcessor(storage Storage, format string) *Processor {
	if format != FormatWebP {
		format = FormatJPEG
	}
	return &Processor{storage: storage, format: format, now: time.Now}
}

func (p *Processor) process(ctx context.Context, r io.Reader, size image.Point, key string) (string, error) {
	src, _, err := image.Decode(r)
	if err != nil {
		return "", apperr.Wrap(apperr.KindValidation, "Not an image! Please upload only images.", err)
	}
	var buf bytes.Buffer
	if err := encode(&buf, Cover(src, size), p.format); err != nil {
		return "", fmt.Errorf("encode %s: %w", key, err)
	}
	name := key + "." + p.format
	if err := p.storage.Save(ctx, name, buf.Bytes(), contentType(p.format)); err != nil {
		return "", err
	}
	return name, nil
}

// UserPhoto stores a square profile photo and returns its file name.
func (p *Processor) UserPhoto(ctx context.Context, userID string, r io.Reader) (string, error) {
	return p.process(ctx, r, UserPhotoSize, fmt.Sprintf("users/user-%s-%d", userID, p.now().UnixMilli()))
}

// TourImage stores one tour image. index 0 is the cover.
func (p *Processor) TourImage(ctx context.Context, tourID string, index int, r io.Reader) (string, error) {
	suffix := "cover"
	if index > 0 {
		suffix = fmt.Sprint(index)
	}
	return p.process(ctx, r, TourImageSize, fmt.Sprintf("tours/tour-%s-%d-%s", tourID, p.now().UnixMilli(), suffix))
}
