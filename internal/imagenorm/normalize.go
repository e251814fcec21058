package imagenorm

import (
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	_ "image/gif"
	"image/jpeg"
	"image/png"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp"

	"scrolla/internal/logging"
	"scrolla/internal/services"
)

// Options configures a Normalizer.
type Options struct {
	Width       int
	Height      int
	Background  string
	JPEGQuality int
}

// Result describes one normalized image.
type Result struct {
	Path string
	// Cached is true when the destination already existed and was reused.
	Cached       bool
	SourceWidth  int
	SourceHeight int
	// Placed is the rectangle the scaled source occupies on the canvas.
	Placed image.Rectangle
}

// Normalizer scales images onto a fixed canvas.
type Normalizer struct {
	width   int
	height  int
	fill    color.RGBA
	quality int
	logger  *slog.Logger
}

// New validates options and returns a Normalizer.
func New(opts Options, logger *slog.Logger) (*Normalizer, error) {
	if opts.Width <= 0 || opts.Height <= 0 {
		return nil, services.Wrap(services.ErrConfiguration, "normalize", "init", fmt.Sprintf("invalid canvas %dx%d", opts.Width, opts.Height), nil)
	}
	fill, err := ParseColor(opts.Background)
	if err != nil {
		return nil, err
	}
	quality := opts.JPEGQuality
	if quality <= 0 || quality > 100 {
		quality = 95
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Normalizer{width: opts.Width, height: opts.Height, fill: fill, quality: quality, logger: logger}, nil
}

// Normalize letterboxes src onto the canvas and writes it to dst. When dst
// already exists the work is skipped.
func (n *Normalizer) Normalize(ctx context.Context, src, dst string) (Result, error) {
	if _, err := os.Stat(dst); err == nil {
		return Result{Path: dst, Cached: true}, nil
	}
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}

	img, err := decode(src)
	if err != nil {
		return Result{}, err
	}
	bounds := img.Bounds()
	placed := Fit(bounds.Dx(), bounds.Dy(), n.width, n.height)

	canvas := image.NewRGBA(image.Rect(0, 0, n.width, n.height))
	draw.Draw(canvas, canvas.Bounds(), &image.Uniform{C: n.fill}, image.Point{}, draw.Src)
	draw.CatmullRom.Scale(canvas, placed, img, bounds, draw.Over, nil)

	if err := n.write(canvas, dst); err != nil {
		return Result{}, err
	}
	logging.WithContext(ctx, n.logger).Debug("image normalized",
		logging.String("source", src),
		logging.String("destination", dst),
		logging.Int("source_width", bounds.Dx()),
		logging.Int("source_height", bounds.Dy()),
	)
	return Result{
		Path:         dst,
		SourceWidth:  bounds.Dx(),
		SourceHeight: bounds.Dy(),
		Placed:       placed,
	}, nil
}

// Fit returns the centred rectangle a srcW x srcH image occupies when scaled
// by min(dstW/srcW, dstH/srcH) onto a dstW x dstH canvas.
func Fit(srcW, srcH, dstW, dstH int) image.Rectangle {
	if srcW <= 0 || srcH <= 0 {
		return image.Rectangle{}
	}
	scale := min(float64(dstW)/float64(srcW), float64(dstH)/float64(srcH))
	w := max(1, min(dstW, int(float64(srcW)*scale+1e-9)))
	h := max(1, min(dstH, int(float64(srcH)*scale+1e-9)))
	x := (dstW - w) / 2
	y := (dstH - h) / 2
	return image.Rect(x, y, x+w, y+h)
}

func decode(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, services.Wrap(services.ErrMissingAsset, "normalize", "open", path, nil)
		}
		return nil, services.Wrap(services.ErrMissingAsset, "normalize", "open", path, err)
	}
	defer f.Close()
	img, _, err := image.Decode(f)
	if err != nil {
		return nil, services.Wrap(services.ErrMissingAsset, "normalize", "decode", path, err)
	}
	return img, nil
}

func (n *Normalizer) write(img image.Image, dst string) error {
	dir := filepath.Dir(dst)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return services.Wrap(services.ErrValidation, "normalize", "mkdir", dir, err)
	}
	tmp, err := os.CreateTemp(dir, ".normalize-*"+filepath.Ext(dst))
	if err != nil {
		return services.Wrap(services.ErrValidation, "normalize", "create", dst, err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	switch strings.ToLower(filepath.Ext(dst)) {
	case ".png":
		err = png.Encode(tmp, img)
	default:
		err = jpeg.Encode(tmp, img, &jpeg.Options{Quality: n.quality})
	}
	if err != nil {
		tmp.Close()
		return services.Wrap(services.ErrValidation, "normalize", "encode", dst, err)
	}
	if err := tmp.Close(); err != nil {
		return services.Wrap(services.ErrValidation, "normalize", "close", dst, err)
	}
	if err := os.Rename(tmpPath, dst); err != nil {
		return services.Wrap(services.ErrValidation, "normalize", "rename", dst, err)
	}
	return nil
}

var namedColors = map[string]color.RGBA{
	"black": {0, 0, 0, 255},
	"white": {255, 255, 255, 255},
	"gray":  {128, 128, 128, 255},
	"grey":  {128, 128, 128, 255},
}

// ParseColor accepts a small set of colour names or #RRGGBB.
func ParseColor(value string) (color.RGBA, error) {
	value = strings.ToLower(strings.TrimSpace(value))
	if value == "" {
		return namedColors["black"], nil
	}
	if c, ok := namedColors[value]; ok {
		return c, nil
	}
	hex := strings.TrimPrefix(strings.TrimPrefix(value, "#"), "0x")
	if len(hex) == 6 {
		if v, err := strconv.ParseUint(hex, 16, 32); err == nil {
			return color.RGBA{R: uint8(v >> 16), G: uint8(v >> 8), B: uint8(v), A: 255}, nil
		}
	}
	return color.RGBA{}, services.Wrap(services.ErrConfiguration, "normalize", "color", fmt.Sprintf("unsupported background colour %q", value), nil)
}
