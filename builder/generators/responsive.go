package generators

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"log/slog"
	"path"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/chai2010/webp"
	"github.com/disintegration/imaging"
	"github.com/spf13/afero"
	_ "golang.org/x/image/webp"

	"github.com/pustelto/sitepipe/builder/config"
	"github.com/pustelto/sitepipe/builder/utils"
)

// ImageVariant is one resized file.
type ImageVariant struct {
	Format string // "webp" or "jpeg"
	URL    string
	Path   string
	Width  int
	Height int
}

// ImageSet holds every variant of one source image, smallest first.
type ImageSet struct {
	Source string
	WebP   []ImageVariant
	JPEG   []ImageVariant
}

// Smallest returns the smallest JPEG, used as the <img> fallback.
func (s *ImageSet) Smallest() ImageVariant {
	return s.JPEG[0]
}

// ResponsiveImages resizes page images into webp and jpeg width sets.
type ResponsiveImages struct {
	SrcFs   afero.Fs
	DestFs  afero.Fs
	Widths  []int
	Quality int
	logger  *slog.Logger

	mu   sync.Mutex
	sets map[string]*ImageSet
}

func NewResponsiveImages(srcFs, destFs afero.Fs, cfg config.ImagesConfig, logger *slog.Logger) *ResponsiveImages {
	widths := append([]int(nil), cfg.Widths...)
	sort.Ints(widths)
	quality := cfg.Quality
	if quality <= 0 || quality > 100 {
		quality = 80
	}
	return &ResponsiveImages{
		SrcFs:   srcFs,
		DestFs:  destFs,
		Widths:  widths,
		Quality: quality,
		logger:  logger,
		sets:    make(map[string]*ImageSet),
	}
}

// TargetWidths drops configured widths larger than the source. When none fit
// the source width is used on its own.
func TargetWidths(widths []int, sourceWidth int) []int {
	var out []int
	for _, w := range widths {
		if w <= sourceWidth {
			out = append(out, w)
		}
	}
	if len(out) == 0 {
		out = []int{sourceWidth}
	}
	return out
}

// Generate writes <name>-<width>.webp and <name>-<width>.jpeg for srcPath into
// outDir. Variant URLs are urlPrefix joined with the file name. Files newer
// than the source are reused.
func (r *ResponsiveImages) Generate(srcPath, outDir, urlPrefix string) (*ImageSet, error) {
	key := srcPath + "|" + outDir
	r.mu.Lock()
	if set, ok := r.sets[key]; ok {
		r.mu.Unlock()
		return set, nil
	}
	r.mu.Unlock()

	data, err := afero.ReadFile(r.SrcFs, srcPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read image %s: %w", srcPath, err)
	}
	src, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("failed to decode image %s: %w", srcPath, err)
	}
	srcInfo, err := r.SrcFs.Stat(srcPath)
	if err != nil {
		return nil, err
	}

	bounds := src.Bounds()
	base := strings.TrimSuffix(filepath.Base(srcPath), filepath.Ext(srcPath))
	set := &ImageSet{Source: srcPath}

	for _, w := range TargetWidths(r.Widths, bounds.Dx()) {
		h := bounds.Dy() * w / bounds.Dx()
		var resized image.Image
		for _, format := range []string{"webp", "jpeg"} {
			name := base + "-" + strconv.Itoa(w) + "." + format
			outPath := filepath.Join(outDir, name)
			variant := ImageVariant{
				Format: format,
				URL:    path.Join(urlPrefix, name),
				Path:   outPath,
				Width:  w,
				Height: h,
			}
			if strings.HasPrefix(urlPrefix, "./") {
				variant.URL = "./" + variant.URL
			}

			if !r.isFresh(outPath, srcInfo.ModTime().UnixNano()) {
				if resized == nil {
					resized = src
					if w != bounds.Dx() {
						resized = imaging.Resize(src, w, 0, imaging.Lanczos)
					}
				}
				if err := r.encode(outPath, format, resized); err != nil {
					return nil, err
				}
				r.logger.Debug("Resized image", "src", srcPath, "width", w, "format", format)
			}

			if format == "webp" {
				set.WebP = append(set.WebP, variant)
			} else {
				set.JPEG = append(set.JPEG, variant)
			}
		}
	}

	r.mu.Lock()
	r.sets[key] = set
	r.mu.Unlock()
	return set, nil
}

func (r *ResponsiveImages) isFresh(outPath string, srcMod int64) bool {
	info, err := r.DestFs.Stat(outPath)
	if err != nil {
		return false
	}
	return info.ModTime().UnixNano() >= srcMod
}

func (r *ResponsiveImages) encode(outPath, format string, img image.Image) error {
	var buf bytes.Buffer
	switch format {
	case "webp":
		if err := webp.Encode(&buf, img, &webp.Options{Lossless: false, Quality: float32(r.Quality)}); err != nil {
			return fmt.Errorf("failed to encode %s: %w", outPath, err)
		}
	default:
		if err := imaging.Encode(&buf, img, imaging.JPEG, imaging.JPEGQuality(r.Quality)); err != nil {
			return fmt.Errorf("failed to encode %s: %w", outPath, err)
		}
	}
	return utils.WriteFile(r.DestFs, outPath, buf.Bytes())
}
