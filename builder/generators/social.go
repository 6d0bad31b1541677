package generators

import (
	"fmt"
	"image"
	"image/color"
	"strconv"
	"strings"
	"sync"

	"github.com/fogleman/gg"
	"github.com/golang/freetype/truetype"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/gomedium"
	"golang.org/x/image/font/gofont/goregular"
)

// Layout of the share card at scale 1, in CSS pixels.
const (
	cardPaddingX   = 100.0
	cardPaddingY   = 80.0
	nameFontSize   = 36.0
	titleFontSize  = 76.0
	detailFontSize = 28.0
	accentWidth    = 85.0
	accentHeight   = 5.0
	rowGap         = 20.0
)

const (
	accentColor = "#30a5bf"
	textColor   = "#111111"
	mutedColor  = "#757575"
)

// SocialCard is the content of one share image.
type SocialCard struct {
	Title       string
	Description string
	Byline      string
	Tags        []string
	Link        string
	Width       int
	Height      int
	Scale       float64
}

var (
	fontCache = make(map[string]*truetype.Font)
	fontMu    sync.RWMutex
)

var fontData = map[string][]byte{
	"bold":    gobold.TTF,
	"medium":  gomedium.TTF,
	"regular": goregular.TTF,
}

func loadFont(name string) (*truetype.Font, error) {
	fontMu.RLock()
	if f, ok := fontCache[name]; ok {
		fontMu.RUnlock()
		return f, nil
	}
	fontMu.RUnlock()

	fontMu.Lock()
	defer fontMu.Unlock()

	if f, ok := fontCache[name]; ok {
		return f, nil
	}

	data, ok := fontData[name]
	if !ok {
		return nil, fmt.Errorf("unknown font %s", name)
	}
	f, err := truetype.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse font %s: %w", name, err)
	}
	fontCache[name] = f
	return f, nil
}

func setFontFace(dc *gg.Context, name string, points float64) error {
	f, err := loadFont(name)
	if err != nil {
		return err
	}
	face := truetype.NewFace(f, &truetype.Options{Size: points, DPI: 72})
	dc.SetFontFace(face)
	return nil
}

// hexToRGBA converts a hex color string to color.RGBA
func hexToRGBA(hex string) color.RGBA {
	hex = strings.TrimPrefix(hex, "#")
	if len(hex) != 6 {
		return color.RGBA{0, 0, 0, 255}
	}

	r, _ := strconv.ParseUint(hex[0:2], 16, 8)
	g, _ := strconv.ParseUint(hex[2:4], 16, 8)
	b, _ := strconv.ParseUint(hex[4:6], 16, 8)

	return color.RGBA{uint8(r), uint8(g), uint8(b), 255}
}

// DrawSocialCard paints the share card. The byline is only drawn when there
// is no description. The site link sits at the bottom.
func DrawSocialCard(card SocialCard) (image.Image, error) {
	if card.Width <= 0 || card.Height <= 0 {
		return nil, fmt.Errorf("invalid card size %dx%d", card.Width, card.Height)
	}
	scale := card.Scale
	if scale <= 0 {
		scale = 1
	}

	w := int(float64(card.Width) * scale)
	h := int(float64(card.Height) * scale)
	dc := gg.NewContext(w, h)
	dc.Scale(scale, scale)

	dc.SetColor(color.White)
	dc.Clear()

	width := float64(card.Width)
	height := float64(card.Height)
	maxWidth := width - cardPaddingX*2
	y := cardPaddingY

	// The byline row is reserved even when empty
	if card.Description == "" && card.Byline != "" {
		if err := setFontFace(dc, "bold", nameFontSize); err != nil {
			return nil, err
		}
		dc.SetColor(hexToRGBA(textColor))
		dc.DrawStringAnchored(card.Byline, cardPaddingX, y+nameFontSize, 0, 0)
	}
	y += 70
	dc.SetColor(hexToRGBA(accentColor))
	dc.DrawRectangle(cardPaddingX, y-accentHeight, accentWidth, accentHeight)
	dc.Fill()
	y += rowGap

	if err := setFontFace(dc, "bold", titleFontSize); err != nil {
		return nil, err
	}
	dc.SetColor(hexToRGBA(textColor))
	titleLines := dc.WordWrap(card.Title, maxWidth)
	dc.DrawStringWrapped(card.Title, cardPaddingX, y, 0, 0, maxWidth, 1.1, gg.AlignLeft)
	y += float64(len(titleLines))*titleFontSize*1.1 + 10 + rowGap

	if err := setFontFace(dc, "regular", detailFontSize); err != nil {
		return nil, err
	}
	dc.SetColor(hexToRGBA(mutedColor))
	if card.Description != "" {
		dc.DrawStringWrapped(card.Description, cardPaddingX, y, 0, 0, maxWidth, 1.5, gg.AlignLeft)
		y += float64(len(dc.WordWrap(card.Description, maxWidth)))*detailFontSize*1.5 + rowGap
	}
	if len(card.Tags) > 0 {
		dc.DrawStringWrapped(strings.Join(card.Tags, " | "), cardPaddingX, y, 0, 0, maxWidth, 1.5, gg.AlignLeft)
	}

	if card.Link != "" {
		if err := setFontFace(dc, "medium", detailFontSize); err != nil {
			return nil, err
		}
		dc.SetColor(hexToRGBA(mutedColor))
		dc.DrawStringAnchored(card.Link, cardPaddingX, height-cardPaddingY, 0, 0)
	}

	return dc.Image(), nil
}
