// Package imagegen renders the PNG share card for a plan.
package imagegen

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/fixed"
)

// CardWidth and CardHeight are the standard Open Graph image dimensions.
const (
	CardWidth  = 1200
	CardHeight = 630
)

var (
	fontTitle   font.Face
	fontLarge   font.Face
	fontRegular font.Face
	fontOnce    sync.Once
	fontErr     error
)

func loadFonts() {
	fontOnce.Do(func() {
		regular, err := opentype.Parse(goregular.TTF)
		if err != nil {
			fontErr = fmt.Errorf("parse Go Regular: %w", err)
			return
		}
		bold, err := opentype.Parse(gobold.TTF)
		if err != nil {
			fontErr = fmt.Errorf("parse Go Bold: %w", err)
			return
		}

		faces := []struct {
			dst  *font.Face
			font *opentype.Font
			size float64
		}{
			{&fontTitle, bold, 56},
			{&fontLarge, regular, 140},
			{&fontRegular, regular, 34},
		}
		for _, f := range faces {
			*f.dst, err = opentype.NewFace(f.font, &opentype.FaceOptions{
				Size:    f.size,
				DPI:     72,
				Hinting: font.HintingFull,
			})
			if err != nil {
				fontErr = fmt.Errorf("create %.0fpt face: %w", f.size, err)
				return
			}
		}
	})
}

// CardData is the content of a share card.
type CardData struct {
	City        string
	Date        string
	Temperature float64
	Condition   string
	Score       int
	Verdict     string
	Suggestion  string
	// Background and Accent are #rrggbb colors from the day's palette.
	Background string
	Accent     string
}

// Render draws the card as a PNG.
func Render(data CardData) ([]byte, error) {
	loadFonts()
	if fontErr != nil {
		return nil, fmt.Errorf("load fonts: %w", fontErr)
	}

	bg := parseHex(data.Background, color.RGBA{20, 24, 40, 255})
	accent := parseHex(data.Accent, color.RGBA{47, 111, 228, 255})

	img := image.NewRGBA(image.Rect(0, 0, CardWidth, CardHeight))
	drawBackground(img, bg)
	drawScoreBar(img, data.Score, accent)

	ink := textColor(bg)
	muted := blend(ink, bg, 0.35)

	drawText(img, plain(data.City), 60, 110, ink, fontTitle)
	drawText(img, data.Date, 60, 165, muted, fontRegular)
	drawText(img, fmt.Sprintf("%.0f°", data.Temperature), 60, 340, ink, fontLarge)
	drawText(img, plain(data.Condition), 60, 400, ink, fontRegular)

	drawText(img, fmt.Sprintf("Suitability %d/100 · %s", data.Score, data.Verdict), 60, 500, ink, fontRegular)
	if s := plain(data.Suggestion); s != "" {
		drawText(img, s, 60, 550, muted, fontRegular)
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encode share card: %w", err)
	}
	return buf.Bytes(), nil
}

// drawBackground fills img with a vertical gradient darkening toward the
// bottom.
func drawBackground(img *image.RGBA, base color.RGBA) {
	for y := 0; y < CardHeight; y++ {
		progress := float64(y) / float64(CardHeight)
		progress = progress * progress
		c := blend(base, color.RGBA{0, 0, 0, 255}, progress*0.25)
		for x := 0; x < CardWidth; x++ {
			img.SetRGBA(x, y, c)
		}
	}
}

// drawScoreBar draws a track along the bottom edge filled to score percent.
func drawScoreBar(img *image.RGBA, score int, accent color.RGBA) {
	score = max(0, min(100, score))
	track := blend(accent, img.RGBAAt(0, CardHeight-1), 0.75)
	filled := CardWidth * score / 100
	for y := CardHeight - 24; y < CardHeight; y++ {
		for x := 0; x < CardWidth; x++ {
			if x < filled {
				img.SetRGBA(x, y, accent)
			} else {
				img.SetRGBA(x, y, track)
			}
		}
	}
}

func drawText(img *image.RGBA, text string, x, y int, col color.Color, face font.Face) {
	d := &font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(col),
		Face: face,
		Dot:  fixed.Point26_6{X: fixed.I(x), Y: fixed.I(y)},
	}
	d.DrawString(text)
}

// plain drops emoji and other symbols the Go fonts have no glyphs for.
func plain(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r < 0x2000 {
			b.WriteRune(r)
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}

func parseHex(s string, fallback color.RGBA) color.RGBA {
	s = strings.TrimPrefix(s, "#")
	if len(s) != 6 {
		return fallback
	}
	v, err := strconv.ParseUint(s, 16, 32)
	if err != nil {
		return fallback
	}
	return color.RGBA{uint8(v >> 16), uint8(v >> 8), uint8(v), 255}
}

// textColor picks near-black or white for contrast against bg.
func textColor(bg color.RGBA) color.RGBA {
	luma := 0.299*float64(bg.R) + 0.587*float64(bg.G) + 0.114*float64(bg.B)
	if luma > 140 {
		return color.RGBA{29, 36, 51, 255}
	}
	return color.RGBA{255, 255, 255, 255}
}

func blend(a, b color.RGBA, t float64) color.RGBA {
	mix := func(x, y uint8) uint8 { return uint8(float64(x)*(1-t) + float64(y)*t) }
	return color.RGBA{mix(a.R, b.R), mix(a.G, b.G), mix(a.B, b.B), 255}
}

// CardCache keeps rendered cards for a short period.
type CardCache struct {
	mu         sync.RWMutex
	entries    map[string]cardEntry
	ttl        time.Duration
	maxEntries int
	now        func() time.Time
}

type cardEntry struct {
	data      []byte
	expiresAt time.Time
}

// NewCardCache creates a cache holding at most maxEntries cards for ttl.
func NewCardCache(ttl time.Duration, maxEntries int) *CardCache {
	return &CardCache{
		entries:    make(map[string]cardEntry),
		ttl:        ttl,
		maxEntries: maxEntries,
		now:        time.Now,
	}
}

// Get returns the cached card if still valid.
func (c *CardCache) Get(key string) ([]byte, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	e, ok := c.entries[key]
	if !ok || c.now().After(e.expiresAt) {
		return nil, false
	}
	return e.data, true
}

// Set stores a card, dropping expired entries first and the soonest to
// expire when the cache is full.
func (c *CardCache) Set(key string, data []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	for k, e := range c.entries {
		if now.After(e.expiresAt) {
			delete(c.entries, k)
		}
	}
	if _, exists := c.entries[key]; !exists && c.maxEntries > 0 && len(c.entries) >= c.maxEntries {
		var oldest string
		for k, e := range c.entries {
			if oldest == "" || e.expiresAt.Before(c.entries[oldest].expiresAt) {
				oldest = k
			}
		}
		delete(c.entries, oldest)
	}
	c.entries[key] = cardEntry{data: data, expiresAt: now.Add(c.ttl)}
}
