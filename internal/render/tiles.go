package render

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"sync"

	"github.com/srwiley/oksvg"
	"github.com/srwiley/rasterx"

	"github.com/park285/wordle-duel/internal/session"
)

// tileFill maps a feedback state to its tile color. The empty state is an
// unused row.
var tileFill = map[session.LetterState]string{
	session.LetterCorrect: "#6aaa64",
	session.LetterPresent: "#c9b458",
	session.LetterAbsent:  "#787c7e",
	"":                    "#d3d6da",
}

const tileSVG = `<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 64 64" width="64" height="64">` +
	`<rect x="2" y="2" width="60" height="60" rx="8" ry="8" fill="%s" stroke="%s" stroke-width="2"/></svg>`

type tileKey struct {
	state session.LetterState
	size  int
}

var (
	tileCache   = map[tileKey]image.Image{}
	tileCacheMu sync.RWMutex
)

// tileImage rasterizes the rounded tile for state at size×size pixels.
func tileImage(state session.LetterState, size int) (image.Image, error) {
	key := tileKey{state: state, size: size}

	tileCacheMu.RLock()
	if img, ok := tileCache[key]; ok {
		tileCacheMu.RUnlock()
		return img, nil
	}
	tileCacheMu.RUnlock()

	fill, ok := tileFill[state]
	if !ok {
		return nil, fmt.Errorf("unknown letter state %q", state)
	}
	stroke := fill
	if state == "" {
		stroke = "#b5b8bc"
	}
	icon, err := oksvg.ReadIconStream(bytes.NewReader([]byte(fmt.Sprintf(tileSVG, fill, stroke))))
	if err != nil {
		return nil, fmt.Errorf("parse tile svg: %w", err)
	}
	icon.SetTarget(0, 0, float64(size), float64(size))

	img := image.NewRGBA(image.Rect(0, 0, size, size))
	draw.Draw(img, img.Bounds(), image.NewUniform(color.Transparent), image.Point{}, draw.Src)
	scanner := rasterx.NewScannerGV(size, size, img, img.Bounds())
	raster := rasterx.NewDasher(size, size, scanner)
	icon.Draw(raster, 1.0)

	tileCacheMu.Lock()
	tileCache[key] = img
	tileCacheMu.Unlock()
	return img, nil
}
