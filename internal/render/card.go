package render

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"
	imagedraw "image/draw"
	"image/png"
	"strings"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"github.com/park285/wordle-duel/internal/match"
	"github.com/park285/wordle-duel/internal/session"
)

// Options controls what a card shows. Letters are hidden unless ShowLetters
// is set, so a card can be shared without spoiling the word.
type Options struct {
	Title       string
	Footer      string
	ShowLetters bool
}

type CardRenderer interface {
	RenderPNG(ctx context.Context, b *match.Board, opts Options) ([]byte, error)
}

type pngCardRenderer struct{}

func NewCardRenderer() CardRenderer { return &pngCardRenderer{} }

const (
	tileSize    = 56
	tileGap     = 6
	sideMargin  = 28
	headerH     = 56
	footerH     = 40
	panelRadius = 12
)

var (
	backgroundColor = color.NRGBA{R: 250, G: 250, B: 252, A: 255}
	hudPanelColor   = color.NRGBA{R: 28, G: 31, B: 46, A: 250}
	hudTextPrimary  = color.NRGBA{R: 236, G: 239, B: 255, A: 255}
	footerTextColor = color.NRGBA{R: 60, G: 64, B: 80, A: 255}
	letterColor     = color.NRGBA{R: 255, G: 255, B: 255, A: 255}
)

func (r *pngCardRenderer) RenderPNG(ctx context.Context, b *match.Board, opts Options) ([]byte, error) {
	if b == nil {
		return nil, fmt.Errorf("board is nil")
	}
	cols := b.WordSize
	if cols <= 0 {
		cols = 5
	}
	rows := b.MaxRows
	if len(b.Rows) > rows {
		rows = len(b.Rows)
	}
	if rows <= 0 {
		rows = 6
	}

	gridW := cols*tileSize + (cols-1)*tileGap
	gridH := rows*tileSize + (rows-1)*tileGap
	width := gridW + sideMargin*2
	height := headerH + gridH + footerH + sideMargin*2
	origin := image.Point{X: sideMargin, Y: sideMargin + headerH}

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	img := image.NewRGBA(image.Rect(0, 0, width, height))
	imagedraw.Draw(img, img.Bounds(), image.NewUniform(backgroundColor), image.Point{}, imagedraw.Src)

	header := image.Rect(sideMargin, sideMargin/2, width-sideMargin, sideMargin/2+headerH-tileGap*2)
	drawRoundedPanel(img, header, panelRadius, hudPanelColor)
	drawer := &font.Drawer{Dst: img, Face: basicfont.Face7x13}
	drawCenteredString(drawer, header, opts.Title, hudTextPrimary)

	for row := 0; row < rows; row++ {
		for col := 0; col < cols; col++ {
			var tile match.Tile
			if row < len(b.Rows) && col < len(b.Rows[row]) {
				tile = b.Rows[row][col]
			}
			src, err := tileImage(tile.State, tileSize)
			if err != nil {
				return nil, err
			}
			x := origin.X + col*(tileSize+tileGap)
			y := origin.Y + row*(tileSize+tileGap)
			rect := image.Rect(x, y, x+tileSize, y+tileSize)
			imagedraw.Draw(img, rect, src, image.Point{}, imagedraw.Over)
			if opts.ShowLetters && tile.Character != "" {
				drawCenteredString(drawer, rect, strings.ToUpper(tile.Character), letterColor)
			}
		}
	}

	footer := image.Rect(sideMargin, origin.Y+gridH+tileGap, width-sideMargin, origin.Y+gridH+footerH)
	drawCenteredString(drawer, footer, opts.Footer, footerTextColor)

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encode png: %w", err)
	}
	return buf.Bytes(), nil
}

func drawRoundedPanel(img *image.RGBA, rect image.Rectangle, radius int, clr color.Color) {
	if img == nil || rect.Empty() {
		return
	}
	maxRadius := min(rect.Dx()/2, rect.Dy()/2)
	radius = max(0, min(radius, maxRadius))
	fill := image.NewUniform(clr)
	if radius == 0 {
		imagedraw.Draw(img, rect, fill, image.Point{}, imagedraw.Over)
		return
	}
	core := image.Rect(rect.Min.X+radius, rect.Min.Y, rect.Max.X-radius, rect.Max.Y)
	imagedraw.Draw(img, core, fill, image.Point{}, imagedraw.Over)
	left := image.Rect(rect.Min.X, rect.Min.Y+radius, rect.Min.X+radius, rect.Max.Y-radius)
	imagedraw.Draw(img, left, fill, image.Point{}, imagedraw.Over)
	right := image.Rect(rect.Max.X-radius, rect.Min.Y+radius, rect.Max.X, rect.Max.Y-radius)
	imagedraw.Draw(img, right, fill, image.Point{}, imagedraw.Over)

	corners := []image.Point{
		{rect.Min.X + radius, rect.Min.Y + radius},
		{rect.Max.X - radius - 1, rect.Min.Y + radius},
		{rect.Min.X + radius, rect.Max.Y - radius - 1},
		{rect.Max.X - radius - 1, rect.Max.Y - radius - 1},
	}
	for _, c := range corners {
		drawDisc(img, c, radius, clr)
	}
}

func drawDisc(img *image.RGBA, center image.Point, radius int, clr color.Color) {
	r2 := radius * radius
	for dy := -radius; dy <= radius; dy++ {
		for dx := -radius; dx <= radius; dx++ {
			if dx*dx+dy*dy > r2 {
				continue
			}
			p := image.Point{X: center.X + dx, Y: center.Y + dy}
			if p.In(img.Bounds()) {
				img.Set(p.X, p.Y, clr)
			}
		}
	}
}

func drawCenteredString(drawer *font.Drawer, rect image.Rectangle, text string, clr color.Color) {
	if drawer == nil {
		return
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return
	}
	metrics := drawer.Face.Metrics()
	width := drawer.MeasureString(text).Round()
	x := max(rect.Min.X, rect.Min.X+(rect.Dx()-width)/2)
	baseline := rect.Min.Y + (rect.Dy()+metrics.Ascent.Ceil()-metrics.Descent.Ceil())/2
	drawer.Src = image.NewUniform(clr)
	drawer.Dot = fixed.P(x, baseline)
	drawer.DrawString(text)
}

// Grid renders the board as an emoji grid, one line per row, without letters.
func Grid(b *match.Board) string {
	if b == nil {
		return ""
	}
	var sb strings.Builder
	for i, row := range b.Rows {
		if i > 0 {
			sb.WriteByte('\n')
		}
		for _, t := range row {
			sb.WriteString(emoji(t.State))
		}
	}
	return sb.String()
}

func emoji(s session.LetterState) string {
	switch s {
	case session.LetterCorrect:
		return "🟩"
	case session.LetterPresent:
		return "🟨"
	}
	return "⬛"
}
