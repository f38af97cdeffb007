package render

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	imagedraw "image/draw"
	"image/png"
	"strings"

	nchess "github.com/corentings/chess/v2"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"

	"github.com/park285/chess-coach/internal/rules"
)

var ErrInvalidFEN = errors.New("invalid FEN")

// Options describe one board snapshot.
type Options struct {
	FEN         string
	Orientation rules.Side // side drawn at the bottom
	LastMove    string     // UCI, optional
	Header      string
	Footer      string
}

// Renderer draws PNG board snapshots.
type Renderer struct {
	squareSize int
	face       font.Face
}

func NewRenderer(squareSize int) *Renderer {
	if squareSize < 24 {
		squareSize = 64
	}
	return &Renderer{squareSize: squareSize, face: basicfont.Face7x13}
}

const (
	sideMargin   = 28
	topMargin    = 56
	bottomMargin = 44
	panelRadius  = 8
	panelPadding = 16
)

var (
	lightSquare      = color.RGBA{233, 207, 163, 255}
	darkSquare       = color.RGBA{187, 136, 96, 255}
	backgroundColor  = color.RGBA{17, 24, 39, 255}
	whiteMoveFill    = color.NRGBA{R: 255, G: 228, B: 120, A: 140}
	blackMoveArrow   = color.NRGBA{R: 148, G: 207, B: 255, A: 170}
	panelColor       = color.NRGBA{R: 28, G: 31, B: 46, A: 250}
	panelShadowColor = color.NRGBA{0, 0, 0, 50}
	panelTextColor   = color.NRGBA{R: 236, G: 239, B: 255, A: 255}
	footerTextColor  = color.NRGBA{R: 204, G: 210, B: 236, A: 255}
	coordinateColor  = color.NRGBA{R: 34, G: 211, B: 238, A: 255}
)

// RenderPNG draws the position in opts.FEN.
func (r *Renderer) RenderPNG(ctx context.Context, opts Options) ([]byte, error) {
	board, err := boardFromFEN(opts.FEN)
	if err != nil {
		return nil, err
	}
	flip := opts.Orientation == rules.Black

	size := r.squareSize * 8
	origin := image.Point{X: sideMargin, Y: topMargin}
	img := image.NewRGBA(image.Rect(0, 0, size+sideMargin*2, size+topMargin+bottomMargin))
	imagedraw.Draw(img, img.Bounds(), image.NewUniform(backgroundColor), image.Point{}, imagedraw.Src)

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	l := layout{squareSize: r.squareSize, origin: origin, flip: flip}
	l.drawSquares(img)
	if hl, ok := parseHighlight(opts.LastMove); ok {
		l.drawHighlight(img, board, hl)
	}
	if err := l.drawPieces(img, board); err != nil {
		return nil, err
	}
	l.drawCoordinates(img, r.face)

	boardRect := image.Rect(origin.X, origin.Y, origin.X+size, origin.Y+size)
	r.drawPanel(img, image.Rect(boardRect.Min.X, 12, boardRect.Max.X, topMargin-12), opts.Header, panelTextColor)
	if s := strings.TrimSpace(opts.Footer); s != "" {
		drawer := &font.Drawer{Dst: img, Face: r.face}
		footerRect := image.Rect(boardRect.Min.X, boardRect.Max.Y+20, boardRect.Max.X, img.Bounds().Max.Y-4)
		drawCenteredString(drawer, footerRect, truncateWithEllipsis(r.face, s, footerRect.Dx()), footerTextColor)
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encode png: %w", err)
	}
	return buf.Bytes(), nil
}

func (r *Renderer) drawPanel(img *image.RGBA, rect image.Rectangle, text string, clr color.Color) {
	text = strings.TrimSpace(text)
	if text == "" {
		return
	}
	drawRoundedPanel(img, rect.Add(image.Pt(0, 4)), panelRadius, panelShadowColor)
	drawRoundedPanel(img, rect, panelRadius, panelColor)
	drawer := &font.Drawer{Dst: img, Face: r.face}
	drawCenteredString(drawer, rect, truncateWithEllipsis(r.face, text, rect.Dx()-panelPadding*2), clr)
}

func boardFromFEN(fen string) (*nchess.Board, error) {
	fen = strings.TrimSpace(fen)
	if fen == "" {
		return nchess.NewGame().Position().Board(), nil
	}
	opt, err := nchess.FEN(fen)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidFEN, err)
	}
	return nchess.NewGame(opt).Position().Board(), nil
}

type highlight struct {
	from, to nchess.Square
}

func parseHighlight(uci string) (highlight, bool) {
	uci = strings.ToLower(strings.TrimSpace(uci))
	if len(uci) < 4 {
		return highlight{}, false
	}
	from, ok1 := parseSquare(uci[0:2])
	to, ok2 := parseSquare(uci[2:4])
	if !ok1 || !ok2 {
		return highlight{}, false
	}
	return highlight{from: from, to: to}, true
}

func parseSquare(s string) (nchess.Square, bool) {
	if len(s) != 2 || s[0] < 'a' || s[0] > 'h' || s[1] < '1' || s[1] > '8' {
		return nchess.NoSquare, false
	}
	return nchess.NewSquare(nchess.File(s[0]-'a'), nchess.Rank(s[1]-'1')), true
}

// layout maps squares to pixels for one orientation.
type layout struct {
	squareSize int
	origin     image.Point
	flip       bool
}

func (l layout) cell(sq nchess.Square) (col, row int) {
	col, row = int(sq.File()), 7-int(sq.Rank())
	if l.flip {
		col, row = 7-col, 7-row
	}
	return col, row
}

func (l layout) rect(sq nchess.Square) image.Rectangle {
	col, row := l.cell(sq)
	x := l.origin.X + col*l.squareSize
	y := l.origin.Y + row*l.squareSize
	return image.Rect(x, y, x+l.squareSize, y+l.squareSize)
}

func (l layout) center(sq nchess.Square) pointF {
	r := l.rect(sq)
	return pointF{X: float64(r.Min.X + l.squareSize/2), Y: float64(r.Min.Y + l.squareSize/2)}
}

func allSquares() []nchess.Square {
	out := make([]nchess.Square, 0, 64)
	for rank := 0; rank < 8; rank++ {
		for file := 0; file < 8; file++ {
			out = append(out, nchess.NewSquare(nchess.File(file), nchess.Rank(rank)))
		}
	}
	return out
}

func (l layout) drawSquares(dst *image.RGBA) {
	for _, sq := range allSquares() {
		clr := lightSquare
		if (int(sq.File())+int(sq.Rank()))%2 == 0 {
			clr = darkSquare
		}
		imagedraw.Draw(dst, l.rect(sq), image.NewUniform(clr), image.Point{}, imagedraw.Src)
	}
}

func (l layout) drawPieces(dst *image.RGBA, board *nchess.Board) error {
	for sq, piece := range board.SquareMap() {
		if piece == nchess.NoPiece {
			continue
		}
		img, err := renderPieceImage(piece, l.squareSize)
		if err != nil {
			return err
		}
		rect := l.rect(sq)
		imagedraw.Draw(dst, rect, img, image.Point{}, imagedraw.Over)
	}
	return nil
}

// white moves get filled squares, black moves an arrow
func (l layout) drawHighlight(dst *image.RGBA, board *nchess.Board, hl highlight) {
	mover := nchess.NoColor
	if p := board.Piece(hl.to); p != nchess.NoPiece {
		mover = p.Color()
	}
	if mover == nchess.Black {
		drawArrow(dst, l.center(hl.from), l.center(hl.to), float64(l.squareSize), blackMoveArrow)
		return
	}
	for _, sq := range []nchess.Square{hl.from, hl.to} {
		imagedraw.Draw(dst, l.rect(sq), image.NewUniform(whiteMoveFill), image.Point{}, imagedraw.Over)
	}
}

func (l layout) drawCoordinates(dst *image.RGBA, face font.Face) {
	drawer := &font.Drawer{Dst: dst, Face: face, Src: image.NewUniform(coordinateColor)}
	ascent := face.Metrics().Ascent.Ceil()
	boardBottom := l.origin.Y + 8*l.squareSize
	for i := 0; i < 8; i++ {
		file, rank := i, 7-i
		if l.flip {
			file, rank = 7-i, i
		}
		center := l.origin.X + i*l.squareSize + l.squareSize/2
		drawCenteredText(drawer, string(rune('a'+file)), center, boardBottom+ascent+4)
		middle := l.origin.Y + i*l.squareSize + l.squareSize/2
		drawCenteredText(drawer, string(rune('1'+rank)), l.origin.X-sideMargin/2, middle+ascent/2)
	}
}
