package render

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"testing"

	"github.com/park285/chess-coach/internal/rules"
)

const afterE4 = "rnbqkbnr/pppppppp/8/8/4P3/8/PPPP1PPP/RNBQKBNR b KQkq e3 0 1"

func decode(t *testing.T, data []byte) image.Image {
	t.Helper()
	img, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("decode png: %v", err)
	}
	return img
}

func squareCenter(r *Renderer, col, row int) image.Point {
	return image.Pt(sideMargin+col*r.squareSize+r.squareSize/2, topMargin+row*r.squareSize+r.squareSize/2)
}

func TestRenderPNG_Dimensions(t *testing.T) {
	r := NewRenderer(40)
	data, err := r.RenderPNG(context.Background(), Options{Header: "White to move", Footer: "0 moves"})
	if err != nil {
		t.Fatalf("RenderPNG: %v", err)
	}
	b := decode(t, data).Bounds()
	if b.Dx() != 8*40+2*sideMargin || b.Dy() != 8*40+topMargin+bottomMargin {
		t.Fatalf("unexpected bounds %v", b)
	}
}

func TestRenderPNG_Orientation(t *testing.T) {
	r := NewRenderer(48)
	luma := func(side rules.Side) uint8 {
		data, err := r.RenderPNG(context.Background(), Options{Orientation: side})
		if err != nil {
			t.Fatalf("RenderPNG(%s): %v", side, err)
		}
		p := squareCenter(r, 0, 7)
		return color.GrayModel.Convert(decode(t, data).At(p.X, p.Y)).(color.Gray).Y
	}
	// bottom-left holds a white rook for white and a black rook for black
	if w, b := luma(rules.White), luma(rules.Black); w <= b+100 {
		t.Fatalf("expected light piece at bottom-left for white (%d) vs black (%d)", w, b)
	}
}

func TestRenderPNG_LastMoveHighlight(t *testing.T) {
	r := NewRenderer(48)
	plain, err := r.RenderPNG(context.Background(), Options{FEN: afterE4})
	if err != nil {
		t.Fatalf("RenderPNG: %v", err)
	}
	marked, err := r.RenderPNG(context.Background(), Options{FEN: afterE4, LastMove: "e2e4"})
	if err != nil {
		t.Fatalf("RenderPNG: %v", err)
	}
	p := squareCenter(r, 4, 6) // e2
	if decode(t, plain).At(p.X, p.Y) == decode(t, marked).At(p.X, p.Y) {
		t.Fatalf("expected e2 to be highlighted")
	}
}

func TestRenderPNG_InvalidFEN(t *testing.T) {
	_, err := NewRenderer(32).RenderPNG(context.Background(), Options{FEN: "not a position"})
	if !errors.Is(err, ErrInvalidFEN) {
		t.Fatalf("expected ErrInvalidFEN, got %v", err)
	}
}

func TestRenderPNG_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := NewRenderer(32).RenderPNG(ctx, Options{}); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestTruncateWithEllipsis(t *testing.T) {
	r := NewRenderer(32)
	if got := truncateWithEllipsis(r.face, "short", 200); got != "short" {
		t.Fatalf("got %q", got)
	}
	got := truncateWithEllipsis(r.face, "a considerably longer header line", 70)
	if len(got) == 0 || got[len(got)-3:] != "..." {
		t.Fatalf("expected ellipsis, got %q", got)
	}
}
