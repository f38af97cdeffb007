package render

import (
	"bytes"
	"fmt"
	"image"
	"sync"

	nchess "github.com/corentings/chess/v2"
	"github.com/srwiley/oksvg"
	"github.com/srwiley/rasterx"
)

// Piece silhouettes on a 45x45 view box. The fill and stroke are chosen per
// colour at render time.
var pieceShapes = map[nchess.PieceType]string{
	nchess.Pawn: `<path d="M22.5 9 C19.5 9 17.5 11.5 17.5 14 C17.5 15.5 18.2 16.8 19.2 17.7 C16.8 19 15.5 21.5 15.5 24 C15.5 26 16.3 27.6 17.5 28.7 C14 30.2 11 33.7 11 39 L34 39 C34 33.7 31 30.2 27.5 28.7 C28.7 27.6 29.5 26 29.5 24 C29.5 21.5 28.2 19 25.8 17.7 C26.8 16.8 27.5 15.5 27.5 14 C27.5 11.5 25.5 9 22.5 9 Z"/>`,
	nchess.Rook: `<path d="M9 39 L36 39 L36 36 L33 36 L31 30 L31 17 L34 14 L34 9 L30 9 L30 11 L26 11 L26 9 L19 9 L19 11 L15 11 L15 9 L11 9 L11 14 L14 17 L14 30 L12 36 L9 36 Z"/>`,
	nchess.Knight: `<path d="M22 10 C32.5 11 38.5 18 38 39 L15 39 C15 30 25 32.5 23 18 C22 20.5 19.5 22 17 22.5 C15.5 24.5 13 26 11 25 C9 24 9.5 21.5 10.5 20 C12 17 14 15 15 12 L14 9 C16 9 18 10 19 11 C20 10 21 10 22 10 Z"/>`,
	nchess.Bishop: `<path d="M9 36 C12.4 35 19 36.4 22.5 34 C26 36.4 32.6 35 36 36 L36 39 L9 39 Z"/><path d="M15 32 C17.5 34.5 27.5 34.5 30 32 C30.5 30.5 30 30 30 30 C30 27.5 27.5 26 27.5 26 C33 24.5 33.5 14.5 22.5 10.5 C11.5 14.5 12 24.5 17.5 26 C17.5 26 15 27.5 15 30 C15 30 14.5 30.5 15 32 Z"/><circle cx="22.5" cy="8" r="2.5"/>`,
	nchess.Queen: `<path d="M9 26 C17.5 24.5 30 24.5 36 26 L38.5 13.5 L31 25 L30.7 10.9 L25.5 24.5 L22.5 10 L19.5 24.5 L14.3 10.9 L14 25 L6.5 13.5 Z"/><path d="M9 26 C9 28 10.5 28 11.5 30 C12.5 31.5 12.5 31 12 33.5 C10.5 34.5 11 36 11 36 C9.5 37.5 11 38.5 11 38.5 C17.5 39.5 27.5 39.5 34 38.5 C34 38.5 35.5 37.5 34 36 C34 36 34.5 34.5 33 33.5 C32.5 31 32.5 31.5 33.5 30 C34.5 28 36 28 36 26 C27.5 24.5 17.5 24.5 9 26 Z"/><circle cx="6" cy="12" r="2"/><circle cx="14" cy="9" r="2"/><circle cx="22.5" cy="8" r="2"/><circle cx="31" cy="9" r="2"/><circle cx="39" cy="12" r="2"/>`,
	nchess.King: `<path d="M22.5 11.6 L22.5 6 M20 8 L25 8"/><path d="M22.5 25 C22.5 25 27 17.5 25.5 14.5 C25.5 14.5 24.5 12 22.5 12 C20.5 12 19.5 14.5 19.5 14.5 C18 17.5 22.5 25 22.5 25 Z"/><path d="M11.5 37 C17 40.5 27 40.5 32.5 37 L32.5 30 C32.5 30 41.5 25.5 38.5 19.5 C34.5 13 25 16 22.5 23.5 L22.5 27 L22.5 23.5 C20 16 10.5 13 6.5 19.5 C3.5 25.5 11.5 29.5 11.5 29.5 Z"/>`,
}

type pieceCacheKey struct {
	piece nchess.Piece
	size  int
}

var (
	pieceCache   = map[pieceCacheKey]image.Image{}
	pieceCacheMu sync.RWMutex
)

func renderPieceImage(piece nchess.Piece, size int) (image.Image, error) {
	key := pieceCacheKey{piece: piece, size: size}

	pieceCacheMu.RLock()
	if img, ok := pieceCache[key]; ok {
		pieceCacheMu.RUnlock()
		return img, nil
	}
	pieceCacheMu.RUnlock()

	data, err := pieceSVG(piece)
	if err != nil {
		return nil, err
	}
	icon, err := oksvg.ReadIconStream(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("parse piece svg: %w", err)
	}
	icon.SetTarget(0, 0, float64(size), float64(size))

	img := image.NewRGBA(image.Rect(0, 0, size, size))
	scanner := rasterx.NewScannerGV(size, size, img, img.Bounds())
	raster := rasterx.NewDasher(size, size, scanner)
	icon.Draw(raster, 1.0)

	pieceCacheMu.Lock()
	pieceCache[key] = img
	pieceCacheMu.Unlock()

	return img, nil
}

func pieceSVG(piece nchess.Piece) ([]byte, error) {
	shape, ok := pieceShapes[piece.Type()]
	if !ok {
		return nil, fmt.Errorf("no shape for piece %v", piece)
	}
	fill, stroke := "#f8f8f8", "#101010"
	if piece.Color() == nchess.Black {
		fill, stroke = "#1f1f1f", "#e6e6e6"
	}
	svg := fmt.Sprintf(`<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 45 45" width="45" height="45"><g fill="%s" stroke="%s" stroke-width="1.5" stroke-linejoin="round">%s</g></svg>`, fill, stroke, shape)
	return []byte(svg), nil
}
