// Package spatial provides the broad-phase grid used by the collision
// passes and the lock-free inbox that feeds the frame loop.
//
// Structures store integer indices (not pointers) into the caller's slices
// and reuse their buffers between frames.
package spatial

import (
	"math"
)

// Grid buckets point entities into fixed-size cells so a circle query only
// inspects the cells it overlaps.
//
// The bullet x asteroid pass inserts bullets as points and queries each
// asteroid with its own radius, so the cell size should be at least the
// largest asteroid diameter to keep queries to a handful of cells.
//
// Cells are stored in row-major order (cells[row*cols+col]).
type Grid struct {
	cellSize    float64
	invCellSize float64
	cols, rows  int
	cells       [][]uint32
	scratch     []uint32
	count       int
}

// NewGrid creates a grid covering [0,width) x [0,height).
// Points outside the bounds are clamped into the border cells.
func NewGrid(width, height, cellSize float64, maxEntities int) *Grid {
	if cellSize <= 0 {
		cellSize = 1
	}
	cols := int(math.Ceil(width / cellSize))
	rows := int(math.Ceil(height / cellSize))
	if cols < 1 {
		cols = 1
	}
	if rows < 1 {
		rows = 1
	}

	cells := make([][]uint32, cols*rows)
	perCell := maxEntities / len(cells)
	if perCell < 4 {
		perCell = 4
	}
	for i := range cells {
		cells[i] = make([]uint32, 0, perCell)
	}

	return &Grid{
		cellSize:    cellSize,
		invCellSize: 1.0 / cellSize,
		cols:        cols,
		rows:        rows,
		cells:       cells,
		scratch:     make([]uint32, 0, 64),
	}
}

// Reset empties every cell, keeping capacity.
func (g *Grid) Reset() {
	for i := range g.cells {
		g.cells[i] = g.cells[i][:0]
	}
	g.count = 0
}

// Insert files id under the cell containing (x, y).
func (g *Grid) Insert(id uint32, x, y float64) {
	idx := g.cellIndex(x, y)
	g.cells[idx] = append(g.cells[idx], id)
	g.count++
}

// Len returns the number of inserted entities.
func (g *Grid) Len() int { return g.count }

func (g *Grid) col(x float64) int {
	c := int(math.Floor(x * g.invCellSize))
	if c < 0 {
		return 0
	}
	if c >= g.cols {
		return g.cols - 1
	}
	return c
}

func (g *Grid) row(y float64) int {
	r := int(math.Floor(y * g.invCellSize))
	if r < 0 {
		return 0
	}
	if r >= g.rows {
		return g.rows - 1
	}
	return r
}

func (g *Grid) cellIndex(x, y float64) int {
	return g.row(y)*g.cols + g.col(x)
}

// QueryRadius returns every id filed in a cell that the circle at (cx, cy)
// touches. Candidates may lie outside the circle; callers do the exact test.
//
// The returned slice is reused by the next call.
func (g *Grid) QueryRadius(cx, cy, radius float64) []uint32 {
	g.scratch = g.scratch[:0]

	minCol, maxCol := g.col(cx-radius), g.col(cx+radius)
	minRow, maxRow := g.row(cy-radius), g.row(cy+radius)

	for row := minRow; row <= maxRow; row++ {
		base := row * g.cols
		for col := minCol; col <= maxCol; col++ {
			g.scratch = append(g.scratch, g.cells[base+col]...)
		}
	}
	return g.scratch
}

// GridStats describes occupancy for the debug endpoints.
type GridStats struct {
	Cols, Rows     int
	CellSize       float64
	NonEmptyCells  int
	TotalEntities  int
	MaxInCell      int
	AvgPerNonEmpty float64
}

// Stats returns current occupancy.
func (g *Grid) Stats() GridStats {
	s := GridStats{Cols: g.cols, Rows: g.rows, CellSize: g.cellSize}
	for _, cell := range g.cells {
		n := len(cell)
		s.TotalEntities += n
		if n > s.MaxInCell {
			s.MaxInCell = n
		}
		if n > 0 {
			s.NonEmptyCells++
		}
	}
	if s.NonEmptyCells > 0 {
		s.AvgPerNonEmpty = float64(s.TotalEntities) / float64(s.NonEmptyCells)
	}
	return s
}
