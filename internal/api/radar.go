package api

import (
	"fmt"
	"image/color"
	"io"

	"github.com/fogleman/gg"

	"asteroid-arena/internal/config"
	"asteroid-arena/internal/game"
)

const (
	defaultRadarSize = 512
	minRadarSize     = 64
	maxRadarSize     = 2048
)

type radarBounds struct {
	width, height float64
}

func newRadarBounds(w, h float64) radarBounds {
	def := config.DefaultSimulation()
	if w <= 0 {
		w = def.WorldWidth
	}
	if h <= 0 {
		h = def.WorldHeight
	}
	return radarBounds{width: w, height: h}
}

// renderRadar draws a top-down view of the whole arena, size pixels wide,
// and writes it as PNG.
func renderRadar(w io.Writer, snap *game.Snapshot, b radarBounds, size int) error {
	scale := float64(size) / b.width
	height := int(b.height*scale + 0.5)
	if height < 1 {
		height = 1
	}
	dc := gg.NewContext(size, height)

	// Background
	dc.SetColor(color.RGBA{12, 12, 28, 255})
	dc.DrawRectangle(0, 0, float64(size), float64(height))
	dc.Fill()

	// Food
	dc.SetColor(color.RGBA{83, 255, 69, 200})
	for _, f := range snap.Food {
		dc.DrawCircle(f.X*scale, f.Y*scale, max(f.Radius*scale, 1))
		dc.Fill()
	}

	// Asteroids
	dc.SetColor(color.RGBA{150, 150, 160, 255})
	dc.SetLineWidth(1)
	for _, a := range snap.Asteroids {
		dc.DrawCircle(a.X*scale, a.Y*scale, max(a.Radius*scale, 1))
		dc.Stroke()
	}

	// Bullets: local ones in yellow, network ones in orange
	for _, bl := range snap.Bullets {
		if bl.Local {
			dc.SetColor(color.RGBA{255, 230, 0, 255})
		} else {
			dc.SetColor(color.RGBA{255, 120, 0, 255})
		}
		dc.DrawCircle(bl.X*scale, bl.Y*scale, 1.5)
		dc.Fill()
	}

	// Other players
	for _, o := range snap.Others {
		if o.Dead {
			continue
		}
		if o.IsLeader {
			dc.SetColor(color.RGBA{255, 215, 0, 255})
		} else {
			dc.SetColor(color.RGBA{80, 160, 255, 255})
		}
		drawShip(dc, o.X*scale, o.Y*scale, o.Angle, 5)
	}

	// Local player
	p := snap.Player
	if p.Respawning {
		dc.SetColor(color.RGBA{255, 62, 62, 255})
	} else {
		dc.SetColor(color.White)
	}
	drawShip(dc, p.X*scale, p.Y*scale, p.Angle, 7)

	// HUD
	dc.SetColor(color.White)
	dc.DrawString(fmt.Sprintf("%s  shield %d  score %d", p.Name, p.Shield, p.Score), 6, 14)
	dc.DrawString(fmt.Sprintf("frame %d", snap.Frame), 6, 28)

	return dc.EncodePNG(w)
}

// drawShip draws a triangle pointing along angle.
func drawShip(dc *gg.Context, x, y, angle, r float64) {
	dc.Push()
	dc.Translate(x, y)
	dc.Rotate(angle)
	dc.MoveTo(r, 0)
	dc.LineTo(-r*0.7, r*0.6)
	dc.LineTo(-r*0.7, -r*0.6)
	dc.ClosePath()
	dc.Fill()
	dc.Pop()
}
