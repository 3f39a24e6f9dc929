package api

import (
	"fmt"
	"image/color"
	"io"

	"github.com/fogleman/gg"

	"hellscape/internal/game"
	"hellscape/internal/game/spatial"
)

// DefaultRenderScale is pixels per world unit.
const DefaultRenderScale = 16

var (
	colorBackground = color.RGBA{12, 12, 28, 255}
	colorGrid       = color.RGBA{30, 30, 45, 255}
	colorPlayer     = color.RGBA{76, 175, 80, 255}
	colorEnemy      = color.RGBA{229, 57, 53, 255}
	colorDead       = color.RGBA{90, 90, 90, 255}
	colorTracer     = color.RGBA{255, 235, 59, 255}
	colorMiss       = color.RGBA{255, 235, 59, 110}
)

// RenderFrame draws a top-down view of frame as PNG. World +Y points up.
func RenderFrame(w io.Writer, frame game.FrameSnapshot, half spatial.Vec2, scale float64) error {
	width := int(float64(half.X) * 2 * scale)
	height := int(float64(half.Y) * 2 * scale)
	dc := gg.NewContext(width, height)

	toScreen := func(p spatial.Vec2) (float64, float64) {
		return (float64(p.X) + float64(half.X)) * scale, (float64(half.Y) - float64(p.Y)) * scale
	}

	dc.SetColor(colorBackground)
	dc.DrawRectangle(0, 0, float64(width), float64(height))
	dc.Fill()

	drawGrid(dc, width, height, scale)

	for _, s := range frame.Shots {
		x1, y1 := toScreen(s.Start)
		x2, y2 := toScreen(s.End)
		if s.Hit {
			dc.SetColor(colorTracer)
		} else {
			dc.SetColor(colorMiss)
		}
		dc.SetLineWidth(2)
		dc.DrawLine(x1, y1, x2, y2)
		dc.Stroke()
	}

	for _, a := range frame.World.Actors {
		x, y := toScreen(a.Pos)
		r := float64(a.Radius) * scale

		switch {
		case !a.Alive:
			dc.SetColor(colorDead)
		case a.Team == game.TeamPlayer:
			dc.SetColor(colorPlayer)
		default:
			dc.SetColor(colorEnemy)
		}
		dc.DrawCircle(x, y, r)
		dc.Fill()

		if a.Alive {
			drawHealthBar(dc, x, y-r-5, r*2, healthFraction(a))
		}
	}

	// Night tint
	if dark := nightAlpha(frame.TimeOfDay); dark > 0 {
		dc.SetColor(color.RGBA{0, 0, 20, dark})
		dc.DrawRectangle(0, 0, float64(width), float64(height))
		dc.Fill()
	}

	dc.SetColor(color.White)
	dc.DrawStringAnchored(frameLabel(frame), 6, 6, 0, 1)

	return dc.EncodePNG(w)
}

func drawGrid(dc *gg.Context, width, height int, scale float64) {
	dc.SetColor(colorGrid)
	dc.SetLineWidth(1)
	step := 5 * scale
	for x := 0.0; x <= float64(width); x += step {
		dc.DrawLine(x, 0, x, float64(height))
		dc.Stroke()
	}
	for y := 0.0; y <= float64(height); y += step {
		dc.DrawLine(0, y, float64(width), y)
		dc.Stroke()
	}
}

func drawHealthBar(dc *gg.Context, cx, y, width, frac float64) {
	left := cx - width/2
	dc.SetColor(color.RGBA{40, 40, 40, 200})
	dc.DrawRectangle(left, y, width, 3)
	dc.Fill()
	dc.SetColor(color.RGBA{139, 195, 74, 255})
	dc.DrawRectangle(left, y, width*frac, 3)
	dc.Fill()
}

func healthFraction(a game.ActorState) float64 {
	maxHP := float64(game.PlayerMaxHP)
	if a.Team == game.TeamEnemy {
		maxHP = float64(game.EnemyMaxHP)
	}
	return float64(spatial.Clamp01(float32(float64(a.HP) / maxHP)))
}

// nightAlpha darkens the frame during the second half of the day cycle.
func nightAlpha(timeOfDay float32) uint8 {
	if timeOfDay < 0.5 {
		return 0
	}
	return 110
}

func frameLabel(frame game.FrameSnapshot) string {
	return fmt.Sprintf("tick %d  score %d  night %d", frame.World.Tick, frame.Score, frame.NightCount)
}
