// Package renderer draws the flock with raylib.
package renderer

import (
	"math"

	rl "github.com/gen2brain/raylib-go/raylib"
	"gonum.org/v1/gonum/spatial/r2"

	"github.com/pthm-cable/flock/camera"
	"github.com/pthm-cable/flock/config"
	"github.com/pthm-cable/flock/systems"
	"github.com/pthm-cable/flock/vecmath"
)

// Colors
var (
	BackgroundColor = rl.Color{R: 14, G: 18, B: 26, A: 255}
	BirdColor       = rl.Color{R: 220, G: 225, B: 235, A: 255}
	SlowBirdColor   = rl.Color{R: 110, G: 140, B: 190, A: 255}
	PlayerColor     = rl.Color{R: 240, G: 90, B: 80, A: 255}
	GuideColor      = rl.Color{R: 60, G: 70, B: 85, A: 255}
)

// Guides selects the optional overlays drawn by Draw.
type Guides struct {
	Velocities  bool
	QueryRadius bool
	CenterBand  bool
	Centroid    bool
}

// FlockRenderer draws birds and the player in world space through a camera.
type FlockRenderer struct {
	cam *camera.Camera

	// Bird half-size in world units
	BirdSize float64
}

// NewFlockRenderer creates a renderer drawing through cam.
func NewFlockRenderer(cam *camera.Camera) *FlockRenderer {
	return &FlockRenderer{cam: cam, BirdSize: 0.6}
}

// Draw renders the guides, every visible bird and the player.
func (r *FlockRenderer) Draw(agents []systems.AgentState, player r2.Vec, p *systems.Params, guides Guides) {
	if guides.CenterBand && p.Centering {
		r.drawCircle(r2.Vec{}, p.MinCenterDistance, GuideColor)
		r.drawCircle(r2.Vec{}, p.MaxCenterDistance, GuideColor)
	}

	speedRange := p.MaxVelocity - p.MinVelocity
	for _, a := range agents {
		if !r.cam.IsVisible(a.Pos, r.BirdSize*2) {
			continue
		}

		t := 1.0
		if speedRange > 0 {
			t = vecmath.Clamp((vecmath.Length(a.Vel)-p.MinVelocity)/speedRange, 0, 1)
		}
		r.drawBird(a.Pos, a.Vel, lerpColor(SlowBirdColor, BirdColor, float32(t)))

		if guides.QueryRadius {
			r.drawCircle(a.Pos, p.QueryRadius, rl.Fade(GuideColor, 0.4))
		}
		if guides.Velocities {
			tip := r2.Add(a.Pos, r2.Scale(p.SpeedScale*0.25, a.Vel))
			sx, sy := r.cam.WorldToScreen(a.Pos)
			tx, ty := r.cam.WorldToScreen(tip)
			rl.DrawLineV(rl.Vector2{X: sx, Y: sy}, rl.Vector2{X: tx, Y: ty}, rl.SkyBlue)
		}
	}

	if guides.Centroid && len(agents) > 0 {
		var c r2.Vec
		for _, a := range agents {
			c = r2.Add(c, a.Pos)
		}
		c = r2.Scale(1/float64(len(agents)), c)
		sx, sy := r.cam.WorldToScreen(c)
		rl.DrawCircleLines(int32(sx), int32(sy), 6, rl.Yellow)
	}

	r.drawPlayer(player, p)
}

// drawPlayer draws the player marker, ringed by its avoid band under the
// avoid policy.
func (r *FlockRenderer) drawPlayer(pos r2.Vec, p *systems.Params) {
	sx, sy := r.cam.WorldToScreen(pos)
	rl.DrawCircleV(rl.Vector2{X: sx, Y: sy}, float32(r.BirdSize*r.cam.Scale()), PlayerColor)
	if p.PlayerPolicy == config.PolicyAvoid {
		r.drawCircle(pos, p.MaxAvoidDistance, rl.Fade(PlayerColor, 0.5))
	}
}

// drawBird draws a triangle pointing along vel. Birds at rest point along +X.
func (r *FlockRenderer) drawBird(pos, vel r2.Vec, color rl.Color) {
	dir := vecmath.NormalizeOrZero(vel)
	if dir == vecmath.Zero {
		dir = r2.Vec{X: 1}
	}
	// Screen Y points down.
	heading := float32(math.Atan2(-dir.Y, dir.X))
	x, y := r.cam.WorldToScreen(pos)
	radius := float32(r.BirdSize * r.cam.Scale())
	drawOrientedTriangle(x, y, heading, radius, color)
}

func (r *FlockRenderer) drawCircle(center r2.Vec, radius float64, color rl.Color) {
	sx, sy := r.cam.WorldToScreen(center)
	rl.DrawCircleLinesV(rl.Vector2{X: sx, Y: sy}, float32(radius*r.cam.Scale()), color)
}

// drawOrientedTriangle draws a triangle pointing in the heading direction.
func drawOrientedTriangle(x, y, heading, radius float32, color rl.Color) {
	cos := float32(math.Cos(float64(heading)))
	sin := float32(math.Sin(float64(heading)))

	// Front point
	frontX := x + cos*radius*1.5
	frontY := y + sin*radius*1.5

	// Back left
	backAngle := heading + math.Pi*0.8
	backLeftX := x + float32(math.Cos(float64(backAngle)))*radius
	backLeftY := y + float32(math.Sin(float64(backAngle)))*radius

	// Back right
	backAngle = heading - math.Pi*0.8
	backRightX := x + float32(math.Cos(float64(backAngle)))*radius
	backRightY := y + float32(math.Sin(float64(backAngle)))*radius

	v1 := rl.Vector2{X: frontX, Y: frontY}
	v2 := rl.Vector2{X: backLeftX, Y: backLeftY}
	v3 := rl.Vector2{X: backRightX, Y: backRightY}

	// DrawTriangle requires counter-clockwise winding (v1, v3, v2)
	rl.DrawTriangle(v1, v3, v2, color)
}

func lerpColor(a, b rl.Color, t float32) rl.Color {
	mix := func(x, y uint8) uint8 {
		return uint8(float32(x) + (float32(y)-float32(x))*t)
	}
	return rl.Color{R: mix(a.R, b.R), G: mix(a.G, b.G), B: mix(a.B, b.B), A: mix(a.A, b.A)}
}
