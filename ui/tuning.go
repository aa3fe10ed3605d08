package ui

import (
	"fmt"

	gui "github.com/gen2brain/raylib-go/raygui"
	rl "github.com/gen2brain/raylib-go/raylib"

	"github.com/pthm-cable/flock/config"
	"github.com/pthm-cable/flock/systems"
)

// TuningPanel renders sliders and switches for the steering parameters.
type TuningPanel struct {
	renderer *Renderer
	sliders  []SliderDescriptor
	x, y     int32
	width    int32
}

// NewTuningPanel creates a tuning panel at the given position.
func NewTuningPanel(x, y, width int32) *TuningPanel {
	return &TuningPanel{
		renderer: NewRenderer(),
		sliders:  TuningSliders(),
		x:        x,
		y:        y,
		width:    width,
	}
}

// SetPosition updates the panel position.
func (t *TuningPanel) SetPosition(x, y int32) {
	t.x = x
	t.y = y
}

// Draw renders the panel and applies user edits to p. It reports whether p
// changed and whether the reset button was pressed.
func (t *TuningPanel) Draw(p *systems.Params) (changed, reset bool) {
	r := t.renderer
	padding := r.Theme.Padding
	inner := t.width - padding*2

	height := int32(len(t.sliders))*(r.Theme.LineHeight+22) + 4*r.Theme.LineHeight + 70
	r.DrawPanel(t.x, t.y, t.width, height)

	x := t.x + padding
	y := r.DrawSectionHeader(x, t.y+padding, "Steering")

	for _, sd := range t.sliders {
		old := sd.Get(p)
		var v float64
		y, v = r.DrawSlider(x, y, inner, sd.Label, sd.Format, old, sd.Min, sd.Max)
		if v != old {
			sd.Set(p, v)
			changed = true
		}
	}

	y += 4
	box := func(label string, checked bool) bool {
		next := gui.CheckBox(rl.Rectangle{X: float32(x), Y: float32(y), Width: 14, Height: 14}, label, checked)
		y += r.Theme.LineHeight + 4
		return next
	}

	if v := box("Cohesion", p.Cohesion); v != p.Cohesion {
		p.Cohesion = v
		changed = true
	}
	if v := box("Centering", p.Centering); v != p.Centering {
		p.Centering = v
		changed = true
	}
	avoid := p.PlayerPolicy == config.PolicyAvoid
	if v := box("Avoid player", avoid); v != avoid {
		p.PlayerPolicy = config.PolicyFollow
		if v {
			p.PlayerPolicy = config.PolicyAvoid
		}
		changed = true
	}

	rl.DrawText(fmt.Sprintf("Query: %s (k=%d)", p.NeighborQuery, p.K), x, y, r.Theme.FontSize, r.Theme.LabelColor)
	y += r.Theme.LineHeight + 4

	reset = gui.Button(rl.Rectangle{X: float32(x), Y: float32(y), Width: 100, Height: 24}, "Reset")
	return changed, reset
}
