package ui

import (
	"fmt"
	"time"

	rl "github.com/gen2brain/raylib-go/raylib"

	"github.com/pthm-cable/flock/telemetry"
)

// HUDData holds all the data needed to render the main HUD.
type HUDData struct {
	Title          string
	Agents         int
	Tick           int32
	StepsPerUpdate int
	FPS            int32
	Paused         bool
	Policy         string
	PlayerX        float64
	PlayerY        float64
	Stats          *telemetry.WindowStats // last flushed window, may be nil
}

// HUD renders the main heads-up display.
type HUD struct {
	renderer *Renderer
}

// NewHUD creates a new HUD renderer.
func NewHUD() *HUD {
	return &HUD{
		renderer: NewRenderer(),
	}
}

// Draw renders the HUD.
func (h *HUD) Draw(data HUDData) {
	rl.DrawText(data.Title, 10, 10, 20, rl.White)

	rl.DrawText(
		fmt.Sprintf("Birds: %d | Policy: %s | Player: (%.1f, %.1f)", data.Agents, data.Policy, data.PlayerX, data.PlayerY),
		10, 35, 16, rl.LightGray,
	)
	rl.DrawText(
		fmt.Sprintf("Tick: %d | Speed: %dx | FPS: %d", data.Tick, data.StepsPerUpdate, data.FPS),
		10, 55, 16, rl.LightGray,
	)

	y := int32(75)
	if data.Paused {
		rl.DrawText("PAUSED", 10, y, 16, rl.Yellow)
		y += 20
	}

	if s := data.Stats; s != nil {
		y = h.renderer.DrawBar(10, y, "Polarization", float32(s.Polarization), 260)
		h.renderer.DrawLabelValue(10, y, "Speed p50", fmt.Sprintf("%.3f", s.SpeedP50))
	}
}

// DrawControls renders the control legend at the bottom of the screen.
func (h *HUD) DrawControls(screenHeight int32, controls string) {
	rl.DrawText(controls, 10, screenHeight-25, 14, rl.Gray)
}

// PerfPanel renders the step phase timing panel.
type PerfPanel struct {
	renderer *Renderer
	phases   *telemetry.PhaseRegistry
	x, y     int32
}

// NewPerfPanel creates a new performance panel.
func NewPerfPanel(x, y int32) *PerfPanel {
	return &PerfPanel{
		renderer: NewRenderer(),
		phases:   telemetry.NewPhaseRegistry(),
		x:        x,
		y:        y,
	}
}

// SetPosition updates the panel position.
func (p *PerfPanel) SetPosition(x, y int32) {
	p.x = x
	p.y = y
}

// Draw renders the performance panel.
func (p *PerfPanel) Draw(stats telemetry.PerfStats) {
	x := p.x
	y := p.y

	p.renderer.DrawPanel(x-6, y-6, 250, int32(56+14*len(p.phases.All())))
	rl.DrawText("Step Performance", x, y, 16, rl.White)
	y += 20

	rl.DrawText(fmt.Sprintf("Tick avg: %s (%.0f ticks/s)", stats.AvgTickDuration.Round(time.Microsecond), stats.TicksPerSecond), x, y, 14, rl.Yellow)
	y += 16
	rl.DrawText(fmt.Sprintf("%.0f agents/s  %.1f nbr/agent  buf %d", stats.AgentsPerSecond, stats.NeighborsPerAgent, stats.NeighborBufferCap), x, y, 12, rl.LightGray)
	y += 16

	for _, phase := range p.phases.All() {
		timing := stats.Timing(phase.ID)
		avg, pct := timing.Avg, timing.Pct

		color := rl.LightGray
		if pct > 50 {
			color = rl.Red
		} else if pct > 25 {
			color = rl.Orange
		}

		rl.DrawText(
			fmt.Sprintf("%-10s %8s %5.1f%%", phase.Name, avg.Round(time.Microsecond), pct),
			x, y, 12, color,
		)
		y += 14
	}
}
