package main

import (
	"fmt"
	"log/slog"
	"strings"

	rl "github.com/gen2brain/raylib-go/raylib"

	"github.com/pthm-cable/flock/camera"
	"github.com/pthm-cable/flock/game"
	"github.com/pthm-cable/flock/renderer"
	"github.com/pthm-cable/flock/systems"
	"github.com/pthm-cable/flock/ui"
)

const controlsLegend = "[Space] pause  [</>] speed  [wheel] zoom  [right drag] pan  [Home] reset view"

// viewer owns the window-side state: camera, panels and overlays.
type viewer struct {
	g        *game.Game
	cam      *camera.Camera
	flock    *renderer.FlockRenderer
	hud      *ui.HUD
	tuning   *ui.TuningPanel
	perf     *ui.PerfPanel
	overlays *ui.OverlayRegistry
	legend   string
}

// runWindowed opens a raylib window and runs the interactive loop. The
// player follows the cursor while it is inside the window.
func runWindowed(g *game.Game, maxTicks int) {
	cfg := g.Config()
	rl.SetConfigFlags(rl.FlagWindowResizable)
	rl.InitWindow(int32(cfg.Screen.Width), int32(cfg.Screen.Height), "Flock")
	defer rl.CloseWindow()
	rl.SetTargetFPS(int32(cfg.Screen.TargetFPS))

	w, h := float32(cfg.Screen.Width), float32(cfg.Screen.Height)
	cam := camera.New(w, h, cfg.Screen.WorldHeight)
	v := &viewer{
		g:        g,
		cam:      cam,
		flock:    renderer.NewFlockRenderer(cam),
		hud:      ui.NewHUD(),
		tuning:   ui.NewTuningPanel(int32(w)-270, 10, 260),
		perf:     ui.NewPerfPanel(10, int32(h)-140),
		overlays: ui.NewOverlayRegistry(),
	}
	v.overlays.SetEnabled(ui.OverlayTuning, true)
	v.legend = controlsLegend + "  " + overlayLegend(v.overlays)

	for !rl.WindowShouldClose() {
		v.handleInput()
		v.update()
		v.draw()
		g.RecordFrame()

		if maxTicks > 0 && int(g.Tick()) >= maxTicks {
			break
		}
	}
}

// handleInput processes keyboard and mouse input.
func (v *viewer) handleInput() {
	if rl.IsWindowResized() {
		w, h := float32(rl.GetScreenWidth()), float32(rl.GetScreenHeight())
		v.cam.Resize(w, h)
		v.tuning.SetPosition(int32(w)-270, 10)
		v.perf.SetPosition(10, int32(h)-140)
	}

	if rl.IsKeyPressed(rl.KeySpace) {
		v.g.SetPaused(!v.g.Paused())
	}

	// Steps-per-update control with < > keys (comma and period)
	if rl.IsKeyPressed(rl.KeyComma) {
		v.g.SetStepsPerUpdate(v.g.StepsPerUpdate() - 1)
	}
	if rl.IsKeyPressed(rl.KeyPeriod) {
		v.g.SetStepsPerUpdate(v.g.StepsPerUpdate() + 1)
	}

	// Camera controls
	if wheel := rl.GetMouseWheelMove(); wheel != 0 {
		v.cam.ZoomBy(1 + 0.1*float64(wheel))
	}
	if rl.IsMouseButtonDown(rl.MouseButtonRight) {
		d := rl.GetMouseDelta()
		v.cam.Pan(-d.X, -d.Y)
	}
	if rl.IsKeyPressed(rl.KeyHome) {
		v.cam.Reset()
	}

	if key := rl.GetKeyPressed(); key != 0 {
		if id, on, ok := v.overlays.HandleKeyPress(key); ok {
			slog.Debug("overlay toggled", "overlay", id, "enabled", on, "active", v.overlays.EnabledOverlays())
		}
	}
}

// update tracks the cursor and advances the simulation by the frame time.
func (v *viewer) update() {
	mouse := rl.GetMousePosition()
	world, ok := v.cam.CursorWorld(mouse.X, mouse.Y)
	v.g.TrackPlayer(world, ok)

	if v.g.Paused() {
		return
	}
	dt := float64(rl.GetFrameTime())
	for i := 0; i < v.g.StepsPerUpdate(); i++ {
		if err := v.g.Step(dt); err != nil {
			slog.Error("step failed, pausing", "tick", v.g.Tick(), "error", err)
			v.g.SetPaused(true)
			return
		}
	}
}

// draw renders the world, HUD and panels.
func (v *viewer) draw() {
	rl.BeginDrawing()
	rl.ClearBackground(renderer.BackgroundColor)

	params := v.g.Params()
	player, _ := v.g.PlayerPosition()
	v.flock.Draw(v.g.Agents(), player, &params, renderer.Guides{
		Velocities:  v.overlays.IsEnabled(ui.OverlayVelocities),
		QueryRadius: v.overlays.IsEnabled(ui.OverlayQueryRadius),
		CenterBand:  v.overlays.IsEnabled(ui.OverlayCenterBand),
		Centroid:    v.overlays.IsEnabled(ui.OverlayCentroid),
	})

	v.hud.Draw(ui.HUDData{
		Title:          "Flock",
		Agents:         v.g.BirdCount(),
		Tick:           v.g.Tick(),
		StepsPerUpdate: v.g.StepsPerUpdate(),
		FPS:            rl.GetFPS(),
		Paused:         v.g.Paused(),
		Policy:         params.PlayerPolicy,
		PlayerX:        player.X,
		PlayerY:        player.Y,
		Stats:          v.g.LastStats(),
	})
	v.hud.DrawControls(int32(rl.GetScreenHeight()), v.legend)

	if v.overlays.IsEnabled(ui.OverlayTuning) {
		changed, reset := v.tuning.Draw(&params)
		if reset {
			params = systems.ParamsFromConfig(v.g.Config())
			changed = true
		}
		if changed {
			v.g.SetParams(params)
		}
	}
	if v.overlays.IsEnabled(ui.OverlayPerf) {
		v.perf.Draw(v.g.PerfStats())
	}

	rl.EndDrawing()
}

// overlayLegend lists the overlay toggle keys grouped by category.
func overlayLegend(reg *ui.OverlayRegistry) string {
	var parts []string
	for _, cat := range reg.Categories() {
		var keys []string
		for _, desc := range reg.ByCategory(cat) {
			if desc.KeyLabel != "" {
				keys = append(keys, desc.KeyLabel)
			}
		}
		if len(keys) > 0 {
			parts = append(parts, fmt.Sprintf("[%s] %s", strings.Join(keys, "/"), cat))
		}
	}
	return strings.Join(parts, "  ")
}
