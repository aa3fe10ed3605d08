// Package ui provides a descriptor-driven UI for the simulation.
// Sliders and overlays are defined through metadata so new tunables only
// need a descriptor, not new layout code.
package ui

import (
	rl "github.com/gen2brain/raylib-go/raylib"

	"github.com/pthm-cable/flock/systems"
)

// SliderDescriptor binds a slider to one steering parameter.
type SliderDescriptor struct {
	ID       string
	Label    string
	Min, Max float64
	Format   string // Printf format for the value
	Get      func(*systems.Params) float64
	Set      func(*systems.Params, float64)
}

// TuningSliders returns the sliders shown in the tuning panel.
func TuningSliders() []SliderDescriptor {
	return []SliderDescriptor{
		{
			ID: "separation", Label: "Separation", Min: 0, Max: 0.5, Format: "%.3f",
			Get: func(p *systems.Params) float64 { return p.SeparationFactor },
			Set: func(p *systems.Params, v float64) { p.SeparationFactor = v },
		},
		{
			ID: "alignment", Label: "Alignment", Min: 0, Max: 0.2, Format: "%.3f",
			Get: func(p *systems.Params) float64 { return p.AlignmentFactor },
			Set: func(p *systems.Params, v float64) { p.AlignmentFactor = v },
		},
		{
			ID: "cohesion", Label: "Cohesion", Min: 0, Max: 0.2, Format: "%.3f",
			Get: func(p *systems.Params) float64 { return p.CohesionFactor },
			Set: func(p *systems.Params, v float64) { p.CohesionFactor = v },
		},
		{
			ID: "follow", Label: "Follow", Min: 0, Max: 0.5, Format: "%.3f",
			Get: func(p *systems.Params) float64 { return p.FollowFactor },
			Set: func(p *systems.Params, v float64) { p.FollowFactor = v },
		},
		{
			ID: "avoid", Label: "Avoid", Min: 0, Max: 2, Format: "%.2f",
			Get: func(p *systems.Params) float64 { return p.AvoidFactor },
			Set: func(p *systems.Params, v float64) { p.AvoidFactor = v },
		},
		{
			ID: "center", Label: "Center", Min: 0, Max: 0.5, Format: "%.3f",
			Get: func(p *systems.Params) float64 { return p.CenterFactor },
			Set: func(p *systems.Params, v float64) { p.CenterFactor = v },
		},
		{
			ID: "radius", Label: "Radius", Min: 0.5, Max: 20, Format: "%.1f",
			Get: func(p *systems.Params) float64 { return p.QueryRadius },
			Set: func(p *systems.Params, v float64) { p.QueryRadius = v },
		},
		{
			ID: "max_force", Label: "Max force", Min: 0.01, Max: 1, Format: "%.3f",
			Get: func(p *systems.Params) float64 { return p.MaxSteeringForce },
			Set: func(p *systems.Params, v float64) { p.MaxSteeringForce = v },
		},
	}
}

// Theme holds UI styling constants.
type Theme struct {
	PanelBg        rl.Color
	PanelBorder    rl.Color
	SectionHeader  rl.Color
	LabelColor     rl.Color
	ValueColor     rl.Color
	BarBg          rl.Color
	BarFill        rl.Color
	Padding        int32
	LineHeight     int32
	LabelWidth     int32
	BarHeight      int32
	FontSize       int32
	HeaderFontSize int32
}

// DefaultTheme returns the default UI theme.
func DefaultTheme() Theme {
	return Theme{
		PanelBg:        rl.Color{R: 20, G: 25, B: 30, A: 240},
		PanelBorder:    rl.Color{R: 60, G: 70, B: 80, A: 255},
		SectionHeader:  rl.Yellow,
		LabelColor:     rl.LightGray,
		ValueColor:     rl.LightGray,
		BarBg:          rl.Color{R: 40, G: 40, B: 40, A: 255},
		BarFill:        rl.Color{R: 100, G: 150, B: 200, A: 255},
		Padding:        10,
		LineHeight:     16,
		LabelWidth:     80,
		BarHeight:      12,
		FontSize:       12,
		HeaderFontSize: 14,
	}
}
