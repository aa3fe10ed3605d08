// Package main provides CMA-ES optimization for flock steering parameters.
package main

import (
	"github.com/pthm-cable/flock/config"
)

// ParamSpec defines a single optimizable parameter.
type ParamSpec struct {
	Name    string  // Human-readable name
	Path    string  // Config path for logging
	Min     float64 // Lower bound
	Max     float64 // Upper bound
	Default float64 // Default value
}

// ParamVector holds the set of all optimizable parameters.
type ParamVector struct {
	Specs []ParamSpec
}

// NewParamVector creates the standard set of optimizable parameters.
// Defaults are the embedded config values.
func NewParamVector() *ParamVector {
	d := config.Default()
	s := d.Steering
	return &ParamVector{
		Specs: []ParamSpec{
			{Name: "separation", Path: "steering.separation_factor", Min: 0.001, Max: 0.5, Default: s.SeparationFactor},
			{Name: "alignment", Path: "steering.alignment_factor", Min: 0, Max: 0.2, Default: s.AlignmentFactor},
			{Name: "cohesion", Path: "steering.cohesion_factor", Min: 0, Max: 0.2, Default: s.CohesionFactor},
			{Name: "avoid", Path: "steering.avoid_factor", Min: 0, Max: 2, Default: s.AvoidFactor},
			{Name: "center", Path: "steering.center_factor", Min: 0, Max: 0.5, Default: s.CenterFactor},
			{Name: "query_radius", Path: "steering.query_radius", Min: 1, Max: 15, Default: s.QueryRadius},
			{Name: "max_steering_force", Path: "integration.max_steering_force", Min: 0.01, Max: 0.5, Default: d.Integration.MaxSteeringForce},
		},
	}
}

// Dim returns the number of parameters.
func (pv *ParamVector) Dim() int {
	return len(pv.Specs)
}

// DefaultVector returns the default parameter values as a slice.
func (pv *ParamVector) DefaultVector() []float64 {
	v := make([]float64, len(pv.Specs))
	for i, spec := range pv.Specs {
		v[i] = spec.Default
	}
	return v
}

// Normalize converts raw parameter values to [0,1] range.
func (pv *ParamVector) Normalize(raw []float64) []float64 {
	normalized := make([]float64, len(pv.Specs))
	for i, spec := range pv.Specs {
		normalized[i] = (raw[i] - spec.Min) / (spec.Max - spec.Min)
	}
	return normalized
}

// Denormalize converts [0,1] values back to raw parameter values.
func (pv *ParamVector) Denormalize(normalized []float64) []float64 {
	raw := make([]float64, len(pv.Specs))
	for i, spec := range pv.Specs {
		raw[i] = spec.Min + normalized[i]*(spec.Max-spec.Min)
	}
	return raw
}

// Clamp ensures all values are within bounds.
func (pv *ParamVector) Clamp(v []float64) []float64 {
	clamped := make([]float64, len(pv.Specs))
	for i, spec := range pv.Specs {
		clamped[i] = min(max(v[i], spec.Min), spec.Max)
	}
	return clamped
}

// ApplyToConfig applies parameter values to a Config struct.
// Order must match Specs order.
func (pv *ParamVector) ApplyToConfig(cfg *config.Config, values []float64) {
	c := pv.Clamp(values)
	cfg.Steering.SeparationFactor = c[0]
	cfg.Steering.AlignmentFactor = c[1]
	cfg.Steering.CohesionFactor = c[2]
	cfg.Steering.AvoidFactor = c[3]
	cfg.Steering.CenterFactor = c[4]
	cfg.Steering.QueryRadius = c[5]
	cfg.Integration.MaxSteeringForce = c[6]
}

// ExtractFromConfig extracts current parameter values from a Config struct.
func (pv *ParamVector) ExtractFromConfig(cfg *config.Config) []float64 {
	return []float64{
		cfg.Steering.SeparationFactor,
		cfg.Steering.AlignmentFactor,
		cfg.Steering.CohesionFactor,
		cfg.Steering.AvoidFactor,
		cfg.Steering.CenterFactor,
		cfg.Steering.QueryRadius,
		cfg.Integration.MaxSteeringForce,
	}
}
