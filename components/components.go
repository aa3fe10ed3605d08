// Package components defines ECS components for the flock simulation.
package components
