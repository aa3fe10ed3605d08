package telemetry

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPhaseRegistryMatchesPhases(t *testing.T) {
	reg := NewPhaseRegistry()
	assert.Equal(t, Phases, reg.IDs())

	info, ok := reg.Get(PhaseSteering)
	assert.True(t, ok)
	assert.Equal(t, "Steering", info.Name)

	assert.Equal(t, "Index", reg.GetName(PhaseIndex))
	assert.Equal(t, "unknown", reg.GetName(Phase(42)))
}
