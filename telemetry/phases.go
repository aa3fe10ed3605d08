package telemetry

// PhaseInfo describes a step phase for UI display.
type PhaseInfo struct {
	ID          Phase
	Name        string // Display name
	Description string // What this phase does
}

// PhaseRegistry holds metadata about all step phases.
// This centralizes phase naming so the UI and perf tracker stay in sync.
type PhaseRegistry struct {
	phases []PhaseInfo
	byID   map[Phase]PhaseInfo
}

// NewPhaseRegistry creates a registry with all known phases.
func NewPhaseRegistry() *PhaseRegistry {
	reg := &PhaseRegistry{
		byID: make(map[Phase]PhaseInfo),
	}
	reg.Register(PhaseInfo{ID: PhaseSnapshot, Name: "Snapshot", Description: "Copies agent state for the tick"})
	reg.Register(PhaseInfo{ID: PhaseIndex, Name: "Index", Description: "Rebuilds the neighbor index"})
	reg.Register(PhaseInfo{ID: PhaseSteering, Name: "Steering", Description: "Evaluates rules and integrates"})
	reg.Register(PhaseInfo{ID: PhaseCommit, Name: "Commit", Description: "Writes new state back"})
	reg.Register(PhaseInfo{ID: PhaseTelemetry, Name: "Telemetry", Description: "Flushes windows and outputs"})
	return reg
}

// Register adds a phase to the registry.
func (r *PhaseRegistry) Register(info PhaseInfo) {
	r.phases = append(r.phases, info)
	r.byID[info.ID] = info
}

// Get returns phase info by ID.
func (r *PhaseRegistry) Get(id Phase) (PhaseInfo, bool) {
	info, ok := r.byID[id]
	return info, ok
}

// GetName returns the display name for a phase.
// Falls back to the phase key if not registered.
func (r *PhaseRegistry) GetName(id Phase) string {
	if info, ok := r.byID[id]; ok {
		return info.Name
	}
	return id.String()
}

// All returns all registered phases in execution order.
func (r *PhaseRegistry) All() []PhaseInfo {
	return r.phases
}

// IDs returns all phase IDs in registration order.
func (r *PhaseRegistry) IDs() []Phase {
	ids := make([]Phase, len(r.phases))
	for i, info := range r.phases {
		ids[i] = info.ID
	}
	return ids
}
