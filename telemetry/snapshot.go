package telemetry

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gonum.org/v1/gonum/spatial/r2"

	"github.com/pthm-cable/flock/systems"
)

// SnapshotVersion is incremented when the format changes.
const SnapshotVersion = 1

// Snapshot holds the complete simulation state for replay.
type Snapshot struct {
	Version int   `json:"version"`
	RNGSeed int64 `json:"rng_seed"`

	Tick    int32   `json:"tick"`
	SimTime float64 `json:"sim_time"`

	PlayerX float64 `json:"player_x"`
	PlayerY float64 `json:"player_y"`

	Agents []AgentRecord `json:"agents"`

	Bookmark *Bookmark `json:"bookmark,omitempty"`
}

// AgentRecord holds one agent's state.
type AgentRecord struct {
	ID   uint32  `json:"id"`
	X    float64 `json:"x"`
	Y    float64 `json:"y"`
	VelX float64 `json:"vel_x"`
	VelY float64 `json:"vel_y"`
}

// NewSnapshot captures agents and the player position at tick.
func NewSnapshot(seed int64, tick int32, simTime float64, player r2.Vec, agents []systems.AgentState) *Snapshot {
	s := &Snapshot{
		Version: SnapshotVersion,
		RNGSeed: seed,
		Tick:    tick,
		SimTime: simTime,
		PlayerX: player.X,
		PlayerY: player.Y,
		Agents:  make([]AgentRecord, len(agents)),
	}
	for i, a := range agents {
		s.Agents[i] = AgentRecord{ID: a.ID, X: a.Pos.X, Y: a.Pos.Y, VelX: a.Vel.X, VelY: a.Vel.Y}
	}
	return s
}

// Validate checks that agent IDs are unique.
func (s *Snapshot) Validate() error {
	seen := make(map[uint32]struct{}, len(s.Agents))
	for _, a := range s.Agents {
		if _, dup := seen[a.ID]; dup {
			return fmt.Errorf("duplicate agent id %d", a.ID)
		}
		seen[a.ID] = struct{}{}
	}
	return nil
}

// AgentStates converts the stored agents back into simulation state.
func (s *Snapshot) AgentStates() []systems.AgentState {
	out := make([]systems.AgentState, len(s.Agents))
	for i, a := range s.Agents {
		out[i] = systems.AgentState{
			ID:  a.ID,
			Pos: r2.Vec{X: a.X, Y: a.Y},
			Vel: r2.Vec{X: a.VelX, Y: a.VelY},
		}
	}
	return out
}

// Player returns the stored player position.
func (s *Snapshot) Player() r2.Vec {
	return r2.Vec{X: s.PlayerX, Y: s.PlayerY}
}

// SaveSnapshot writes a snapshot to disk.
// Returns the filepath where it was saved.
func SaveSnapshot(snapshot *Snapshot, dir string) (string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("create snapshot dir: %w", err)
	}

	// Build filename
	name := fmt.Sprintf("snapshot_%d", snapshot.Tick)
	if snapshot.Bookmark != nil {
		// Sanitize bookmark type for filename
		sanitized := strings.ReplaceAll(string(snapshot.Bookmark.Type), " ", "_")
		name = fmt.Sprintf("snapshot_%d_%s", snapshot.Tick, sanitized)
	}
	name += ".json"

	path := filepath.Join(dir, name)

	data, err := json.MarshalIndent(snapshot, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal snapshot: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("write snapshot: %w", err)
	}

	return path, nil
}

// LoadSnapshot reads a snapshot from disk.
func LoadSnapshot(path string) (*Snapshot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read snapshot: %w", err)
	}

	var snapshot Snapshot
	if err := json.Unmarshal(data, &snapshot); err != nil {
		return nil, fmt.Errorf("unmarshal snapshot: %w", err)
	}
	if snapshot.Version != SnapshotVersion {
		return nil, fmt.Errorf("unsupported snapshot version %d (want %d)", snapshot.Version, SnapshotVersion)
	}
	if err := snapshot.Validate(); err != nil {
		return nil, fmt.Errorf("invalid snapshot: %w", err)
	}

	return &snapshot, nil
}
