package systems

import (
	"testing"

	"gonum.org/v1/gonum/spatial/r2"
)

func TestSnapshot(t *testing.T) {
	s := NewSnapshot(4)
	s.Add(AgentState{ID: 3, Pos: r2.Vec{X: 1}})
	s.Add(AgentState{ID: 9, Pos: r2.Vec{Y: 2}, Vel: r2.Vec{X: 0.5}})

	if s.Len() != 2 {
		t.Fatalf("Len() = %d, want 2", s.Len())
	}

	a, ok := s.Lookup(9)
	if !ok || a.Pos != (r2.Vec{Y: 2}) || a.Vel != (r2.Vec{X: 0.5}) {
		t.Errorf("Lookup(9) = %+v, %v", a, ok)
	}
	if _, ok := s.Lookup(4); ok {
		t.Error("Lookup(4) found an agent that was never added")
	}

	// Re-adding replaces in place.
	s.Add(AgentState{ID: 3, Pos: r2.Vec{X: 7}})
	if s.Len() != 2 {
		t.Errorf("Len() after replace = %d, want 2", s.Len())
	}
	if a, _ := s.Lookup(3); a.Pos.X != 7 {
		t.Errorf("replaced position = %v, want 7", a.Pos.X)
	}

	pts := s.Points(nil)
	if len(pts) != 2 || pts[0].ID != 3 || pts[1].ID != 9 {
		t.Errorf("Points() = %+v", pts)
	}

	s.Reset()
	if s.Len() != 0 || len(s.Agents()) != 0 {
		t.Error("Reset() left agents behind")
	}
	if _, ok := s.Lookup(9); ok {
		t.Error("Lookup after Reset found an agent")
	}
}
