package game

import (
	"fmt"
	"log/slog"

	"github.com/pthm-cable/flock/telemetry"
)

// flushTelemetry checks if the stats window should be flushed and handles bookmarks.
func (g *Game) flushTelemetry() {
	if !g.collector.ShouldFlush(g.tick) {
		return
	}

	player, _ := g.PlayerPosition()
	stats := g.collector.Flush(g.tick, g.simTime, g.Agents(), player)
	perfStats := g.perfCollector.Stats()
	g.lastStats = &stats

	// Call stats callback if provided
	if g.statsCallback != nil {
		g.statsCallback(stats)
	}

	// Log stats if enabled (console output)
	if g.logStats {
		stats.LogStats()
		perfStats.LogStats()
	}

	// Write to CSV if output manager is enabled
	if g.outputManager != nil {
		if err := g.outputManager.WriteTelemetry(stats); err != nil {
			slog.Error("failed to write telemetry", "error", err)
		}
		if err := g.outputManager.WritePerf(perfStats, stats.WindowEndTick); err != nil {
			slog.Error("failed to write perf", "error", err)
		}
	}

	// Check for bookmarks
	bookmarks := g.bookmarkDetector.Check(stats)
	for _, bm := range bookmarks {
		if g.logStats {
			bm.LogBookmark()
		}

		if g.outputManager != nil {
			if err := g.outputManager.WriteBookmark(bm); err != nil {
				slog.Error("failed to write bookmark", "error", err)
			}
		}

		// Save snapshot on bookmark
		if g.snapshotDir != "" {
			g.saveSnapshot(&bm)
		}
	}
}

// saveSnapshot creates and saves a snapshot to disk.
func (g *Game) saveSnapshot(bookmark *telemetry.Bookmark) {
	snapshot := g.CreateSnapshot()
	snapshot.Bookmark = bookmark

	path, err := telemetry.SaveSnapshot(snapshot, g.snapshotDir)
	if err != nil {
		slog.Error("failed to save snapshot", "error", err)
		return
	}

	slog.Info("snapshot saved", "path", path, "tick", g.tick)
}

// CreateSnapshot captures the current birds and player.
func (g *Game) CreateSnapshot() *telemetry.Snapshot {
	player, _ := g.PlayerPosition()
	return telemetry.NewSnapshot(g.rngSeed, g.tick, g.simTime, player, g.Agents())
}

// RestoreSnapshot replaces every bird and the player with the snapshot's
// state and resumes counting from its tick. An invalid snapshot leaves the
// game untouched.
func (g *Game) RestoreSnapshot(s *telemetry.Snapshot) error {
	if err := s.Validate(); err != nil {
		return fmt.Errorf("restoring snapshot: %w", err)
	}
	for _, a := range g.Agents() {
		g.RemoveBird(a.ID)
	}
	g.freeIDs = g.freeIDs[:0]
	g.nextID = 0

	for _, a := range s.AgentStates() {
		g.spawnWithID(a.ID, a.Pos, a.Vel)
		g.nextID = max(g.nextID, a.ID+1)
	}
	// Gaps in the restored IDs become free, lowest reused first.
	for id := g.nextID; id > 0; id-- {
		if _, ok := g.entities[id-1]; !ok {
			g.freeIDs = append(g.freeIDs, id-1)
		}
	}

	g.SpawnPlayer(s.Player())
	g.tick = s.Tick
	g.simTime = s.SimTime
	g.collector.Reset(g.tick)
	return nil
}
