package telemetry

import (
	"fmt"
	"log/slog"
)

// BookmarkType identifies the type of bookmark.
type BookmarkType string

const (
	BookmarkFlockFormed BookmarkType = "flock_formed"
	BookmarkDispersal   BookmarkType = "dispersal"
	BookmarkFaultBurst  BookmarkType = "fault_burst"
	BookmarkStableFlock BookmarkType = "stable_flock"
)

// Bookmark represents an automatically triggered bookmark.
type Bookmark struct {
	Type        BookmarkType `csv:"type"`
	Tick        int32        `csv:"tick"`
	Description string       `csv:"description"`
}

// LogBookmark logs the bookmark using slog.
func (b Bookmark) LogBookmark() {
	slog.Info("bookmark",
		"type", string(b.Type),
		"tick", b.Tick,
		"description", b.Description,
	)
}

// BookmarkDetector detects interesting moments in the simulation.
type BookmarkDetector struct {
	// Rolling history (circular buffer)
	history     []WindowStats
	historySize int
	historyIdx  int
	historyFull bool

	// State tracking
	recentPolarizationMin float64 // lowest polarization since the last flock_formed
	stableWindowsCount    int     // consecutive windows with a steady flock shape
}

// NewBookmarkDetector creates a detector with the given history size.
func NewBookmarkDetector(historySize int) *BookmarkDetector {
	if historySize < 5 {
		historySize = 5 // minimum for stable flock detection
	}
	return &BookmarkDetector{
		history:               make([]WindowStats, historySize),
		historySize:           historySize,
		recentPolarizationMin: 1,
	}
}

// Check analyzes the latest stats and returns any triggered bookmarks.
func (bd *BookmarkDetector) Check(stats WindowStats) []Bookmark {
	var bookmarks []Bookmark

	if b := bd.checkFaultBurst(stats); b != nil {
		bookmarks = append(bookmarks, *b)
	}

	if bd.historyFull || bd.historyIdx > 0 {
		if b := bd.checkFlockFormed(stats); b != nil {
			bookmarks = append(bookmarks, *b)
		}
		if b := bd.checkDispersal(stats); b != nil {
			bookmarks = append(bookmarks, *b)
		}
		if b := bd.checkStableFlock(stats); b != nil {
			bookmarks = append(bookmarks, *b)
		}
	}

	bd.addToHistory(stats)

	if stats.Agents >= 2 && stats.Polarization < bd.recentPolarizationMin {
		bd.recentPolarizationMin = stats.Polarization
	}

	return bookmarks
}

func (bd *BookmarkDetector) addToHistory(stats WindowStats) {
	bd.history[bd.historyIdx] = stats
	bd.historyIdx = (bd.historyIdx + 1) % bd.historySize
	if bd.historyIdx == 0 {
		bd.historyFull = true
	}
}

// getHistory returns the stored windows in chronological order.
func (bd *BookmarkDetector) getHistory() []WindowStats {
	if !bd.historyFull {
		return bd.history[:bd.historyIdx]
	}
	ordered := make([]WindowStats, 0, bd.historySize)
	ordered = append(ordered, bd.history[bd.historyIdx:]...)
	return append(ordered, bd.history[:bd.historyIdx]...)
}

func (bd *BookmarkDetector) checkFaultBurst(stats WindowStats) *Bookmark {
	if stats.Faults == 0 {
		return nil
	}
	return &Bookmark{
		Type:        BookmarkFaultBurst,
		Tick:        stats.WindowEndTick,
		Description: fmt.Sprintf("%d numeric faults in window", stats.Faults),
	}
}

func (bd *BookmarkDetector) checkFlockFormed(stats WindowStats) *Bookmark {
	if stats.Agents < 2 || bd.recentPolarizationMin > 0.5 {
		return nil
	}

	if stats.Polarization >= 0.8 {
		oldMin := bd.recentPolarizationMin
		// Re-arm only after the flock breaks up again
		bd.recentPolarizationMin = stats.Polarization
		return &Bookmark{
			Type:        BookmarkFlockFormed,
			Tick:        stats.WindowEndTick,
			Description: fmt.Sprintf("Polarization rose from %.2f to %.2f", oldMin, stats.Polarization),
		}
	}

	return nil
}

func (bd *BookmarkDetector) checkDispersal(stats WindowStats) *Bookmark {
	history := bd.getHistory()
	if len(history) < 3 {
		return nil
	}

	var total float64
	for _, h := range history {
		total += h.Spread
	}
	avgSpread := total / float64(len(history))
	if avgSpread == 0 {
		return nil
	}

	if stats.Spread > avgSpread*2.0 && stats.Spread > 10 {
		return &Bookmark{
			Type:        BookmarkDispersal,
			Tick:        stats.WindowEndTick,
			Description: fmt.Sprintf("Spread %.1f is %.1fx average (%.1f)", stats.Spread, stats.Spread/avgSpread, avgSpread),
		}
	}

	return nil
}

func (bd *BookmarkDetector) checkStableFlock(stats WindowStats) *Bookmark {
	if stats.Agents < 2 {
		bd.stableWindowsCount = 0
		return nil
	}

	history := bd.getHistory()
	if len(history) < 4 {
		return nil
	}

	recent := history[len(history)-4:]
	if cv2(recent, func(s WindowStats) float64 { return s.Spread }) < 0.04 &&
		cv2(recent, func(s WindowStats) float64 { return s.Polarization }) < 0.04 {
		bd.stableWindowsCount++
	} else {
		bd.stableWindowsCount = 0
	}

	if bd.stableWindowsCount == 5 { // trigger exactly once at 5 windows
		return &Bookmark{
			Type:        BookmarkStableFlock,
			Tick:        stats.WindowEndTick,
			Description: fmt.Sprintf("Steady flock (polarization %.2f, spread %.1f) over 5+ windows", stats.Polarization, stats.Spread),
		}
	}

	return nil
}

// cv2 returns the squared coefficient of variation of field over windows.
// CV^2 < 0.04 means CV < 0.2.
func cv2(windows []WindowStats, field func(WindowStats) float64) float64 {
	var sum float64
	for _, w := range windows {
		sum += field(w)
	}
	mean := sum / float64(len(windows))
	if mean == 0 {
		return 0
	}

	var variance float64
	for _, w := range windows {
		d := field(w) - mean
		variance += d * d
	}
	variance /= float64(len(windows))
	return variance / (mean * mean)
}
