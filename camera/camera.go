// Package camera maps between screen pixels and world units.
package camera

import "gonum.org/v1/gonum/spatial/r2"

// Camera controls the viewport into the simulation world.
// The viewport always shows WorldHeight units vertically (times Zoom) and
// keeps the screen aspect ratio horizontally. World +Y points up.
type Camera struct {
	// Center is the camera center in world coordinates
	Center r2.Vec

	// Zoom level (1.0 = WorldHeight units fill the screen height)
	Zoom float64

	// Viewport dimensions (screen size)
	ViewportW, ViewportH float32

	// Visible world units along the vertical axis at zoom 1
	WorldHeight float64

	// Zoom constraints
	MinZoom, MaxZoom float64
}

// New creates a camera centered on the origin with 1:1 zoom.
func New(viewportW, viewportH float32, worldHeight float64) *Camera {
	return &Camera{
		Zoom:        1.0,
		ViewportW:   viewportW,
		ViewportH:   viewportH,
		WorldHeight: worldHeight,
		MinZoom:     0.25,
		MaxZoom:     8.0,
	}
}

// Scale returns screen pixels per world unit.
func (c *Camera) Scale() float64 {
	return float64(c.ViewportH) / c.WorldHeight * c.Zoom
}

// WorldToScreen converts world coordinates to screen coordinates.
func (c *Camera) WorldToScreen(w r2.Vec) (sx, sy float32) {
	s := c.Scale()
	sx = c.ViewportW/2 + float32((w.X-c.Center.X)*s)
	sy = c.ViewportH/2 - float32((w.Y-c.Center.Y)*s)
	return sx, sy
}

// ScreenToWorld converts screen coordinates to world coordinates.
func (c *Camera) ScreenToWorld(sx, sy float32) r2.Vec {
	s := c.Scale()
	return r2.Vec{
		X: c.Center.X + float64(sx-c.ViewportW/2)/s,
		Y: c.Center.Y - float64(sy-c.ViewportH/2)/s,
	}
}

// Contains reports whether a screen point lies inside the viewport.
func (c *Camera) Contains(sx, sy float32) bool {
	return sx >= 0 && sy >= 0 && sx < c.ViewportW && sy < c.ViewportH
}

// CursorWorld maps a cursor position to world coordinates. ok is false when
// the cursor is outside the viewport, in which case the caller should keep
// its last known world position.
func (c *Camera) CursorWorld(sx, sy float32) (r2.Vec, bool) {
	if !c.Contains(sx, sy) {
		return r2.Vec{}, false
	}
	return c.ScreenToWorld(sx, sy), true
}

// IsVisible returns true if a circle at w with given radius
// could be visible on screen (conservative check for culling).
func (c *Camera) IsVisible(w r2.Vec, radius float64) bool {
	minX, minY, maxX, maxY := c.VisibleWorldBounds()
	return w.X >= minX-radius && w.X <= maxX+radius &&
		w.Y >= minY-radius && w.Y <= maxY+radius
}

// Resize updates viewport dimensions.
func (c *Camera) Resize(viewportW, viewportH float32) {
	c.ViewportW = viewportW
	c.ViewportH = viewportH
}

// Pan moves the camera by the given delta in screen pixels.
func (c *Camera) Pan(dx, dy float32) {
	s := c.Scale()
	c.Center.X += float64(dx) / s
	c.Center.Y -= float64(dy) / s
}

// SetZoom sets the zoom level, clamped to min/max.
func (c *Camera) SetZoom(zoom float64) {
	c.Zoom = min(max(zoom, c.MinZoom), c.MaxZoom)
}

// ZoomBy multiplies the current zoom by the given factor.
func (c *Camera) ZoomBy(factor float64) {
	c.SetZoom(c.Zoom * factor)
}

// Reset returns the camera to the origin at zoom 1.
func (c *Camera) Reset() {
	c.Center = r2.Vec{}
	c.Zoom = 1.0
}

// VisibleWorldBounds returns the world-coordinate bounds of the visible area.
func (c *Camera) VisibleWorldBounds() (minX, minY, maxX, maxY float64) {
	s := c.Scale()
	halfW := float64(c.ViewportW) / (2 * s)
	halfH := float64(c.ViewportH) / (2 * s)
	return c.Center.X - halfW, c.Center.Y - halfH, c.Center.X + halfW, c.Center.Y + halfH
}
