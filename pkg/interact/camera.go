// Package interact owns pointer and wheel handling for the graph view:
// hit-testing against node/edge geometry, gesture disambiguation (click vs.
// double-click vs. drag-pan), camera pan/zoom, and dispatch of the resulting
// intents (select, expand, add-to-path, pan, zoom) to the session.
//
// The package is deliberately renderer-agnostic: it deals in screen
// coordinates in, world coordinates out, and knows nothing about how nodes
// are painted. All timing goes through an injected Clock so tests can drive
// the double-click window without real delays.
package interact

import "github.com/orneryd/bifrost/pkg/graph"

// Camera maps between world (layout) space and screen space.
//
// screen = world·zoom + offset. Panning translates the offset in screen
// pixels; zooming scales about an anchor point so the content under the
// cursor stays put.
type Camera struct {
	OffsetX float64
	OffsetY float64
	Zoom    float64

	MinZoom float64
	MaxZoom float64
}

// NewCamera returns a camera at the origin with unit zoom and the given
// clamp range.
func NewCamera(minZoom, maxZoom float64) *Camera {
	if minZoom <= 0 {
		minZoom = 0.25
	}
	if maxZoom < minZoom {
		maxZoom = minZoom
	}
	return &Camera{Zoom: 1, MinZoom: minZoom, MaxZoom: maxZoom}
}

// WorldToScreen projects a world point into screen space.
func (c *Camera) WorldToScreen(p graph.Point) graph.Point {
	return graph.Point{X: p.X*c.Zoom + c.OffsetX, Y: p.Y*c.Zoom + c.OffsetY}
}

// ScreenToWorld projects a screen point into world space.
func (c *Camera) ScreenToWorld(p graph.Point) graph.Point {
	return graph.Point{X: (p.X - c.OffsetX) / c.Zoom, Y: (p.Y - c.OffsetY) / c.Zoom}
}

// Pan translates the camera by a screen-space delta.
func (c *Camera) Pan(dx, dy float64) {
	c.OffsetX += dx
	c.OffsetY += dy
}

// ZoomBy multiplies the zoom by factor, clamped to [MinZoom, MaxZoom],
// keeping the world point under the screen anchor fixed.
func (c *Camera) ZoomBy(factor float64, anchor graph.Point) {
	if factor <= 0 {
		return
	}
	next := c.Zoom * factor
	if next < c.MinZoom {
		next = c.MinZoom
	}
	if next > c.MaxZoom {
		next = c.MaxZoom
	}
	if next == c.Zoom {
		return
	}
	world := c.ScreenToWorld(anchor)
	c.Zoom = next
	// Re-anchor so `world` still projects onto `anchor`.
	c.OffsetX = anchor.X - world.X*c.Zoom
	c.OffsetY = anchor.Y - world.Y*c.Zoom
}
