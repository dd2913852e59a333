package interact

import (
	"math"
	"time"

	"github.com/orneryd/bifrost/pkg/graph"
)

// State is the controller's current gesture state.
type State int

const (
	StateIdle State = iota
	StateHoverNode
	StateHoverEdge
	StatePanning
	StateAwaitingDoubleClick
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateHoverNode:
		return "hoveringNode"
	case StateHoverEdge:
		return "hoveringEdge"
	case StatePanning:
		return "panning"
	case StateAwaitingDoubleClick:
		return "awaitingDoubleClick"
	default:
		return "unknown"
	}
}

// Button identifies which pointer button an event carries.
type Button int

const (
	ButtonPrimary Button = iota
	// ButtonSecondary is the path-add gesture (right click / long press).
	ButtonSecondary
)

// Config holds the gesture tuning constants.
type Config struct {
	// ClickSlopPx is the max cumulative movement for a press to count as a
	// click rather than a drag.
	ClickSlopPx float64 `yaml:"click_slop_px"`
	// DoubleClickWindow is how long a first click waits for a second
	// before resolving to select.
	DoubleClickWindow time.Duration `yaml:"double_click_window"`
	// EdgeHitTolerancePx is the screen-space band around an edge segment
	// that counts as hitting it.
	EdgeHitTolerancePx float64 `yaml:"edge_hit_tolerance_px"`
	// WheelZoomStep is the zoom factor applied per wheel notch.
	WheelZoomStep float64 `yaml:"wheel_zoom_step"`
	// MinZoom / MaxZoom clamp the camera zoom scalar.
	MinZoom float64 `yaml:"min_zoom"`
	MaxZoom float64 `yaml:"max_zoom"`
}

// DefaultConfig returns the stock gesture tuning.
func DefaultConfig() Config {
	return Config{
		ClickSlopPx:        5,
		DoubleClickWindow:  280 * time.Millisecond,
		EdgeHitTolerancePx: 6,
		WheelZoomStep:      1.12,
		MinZoom:            0.25,
		MaxZoom:            4,
	}
}

// Events are the discrete intents the controller dispatches. Nil callbacks
// are simply skipped.
type Events struct {
	OnSelect     func(graph.EntityID)
	OnExpand     func(graph.EntityID)
	OnAddToPath  func(graph.EntityID)
	OnEdgeSelect func(graph.EdgeID)
	OnPan        func(dx, dy float64)
	OnZoom       func(scale float64)
	OnHover      func(Hit)
}

// press tracks an in-progress primary-button gesture.
type press struct {
	target   Hit
	start    graph.Point
	last     graph.Point
	traveled float64
	panning  bool
}

// pendingClick is the per-node awaiting-double-click record. At most one
// exists at a time; a qualifying second click on the same node before the
// deadline becomes expand, the deadline passing becomes select.
type pendingClick struct {
	node     graph.EntityID
	deadline time.Time
}

// Controller is the pointer-gesture state machine.
//
// It consumes raw pointer/wheel events in screen coordinates and dispatches
// exactly one intent per gesture: a double click expands without also
// selecting, a drag pans without clicking, a below-slop pan release is a
// click on empty space (a no-op). All methods must be called from the
// session's single control goroutine; Tick must be called once per frame so
// the double-click window can expire.
type Controller struct {
	cfg    Config
	scene  Scene
	camera *Camera
	clock  Clock
	events Events

	hover   Hit
	press   *press
	pending *pendingClick
}

// New creates a Controller. clock may be nil for the system clock.
func New(cfg Config, scene Scene, camera *Camera, clock Clock, events Events) *Controller {
	if clock == nil {
		clock = SystemClock{}
	}
	if camera == nil {
		camera = NewCamera(cfg.MinZoom, cfg.MaxZoom)
	}
	return &Controller{
		cfg:    cfg,
		scene:  scene,
		camera: camera,
		clock:  clock,
		events: events,
	}
}

// Camera returns the controller's camera.
func (c *Controller) Camera() *Camera { return c.camera }

// Hover returns the current transient hover target.
func (c *Controller) Hover() Hit { return c.hover }

// State reports the current gesture state.
func (c *Controller) State() State {
	switch {
	case c.press != nil && c.press.panning:
		return StatePanning
	case c.pending != nil:
		return StateAwaitingDoubleClick
	case c.hover.IsNode():
		return StateHoverNode
	case c.hover.IsEdge():
		return StateHoverEdge
	default:
		return StateIdle
	}
}

// PointerDown begins a gesture at screen position (x, y).
//
// Secondary button on a node dispatches addToPath immediately, independent
// of any pending click timer. Primary on empty canvas or an edge starts a
// (potential) pan; primary on a node starts a potential click.
func (c *Controller) PointerDown(x, y float64, button Button) {
	pos := graph.Point{X: x, Y: y}
	hit := hitTest(c.scene, c.camera, pos, c.cfg.EdgeHitTolerancePx)

	if button == ButtonSecondary {
		if hit.IsNode() {
			dispatchID(c.events.OnAddToPath, hit.NodeID)
		}
		return
	}

	c.press = &press{
		target:  hit,
		start:   pos,
		last:    pos,
		panning: !hit.IsNode(),
	}
}

// PointerMove handles motion. While a primary press is held it accumulates
// travel and pans (when the press began off-node); with no button held it
// updates the hover affordance.
func (c *Controller) PointerMove(x, y float64) {
	pos := graph.Point{X: x, Y: y}

	if c.press == nil {
		prev := c.hover
		c.hover = hitTest(c.scene, c.camera, pos, c.cfg.EdgeHitTolerancePx)
		if c.hover != prev {
			dispatchHover(c.events.OnHover, c.hover)
		}
		return
	}

	dx := pos.X - c.press.last.X
	dy := pos.Y - c.press.last.Y
	c.press.traveled += math.Hypot(dx, dy)
	c.press.last = pos

	if c.press.panning {
		c.camera.Pan(dx, dy)
		if c.events.OnPan != nil {
			c.events.OnPan(dx, dy)
		}
	}
	// Movement past the slop on a node press disqualifies the click; the
	// gesture is reserved for future drag semantics and must not select.
}

// PointerUp ends the current gesture.
func (c *Controller) PointerUp(x, y float64) {
	pr := c.press
	c.press = nil
	if pr == nil {
		return
	}

	isClick := pr.traveled < c.cfg.ClickSlopPx
	if !isClick {
		// A real pan (or an aborted node drag): no click intent.
		return
	}

	switch {
	case pr.target.IsNode():
		c.nodeClicked(pr.target.NodeID)
	case pr.target.IsEdge():
		dispatchEdge(c.events.OnEdgeSelect, pr.target.EdgeID)
	default:
		// Below-slop press on empty canvas: reinterpreted as a click on
		// empty space, which is a no-op.
	}
}

// nodeClicked feeds one qualifying click into the per-node double-click
// machine.
func (c *Controller) nodeClicked(id graph.EntityID) {
	now := c.clock.Now()

	if c.pending != nil && c.pending.node == id && now.Before(c.pending.deadline) {
		// Second qualifying click in the window: expand, and only expand.
		c.pending = nil
		dispatchID(c.events.OnExpand, id)
		return
	}

	if c.pending != nil {
		// A click on a different node resolves the old pending click as
		// the single select it was.
		dispatchID(c.events.OnSelect, c.pending.node)
	}
	c.pending = &pendingClick{node: id, deadline: now.Add(c.cfg.DoubleClickWindow)}
}

// Wheel applies zoom immediately (no debounce), anchored at the pointer.
// steps is positive for zoom-in notches, negative for zoom-out.
func (c *Controller) Wheel(steps float64, x, y float64) {
	if steps == 0 {
		return
	}
	factor := math.Pow(c.cfg.WheelZoomStep, steps)
	c.camera.ZoomBy(factor, graph.Point{X: x, Y: y})
	if c.events.OnZoom != nil {
		c.events.OnZoom(c.camera.Zoom)
	}
}

// PointerLeave clears transient hover state when the pointer exits the
// canvas entirely.
func (c *Controller) PointerLeave() {
	if !c.hover.IsEmpty() {
		c.hover = Hit{}
		dispatchHover(c.events.OnHover, c.hover)
	}
	c.press = nil
}

// Tick expires the double-click window. Call once per frame; a pending
// click whose deadline has passed resolves to exactly one select.
func (c *Controller) Tick() {
	if c.pending == nil {
		return
	}
	if !c.clock.Now().Before(c.pending.deadline) {
		id := c.pending.node
		c.pending = nil
		dispatchID(c.events.OnSelect, id)
	}
}

func dispatchID(fn func(graph.EntityID), id graph.EntityID) {
	if fn != nil {
		fn(id)
	}
}

func dispatchEdge(fn func(graph.EdgeID), id graph.EdgeID) {
	if fn != nil {
		fn(id)
	}
}

func dispatchHover(fn func(Hit), h Hit) {
	if fn != nil {
		fn(h)
	}
}
