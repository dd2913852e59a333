package main

import (
	"fmt"
	"time"

	"github.com/gdamore/tcell/v2"

	"github.com/orneryd/bifrost/pkg/config"
	"github.com/orneryd/bifrost/pkg/explorer"
	"github.com/orneryd/bifrost/pkg/graph"
	"github.com/orneryd/bifrost/pkg/interact"
	"github.com/orneryd/bifrost/pkg/source"
)

// frameInterval is the render cadence (~30fps). One frame performs at most
// one simulation tick followed by one paint.
const frameInterval = 33 * time.Millisecond

// cellAspect compensates for terminal cells being roughly twice as tall as
// wide: world Y is squashed by this factor when projecting to rows.
const cellAspect = 0.5

var categoryStyles = map[graph.Category]tcell.Style{
	graph.CategoryGene:    tcell.StyleDefault.Foreground(tcell.ColorGreen),
	graph.CategoryDisease: tcell.StyleDefault.Foreground(tcell.ColorRed),
	graph.CategoryDrug:    tcell.StyleDefault.Foreground(tcell.ColorAqua),
	graph.CategoryPathway: tcell.StyleDefault.Foreground(tcell.ColorYellow),
	graph.CategoryProtein: tcell.StyleDefault.Foreground(tcell.ColorFuchsia),
	graph.CategoryUnknown: tcell.StyleDefault.Foreground(tcell.ColorGray),
}

// tui is the terminal viewer: it paints the session's per-frame snapshot
// and translates tcell mouse/key events into controller gestures.
type tui struct {
	screen  tcell.Screen
	session *explorer.Session

	// prevButtons tracks the previous mouse button mask so press/release
	// transitions can be synthesized from tcell's state reports.
	prevButtons tcell.ButtonMask

	status string
	quit   bool
}

func runTUI(src source.Source, cfg *config.Config, initialQuery string) error {
	screen, err := tcell.NewScreen()
	if err != nil {
		return fmt.Errorf("creating screen: %w", err)
	}
	if err := screen.Init(); err != nil {
		return fmt.Errorf("initializing screen: %w", err)
	}
	defer screen.Fini()
	screen.EnableMouse()
	screen.EnableFocus()

	t := &tui{screen: screen}
	t.session = explorer.New(src, explorer.Options{
		MaxReveal:        cfg.Session.MaxReveal,
		OverflowPageSize: cfg.Session.OverflowPageSize,
		Layout:           cfg.Layout,
		RankWeights:      cfg.Rank,
		Gestures:         cfg.Gestures,
		Events: explorer.Events{
			OnSelect: func(id graph.EntityID) {
				t.status = fmt.Sprintf("selected %s", id)
			},
			OnExpand: func(id graph.EntityID) {
				t.status = fmt.Sprintf("expanding %s…", id)
			},
			OnAddToPath: func(id graph.EntityID) {
				t.status = fmt.Sprintf("path + %s", id)
			},
			OnEdgeSelect: func(id graph.EdgeID) {
				t.status = fmt.Sprintf("edge %s", id)
			},
			OnLoadMoreAvailable: func(id graph.EntityID, remaining int) {
				t.status = fmt.Sprintf("%s: %d more (press m)", id, remaining)
			},
			OnQueryError: func(err error) {
				t.status = fmt.Sprintf("error: %v", err)
			},
		},
	})

	// Center the camera on the terminal.
	w, h := screen.Size()
	t.session.Camera().Pan(float64(w)/2, float64(h)/2)

	t.session.StartQuery(initialQuery)
	t.status = fmt.Sprintf("querying %q…", initialQuery)

	events := make(chan tcell.Event, 32)
	go func() {
		for {
			ev := screen.PollEvent()
			if ev == nil {
				close(events)
				return
			}
			events <- ev
		}
	}()

	ticker := time.NewTicker(frameInterval)
	defer ticker.Stop()

	for !t.quit {
		select {
		case ev, ok := <-events:
			if !ok {
				return nil
			}
			t.handleEvent(ev)
		case <-ticker.C:
			t.paint(t.session.Frame())
		}
	}
	return nil
}

func (t *tui) handleEvent(ev tcell.Event) {
	switch ev := ev.(type) {
	case *tcell.EventKey:
		t.handleKey(ev)
	case *tcell.EventMouse:
		t.handleMouse(ev)
	case *tcell.EventResize:
		t.screen.Sync()
	case *tcell.EventFocus:
		// Losing terminal focus takes the pointer off the canvas with it.
		if !ev.Focused {
			t.session.Controller().PointerLeave()
		}
	}
}

func (t *tui) handleKey(ev *tcell.EventKey) {
	switch {
	case ev.Key() == tcell.KeyEscape || ev.Rune() == 'q':
		t.quit = true
	case ev.Rune() == 'r':
		t.session.Reset()
		t.status = "reset"
	case ev.Rune() == 'm':
		t.loadMoreSelected()
	}
}

// loadMoreSelected drains one overflow page for the node the pointer last
// selected (falling back to the query center).
func (t *tui) loadMoreSelected() {
	target := t.session.SelectedNode()
	if target == "" {
		target = t.session.CenterID()
	}
	if target == "" {
		return
	}
	revealed := t.session.DrainOverflow(target, 0)
	t.status = fmt.Sprintf("%s: +%d revealed, %d left", target, revealed, t.session.OverflowCount(target))
}

// handleMouse converts tcell's button-state reports into the controller's
// down/move/up/wheel vocabulary. World Y is unsquashed before hit-testing
// so clicking a squashed row still lands on the right node.
func (t *tui) handleMouse(ev *tcell.EventMouse) {
	x, y := ev.Position()
	sx, sy := float64(x), float64(y)/cellAspect
	ctrl := t.session.Controller()

	buttons := ev.Buttons()
	pressed := buttons &^ t.prevButtons
	released := t.prevButtons &^ buttons
	t.prevButtons = buttons

	switch {
	case pressed&tcell.Button1 != 0:
		ctrl.PointerDown(sx, sy, interact.ButtonPrimary)
	case pressed&tcell.Button2 != 0:
		ctrl.PointerDown(sx, sy, interact.ButtonSecondary)
	case released&tcell.Button1 != 0:
		ctrl.PointerUp(sx, sy)
	case buttons&tcell.WheelUp != 0:
		ctrl.Wheel(1, sx, sy)
	case buttons&tcell.WheelDown != 0:
		ctrl.Wheel(-1, sx, sy)
	default:
		ctrl.PointerMove(sx, sy)
	}
}

func (t *tui) paint(snap *explorer.Snapshot) {
	t.screen.Clear()
	w, h := t.screen.Size()

	for _, e := range snap.Edges {
		style := tcell.StyleDefault.Foreground(tcell.ColorDarkGray)
		ch := '·'
		if e.Highlighted {
			style = tcell.StyleDefault.Foreground(tcell.ColorOrange)
			ch = '■'
		} else if e.Selected || e.Hovered {
			style = tcell.StyleDefault.Foreground(tcell.ColorWhite)
		}
		from := snap.Camera.WorldToScreen(e.From)
		to := snap.Camera.WorldToScreen(e.To)
		t.drawLine(int(from.X), int(from.Y*cellAspect), int(to.X), int(to.Y*cellAspect), ch, style, w, h)
	}

	for _, n := range snap.Nodes {
		p := snap.Camera.WorldToScreen(n.Pos)
		cx, cy := int(p.X), int(p.Y*cellAspect)
		if cx < 0 || cy < 0 || cx >= w || cy >= h {
			continue
		}
		style := categoryStyles[n.Category]
		if n.Selected {
			style = style.Reverse(true)
		}
		if n.Hovered {
			style = style.Bold(true)
		}
		if n.OnTrail {
			style = style.Underline(true)
		}

		marker := '●'
		if n.Progress < 1 {
			marker = '○' // still fading in
		}
		t.screen.SetContent(cx, cy, marker, nil, style)

		label := n.DisplayName
		if n.OverflowRemaining > 0 {
			label = fmt.Sprintf("%s (+%d)", label, n.OverflowRemaining)
		}
		for i, r := range label {
			if cx+2+i >= w {
				break
			}
			t.screen.SetContent(cx+2+i, cy, r, nil, style)
		}
	}

	bar := fmt.Sprintf(" %s | zoom %.2f | %d nodes %d edges | %s",
		statsLine(t.session), snap.Camera.Zoom,
		len(snap.Nodes), len(snap.Edges), t.status)
	barStyle := tcell.StyleDefault.Reverse(true)
	for i := 0; i < w; i++ {
		r := ' '
		if i < len(bar) {
			r = rune(bar[i])
		}
		t.screen.SetContent(i, h-1, r, nil, barStyle)
	}

	t.screen.Show()
}

func statsLine(s *explorer.Session) string {
	st := s.Stats()
	if st.Alpha > 0.01 {
		return fmt.Sprintf("settling α=%.2f", st.Alpha)
	}
	return "settled"
}

// drawLine paints a straight rune line, clipped to the screen.
func (t *tui) drawLine(x0, y0, x1, y1 int, ch rune, style tcell.Style, w, h int) {
	dx := abs(x1 - x0)
	dy := -abs(y1 - y0)
	sx, sy := 1, 1
	if x0 > x1 {
		sx = -1
	}
	if y0 > y1 {
		sy = -1
	}
	err := dx + dy

	for {
		if x0 >= 0 && y0 >= 0 && x0 < w && y0 < h {
			t.screen.SetContent(x0, y0, ch, nil, style)
		}
		if x0 == x1 && y0 == y1 {
			return
		}
		e2 := 2 * err
		if e2 >= dy {
			err += dy
			x0 += sx
		}
		if e2 <= dx {
			err += dx
			y0 += sy
		}
	}
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
