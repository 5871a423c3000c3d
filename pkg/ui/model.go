package ui

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/log"
	"gonum.org/v1/gonum/spatial/r2"

	"github.com/vanderheijden86/atlasview/internal/datasource"
	"github.com/vanderheijden86/atlasview/pkg/camera"
	"github.com/vanderheijden86/atlasview/pkg/config"
	"github.com/vanderheijden86/atlasview/pkg/debug"
	"github.com/vanderheijden86/atlasview/pkg/focus"
	"github.com/vanderheijden86/atlasview/pkg/scene"
	"github.com/vanderheijden86/atlasview/pkg/thumbs"
	"github.com/vanderheijden86/atlasview/pkg/watcher"
)

// Terminal cells are not square. The camera works in a virtual pixel space;
// these factors map cells onto it so panning feels uniform in both axes.
const (
	cellPxW = 10.0
	cellPxH = 20.0

	frameInterval = 16 * time.Millisecond

	keyPanStep  = 80.0  // virtual px per keypress
	keyZoomStep = 120.0 // wheel-delta equivalent per keypress

	recenterPadding = 200.0
)

// Messages.
type (
	frameMsg         time.Time
	snapshotMsg      struct{ snap *scene.Snapshot }
	loadErrMsg       struct{ err error }
	sourceChangedMsg struct{}
	watchErrMsg      struct{ err error }
	triggerMsg       struct{ apply func(*Model) }
)

// Model is the interactive viewport host. One frame loop drives camera
// motion; all scene state lives in the assembler.
type Model struct {
	cfg     config.Config
	logger  *log.Logger
	dataDir string

	cam      *camera.Controller
	asm      *scene.Assembler
	foc      *focus.Coordinator
	triggers *scene.Triggers
	thumbs   *thumbs.Loader
	watch    *watcher.Watcher

	triggerCh chan triggerMsg

	width   int // terminal cells
	height  int
	canvasH int

	spin        spinner.Model
	filterInput textinput.Model
	filtering   bool

	loading   bool
	lastErr   error
	statusMsg string

	selected   int   // index into current item ids, -1 when nothing selected
	selectedID int64 // id of the selected item, valid when selected >= 0
	dragging   bool
}

// NewModel builds the viewport model for a data directory. The watcher is
// optional; pass nil to disable live reload.
func NewModel(dataDir string, cfg config.Config, logger *log.Logger, w *watcher.Watcher) *Model {
	cam := camera.New(80*cellPxW, 24*cellPxH, camera.Options{
		MinScale:         cfg.Camera.MinScale,
		MaxScale:         cfg.Camera.MaxScale,
		WheelSensitivity: cfg.Camera.WheelSensitivity,
		Friction:         cfg.Camera.Friction,
		CoastMinLaunch:   cfg.Camera.CoastMinVelocity,
		CullMargin:       cfg.Scene.CullMargin,
	})

	asm := scene.NewAssembler(scene.Options{
		LODThreshold:           cfg.Scene.LODThreshold,
		SpiralRadius:           cfg.Layout.SpiralRadius,
		ItemRadius:             cfg.Layout.ItemRadius,
		ClusterRadius:          cfg.Layout.ClusterRadius,
		Relax:                  cfg.Layout.Relax(),
		NoiseRadius:            cfg.Layout.NoiseRingRadius,
		RelaxRespectsExpansion: cfg.Layout.RelaxRespectsExpansion,
	})

	foc := focus.NewCoordinator(cam, asm, logger)
	foc.SetDuration(cfg.Camera.AnimationDuration())

	m := &Model{
		cfg:        cfg,
		logger:     logger,
		dataDir:    dataDir,
		cam:        cam,
		asm:        asm,
		foc:        foc,
		triggers:   &scene.Triggers{},
		thumbs:     thumbs.NewLoader(cfg.Thumbs.Concurrency, cfg.Thumbs.MaxEdge),
		watch:      w,
		triggerCh:  make(chan triggerMsg, 4),
		loading:    true,
		selected:   -1,
		selectedID: -1,
	}

	m.spin = spinner.New(spinner.WithSpinner(spinner.Dot))
	m.filterInput = textinput.New()
	m.filterInput.Placeholder = "filter items"
	m.filterInput.CharLimit = 64

	// External callers nudge the viewport through the trigger registry;
	// callbacks cross into the update loop via the trigger channel.
	m.triggers.RegisterRecenter(func() {
		m.triggerCh <- triggerMsg{apply: func(m *Model) {
			m.foc.Recenter(recenterPadding, time.Now())
		}}
	})
	m.triggers.RegisterFocusOnImage(func(itemID int64) {
		m.triggerCh <- triggerMsg{apply: func(m *Model) {
			m.foc.FocusOnItem(itemID, nil, time.Now())
		}}
	})
	m.triggers.RegisterItemActivated(func(itemID int64) {
		m.triggerCh <- triggerMsg{apply: func(m *Model) {
			m.statusMsg = fmt.Sprintf("item %d activated", itemID)
		}}
	})

	return m
}

// Triggers exposes the external trigger registry.
func (m *Model) Triggers() *scene.Triggers { return m.triggers }

func (m *Model) Init() tea.Cmd {
	cmds := []tea.Cmd{
		m.loadSnapshotCmd(),
		m.spin.Tick,
		frameCmd(),
		m.pumpTriggersCmd(),
	}
	if m.watch != nil {
		cmds = append(cmds, watchChangesCmd(m.watch))
	}
	return tea.Batch(cmds...)
}

func frameCmd() tea.Cmd {
	return tea.Tick(frameInterval, func(t time.Time) tea.Msg {
		return frameMsg(t)
	})
}

func (m *Model) loadSnapshotCmd() tea.Cmd {
	dir := m.dataDir
	return func() tea.Msg {
		snap, err := datasource.LoadSnapshot(dir)
		if err != nil {
			return loadErrMsg{err: err}
		}
		return snapshotMsg{snap: snap}
	}
}

func (m *Model) pumpTriggersCmd() tea.Cmd {
	return func() tea.Msg {
		return <-m.triggerCh
	}
}

func watchChangesCmd(w *watcher.Watcher) tea.Cmd {
	return func() tea.Msg {
		<-w.Changed()
		return sourceChangedMsg{}
	}
}

func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.canvasH = max(msg.Height-2, 1)
		m.cam.Resize(float64(m.width)*cellPxW, float64(m.canvasH)*cellPxH)
		return m, nil

	case frameMsg:
		m.cam.Advance(time.Time(msg))
		return m, frameCmd()

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spin, cmd = m.spin.Update(msg)
		return m, cmd

	case snapshotMsg:
		m.loading = false
		m.lastErr = nil
		m.asm.SetSnapshot(msg.snap)
		m.selected = -1
		m.selectedID = -1
		m.thumbs.Reset()
		m.requestVisibleThumbs()
		m.foc.Recenter(recenterPadding, time.Now())
		m.statusMsg = fmt.Sprintf("loaded %d clusters, %d items",
			len(msg.snap.Clusters), len(msg.snap.Items))
		debug.Log("ui: snapshot %s applied", msg.snap.ID)
		return m, nil

	case loadErrMsg:
		m.loading = false
		m.lastErr = msg.err
		m.logger.Error("snapshot load failed", "err", msg.err)
		return m, nil

	case sourceChangedMsg:
		m.loading = true
		m.statusMsg = "source changed, reloading"
		cmds := []tea.Cmd{m.loadSnapshotCmd()}
		if m.watch != nil {
			cmds = append(cmds, watchChangesCmd(m.watch))
		}
		return m, tea.Batch(cmds...)

	case watchErrMsg:
		m.logger.Warn("watch error", "err", msg.err)
		return m, nil

	case triggerMsg:
		msg.apply(m)
		return m, m.pumpTriggersCmd()

	case tea.KeyMsg:
		return m.updateKeys(msg)

	case tea.MouseMsg:
		return m.updateMouse(msg)
	}

	return m, nil
}

func (m *Model) updateKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.filtering {
		switch msg.String() {
		case "enter":
			m.filtering = false
			m.applyFilter(m.filterInput.Value())
			return m, nil
		case "esc":
			m.filtering = false
			m.filterInput.SetValue("")
			m.asm.SetFilter(nil)
			m.statusMsg = "filter cleared"
			return m, nil
		}
		var cmd tea.Cmd
		m.filterInput, cmd = m.filterInput.Update(msg)
		return m, cmd
	}

	now := time.Now()
	center := r2.Vec{X: float64(m.width) * cellPxW / 2, Y: float64(m.canvasH) * cellPxH / 2}

	switch msg.String() {
	case "q", "ctrl+c":
		if m.watch != nil {
			m.watch.Stop()
		}
		m.thumbs.CancelAll()
		return m, tea.Quit

	case "left", "h":
		m.cam.PanBy(keyPanStep, 0)
	case "right", "l":
		m.cam.PanBy(-keyPanStep, 0)
	case "up", "k":
		m.cam.PanBy(0, keyPanStep)
	case "down", "j":
		m.cam.PanBy(0, -keyPanStep)

	case "+", "=":
		m.cam.ZoomAt(center, keyZoomStep)
	case "-", "_":
		m.cam.ZoomAt(center, -keyZoomStep)

	case "r":
		m.foc.Recenter(recenterPadding, now)
	case "f":
		if m.selectedID >= 0 {
			m.foc.FocusOnItem(m.selectedID, nil, now)
		}
	case "n":
		m.cycleSelection(1)
	case "p":
		m.cycleSelection(-1)
	case "enter":
		if m.selectedID >= 0 {
			m.triggers.ActivateItem(m.selectedID)
		}
	case "y":
		if m.selectedID >= 0 {
			if err := clipboard.WriteAll(strconv.FormatInt(m.selectedID, 10)); err != nil {
				m.statusMsg = "clipboard unavailable"
			} else {
				m.statusMsg = fmt.Sprintf("copied %d", m.selectedID)
			}
		}

	case "e":
		m.asm.SetExplosion(!m.asm.Explosion())
	case "x":
		if id, ok := m.clusterNear(m.cam.Pose().ScreenToWorld(center)); ok {
			m.asm.Expand(id)
			m.requestVisibleThumbs()
		}
	case "c":
		if id, open := m.asm.Expansion().Expanded(); open {
			m.asm.Collapse(id)
		}

	case "L":
		m.cam.SetLocked(!m.cam.Locked())

	case "/":
		m.filtering = true
		m.filterInput.Focus()
		return m, textinput.Blink
	}

	return m, nil
}

func (m *Model) updateMouse(msg tea.MouseMsg) (tea.Model, tea.Cmd) {
	now := time.Now()
	pt := r2.Vec{X: float64(msg.X) * cellPxW, Y: float64(msg.Y) * cellPxH}

	switch msg.Button {
	case tea.MouseButtonWheelUp:
		m.cam.ZoomAt(pt, keyZoomStep)
		return m, nil
	case tea.MouseButtonWheelDown:
		m.cam.ZoomAt(pt, -keyZoomStep)
		return m, nil
	}

	switch msg.Action {
	case tea.MouseActionPress:
		if msg.Button == tea.MouseButtonLeft {
			m.cam.BeginDrag(pt, now)
			m.dragging = true
		}
	case tea.MouseActionMotion:
		if m.dragging {
			m.cam.ContinueDrag(pt, now)
		} else {
			m.hoverAt(pt)
		}
	case tea.MouseActionRelease:
		if m.dragging {
			m.cam.EndDrag()
			m.dragging = false
		}
	}

	return m, nil
}

// hoverAt expands the cluster under the pointer, raises a hovered item to
// the top of the z-order, and collapses the expansion when the pointer
// leaves every node.
func (m *Model) hoverAt(screen r2.Vec) {
	world := m.cam.Pose().ScreenToWorld(screen)
	if id, ok := m.clusterNear(world); ok {
		if cur, open := m.asm.Expansion().Expanded(); !open || cur != id {
			m.asm.Expand(id)
			m.requestVisibleThumbs()
		}
		return
	}
	if id, ok := m.itemNear(world); ok {
		m.asm.Expansion().Touch(scene.KindItem, id)
		return
	}
	if id, open := m.asm.Expansion().Expanded(); open {
		m.asm.Collapse(id)
	}
}

// itemNear finds a drawn item whose tile covers the world point: spiral
// members of the expanded cluster and noise items. Collapsed members sit
// under their marker and are not hoverable.
func (m *Model) itemNear(world r2.Vec) (int64, bool) {
	radius := m.cfg.Layout.ItemRadius
	snap := m.asm.Snapshot()
	hit := func(idx int) bool {
		pos, ok := m.asm.Position(snap.Items[idx].ID)
		if !ok {
			return false
		}
		dx, dy := world.X-pos.X, world.Y-pos.Y
		return dx*dx+dy*dy <= radius*radius
	}
	if cid, open := m.asm.Expansion().Expanded(); open {
		for _, idx := range snap.MemberIndexes(cid) {
			if hit(idx) {
				return snap.Items[idx].ID, true
			}
		}
	}
	for _, idx := range snap.NoiseIndexes() {
		if hit(idx) {
			return snap.Items[idx].ID, true
		}
	}
	return 0, false
}

// clusterNear finds a cluster whose marker covers the world point.
func (m *Model) clusterNear(world r2.Vec) (int64, bool) {
	radius := m.cfg.Layout.ClusterRadius
	for _, c := range m.asm.Snapshot().Clusters {
		pos, ok := m.asm.ClusterPosition(c.ID)
		if !ok {
			pos = r2.Vec{X: c.X, Y: c.Y}
		}
		dx, dy := world.X-pos.X, world.Y-pos.Y
		if dx*dx+dy*dy <= radius*radius {
			return c.ID, true
		}
	}
	return 0, false
}

// cycleSelection steps the keyboard selection through item ids in dataset
// order.
func (m *Model) cycleSelection(step int) {
	items := m.asm.Snapshot().Items
	if len(items) == 0 {
		return
	}
	m.selected = (m.selected + step + len(items)) % len(items)
	m.selectedID = items[m.selected].ID
	m.statusMsg = fmt.Sprintf("selected item %d", m.selectedID)
}

// applyFilter resolves the query to matching item ids: a decimal query
// matches the item id, anything else substring-matches the thumbnail path.
func (m *Model) applyFilter(query string) {
	query = strings.TrimSpace(query)
	if query == "" {
		m.asm.SetFilter(nil)
		m.statusMsg = "filter cleared"
		return
	}

	var ids []int64
	if n, err := strconv.ParseInt(query, 10, 64); err == nil {
		for _, it := range m.asm.Snapshot().Items {
			if it.ID == n {
				ids = append(ids, it.ID)
			}
		}
	} else {
		q := strings.ToLower(query)
		for _, it := range m.asm.Snapshot().Items {
			if strings.Contains(strings.ToLower(it.Thumbnail), q) {
				ids = append(ids, it.ID)
			}
		}
	}

	// Non-nil empty set: a query with no hits dims everything.
	if ids == nil {
		ids = []int64{}
	}
	m.asm.SetFilter(ids)
	m.statusMsg = fmt.Sprintf("filter %q: %d hits", query, len(ids))
}

// requestVisibleThumbs queues thumbnail decodes for items the current frame
// would draw. Decodes finish in the background; the TUI itself never blocks
// on them, and the export path picks them out of the cache.
func (m *Model) requestVisibleThumbs() {
	for _, cmd := range m.asm.Build(m.cam) {
		if cmd.Kind != scene.KindItem || cmd.Thumbnail == "" || cmd.LowDetail {
			continue
		}
		m.thumbs.Request(context.Background(), cmd.ID, cmd.Thumbnail, nil)
	}
}
