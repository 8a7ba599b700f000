package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	tui "github.com/charmbracelet/bubbletea"
	styles "github.com/charmbracelet/lipgloss"
	plot "github.com/chriskim06/drawille-go"
)

var (
	accentColor  = styles.AdaptiveColor{Light: "0", Dark: "9"}
	mutedColor   = styles.AdaptiveColor{Light: "#555", Dark: "#555"}
	warnColor    = styles.AdaptiveColor{Light: "1", Dark: "11"}
	errColor     = styles.AdaptiveColor{Light: "1", Dark: "9"}
	okColor      = styles.AdaptiveColor{Light: "2", Dark: "10"}
	accentFg     = styles.NewStyle().Foreground(accentColor)
	mutedFg      = styles.NewStyle().Foreground(mutedColor)
	warnFg       = styles.NewStyle().Foreground(warnColor)
	errFg        = styles.NewStyle().Foreground(errColor)
	okFg         = styles.NewStyle().Foreground(okColor)
	viewBorderFg = styles.NewStyle().
			BorderStyle(styles.NormalBorder()).
			Foreground(mutedColor).
			BorderForeground(mutedColor)
)

type renderResultMsg RenderResult

// waitForRender blocks a bubbletea command goroutine on the scheduler's
// result channel; completions surface in Update as renderResultMsg.
func waitForRender(results <-chan RenderResult) tui.Cmd {
	return func() tui.Msg {
		return renderResultMsg(<-results)
	}
}

type model struct {
	width, height  int
	leftPaneWidth  int
	rightPaneWidth int
	imageCols      int
	imageRows      int

	viewport  *Viewport
	history   *HistoryStack
	scheduler *RenderScheduler
	metrics   *renderMetrics

	frame    *PixelBuffer
	frameGen uint64
	frameStr string

	computing bool
	status    string
	statusBad bool

	showPresets bool
	presets     list.Model
	help        help.Model
	plot        *plot.Canvas
}

type presetItem struct {
	preset ColorPreset
}

func (i presetItem) Title() string       { return i.preset.Name }
func (i presetItem) Description() string { return i.preset.Desc }
func (i presetItem) FilterValue() string { return i.preset.Name }

func newModel(viewport *Viewport, history *HistoryStack, scheduler *RenderScheduler, metrics *renderMetrics) *model {
	const (
		defaultWidth  = 80
		defaultHeight = 24
	)

	d := list.NewDefaultDelegate()
	d.Styles.SelectedTitle = styles.NewStyle().
		Border(styles.NormalBorder(), false, false, false, true).
		BorderForeground(mutedColor).
		Foreground(accentColor).
		Bold(false).
		Padding(0, 0, 0, 1)
	d.Styles.SelectedDesc = d.Styles.SelectedTitle.
		Foreground(accentColor)
	d.ShowDescription = true

	items := make([]list.Item, len(colorPresets))
	for i, p := range colorPresets {
		items[i] = presetItem{preset: p}
	}
	l := list.New(items, d, defaultWidth/3, defaultHeight-4)
	l.SetFilteringEnabled(false)
	l.SetShowHelp(false)
	l.SetShowTitle(false)
	l.SetShowStatusBar(false)

	p := plot.NewCanvas(defaultWidth/3, 5)
	p.ShowAxis = false
	p.NumDataPoints = len(metrics.snapshot().series)

	m := &model{
		viewport:  viewport,
		history:   history,
		scheduler: scheduler,
		metrics:   metrics,
		presets:   l,
		help:      help.New(),
		plot:      &p,
		status:    "Waiting for terminal size",
	}
	m.leftPaneWidth, m.rightPaneWidth = computePaneWidths(defaultWidth, config.ViewSplit)
	return m
}

func (m *model) Init() tui.Cmd {
	return waitForRender(m.scheduler.Results())
}

func (m *model) Update(msg tui.Msg) (tui.Model, tui.Cmd) {
	switch msg := msg.(type) {
	case renderResultMsg:
		m.applyResult(RenderResult(msg))
		return m, waitForRender(m.scheduler.Results())

	case tui.WindowSizeMsg:
		m.layout(msg.Width, msg.Height)
		return m, nil

	case tui.MouseMsg:
		m.handleMouse(msg)
		return m, nil

	case tui.KeyMsg:
		return m.handleKey(msg)
	}
	return m, nil
}

// applyResult publishes a completed render to the display state. Results for
// generations older than the displayed frame are dropped; the scheduler only
// produces ascending generations, so this is belt and braces.
func (m *model) applyResult(res RenderResult) {
	m.metrics.observeRender(res)
	if res.Err != nil {
		m.computing = false
		m.setStatus(fmt.Sprintf("Error: %v", res.Err), true)
		return
	}
	if res.Generation < m.frameGen {
		return
	}
	m.frame = res.Buffer
	m.frameGen = res.Generation
	m.frameStr = halfBlocks(res.Buffer, m.imageCols, m.imageRows)
	m.computing = false
	m.setStatus(fmt.Sprintf("Ready in %s", res.Elapsed.Round(time.Millisecond)), false)
	m.refreshPlot()
}

func (m *model) setStatus(s string, bad bool) {
	m.status = s
	m.statusBad = bad
}

func (m *model) layout(width, height int) {
	m.width, m.height = width, height
	m.leftPaneWidth, m.rightPaneWidth = computePaneWidths(width, config.ViewSplit)

	statusLines := 1
	helpLines := 1
	available := max(1, m.height-statusLines-helpLines)

	leftW := max(1, m.leftPaneWidth)
	rightW := max(1, m.rightPaneWidth)

	m.presets.SetSize(leftW, max(1, available-2))
	m.resizePlot(max(1, leftW-2), 5)

	// The fractal pane is bordered, which costs one cell on each side. A
	// terminal cell holds two stacked pixels.
	m.imageCols = max(1, rightW-2)
	m.imageRows = max(1, available-2)

	pxW, pxH := m.imageCols, m.imageRows*2
	if pxW < 16 || pxH < 16 {
		m.setStatus("Terminal too small", true)
		return
	}
	if err := m.viewport.Resize(pxW, pxH); err != nil {
		m.setStatus(fmt.Sprintf("Resize rejected: %v", err), true)
		return
	}
	m.requestRender()
}

func (m *model) resizePlot(w, h int) {
	p := plot.NewCanvas(w, h)
	p.ShowAxis = m.plot.ShowAxis
	p.NumDataPoints = m.plot.NumDataPoints
	m.plot = &p
}

func (m *model) refreshPlot() {
	snap := m.metrics.snapshot()
	if len(snap.series) == 0 {
		return
	}
	m.plot.NumDataPoints = len(snap.series)
	m.plot.Fill([][]float64{snap.series})
}

// requestRender hands the current viewport snapshot to the scheduler. Always
// non-blocking; bursts collapse inside the scheduler.
func (m *model) requestRender() {
	m.scheduler.Request(m.viewport.Snapshot())
	m.computing = true
	m.setStatus("Computing...", false)
}

// imageCellOrigin is the top-left terminal cell of the fractal pixels: the
// left pane plus the right pane's border.
func (m *model) imageCellOrigin() (int, int) {
	return m.leftPaneWidth + 1, 1
}

func (m *model) handleMouse(msg tui.MouseMsg) {
	if msg.Action != tui.MouseActionPress {
		return
	}
	ox, oy := m.imageCellOrigin()
	px := float64(msg.X-ox) + 0.5
	py := float64((msg.Y-oy)*2) + 1.0
	re, im, err := m.viewport.PixelToComplex(px, py)
	if err != nil {
		// Clicks outside the surface are ignored, as are clicks when no
		// frame exists yet.
		return
	}
	var factor float64
	switch msg.Button {
	case tui.MouseButtonLeft:
		factor = 0.25
	case tui.MouseButtonRight:
		factor = 4.0
	case tui.MouseButtonWheelUp:
		factor = 0.5
	case tui.MouseButtonWheelDown:
		factor = 2.0
	default:
		return
	}
	if err := m.viewport.ZoomAt(re, im, factor); err != nil {
		m.setStatus(fmt.Sprintf("Zoom rejected: %v", err), true)
		return
	}
	m.requestRender()
}

func (m *model) handleKey(msg tui.KeyMsg) (tui.Model, tui.Cmd) {
	if m.showPresets {
		switch {
		case key.Matches(msg, keys.Apply):
			if item, ok := m.presets.SelectedItem().(presetItem); ok {
				m.applyPreset(item.preset)
			}
			m.showPresets = false
			return m, nil
		case key.Matches(msg, keys.Presets), key.Matches(msg, keys.Quit):
			m.showPresets = false
			return m, nil
		}
		var cmd tui.Cmd
		m.presets, cmd = m.presets.Update(msg)
		return m, cmd
	}

	switch {
	case key.Matches(msg, keys.Quit):
		m.scheduler.Close()
		return m, tui.Quit
	case key.Matches(msg, keys.Up):
		m.viewport.Pan(0, -m.panStepY())
		m.requestRender()
	case key.Matches(msg, keys.Down):
		m.viewport.Pan(0, m.panStepY())
		m.requestRender()
	case key.Matches(msg, keys.Left):
		m.viewport.Pan(-m.panStepX(), 0)
		m.requestRender()
	case key.Matches(msg, keys.Right):
		m.viewport.Pan(m.panStepX(), 0)
		m.requestRender()
	case key.Matches(msg, keys.ZoomIn):
		m.zoomAtCenter(0.5)
	case key.Matches(msg, keys.ZoomOut):
		m.zoomAtCenter(2.0)
	case key.Matches(msg, keys.Home):
		if err := m.viewport.ResetHome(); err != nil {
			m.setStatus(fmt.Sprintf("Reset rejected: %v", err), true)
			return m, nil
		}
		m.requestRender()
	case key.Matches(msg, keys.Presets):
		m.showPresets = true
	case key.Matches(msg, keys.Dynamic):
		m.viewport.SetDynamicIterations(!m.viewport.DynamicIter)
		m.requestRender()
	case key.Matches(msg, keys.Oversample):
		next := m.viewport.Oversampling%3 + 1
		if err := m.viewport.SetOversampling(next); err != nil {
			m.setStatus(fmt.Sprintf("Oversampling rejected: %v", err), true)
			return m, nil
		}
		m.requestRender()
	case key.Matches(msg, keys.IterUp):
		m.adjustBaseIterations(config.IterationStep)
	case key.Matches(msg, keys.IterDown):
		m.adjustBaseIterations(-config.IterationStep)
	case key.Matches(msg, keys.Export):
		m.exportFrame()
	}
	return m, nil
}

func (m *model) panStepX() int { return max(1, m.viewport.PixelWidth/20) }
func (m *model) panStepY() int { return max(1, m.viewport.PixelHeight/20) }

func (m *model) zoomAtCenter(factor float64) {
	cx, cy := m.viewport.Bounds.Center()
	if err := m.viewport.ZoomAt(cx, cy, factor); err != nil {
		m.setStatus(fmt.Sprintf("Zoom rejected: %v", err), true)
		return
	}
	m.requestRender()
}

func (m *model) adjustBaseIterations(delta int) {
	n := m.viewport.BaseIterations + delta
	if err := m.viewport.SetBaseIterations(n); err != nil {
		m.setStatus(fmt.Sprintf("Iterations rejected: %v", err), true)
		return
	}
	m.requestRender()
}

func (m *model) applyPreset(p ColorPreset) {
	if p.Name == adaptivePresetName {
		m.viewport.SetAdaptiveColors()
	} else {
		m.viewport.ApplyPreset(p)
	}
	m.requestRender()
}

func (m *model) exportFrame() {
	if m.frame == nil {
		m.setStatus("Nothing to export yet", true)
		return
	}
	path := exportPath(config.ExportDir, time.Now())
	if err := exportPNG(m.frame, path); err != nil {
		m.setStatus(fmt.Sprintf("Export failed: %v", err), true)
		return
	}
	m.setStatus(fmt.Sprintf("Saved %s", path), false)
}

func (m *model) View() string {
	leftW := max(1, m.leftPaneWidth)

	var left string
	if m.showPresets {
		left = styles.NewStyle().Width(leftW).Render(m.presets.View())
	} else {
		left = styles.NewStyle().Width(leftW).Render(m.infoPanel(leftW))
	}

	right := viewBorderFg.Render(m.fractalPane())

	view := styles.JoinHorizontal(styles.Top, left, right)

	status := m.status
	if m.computing {
		status = warnFg.Render(status)
	} else if m.statusBad {
		status = errFg.Render(status)
	} else {
		status = okFg.Render(status)
	}
	return styles.JoinVertical(styles.Left, view, status, m.help.View(keys))
}

func (m *model) fractalPane() string {
	if m.frameStr != "" {
		return m.frameStr
	}
	var sb strings.Builder
	spaces := strings.Repeat(" ", max(1, m.imageCols))
	for r := 0; r < max(1, m.imageRows); r++ {
		sb.WriteString(spaces)
		if r < m.imageRows-1 {
			sb.WriteRune('\n')
		}
	}
	return sb.String()
}

func (m *model) infoPanel(width int) string {
	v := m.viewport
	prec := precisionAtZoom(v.ZoomLevel)

	lines := []string{
		accentFg.Render("MANDELSCOPE"),
		"",
		fmt.Sprintf("Re: [%.6f, %.6f]", v.Bounds.XMin, v.Bounds.XMax),
		fmt.Sprintf("Im: [%.6f, %.6f]", v.Bounds.YMin, v.Bounds.YMax),
		fmt.Sprintf("Zoom: %.4gx", v.ZoomLevel),
		fmt.Sprintf("Iterations: %d (base %d)", v.MaxIterations, v.BaseIterations),
		fmt.Sprintf("Oversampling: %dx", v.Oversampling),
		fmt.Sprintf("Colors: %s", m.colorModeLabel()),
		fmt.Sprintf("History: %d/%d views", m.history.Len(), m.history.capacity),
		"",
		m.precisionLine(prec, width),
	}

	if m.metrics.isEnabled() {
		snap := m.metrics.snapshot()
		lines = append(lines,
			"",
			mutedFg.Render("RENDER STATS"),
			fmt.Sprintf("frames: %d  errors: %d  timeouts: %d", snap.frames, snap.errors, snap.timeouts),
			fmt.Sprintf("last: %s  avg: %s  max: %s",
				formatMetricDuration(snap.renderStats.last),
				formatMetricDuration(snap.renderStats.avg),
				formatMetricDuration(snap.renderStats.max)),
		)
		if plotted := m.plot.String(); plotted != "" && snap.renderStats.n > 0 {
			lines = append(lines, mutedFg.Render("latency (ms)"), plotted)
		}
	}

	return strings.Join(lines, "\n")
}

func (m *model) colorModeLabel() string {
	if m.viewport.AdaptiveColors {
		return fmt.Sprintf("adaptive (stripe %d, cycle %d)",
			m.viewport.Colors.StripeDensity, m.viewport.Colors.CycleDensity)
	}
	return fmt.Sprintf("preset (stripe %d, cycle %d)",
		m.viewport.Colors.StripeDensity, m.viewport.Colors.CycleDensity)
}

// precisionLine renders the float64 budget advisory as a small bar. Past 80%
// of the mantissa's digits the view starts to pixelate, so the bar turns into
// a warning.
func (m *model) precisionLine(p PrecisionInfo, width int) string {
	barWidth := max(4, min(20, width-20))
	filled := int(p.PercentOfBudget / 100 * float64(barWidth))
	filled = min(filled, barWidth)
	bar := strings.Repeat("█", filled) + strings.Repeat("░", barWidth-filled)
	line := fmt.Sprintf("Precision %s %d/%d digits", bar, p.DecimalDigitsNeeded, float64MaxDigits)
	if p.Warning {
		return warnFg.Render(line + " ⚠ float64 limit")
	}
	return mutedFg.Render(line)
}

func formatMetricDuration(d time.Duration) string {
	if d <= 0 {
		return "0.000ms"
	}
	return fmt.Sprintf("%.3fms", float64(d)/float64(time.Millisecond))
}

func computePaneWidths(totalWidth int, splitPercent int) (left, right int) {
	if totalWidth <= 1 {
		return 1, 1
	}
	left = totalWidth * splitPercent / 100
	if left < 1 {
		left = 1
	}
	if left > totalWidth-1 {
		left = totalWidth - 1
	}
	right = totalWidth - left

	// Keep panes readable when the terminal is wide enough.
	const minPane = 18
	if totalWidth >= minPane*2 {
		if left < minPane {
			left = minPane
			right = totalWidth - left
		}
		if right < minPane {
			right = minPane
			left = totalWidth - right
		}
	}
	if left < 1 {
		left = 1
	}
	if right < 1 {
		right = 1
	}
	return left, right
}

type keyMap struct {
	Up         key.Binding
	Down       key.Binding
	Left       key.Binding
	Right      key.Binding
	ZoomIn     key.Binding
	ZoomOut    key.Binding
	Home       key.Binding
	Presets    key.Binding
	Apply      key.Binding
	Dynamic    key.Binding
	Oversample key.Binding
	IterUp     key.Binding
	IterDown   key.Binding
	Export     key.Binding
	Quit       key.Binding
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.ZoomIn, k.ZoomOut, k.Home, k.Presets, k.Export, k.Quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Up, k.Down, k.Left, k.Right},
		{k.ZoomIn, k.ZoomOut, k.Home, k.Presets},
		{k.Dynamic, k.Oversample, k.IterUp, k.IterDown},
		{k.Export, k.Quit},
	}
}

var keys = keyMap{
	Up: key.NewBinding(
		key.WithKeys("up", "k"),
		key.WithHelp("↑/k", "pan up"),
	),
	Down: key.NewBinding(
		key.WithKeys("down", "j"),
		key.WithHelp("↓/j", "pan down"),
	),
	Left: key.NewBinding(
		key.WithKeys("left"),
		key.WithHelp("←", "pan left"),
	),
	Right: key.NewBinding(
		key.WithKeys("right"),
		key.WithHelp("→", "pan right"),
	),
	ZoomIn: key.NewBinding(
		key.WithKeys("+", "="),
		key.WithHelp("+", "zoom in"),
	),
	ZoomOut: key.NewBinding(
		key.WithKeys("-", "_"),
		key.WithHelp("-", "zoom out"),
	),
	Home: key.NewBinding(
		key.WithKeys("h"),
		key.WithHelp("h", "home view"),
	),
	Presets: key.NewBinding(
		key.WithKeys("p"),
		key.WithHelp("p", "presets"),
	),
	Apply: key.NewBinding(
		key.WithKeys("enter"),
		key.WithHelp("enter", "apply preset"),
	),
	Dynamic: key.NewBinding(
		key.WithKeys("d"),
		key.WithHelp("d", "dynamic iterations"),
	),
	Oversample: key.NewBinding(
		key.WithKeys("o"),
		key.WithHelp("o", "oversampling"),
	),
	IterUp: key.NewBinding(
		key.WithKeys("]"),
		key.WithHelp("]", "more iterations"),
	),
	IterDown: key.NewBinding(
		key.WithKeys("["),
		key.WithHelp("[", "fewer iterations"),
	),
	Export: key.NewBinding(
		key.WithKeys("e"),
		key.WithHelp("e", "export png"),
	),
	Quit: key.NewBinding(
		key.WithKeys("q", "ctrl+c", "esc"),
		key.WithHelp("q/esc", "quit"),
	),
}
