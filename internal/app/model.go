package app

import (
	"context"
	"fmt"
	"strings"

	"charm.land/bubbles/v2/spinner"
	"charm.land/bubbles/v2/textinput"
	"charm.land/bubbles/v2/viewport"
	tea "charm.land/bubbletea/v2"

	"nvsview/internal/client"
	"nvsview/internal/commentary"
	"nvsview/internal/config"
	"nvsview/internal/logging"
	"nvsview/internal/loop"
	"nvsview/internal/render"
	"nvsview/internal/search"
	"nvsview/internal/types"
	"nvsview/internal/viewer"
)

const (
	navColumnWidth     = 7
	navColumnMinWidth  = 60
	sideBySideMinWidth = 90
	minPlayWidth       = 30
	chromeLines        = 3
)

type uiMode int

const (
	uiModeNormal uiMode = iota
	uiModeSearchInput
	uiModeGotoInput
	uiModeFilter
	uiModeHelp
	uiModeEditions
)

type panelFocus int

const (
	focusPlay panelFocus = iota
	focusCommentary
)

type Options struct {
	Config      config.Config
	Client      *client.Client
	Logger      logging.Logger
	Keybindings *Keybindings
	Styles      *render.Styles

	// Clock and Spawn replace the real timers and fetch goroutines.
	Clock loop.Clock
	Spawn func(func())
}

type Model struct {
	ctx    context.Context
	cancel context.CancelFunc
	cfg    config.Config
	client *client.Client
	logger logging.Logger

	queue   *loop.Queue
	viewer  *viewer.Viewer
	rows    *render.RowRenderer
	styles  render.Styles
	comm    *commentary.Loader
	search  *search.Manager
	filter  *search.Filter
	spinner spinner.Model

	keybindings *Keybindings
	hotkeys     *HotkeyRenderer

	mode      uiMode
	focus     panelFocus
	width     int
	height    int
	status    string
	statusErr bool
	started   bool

	play        playPanel
	commPanel   commentaryPanel
	filterView  filterOverlay
	input       textinput.Model
	overlay     viewport.Model
	overlayName string
	overlaySrc  string
	witnesses   *types.WitnessInfo
	lemmaCursor map[string]int
}

func NewModel(opts Options) *Model {
	ctx, cancel := context.WithCancel(context.Background())
	logger := opts.Logger
	if logger == nil {
		logger = logging.Nop()
	}
	bindings := opts.Keybindings
	if bindings == nil {
		bindings = DefaultKeybindings()
	}
	styles := render.DefaultStyles()
	if opts.Styles != nil {
		styles = *opts.Styles
	}
	m := &Model{
		ctx:         ctx,
		cancel:      cancel,
		cfg:         opts.Config,
		client:      opts.Client,
		logger:      logger.With(logging.F("component", "app")),
		queue:       loop.NewQueue(),
		styles:      styles,
		keybindings: bindings,
		hotkeys:     NewHotkeyRenderer(ResolveHotkeys(DefaultHotkeys(), bindings), DefaultHotkeyResolver{}),
		spinner:     spinner.New(spinner.WithSpinner(spinner.Line)),
		input:       textinput.New(),
		overlay:     viewport.New(viewport.WithWidth(1), viewport.WithHeight(1)),
		commPanel:   newCommentaryPanel(),
		lemmaCursor: map[string]int{},
	}
	m.rows = render.NewRowRenderer(styles, opts.Config.HighlightCommLemmas())
	m.viewer = viewer.New(ctx, viewer.Options{
		Source:        opts.Client,
		Renderer:      m.rows,
		Logger:        logger,
		Clock:         opts.Clock,
		Poster:        m.queue,
		Spawn:         opts.Spawn,
		MinLineHeight: opts.Config.MinLineHeight(),
		BufferFactor:  opts.Config.BufferFactor(),
		IdleLoading:   opts.Config.IdleLoading(),
		IdleBatchSize: opts.Config.IdleBatchSize(),
		FetchTimeout:  opts.Config.Timeout() * 3,
		ScrollTo:      m.scrollToNo,
	})
	m.comm = commentary.New(ctx, commentary.Options{
		Source:    opts.Client,
		Logger:    logger,
		Clock:     opts.Clock,
		Poster:    m.queue,
		Spawn:     opts.Spawn,
		SwathSize: opts.Config.SwathSize(),
		ScrollTo:  m.commentaryScrollTo,
	})
	m.search = search.NewManager(ctx, search.ManagerOptions{
		Searcher:   opts.Client,
		Lines:      m.viewer,
		Commentary: m.comm,
		Logger:     logger,
		Poster:     m.queue,
		Spawn:      opts.Spawn,
	})
	return m
}

func Run(opts Options) error {
	model := NewModel(opts)
	defer model.Close()
	p := tea.NewProgram(model)
	_, err := p.Run()
	return err
}

func (m *Model) Close() {
	if m.cancel != nil {
		m.cancel()
	}
	m.viewer.Scheduler().CancelAll()
}

func (m *Model) Init() tea.Cmd {
	m.start()
	return tea.Batch(m.waitForLoop(), m.spinner.Tick, tea.RequestBackgroundColor, fetchWitnessesCmd(m.ctx, m.client))
}

// start kicks off the skeleton fetch and both ends of the commentary.
func (m *Model) start() {
	if m.started {
		return
	}
	m.started = true
	m.setStatus("loading " + m.cfg.Play())
	m.viewer.Start(func(err error) {
		if err != nil {
			m.setError("skeleton: " + err.Error())
			return
		}
		m.refreshOrdinals()
		m.setStatus(fmt.Sprintf("%d lines", len(m.play.ordinals)))
	})
	m.comm.Start()
}

func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case loopReadyMsg:
		m.drainLoop()
		return m, m.waitForLoop()
	case tea.WindowSizeMsg:
		m.resize(msg.Width, msg.Height)
		return m, nil
	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	case witnessesMsg:
		if msg.err != nil {
			m.logger.Warn("witness fetch failed", logging.F("err", msg.err))
			return m, nil
		}
		m.witnesses = msg.info
		return m, nil
	case charactersMsg:
		m.applyCharacters(msg)
		return m, nil
	case tea.BackgroundColorMsg:
		if render.SetMarkdownBackgroundDark(msg.IsDark()) && m.overlaySrc != "" {
			m.renderOverlay()
		}
		return m, nil
	case tea.MouseWheelMsg:
		m.handleWheel(msg)
		return m, nil
	case tea.KeyPressMsg:
		cmd := m.handleKey(msg)
		m.drainLoop()
		return m, cmd
	}
	if m.mode == uiModeSearchInput || m.mode == uiModeGotoInput {
		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m *Model) handleKey(msg tea.KeyPressMsg) tea.Cmd {
	if msg.String() == "ctrl+c" {
		return tea.Quit
	}
	switch m.mode {
	case uiModeSearchInput, uiModeGotoInput:
		return m.handleInputKey(msg)
	case uiModeFilter:
		return m.handleFilterKey(msg)
	case uiModeHelp, uiModeEditions:
		return m.handleOverlayKey(msg)
	}

	switch {
	case m.keyMatches(msg, KeyCommandQuit):
		return tea.Quit
	case m.keyMatches(msg, KeyCommandHelp):
		m.openHelp()
		return nil
	case m.keyMatches(msg, KeyCommandSwitchPanel):
		m.toggleFocus()
		return nil
	case m.keyMatches(msg, KeyCommandOpenSearch):
		return m.openInput(uiModeSearchInput, "/", m.search.Query())
	case m.keyMatches(msg, KeyCommandGotoLine):
		return m.openInput(uiModeGotoInput, ":", "")
	case m.keyMatches(msg, KeyCommandFilter):
		return m.openFilter()
	case m.search.Active() && m.keyMatches(msg, KeyCommandSearchNext):
		m.search.Next()
		m.searchStatus()
		return nil
	case m.search.Active() && m.keyMatches(msg, KeyCommandSearchPrev):
		m.search.Prev()
		m.searchStatus()
		return nil
	case m.search.Active() && m.keyMatches(msg, KeyCommandSearchClear):
		m.clearSearch()
		return nil
	case m.search.Active() && m.keyMatches(msg, KeyCommandSearchLines):
		m.showSearchKind(search.KindLines)
		return nil
	case m.search.Active() && m.keyMatches(msg, KeyCommandSearchVariants):
		m.showSearchKind(search.KindVariants)
		return nil
	case m.search.Active() && m.keyMatches(msg, KeyCommandSearchCommentary):
		m.showSearchKind(search.KindCommentary)
		return nil
	}

	if m.focus == focusCommentary {
		m.handleCommentaryKey(msg)
		return nil
	}
	m.handlePlayKey(msg)
	return nil
}

func (m *Model) toggleFocus() {
	if m.focus == focusPlay {
		m.focus = focusCommentary
	} else {
		m.focus = focusPlay
	}
	m.layout()
}

func (m *Model) handleWheel(msg tea.MouseWheelMsg) {
	if m.mode != uiModeNormal {
		return
	}
	mouse := msg.Mouse()
	delta := 0
	switch mouse.Button {
	case tea.MouseWheelUp:
		delta = -3
	case tea.MouseWheelDown:
		delta = 3
	default:
		return
	}
	if m.commentaryVisible() && mouse.X >= m.playColumnsWidth() {
		m.scrollCommentary(delta)
		return
	}
	m.scrollPlay(delta)
}

func (m *Model) resize(width, height int) {
	m.width = width
	m.height = height
	m.layout()
}

// layout splits the screen between the scene column, the play panel and
// the commentary panel, then hands the play panel size to the viewer.
func (m *Model) layout() {
	bodyHeight := max(1, m.height-chromeLines-m.headerExtraLines())
	playWidth := max(1, m.playColumnsWidth()-m.navWidth()-1)
	m.play.resize(playWidth, bodyHeight)
	m.viewer.Resize(playWidth, bodyHeight)
	m.commPanel.resize(m.commentaryWidth(), bodyHeight)
	m.overlay.SetWidth(max(1, m.width-4))
	m.overlay.SetHeight(max(1, bodyHeight-3))
	if m.mode == uiModeHelp || m.mode == uiModeEditions {
		m.renderOverlay()
	}
	m.input.SetWidth(max(1, m.width-4))
	m.commPanel.signature = ""
	m.rebuildCommentary()
	m.syncVisible()
}

func (m *Model) navWidth() int {
	if m.width < navColumnMinWidth {
		return 0
	}
	return navColumnWidth
}

func (m *Model) sideBySide() bool {
	return m.width >= sideBySideMinWidth
}

// commentaryVisible reports whether the commentary panel is on screen. On
// narrow terminals it replaces the play panel while focused.
func (m *Model) commentaryVisible() bool {
	return m.sideBySide() || m.focus == focusCommentary
}

func (m *Model) playVisible() bool {
	return m.sideBySide() || m.focus == focusPlay
}

func (m *Model) commentaryWidth() int {
	if m.sideBySide() {
		return max(minPlayWidth, m.width/3)
	}
	return max(1, m.width)
}

func (m *Model) playColumnsWidth() int {
	if m.sideBySide() {
		return max(1, m.width-m.commentaryWidth()-1)
	}
	return max(1, m.width)
}

func (m *Model) headerExtraLines() int {
	if m.viewer.Breakpoint().ShowsMeter() {
		return 1
	}
	return 0
}

func (m *Model) drainLoop() {
	m.queue.Drain()
	m.afterLoop()
}

// afterLoop brings the panels up to date with whatever the drained
// callbacks changed.
func (m *Model) afterLoop() {
	if len(m.play.ordinals) == 0 && len(m.viewer.Registry().Stubs()) > 0 {
		m.refreshOrdinals()
	}
	m.rebuildCommentary()
	m.syncVisible()
	m.observeCommentary()
}

func (m *Model) busy() bool {
	return m.viewer.Busy() || m.comm.Busy() || m.search.Busy() || m.filterView.loading
}

func (m *Model) setStatus(text string) {
	m.status = text
	m.statusErr = false
}

func (m *Model) setError(text string) {
	m.status = text
	m.statusErr = true
	m.logger.Warn("ui error", logging.F("msg", text))
}

func (m *Model) View() tea.View {
	v := tea.NewView(m.render())
	v.AltScreen = true
	v.MouseMode = tea.MouseModeCellMotion
	v.WindowTitle = "nvsview " + m.cfg.Play()
	return v
}

func (m *Model) render() string {
	if m.width <= 0 || m.height <= 0 {
		return ""
	}
	lines := []string{m.headerLine()}
	if m.headerExtraLines() > 0 {
		lines = append(lines, m.centuryLine())
	}
	bodyHeight := max(1, m.height-chromeLines-m.headerExtraLines())
	switch m.mode {
	case uiModeHelp, uiModeEditions:
		lines = append(lines, m.overlayLines(bodyHeight)...)
	case uiModeFilter:
		lines = append(lines, m.filterLines(bodyHeight)...)
	default:
		lines = append(lines, m.bodyLines(bodyHeight)...)
	}
	lines = append(lines, m.statusLine(), fitWidth(helpStyle.Render(m.hotkeys.Render(m, m.width)), m.width))
	return strings.Join(lines, "\n")
}

func (m *Model) bodyLines(height int) []string {
	var columns [][]string
	if m.playVisible() {
		if nav := m.navWidth(); nav > 0 {
			columns = append(columns, m.navLines(nav, height), dividerColumn(height))
		}
		columns = append(columns, padLines(m.playLines(), m.play.width+1, height))
	}
	if m.sideBySide() {
		columns = append(columns, dividerColumn(height))
	}
	if m.commentaryVisible() {
		columns = append(columns, padLines(m.commPanel.lines(), m.commPanel.width, height))
	}
	return joinColumns(columns...)
}

func dividerColumn(height int) []string {
	out := make([]string, height)
	for i := range out {
		out[i] = dividerStyle.Render("│")
	}
	return out
}

func (m *Model) headerLine() string {
	title := headerStyle.Render("NVS " + strings.ToUpper(m.cfg.Play()))
	parts := []string{title}
	if scene := m.viewer.ActiveActScene(); scene != "" {
		parts = append(parts, sceneActiveStyle.Render(scene))
	}
	if m.viewer.Filtered() {
		parts = append(parts, filterOnStyle.Render("filtered"))
	}
	if m.playVisible() {
		parts = append(parts, m.focusLabel("play", m.focus == focusPlay))
	}
	if m.commentaryVisible() {
		parts = append(parts, m.focusLabel("commentary", m.focus == focusCommentary))
	}
	if m.busy() {
		parts = append(parts, activityStyle.Render(m.spinner.View()))
	}
	return fitWidth(strings.Join(parts, "  "), m.width)
}

func (m *Model) focusLabel(name string, focused bool) string {
	if focused {
		return panelFocusedStyle.Render(name)
	}
	return panelUnfocusedStyle.Render(name)
}

// centuryLine draws the witness century histogram over the meter column.
func (m *Model) centuryLine() string {
	offset := m.navWidth()
	if offset > 0 {
		offset++
	}
	offset += 1 + m.rows.LabelWidth + 1
	header := m.styles.CenturyHeader(m.witnesses, m.viewer.MeterWidth())
	return fitWidth(strings.Repeat(" ", offset)+header, m.width)
}

func (m *Model) statusLine() string {
	if m.mode == uiModeSearchInput || m.mode == uiModeGotoInput {
		return fitWidth(m.input.View(), m.width)
	}
	style := statusStyle
	if m.statusErr {
		style = errorStyle
	} else if m.search.Notice() != "" && m.status == m.search.Notice() {
		style = noticeStyle
	}
	return fitWidth(style.Render(m.status), m.width)
}
