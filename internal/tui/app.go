package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"go.uber.org/zap"

	"github.com/angelala00/pbcdash/internal/api"
	"github.com/angelala00/pbcdash/internal/browser"
	"github.com/angelala00/pbcdash/internal/cache"
	"github.com/angelala00/pbcdash/internal/config"
	"github.com/angelala00/pbcdash/internal/filter"
	"github.com/angelala00/pbcdash/internal/logging"
)

type focusPane int

const (
	focusList focusPane = iota
	focusPreview
)

type view int

const (
	viewTasks view = iota
	viewEntries
	viewSearch
)

type mode int

const (
	modeNormal mode = iota
	modeQuery
	modeFilter
	modeSearchInput
	modeHelp
)

const limitStep = 10

type App struct {
	cfg      *config.Config
	client   *api.Client
	cache    *cache.Cache
	logger   *zap.Logger
	fallback string

	view  view
	mode  mode
	focus focusPane

	width  int
	height int

	// Tasks
	tasks       []api.TaskSummary
	tasksAt     time.Time
	tasksLoaded bool
	taskCursor  int
	refreshing  bool

	// Entries
	state       filter.State
	result      filter.Result
	entryCursor int
	loading     map[string]bool
	failed      map[string]error

	// Search
	topK         int
	searchResp   *api.SearchResponse
	searchCursor int
	searching    bool

	// Sub-components
	queryInput  textinput.Model
	searchInput textinput.Model
	spinner     spinner.Model
	filterBar   filterBar
	preview     previewRenderer

	previewScroll int
	err           error
}

// RunOpts holds all parameters for launching the TUI.
type RunOpts struct {
	Cfg    *config.Config
	Client *api.Client
	Cache  *cache.Cache
	Logger *zap.Logger
	// Slug opens the entry viewer for one task directly.
	Slug string
	// InitialTasks seeds the task list, as static snapshots do.
	InitialTasks []api.TaskSummary
}

func NewApp(opts RunOpts) *App {
	qi := textinput.New()
	qi.Placeholder = "Filter entries..."
	qi.Prompt = searchPromptStyle.Render("/ ")
	qi.CharLimit = 200

	si := textinput.New()
	si.Placeholder = "Search all tasks..."
	si.Prompt = searchPromptStyle.Render("? ")
	si.CharLimit = 200

	sp := spinner.New()
	sp.Spinner = spinner.MiniDot
	sp.Style = spinnerStyle

	cfg := opts.Cfg
	a := &App{
		cfg:         cfg,
		client:      opts.Client,
		cache:       opts.Cache,
		logger:      logging.OrNop(opts.Logger),
		fallback:    strings.TrimSpace(opts.Slug),
		state:       filter.NewState(cfg.MaxLimit(), cfg.DefaultLimit()),
		loading:     make(map[string]bool),
		failed:      make(map[string]error),
		topK:        cfg.DefaultTopK(),
		queryInput:  qi,
		searchInput: si,
		spinner:     sp,
		filterBar:   newFilterBar(),
	}

	if opts.InitialTasks != nil {
		a.setTasks(opts.InitialTasks, time.Time{})
	}
	if a.fallback != "" {
		a.view = viewEntries
		a.state = a.state.WithSources(a.fallback)
		a.filterBar.addSource(a.fallback)
	}
	a.result = filter.Run(a.cache, a.state, a.fallback)
	return a
}

func (a *App) Init() tea.Cmd {
	var cmds []tea.Cmd
	if !a.cfg.StaticSnapshot {
		a.refreshing = true
		cmds = append(cmds, a.loadTasksCmd(), a.spinner.Tick)
	}
	if a.view == viewEntries {
		cmds = append(cmds, a.ensureEntriesCmd())
	}
	cmds = append(cmds, a.scheduleRefresh())
	return tea.Batch(cmds...)
}

// loadTasksCmd captures the client into the closure to avoid races.
func (a *App) loadTasksCmd() tea.Cmd {
	client, timeout := a.client, a.cfg.TimeoutDuration()
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		tasks, err := client.Tasks(ctx)
		return tasksLoadedMsg{tasks: tasks, at: time.Now(), err: err}
	}
}

// ensureEntriesCmd loads the pipeline's sources that have no data yet.
// Sources that failed stay failed until an explicit retry.
func (a *App) ensureEntriesCmd() tea.Cmd {
	if a.view != viewEntries {
		return nil
	}
	var pending []string
	for _, s := range a.result.Sources {
		if a.loading[s] || a.failed[s] != nil {
			continue
		}
		if a.cache.Get(s).State == cache.Absent {
			pending = append(pending, s)
		}
	}
	if len(pending) == 0 {
		return nil
	}
	for _, s := range pending {
		a.loading[s] = true
	}

	c, timeout := a.cache, a.cfg.TimeoutDuration()
	load := func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		return entriesLoadedMsg{result: c.EnsureLoaded(ctx, pending)}
	}
	return tea.Batch(load, a.spinner.Tick)
}

func (a *App) searchCmd(query string) tea.Cmd {
	client, timeout := a.client, a.cfg.TimeoutDuration()
	req := api.SearchRequest{
		Query:            query,
		TopK:             a.topK,
		IncludeDocuments: a.cfg.IncludeDocuments(),
	}
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		resp, err := client.Search(ctx, req)
		return searchDoneMsg{query: req.Query, resp: resp, err: err}
	}
}

func (a *App) scheduleRefresh() tea.Cmd {
	interval := a.cfg.AutoRefreshInterval()
	if interval <= 0 {
		return nil
	}
	return tea.Tick(interval, func(time.Time) tea.Msg { return refreshTickMsg{} })
}

func openBrowserCmd(base, ref string) tea.Cmd {
	return func() tea.Msg {
		if err := browser.Open(base, ref); err != nil {
			return errMsg{action: "opening link", err: err}
		}
		return nil
	}
}

// applyFilters reruns the pipeline and loads whatever it is missing.
func (a *App) applyFilters() tea.Cmd {
	a.result = filter.Run(a.cache, a.state, a.fallback)
	if a.entryCursor >= len(a.result.Displayed) {
		a.entryCursor = max(0, len(a.result.Displayed)-1)
	}
	return a.ensureEntriesCmd()
}

func (a *App) setTasks(tasks []api.TaskSummary, at time.Time) {
	a.tasks = tasks
	a.tasksAt = at
	a.tasksLoaded = true
	a.cache.SetTasks(tasks)
	a.filterBar.setTasks(tasks)
	for _, s := range a.state.Selected() {
		a.filterBar.addSource(s)
	}
	if a.taskCursor >= len(a.tasks) {
		a.taskCursor = max(0, len(a.tasks)-1)
	}
}

func (a *App) busy() bool {
	return a.refreshing || a.searching || len(a.loading) > 0
}

func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		a.preview.resize(a.previewWidth() - 4)
		return a, nil

	case tea.KeyMsg:
		// Clear sticky error on any keypress
		a.err = nil
		return a.handleKey(msg)

	case tasksLoadedMsg:
		a.refreshing = false
		if msg.err != nil {
			a.logger.Warn("loading tasks failed", zap.Error(msg.err))
			a.err = fmt.Errorf("loading tasks: %w", msg.err)
			return a, nil
		}
		a.setTasks(msg.tasks, msg.at)
		return a, a.applyFilters()

	case entriesLoadedMsg:
		for _, s := range msg.result.Succeeded {
			delete(a.loading, s)
			delete(a.failed, s)
		}
		for _, f := range msg.result.Failed {
			delete(a.loading, f.Source)
			a.failed[f.Source] = f.Err
			a.logger.Warn("loading entries failed", zap.String("source", f.Source), zap.Error(f.Err))
		}
		return a, a.applyFilters()

	case searchDoneMsg:
		a.searching = false
		if msg.err != nil {
			a.err = fmt.Errorf("search: %w", msg.err)
			return a, nil
		}
		a.searchResp = msg.resp
		a.searchCursor = 0
		a.previewScroll = 0
		return a, nil

	case refreshTickMsg:
		next := a.scheduleRefresh()
		if a.refreshing {
			return a, next
		}
		a.refreshing = true
		return a, tea.Batch(a.loadTasksCmd(), a.spinner.Tick, next)

	case errMsg:
		a.err = fmt.Errorf("%s: %w", msg.action, msg.err)
		return a, nil

	case spinner.TickMsg:
		if a.busy() {
			var cmd tea.Cmd
			a.spinner, cmd = a.spinner.Update(msg)
			return a, cmd
		}
		return a, nil
	}

	return a, nil
}

func (a *App) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	// Global keys
	if msg.String() == "ctrl+c" {
		return a, tea.Quit
	}

	// Mode-specific handling
	switch a.mode {
	case modeQuery:
		return a.handleQueryKey(msg)
	case modeFilter:
		return a.handleFilterKey(msg)
	case modeSearchInput:
		return a.handleSearchInputKey(msg)
	case modeHelp:
		switch msg.String() {
		case "?", "esc":
			a.mode = modeNormal
		case "q":
			return a, tea.Quit
		}
		return a, nil
	}

	switch msg.String() {
	case "q":
		return a, tea.Quit
	case "?":
		a.mode = modeHelp
		return a, nil
	case "tab":
		if a.focus == focusList {
			a.focus = focusPreview
		} else {
			a.focus = focusList
		}
		return a, nil
	case "s":
		if a.view != viewSearch {
			return a, a.openSearch()
		}
	}

	switch a.view {
	case viewEntries:
		return a.handleEntriesKey(msg)
	case viewSearch:
		return a.handleSearchKey(msg)
	default:
		return a.handleTasksKey(msg)
	}
}

// moveCursor handles j/k for the list or the preview, whichever has focus.
func (a *App) moveCursor(cursor *int, n, delta int) {
	if a.focus == focusPreview {
		a.previewScroll = max(0, a.previewScroll+delta)
		return
	}
	next := *cursor + delta
	if next < 0 || next >= n {
		return
	}
	*cursor = next
	a.previewScroll = 0
}

func (a *App) handleTasksKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "j", "down":
		a.moveCursor(&a.taskCursor, len(a.tasks), 1)
	case "k", "up":
		a.moveCursor(&a.taskCursor, len(a.tasks), -1)
	case "enter", "l":
		if a.taskCursor < len(a.tasks) {
			return a, a.openEntries(a.tasks[a.taskCursor].Slug)
		}
	case "e":
		return a, a.openEntries()
	case "o":
		if a.taskCursor < len(a.tasks) && a.tasks[a.taskCursor].StartURL != "" {
			return a, openBrowserCmd(a.cfg.APIBase, a.tasks[a.taskCursor].StartURL)
		}
	case "r":
		if a.cfg.StaticSnapshot {
			a.err = api.ErrStaticSnapshot
			return a, nil
		}
		if !a.refreshing {
			a.refreshing = true
			return a, tea.Batch(a.loadTasksCmd(), a.spinner.Tick)
		}
	}
	return a, nil
}

// openEntries switches to the entry viewer with the given selection; no
// sources means all of them.
func (a *App) openEntries(sources ...string) tea.Cmd {
	a.view = viewEntries
	a.focus = focusList
	a.state = a.state.WithSources(sources...)
	for _, s := range a.state.Selected() {
		a.filterBar.addSource(s)
	}
	a.entryCursor = 0
	a.previewScroll = 0
	return a.applyFilters()
}

func (a *App) handleEntriesKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "j", "down":
		a.moveCursor(&a.entryCursor, len(a.result.Displayed), 1)
	case "k", "up":
		a.moveCursor(&a.entryCursor, len(a.result.Displayed), -1)
	case "o", "enter":
		if a.entryCursor < len(a.result.Displayed) {
			for _, d := range a.result.Displayed[a.entryCursor].Documents {
				if d.URL != "" {
					return a, openBrowserCmd(a.cfg.APIBase, d.URL)
				}
			}
		}
	case "/":
		a.mode = modeQuery
		a.queryInput.SetValue(a.state.Query())
		a.queryInput.CursorEnd()
		a.queryInput.Focus()
		return a, textinput.Blink
	case "f":
		a.mode = modeFilter
		a.filterBar.filterMode = true
	case "a":
		a.state = a.state.WithCategoryOnly(!a.state.CategoryOnly())
		a.entryCursor = 0
		return a, a.applyFilters()
	case "]":
		a.state = a.state.WithLimit(a.state.Limit() + limitStep)
		return a, a.applyFilters()
	case "[":
		a.state = a.state.WithLimit(max(1, a.state.Limit()-limitStep))
		return a, a.applyFilters()
	case "r":
		clear(a.failed)
		return a, a.applyFilters()
	case "ctrl+r":
		a.cache.Reset()
		clear(a.failed)
		clear(a.loading)
		cmds := []tea.Cmd{a.applyFilters()}
		if !a.cfg.StaticSnapshot && !a.refreshing {
			a.refreshing = true
			cmds = append(cmds, a.loadTasksCmd(), a.spinner.Tick)
		}
		return a, tea.Batch(cmds...)
	case "esc", "h":
		a.view = viewTasks
		a.focus = focusList
		a.previewScroll = 0
	}
	return a, nil
}

func (a *App) handleQueryKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		a.mode = modeNormal
		a.queryInput.SetValue("")
		a.queryInput.Blur()
		a.state = a.state.WithQuery("")
		return a, a.applyFilters()
	case "enter":
		a.mode = modeNormal
		a.queryInput.Blur()
		return a, nil
	}

	var cmd tea.Cmd
	a.queryInput, cmd = a.queryInput.Update(msg)
	// Only rerun the pipeline on actual value changes, not cursor moves etc.
	if v := a.queryInput.Value(); v != a.state.Query() {
		a.state = a.state.WithQuery(v)
		a.entryCursor = 0
		a.previewScroll = 0
		return a, tea.Batch(cmd, a.applyFilters())
	}
	return a, cmd
}

func (a *App) handleFilterKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc", "f", "enter":
		a.mode = modeNormal
		a.filterBar.filterMode = false
		return a, nil
	case "left", "h":
		if a.filterBar.filterCursor > 0 {
			a.filterBar.filterCursor--
		}
		return a, nil
	case "right", "l":
		if a.filterBar.filterCursor < len(a.filterBar.sources)-1 {
			a.filterBar.filterCursor++
		}
		return a, nil
	case " ":
		if s, ok := a.filterBar.current(); ok {
			a.state = a.state.ToggleSource(s)
			a.entryCursor = 0
			return a, a.applyFilters()
		}
		return a, nil
	case "0":
		a.state = a.state.WithSources()
		a.entryCursor = 0
		return a, a.applyFilters()
	case "1", "2", "3", "4", "5", "6", "7", "8", "9":
		idx := int(msg.String()[0] - '1')
		if idx < len(a.filterBar.sources) {
			a.state = a.state.ToggleSource(a.filterBar.sources[idx])
			a.entryCursor = 0
			return a, a.applyFilters()
		}
		return a, nil
	}
	return a, nil
}

func (a *App) openSearch() tea.Cmd {
	a.view = viewSearch
	a.focus = focusList
	a.previewScroll = 0
	if !a.cfg.SearchEnabled() {
		return nil
	}
	a.mode = modeSearchInput
	a.searchInput.Focus()
	return textinput.Blink
}

func (a *App) handleSearchKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	results := a.searchResults()
	switch msg.String() {
	case "j", "down":
		a.moveCursor(&a.searchCursor, len(results), 1)
	case "k", "up":
		a.moveCursor(&a.searchCursor, len(results), -1)
	case "/", "i":
		if a.cfg.SearchEnabled() {
			a.mode = modeSearchInput
			a.searchInput.Focus()
			return a, textinput.Blink
		}
	case "+", "=":
		a.topK = api.ClampTopK(a.topK+1, a.cfg.MaxTopK())
	case "-":
		a.topK = api.ClampTopK(a.topK-1, a.cfg.MaxTopK())
	case "o", "enter":
		if a.searchCursor < len(results) {
			for _, d := range results[a.searchCursor].Documents {
				if d.URL != "" {
					return a, openBrowserCmd(a.cfg.APIBase, d.URL.String())
				}
			}
		}
	case "esc", "h":
		a.view = viewTasks
		a.focus = focusList
		a.previewScroll = 0
	}
	return a, nil
}

func (a *App) handleSearchInputKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		a.mode = modeNormal
		a.searchInput.Blur()
		return a, nil
	case "enter":
		query := strings.TrimSpace(a.searchInput.Value())
		if query == "" {
			return a, nil
		}
		a.mode = modeNormal
		a.searchInput.Blur()
		a.searching = true
		return a, tea.Batch(a.searchCmd(query), a.spinner.Tick)
	}

	var cmd tea.Cmd
	a.searchInput, cmd = a.searchInput.Update(msg)
	return a, cmd
}

func (a *App) listWidth() int {
	return int(float64(a.width) * 0.4)
}

func (a *App) previewWidth() int {
	return a.width - a.listWidth() - 1 // gap
}

func (a *App) renderPanes(list, preview string, height int) string {
	listWidth := a.listWidth()
	previewWidth := a.previewWidth()

	var listPane, previewPane string
	if a.focus == focusList {
		listPane = listPaneActiveStyle.Width(listWidth - 2).Height(height).Render(list)
		previewPane = previewPaneStyle.Width(previewWidth - 2).Height(height).Render(clip(preview, height, a.previewScroll))
	} else {
		listPane = listPaneStyle.Width(listWidth - 2).Height(height).Render(list)
		previewPane = previewPaneActiveStyle.Width(previewWidth - 2).Height(height).Render(clip(preview, height, a.previewScroll))
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, listPane, previewPane)
}

func (a *App) renderHeader() string {
	left := headerStyle.Render("pbcdash")
	var right []string
	if a.cfg.StaticSnapshot {
		right = append(right, "snapshot")
	} else {
		right = append(right, a.cfg.APIBase)
	}
	right = append(right, "auto "+a.cfg.AutoRefreshLabel())
	if !a.tasksAt.IsZero() {
		right = append(right, "updated "+relativeTime(a.tasksAt))
	}
	rightStr := headerDateStyle.Render(strings.Join(right, " · ") + " ")
	gap := a.width - lipgloss.Width(left) - lipgloss.Width(rightStr)
	if gap < 0 {
		gap = 0
	}
	return left + fmt.Sprintf("%*s", gap, "") + rightStr
}

func (a *App) View() string {
	if a.width == 0 {
		return lipgloss.NewStyle().Foreground(colorAccent).Render("  pbcdash")
	}
	if a.mode == modeHelp {
		help := a.renderHelp()
		return lipgloss.JoinVertical(lipgloss.Left, help,
			renderStatusBar("", hintsHelpOverlay, a.width, ""))
	}

	header := a.renderHeader()
	var top []string
	var list, preview, left, hints string
	// header + status bar + pane borders
	used := 4

	innerListW := a.listWidth() - 4 // border + padding
	switch a.view {
	case viewEntries:
		top = a.entriesTop()
		used += len(top)
		height := max(3, a.height-used)
		list, preview = a.entriesContent(innerListW, height)
		left, hints = a.entriesStatus(), hintsEntries
	case viewSearch:
		top = a.searchTop()
		used += len(top)
		height := max(3, a.height-used)
		list, preview = a.searchContent(innerListW, height)
		left, hints = a.searchStatus(), hintsSearch
	default:
		cards := renderCards(a.tasks, a.width)
		top = []string{cards}
		used += lipgloss.Height(cards)
		height := max(3, a.height-used)
		list, preview = a.tasksContent(innerListW, height)
		left, hints = fmt.Sprintf("%d tasks", len(a.tasks)), hintsTasks
	}
	height := max(3, a.height-used)

	switch a.mode {
	case modeQuery, modeSearchInput:
		hints = hintsInput
	case modeFilter:
		hints = hintsSourcePick
	}

	busy := ""
	if a.busy() {
		busy = a.spinner.View()
	}
	status := renderStatusBar(left, hints, a.width, busy)
	if a.err != nil {
		status = errorStyle.Width(a.width).Render(" " + a.err.Error())
	}

	parts := append([]string{header}, top...)
	parts = append(parts, a.renderPanes(list, preview, height), status)
	return lipgloss.JoinVertical(lipgloss.Left, parts...)
}

func (a *App) renderHelp() string {
	title := lipgloss.NewStyle().Foreground(colorAccent).Bold(true).Render("pbcdash")
	dim := helpDimStyle

	help := title + dim.Render(" · Keyboard Shortcuts") + "\n\n" +
		dim.Render("Tasks") + "\n" +
		"  j/k, ↑/↓      Navigate tasks\n" +
		"  enter         Show the task's entries\n" +
		"  e             Show entries of every task\n" +
		"  o             Open the task's start page\n" +
		"  r             Reload tasks\n\n" +
		dim.Render("Entries") + "\n" +
		"  /             Filter by keywords (all must match)\n" +
		"  f             Pick sources\n" +
		"  a             Only " + cache.AbolishKeyword + " entries\n" +
		"  [ ]           Lower or raise the match limit\n" +
		"  o, enter      Open the first document\n" +
		"  r             Retry failed sources\n" +
		"  ctrl+r        Drop cached entries and reload\n" +
		"  esc           Back to tasks\n\n" +
		dim.Render("Source Picker") + "\n" +
		"  ←/→, h/l      Move between sources\n" +
		"  space         Toggle source\n" +
		"  1-9           Toggle source by number\n" +
		"  0             All sources\n\n" +
		dim.Render("Search") + "\n" +
		"  s             Open search\n" +
		"  + -           Change result count\n\n" +
		dim.Render("General") + "\n" +
		"  tab           Switch focus between list and preview\n" +
		"  ?             Toggle this help\n" +
		"  q, ctrl+c     Quit"

	card := helpCardStyle.Render(help)
	return lipgloss.Place(a.width, a.height-1, lipgloss.Center, lipgloss.Center, card)
}

// Run starts the TUI application.
func Run(opts RunOpts) error {
	app := NewApp(opts)
	p := tea.NewProgram(app, tea.WithAltScreen())
	_, err := p.Run()
	return err
}
