package ui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/photomirror/internal/models"
	"github.com/desertthunder/photomirror/internal/tasks"
)

// ViewState represents the current view in the TUI.
type ViewState int

const (
	CompareView ViewState = iota
	PlanView
	ConfirmView
	SyncView
	ResultView
)

// logLines is how many recent action messages the sync view keeps.
const logLines = 6

// Syncer is the part of [tasks.SyncEngine] the TUI drives.
type Syncer interface {
	Compare(ctx context.Context, sourceAccount, targetAccount string) (*models.CompareResult, error)
	Sync(ctx context.Context, sourceAccount, targetAccount string, dryRun bool, progress chan<- tasks.ProgressUpdate) (*models.SyncResult, error)
}

var _ Syncer = (*tasks.SyncEngine)(nil)

// Model represents the TUI application state.
type Model struct {
	ctx          context.Context
	view         ViewState
	engine       Syncer
	source       string
	target       string
	dryRun       bool
	width        int
	height       int
	planList     list.Model
	comparison   *models.CompareResult
	progressChan chan tasks.ProgressUpdate
	done         chan syncData
	progress     tasks.ProgressUpdate
	log          []string
	result       *models.SyncResult
	err          error
	bar          progress.Model
	help         help.Model
	keys         keyMap
}

// NewModel creates a TUI that compares source with target, shows the plan and
// runs the sync after confirmation.
func NewModel(ctx context.Context, engine Syncer, source, target string, dryRun bool) *Model {
	return &Model{
		ctx:    ctx,
		view:   CompareView,
		engine: engine,
		source: source,
		target: target,
		dryRun: dryRun,
		bar:    progress.New(progress.WithDefaultGradient()),
		help:   help.New(),
		keys:   newKeyMap(),
	}
}

// Init starts the initial comparison.
func (m *Model) Init() tea.Cmd {
	return m.compare()
}

// Update handles incoming messages and updates the model state.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		if m.comparison != nil && !m.comparison.InSync() {
			m.planList.SetSize(msg.Width-4, msg.Height-8)
		}
		m.bar.Width = max(msg.Width-8, 10)
		return m, nil

	case tea.KeyMsg:
		switch m.view {
		case PlanView:
			return m.handlePlanKeys(msg)
		case ConfirmView:
			return m.handleConfirmKeys(msg)
		case ResultView:
			return m.handleResultKeys(msg)
		default:
			if key.Matches(msg, m.keys.quit) {
				return m, tea.Quit
			}
		}

	case Msg:
		return m.handleMsg(msg)
	}

	if m.view == PlanView {
		var cmd tea.Cmd
		m.planList, cmd = m.planList.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m *Model) handleMsg(msg Msg) (tea.Model, tea.Cmd) {
	switch msg.kind {
	case MsgCompared:
		data := msg.data.(comparedData)
		if data.err != nil {
			m.err = data.err
			m.view = ResultView
			return m, nil
		}
		m.comparison = data.result
		if data.result.InSync() {
			m.result = &models.SyncResult{SourceAccount: m.source, TargetAccount: m.target, DryRun: m.dryRun}
			m.view = ResultView
			return m, nil
		}
		m.planList = list.New(planItems(data.result, diffNames(data.result)), list.NewDefaultDelegate(), 0, 0)
		m.planList.Title = fmt.Sprintf("Planned changes %s → %s", m.source, m.target)
		if m.width > 0 {
			m.planList.SetSize(m.width-4, m.height-8)
		}
		m.view = PlanView
		return m, nil

	case MsgProgressUpdate:
		update := msg.data.(tasks.ProgressUpdate)
		if update.Phase == tasks.TransferChunk {
			m.progress.Bytes = update.Bytes
			m.progress.ItemID = update.ItemID
		} else {
			m.progress = update
		}
		if update.Phase.IsAction() {
			m.log = append(m.log, update.Message)
			if len(m.log) > logLines {
				m.log = m.log[len(m.log)-logLines:]
			}
		}
		return m, m.waitForProgress()

	case MsgSyncComplete:
		data := msg.data.(syncData)
		m.result = data.result
		m.err = data.err
		m.progressChan = nil
		m.done = nil
		m.view = ResultView
		return m, nil
	}
	return m, nil
}

func (m *Model) handlePlanKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.planList.FilterState() == list.Filtering {
		var cmd tea.Cmd
		m.planList, cmd = m.planList.Update(msg)
		return m, cmd
	}

	switch {
	case key.Matches(msg, m.keys.quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.review):
		m.view = ConfirmView
		return m, nil
	}

	var cmd tea.Cmd
	m.planList, cmd = m.planList.Update(msg)
	return m, cmd
}

func (m *Model) handleConfirmKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.quit), key.Matches(msg, m.keys.cancel):
		m.view = PlanView
		return m, nil
	case key.Matches(msg, m.keys.dryRun):
		m.dryRun = !m.dryRun
		return m, nil
	case key.Matches(msg, m.keys.start):
		m.view = SyncView
		return m, m.startSync()
	}
	return m, nil
}

func (m *Model) handleResultKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.recompare):
		m.view = CompareView
		m.comparison = nil
		m.result = nil
		m.err = nil
		m.log = nil
		m.progress = tasks.ProgressUpdate{}
		return m, m.compare()
	}
	return m, nil
}

func (m *Model) compare() tea.Cmd {
	return func() tea.Msg {
		result, err := m.engine.Compare(m.ctx, m.source, m.target)
		return comparedMsg(result, err)
	}
}

func (m *Model) startSync() tea.Cmd {
	progressChan := make(chan tasks.ProgressUpdate, 50)
	done := make(chan syncData, 1)
	m.progressChan = progressChan
	m.done = done

	go func() {
		result, err := m.engine.Sync(m.ctx, m.source, m.target, m.dryRun, progressChan)
		done <- syncData{result, err}
		close(progressChan)
	}()

	return m.waitForProgress()
}

func (m *Model) waitForProgress() tea.Cmd {
	progressChan, done := m.progressChan, m.done
	return func() tea.Msg {
		if progressChan == nil {
			return nil
		}
		update, ok := <-progressChan
		if !ok {
			data := <-done
			return syncCompleteMsg(data.result, data.err)
		}
		return progressUpdateMsg(update)
	}
}

// View renders the UI based on the current view state.
func (m *Model) View() string {
	switch m.view {
	case CompareView:
		return m.renderCompare()
	case PlanView:
		return m.renderPlan()
	case ConfirmView:
		return m.renderConfirm()
	case SyncView:
		return m.renderSync()
	case ResultView:
		return m.renderResult()
	default:
		return ""
	}
}

func (m *Model) renderCompare() string {
	title := styles.title.Render("Comparing catalogs")
	return fmt.Sprintf("%s\n%s → %s\n\n%s", title, m.source, m.target, m.help.ShortHelpView([]key.Binding{m.keys.quit}))
}

func (m *Model) renderPlan() string {
	helpView := m.help.ShortHelpView(m.keys.planHelp())
	return fmt.Sprintf("%s\n\n%s", m.planList.View(), helpView)
}

func (m *Model) renderConfirm() string {
	verb := "Sync"
	if m.dryRun {
		verb = "Dry run"
	}
	title := styles.title.Render(fmt.Sprintf("%s %s → %s?", verb, m.source, m.target))
	c := m.comparison
	info := fmt.Sprintf("Add: %d\nUpdate: %d\nDelete: %d\n",
		len(c.MissingOnTarget), len(c.DiffsByItem()), len(c.ExtraOnTarget))

	helpView := m.help.ShortHelpView(m.keys.confirmHelp())
	return fmt.Sprintf("%s\n%s\n%s", title, info, helpView)
}

func (m *Model) renderSync() string {
	title := styles.title.Render("Syncing")

	var phase string
	switch m.progress.Phase {
	case tasks.FetchSource, tasks.FetchTarget, tasks.Diffing:
		phase = m.progress.Message
	case tasks.AddItems, tasks.UpdateItems, tasks.DeleteItems:
		phase = fmt.Sprintf("%s (%d/%d)", m.progress.Phase, m.progress.Step, m.progress.Total)
	default:
		phase = "Processing..."
	}
	if phase == "" {
		phase = "Processing..."
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s\n%s\n%s\n", title, phase, m.bar.ViewAs(m.progress.Percent/100))
	if m.progress.Bytes > 0 {
		b.WriteString(styles.help.Render(fmt.Sprintf("%s: %d bytes", m.progress.ItemID, m.progress.Bytes)))
		b.WriteString("\n")
	}
	for _, line := range m.log {
		b.WriteString("\n" + line)
	}
	return b.String()
}

func (m *Model) renderResult() string {
	helpView := m.help.ShortHelpView(m.keys.resultHelp())

	if m.err != nil {
		return styles.err.Render(fmt.Sprintf("Sync failed: %v", m.err)) + "\n\n" + helpView
	}

	if m.result == nil {
		return styles.err.Render("No result available") + "\n\n" + helpView
	}

	if len(m.result.Actions) == 0 {
		return styles.ok.Render("✓ Target is in sync with source") + "\n\n" + helpView
	}

	title := styles.ok.Render("✓ Sync Complete!")
	if m.result.DryRun {
		title = styles.ok.Render("✓ Dry run complete, nothing was changed")
	}
	info := fmt.Sprintf("\nAdded: %d\nUpdated: %d\nDeleted: %d\nFailed: %d of %d",
		m.result.Added, m.result.Updated, m.result.Deleted, m.result.Failed, m.result.Total)

	var failed string
	if m.result.PartialSuccess() {
		failed = "\n\n" + styles.warn.Render(fmt.Sprintf("%d actions failed:", m.result.Failed))
		for _, a := range m.result.Actions {
			if a.Status == models.StatusFailed {
				failed += fmt.Sprintf("\n  • %s %s: %s", a.Kind, a.ItemFilename, a.Error)
			}
		}
	}

	return fmt.Sprintf("%s\n%s%s\n\n%s", title, info, failed, helpView)
}
