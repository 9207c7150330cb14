package tui

import (
	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/cardlift/cardlift/internal/upload"
)

// UploadState represents the lifecycle of the upload TUI.
type UploadState int

const (
	// UploadStateRunning indicates batches are being submitted.
	UploadStateRunning UploadState = iota
	// UploadStateCancelling indicates cancellation was requested and the
	// view is waiting for the session to wind down.
	UploadStateCancelling
	// UploadStateDone indicates the session returned and the program quits.
	UploadStateDone
)

// ItemClassifiedMsg is sent once per classified item.
type ItemClassifiedMsg struct {
	Record upload.Record
}

// BatchCompleteMsg is sent after every item of a batch resolved.
type BatchCompleteMsg struct {
	Index int // 0-based
	Count int
	Kind  upload.OutcomeKind
}

// UploadDoneMsg is sent when the session's Start call returns.
type UploadDoneMsg struct {
	Result *upload.Result
	Err    error
}

// ProgramObserver bridges session events into Bubble Tea messages. send is
// typically (*tea.Program).Send, which is safe to call from the upload
// goroutine.
func ProgramObserver(send func(tea.Msg)) upload.Observer {
	return upload.ObserverFuncs{
		OnItemClassified: func(rec upload.Record) {
			send(ItemClassifiedMsg{Record: rec})
		},
		OnBatchComplete: func(batchIndex, batchCount int, outcome upload.Outcome) {
			send(BatchCompleteMsg{Index: batchIndex, Count: batchCount, Kind: outcome.Kind})
		},
	}
}

// maxRecentItems caps the rolling list of last-classified items.
const maxRecentItems = 6

// maxBarWidth keeps the progress bar readable on wide terminals.
const maxBarWidth = 60

// UploadModel is the Bubble Tea model for a live upload. Counts are derived
// purely from observer messages so the model never reaches into the session;
// the only backchannel is the cancel function.
//
//nolint:recvcheck // Bubble Tea requires value receivers for Init/Update/View interface methods.
type UploadModel struct {
	state  UploadState
	cancel func() // trips session cancellation; never nil

	total           int
	processed       int
	accepted        int
	warnings        int
	blockedOrErrors int

	batchDone  int // completed batches
	batchCount int

	recent []upload.Record // newest last, capped at maxRecentItems

	bar  progress.Model
	spin spinner.Model

	result *upload.Result
	err    error

	width  int
	height int
}

// NewUploadModel creates a model for an upload of total items. cancel is
// invoked when the user presses q or ctrl+c; pass the session's Cancel.
func NewUploadModel(total int, cancel func()) UploadModel {
	if cancel == nil {
		cancel = func() {}
	}

	bar := progress.New(progress.WithDefaultGradient())
	spin := spinner.New(spinner.WithSpinner(spinner.Dot), spinner.WithStyle(SpinnerStyle))

	return UploadModel{
		state:  UploadStateRunning,
		cancel: cancel,
		total:  total,
		bar:    bar,
		spin:   spin,
		width:  defaultWidth,
		height: defaultHeight,
	}
}

// Init starts the spinner (Bubble Tea interface).
func (m UploadModel) Init() tea.Cmd {
	return m.spin.Tick
}

// Update handles messages and updates the model state (Bubble Tea interface).
func (m UploadModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.bar.Width = barWidth(msg.Width)
		return m, nil

	case tea.KeyMsg:
		return m.handleKeyMsg(msg)

	case ItemClassifiedMsg:
		return m.handleItemClassified(msg)

	case BatchCompleteMsg:
		m.batchDone = msg.Index + 1
		m.batchCount = msg.Count
		return m, nil

	case UploadDoneMsg:
		m.state = UploadStateDone
		m.result = msg.Result
		m.err = msg.Err
		return m, tea.Quit

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spin, cmd = m.spin.Update(msg)
		return m, cmd

	case progress.FrameMsg:
		pm, cmd := m.bar.Update(msg)
		m.bar = pm.(progress.Model)
		return m, cmd
	}

	return m, nil
}

// handleKeyMsg processes keyboard input. The first q/ctrl+c requests a
// graceful cancel; a second ctrl+c abandons the view without waiting.
func (m UploadModel) handleKeyMsg(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case keyQuit, keyCtrlC:
		if m.state == UploadStateRunning {
			m.cancel()
			m.state = UploadStateCancelling
			return m, nil
		}
		if m.state == UploadStateCancelling && msg.String() == keyCtrlC {
			m.state = UploadStateDone
			return m, tea.Quit
		}
	}
	return m, nil
}

func (m UploadModel) handleItemClassified(msg ItemClassifiedMsg) (tea.Model, tea.Cmd) {
	switch msg.Record.Bucket {
	case upload.BucketAccepted:
		m.accepted++
	case upload.BucketWarning:
		m.warnings++
	case upload.BucketBlocked, upload.BucketError:
		m.blockedOrErrors++
	}
	m.processed++

	m.recent = append(m.recent, msg.Record)
	if len(m.recent) > maxRecentItems {
		m.recent = m.recent[len(m.recent)-maxRecentItems:]
	}

	return m, m.bar.SetPercent(m.fraction())
}

// fraction returns processed/total clamped to [0,1].
func (m UploadModel) fraction() float64 {
	if m.total <= 0 {
		return 0
	}
	f := float64(m.processed) / float64(m.total)
	if f > 1 {
		f = 1
	}
	return f
}

// barWidth fits the progress bar to the terminal.
func barWidth(termWidth int) int {
	w := termWidth - 2*borderPadding
	if w > maxBarWidth {
		w = maxBarWidth
	}
	if w < 1 {
		w = 1
	}
	return w
}

// Final returns the session result and error captured by UploadDoneMsg. Both
// are nil until the model reaches UploadStateDone.
func (m UploadModel) Final() (*upload.Result, error) {
	return m.result, m.err
}

// State returns the model's lifecycle state.
func (m UploadModel) State() UploadState {
	return m.state
}
