// internal/tui/app.go
//
// Terminal inspector for workflow files. Built on bubbletea, which follows
// The Elm Architecture:
//
// 1. Model: Your application state
// 2. Update: A function that updates state based on messages
// 3. View: A function that renders state to a string
//
// The flow is: User Input -> Message -> Update -> New Model -> View -> Screen

package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/mlanghorne/ghactions/internal/config"
	"github.com/mlanghorne/ghactions/internal/lint"
	"github.com/mlanghorne/ghactions/internal/workflow"
)

// appState represents which "screen" we're on
type appState int

const (
	stateWorkflowList appState = iota // Picker over the discovered workflow files
	stateJobDetail                    // Job-by-job inspection of one workflow
)

// WorkflowLoader resolves the workflows shown by the inspector.
type WorkflowLoader func(cfg *config.Config) ([]workflow.Workflow, error)

// Logger is the minimal logging surface the inspector needs.
type Logger interface {
	Printf(format string, args ...any)
}

// AppOption customizes App construction for tests and alternate runtimes.
type AppOption func(*App)

// WithWorkflowLoader overrides how workflows are discovered.
func WithWorkflowLoader(loader WorkflowLoader) AppOption {
	return func(a *App) {
		if loader != nil {
			a.loader = loader
		}
	}
}

// WithLogger attaches an activity logger.
func WithLogger(l Logger) AppOption {
	return func(a *App) {
		if l != nil {
			a.logger = l
		}
	}
}

// App is the main application model. In bubbletea, this holds ALL your state.
type App struct {
	state  appState
	config *config.Config
	logger Logger
	loader WorkflowLoader

	workflows []workflow.Workflow
	findings  [][]lint.Finding

	workflowMenu list.Model
	jobView      *jobView
	statusMsg    string
	err          error

	width  int
	height int
}

// workflowItem implements list.Item for the workflow picker.
type workflowItem struct {
	title string
	desc  string
}

func (i workflowItem) Title() string       { return i.title }
func (i workflowItem) Description() string { return i.desc }
func (i workflowItem) FilterValue() string { return i.title }

// NewApp creates a new App instance rooted at projectDir.
func NewApp(projectDir string, opts ...AppOption) (*App, error) {
	cfg, err := config.NewConfig(projectDir)
	if err != nil {
		return nil, err
	}
	app := &App{
		state:  stateWorkflowList,
		config: cfg,
		logger: nopLogger{},
		loader: defaultWorkflowLoader,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(app)
		}
	}
	if err := app.reload(); err != nil {
		return nil, err
	}
	menu := list.New(app.menuItems(), list.NewDefaultDelegate(), 0, 0)
	menu.Title = "⬡ WORKFLOWS"
	menu.SetShowStatusBar(false)
	menu.SetFilteringEnabled(false)
	app.workflowMenu = menu
	app.statusMsg = fmt.Sprintf("%d workflow(s) loaded from %s", len(app.workflows), cfg.WorkflowsDir())
	return app, nil
}

func defaultWorkflowLoader(cfg *config.Config) ([]workflow.Workflow, error) {
	return workflow.LoadWorkflowDir(cfg.WorkflowsDir())
}

func (a *App) reload() error {
	workflows, err := a.loader(a.config)
	if err != nil {
		return err
	}
	a.workflows = workflows
	a.findings = make([][]lint.Finding, len(workflows))
	opts := lint.Options{Disabled: a.config.DisabledLintRules()}
	for i, wf := range workflows {
		a.findings[i] = lint.Check(wf, opts)
	}
	a.logger.Printf("inspector: loaded %d workflow(s)", len(workflows))
	return nil
}

func (a *App) menuItems() []list.Item {
	items := make([]list.Item, 0, len(a.workflows))
	for i, wf := range a.workflows {
		name := strings.TrimSpace(wf.Name)
		if name == "" {
			name = wf.Path
		}
		desc := fmt.Sprintf("%d job(s) · triggers: %s", wf.Jobs.Len(), strings.Join(wf.On.Names(), ", "))
		if n := len(a.findings[i]); n > 0 {
			desc += fmt.Sprintf(" · %d finding(s)", n)
		}
		items = append(items, workflowItem{title: name, desc: desc})
	}
	return items
}

// Init is called once when the program starts.
func (a *App) Init() tea.Cmd {
	return nil
}

// Update is called when a message is received.
func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		a.workflowMenu.SetSize(maxInt(0, msg.Width-6), maxInt(0, msg.Height-8))
		return a, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c":
			return a, tea.Quit
		case "q":
			if a.state == stateWorkflowList {
				return a, tea.Quit
			}
		case "esc":
			if a.state == stateJobDetail {
				a.state = stateWorkflowList
				a.jobView = nil
				return a, nil
			}
		case "r":
			if err := a.reload(); err != nil {
				a.err = err
				a.statusMsg = fmt.Sprintf("Reload failed: %v", err)
				return a, nil
			}
			a.err = nil
			a.workflowMenu.SetItems(a.menuItems())
			a.statusMsg = "Workflows reloaded"
			return a, nil
		case "enter":
			if a.state == stateWorkflowList {
				return a.openSelectedWorkflow()
			}
		}
	}

	switch a.state {
	case stateWorkflowList:
		var cmd tea.Cmd
		a.workflowMenu, cmd = a.workflowMenu.Update(msg)
		return a, cmd
	case stateJobDetail:
		if a.jobView != nil {
			a.jobView.Update(msg)
		}
	}
	return a, nil
}

func (a *App) openSelectedWorkflow() (tea.Model, tea.Cmd) {
	idx := a.workflowMenu.Index()
	if idx < 0 || idx >= len(a.workflows) {
		a.statusMsg = "No workflow selected"
		return a, nil
	}
	a.jobView = newJobView(a.workflows[idx], a.findings[idx])
	a.state = stateJobDetail
	a.logger.Printf("inspector: opened %s", a.workflows[idx].Path)
	return a, nil
}

// View renders the current state to a string.
func (a *App) View() string {
	header := lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("#5B8DEF")).
		MarginBottom(1).
		Render("⬡ GHACTIONS INSPECTOR")
	var content string
	switch a.state {
	case stateWorkflowList:
		if len(a.workflows) == 0 {
			content = fmt.Sprintf("No workflows found under %s", a.config.WorkflowsDir())
		} else {
			content = a.workflowMenu.View()
		}
	case stateJobDetail:
		if a.jobView != nil {
			content = a.jobView.View()
		}
	}
	box := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("#444444")).
		Padding(0, 1).
		Render(content)
	footer := lipgloss.NewStyle().
		Foreground(lipgloss.Color("#888888")).
		MarginTop(1).
		Render(a.statusHint())
	return strings.Join([]string{header, box, footer}, "\n")
}

func (a *App) statusHint() string {
	hint := "enter=inspect  r=reload  q=quit"
	if a.state == stateJobDetail {
		hint = "up/down=select job  esc=back"
	}
	if a.statusMsg == "" {
		return hint
	}
	return a.statusMsg + "\n" + hint
}

type nopLogger struct{}

func (nopLogger) Printf(string, ...any) {}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
