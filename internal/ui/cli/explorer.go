package cli

import (
	"easierless/internal/engine/lookup"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

var (
	titleStyle = lipgloss.NewStyle().
			MarginLeft(2).
			Foreground(lipgloss.Color("#3B82F6")).
			Bold(true).
			Render

	docStyle = lipgloss.NewStyle().Margin(1, 2)

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#F87171")).
			Bold(true)

	warmStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FBBF24")).
			Bold(true)

	successStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#10B981")).
			Bold(true)

	statusStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#64748B")).
			Italic(true)
)

type item struct {
	title, desc string
	completion  lookup.CompletionItem
}

func (i item) Title() string       { return i.title }
func (i item) Description() string { return i.desc }
func (i item) FilterValue() string { return i.completion.FilterText }

type panelMode int

const (
	panelVariables panelMode = iota
	panelDefinitions
)

type updateMsg struct {
	items      []lookup.CompletionItem
	sources    map[string]string
	generation string
	warm       bool
	fileCount  int
}

type reloadResultMsg struct {
	err error
}

type model struct {
	variableList   list.Model
	definitionList list.Model
	mode           panelMode

	sources    map[string]string
	generation string
	warm       bool
	fileCount  int
	lastUpdate time.Time

	detail  string
	status  string
	reload  func() error
	symbols int
}

func (m model) Init() tea.Cmd {
	return nil
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if next, cmd, handled := handleKey(msg, m); handled {
			return next, cmd
		}
	case tea.WindowSizeMsg:
		h, v := docStyle.GetFrameSize()
		width := msg.Width - h
		height := msg.Height - v - 8
		if height < 5 {
			height = 5
		}
		m.variableList.SetSize(width, height)
		m.definitionList.SetSize(width, height)
	case updateMsg:
		m = applyUpdate(m, msg)
	case reloadResultMsg:
		if msg.err != nil {
			m.status = errorStyle.Render(fmt.Sprintf("Reload failed: %v", msg.err))
		} else {
			m.status = statusStyle.Render("Reloaded")
		}
	}

	var cmd tea.Cmd
	if m.mode == panelVariables {
		m.variableList, cmd = m.variableList.Update(msg)
	} else {
		m.definitionList, cmd = m.definitionList.Update(msg)
	}
	return m, cmd
}

func handleKey(msg tea.KeyMsg, m model) (model, tea.Cmd, bool) {
	if m.activeList().FilterState() == list.Filtering {
		return m, nil, false
	}
	switch msg.String() {
	case "ctrl+c", "q":
		return m, tea.Quit, true
	case "tab":
		if m.mode == panelVariables {
			m.mode = panelDefinitions
		} else {
			m.mode = panelVariables
		}
		m.detail = ""
		return m, nil, true
	case "enter":
		m.detail = m.selectedDetail()
		return m, nil, true
	case "esc":
		if m.detail != "" {
			m.detail = ""
			return m, nil, true
		}
	case "r":
		if m.reload == nil {
			return m, nil, true
		}
		m.status = statusStyle.Render("Reloading...")
		reload := m.reload
		return m, func() tea.Msg { return reloadResultMsg{err: reload()} }, true
	}
	return m, nil, false
}

func applyUpdate(m model, msg updateMsg) model {
	var vars, defs []list.Item
	for _, c := range msg.items {
		it := item{title: c.Symbol, desc: fmt.Sprintf("%s  %s", c.Kind, summarizeDetail(c.Detail)), completion: c}
		if c.Kind == lookup.KindMethod {
			defs = append(defs, it)
		} else {
			vars = append(vars, it)
		}
	}
	m.variableList.SetItems(vars)
	m.definitionList.SetItems(defs)
	m.sources = msg.sources
	m.generation = msg.generation
	m.warm = msg.warm
	m.fileCount = msg.fileCount
	m.symbols = len(msg.items)
	m.lastUpdate = time.Now()
	m.detail = ""
	return m
}

func summarizeDetail(detail string) string {
	line := strings.TrimSpace(strings.SplitN(detail, "\n", 2)[0])
	if len(line) > 60 {
		line = line[:57] + "..."
	}
	return line
}

func (m model) activeList() list.Model {
	if m.mode == panelDefinitions {
		return m.definitionList
	}
	return m.variableList
}

func (m model) selectedDetail() string {
	selected, ok := m.activeList().SelectedItem().(item)
	if !ok {
		return ""
	}
	c := selected.completion
	out := lookup.FormatHover(c.Symbol, c.Detail)
	if src, ok := m.sources[c.Symbol]; ok {
		out += "\n\nDefined in " + src
	}
	return out
}

func (m model) View() string {
	status := statusStyle.Render(fmt.Sprintf("Last update: %v | %d files | %d symbols | generation %s",
		m.lastUpdate.Format("15:04:05"), m.fileCount, m.symbols, shortID(m.generation)))

	summary := successStyle.Render("Live index")
	if m.warm {
		summary = warmStyle.Render("Cached index")
	}

	header := fmt.Sprintf("%s\n%s | %s\n", titleStyle("Less Symbol Explorer"), status, summary)
	help := statusStyle.Render("Keys: tab panel | / filter | enter details | esc back | r reload | q quit")

	body := m.activeList().View()
	if m.detail != "" {
		body += "\n\n" + m.detail
	}
	if m.status != "" {
		body += "\n\n" + m.status
	}
	return docStyle.Render(header + "\n" + help + "\n\n" + body)
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	if id == "" {
		return "-"
	}
	return id
}

func initialModel(reload func() error) model {
	variableList := list.New([]list.Item{}, list.NewDefaultDelegate(), 0, 0)
	variableList.Title = "Variables"
	variableList.SetShowStatusBar(false)
	variableList.SetFilteringEnabled(true)

	definitionList := list.New([]list.Item{}, list.NewDefaultDelegate(), 0, 0)
	definitionList.Title = "Mixins and Classes"
	definitionList.SetShowStatusBar(false)
	definitionList.SetFilteringEnabled(true)

	return model{
		variableList:   variableList,
		definitionList: definitionList,
		mode:           panelVariables,
		reload:         reload,
		lastUpdate:     time.Now(),
	}
}

func sourceLabels(sources map[string]string, root string) map[string]string {
	out := make(map[string]string, len(sources))
	for sym, src := range sources {
		if rel, err := filepath.Rel(root, src); err == nil && !strings.HasPrefix(rel, "..") {
			src = filepath.ToSlash(rel)
		}
		out[sym] = src
	}
	return out
}
