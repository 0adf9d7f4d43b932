package tui

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"todolist/internal/client"
	"todolist/internal/models"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
)

type Options struct {
	API     client.TodoAPI
	Timeout time.Duration
}

// Model is the Bubble Tea model of the todo list. All state changes go
// through the controller, so the list only shows what the server accepted.
type Model struct {
	ctrl    *client.Controller
	timeout time.Duration

	list   list.Model
	input  textinput.Model
	adding bool

	status    string
	statusErr bool
}

type todosLoadedMsg struct{}

type todoAddedMsg struct {
	todo models.Todo
}

type todoDeletedMsg struct {
	id int64
}

type errMsg struct {
	op  string
	err error
}

// listItem adapts models.Todo to bubbles/list.Item.
type listItem struct {
	todo models.Todo
}

func (i listItem) Title() string { return i.todo.Title }
func (i listItem) Description() string { return "" }
func (i listItem) FilterValue() string { return i.todo.Title }

type itemDelegate struct{}

func (d itemDelegate) Height() int { return 1 }
func (d itemDelegate) Spacing() int { return 0 }
func (d itemDelegate) Update(tea.Msg, *list.Model) tea.Cmd { return nil }
func (d itemDelegate) Render(w io.Writer, m list.Model, index int, item list.Item) {
	it, _ := item.(listItem)
	prefix := "  "
	if index == m.Index() {
		prefix = selectedStyle.Render("> ")
	}
	fmt.Fprintf(w, "%s%s %s", prefix, mutedStyle.Render(fmt.Sprintf("#%d", it.todo.ID)), it.todo.Title)
}

func Run(opts Options) error {
	_, err := tea.NewProgram(NewModel(opts), tea.WithAltScreen()).Run()
	return err
}

func NewModel(opts Options) Model {
	l := list.New([]list.Item{}, itemDelegate{}, 0, 0)
	l.Title = "Todos"
	l.Styles.Title = titleStyle
	l.Styles.HelpStyle = helpStyle
	l.SetShowStatusBar(false)
	l.SetFilteringEnabled(false)
	l.SetSize(80, 20)
	l.SetStatusBarItemName("todo", "todos")

	addBind := key.NewBinding(key.WithKeys("a"), key.WithHelp("a", "add"))
	delBind := key.NewBinding(key.WithKeys("d"), key.WithHelp("d", "delete"))
	reloadBind := key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "reload"))
	l.AdditionalShortHelpKeys = func() []key.Binding { return []key.Binding{addBind, delBind, reloadBind} }
	l.AdditionalFullHelpKeys = func() []key.Binding { return []key.Binding{addBind, delBind, reloadBind} }

	ti := textinput.New()
	ti.Prompt = "> "
	ti.Placeholder = "What needs doing?"
	ti.CharLimit = 500

	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return Model{
		ctrl:    client.NewController(opts.API),
		timeout: timeout,
		list:    l,
		input:   ti,
	}
}

func (m Model) Init() tea.Cmd {
	return m.loadCmd()
}

func (m Model) loadCmd() tea.Cmd {
	ctrl, timeout := m.ctrl, m.timeout
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		if err := ctrl.Load(ctx); err != nil {
			return errMsg{op: "load", err: err}
		}
		return todosLoadedMsg{}
	}
}

func (m Model) addCmd(title string) tea.Cmd {
	ctrl, timeout := m.ctrl, m.timeout
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		todo, err := ctrl.Add(ctx, title)
		if err != nil {
			return errMsg{op: "add", err: err}
		}
		return todoAddedMsg{todo: *todo}
	}
}

func (m Model) deleteCmd(id int64) tea.Cmd {
	ctrl, timeout := m.ctrl, m.timeout
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		if err := ctrl.Delete(ctx, id); err != nil {
			return errMsg{op: "delete", err: err}
		}
		return todoDeletedMsg{id: id}
	}
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		height := msg.Height - 6
		if height < 3 {
			height = 3
		}
		m.list.SetSize(msg.Width-4, height)
		return m, nil
	case todosLoadedMsg:
		m.syncList()
		m.setStatus(fmt.Sprintf("loaded %d todos", len(m.list.Items())), false)
		return m, nil
	case todoAddedMsg:
		m.syncList()
		m.list.Select(len(m.list.Items()) - 1)
		m.input.SetValue("")
		m.input.Blur()
		m.adding = false
		m.setStatus(fmt.Sprintf("added #%d", msg.todo.ID), false)
		return m, nil
	case todoDeletedMsg:
		m.syncList()
		m.setStatus(fmt.Sprintf("deleted #%d", msg.id), false)
		return m, nil
	case errMsg:
		// The input keeps its text so a failed add can be retried.
		m.setStatus(fmt.Sprintf("%s failed: %v", msg.op, msg.err), true)
		return m, nil
	}

	if m.adding {
		return m.updateAdding(msg)
	}

	if k, ok := msg.(tea.KeyMsg); ok {
		switch k.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		case "a":
			m.adding = true
			m.input.SetValue("")
			m.setStatus("", false)
			cmd := m.input.Focus()
			return m, cmd
		case "d":
			if it, ok := m.list.SelectedItem().(listItem); ok {
				return m, m.deleteCmd(it.todo.ID)
			}
			return m, nil
		case "r":
			return m, m.loadCmd()
		}
	}

	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

func (m Model) updateAdding(msg tea.Msg) (tea.Model, tea.Cmd) {
	if k, ok := msg.(tea.KeyMsg); ok {
		switch k.String() {
		case "enter":
			title := strings.TrimSpace(m.input.Value())
			if title == "" {
				m.setStatus("title cannot be empty", true)
				return m, nil
			}
			return m, m.addCmd(title)
		case "esc":
			m.adding = false
			m.input.SetValue("")
			m.input.Blur()
			m.setStatus("", false)
			return m, nil
		case "ctrl+c":
			return m, tea.Quit
		}
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m *Model) syncList() {
	todos := m.ctrl.Todos()
	items := make([]list.Item, 0, len(todos))
	for _, t := range todos {
		items = append(items, listItem{todo: t})
	}
	m.list.SetItems(items)
}

func (m *Model) setStatus(s string, isErr bool) {
	m.status = s
	m.statusErr = isErr
}

func (m Model) View() string {
	m.list.Title = fmt.Sprintf("%s   %s %d", titleStyle.Render("Todos"), accentStyle.Render("Total"), len(m.list.Items()))
	content := m.list.View()

	if m.adding {
		content += "\n" + barStyle.Render("Add todo\n"+m.input.View())
	}

	if m.status != "" {
		line := successStyle.Render("✔ " + m.status)
		if m.statusErr {
			line = errorStyle.Render("✖ " + m.status)
		}
		content += "\n" + line
	}
	return panelString(content)
}
