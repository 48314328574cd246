package view

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"

	"github.com/kiwipeso/kiwipeso/internal/history"
)

type historyState int

const (
	historyStateBrowse historyState = iota
	historyStateEdit
	historyStateConfirmClear
)

type HistoryModel struct {
	CommonModel
	historyService *history.Service

	state   historyState
	table   table.Model
	records []history.Record
	form    *huh.Form

	status string

	// Form bindings
	formStore  string
	formRating string
	confirmed  bool
}

func NewHistoryModel(historySvc *history.Service) HistoryModel {
	columns := []table.Column{
		{Title: "When", Width: 22},
		{Title: "PHP", Width: 10},
		{Title: "NZD", Width: 10},
		{Title: "Store", Width: 24},
		{Title: "Rating", Width: 7},
		{Title: "Photos", Width: 7},
	}

	t := table.New(
		table.WithColumns(columns),
		table.WithFocused(true),
		table.WithHeight(12),
	)

	s := table.DefaultStyles()
	s.Header = s.Header.
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(lipgloss.Color("240")).
		BorderBottom(true).
		Bold(false)
	s.Selected = s.Selected.
		Foreground(lipgloss.Color("229")).
		Background(lipgloss.Color("57")).
		Bold(false)
	t.SetStyles(s)

	m := HistoryModel{
		historyService: historySvc,
		table:          t,
	}
	m.refreshTable()

	return m
}

func (m HistoryModel) Title() string { return "Conversion History" }
func (m HistoryModel) ShortHelp() string {
	switch m.state {
	case historyStateEdit:
		return "Navigate form | Esc: cancel"
	case historyStateConfirmClear:
		return "Confirm"
	}

	return "Esc: back | e: edit | d: delete | c: clear all"
}

func (m HistoryModel) Init() tea.Cmd {
	return nil
}

func (m HistoryModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case historyMutateMsg:
		if msg.err != nil {
			m.status = fmt.Sprintf("Error: %v", msg.err)
		} else {
			m.status = msg.status
		}

		m.state = historyStateBrowse
		m.form = nil
		m.table.Focus()
		m.refreshTable()

		return m, nil

	case tea.WindowSizeMsg:
		m.table.SetHeight(msg.Height - 10)
		return m, nil
	}

	switch m.state {
	case historyStateBrowse:
		return m.updateBrowse(msg)
	case historyStateEdit, historyStateConfirmClear:
		return m.updateForm(msg)
	}

	return m, nil
}

func (m HistoryModel) updateBrowse(msg tea.Msg) (tea.Model, tea.Cmd) {
	if keyMsg, ok := msg.(tea.KeyMsg); ok {
		switch keyMsg.String() {
		case "esc":
			return m, Back
		case "e":
			return m.enterEditMode()
		case "d":
			return m, m.deleteCmd()
		case "c":
			return m.enterConfirmClear()
		}
	}

	var cmd tea.Cmd
	m.table, cmd = m.table.Update(msg)
	return m, cmd
}

func (m HistoryModel) enterEditMode() (tea.Model, tea.Cmd) {
	idx := m.table.Cursor()
	if idx < 0 || idx >= len(m.records) {
		return m, nil
	}

	rec := m.records[idx]
	m.formStore = rec.StoreName
	m.formRating = strconv.Itoa(rec.Rating)

	m.form = huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Key("store").
				Title("Store").
				Value(&m.formStore),

			huh.NewSelect[string]().
				Key("rating").
				Title("Rating").
				Options(
					huh.NewOption("unrated", "0"),
					huh.NewOption("1", "1"),
					huh.NewOption("2", "2"),
					huh.NewOption("3", "3"),
					huh.NewOption("4", "4"),
					huh.NewOption("5", "5"),
				).
				Value(&m.formRating),
		),
	).WithWidth(40).WithShowHelp(false)

	m.state = historyStateEdit
	m.table.Blur()

	return m, m.form.Init()
}

func (m HistoryModel) enterConfirmClear() (tea.Model, tea.Cmd) {
	if len(m.records) == 0 {
		return m, nil
	}

	m.confirmed = false
	m.form = huh.NewForm(
		huh.NewGroup(
			huh.NewConfirm().
				Title(fmt.Sprintf("Delete all %d saved conversions?", len(m.records))).
				Affirmative("Clear").
				Negative("Keep").
				Value(&m.confirmed),
		),
	).WithWidth(40).WithShowHelp(false)

	m.state = historyStateConfirmClear
	m.table.Blur()

	return m, m.form.Init()
}

func (m HistoryModel) updateForm(msg tea.Msg) (tea.Model, tea.Cmd) {
	if keyMsg, ok := msg.(tea.KeyMsg); ok {
		if keyMsg.Type == tea.KeyEsc {
			m.state = historyStateBrowse
			m.form = nil
			m.table.Focus()
			return m, nil
		}
	}

	form, cmd := m.form.Update(msg)
	if f, ok := form.(*huh.Form); ok {
		m.form = f
	}

	if m.form.State != huh.StateCompleted {
		return m, cmd
	}

	if m.state == historyStateConfirmClear {
		if !m.confirmed {
			return m, func() tea.Msg { return historyMutateMsg{} }
		}

		return m, m.clearCmd()
	}

	return m, m.saveCmd()
}

func (m HistoryModel) View() string {
	tableView := lipgloss.NewStyle().
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(lipgloss.Color("240")).
		Render(m.table.View())

	content := tableView
	if len(m.records) == 0 {
		content = lipgloss.NewStyle().Faint(true).Render("No saved conversions yet.")
	}

	if m.form != nil {
		panel := lipgloss.NewStyle().
			Padding(1, 2).
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("63")).
			Width(44).
			Render(m.form.View())

		content = lipgloss.JoinHorizontal(lipgloss.Top, content, panel)
	}

	if m.status != "" {
		content = lipgloss.NewStyle().Faint(true).Render(m.status) + "\n" + content
	}

	return lipgloss.NewStyle().Padding(1).Render(content)
}

func (m *HistoryModel) refreshTable() {
	m.records = m.historyService.List()

	rows := make([]table.Row, 0, len(m.records))
	for _, rec := range m.records {
		rows = append(rows, table.Row{
			rec.Timestamp,
			rec.PHPAmount,
			rec.NZDAmount,
			rec.StoreName,
			formatRating(rec.Rating),
			formatPhotos(rec),
		})
	}
	m.table.SetRows(rows)
}

func formatRating(rating int) string {
	if rating == 0 {
		return "-"
	}

	return strings.Repeat("*", rating)
}

func formatPhotos(rec history.Record) string {
	n := 0
	if rec.Photo1 != nil {
		n++
	}
	if rec.Photo2 != nil {
		n++
	}

	if n == 0 {
		return "-"
	}

	return strconv.Itoa(n)
}

// Messages

type historyMutateMsg struct {
	status string
	err    error
}

func (m HistoryModel) saveCmd() tea.Cmd {
	idx := m.table.Cursor()
	if idx < 0 || idx >= len(m.records) {
		return nil
	}

	id := m.records[idx].ID
	store := m.formStore
	rating, _ := strconv.Atoi(m.formRating)

	return func() tea.Msg {
		ctx, cancel := OpCtx()
		defer cancel()

		m.historyService.UpdateStoreName(ctx, id, store)
		if err := m.historyService.SetRating(ctx, id, rating); err != nil {
			return historyMutateMsg{err: err}
		}

		return historyMutateMsg{status: "Saved"}
	}
}

func (m HistoryModel) deleteCmd() tea.Cmd {
	idx := m.table.Cursor()
	if idx < 0 || idx >= len(m.records) {
		return nil
	}

	id := m.records[idx].ID

	return func() tea.Msg {
		ctx, cancel := OpCtx()
		defer cancel()

		m.historyService.Remove(ctx, id)
		return historyMutateMsg{status: "Deleted"}
	}
}

func (m HistoryModel) clearCmd() tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := OpCtx()
		defer cancel()

		m.historyService.Clear(ctx)
		return historyMutateMsg{status: "History cleared"}
	}
}
