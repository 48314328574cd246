package view

import (
	"fmt"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/kiwipeso/kiwipeso/internal/history"
	"github.com/kiwipeso/kiwipeso/internal/rate"
)

type ConvertModel struct {
	CommonModel
	historyService *history.Service
	rateProvider   *rate.Provider

	amountInput textinput.Model
	nzd         string
	status      string
	err         error
}

func NewConvertModel(historySvc *history.Service, rates *rate.Provider) ConvertModel {
	ti := textinput.New()
	ti.Placeholder = "0.00"
	ti.Prompt = "PHP "
	ti.CharLimit = 16
	ti.Width = 20
	ti.Focus()

	return ConvertModel{
		historyService: historySvc,
		rateProvider:   rates,
		amountInput:    ti,
	}
}

func (m ConvertModel) Title() string { return "Convert" }
func (m ConvertModel) ShortHelp() string {
	return "Esc: back | Enter: save conversion | r: refresh rate"
}

func (m ConvertModel) Init() tea.Cmd {
	return textinput.Blink
}

func (m ConvertModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case convertSaveMsg:
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}

		m.err = nil
		m.status = fmt.Sprintf("Saved: %s PHP = %s NZD", msg.rec.PHPAmount, msg.rec.NZDAmount)
		m.amountInput.SetValue("")
		m.nzd = ""

		return m, nil

	case rateRefreshMsg:
		m.nzd = m.rateProvider.Convert(m.amountInput.Value())
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "esc":
			return m, Back
		case "enter":
			return m, m.saveCmd()
		case "r":
			return m, m.refreshCmd()
		}
	}

	var cmd tea.Cmd
	m.amountInput, cmd = m.amountInput.Update(msg)
	m.nzd = m.rateProvider.Convert(m.amountInput.Value())

	return m, cmd
}

func (m ConvertModel) View() string {
	var rateLine string
	if snap, ok := m.rateProvider.Current(); ok {
		rateLine = fmt.Sprintf("1 PHP = %.4f NZD", snap.Rate)
		if snap.Fallback {
			rateLine += lipgloss.NewStyle().Faint(true).Render(" (offline rate)")
		}
	} else {
		rateLine = "No exchange rate yet. Press r to fetch."
	}

	result := "NZD —"
	if m.nzd != "" {
		result = "NZD " + m.nzd
	}

	content := lipgloss.JoinVertical(lipgloss.Left,
		rateLine,
		"",
		m.amountInput.View(),
		lipgloss.NewStyle().Bold(true).PaddingTop(1).Render(result),
	)

	if m.err != nil {
		content += "\n\n" + lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Render(m.err.Error())
	}

	if m.status != "" {
		content += "\n\n" + lipgloss.NewStyle().Faint(true).Render(m.status)
	}

	return lipgloss.NewStyle().Padding(1, 2).Render(content)
}

// Messages

type convertSaveMsg struct {
	rec history.Record
	err error
}

func (m ConvertModel) saveCmd() tea.Cmd {
	amount := m.amountInput.Value()

	return func() tea.Msg {
		snap, ok := m.rateProvider.Current()
		if !ok {
			return convertSaveMsg{err: fmt.Errorf("no exchange rate available yet")}
		}

		// Rate and converted amount come from the same snapshot; a
		// refresh landing mid-save must not split the pair.
		nzd := snap.Convert(amount)
		if nzd == "" {
			return convertSaveMsg{err: fmt.Errorf("%q is not a convertible amount", amount)}
		}

		ctx, cancel := OpCtx()
		defer cancel()

		rec, err := m.historyService.Append(ctx, amount, nzd, snap.Rate)
		return convertSaveMsg{rec: rec, err: err}
	}
}

type rateRefreshMsg struct{}

func (m ConvertModel) refreshCmd() tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := OpCtx()
		defer cancel()

		m.rateProvider.Refresh(ctx)
		return rateRefreshMsg{}
	}
}
