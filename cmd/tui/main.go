package main

import (
	"context"
	"log/slog"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/joho/godotenv"

	"github.com/kiwipeso/kiwipeso/cmd/tui/internal/view"
	"github.com/kiwipeso/kiwipeso/internal/advisory"
	"github.com/kiwipeso/kiwipeso/internal/config"
	"github.com/kiwipeso/kiwipeso/internal/database"
	"github.com/kiwipeso/kiwipeso/internal/history"
	"github.com/kiwipeso/kiwipeso/internal/rate"
	fileStore "github.com/kiwipeso/kiwipeso/internal/storage/file"
	memoryStore "github.com/kiwipeso/kiwipeso/internal/storage/memory"
	postgresStore "github.com/kiwipeso/kiwipeso/internal/storage/postgres"
)

type model struct {
	historyService *history.Service
	rateProvider   *rate.Provider
	board          *advisory.Board

	currentView View

	convertView view.ConvertModel
	historyView view.HistoryModel
}

type View int

const (
	ViewMenu    View = 0
	ViewConvert View = 1
	ViewHistory View = 2
)

func initialModel() model {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	ctx := context.Background()
	board := advisory.NewBoard()

	store, err := newStore(ctx, cfg)
	if err != nil {
		slog.Error("failed to open storage", "driver", cfg.Storage.Driver, "error", err)
		os.Exit(1)
	}

	historySvc := history.NewService(store, board)
	historySvc.Load(ctx)

	rates := rate.NewProvider(cfg.Rate.BaseURL, board)
	rates.Refresh(ctx)

	return model{
		historyService: historySvc,
		rateProvider:   rates,
		board:          board,
		currentView:    ViewMenu,
		convertView:    view.NewConvertModel(historySvc, rates),
		historyView:    view.NewHistoryModel(historySvc),
	}
}

func newStore(ctx context.Context, cfg *config.Config) (history.Store, error) {
	switch cfg.Storage.Driver {
	case "postgres":
		db, err := database.New(cfg.ConnectionString())
		if err != nil {
			return nil, err
		}

		return postgresStore.New(ctx, db)
	case "memory":
		return memoryStore.New(), nil
	default:
		return fileStore.New(cfg.Storage.Dir, cfg.Storage.QuotaBytes)
	}
}

func (m model) Init() tea.Cmd {
	return nil
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		if m.currentView == ViewMenu {
			switch msg.String() {
			case "ctrl+c", "q":
				return m, tea.Quit
			case "1":
				m.currentView = ViewConvert
				m.convertView = view.NewConvertModel(m.historyService, m.rateProvider)

				return m, m.convertView.Init()
			case "2":
				m.currentView = ViewHistory
				m.historyView = view.NewHistoryModel(m.historyService)

				return m, m.historyView.Init()
			}
		}
	case view.BackMsg:
		m.currentView = ViewMenu
		return m, nil
	}

	switch m.currentView {
	case ViewConvert:
		var newModel tea.Model
		newModel, cmd = m.convertView.Update(msg)
		m.convertView = newModel.(view.ConvertModel)
	case ViewHistory:
		var newModel tea.Model
		newModel, cmd = m.historyView.Update(msg)
		m.historyView = newModel.(view.HistoryModel)
	}

	return m, cmd
}

func (m model) View() string {
	switch m.currentView {
	case ViewMenu:
		advisoriesLine := ""
		if msgs := m.board.List(); len(msgs) > 0 {
			for _, a := range msgs {
				advisoriesLine += "! " + a + "\n"
			}
			advisoriesLine = lipgloss.NewStyle().Foreground(lipgloss.Color("214")).Render(advisoriesLine) + "\n"
		}

		return lipgloss.NewStyle().Padding(2).Render(
			"KiwiPeso TUI\n\n" +
				advisoriesLine +
				"1. Convert PHP to NZD\n" +
				"2. Conversion History\n\n" +
				"q. Quit",
		)
	case ViewConvert:
		return m.convertView.View()
	case ViewHistory:
		return m.historyView.View()
	}

	return "Unknown View"
}

func main() {
	p := tea.NewProgram(initialModel())
	if _, err := p.Run(); err != nil {
		slog.Error("failed to run TUI", "error", err)
		os.Exit(1)
	}
}
