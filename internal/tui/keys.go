package tui

import (
	"tickerbar/internal/domain"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
)

type keyMap struct {
	Day    key.Binding
	Week   key.Binding
	Month  key.Binding
	Year   key.Binding
	View   key.Binding
	Up     key.Binding
	Down   key.Binding
	Toggle key.Binding
	All    key.Binding
	None   key.Binding
	Quit   key.Binding
}

func defaultKeyMap() keyMap {
	return keyMap{
		Day:    key.NewBinding(key.WithKeys("d"), key.WithHelp("d", "day")),
		Week:   key.NewBinding(key.WithKeys("w"), key.WithHelp("w", "week")),
		Month:  key.NewBinding(key.WithKeys("m"), key.WithHelp("m", "month")),
		Year:   key.NewBinding(key.WithKeys("y"), key.WithHelp("y", "year")),
		View:   key.NewBinding(key.WithKeys("tab"), key.WithHelp("tab", "view")),
		Up:     key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "up")),
		Down:   key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "down")),
		Toggle: key.NewBinding(key.WithKeys(" "), key.WithHelp("space", "toggle")),
		All:    key.NewBinding(key.WithKeys("a"), key.WithHelp("a", "all")),
		None:   key.NewBinding(key.WithKeys("n"), key.WithHelp("n", "none")),
		Quit:   key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
	}
}

// periodFor maps a period binding to its period.
func (k keyMap) periodFor(msg tea.KeyMsg) (domain.Period, bool) {
	switch {
	case key.Matches(msg, k.Day):
		return domain.PeriodDay, true
	case key.Matches(msg, k.Week):
		return domain.PeriodWeek, true
	case key.Matches(msg, k.Month):
		return domain.PeriodMonth, true
	case key.Matches(msg, k.Year):
		return domain.PeriodYear, true
	}
	return "", false
}

// ShortHelp implements help.KeyMap.
func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Day, k.Week, k.Month, k.Year, k.View, k.Toggle, k.All, k.None, k.Quit}
}

// FullHelp implements help.KeyMap.
func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Day, k.Week, k.Month, k.Year},
		{k.View, k.Up, k.Down},
		{k.Toggle, k.All, k.None, k.Quit},
	}
}
