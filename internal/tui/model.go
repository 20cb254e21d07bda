// Package tui renders the two state slices and turns key presses into
// actions.
package tui

import (
	"sync"

	"tickerbar/internal/domain"
	"tickerbar/internal/prices"
	"tickerbar/internal/store"
	"tickerbar/internal/ui"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
)

// PriceSource is the read side of the shared prices store.
type PriceSource interface {
	GetState() prices.State
	Subscribe(observer store.Observer[prices.State]) (unsubscribe func())
}

// UISource is the session's view/visibility store.
type UISource interface {
	Dispatch(action ui.Action)
	GetState() ui.State
	Subscribe(observer store.Observer[ui.State]) (unsubscribe func())
}

// PeriodSelector switches the period and refetches.
type PeriodSelector interface {
	SelectPeriod(period domain.Period) error
}

type stateChangedMsg struct{}

type intentDoneMsg struct{ err error }

// Model is the bubbletea model for one terminal session.
type Model struct {
	prices   PriceSource
	ui       UISource
	selector PeriodSelector

	changes chan struct{}
	closer  *closer

	priceState prices.State
	uiState    ui.State
	cursor     int
	lastErr    error

	width  int
	height int
	keys   keyMap
	help   help.Model
}

type closer struct {
	once  sync.Once
	funcs []func()
}

func New(priceSource PriceSource, uiSource UISource, selector PeriodSelector) Model {
	m := Model{
		prices:     priceSource,
		ui:         uiSource,
		selector:   selector,
		changes:    make(chan struct{}, 1),
		closer:     &closer{},
		priceState: priceSource.GetState(),
		uiState:    uiSource.GetState(),
		keys:       defaultKeyMap(),
		help:       help.New(),
	}

	// Observers run on the dispatching goroutine; they only signal.
	notify := func() {
		select {
		case m.changes <- struct{}{}:
		default:
		}
	}
	m.closer.funcs = append(m.closer.funcs,
		priceSource.Subscribe(func(prices.State) { notify() }),
		uiSource.Subscribe(func(ui.State) { notify() }),
	)
	return m
}

// Close removes the store observers. Safe to call more than once.
func (m Model) Close() {
	m.closer.once.Do(func() {
		for _, unsubscribe := range m.closer.funcs {
			unsubscribe()
		}
	})
}

// SetSize sets the initial terminal size.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
	m.help.Width = width
}

func (m Model) Init() tea.Cmd {
	return m.waitForChange()
}

func (m Model) waitForChange() tea.Cmd {
	changes := m.changes
	return func() tea.Msg {
		<-changes
		return stateChangedMsg{}
	}
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case stateChangedMsg:
		m.priceState = m.prices.GetState()
		m.uiState = m.ui.GetState()
		return m, m.waitForChange()

	case intentDoneMsg:
		m.lastErr = msg.err
		return m, nil

	case tea.WindowSizeMsg:
		m.SetSize(msg.Width, msg.Height)
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)
	}
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if period, ok := m.keys.periodFor(msg); ok {
		return m, m.selectPeriod(period)
	}

	switch {
	case key.Matches(msg, m.keys.Quit):
		m.Close()
		return m, tea.Quit
	case key.Matches(msg, m.keys.View):
		return m, m.dispatch(ui.ChangeView{View: ui.NextView(m.uiState.View)})
	case key.Matches(msg, m.keys.Up):
		if m.cursor > 0 {
			m.cursor--
		}
	case key.Matches(msg, m.keys.Down):
		if m.cursor < len(domain.Currencies)-1 {
			m.cursor++
		}
	case key.Matches(msg, m.keys.Toggle):
		return m, m.dispatch(ui.ToggleCurrency{Symbol: domain.Currencies[m.cursor]})
	case key.Matches(msg, m.keys.All):
		return m, m.dispatch(ui.ToggleCurrenciesAll{})
	case key.Matches(msg, m.keys.None):
		return m, m.dispatch(ui.ToggleCurrenciesNone{})
	}
	return m, nil
}

// dispatch and selectPeriod run off the event loop so a store observer
// signalling the model can never block it.
func (m Model) dispatch(action ui.Action) tea.Cmd {
	uiStore := m.ui
	return func() tea.Msg {
		uiStore.Dispatch(action)
		return nil
	}
}

func (m Model) selectPeriod(period domain.Period) tea.Cmd {
	selector := m.selector
	return func() tea.Msg {
		return intentDoneMsg{err: selector.SelectPeriod(period)}
	}
}
