// Package ui is the view selection and currency visibility state slice.
package ui

import (
	"slices"

	"tickerbar/internal/domain"
)

type View string

const (
	ViewPrices    View = "prices"
	ViewPortfolio View = "portfolio"
	ViewSettings  View = "settings"
)

// Views lists the available views; the first one is the initial view.
var Views = []View{ViewPrices, ViewPortfolio, ViewSettings}

type State struct {
	View              View     `json:"view"`
	VisibleCurrencies []string `json:"visibleCurrencies"`
}

func InitialState() State {
	return State{
		View:              Views[0],
		VisibleCurrencies: slices.Clone(domain.Currencies),
	}
}

// IsVisible reports whether symbol is in the visible set.
func (s State) IsVisible(symbol string) bool {
	return slices.Contains(s.VisibleCurrencies, symbol)
}

type Action interface {
	Type() string
}

type ChangeView struct{ View View }

type ToggleCurrency struct{ Symbol string }

type ToggleCurrenciesAll struct{}

type ToggleCurrenciesNone struct{}

func (ChangeView) Type() string           { return "change-view" }
func (ToggleCurrency) Type() string       { return "toggle-currency" }
func (ToggleCurrenciesAll) Type() string  { return "toggle-currency-all" }
func (ToggleCurrenciesNone) Type() string { return "toggle-currency-none" }

func Reducer(state State, action Action) State {
	switch a := action.(type) {
	case ChangeView:
		if !slices.Contains(Views, a.View) {
			return state
		}
		state.View = a.View
		return state

	case ToggleCurrency:
		if slices.Contains(state.VisibleCurrencies, a.Symbol) {
			state.VisibleCurrencies = slices.DeleteFunc(slices.Clone(state.VisibleCurrencies), func(c string) bool {
				return c == a.Symbol
			})
			return state
		}
		visible := make([]string, 0, len(state.VisibleCurrencies)+1)
		visible = append(visible, state.VisibleCurrencies...)
		state.VisibleCurrencies = append(visible, a.Symbol)
		return state

	case ToggleCurrenciesAll:
		state.VisibleCurrencies = slices.Clone(domain.Currencies)
		return state

	case ToggleCurrenciesNone:
		state.VisibleCurrencies = []string{}
		return state
	}
	return state
}

// NextView returns the view after v, wrapping around.
func NextView(v View) View {
	i := slices.Index(Views, v)
	return Views[(i+1)%len(Views)]
}
