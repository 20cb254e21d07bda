package ui

import (
	"slices"
	"testing"

	"tickerbar/internal/domain"
)

func TestInitialState(t *testing.T) {
	s := InitialState()
	if s.View != ViewPrices {
		t.Fatalf("expected prices view, got %s", s.View)
	}
	if !slices.Equal(s.VisibleCurrencies, domain.Currencies) {
		t.Fatalf("expected every currency visible, got %v", s.VisibleCurrencies)
	}
}

func TestChangeView(t *testing.T) {
	s := Reducer(InitialState(), ChangeView{View: ViewPortfolio})
	if s.View != ViewPortfolio {
		t.Fatalf("expected portfolio, got %s", s.View)
	}

	unchanged := Reducer(s, ChangeView{View: "charts"})
	if unchanged.View != ViewPortfolio {
		t.Fatalf("unknown view must be a no-op, got %s", unchanged.View)
	}
}

func TestToggleCurrencyRemovesPresent(t *testing.T) {
	initial := InitialState()
	s := Reducer(initial, ToggleCurrency{Symbol: "BTC"})

	want := slices.DeleteFunc(slices.Clone(domain.Currencies), func(c string) bool { return c == "BTC" })
	if !slices.Equal(s.VisibleCurrencies, want) {
		t.Fatalf("expected %v, got %v", want, s.VisibleCurrencies)
	}
	if !slices.Equal(initial.VisibleCurrencies, domain.Currencies) {
		t.Fatalf("input state was mutated: %v", initial.VisibleCurrencies)
	}
}

func TestToggleCurrencyAppendsMissing(t *testing.T) {
	s := State{View: ViewPrices, VisibleCurrencies: []string{"ETH", "SOL"}}
	s = Reducer(s, ToggleCurrency{Symbol: "BTC"})
	if !slices.Equal(s.VisibleCurrencies, []string{"ETH", "SOL", "BTC"}) {
		t.Fatalf("expected BTC appended, got %v", s.VisibleCurrencies)
	}
}

func TestToggleCurrencyIsItsOwnInverse(t *testing.T) {
	starts := [][]string{
		{},
		{"BTC"},
		{"ETH", "BTC", "SOL"},
		slices.Clone(domain.Currencies),
	}
	for _, visible := range starts {
		for _, sym := range []string{"BTC", "DOGE"} {
			start := State{View: ViewPrices, VisibleCurrencies: visible}
			twice := Reducer(Reducer(start, ToggleCurrency{Symbol: sym}), ToggleCurrency{Symbol: sym})

			for _, c := range visible {
				if c != sym && !twice.IsVisible(c) {
					t.Fatalf("%v toggling %s twice lost %s: %v", visible, sym, c, twice.VisibleCurrencies)
				}
			}
			if twice.IsVisible(sym) != start.IsVisible(sym) {
				t.Fatalf("%v toggling %s twice changed its membership", visible, sym)
			}
			if len(twice.VisibleCurrencies) != len(visible) {
				t.Fatalf("%v toggling %s twice changed size: %v", visible, sym, twice.VisibleCurrencies)
			}
		}
	}
}

func TestToggleAllThenNone(t *testing.T) {
	for _, visible := range [][]string{{}, {"BTC"}, slices.Clone(domain.Currencies)} {
		s := State{View: ViewSettings, VisibleCurrencies: visible}

		all := Reducer(s, ToggleCurrenciesAll{})
		if !slices.Equal(all.VisibleCurrencies, domain.Currencies) {
			t.Fatalf("expected all currencies, got %v", all.VisibleCurrencies)
		}

		none := Reducer(all, ToggleCurrenciesNone{})
		if len(none.VisibleCurrencies) != 0 {
			t.Fatalf("expected empty set, got %v", none.VisibleCurrencies)
		}
	}
}

func TestNextViewWraps(t *testing.T) {
	if NextView(ViewPrices) != ViewPortfolio || NextView(ViewSettings) != ViewPrices {
		t.Fatal("unexpected view cycle")
	}
}

func TestActionTypes(t *testing.T) {
	tests := map[string]Action{
		"change-view":          ChangeView{},
		"toggle-currency":      ToggleCurrency{},
		"toggle-currency-all":  ToggleCurrenciesAll{},
		"toggle-currency-none": ToggleCurrenciesNone{},
	}
	for want, a := range tests {
		if a.Type() != want {
			t.Fatalf("expected %s, got %s", want, a.Type())
		}
	}
}
