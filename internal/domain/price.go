package domain

import (
	"fmt"
	"strings"
)

// Period selects the window of the price series fetch.
type Period string

const (
	PeriodDay   Period = "day"
	PeriodWeek  Period = "week"
	PeriodMonth Period = "month"
	PeriodYear  Period = "year"
)

// Periods lists every selectable period, shortest first.
var Periods = []Period{PeriodDay, PeriodWeek, PeriodMonth, PeriodYear}

func (p Period) Valid() bool {
	switch p {
	case PeriodDay, PeriodWeek, PeriodMonth, PeriodYear:
		return true
	}
	return false
}

func (p Period) String() string { return string(p) }

// ParsePeriod accepts a period name in any case.
func ParsePeriod(s string) (Period, error) {
	p := Period(strings.ToLower(strings.TrimSpace(s)))
	if !p.Valid() {
		return "", fmt.Errorf("unsupported period: %q", s)
	}
	return p, nil
}

// PriceSeries maps a symbol to its samples in chronological order. Every
// series returned by one fetch shares the same length and time axis.
type PriceSeries map[string][]float64

// Last returns the newest sample of symbol.
func (s PriceSeries) Last(symbol string) (float64, bool) {
	samples := s[symbol]
	if len(samples) == 0 {
		return 0, false
	}
	return samples[len(samples)-1], true
}

// MarketSnapshot maps a symbol to its current market value.
type MarketSnapshot map[string]float64

// Tick is one live price update for a single symbol.
type Tick struct {
	Symbol string  `json:"cryptoCurrency"`
	Price  float64 `json:"price"`
}
