// Package prices synchronizes the price series and market snapshot with the
// feed API and merges live ticks into the most recent sample.
package prices

import (
	"maps"
	"slices"

	"tickerbar/internal/domain"
)

// ConnectivityError is stored in State.Error when the initial load fails.
const ConnectivityError = "Error loading content, please check your connection and try again."

type State struct {
	RateData   domain.PriceSeries    `json:"rateData"`
	MarketData domain.MarketSnapshot `json:"marketData"`
	Period     domain.Period         `json:"period"`
	IsLoaded   bool                  `json:"isLoaded"`
	Error      string                `json:"error,omitempty"`
}

func InitialState() State {
	return State{
		RateData:   domain.PriceSeries{},
		MarketData: domain.MarketSnapshot{},
		Period:     domain.PeriodDay,
	}
}

type Action interface {
	Type() string
}

// FetchDataRequest marks the start of a fetch cycle.
type FetchDataRequest struct{}

type FetchDataSuccess struct {
	RateData   domain.PriceSeries
	MarketData domain.MarketSnapshot
}

type FetchDataFailure struct {
	Error string
}

type UpdatePrice struct {
	Tick domain.Tick
}

// ConnectToWebsocket marks the live channel starting up.
type ConnectToWebsocket struct{}

type SetPeriod struct {
	Period domain.Period
}

func (FetchDataRequest) Type() string   { return "fetch-data-request" }
func (FetchDataSuccess) Type() string   { return "fetch-data-success" }
func (FetchDataFailure) Type() string   { return "fetch-data-failure" }
func (UpdatePrice) Type() string        { return "update-price" }
func (ConnectToWebsocket) Type() string { return "connect-to-websocket" }
func (SetPeriod) Type() string          { return "set-period" }

func Reducer(state State, action Action) State {
	switch a := action.(type) {
	case FetchDataSuccess:
		state.RateData = a.RateData
		state.MarketData = a.MarketData
		state.IsLoaded = true
		state.Error = ""
		return state

	case FetchDataFailure:
		state.Error = a.Error
		return state

	case UpdatePrice:
		return applyTick(state, a.Tick)

	case SetPeriod:
		if !a.Period.Valid() {
			return state
		}
		state.Period = a.Period
		return state
	}
	return state
}

// applyTick overwrites the newest sample of the tick's series. Before the first
// load, or for symbols without samples, the state is returned as is.
func applyTick(state State, tick domain.Tick) State {
	if !state.IsLoaded {
		return state
	}
	samples := state.RateData[tick.Symbol]
	if len(samples) == 0 {
		return state
	}

	patched := slices.Clone(samples)
	patched[len(patched)-1] = tick.Price

	rateData := maps.Clone(state.RateData)
	rateData[tick.Symbol] = patched
	state.RateData = rateData
	return state
}
