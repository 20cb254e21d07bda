package tui

import (
	"fmt"
	"strings"

	"tickerbar/internal/domain"
	"tickerbar/internal/ui"

	"github.com/charmbracelet/lipgloss"
)

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("15")).Background(lipgloss.Color("4"))
	symbolStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	priceStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("15"))
	gainStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	lossStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	dimStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	errorStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("9"))
	cursorStyle = lipgloss.NewStyle().Background(lipgloss.Color("236"))
)

const sparkWidth = 24

var sparkBlocks = []rune("▁▂▃▄▅▆▇█")

func (m Model) View() string {
	var b strings.Builder

	header := fmt.Sprintf(" tickerbar  period: %s  view: %s ", m.priceState.Period, m.uiState.View)
	b.WriteString(headerStyle.Render(header))
	b.WriteString("\n\n")

	switch {
	case m.priceState.Error != "":
		b.WriteString(errorStyle.Render(m.priceState.Error))
		b.WriteString("\n")
	case !m.priceState.IsLoaded:
		b.WriteString(dimStyle.Render("Loading..."))
		b.WriteString("\n")
	}

	switch m.uiState.View {
	case ui.ViewSettings:
		b.WriteString(m.renderSettings())
	case ui.ViewPortfolio:
		b.WriteString(m.renderPortfolio())
	default:
		b.WriteString(m.renderPrices())
	}

	if m.lastErr != nil {
		b.WriteString("\n")
		b.WriteString(errorStyle.Render(m.lastErr.Error()))
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(m.help.View(m.keys))
	return b.String()
}

// renderPrices lists each visible currency with its newest sample, market
// value and a sparkline of the series.
func (m Model) renderPrices() string {
	var b strings.Builder
	for _, symbol := range m.uiState.VisibleCurrencies {
		series := m.priceState.RateData[symbol]
		last, ok := m.priceState.RateData.Last(symbol)
		lastText := "-"
		if ok {
			lastText = formatPrice(last)
		}
		fmt.Fprintf(&b, "%s %s %s %s\n",
			symbolStyle.Render(fmt.Sprintf("%-6s", symbol)),
			priceStyle.Render(fmt.Sprintf("%12s", lastText)),
			m.renderMarket(symbol),
			changeStyle(series).Render(sparkline(series, sparkWidth)),
		)
	}
	if len(m.uiState.VisibleCurrencies) == 0 {
		b.WriteString(dimStyle.Render("No currencies selected."))
		b.WriteString("\n")
	}
	return b.String()
}

func (m Model) renderPortfolio() string {
	var b strings.Builder
	for _, symbol := range m.uiState.VisibleCurrencies {
		fmt.Fprintf(&b, "%s %s %s\n",
			symbolStyle.Render(fmt.Sprintf("%-6s", symbol)),
			m.renderMarket(symbol),
			formatChange(m.priceState.RateData[symbol]),
		)
	}
	if len(m.uiState.VisibleCurrencies) == 0 {
		b.WriteString(dimStyle.Render("No currencies selected."))
		b.WriteString("\n")
	}
	return b.String()
}

// renderSettings lists the whole universe with visibility checkboxes.
func (m Model) renderSettings() string {
	var b strings.Builder
	for i, symbol := range domain.Currencies {
		box := "[ ]"
		if m.uiState.IsVisible(symbol) {
			box = "[x]"
		}
		line := fmt.Sprintf("%s %-6s", box, symbol)
		if i == m.cursor {
			line = cursorStyle.Render("> " + line)
		} else {
			line = "  " + line
		}
		b.WriteString(line)
		b.WriteString("\n")
	}
	return b.String()
}

func (m Model) renderMarket(symbol string) string {
	value, ok := m.priceState.MarketData[symbol]
	if !ok {
		return dimStyle.Render(fmt.Sprintf("%12s", "-"))
	}
	return priceStyle.Render(fmt.Sprintf("%12s", formatPrice(value)))
}

func formatPrice(v float64) string {
	switch {
	case v >= 1000:
		return fmt.Sprintf("%.0f", v)
	case v >= 1:
		return fmt.Sprintf("%.2f", v)
	default:
		return fmt.Sprintf("%.4f", v)
	}
}

// formatChange renders the move from the first to the last sample.
func formatChange(series []float64) string {
	if len(series) < 2 || series[0] == 0 {
		return dimStyle.Render(fmt.Sprintf("%8s", "-"))
	}
	pct := (series[len(series)-1] - series[0]) / series[0] * 100
	return changeStyle(series).Render(fmt.Sprintf("%+7.2f%%", pct))
}

func changeStyle(series []float64) lipgloss.Style {
	if len(series) >= 2 && series[len(series)-1] < series[0] {
		return lossStyle
	}
	return gainStyle
}

// sparkline renders the newest width samples scaled between their min and max.
func sparkline(series []float64, width int) string {
	if len(series) == 0 || width <= 0 {
		return ""
	}
	if len(series) > width {
		series = series[len(series)-width:]
	}

	lo, hi := series[0], series[0]
	for _, v := range series {
		lo = min(lo, v)
		hi = max(hi, v)
	}

	out := make([]rune, len(series))
	top := len(sparkBlocks) - 1
	for i, v := range series {
		idx := 0
		if hi > lo {
			idx = int((v - lo) / (hi - lo) * float64(top))
		}
		out[i] = sparkBlocks[idx]
	}
	return string(out)
}
