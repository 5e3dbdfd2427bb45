package live

import (
	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/lipgloss"

	"agentstudio/internal/pipeline"
)

const (
	agentColumnWidth    = 26
	statusColumnWidth   = 9
	tokensColumnWidth   = 7
	rateColumnWidth     = 7
	latencyColumnWidth  = 9
	vramColumnWidth     = 8
	providerColumnWidth = 13
	minOutputWidth      = 12
)

// tableStyles returns table styles for the UI.
func tableStyles(noColor bool) table.Styles {
	if noColor {
		return table.DefaultStyles()
	}
	styles := table.DefaultStyles()
	styles.Header = styles.Header.Foreground(lipgloss.Color("252"))
	return styles
}

// defaultColumns returns columns sized for an 80-column terminal.
func defaultColumns() []table.Column {
	return columnsForWidth(0)
}

// columnsForWidth fits the output column into the remaining width.
func columnsForWidth(width int) []table.Column {
	fixed := agentColumnWidth + statusColumnWidth + tokensColumnWidth + rateColumnWidth +
		latencyColumnWidth + vramColumnWidth + providerColumnWidth
	output := width - fixed - 16
	if output < minOutputWidth {
		output = minOutputWidth
	}
	return []table.Column{
		{Title: "Agent", Width: agentColumnWidth},
		{Title: "Status", Width: statusColumnWidth},
		{Title: "Tokens", Width: tokensColumnWidth},
		{Title: "Tok/s", Width: rateColumnWidth},
		{Title: "Latency", Width: latencyColumnWidth},
		{Title: "VRAM", Width: vramColumnWidth},
		{Title: "Provider", Width: providerColumnWidth},
		{Title: "Output", Width: output},
	}
}

// rowsForState converts run state into table rows in roster order.
func rowsForState(state pipeline.State, outputWidth int) []table.Row {
	rows := make([]table.Row, 0, len(state.AgentOrder))
	for _, id := range state.AgentOrder {
		metrics, ok := state.Agents[id]
		if !ok {
			continue
		}
		rows = append(rows, table.Row{
			formatAgentName(id, metrics),
			string(metrics.Status),
			formatTokens(metrics.Tokens),
			formatRate(metrics.TokensPerSec),
			formatLatency(metrics.LatencyMs),
			formatVram(metrics.VramGB),
			formatProvider(metrics.Provider),
			formatOutputTail(metrics.Output, outputWidth),
		})
	}
	return rows
}
