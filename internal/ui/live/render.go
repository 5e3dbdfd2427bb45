package live

import (
	"time"

	"github.com/charmbracelet/lipgloss"

	"agentstudio/internal/discovery"
	"agentstudio/internal/pipeline"
)

// renderHeader renders the run header line.
func renderHeader(state pipeline.State, startedAt, finishedAt, now time.Time, noColor bool) string {
	line := "Pipeline " + formatPipelineStatus(state)
	if state.RunID != "" {
		line += " | Run " + state.RunID
	}
	if !startedAt.IsZero() {
		end := now
		if !finishedAt.IsZero() {
			end = finishedAt
		}
		line += " | Elapsed: " + end.Sub(startedAt).Round(100*time.Millisecond).String()
	}
	return stylize(line, noColor, pipelineColor(state))
}

// renderPrompt renders the prompt the next or current run uses.
func renderPrompt(prompt string, width int, noColor bool) string {
	if prompt == "" {
		return ""
	}
	limit := width - len("Prompt: ")
	if limit < 20 {
		limit = 60
	}
	return stylize("Prompt: "+formatOutputTail(prompt, limit), noColor, lipgloss.Color("240"))
}

// renderSummary renders progress and pipeline totals.
func renderSummary(state pipeline.State, noColor bool) string {
	line := formatProgress(state)
	if state.Status == pipeline.StatusDone {
		line += " | Total tokens: " + fmtInt(state.TotalTokens) + " | Total time: " + formatLatency(state.TotalMs)
	}
	return stylize(line, noColor, lipgloss.Color("242"))
}

// renderStageLine renders the active parallel stage, if any.
func renderStageLine(state pipeline.State, noColor bool) string {
	line := formatStage(state.ActiveStage)
	if line == "" {
		return ""
	}
	return stylize(line, noColor, lipgloss.Color("39"))
}

// renderDiscovery renders the provider reachability line.
func renderDiscovery(info discovery.Info, known bool, noColor bool) string {
	if !known {
		return ""
	}
	return stylize(formatProviders(info), noColor, lipgloss.Color("244"))
}

// renderDetail renders the selected agent's full output.
func renderDetail(id string, metrics pipeline.AgentMetrics, noColor bool) string {
	if id == "" {
		return ""
	}
	title := formatAgentName(id, metrics)
	if metrics.Model != "" {
		title += " | " + metrics.Model
	}
	title += " | " + stylizeStatus(string(metrics.Status), metrics.Status, noColor)
	return stylize(title, noColor, lipgloss.Color("252"))
}

// renderError renders the run error, if any.
func renderError(state pipeline.State, noColor bool) string {
	if state.Error == "" {
		return ""
	}
	return stylize("Error: "+state.Error, noColor, lipgloss.Color("196"))
}

// renderHelp renders the key bindings.
func renderHelp(interactive bool, noColor bool) string {
	if interactive {
		return stylize("r run | s stop | x reset | up/down select | q quit", noColor, lipgloss.Color("244"))
	}
	return stylize("ctrl+c stop", noColor, lipgloss.Color("244"))
}

// stylize applies optional color styling.
func stylize(text string, noColor bool, color lipgloss.Color) string {
	if noColor {
		return text
	}
	return lipgloss.NewStyle().Foreground(color).Render(text)
}
