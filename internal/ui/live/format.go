package live

import (
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"agentstudio/internal/discovery"
	"agentstudio/internal/pipeline"
	"agentstudio/internal/protocol"
)

// formatAgentName returns the display name for an agent row.
func formatAgentName(id string, metrics pipeline.AgentMetrics) string {
	if metrics.Label == "" || metrics.Label == id {
		return id
	}
	return metrics.Label + " (" + id + ")"
}

// fmtInt converts an int to string.
func fmtInt(value int) string {
	return strconv.Itoa(value)
}

// formatTokens formats token counts for display.
func formatTokens(tokens int) string {
	if tokens <= 0 {
		return "-"
	}
	return fmtInt(tokens)
}

// formatRate formats a tokens-per-second figure.
func formatRate(rate float64) string {
	if rate <= 0 {
		return "-"
	}
	return strconv.FormatFloat(rate, 'f', 1, 64)
}

// formatLatency renders milliseconds in human readable units.
func formatLatency(ms float64) string {
	if ms <= 0 {
		return "-"
	}
	return formatDuration(time.Duration(ms * float64(time.Millisecond)))
}

// formatDuration rounds durations for display.
func formatDuration(value time.Duration) string {
	if value < time.Second {
		return value.Round(time.Millisecond).String()
	}
	return value.Round(100 * time.Millisecond).String()
}

// formatVram formats a VRAM sample in gigabytes.
func formatVram(gb float64) string {
	if gb <= 0 {
		return "-"
	}
	return strconv.FormatFloat(gb, 'f', 1, 64) + " GB"
}

// formatProvider names a provider, defaulting to simulation.
func formatProvider(kind protocol.ProviderKind) string {
	if kind == "" {
		return string(protocol.ProviderSimulation)
	}
	return string(kind)
}

// formatOutputTail returns the last limit characters of output on one line.
func formatOutputTail(output string, limit int) string {
	normalized := strings.Join(strings.Fields(output), " ")
	if limit <= 3 || len([]rune(normalized)) <= limit {
		return normalized
	}
	runes := []rune(normalized)
	return "..." + string(runes[len(runes)-(limit-3):])
}

// formatPipelineStatus renders the run status with its error, if any.
func formatPipelineStatus(state pipeline.State) string {
	switch state.Status {
	case pipeline.StatusStopped:
		if state.Error != "" {
			return "failed"
		}
		return "stopped"
	default:
		return string(state.Status)
	}
}

// formatStage renders the active parallel stage.
func formatStage(stage *pipeline.ParallelStage) string {
	if stage == nil || len(stage.AgentIDs) == 0 {
		return ""
	}
	return "Stage " + fmtInt(stage.StageIndex) + " parallel: " + strings.Join(stage.AgentIDs, ", ")
}

// formatProgress counts finished agents against the expected total.
func formatProgress(state pipeline.State) string {
	done := 0
	for _, metrics := range state.Agents {
		if metrics.Status == pipeline.AgentDone {
			done++
		}
	}
	total := state.ExpectedAgents
	if total == 0 {
		total = len(state.AgentOrder)
	}
	return fmtInt(done) + "/" + fmtInt(total) + " agents done"
}

// formatProviders lists reachable providers from discovery info.
func formatProviders(info discovery.Info) string {
	parts := make([]string, 0, len(protocol.ProviderKinds()))
	for _, kind := range protocol.ProviderKinds() {
		if kind == protocol.ProviderSimulation {
			continue
		}
		mark := "down"
		if info.ProviderUp(kind) {
			mark = "up"
			if models := info.ModelsFor(kind); len(models) > 0 {
				mark += " (" + fmtInt(len(models)) + " models)"
			}
		}
		parts = append(parts, string(kind)+": "+mark)
	}
	backend := "backend offline"
	if info.Reachable() {
		backend = "backend online"
	}
	return backend + " | " + strings.Join(parts, " ")
}

// stylizeStatus applies agent status coloring when enabled.
func stylizeStatus(text string, status pipeline.AgentStatus, noColor bool) string {
	if noColor {
		return text
	}
	return statusStyle(status).Render(text)
}

// statusStyle selects a style for an agent status.
func statusStyle(status pipeline.AgentStatus) lipgloss.Style {
	color := lipgloss.Color("246")
	switch status {
	case pipeline.AgentRunning:
		color = lipgloss.Color("33")
	case pipeline.AgentDone:
		color = lipgloss.Color("42")
	case pipeline.AgentError:
		color = lipgloss.Color("196")
	}
	return lipgloss.NewStyle().Foreground(color)
}

// pipelineColor selects the header color for a run status.
func pipelineColor(state pipeline.State) lipgloss.Color {
	switch state.Status {
	case pipeline.StatusRunning:
		return lipgloss.Color("33")
	case pipeline.StatusDone:
		return lipgloss.Color("42")
	case pipeline.StatusStopped:
		if state.Error != "" {
			return lipgloss.Color("196")
		}
		return lipgloss.Color("220")
	default:
		return lipgloss.Color("246")
	}
}
