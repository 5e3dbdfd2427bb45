package live

import (
	"fmt"
	"io"

	"agentstudio/internal/pipeline"
)

// Printer writes one line per notable state transition for non-TTY output.
type Printer struct {
	out  io.Writer
	prev pipeline.State
}

// NewPrinter returns a printer writing to out.
func NewPrinter(out io.Writer) *Printer {
	return &Printer{out: out}
}

// Observe prints the transitions between the previous state and state.
func (p *Printer) Observe(state pipeline.State) {
	for _, line := range transitionLines(p.prev, state) {
		fmt.Fprintln(p.out, line)
	}
	p.prev = state
}

// transitionLines describes what changed between two states.
func transitionLines(prev, next pipeline.State) []string {
	var lines []string
	if next.Running() && (next.RunID != prev.RunID || !prev.Running()) {
		lines = append(lines, "Run "+next.RunID+" started")
		prev = pipeline.State{}
	}
	if next.ExpectedAgents > 0 && next.ExpectedAgents != prev.ExpectedAgents {
		lines = append(lines, "Pipeline expects "+fmtInt(next.ExpectedAgents)+" agents")
	}
	if stage := formatStage(next.ActiveStage); stage != "" && stage != formatStage(prev.ActiveStage) {
		lines = append(lines, stage)
	}
	for _, id := range next.AgentOrder {
		metrics := next.Agents[id]
		before, known := prev.Agents[id]
		if known && before.Status == metrics.Status {
			continue
		}
		switch metrics.Status {
		case pipeline.AgentRunning:
			lines = append(lines, fmt.Sprintf("%s running on %s", formatAgentName(id, metrics), formatProvider(metrics.Provider)))
		case pipeline.AgentDone:
			lines = append(lines, fmt.Sprintf("%s done: %s tokens, %s tok/s, %s, %s VRAM",
				formatAgentName(id, metrics),
				formatTokens(metrics.Tokens),
				formatRate(metrics.TokensPerSec),
				formatLatency(metrics.LatencyMs),
				formatVram(metrics.VramGB),
			))
		case pipeline.AgentError:
			lines = append(lines, formatAgentName(id, metrics)+" failed")
		}
	}
	if next.Status != prev.Status || next.RunID != prev.RunID {
		switch next.Status {
		case pipeline.StatusDone:
			lines = append(lines, fmt.Sprintf("Pipeline done: %d tokens in %s", next.TotalTokens, formatLatency(next.TotalMs)))
		case pipeline.StatusStopped:
			if next.Error != "" {
				lines = append(lines, "Pipeline failed: "+next.Error)
			} else {
				lines = append(lines, "Pipeline stopped")
			}
		}
	}
	return lines
}
