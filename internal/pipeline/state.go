package pipeline

import "agentstudio/internal/protocol"

// Status is the lifecycle state of a whole run.
type Status string

const (
	StatusIdle    Status = "idle"
	StatusRunning Status = "running"
	StatusDone    Status = "done"
	StatusStopped Status = "stopped"
)

// AgentStatus is the lifecycle state of one agent within a run.
type AgentStatus string

const (
	AgentIdle    AgentStatus = "idle"
	AgentRunning AgentStatus = "running"
	AgentDone    AgentStatus = "done"
	AgentError   AgentStatus = "error"
)

// AgentMetrics holds live progress for one agent.
type AgentMetrics struct {
	Status       AgentStatus
	Label        string
	Model        string
	Tokens       int
	TokensPerSec float64
	LatencyMs    float64
	VramGB       float64
	Output       string
	Provider     protocol.ProviderKind
}

// ParallelStage names the agents the backend is running concurrently.
type ParallelStage struct {
	StageIndex int
	AgentIDs   []string
}

// State is the observable state of a pipeline session.
type State struct {
	RunID          string
	Status         Status
	Agents         map[string]AgentMetrics
	AgentOrder     []string
	ExpectedAgents int
	TotalTokens    int
	TotalMs        float64
	Error          string
	ActiveStage    *ParallelStage

	roster []Agent
}

// NewState returns an idle state with zeroed metrics for the given agents.
func NewState(agents []Agent) State {
	roster := make([]Agent, len(agents))
	copy(roster, agents)
	state := State{Status: StatusIdle, roster: roster}
	state.Agents, state.AgentOrder = defaultMetrics(roster)
	return state
}

// Agent returns the metrics for id and whether the agent is known.
func (s State) Agent(id string) (AgentMetrics, bool) {
	metrics, ok := s.Agents[id]
	return metrics, ok
}

// Running reports whether a run is in flight.
func (s State) Running() bool {
	return s.Status == StatusRunning
}

// Terminal reports whether the last run has finished one way or another.
func (s State) Terminal() bool {
	return s.Status == StatusDone || s.Status == StatusStopped
}

// Clone returns a deep copy that shares no storage with s.
func (s State) Clone() State {
	out := s
	if s.Agents != nil {
		out.Agents = make(map[string]AgentMetrics, len(s.Agents))
		for id, metrics := range s.Agents {
			out.Agents[id] = metrics
		}
	}
	out.AgentOrder = cloneStrings(s.AgentOrder)
	if s.roster != nil {
		out.roster = make([]Agent, len(s.roster))
		copy(out.roster, s.roster)
	}
	if s.ActiveStage != nil {
		stage := *s.ActiveStage
		stage.AgentIDs = cloneStrings(s.ActiveStage.AgentIDs)
		out.ActiveStage = &stage
	}
	return out
}

// defaultMetrics builds idle metrics for every roster agent.
func defaultMetrics(roster []Agent) (map[string]AgentMetrics, []string) {
	agents := make(map[string]AgentMetrics, len(roster))
	order := make([]string, 0, len(roster))
	for _, agent := range roster {
		if _, exists := agents[agent.ID]; exists {
			continue
		}
		agents[agent.ID] = AgentMetrics{
			Status:   AgentIdle,
			Label:    agent.Label,
			Model:    agent.Model,
			Provider: agent.Provider,
		}
		order = append(order, agent.ID)
	}
	return agents, order
}

func cloneStrings(values []string) []string {
	if values == nil {
		return nil
	}
	out := make([]string, len(values))
	copy(out, values)
	return out
}
