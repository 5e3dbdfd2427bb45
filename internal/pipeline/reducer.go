package pipeline

import "agentstudio/internal/protocol"

// Begin starts a new run: metrics return to idle defaults, totals are zeroed
// and any previous error is cleared.
func Begin(state State, runID string) State {
	state = cleared(state)
	state.RunID = runID
	state.Status = StatusRunning
	return state
}

// Reset returns the session to idle with default metrics. Resetting an
// already idle state yields an equal state.
func Reset(state State) State {
	state = cleared(state)
	state.RunID = ""
	state.Status = StatusIdle
	return state
}

// Stop ends a running pipeline. An empty message marks a deliberate stop;
// a non-empty one records a failure. Stopping a state that is not running
// has no effect.
func Stop(state State, message string) State {
	if state.Status != StatusRunning {
		return state
	}
	state = state.Clone()
	state.Status = StatusStopped
	state.Error = message
	state.ActiveStage = nil
	next := AgentIdle
	if message != "" {
		next = AgentError
	}
	settleRunningAgents(&state, next)
	return state
}

// Apply applies one stream event to the state and returns the next state.
// The input is never modified. Events arriving while no run is in flight
// are ignored.
func Apply(state State, event protocol.Event) State {
	if state.Status != StatusRunning {
		return state
	}
	switch event.Kind {
	case protocol.KindPipelineStart:
		state = state.Clone()
		if event.TotalAgents != nil {
			state.ExpectedAgents = *event.TotalAgents
		}
	case protocol.KindAgentStart:
		state = applyAgentStart(state, event)
	case protocol.KindAgentToken:
		state = updateAgent(state, event.AgentID, func(metrics *AgentMetrics) {
			metrics.Output += event.Token
			if event.TotalTokens != nil {
				metrics.Tokens = *event.TotalTokens
			}
			if event.TokensPerSec != nil {
				metrics.TokensPerSec = *event.TokensPerSec
			}
		})
	case protocol.KindAgentVram:
		state = updateAgent(state, event.AgentID, func(metrics *AgentMetrics) {
			if event.VramGB != nil {
				metrics.VramGB = *event.VramGB
			}
		})
	case protocol.KindAgentDone:
		state = updateAgent(state, event.AgentID, func(metrics *AgentMetrics) {
			metrics.Status = AgentDone
			if event.TotalTokens != nil {
				metrics.Tokens = *event.TotalTokens
			}
			if event.TokensPerSec != nil {
				metrics.TokensPerSec = *event.TokensPerSec
			}
			if event.LatencyMs != nil {
				metrics.LatencyMs = *event.LatencyMs
			}
			if event.VramGB != nil {
				metrics.VramGB = *event.VramGB
			}
			if event.Provider != "" {
				metrics.Provider = event.Provider
			}
		})
	case protocol.KindStageParallel:
		state = state.Clone()
		state.ActiveStage = &ParallelStage{
			StageIndex: event.StageIndex,
			AgentIDs:   uniqueIDs(event.AgentIDs),
		}
	case protocol.KindPipelineDone:
		state = state.Clone()
		state.Status = StatusDone
		state.ActiveStage = nil
		if event.TotalPipelineTokens != nil {
			state.TotalTokens = *event.TotalPipelineTokens
		}
		if event.TotalPipelineMs != nil {
			state.TotalMs = *event.TotalPipelineMs
		}
	case protocol.KindPipelineError:
		state = state.Clone()
		state.Status = StatusStopped
		state.ActiveStage = nil
		state.Error = event.Message
		if state.Error == "" {
			state.Error = "pipeline failed"
		}
		settleRunningAgents(&state, AgentError)
	}
	return state
}

// applyAgentStart marks an agent running, creating its record when the
// backend starts an agent the session did not know about.
func applyAgentStart(state State, event protocol.Event) State {
	if event.AgentID == "" {
		return state
	}
	state = state.Clone()
	if state.Agents == nil {
		state.Agents = map[string]AgentMetrics{}
	}
	metrics, ok := state.Agents[event.AgentID]
	if !ok {
		metrics = AgentMetrics{Status: AgentIdle}
		state.AgentOrder = append(state.AgentOrder, event.AgentID)
	}
	metrics.Status = AgentRunning
	if event.Provider != "" {
		metrics.Provider = event.Provider
	}
	if event.Label != "" {
		metrics.Label = event.Label
	}
	if event.Model != "" {
		metrics.Model = event.Model
	}
	state.Agents[event.AgentID] = metrics
	return state
}

// updateAgent mutates an existing agent record. Unknown ids are ignored:
// only agent_start may add agents. Tokens for a known agent that never
// saw agent_start are still applied.
func updateAgent(state State, id string, mutate func(*AgentMetrics)) State {
	metrics, ok := state.Agents[id]
	if !ok {
		return state
	}
	state = state.Clone()
	mutate(&metrics)
	state.Agents[id] = metrics
	return state
}

func settleRunningAgents(state *State, next AgentStatus) {
	for id, metrics := range state.Agents {
		if metrics.Status == AgentRunning {
			metrics.Status = next
			state.Agents[id] = metrics
		}
	}
}

// uniqueIDs drops duplicate and empty ids, keeping first occurrence order.
func uniqueIDs(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

// cleared drops all per-run data and restores roster defaults.
func cleared(state State) State {
	state = state.Clone()
	state.Agents, state.AgentOrder = defaultMetrics(state.roster)
	state.ExpectedAgents = 0
	state.TotalTokens = 0
	state.TotalMs = 0
	state.Error = ""
	state.ActiveStage = nil
	return state
}
