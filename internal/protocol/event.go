package protocol

// Kind identifies the type of a stream event.
type Kind string

const (
	// KindPipelineStart announces a run and the number of agents expected.
	KindPipelineStart Kind = "pipeline_start"
	// KindAgentStart marks an agent moving to running.
	KindAgentStart Kind = "agent_start"
	// KindAgentToken carries one incremental decode step.
	KindAgentToken Kind = "agent_token"
	// KindAgentVram carries a VRAM sample for an agent.
	KindAgentVram Kind = "agent_vram"
	// KindAgentDone carries the final numbers for an agent.
	KindAgentDone Kind = "agent_done"
	// KindStageParallel names agents executing concurrently as one stage.
	KindStageParallel Kind = "stage_parallel"
	// KindPipelineDone marks the whole run finished.
	KindPipelineDone Kind = "pipeline_done"
	// KindPipelineError marks the run aborted by the backend.
	KindPipelineError Kind = "pipeline_error"
)

// Known reports whether the kind is part of the protocol.
func (k Kind) Known() bool {
	switch k {
	case KindPipelineStart,
		KindAgentStart,
		KindAgentToken,
		KindAgentVram,
		KindAgentDone,
		KindStageParallel,
		KindPipelineDone,
		KindPipelineError:
		return true
	default:
		return false
	}
}

// ProviderKind names an inference backend.
type ProviderKind string

const (
	ProviderSimulation   ProviderKind = "simulation"
	ProviderOllama       ProviderKind = "ollama"
	ProviderLMStudio     ProviderKind = "lmstudio"
	ProviderLlamaCpp     ProviderKind = "llamacpp"
	ProviderTransformers ProviderKind = "transformers"
)

// ProviderKinds lists the providers the backend knows about, simulation first.
func ProviderKinds() []ProviderKind {
	return []ProviderKind{
		ProviderSimulation,
		ProviderOllama,
		ProviderLMStudio,
		ProviderLlamaCpp,
		ProviderTransformers,
	}
}

// DefaultBaseURL returns the local server address a provider listens on
// by default. In-process providers return an empty string.
func (p ProviderKind) DefaultBaseURL() string {
	switch p {
	case ProviderOllama:
		return "http://localhost:11434"
	case ProviderLMStudio:
		return "http://localhost:1234"
	case ProviderLlamaCpp:
		return "http://localhost:8080"
	default:
		return ""
	}
}

// Known reports whether the provider is one the backend can route to.
func (p ProviderKind) Known() bool {
	for _, kind := range ProviderKinds() {
		if kind == p {
			return true
		}
	}
	return false
}

// Event is one decoded frame. Only the fields relevant to Kind are set;
// optional numeric fields are nil when the frame did not carry them.
type Event struct {
	Kind     Kind
	AgentID  string
	Provider ProviderKind
	Label    string
	Model    string

	Token        string
	TotalTokens  *int
	TokensPerSec *float64
	LatencyMs    *float64
	VramGB       *float64

	StageIndex int
	AgentIDs   []string

	TotalPipelineTokens *int
	TotalPipelineMs     *float64
	TotalAgents         *int
	Prompt              string

	Message string
}

// Int returns a pointer to v, for building events.
func Int(v int) *int {
	return &v
}

// Float returns a pointer to v, for building events.
func Float(v float64) *float64 {
	return &v
}
