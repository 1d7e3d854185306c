package agent

import "github.com/lmercat/webpilot/internal/types"

// AgentEvent is emitted on the run's event stream. The marker method
// keeps the set closed.
type AgentEvent interface {
	agentEvent()
}

// EventAgentStart opens a run.
type EventAgentStart struct {
	SessionID string
	Task      string
}

// EventTextDelta carries assistant text as it arrives.
type EventTextDelta struct {
	Text string
}

// EventToolStart announces a tool invocation.
type EventToolStart struct {
	Call types.ToolCall
}

// EventToolEnd carries a tool invocation's result.
type EventToolEnd struct {
	Call   types.ToolCall
	Result *types.ToolResult
}

// EventAgentEnd closes a run. Steps counts the tool calls executed.
// Completed is false when the step budget ran out before the model
// produced a final answer.
type EventAgentEnd struct {
	FinalText string
	Steps     int
	Completed bool
	Reason    string
}

// EventAgentError closes a run that failed outright.
type EventAgentError struct {
	Err error
}

func (EventAgentStart) agentEvent() {}
func (EventTextDelta) agentEvent()  {}
func (EventToolStart) agentEvent()  {}
func (EventToolEnd) agentEvent()    {}
func (EventAgentEnd) agentEvent()   {}
func (EventAgentError) agentEvent() {}
