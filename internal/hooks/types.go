package hooks

import (
	"encoding/json"
	"fmt"
	"time"
)

// EventType identifies the agent lifecycle point a hook fires at.
type EventType string

// Event types delivered by the tool-execution driver.
const (
	PreToolUse         EventType = "PreToolUse"
	PostToolUse        EventType = "PostToolUse"
	PostToolUseFailure EventType = "PostToolUseFailure"
	UserPromptSubmit   EventType = "UserPromptSubmit"
	Stop               EventType = "Stop"
	SubagentStop       EventType = "SubagentStop"
	PreCompact         EventType = "PreCompact"
	SessionStart       EventType = "SessionStart"
	SessionEnd         EventType = "SessionEnd"
)

// ValidEventTypes lists every event type the engine accepts.
var ValidEventTypes = []EventType{
	PreToolUse, PostToolUse, PostToolUseFailure, UserPromptSubmit,
	Stop, SubagentStop, PreCompact, SessionStart, SessionEnd,
}

// IsValid reports whether t is a known event type.
func (t EventType) IsValid() bool {
	for _, v := range ValidEventTypes {
		if t == v {
			return true
		}
	}
	return false
}

// ToolScoped reports whether matchers apply to this event type. Non-tool
// events run every registered guard unconditionally.
func (t EventType) ToolScoped() bool {
	switch t {
	case PreToolUse, PostToolUse, PostToolUseFailure:
		return true
	default:
		return false
	}
}

// CommonInput contains fields common to all hook event payloads.
type CommonInput struct {
	SessionID      string `json:"session_id"`
	Cwd            string `json:"cwd"`
	PermissionMode string `json:"permission_mode,omitempty"`
	HookEventName  string `json:"hook_event_name"`
}

// PreToolUseInput is the payload for PreToolUse events.
type PreToolUseInput struct {
	CommonInput
	ToolName  string         `json:"tool_name"`
	ToolInput map[string]any `json:"tool_input"`
	ToolUseID string         `json:"tool_use_id,omitempty"`
}

// PostToolUseInput is the payload for PostToolUse and PostToolUseFailure.
type PostToolUseInput struct {
	CommonInput
	ToolName     string         `json:"tool_name"`
	ToolInput    map[string]any `json:"tool_input"`
	ToolResponse map[string]any `json:"tool_response,omitempty"`
	ToolUseID    string         `json:"tool_use_id,omitempty"`
	Error        string         `json:"error,omitempty"`
}

// UserPromptSubmitInput is the payload for UserPromptSubmit events.
type UserPromptSubmitInput struct {
	CommonInput
	Prompt string `json:"prompt"`
}

// StopInput is the payload for Stop and SubagentStop events.
type StopInput struct {
	CommonInput
	StopHookActive bool `json:"stop_hook_active,omitempty"`
}

// PreCompactInput is the payload for PreCompact events.
type PreCompactInput struct {
	CommonInput
	Trigger            string `json:"trigger,omitempty"` // manual, auto
	CustomInstructions string `json:"custom_instructions,omitempty"`
}

// SessionStartInput is the payload for SessionStart events.
type SessionStartInput struct {
	CommonInput
	Source string `json:"source,omitempty"` // startup, resume, fork
}

// SessionEndInput is the payload for SessionEnd events.
type SessionEndInput struct {
	CommonInput
	Reason string `json:"reason,omitempty"` // completed, interrupted, other
}

// Context carries the per-invocation environment the driver supplies
// alongside every event. It is threaded explicitly through the engine and
// guards so multiple in-process sessions never share hidden state.
type Context struct {
	ProjectRoot       string `json:"project_root"`
	AgentDir          string `json:"agent_dir"`
	SessionID         string `json:"session_id"`
	FeatureInProgress string `json:"feature_in_progress,omitempty"`
}

// Event is the normalized view of one hook invocation handed to guards.
// Typed payloads above are decoded first, then flattened into this shape so
// every guard sees a single surface regardless of event type.
type Event struct {
	Type         EventType
	Timestamp    time.Time
	SessionID    string
	ToolName     string
	ToolInput    map[string]any
	ToolResponse map[string]any
	ToolError    string
	Prompt       string
	Source       string
	Reason       string
}

// Parse decodes the raw driver payload for eventType into a normalized Event.
func Parse(eventType EventType, raw []byte) (*Event, error) {
	ev := &Event{Type: eventType, Timestamp: time.Now()}

	switch eventType {
	case PreToolUse:
		var in PreToolUseInput
		if err := json.Unmarshal(raw, &in); err != nil {
			return nil, fmt.Errorf("failed to parse %s input: %w", eventType, err)
		}
		ev.SessionID = in.SessionID
		ev.ToolName = in.ToolName
		ev.ToolInput = in.ToolInput
	case PostToolUse, PostToolUseFailure:
		var in PostToolUseInput
		if err := json.Unmarshal(raw, &in); err != nil {
			return nil, fmt.Errorf("failed to parse %s input: %w", eventType, err)
		}
		ev.SessionID = in.SessionID
		ev.ToolName = in.ToolName
		ev.ToolInput = in.ToolInput
		ev.ToolResponse = in.ToolResponse
		ev.ToolError = in.Error
	case UserPromptSubmit:
		var in UserPromptSubmitInput
		if err := json.Unmarshal(raw, &in); err != nil {
			return nil, fmt.Errorf("failed to parse %s input: %w", eventType, err)
		}
		ev.SessionID = in.SessionID
		ev.Prompt = in.Prompt
	case SessionStart:
		var in SessionStartInput
		if err := json.Unmarshal(raw, &in); err != nil {
			return nil, fmt.Errorf("failed to parse %s input: %w", eventType, err)
		}
		ev.SessionID = in.SessionID
		ev.Source = in.Source
	case SessionEnd:
		var in SessionEndInput
		if err := json.Unmarshal(raw, &in); err != nil {
			return nil, fmt.Errorf("failed to parse %s input: %w", eventType, err)
		}
		ev.SessionID = in.SessionID
		ev.Reason = in.Reason
	case Stop, SubagentStop:
		var in StopInput
		if err := json.Unmarshal(raw, &in); err != nil {
			return nil, fmt.Errorf("failed to parse %s input: %w", eventType, err)
		}
		ev.SessionID = in.SessionID
	case PreCompact:
		var in PreCompactInput
		if err := json.Unmarshal(raw, &in); err != nil {
			return nil, fmt.Errorf("failed to parse %s input: %w", eventType, err)
		}
		ev.SessionID = in.SessionID
		ev.Source = in.Trigger
	default:
		return nil, fmt.Errorf("unknown event type: %s", eventType)
	}

	return ev, nil
}

// Action is the decision a guard, or the engine as a whole, returns.
type Action string

// Actions a HookResult may carry.
const (
	ActionAllow    Action = "allow"
	ActionDeny     Action = "deny"
	ActionContinue Action = "continue"
	ActionModify   Action = "modify"
)

// Result is the outcome of evaluating one event. Deny stops all further
// guard evaluation; Modify replaces the working tool input for every guard
// evaluated after it.
type Result struct {
	Action        Action         `json:"action"`
	Reason        string         `json:"reason,omitempty"`
	ModifiedInput map[string]any `json:"modified_input,omitempty"`
	InjectMessage string         `json:"inject_message,omitempty"`
}

// Continue returns the neutral result: let the next guard decide.
func Continue() *Result {
	return &Result{Action: ActionContinue}
}

// ContinueWithMessage continues evaluation but injects a message for the
// agent alongside the tool output.
func ContinueWithMessage(msg string) *Result {
	return &Result{Action: ActionContinue, InjectMessage: msg}
}

// Allow returns an explicit allow that stops further evaluation in favor of
// the tool call proceeding, used by allowlist matchers.
func Allow(reason string) *Result {
	return &Result{Action: ActionAllow, Reason: reason}
}

// Deny returns a terminal denial with the reason shown verbatim to the agent.
func Deny(reason string) *Result {
	return &Result{Action: ActionDeny, Reason: reason}
}

// Modify replaces the in-flight tool input for all subsequently evaluated
// guards without stopping evaluation.
func Modify(reason string, input map[string]any) *Result {
	return &Result{Action: ActionModify, Reason: reason, ModifiedInput: input}
}
