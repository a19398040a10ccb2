// Package replay records REPL sessions and turns them into regression
// tests.
//
// A session is a JSON document holding a timeline of timestamped events.
// Events and results are externally tagged: {"Input": {...}} and
// {"Success": {"value": "4"}}, with the bare string "Unit" for a result
// with no value. Files ending in .zst are zstd compressed.
package replay

import (
	"encoding/json"
	"fmt"
)

// EventID identifies an event within one session. IDs start at 1 and
// increase by one per event.
type EventID uint64

// SemVer is the session format version.
type SemVer struct {
	Major uint32 `json:"major"`
	Minor uint32 `json:"minor"`
	Patch uint32 `json:"patch"`
}

func (v SemVer) String() string {
	return fmt.Sprintf("%d.%d.%d", v.Major, v.Minor, v.Patch)
}

// FormatVersion is written into every new session.
var FormatVersion = SemVer{Major: 1}

// Session is a complete REPL recording.
type Session struct {
	Version     SemVer                      `json:"version"`
	Metadata    Metadata                    `json:"metadata"`
	Environment Environment                 `json:"environment"`
	Timeline    []TimestampedEvent          `json:"timeline"`
	Checkpoints map[EventID]StateCheckpoint `json:"checkpoints"`
}

// Metadata identifies a session.
type Metadata struct {
	SessionID    string   `json:"session_id"`
	CreatedAt    string   `json:"created_at"`
	RuchyVersion string   `json:"ruchy_version"`
	StudentID    *string  `json:"student_id"`
	AssignmentID *string  `json:"assignment_id"`
	Tags         []string `json:"tags"`
}

// Environment pins what replay needs to be deterministic.
type Environment struct {
	Seed           uint64         `json:"seed"`
	FeatureFlags   []string       `json:"feature_flags"`
	ResourceLimits ResourceLimits `json:"resource_limits"`
}

// ResourceLimits bound a replayed session.
type ResourceLimits struct {
	HeapMB  uint64 `json:"heap_mb"`
	StackKB uint64 `json:"stack_kb"`
	CPUMs   uint64 `json:"cpu_ms"`
}

// DefaultResourceLimits are used by new recordings.
var DefaultResourceLimits = ResourceLimits{HeapMB: 100, StackKB: 8192, CPUMs: 5000}

// TimestampedEvent is one timeline entry. Causality lists the events this
// one follows from; an Output names its Input.
type TimestampedEvent struct {
	ID          EventID   `json:"id"`
	TimestampNs uint64    `json:"timestamp_ns"`
	Event       Event     `json:"event"`
	Causality   []EventID `json:"causality"`
}

// InputMode says how an input reached the REPL.
type InputMode string

const (
	ModeInteractive InputMode = "Interactive"
	ModePaste       InputMode = "Paste"
	ModeFile        InputMode = "File"
	ModeScript      InputMode = "Script"
)

// Event is a tagged union; exactly one field is set.
type Event struct {
	Input         *InputEvent
	Output        *OutputEvent
	StateChange   *StateChangeEvent
	ResourceUsage *ResourceUsage
}

// InputEvent is a line the user entered.
type InputEvent struct {
	Text string    `json:"text"`
	Mode InputMode `json:"mode"`
}

// OutputEvent is the result of evaluating the preceding input.
type OutputEvent struct {
	Result EvalResult `json:"result"`
	Stdout Bytes      `json:"stdout"`
	Stderr Bytes      `json:"stderr"`
}

// StateChangeEvent records bindings changed by an evaluation.
type StateChangeEvent struct {
	BindingsDelta map[string]string `json:"bindings_delta"`
	StateHash     string            `json:"state_hash"`
}

// ResourceUsage is a resource sample, also stored in checkpoints.
type ResourceUsage struct {
	HeapBytes  uint64 `json:"heap_bytes"`
	StackDepth uint64 `json:"stack_depth"`
	CPUNs      uint64 `json:"cpu_ns"`
}

// StateCheckpoint captures the bindings after an event.
type StateCheckpoint struct {
	Bindings        map[string]string `json:"bindings"`
	TypeEnvironment map[string]string `json:"type_environment"`
	StateHash       string            `json:"state_hash"`
	ResourceUsage   ResourceUsage     `json:"resource_usage"`
}

// ResultKind discriminates EvalResult.
type ResultKind int

const (
	ResultUnit ResultKind = iota
	ResultSuccess
	ResultError
)

// EvalResult is Success{value}, Error{message} or Unit.
type EvalResult struct {
	Kind    ResultKind
	Value   string
	Message string
}

// Success builds a successful result.
func Success(value string) EvalResult { return EvalResult{Kind: ResultSuccess, Value: value} }

// Failure builds an error result.
func Failure(message string) EvalResult { return EvalResult{Kind: ResultError, Message: message} }

// Unit is the result of an evaluation with no value.
func Unit() EvalResult { return EvalResult{Kind: ResultUnit} }

func (r EvalResult) String() string {
	switch r.Kind {
	case ResultSuccess:
		return r.Value
	case ResultError:
		return "error: " + r.Message
	}
	return "()"
}

func (r EvalResult) MarshalJSON() ([]byte, error) {
	switch r.Kind {
	case ResultSuccess:
		return json.Marshal(map[string]any{"Success": map[string]string{"value": r.Value}})
	case ResultError:
		return json.Marshal(map[string]any{"Error": map[string]string{"message": r.Message}})
	}
	return json.Marshal("Unit")
}

func (r *EvalResult) UnmarshalJSON(data []byte) error {
	var tag string
	if err := json.Unmarshal(data, &tag); err == nil {
		if tag != "Unit" {
			return fmt.Errorf("unknown result %q", tag)
		}
		*r = Unit()
		return nil
	}
	var tagged struct {
		Success *struct {
			Value string `json:"value"`
		}
		Error *struct {
			Message string `json:"message"`
		}
	}
	if err := json.Unmarshal(data, &tagged); err != nil {
		return err
	}
	switch {
	case tagged.Success != nil:
		*r = Success(tagged.Success.Value)
	case tagged.Error != nil:
		*r = Failure(tagged.Error.Message)
	default:
		return fmt.Errorf("result has no variant: %s", data)
	}
	return nil
}

func (e Event) MarshalJSON() ([]byte, error) {
	switch {
	case e.Input != nil:
		return json.Marshal(map[string]any{"Input": e.Input})
	case e.Output != nil:
		return json.Marshal(map[string]any{"Output": e.Output})
	case e.StateChange != nil:
		return json.Marshal(map[string]any{"StateChange": e.StateChange})
	case e.ResourceUsage != nil:
		return json.Marshal(map[string]any{"ResourceUsage": e.ResourceUsage})
	}
	return nil, fmt.Errorf("event has no variant")
}

func (e *Event) UnmarshalJSON(data []byte) error {
	var tagged map[string]json.RawMessage
	if err := json.Unmarshal(data, &tagged); err != nil {
		return err
	}
	if len(tagged) != 1 {
		return fmt.Errorf("event must have exactly one variant, got %d", len(tagged))
	}
	*e = Event{}
	for tag, raw := range tagged {
		var target any
		switch tag {
		case "Input":
			e.Input = &InputEvent{}
			target = e.Input
		case "Output":
			e.Output = &OutputEvent{}
			target = e.Output
		case "StateChange":
			e.StateChange = &StateChangeEvent{}
			target = e.StateChange
		case "ResourceUsage":
			e.ResourceUsage = &ResourceUsage{}
			target = e.ResourceUsage
		default:
			return fmt.Errorf("unknown event %q", tag)
		}
		if err := json.Unmarshal(raw, target); err != nil {
			return fmt.Errorf("%s event: %w", tag, err)
		}
	}
	return nil
}

// Bytes is captured output, encoded as a JSON array of byte values.
type Bytes []byte

func (b Bytes) MarshalJSON() ([]byte, error) {
	nums := make([]int, len(b))
	for i, c := range b {
		nums[i] = int(c)
	}
	return json.Marshal(nums)
}

func (b *Bytes) UnmarshalJSON(data []byte) error {
	var nums []int
	if err := json.Unmarshal(data, &nums); err != nil {
		// Accept plain strings from hand-written sessions.
		var s string
		if json.Unmarshal(data, &s) != nil {
			return err
		}
		*b = Bytes(s)
		return nil
	}
	out := make(Bytes, len(nums))
	for i, n := range nums {
		if n < 0 || n > 255 {
			return fmt.Errorf("byte value %d out of range", n)
		}
		out[i] = byte(n)
	}
	*b = out
	return nil
}

// Pairs returns each Input immediately followed by an Output, in timeline
// order.
func (s *Session) Pairs() []Pair {
	var pairs []Pair
	for i := 0; i+1 < len(s.Timeline); i++ {
		in := s.Timeline[i].Event.Input
		out := s.Timeline[i+1].Event.Output
		if in != nil && out != nil {
			pairs = append(pairs, Pair{Index: i, Input: *in, Output: *out})
		}
	}
	return pairs
}

// Pair is an input with its output. Index is the input's position in the
// timeline.
type Pair struct {
	Index  int
	Input  InputEvent
	Output OutputEvent
}
