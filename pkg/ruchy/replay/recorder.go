package replay

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// Recorder appends events to a session as they happen.
type Recorder struct {
	mu      sync.Mutex
	session Session
	nextID  EventID
	start   time.Time
	now     func() time.Time
}

// NewMetadata returns metadata for a new session with a random id.
func NewMetadata(ruchyVersion string, tags ...string) Metadata {
	return Metadata{
		SessionID:    uuid.NewString(),
		CreatedAt:    time.Now().UTC().Format(time.RFC3339),
		RuchyVersion: ruchyVersion,
		Tags:         append([]string{}, tags...),
	}
}

// NewRecorder starts a recording. Timestamps are relative to this call.
func NewRecorder(meta Metadata) *Recorder {
	if meta.Tags == nil {
		meta.Tags = []string{}
	}
	return &Recorder{
		session: Session{
			Version:  FormatVersion,
			Metadata: meta,
			Environment: Environment{
				FeatureFlags:   []string{},
				ResourceLimits: DefaultResourceLimits,
			},
			Timeline:    []TimestampedEvent{},
			Checkpoints: map[EventID]StateCheckpoint{},
		},
		nextID: 1,
		start:  time.Now(),
		now:    time.Now,
	}
}

func (r *Recorder) push(ev Event, causes ...EventID) EventID {
	r.mu.Lock()
	defer r.mu.Unlock()
	id := r.nextID
	r.nextID++
	elapsed := r.now().Sub(r.start)
	if elapsed < 0 {
		elapsed = 0
	}
	r.session.Timeline = append(r.session.Timeline, TimestampedEvent{
		ID:          id,
		TimestampNs: uint64(elapsed.Nanoseconds()),
		Event:       ev,
		Causality:   append([]EventID{}, causes...),
	})
	return id
}

// RecordInput records a line of input.
func (r *Recorder) RecordInput(text string, mode InputMode) EventID {
	return r.push(Event{Input: &InputEvent{Text: text, Mode: mode}})
}

// RecordOutput records the result of the input identified by input. An
// input of 0 records an output with no cause.
func (r *Recorder) RecordOutput(input EventID, result EvalResult, stdout, stderr []byte) EventID {
	ev := Event{Output: &OutputEvent{Result: result, Stdout: Bytes(stdout), Stderr: Bytes(stderr)}}
	if stdout == nil {
		ev.Output.Stdout = Bytes{}
	}
	if stderr == nil {
		ev.Output.Stderr = Bytes{}
	}
	if input == 0 {
		return r.push(ev)
	}
	return r.push(ev, input)
}

// RecordStateChange records bindings changed by the event cause.
func (r *Recorder) RecordStateChange(cause EventID, delta map[string]string, stateHash string) EventID {
	return r.push(Event{StateChange: &StateChangeEvent{BindingsDelta: delta, StateHash: stateHash}}, cause)
}

// RecordResourceUsage records a resource sample.
func (r *Recorder) RecordResourceUsage(usage ResourceUsage) EventID {
	u := usage
	return r.push(Event{ResourceUsage: &u})
}

// AddCheckpoint stores the state after event id.
func (r *Recorder) AddCheckpoint(id EventID, cp StateCheckpoint) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.session.Checkpoints[id] = cp
}

// Len returns the number of recorded events.
func (r *Recorder) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.session.Timeline)
}

// Session returns a copy of the recording so far.
func (r *Recorder) Session() *Session {
	r.mu.Lock()
	defer r.mu.Unlock()
	s := r.session
	s.Timeline = append([]TimestampedEvent(nil), r.session.Timeline...)
	s.Checkpoints = make(map[EventID]StateCheckpoint, len(r.session.Checkpoints))
	for k, v := range r.session.Checkpoints {
		s.Checkpoints[k] = v
	}
	return &s
}
