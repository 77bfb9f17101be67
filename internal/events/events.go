// Package events carries progress notifications from the render queue and
// batch jobs to whoever is listening.
package events

import (
	"strings"
	"sync"
)

// Channel names.
const (
	ChannelTaskUpdate       = "render-task:update"
	ChannelSceneImagesBatch = "batch:scene-images:progress"
	ChannelShotImagesBatch  = "batch:shot-images:progress"
	ChannelAvatarsBatch     = "batch:avatars:progress"
)

// Emitter publishes a payload on a named channel. Emit never blocks on slow
// consumers and never fails; an event nobody can take is dropped.
type Emitter interface {
	Emit(channel string, payload any)
}

// Event is the wire envelope for one emitted payload.
type Event struct {
	Channel string `json:"channel"`
	Payload any    `json:"payload"`
}

// Multi fans each event out to every emitter in order.
type Multi []Emitter

func (m Multi) Emit(channel string, payload any) {
	for _, e := range m {
		if e != nil {
			e.Emit(channel, payload)
		}
	}
}

// Nop discards events.
type Nop struct{}

func (Nop) Emit(string, any) {}

// Recorder keeps every event in memory.
type Recorder struct {
	mu     sync.Mutex
	events []Event
}

func NewRecorder() *Recorder {
	return &Recorder{}
}

func (r *Recorder) Emit(channel string, payload any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, Event{Channel: channel, Payload: payload})
}

// Events returns a copy of the events recorded on channels starting with
// prefix. An empty prefix returns everything.
func (r *Recorder) Events(prefix string) []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Event
	for _, e := range r.events {
		if strings.HasPrefix(e.Channel, prefix) {
			out = append(out, e)
		}
	}
	return out
}

func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = nil
}
