package app

// EventType identifies different session events.
type EventType int

const (
	// EventPairLoaded carries the navigator.Pair that became current.
	EventPairLoaded EventType = iota
	// EventTransformChanged carries the new joint *geometry.Transform (nil when absent).
	EventTransformChanged
	// EventControlPointsSaved carries the written file path.
	EventControlPointsSaved
	// EventTransformSaved carries the written file path.
	EventTransformSaved
	// EventTransformedCoordsSaved carries the written file path.
	EventTransformedCoordsSaved
)

func (e EventType) String() string {
	switch e {
	case EventPairLoaded:
		return "pair-loaded"
	case EventTransformChanged:
		return "transform-changed"
	case EventControlPointsSaved:
		return "control-points-saved"
	case EventTransformSaved:
		return "transform-saved"
	case EventTransformedCoordsSaved:
		return "transformed-coords-saved"
	}
	return "unknown"
}

// EventListener is called when an event occurs.
type EventListener func(data interface{})

type event struct {
	typ  EventType
	data interface{}
}

// On registers an event listener for the specified event type. Listeners
// run after the triggering call has released the session.
func (s *Session) On(typ EventType, listener EventListener) {
	s.lmu.Lock()
	defer s.lmu.Unlock()
	s.listeners[typ] = append(s.listeners[typ], listener)
}

// Emit triggers all listeners for the specified event type.
func (s *Session) Emit(typ EventType, data interface{}) {
	s.lmu.RLock()
	listeners := s.listeners[typ]
	s.lmu.RUnlock()

	for _, listener := range listeners {
		listener(data)
	}
}

// queue records an event to be emitted once the session lock is released.
func (s *Session) queue(typ EventType, data interface{}) {
	s.pending = append(s.pending, event{typ: typ, data: data})
}

// unlock releases the session and delivers queued events.
func (s *Session) unlock() {
	events := s.pending
	s.pending = nil
	s.mu.Unlock()

	for _, e := range events {
		s.Emit(e.typ, e.data)
	}
}
