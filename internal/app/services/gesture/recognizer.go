// Package gesture interprets raw touch event sequences into tap,
// double-tap, long-press and swipe gestures.
package gesture

import (
	"math"
	"sync"
	"time"
)

// EventType labels one raw touch event.
type EventType string

const (
	TouchStart  EventType = "start"
	TouchMove   EventType = "move"
	TouchEnd    EventType = "end"
	TouchCancel EventType = "cancel"
)

// TouchEvent is one raw input sample. A zero Time is stamped with the
// recognizer clock on arrival.
type TouchEvent struct {
	Type    EventType `json:"type"`
	Pointer int       `json:"pointer"`
	X       float64   `json:"x"`
	Y       float64   `json:"y"`
	Time    time.Time `json:"time,omitempty"`
}

// Kind identifies a recognized gesture.
type Kind string

const (
	KindTap       Kind = "tap"
	KindDoubleTap Kind = "double_tap"
	KindLongPress Kind = "long_press"
	KindSwipe     Kind = "swipe"
)

// Direction of a swipe along its dominant axis.
type Direction string

const (
	DirectionLeft  Direction = "left"
	DirectionRight Direction = "right"
	DirectionUp    Direction = "up"
	DirectionDown  Direction = "down"
)

// Gesture is one recognized gesture. Recognition is mutually exclusive:
// at most one gesture is emitted per completed touch sequence.
type Gesture struct {
	Kind      Kind          `json:"kind"`
	Direction Direction     `json:"direction,omitempty"`
	X         float64       `json:"x"`
	Y         float64       `json:"y"`
	Duration  time.Duration `json:"duration"`
}

// Options tune the recognizer thresholds. Zero values select defaults.
type Options struct {
	LongPressDelay  time.Duration
	TapTimeout      time.Duration
	DoubleTapWindow time.Duration
	SwipeThreshold  float64
	MoveThreshold   float64
}

func (o Options) withDefaults() Options {
	if o.LongPressDelay == 0 {
		o.LongPressDelay = 500 * time.Millisecond
	}
	if o.TapTimeout == 0 {
		o.TapTimeout = 300 * time.Millisecond
	}
	if o.DoubleTapWindow == 0 {
		o.DoubleTapWindow = 300 * time.Millisecond
	}
	if o.SwipeThreshold == 0 {
		o.SwipeThreshold = 50
	}
	if o.MoveThreshold == 0 {
		o.MoveThreshold = 10
	}
	return o
}

// Result reports per-event side effects to the embedding UI layer.
type Result struct {
	// PreventScroll is set while horizontal displacement dominates the
	// active session, locking directional intent away from the default
	// scroll behaviour.
	PreventScroll bool
}

type timer interface {
	Stop() bool
}

type timerFactory func(d time.Duration, fn func()) timer

type realTimer struct{ t *time.Timer }

func (r realTimer) Stop() bool { return r.t.Stop() }

func afterFunc(d time.Duration, fn func()) timer {
	return realTimer{t: time.AfterFunc(d, fn)}
}

type session struct {
	originX, originY float64
	startTime        time.Time
	moved            bool
	horizontal       bool
	emitted          bool
	longPress        timer
}

type pendingTap struct {
	x, y     float64
	at       time.Time
	duration time.Duration
	timer    timer
}

// Recognizer runs the touch state machine. Gestures are delivered through
// the emit callback; taps are deferred by the double-tap window so a pair
// of quick taps yields exactly one double-tap instead of two taps.
type Recognizer struct {
	opts     Options
	emit     func(Gesture)
	now      func() time.Time
	newTimer timerFactory

	mu       sync.Mutex
	sessions map[int]*session
	pending  *pendingTap
}

// NewRecognizer creates a recognizer delivering gestures to emit.
func NewRecognizer(emit func(Gesture), opts Options) *Recognizer {
	return &Recognizer{
		opts:     opts.withDefaults(),
		emit:     emit,
		now:      time.Now,
		newTimer: afterFunc,
		sessions: make(map[int]*session),
	}
}

// Process consumes one raw event and advances the state machine.
func (r *Recognizer) Process(ev TouchEvent) Result {
	if ev.Time.IsZero() {
		ev.Time = r.now()
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	switch ev.Type {
	case TouchStart:
		return r.handleStart(ev)
	case TouchMove:
		return r.handleMove(ev)
	case TouchEnd:
		return r.handleEnd(ev)
	case TouchCancel:
		r.handleCancel(ev)
	}
	return Result{}
}

func (r *Recognizer) handleStart(ev TouchEvent) Result {
	// A new contact replaces any stale session for the same pointer.
	if s, ok := r.sessions[ev.Pointer]; ok && s.longPress != nil {
		s.longPress.Stop()
	}

	s := &session{
		originX:   ev.X,
		originY:   ev.Y,
		startTime: ev.Time,
	}
	pointer := ev.Pointer
	s.longPress = r.newTimer(r.opts.LongPressDelay, func() {
		r.firePress(pointer)
	})
	r.sessions[pointer] = s
	return Result{}
}

// firePress emits a long-press for a still-stationary contact.
func (r *Recognizer) firePress(pointer int) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.sessions[pointer]
	if !ok || s.moved || s.emitted {
		return
	}
	s.emitted = true
	r.emit(Gesture{
		Kind:     KindLongPress,
		X:        s.originX,
		Y:        s.originY,
		Duration: r.opts.LongPressDelay,
	})
}

func (r *Recognizer) handleMove(ev TouchEvent) Result {
	s, ok := r.sessions[ev.Pointer]
	if !ok {
		return Result{}
	}

	dx := ev.X - s.originX
	dy := ev.Y - s.originY
	if !s.moved && (math.Abs(dx) > r.opts.MoveThreshold || math.Abs(dy) > r.opts.MoveThreshold) {
		s.moved = true
		if s.longPress != nil {
			s.longPress.Stop()
			s.longPress = nil
		}
		s.horizontal = math.Abs(dx) > math.Abs(dy)
	}
	return Result{PreventScroll: s.moved && s.horizontal}
}

func (r *Recognizer) handleEnd(ev TouchEvent) Result {
	s, ok := r.sessions[ev.Pointer]
	if !ok {
		return Result{}
	}
	delete(r.sessions, ev.Pointer)
	if s.longPress != nil {
		s.longPress.Stop()
	}
	if s.emitted {
		// Long-press already claimed this sequence.
		return Result{}
	}

	dx := ev.X - s.originX
	dy := ev.Y - s.originY
	elapsed := ev.Time.Sub(s.startTime)

	if math.Abs(dx) >= r.opts.SwipeThreshold || math.Abs(dy) >= r.opts.SwipeThreshold {
		r.emit(Gesture{
			Kind:      KindSwipe,
			Direction: swipeDirection(dx, dy),
			X:         ev.X,
			Y:         ev.Y,
			Duration:  elapsed,
		})
		return Result{}
	}

	if elapsed < r.opts.TapTimeout {
		r.registerTap(ev, elapsed)
	}
	return Result{}
}

// registerTap defers tap emission by the double-tap window; a second tap
// arriving inside the window upgrades the pair to a single double-tap.
func (r *Recognizer) registerTap(ev TouchEvent, elapsed time.Duration) {
	if p := r.pending; p != nil && ev.Time.Sub(p.at) <= r.opts.DoubleTapWindow {
		p.timer.Stop()
		r.pending = nil
		r.emit(Gesture{
			Kind:     KindDoubleTap,
			X:        ev.X,
			Y:        ev.Y,
			Duration: ev.Time.Sub(p.at),
		})
		return
	}
	if r.pending != nil {
		r.pending.timer.Stop()
	}

	p := &pendingTap{x: ev.X, y: ev.Y, at: ev.Time, duration: elapsed}
	p.timer = r.newTimer(r.opts.DoubleTapWindow, func() {
		r.fireTap(p)
	})
	r.pending = p
}

func (r *Recognizer) fireTap(p *pendingTap) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.pending != p {
		return
	}
	r.pending = nil
	r.emit(Gesture{
		Kind:     KindTap,
		X:        p.x,
		Y:        p.y,
		Duration: p.duration,
	})
}

func (r *Recognizer) handleCancel(ev TouchEvent) {
	s, ok := r.sessions[ev.Pointer]
	if !ok {
		return
	}
	delete(r.sessions, ev.Pointer)
	if s.longPress != nil {
		s.longPress.Stop()
	}
	// Session discarded; no partial gesture is ever emitted.
}

// swipeDirection picks the dominant axis; horizontal wins an exact tie.
func swipeDirection(dx, dy float64) Direction {
	if math.Abs(dx) >= math.Abs(dy) {
		if dx < 0 {
			return DirectionLeft
		}
		return DirectionRight
	}
	if dy < 0 {
		return DirectionUp
	}
	return DirectionDown
}
