package gesture

import (
	"testing"
	"time"
)

var base = time.Unix(1000, 0)

func at(ms int) time.Time { return base.Add(time.Duration(ms) * time.Millisecond) }

func ev(kind EventType, x, y float64, ms int) TouchEvent {
	return TouchEvent{Type: kind, X: x, Y: y, Time: at(ms)}
}

func recognize(t *testing.T, events ...TouchEvent) []Gesture {
	t.Helper()
	return RecognizeSequence(events, Options{})
}

func TestQuickTouchYieldsSingleTap(t *testing.T) {
	gestures := recognize(t,
		ev(TouchStart, 10, 10, 0),
		ev(TouchEnd, 10, 10, 100),
	)
	if len(gestures) != 1 || gestures[0].Kind != KindTap {
		t.Fatalf("gestures = %+v, want single tap", gestures)
	}
	if gestures[0].X != 10 || gestures[0].Y != 10 {
		t.Fatalf("tap position = (%v,%v), want (10,10)", gestures[0].X, gestures[0].Y)
	}
}

func TestTwoQuickTapsYieldOneDoubleTap(t *testing.T) {
	gestures := recognize(t,
		ev(TouchStart, 10, 10, 0),
		ev(TouchEnd, 10, 10, 50),
		ev(TouchStart, 10, 10, 200),
		ev(TouchEnd, 10, 10, 250),
	)
	if len(gestures) != 1 {
		t.Fatalf("gestures = %+v, want exactly one", gestures)
	}
	if gestures[0].Kind != KindDoubleTap {
		t.Fatalf("kind = %s, want double tap", gestures[0].Kind)
	}
}

func TestSlowSecondTapYieldsTwoTaps(t *testing.T) {
	gestures := recognize(t,
		ev(TouchStart, 10, 10, 0),
		ev(TouchEnd, 10, 10, 50),
		ev(TouchStart, 10, 10, 500),
		ev(TouchEnd, 10, 10, 550),
	)
	if len(gestures) != 2 {
		t.Fatalf("gestures = %+v, want two taps", gestures)
	}
	for _, g := range gestures {
		if g.Kind != KindTap {
			t.Fatalf("kind = %s, want tap", g.Kind)
		}
	}
}

func TestStationaryHoldYieldsLongPress(t *testing.T) {
	gestures := recognize(t,
		ev(TouchStart, 30, 40, 0),
		ev(TouchEnd, 30, 40, 600),
	)
	if len(gestures) != 1 || gestures[0].Kind != KindLongPress {
		t.Fatalf("gestures = %+v, want single long press", gestures)
	}
	if gestures[0].X != 30 || gestures[0].Y != 40 {
		t.Fatalf("position = (%v,%v), want origin", gestures[0].X, gestures[0].Y)
	}
}

func TestMovementCancelsLongPress(t *testing.T) {
	gestures := recognize(t,
		ev(TouchStart, 0, 0, 0),
		ev(TouchMove, 20, 0, 100),
		ev(TouchEnd, 20, 0, 700),
	)
	// Moved past the jitter threshold but short of a swipe, held past the
	// long-press delay: nothing qualifies.
	if len(gestures) != 0 {
		t.Fatalf("gestures = %+v, want none", gestures)
	}
}

func TestHorizontalSwipe(t *testing.T) {
	gestures := recognize(t,
		ev(TouchStart, 0, 0, 0),
		ev(TouchMove, 40, 5, 100),
		ev(TouchEnd, 80, 10, 200),
	)
	if len(gestures) != 1 || gestures[0].Kind != KindSwipe {
		t.Fatalf("gestures = %+v, want single swipe", gestures)
	}
	if gestures[0].Direction != DirectionRight {
		t.Fatalf("direction = %s, want right", gestures[0].Direction)
	}
}

func TestVerticalSwipeUp(t *testing.T) {
	gestures := recognize(t,
		ev(TouchStart, 0, 100, 0),
		ev(TouchEnd, 0, 20, 200),
	)
	if len(gestures) != 1 || gestures[0].Direction != DirectionUp {
		t.Fatalf("gestures = %+v, want swipe up", gestures)
	}
}

func TestDiagonalTieGoesHorizontal(t *testing.T) {
	gestures := recognize(t,
		ev(TouchStart, 0, 0, 0),
		ev(TouchEnd, -60, 60, 200),
	)
	if len(gestures) != 1 || gestures[0].Direction != DirectionLeft {
		t.Fatalf("gestures = %+v, want swipe left on tie", gestures)
	}
}

func TestCancelDiscardsSequenceSilently(t *testing.T) {
	gestures := recognize(t,
		ev(TouchStart, 0, 0, 0),
		ev(TouchMove, 100, 0, 100),
		ev(TouchCancel, 100, 0, 150),
	)
	if len(gestures) != 0 {
		t.Fatalf("gestures = %+v, want none after cancel", gestures)
	}
}

func TestLongPressClaimsWholeSequence(t *testing.T) {
	gestures := recognize(t,
		ev(TouchStart, 0, 0, 0),
		ev(TouchMove, 100, 0, 600),
		ev(TouchEnd, 100, 0, 700),
	)
	// The long press fired at 500ms before any movement; the later swipe
	// distance must not produce a second gesture.
	if len(gestures) != 1 || gestures[0].Kind != KindLongPress {
		t.Fatalf("gestures = %+v, want only the long press", gestures)
	}
}

func TestHorizontalDragLocksScroll(t *testing.T) {
	r := NewRecognizer(func(Gesture) {}, Options{})

	r.Process(ev(TouchStart, 0, 0, 0))
	res := r.Process(ev(TouchMove, 30, 2, 50))
	if !res.PreventScroll {
		t.Fatal("horizontal drag did not lock scroll")
	}
	// The lock holds for the rest of the drag.
	res = r.Process(ev(TouchMove, 31, 40, 80))
	if !res.PreventScroll {
		t.Fatal("directional lock released mid-drag")
	}
	r.Process(ev(TouchEnd, 31, 40, 120))
}

func TestVerticalDragKeepsScrolling(t *testing.T) {
	r := NewRecognizer(func(Gesture) {}, Options{})

	r.Process(ev(TouchStart, 0, 0, 0))
	if res := r.Process(ev(TouchMove, 2, 30, 50)); res.PreventScroll {
		t.Fatal("vertical drag locked scroll")
	}
	r.Process(ev(TouchEnd, 2, 30, 120))
}

func TestCustomThresholds(t *testing.T) {
	gestures := RecognizeSequence([]TouchEvent{
		ev(TouchStart, 0, 0, 0),
		ev(TouchEnd, 30, 0, 100),
	}, Options{SwipeThreshold: 25})
	if len(gestures) != 1 || gestures[0].Kind != KindSwipe {
		t.Fatalf("gestures = %+v, want swipe at lowered threshold", gestures)
	}
}
