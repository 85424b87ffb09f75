package volumetric

// FramesInFlight is the number of per-frame GPU buffer slots the streamer
// cycles through. Frame f publishes into slot f % FramesInFlight and must wait
// for the frame that last used that slot to finish on the GPU before writing.
const FramesInFlight = 2

// frameSlots gates CPU writes into per-frame buffer regions. Each slot holds a
// token that is taken by Acquire and returned by Release; acquiring a slot
// whose previous frame has not released it blocks until it does. Every slot
// starts released, so the first FramesInFlight frames acquire without waiting.
type frameSlots struct {
	tokens []chan struct{}
}

func newFrameSlots(count int) *frameSlots {
	s := &frameSlots{tokens: make([]chan struct{}, count)}
	for i := range s.tokens {
		s.tokens[i] = make(chan struct{}, 1)
		s.tokens[i] <- struct{}{}
	}
	return s
}

// Acquire blocks until the slot's previous use has been released, then claims it.
func (s *frameSlots) Acquire(slot int) {
	<-s.tokens[slot%len(s.tokens)]
}

// Release returns the slot for reuse. Called once the GPU work that reads the
// slot's buffers has completed (after the frame's submission is retired).
func (s *frameSlots) Release(slot int) {
	select {
	case s.tokens[slot%len(s.tokens)] <- struct{}{}:
	default:
		// Already released; double release is a no-op.
	}
}
