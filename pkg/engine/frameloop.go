package engine

import (
	"sync"
	"time"
)

// FrameLoop calls tick at a fixed rate on its own goroutine until
// stopped. Stop does not wait for an in-flight tick, so tick must guard
// against running after its owner was torn down.
type FrameLoop struct {
	stop chan struct{}
	done chan struct{}
	once sync.Once
}

// StartFrameLoop starts ticking fps times per second.
func StartFrameLoop(fps int, tick func()) *FrameLoop {
	if fps <= 0 {
		fps = 30
	}
	l := &FrameLoop{stop: make(chan struct{}), done: make(chan struct{})}
	go func() {
		defer close(l.done)
		t := time.NewTicker(time.Second / time.Duration(fps))
		defer t.Stop()
		for {
			select {
			case <-l.stop:
				return
			case <-t.C:
				tick()
			}
		}
	}()
	return l
}

// Stop ends the loop. It is safe to call more than once.
func (l *FrameLoop) Stop() {
	l.once.Do(func() { close(l.stop) })
}

// Done is closed once the loop goroutine has exited.
func (l *FrameLoop) Done() <-chan struct{} {
	return l.done
}
