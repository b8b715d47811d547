package device

import (
	"sync"
)

// Stream represents an ordered sequence of operations that execute
// asynchronously. Operations within a stream execute in submission order,
// operations in different streams may execute concurrently.
type Stream struct {
	id    int
	tasks chan func() error
	done  chan struct{}
	wg    sync.WaitGroup

	mu        sync.Mutex
	err       error
	destroyed bool
}

func newStream(id int) *Stream {
	s := &Stream{
		id:    id,
		tasks: make(chan func() error, 1000),
		done:  make(chan struct{}),
	}
	go s.worker()
	return s
}

// NewStream creates a stream that is not owned by any context.
// The caller must Destroy it.
func NewStream() *Stream {
	return newStream(0)
}

// ID returns the stream identifier.
func (s *Stream) ID() int {
	return s.id
}

// worker processes tasks for a stream
func (s *Stream) worker() {
	for task := range s.tasks {
		if err := task(); err != nil {
			s.mu.Lock()
			if s.err == nil {
				s.err = err
			}
			s.mu.Unlock()
		}
		s.wg.Done()
	}
	close(s.done)
}

// Submit adds a task to the stream. Submitting to a destroyed stream
// returns ErrStreamDestroyed.
func (s *Stream) Submit(task func() error) error {
	s.mu.Lock()
	if s.destroyed {
		s.mu.Unlock()
		return ErrStreamDestroyed
	}
	s.wg.Add(1)
	s.mu.Unlock()

	s.tasks <- task
	return nil
}

// Synchronize waits for all submitted tasks to complete and returns the
// first error a task reported since the previous Synchronize.
func (s *Stream) Synchronize() error {
	s.wg.Wait()

	s.mu.Lock()
	defer s.mu.Unlock()
	err := s.err
	s.err = nil
	return err
}

// Destroy drains the stream and stops its worker. It is safe to call more than once.
func (s *Stream) Destroy() {
	s.mu.Lock()
	if s.destroyed {
		s.mu.Unlock()
		return
	}
	s.destroyed = true
	s.mu.Unlock()

	s.wg.Wait()
	close(s.tasks)
	<-s.done
}
