package shell

import (
	"github.com/sirupsen/logrus"

	"github.com/mstarongithub/way2shell/util/multiplexer"
)

// Actor owns a Shell exclusively and applies operations from a queue, one
// at a time. Protocol-role callbacks that live on different goroutines can
// all hold an Actor and never touch the Shell directly, which removes the
// re-entrancy hazard by construction instead of by runtime guard.
type Actor struct {
	shell  *Shell
	queue  chan func(*Shell)
	plexer *multiplexer.ManyToOne[func(*Shell)]
	done   chan struct{}
}

// NewActor wraps the shell. buffer is the inbound queue depth; 0 makes
// every Do call rendezvous with the loop.
func NewActor(shell *Shell, buffer int) *Actor {
	queue := make(chan func(*Shell), buffer)
	return &Actor{
		shell:  shell,
		queue:  queue,
		plexer: multiplexer.NewManyToOne(queue),
		done:   make(chan struct{}),
	}
}

// Do queues an operation against the shell. Returns an error only after
// Close; the operation itself cannot fail (the shell reports through its
// handler, not through return values).
func (a *Actor) Do(op func(*Shell)) error {
	return a.plexer.Send(op)
}

// Run processes queued operations until Close. The registries are
// refreshed whenever the queue drains, which matches the once-per-loop
// cadence the shell expects.
//
// Run is the only place the owned shell is ever touched.
func (a *Actor) Run() {
	defer close(a.done)
	for op := range a.queue {
		op(a.shell)
		if len(a.queue) == 0 {
			a.shell.Refresh()
		}
	}
	logrus.Debugln("Shell actor stopped")
}

// Close shuts the inbound queue down. Queued operations still run; Wait
// blocks until the loop has finished them.
func (a *Actor) Close() {
	a.plexer.Close()
}

// Wait blocks until Run has returned
func (a *Actor) Wait() {
	<-a.done
}
