package trafficlight

import "time"

var NewExpectCodeFunc = newExpectCodeFunc

// Enqueue pushes p into the cycler's queue without touching the timer loop.
func Enqueue(c *PhaseCycler, phases ...Phase) {
	for _, p := range phases {
		c.queue.Send(p)
	}
}

func QueueLen(c *PhaseCycler) int {
	return c.queue.Len()
}

func Receive(c *PhaseCycler) Phase {
	return c.queue.Receive()
}

func SetPhase(c *PhaseCycler, p Phase) {
	c.phase.Store(p)
}

func DrawCycle(c *PhaseCycler) time.Duration {
	return c.drawCycle()
}
