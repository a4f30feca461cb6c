package trafficlight

import (
	"context"
	"time"
)

type transitionKeyType string

const (
	transitionKey transitionKeyType = "transition"
)

// Transition describes one phase change made by the timer loop.
type Transition struct {
	Phase Phase         `json:"phase"`
	At    time.Time     `json:"at"`
	Cycle time.Duration `json:"cycle"`
	Seq   uint64        `json:"seq"`
}

func withTransition(ctx context.Context, t Transition) context.Context {
	return context.WithValue(ctx, transitionKey, t)
}

func transitionFromContext(ctx context.Context) (Transition, bool) {
	t, ok := ctx.Value(transitionKey).(Transition)
	return t, ok
}
