package trafficlight

// Phase is the state of the light: red or green.
type Phase string

const (
	PhaseRed   Phase = "red"
	PhaseGreen Phase = "green"
)

// Next returns the phase that follows p. Anything other than green is
// treated as red.
func (p Phase) Next() Phase {
	if p == PhaseGreen {
		return PhaseRed
	}
	return PhaseGreen
}

func (p Phase) String() string {
	return string(p)
}
