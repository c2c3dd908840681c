package clientsim

// State is a flat field->value map, the same shape Interpolator.Snapshot
// carries, used here for both authoritative and predicted states.
type State = map[string]float64

// Input is one buffered client input awaiting server acknowledgement.
type Input struct {
	Seq   uint64
	Value map[string]any
}

// ApplyInputFunc replays one input atop state and returns the resulting
// state. Must be pure in (state, input): the client and server must apply
// the same function to the same input for prediction to converge.
type ApplyInputFunc func(state State, input Input) State

const correctionEpsilon = 1e-6

// Predictor replays unconfirmed input atop the latest authoritative state
// and smooths away any correction over a handful of frames rather than
// snapping instantly.
type Predictor struct {
	smoothingFrames int
	apply           ApplyInputFunc

	offsets map[string]float64
	t       float64
}

// NewPredictor returns a Predictor that spreads corrections over
// smoothingFrames calls to GetSmoothed, replaying input via apply.
func NewPredictor(smoothingFrames int, apply ApplyInputFunc) *Predictor {
	if smoothingFrames <= 0 {
		smoothingFrames = 3
	}
	return &Predictor{smoothingFrames: smoothingFrames, apply: apply, t: 1}
}

// Predict replays every entry in unconfirmed atop serverState in Seq order,
// producing the client's locally-predicted present.
func (p *Predictor) Predict(serverState State, unconfirmed []Input) State {
	state := cloneFloatMap(serverState)
	for _, in := range unconfirmed {
		state = p.apply(state, in)
	}
	return state
}

// SetCorrection compares the state the client had predicted for the tick
// the server just acknowledged (predictedThen) against the server's actual
// truth for that same tick, recording a correction offset for every field
// differing by more than correctionEpsilon. Resets the smoothing clock so
// GetSmoothed begins blending the new offsets from scratch.
func (p *Predictor) SetCorrection(predictedThen, serverTruth State) {
	offsets := make(map[string]float64)
	for field, truth := range serverTruth {
		predicted, ok := predictedThen[field]
		if !ok {
			continue
		}
		diff := predicted - truth
		if diff > correctionEpsilon || diff < -correctionEpsilon {
			offsets[field] = diff
		}
	}
	p.offsets = offsets
	p.t = 0
}

// GetSmoothed returns currentState with any pending correction offsets
// blended in, shrinking by 1/smoothingFrames on each call so a visible
// snapback is spread across smoothingFrames frames rather than instant.
// Once the smoothing clock reaches 1, offsets are cleared and subsequent
// calls return currentState unchanged.
func (p *Predictor) GetSmoothed(currentState State) State {
	if len(p.offsets) == 0 || p.t >= 1 {
		p.offsets = nil
		return cloneFloatMap(currentState)
	}

	p.t += 1.0 / float64(p.smoothingFrames)
	remaining := 1 - p.t
	if remaining < 0 {
		remaining = 0
	}

	out := make(State, len(currentState))
	for field, v := range currentState {
		if off, ok := p.offsets[field]; ok {
			out[field] = v + off*remaining
		} else {
			out[field] = v
		}
	}

	if p.t >= 1 {
		p.offsets = nil
	}
	return out
}

func cloneFloatMap(s State) State {
	out := make(State, len(s))
	for k, v := range s {
		out[k] = v
	}
	return out
}
