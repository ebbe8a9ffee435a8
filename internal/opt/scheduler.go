package opt

import "math"

// Defaults of the decaying schedule.
const (
	DefaultInitialRate = 5.0e-02
	DefaultDecay       = 0.95
	DefaultFloor       = 1.0e-04
)

// ExpDecay decays the learning rate geometrically every epoch:
// rate(epoch) = max(Initial * Decay^epoch, Floor).
type ExpDecay struct {
	Initial float32
	Decay   float32
	Floor   float32
}

// NewExpDecay returns the default decaying schedule.
func NewExpDecay() ExpDecay {
	return ExpDecay{
		Initial: DefaultInitialRate,
		Decay:   DefaultDecay,
		Floor:   DefaultFloor,
	}
}

// Constant returns a schedule that always yields rate.
func Constant(rate float32) ExpDecay {
	return ExpDecay{Initial: rate, Decay: 1, Floor: 0}
}

// Rate returns the learning rate for the given epoch.
func (s ExpDecay) Rate(epoch int) float32 {
	rate := float32(float64(s.Initial) * math.Pow(float64(s.Decay), float64(epoch)))
	if rate < s.Floor {
		rate = s.Floor
	}
	return rate
}

// Optimizer returns the SGD state for the given epoch.
func (s ExpDecay) Optimizer(epoch int) SGD {
	return SGD{Rate: s.Rate(epoch)}
}
