package app

import "fmt"

// Phase is the stage a run has reached.
type Phase int

const (
	Idle Phase = iota
	Loading
	Training
	Evaluating
	Done
)

var phaseNames = [...]string{"idle", "loading", "training", "evaluating", "done"}

func (p Phase) String() string {
	if p < 0 || int(p) >= len(phaseNames) {
		return fmt.Sprintf("Phase(%d)", int(p))
	}
	return phaseNames[p]
}

// next lists the phases reachable from each phase. A loaded model goes
// straight from Loading to Evaluating.
var next = map[Phase][]Phase{
	Idle:       {Loading},
	Loading:    {Training, Evaluating},
	Training:   {Evaluating},
	Evaluating: {Done},
}

// CanAdvance reports whether a run in phase p may move to q.
func (p Phase) CanAdvance(q Phase) bool {
	for _, n := range next[p] {
		if n == q {
			return true
		}
	}
	return false
}
