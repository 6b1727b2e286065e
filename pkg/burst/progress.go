package burst

// Stage names, in pipeline order. Progress events use these, as do
// the stage annotations on errors.
const(
	StagePyramid = "pyramid"
	StageAlign   = "align"
	StageMerge   = "merge"
	StageFinish  = "finish"
)

// A ProgressFunc gets called after each chunk of work with the stage
// name and the fraction of that stage complete, in [0,1]. It is
// called from the orchestrator goroutine only. Pass nil to not care.
type ProgressFunc func(stage string, fraction float64)

func (fn ProgressFunc)emit(stage string, fraction float64) {
	if fn != nil {
		fn(stage, fraction)
	}
}
