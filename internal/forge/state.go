package forge

// State is a step of the attempt loop.
type State int

const (
	StateInit State = iota
	StateGenerate
	StateExtract
	StateWriteAndLoad
	StateExecute
	StateValidate
	StateSuccess
	StateRetry
	StateExhausted
)

func (s State) String() string {
	switch s {
	case StateInit:
		return "INIT"
	case StateGenerate:
		return "GENERATE"
	case StateExtract:
		return "EXTRACT"
	case StateWriteAndLoad:
		return "WRITE_AND_LOAD"
	case StateExecute:
		return "EXECUTE"
	case StateValidate:
		return "VALIDATE"
	case StateSuccess:
		return "SUCCESS"
	case StateRetry:
		return "RETRY"
	case StateExhausted:
		return "EXHAUSTED"
	default:
		return "UNKNOWN"
	}
}

// Terminal reports whether the loop stops in this state.
func (s State) Terminal() bool {
	return s == StateSuccess || s == StateExhausted
}
