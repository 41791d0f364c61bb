package subm

import (
	mapset "github.com/deckarep/golang-set/v2"
)

// Status is the lifecycle state of a submission. The string values are
// stored verbatim in the submissions table and read by polling clients,
// so they must never change.
type Status string

const (
	StatusInQueue       Status = "In Queue"
	StatusProcessing    Status = "Processing"
	StatusAccepted      Status = "Accepted"
	StatusWrongAnswer   Status = "Wrong Answer"
	StatusCompileError  Status = "Compilation Error"
	StatusRuntimeError  Status = "Runtime Error"
	StatusTimeLimit     Status = "Time Limit Exceeded"
	StatusInternalError Status = "Internal Error"
)

var terminalStatuses = mapset.NewSet(
	StatusAccepted,
	StatusWrongAnswer,
	StatusCompileError,
	StatusRuntimeError,
	StatusTimeLimit,
	StatusInternalError,
)

// IsTerminal reports whether s is a final verdict. A submission in a
// terminal status is never picked up again.
func (s Status) IsTerminal() bool {
	return terminalStatuses.Contains(s)
}

func (s Status) String() string {
	return string(s)
}
