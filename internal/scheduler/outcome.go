package scheduler

import (
	"fmt"
	"time"

	"github.com/bargom/pointyflow/internal/resultstore"
)

// RunStatus is the terminal status of an entire run.
type RunStatus int

const (
	Succeeded RunStatus = iota
	Failed
	Cancelled
)

func (s RunStatus) String() string {
	switch s {
	case Succeeded:
		return "Succeeded"
	case Failed:
		return "Failed"
	case Cancelled:
		return "Cancelled"
	default:
		return "Unknown"
	}
}

// Timing records one node instance's observed execution window.
type Timing struct {
	Started  time.Time
	Ended    time.Time
	Attempts int
}

// Outcome is the terminal result of one scheduler run, matching spec
// §6's run outcome object.
type Outcome struct {
	RunID       string
	Status      RunStatus
	FailedNodes []string
	Results     map[string]resultstore.Entry
	Timings     map[string]Timing
}

func instanceLabel(nodeID string, replica int) string {
	return fmt.Sprintf("%s[%d]", nodeID, replica)
}
