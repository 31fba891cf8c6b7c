package runner

import (
	"time"

	"github.com/google/uuid"

	"github.com/jwebster45206/room-engine/pkg/state"
)

// Special inputs that act on the playthrough instead of being sent to the engine
const (
	ResetSessionInput  = "RESET_SESSION"  // start over from the seed
	ReloadSessionInput = "RELOAD_SESSION" // save, then resume from the store in a fresh engine
	PollInput          = "POLL"           // advance the timed challenge without input
)

// TestSuite defines one scripted playthrough.
// Can either be a regular test with Steps, or a suite that references other Cases
type TestSuite struct {
	Name      string       `json:"name"`
	StartRoom string       `json:"start_room,omitempty"` // Used for regular tests, defaults to the runner's start room
	Seed      *state.Delta `json:"seed,omitempty"`       // Applied to the new session before the first room is entered
	Steps     []TestStep   `json:"steps,omitempty"`      // Used for regular tests
	Cases     []string     `json:"cases,omitempty"`      // Used for suite tests (list of case files)
}

// IsSequence returns true if this is a suite that sequences other cases
func (ts *TestSuite) IsSequence() bool {
	return len(ts.Cases) > 0
}

// TestStep is one line of player input and its expected outcome.
// Wait advances the simulated clock before the input is handled.
type TestStep struct {
	Name         string       `json:"name,omitempty"`
	Input        string       `json:"input"`
	Wait         float64      `json:"wait,omitempty"` // seconds
	Expectations Expectations `json:"expect"`
}

// Expectations defines what to check after a step executes
type Expectations struct {
	Room      *string        `json:"room,omitempty"`
	Inventory []string       `json:"inventory,omitempty"` // Full inventory contents (order independent)
	Flags     []string       `json:"flags,omitempty"`     // Must be set
	NotFlags  []string       `json:"not_flags,omitempty"` // Must be clear
	Vars      map[string]any `json:"vars,omitempty"`
	Score     *int           `json:"score,omitempty"`
	Health    *int           `json:"health,omitempty"`
	Ended     *bool          `json:"ended,omitempty"`
	Challenge *bool          `json:"challenge_active,omitempty"`

	// Response Analysis
	ResponseContains    []string `json:"response_contains,omitempty"`
	ResponseNotContains []string `json:"response_not_contains,omitempty"`
	ResponseRegex       string   `json:"response_regex,omitempty"`
}

// TestResult contains the outcome of running a test step
type TestResult struct {
	StepName     string
	Success      bool
	Error        error
	Duration     time.Duration
	ResponseText string
	IsReset      bool // True for RESET_SESSION steps, which do not count toward pass/fail metrics
}

// TestJob represents a test suite to be executed
type TestJob struct {
	Name     string
	Suite    TestSuite
	CaseFile string
}

// TestRunResult contains the results of running an entire test suite
type TestRunResult struct {
	Job      TestJob
	Results  []TestResult
	Error    error
	Duration time.Duration
	Session  uuid.UUID // ID of the last session used for this test
}
