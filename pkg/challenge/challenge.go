// Package challenge implements the timed challenge that can bound a room phase:
// a countdown with one-shot warning ticks, a success check and a failure transition.
package challenge

import (
	"fmt"
	"maps"
	"slices"
	"time"

	"github.com/jwebster45206/room-engine/pkg/conditionals"
)

type State string

const (
	Inactive  State = "inactive"
	Active    State = "active"
	Completed State = "completed"
	Expired   State = "expired"
)

var defaultTimeout = []string{">> TIME EXPIRED. The sequence collapses around you."}

// Config describes a challenge attached to a room. Durations and thresholds are in seconds.
type Config struct {
	Duration        int                `json:"duration"`
	WarningAt       int                `json:"warning_at,omitempty"` // remaining seconds at which the warning fires
	WarningMessage  []string           `json:"warning_message,omitempty"`
	Ticks           map[int][]string   `json:"ticks,omitempty"` // remaining seconds -> lines, each fired at most once
	StartMessage    []string           `json:"start_message,omitempty"`
	TimeoutMessage  []string           `json:"timeout_message,omitempty"`
	FailDestination string             `json:"fail_destination"`
	SuccessFlag     string             `json:"success_flag,omitempty"`
	Success         *conditionals.When `json:"success,omitempty"`
	ResetFlags      []string           `json:"reset_flags,omitempty"` // cleared on expiry so the phase can be retried
}

// Succeeded reports whether the challenge's success condition holds for the given state.
func (c Config) Succeeded(view conditionals.StateView) bool {
	if c.SuccessFlag != "" && view.GetFlag(c.SuccessFlag) {
		return true
	}
	return c.Success.Triggers(view)
}

// Check reports configuration problems that do not depend on other rooms.
func (c Config) Check() error {
	if c.Duration <= 0 {
		return fmt.Errorf("challenge duration must be positive, got %d", c.Duration)
	}
	if c.FailDestination == "" {
		return fmt.Errorf("challenge has no fail destination")
	}
	if c.SuccessFlag == "" && c.Success.IsEmpty() {
		return fmt.Errorf("challenge has no success condition")
	}
	if c.WarningAt < 0 || (c.WarningAt > 0 && c.WarningAt >= c.Duration) {
		return fmt.Errorf("challenge warning_at %d outside (0, %d)", c.WarningAt, c.Duration)
	}
	for th := range c.Ticks {
		if th <= 0 || th >= c.Duration {
			return fmt.Errorf("challenge tick threshold %d outside (0, %d)", th, c.Duration)
		}
	}
	return nil
}

// thresholds returns every tick threshold, largest remaining time first.
func (c Config) thresholds() []int {
	ths := slices.Collect(maps.Keys(c.Ticks))
	if c.WarningAt > 0 && len(c.WarningMessage) > 0 {
		if _, ok := c.Ticks[c.WarningAt]; !ok {
			ths = append(ths, c.WarningAt)
		}
	}
	slices.Sort(ths)
	slices.Reverse(ths)
	return ths
}

func (c Config) linesAt(th int) []string {
	if lines, ok := c.Ticks[th]; ok {
		if th == c.WarningAt {
			return append(slices.Clone(lines), c.WarningMessage...)
		}
		return lines
	}
	return c.WarningMessage
}

// Outcome is the result of evaluating an active challenge at one point in time.
type Outcome struct {
	Lines     []string
	Completed bool
	Expired   bool
	Target    string // fail destination when Expired
}

// Challenge is the runtime state machine for one room visit.
type Challenge struct {
	cfg       Config
	state     State
	startedAt time.Time
	fired     map[int]bool
}

// New creates an inactive challenge.
func New(cfg Config) *Challenge {
	return &Challenge{cfg: cfg, state: Inactive, fired: make(map[int]bool)}
}

func (c *Challenge) State() State         { return c.state }
func (c *Challenge) Config() Config       { return c.cfg }
func (c *Challenge) IsActive() bool       { return c.state == Active }
func (c *Challenge) StartedAt() time.Time { return c.startedAt }

// Start activates an inactive challenge and returns the start message.
// Starting a challenge in any other state does nothing.
func (c *Challenge) Start(now time.Time) ([]string, bool) {
	if c.state != Inactive {
		return nil, false
	}
	c.state = Active
	c.startedAt = now
	c.fired = make(map[int]bool)
	return slices.Clone(c.cfg.StartMessage), true
}

// Elapsed is the time since the challenge started, zero unless active.
func (c *Challenge) Elapsed(now time.Time) time.Duration {
	if c.state != Active {
		return 0
	}
	return now.Sub(c.startedAt)
}

// Remaining is the time left before expiry, never negative.
func (c *Challenge) Remaining(now time.Time) time.Duration {
	if c.state != Active {
		return 0
	}
	left := c.duration() - c.Elapsed(now)
	return max(left, 0)
}

// Overdue reports whether an active challenge has run out of time.
func (c *Challenge) Overdue(now time.Time) bool {
	return c.state == Active && c.Elapsed(now) >= c.duration()
}

// Evaluate advances the state machine. The completion check runs first so a success
// on the same poll as the deadline still counts. Then every crossed, unfired tick is
// emitted largest-remaining first, and finally the deadline is checked.
func (c *Challenge) Evaluate(now time.Time, completed bool) Outcome {
	if c.state != Active {
		return Outcome{}
	}

	if completed {
		c.resolve(Completed)
		return Outcome{Completed: true}
	}

	var out Outcome
	remaining := c.duration() - c.Elapsed(now)
	for _, th := range c.cfg.thresholds() {
		if c.fired[th] || time.Duration(th)*time.Second < remaining {
			continue
		}
		c.fired[th] = true
		out.Lines = append(out.Lines, c.cfg.linesAt(th)...)
	}

	if remaining <= 0 {
		c.resolve(Expired)
		out.Expired = true
		out.Target = c.cfg.FailDestination
		if len(c.cfg.TimeoutMessage) > 0 {
			out.Lines = append(out.Lines, c.cfg.TimeoutMessage...)
		} else {
			out.Lines = append(out.Lines, defaultTimeout...)
		}
	}
	return out
}

// Reset discards all timer state and returns the challenge to inactive.
func (c *Challenge) Reset() {
	c.state = Inactive
	c.startedAt = time.Time{}
	c.fired = make(map[int]bool)
}

// Status is a one-line countdown for status displays. Empty unless active.
func (c *Challenge) Status(now time.Time) string {
	if c.state != Active {
		return ""
	}
	left := c.Remaining(now)
	secs := int(left.Round(time.Second) / time.Second)
	clock := fmt.Sprintf("%d:%02d", secs/60, secs%60)
	if c.cfg.WarningAt > 0 && left <= time.Duration(c.cfg.WarningAt)*time.Second {
		return ">> WARNING: " + clock + " - TIME RUNNING OUT"
	}
	return ">> TIME REMAINING: " + clock
}

func (c *Challenge) duration() time.Duration {
	return time.Duration(c.cfg.Duration) * time.Second
}

// resolve ends the countdown. The timer data is dropped so nothing can fire from it later.
func (c *Challenge) resolve(s State) {
	c.state = s
	c.startedAt = time.Time{}
	c.fired = make(map[int]bool)
}
