package challenge

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwebster45206/room-engine/pkg/conditionals"
)

var t0 = time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

func at(seconds float64) time.Time {
	return t0.Add(time.Duration(seconds * float64(time.Second)))
}

func traceConfig() Config {
	return Config{
		Duration:       60,
		WarningAt:      10,
		WarningMessage: []string{"warning"},
		Ticks: map[int][]string{
			50: {"tick 50"},
			40: {"tick 40"},
			20: {"tick 20"},
		},
		StartMessage:    []string{"start"},
		TimeoutMessage:  []string{"timeout"},
		FailDestination: "hub",
		SuccessFlag:     "locked",
		ResetFlags:      []string{"tracing"},
	}
}

func TestChallenge_StartOnlyFromInactive(t *testing.T) {
	c := New(traceConfig())
	assert.Equal(t, Inactive, c.State())

	lines, ok := c.Start(t0)
	require.True(t, ok)
	assert.Equal(t, []string{"start"}, lines)
	assert.True(t, c.IsActive())
	assert.Equal(t, t0, c.StartedAt())

	_, ok = c.Start(at(5))
	assert.False(t, ok, "an active challenge cannot be restarted")
	assert.Equal(t, t0, c.StartedAt())
}

func TestChallenge_EvaluateInactiveDoesNothing(t *testing.T) {
	c := New(traceConfig())
	assert.Equal(t, Outcome{}, c.Evaluate(at(100), false))
	assert.Equal(t, Inactive, c.State())
}

func TestChallenge_TicksFireOnceLargestFirst(t *testing.T) {
	c := New(traceConfig())
	c.Start(t0)

	out := c.Evaluate(at(5), false)
	assert.Empty(t, out.Lines, "nothing crossed yet")

	out = c.Evaluate(at(25), false)
	assert.Equal(t, []string{"tick 50", "tick 40"}, out.Lines, "both crossed thresholds fire, largest remaining first")

	out = c.Evaluate(at(26), false)
	assert.Empty(t, out.Lines, "ticks never repeat")

	out = c.Evaluate(at(51), false)
	assert.Equal(t, []string{"tick 20", "warning"}, out.Lines)
	assert.False(t, out.Expired)
	assert.True(t, c.IsActive())
}

func TestChallenge_SkippedThresholdsAllFire(t *testing.T) {
	c := New(traceConfig())
	c.Start(t0)

	// 15s remain: every threshold at or above that has been crossed.
	out := c.Evaluate(at(45), false)
	assert.Equal(t, []string{"tick 50", "tick 40", "tick 20"}, out.Lines)

	out = c.Evaluate(at(49), false)
	assert.Empty(t, out.Lines, "crossed thresholds do not fire again before the deadline")

	out = c.Evaluate(at(50), false)
	assert.Equal(t, []string{"warning"}, out.Lines)
}

func TestChallenge_Expiry(t *testing.T) {
	c := New(traceConfig())
	c.Start(t0)
	c.Evaluate(at(25), false)

	out := c.Evaluate(at(60), false)
	assert.True(t, out.Expired)
	assert.Equal(t, "hub", out.Target)
	assert.Equal(t, []string{"tick 20", "warning", "timeout"}, out.Lines, "remaining ticks flush before the timeout message")
	assert.Equal(t, Expired, c.State())
	assert.True(t, c.StartedAt().IsZero(), "timer data is dropped on resolution")

	assert.Equal(t, Outcome{}, c.Evaluate(at(61), false), "a resolved challenge never fires again")
}

func TestChallenge_DefaultTimeoutMessage(t *testing.T) {
	cfg := traceConfig()
	cfg.TimeoutMessage = nil
	c := New(cfg)
	c.Start(t0)

	out := c.Evaluate(at(90), false)
	require.True(t, out.Expired)
	assert.Equal(t, defaultTimeout[0], out.Lines[len(out.Lines)-1])
}

func TestChallenge_CompletionBeatsExpiry(t *testing.T) {
	c := New(traceConfig())
	c.Start(t0)

	out := c.Evaluate(at(59), true)
	assert.True(t, out.Completed)
	assert.False(t, out.Expired)
	assert.Equal(t, Completed, c.State())

	c = New(traceConfig())
	c.Start(t0)
	out = c.Evaluate(at(75), true)
	assert.True(t, out.Completed, "success detected on the same poll as the deadline still counts")
}

func TestChallenge_Overdue(t *testing.T) {
	c := New(traceConfig())
	assert.False(t, c.Overdue(at(100)), "inactive challenges are never overdue")

	c.Start(t0)
	assert.False(t, c.Overdue(at(59.9)))
	assert.True(t, c.Overdue(at(60)))
	assert.Equal(t, time.Duration(0), c.Remaining(at(70)))
}

func TestChallenge_Reset(t *testing.T) {
	c := New(traceConfig())
	c.Start(t0)
	c.Evaluate(at(25), false)

	c.Reset()
	assert.Equal(t, Inactive, c.State())
	assert.True(t, c.StartedAt().IsZero())

	c.Start(at(100))
	out := c.Evaluate(at(125), false)
	assert.Equal(t, []string{"tick 50", "tick 40"}, out.Lines, "fired ticks are forgotten after a reset")
}

func TestChallenge_Status(t *testing.T) {
	c := New(traceConfig())
	assert.Equal(t, "", c.Status(t0))

	c.Start(t0)
	assert.Equal(t, ">> TIME REMAINING: 0:45", c.Status(at(15)))
	assert.Equal(t, ">> WARNING: 0:08 - TIME RUNNING OUT", c.Status(at(52)))
}

func TestConfig_Succeeded(t *testing.T) {
	view := testView{flags: map[string]bool{"locked": true}}

	assert.True(t, traceConfig().Succeeded(view))

	cfg := traceConfig()
	cfg.SuccessFlag = ""
	assert.False(t, cfg.Succeeded(view), "no success condition means never succeeded")

	cfg.Success = &conditionals.When{Flags: []string{"locked"}}
	assert.True(t, cfg.Succeeded(view))
}

func TestConfig_Check(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{name: "valid", mutate: func(*Config) {}},
		{name: "zero duration", mutate: func(c *Config) { c.Duration = 0 }, wantErr: true},
		{name: "no fail destination", mutate: func(c *Config) { c.FailDestination = "" }, wantErr: true},
		{name: "no success condition", mutate: func(c *Config) { c.SuccessFlag = "" }, wantErr: true},
		{name: "success clause only", mutate: func(c *Config) {
			c.SuccessFlag = ""
			c.Success = &conditionals.When{Flags: []string{"x"}}
		}},
		{name: "tick past duration", mutate: func(c *Config) { c.Ticks[60] = []string{"late"} }, wantErr: true},
		{name: "no warning", mutate: func(c *Config) { c.WarningAt = 0 }},
		{name: "warning at duration", mutate: func(c *Config) { c.WarningAt = 60 }, wantErr: true},
		{name: "warning past duration", mutate: func(c *Config) { c.WarningAt = 90 }, wantErr: true},
		{name: "negative warning", mutate: func(c *Config) { c.WarningAt = -1 }, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := traceConfig()
			tt.mutate(&cfg)
			err := cfg.Check()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

type testView struct {
	flags map[string]bool
}

func (v testView) GetFlag(name string) bool     { return v.flags[name] }
func (v testView) HasItem(string) bool          { return false }
func (v testView) GetVar(_ string, def any) any { return def }
func (v testView) CurrentRoom() string          { return "" }
