package runner

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"slices"
	"strings"
	"time"

	"github.com/goccy/go-json"

	"github.com/jwebster45206/room-engine/internal/storage"
	"github.com/jwebster45206/room-engine/pkg/engine"
	"github.com/jwebster45206/room-engine/pkg/rooms"
	"github.com/jwebster45206/room-engine/pkg/state"
)

type ErrorHandlingMode string

const ErrorHandlingExit ErrorHandlingMode = "exit"
const ErrorHandlingContinue ErrorHandlingMode = "continue"

// Runner plays scripted suites against the engine over a directory of room content
type Runner struct {
	RoomsDir          string
	StartRoom         string
	Store             storage.SessionStore // used by RELOAD_SESSION steps
	Debug             bool                 // enables debug-only global commands
	Logger            func(format string, args ...interface{})
	ErrorHandlingMode ErrorHandlingMode
	log               *slog.Logger
}

// NewRunner creates a new test runner backed by an in-memory session store
func NewRunner(roomsDir string) *Runner {
	return &Runner{
		RoomsDir:          roomsDir,
		StartRoom:         "boot",
		Store:             storage.NewMemoryStore(),
		Logger:            func(string, ...interface{}) {},
		ErrorHandlingMode: ErrorHandlingContinue,
		log:               slog.New(slog.DiscardHandler),
	}
}

// WithLogger routes engine and loader logs to l
func (r *Runner) WithLogger(l *slog.Logger) *Runner {
	if l != nil {
		r.log = l
	}
	return r
}

// LoadTestSuite loads a test suite from a JSON file
func LoadTestSuite(filename string) (TestSuite, error) {
	content, err := os.ReadFile(filename)
	if err != nil {
		return TestSuite{}, fmt.Errorf("failed to read test file %s: %w", filename, err)
	}

	var suite TestSuite
	if err := json.Unmarshal(content, &suite); err != nil {
		return TestSuite{}, fmt.Errorf("failed to parse JSON in %s: %w", filename, err)
	}

	return suite, nil
}

// LoadTestSuiteWithExpansion loads a test suite and expands it if it's a sequence
// Returns a list of actual test suites (expanded from the sequence if needed)
func LoadTestSuiteWithExpansion(filename string, casesDir string) ([]TestJob, error) {
	return loadExpanded(filename, casesDir, nil)
}

func loadExpanded(filename, casesDir string, seen []string) ([]TestJob, error) {
	if slices.Contains(seen, filename) {
		return nil, fmt.Errorf("sequence cycle: %s", strings.Join(append(seen, filename), " -> "))
	}
	suite, err := LoadTestSuite(filename)
	if err != nil {
		return nil, err
	}

	if !suite.IsSequence() {
		return []TestJob{{
			Name:     suite.Name,
			Suite:    suite,
			CaseFile: filename,
		}}, nil
	}

	var jobs []TestJob
	for _, caseFile := range suite.Cases {
		casePath := filepath.Join(casesDir, caseFile)
		subJobs, err := loadExpanded(casePath, casesDir, append(seen, filename))
		if err != nil {
			return nil, fmt.Errorf("failed to load case '%s' referenced by sequence '%s': %w", caseFile, suite.Name, err)
		}
		jobs = append(jobs, subJobs...)
	}

	return jobs, nil
}

// playthrough is the live state of one suite run
type playthrough struct {
	suite  TestSuite
	start  string
	clock  *Clock
	loader *storage.RoomLoader
	engine *engine.Engine
}

// RunSuite executes a complete test suite with its own clock, loader and session
func (r *Runner) RunSuite(ctx context.Context, suite TestSuite) (TestRunResult, error) {
	start := time.Now()
	result := TestRunResult{
		Job: TestJob{
			Name:  suite.Name,
			Suite: suite,
		},
		Results: make([]TestResult, 0, len(suite.Steps)),
	}

	clock := NewClock(Epoch)
	loader, err := storage.NewRoomLoader(r.RoomsDir, rooms.Handlers(), r.log, rooms.Builtin(clock.Now))
	if err != nil {
		result.Error = fmt.Errorf("failed to load rooms: %w", err)
		result.Duration = time.Since(start)
		return result, result.Error
	}

	p := &playthrough{suite: suite, start: suite.StartRoom, clock: clock, loader: loader}
	if p.start == "" {
		p.start = r.StartRoom
	}
	if _, err := r.begin(p); err != nil {
		result.Error = fmt.Errorf("failed to start session: %w", err)
		result.Duration = time.Since(start)
		return result, result.Error
	}

	for i, step := range suite.Steps {
		if err := ctx.Err(); err != nil {
			result.Error = err
			break
		}

		stepResult := r.executeStep(ctx, p, step)
		result.Results = append(result.Results, stepResult)

		if stepResult.Error != nil {
			r.Logger("    [%d/%d] ✗ %s: %v", i+1, len(suite.Steps), step.Name, stepResult.Error)
			if result.Error == nil {
				result.Error = fmt.Errorf("step %d (%s) failed: %w", i, step.Name, stepResult.Error)
			}
			if r.ErrorHandlingMode == ErrorHandlingExit {
				break
			}
			continue
		}
		r.Logger("    [%d/%d] ✓ %s", i+1, len(suite.Steps), step.Name)
	}

	result.Session = p.engine.Session().ID()
	result.Duration = time.Since(start)
	return result, result.Error
}

// begin creates a fresh session from the suite's seed and enters the start room
func (r *Runner) begin(p *playthrough) (engine.Output, error) {
	s := state.NewSession(p.start)
	p.suite.Seed.ApplyTo(s)
	p.engine = engine.New(s, p.loader, engine.WithLogger(r.log), engine.WithDebug(r.Debug))
	return p.engine.Start(p.clock.Now())
}

// reload saves the session, drops the engine and resumes the saved copy in a new one.
// Any running challenge is lost, as it would be for a player loading a save.
func (r *Runner) reload(ctx context.Context, p *playthrough) (engine.Output, error) {
	id := p.engine.Session().ID()
	if err := r.Store.Save(ctx, p.engine.Session()); err != nil {
		return engine.Output{}, fmt.Errorf("failed to save session: %w", err)
	}
	saved, err := r.Store.Load(ctx, id)
	if err != nil {
		return engine.Output{}, fmt.Errorf("failed to load session %s: %w", id, err)
	}

	p.engine = engine.New(state.NewSession(p.start), p.loader, engine.WithLogger(r.log), engine.WithDebug(r.Debug))
	return p.engine.Resume(saved.Snapshot(), p.clock.Now())
}

// executeStep advances the clock, performs the step and checks its expectations
func (r *Runner) executeStep(ctx context.Context, p *playthrough, step TestStep) TestResult {
	start := time.Now()
	result := TestResult{StepName: step.Name}

	p.clock.Advance(seconds(step.Wait))

	var (
		out engine.Output
		err error
	)
	switch step.Input {
	case ResetSessionInput:
		out, err = r.begin(p)
		result.IsReset = true
	case ReloadSessionInput:
		out, err = r.reload(ctx, p)
	case PollInput:
		out, err = p.engine.Poll(p.clock.Now())
	default:
		out, err = p.engine.Handle(step.Input, p.clock.Now())
	}
	result.ResponseText = strings.Join(out.Lines, "\n")
	if err != nil {
		result.Error = fmt.Errorf("input %q: %w", step.Input, err)
		result.Duration = time.Since(start)
		return result
	}

	if err := checkExpectations(step.Expectations, p.engine, out, result.ResponseText); err != nil {
		result.Error = fmt.Errorf("expectation failed: %w", err)
		result.Duration = time.Since(start)
		return result
	}

	result.Success = true
	result.Duration = time.Since(start)
	return result
}

// checkExpectations validates the step expectations against the engine after the step
func checkExpectations(exp Expectations, e *engine.Engine, out engine.Output, responseText string) error {
	s := e.Session()

	if exp.Room != nil && out.Room != *exp.Room {
		return fmt.Errorf("expected room %s, got %s", *exp.Room, out.Room)
	}

	// Full inventory check (order independent)
	if len(exp.Inventory) > 0 {
		actual := s.Inventory()
		for _, item := range exp.Inventory {
			if !slices.Contains(actual, item) {
				return fmt.Errorf("expected inventory to contain '%s', but it's missing. Actual inventory: %v", item, actual)
			}
		}
		for _, item := range actual {
			if !slices.Contains(exp.Inventory, item) {
				return fmt.Errorf("inventory contains unexpected item '%s'. Expected inventory: %v, Actual: %v", item, exp.Inventory, actual)
			}
		}
	}

	for _, flag := range exp.Flags {
		if !s.GetFlag(flag) {
			return fmt.Errorf("expected flag %s to be set. Set flags: %v", flag, s.SetFlags())
		}
	}
	for _, flag := range exp.NotFlags {
		if s.GetFlag(flag) {
			return fmt.Errorf("expected flag %s to be clear", flag)
		}
	}

	// Values are compared in their printed form so JSON numbers match session integers
	for key, want := range exp.Vars {
		got := s.GetVar(key, nil)
		if got == nil {
			return fmt.Errorf("expected variable %s to be set, but it doesn't exist", key)
		}
		if fmt.Sprint(got) != fmt.Sprint(want) {
			return fmt.Errorf("expected variable %s to be %v, got %v", key, want, got)
		}
	}

	if exp.Score != nil && s.Score() != *exp.Score {
		return fmt.Errorf("expected score %d, got %d", *exp.Score, s.Score())
	}
	if exp.Health != nil && s.Health() != *exp.Health {
		return fmt.Errorf("expected health %d, got %d", *exp.Health, s.Health())
	}
	if exp.Ended != nil && out.Ended != *exp.Ended {
		return fmt.Errorf("expected ended to be %t, got %t", *exp.Ended, out.Ended)
	}
	if exp.Challenge != nil {
		active := e.Challenge() != nil && e.Challenge().IsActive()
		if active != *exp.Challenge {
			return fmt.Errorf("expected challenge_active to be %t, got %t", *exp.Challenge, active)
		}
	}

	if len(exp.ResponseContains) > 0 {
		lowerResponse := strings.ToLower(responseText)
		for _, expectedText := range exp.ResponseContains {
			if !strings.Contains(lowerResponse, strings.ToLower(expectedText)) {
				return fmt.Errorf("expected response to contain '%s', but it didn't. Response:\n%s", expectedText, responseText)
			}
		}
	}

	if len(exp.ResponseNotContains) > 0 {
		lowerResponse := strings.ToLower(responseText)
		for _, unexpectedText := range exp.ResponseNotContains {
			if strings.Contains(lowerResponse, strings.ToLower(unexpectedText)) {
				return fmt.Errorf("expected response to NOT contain '%s', but it did", unexpectedText)
			}
		}
	}

	if exp.ResponseRegex != "" {
		matched, err := regexp.MatchString(exp.ResponseRegex, responseText)
		if err != nil {
			return fmt.Errorf("invalid regex pattern: %w", err)
		}
		if !matched {
			return fmt.Errorf("response didn't match regex pattern: %s", exp.ResponseRegex)
		}
	}

	return nil
}

