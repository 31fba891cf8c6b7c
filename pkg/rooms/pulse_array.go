package rooms

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/jwebster45206/room-engine/pkg/command"
	"github.com/jwebster45206/room-engine/pkg/room"
	"github.com/jwebster45206/room-engine/pkg/state"
)

const PulseArrayID = "pulse_array"

const (
	paScanned   = "pa_scanned"
	paCalibrate = "pa_calibrated"
	paRhythm    = "pa_rhythm_learned"
	paComplete  = "pa_sequence_complete"
	paTested    = "pa_test_fired"

	paStep     = "pa_step"
	paLastShot = "pa_last_pulse_ms"
	paFired    = "pa_fired"
)

// PulseTiming is the firing order and the gaps the player must keep between pulses.
type PulseTiming struct {
	Sequence  []int
	Intervals []time.Duration // Intervals[i] is the gap before Sequence[i+1]
	Tolerance time.Duration
}

var DefaultPulseTiming = PulseTiming{
	Sequence:  []int{1, 3, 2},
	Intervals: []time.Duration{5 * time.Second, 4500 * time.Millisecond},
	Tolerance: 800 * time.Millisecond,
}

// PulseArray is a timing puzzle: three spires must be fired in order with the right gaps.
// Sequence progress lives in session variables so it survives save and restore.
type PulseArray struct {
	timing PulseTiming
	clock  func() time.Time
	proc   *command.Processor
}

// NewPulseArray builds the room. next is where "activate beacon" leads. A nil clock uses time.Now.
func NewPulseArray(next string, timing PulseTiming, clock func() time.Time) *room.Procedural {
	if clock == nil {
		clock = time.Now
	}
	p := &PulseArray{timing: timing, clock: clock}
	p.proc = command.NewProcessor(
		command.Table{Name: "discovery", Commands: []command.PuzzleCommand{
			{
				Phrase:        "scan array",
				Help:          "analyze the pulse array system",
				SetsFlag:      paScanned,
				OnAlreadyDone: []string{">> Array already scanned. Three spires detected."},
				OnSuccess: []string{
					">> Pulse array scan complete:",
					"   - Spire 1: High-frequency harmonic generator",
					"   - Spire 2: Mid-range resonance amplifier",
					"   - Spire 3: Low-frequency base pulse emitter",
					">> Try 'calibrate spires' to prepare the system.",
				},
			},
			{
				Phrase:               "calibrate spires",
				Help:                 "prepare pulse generators for firing",
				Requires:             []string{paScanned},
				SetsFlag:             paCalibrate,
				OnMissingRequirement: []string{">> Unknown array configuration. 'scan array' first."},
				OnAlreadyDone:        []string{">> Spires already calibrated and ready."},
				OnSuccess: []string{
					">> Spire calibration complete.",
					">> Timing matrix active. Use 'analyze rhythm' to learn firing sequence.",
				},
			},
			{
				Phrase:               "analyze rhythm",
				Help:                 "learn the required timing sequence",
				Requires:             []string{paCalibrate},
				SetsFlag:             paRhythm,
				OnMissingRequirement: []string{">> Spires not calibrated. Complete setup first."},
				OnAlreadyDone:        []string{">> Rhythm pattern already analyzed."},
				OnSuccess:            p.rhythmLines(),
			},
		}},
		command.Table{Name: "pulse", Commands: []command.PuzzleCommand{
			{Kind: command.KindDynamic, Phrase: "fire pulse", TakesArg: true, Help: "fire a spire (timing critical)", Handler: p.firePulse},
			{Kind: command.KindDynamic, Phrase: "reset sequence", Help: "restart the timing sequence", Handler: p.resetSequence},
			{Kind: command.KindDynamic, Phrase: "pulse status", Help: "check current sequence progress", Handler: p.status},
			{Kind: command.KindDynamic, Phrase: "emergency stop", Help: "abort current sequence", Handler: p.emergencyStop},
		}},
		command.Table{Name: "diagnostic", Commands: []command.PuzzleCommand{
			{
				Phrase:               "test pulse",
				Help:                 "diagnostic pulse test",
				Requires:             []string{paCalibrate},
				SetsFlag:             paTested,
				OnMissingRequirement: []string{">> Spires not ready for testing."},
				OnAlreadyDone:        []string{">> Test pulse already fired. Use sequence commands now."},
				OnSuccess: []string{
					">> Test pulse fired from all spires: harmonic interference detected.",
					">> Proceed with timed sequence: 'fire pulse 1' to begin.",
				},
			},
		}},
		command.Table{Name: "final", Commands: []command.PuzzleCommand{
			{
				Phrase:               "activate beacon",
				Help:                 "establish beacon link (sequence required)",
				Requires:             []string{paComplete},
				OnMissingRequirement: []string{">> Pulse sequence incomplete. Fire all pulses in correct timing."},
				Effects:              &state.Delta{Score: 25},
				Transition: &command.Transition{To: "next", Message: []string{
					">> Pulse array sequence confirmed. Beacon online.",
					">> Routing to next node...",
				}},
			},
		}},
	).WithDestinations(map[string]string{"next": next})

	return room.NewProcedural(PulseArrayID, "Beacon Node: Pulse Synchronization", p)
}

func (p *PulseArray) Enter(s *state.Session) []string {
	lines := []string{
		"You materialize before a massive pulse array chamber.",
		"Three towering transmission spires hum in eerie unison.",
		"",
	}
	switch {
	case !s.GetFlag(paScanned):
		return append(lines, ">> Neural resonance offline. Try 'scan array' to assess pulse harmonics.")
	case !s.GetFlag(paCalibrate):
		return append(lines, ">> Three spires detected. Calibrate their output: 'calibrate spires'.")
	case !s.GetFlag(paRhythm):
		return append(lines, ">> Synchronization required. Try 'analyze rhythm'.")
	case !s.GetFlag(paComplete):
		if s.GetInt(paStep, 0) > 0 {
			return append(lines, ">> Pulse alignment in progress... remain attuned.")
		}
		return append(lines, ">> Match the pulse. Use 'fire pulse [1/2/3]' with correct intervals.")
	default:
		return append(lines, ">> Harmonic fusion stable. Use 'activate beacon'.")
	}
}

func (p *PulseArray) Handle(text string, s *state.Session) (command.Response, error) {
	return p.proc.Process(text, s)
}

func (p *PulseArray) Commands() []string     { return p.proc.Describe() }
func (p *PulseArray) Destinations() []string { return p.proc.Targets() }
func (p *PulseArray) FlagPrefix() string     { return "pa_" }

func (p *PulseArray) Check() []error {
	var problems []error
	if len(p.timing.Sequence) == 0 {
		problems = append(problems, errors.New("pulse sequence is empty"))
	}
	if len(p.timing.Intervals) != len(p.timing.Sequence)-1 {
		problems = append(problems, fmt.Errorf("pulse sequence of %d needs %d intervals, got %d",
			len(p.timing.Sequence), len(p.timing.Sequence)-1, len(p.timing.Intervals)))
	}
	return problems
}

func (p *PulseArray) rhythmLines() []string {
	if len(p.timing.Sequence) == 0 {
		return nil
	}
	order := make([]string, len(p.timing.Sequence))
	for i, n := range p.timing.Sequence {
		order[i] = "Spire " + strconv.Itoa(n)
	}
	gaps := make([]string, len(p.timing.Intervals))
	for i, d := range p.timing.Intervals {
		gaps[i] = fmt.Sprintf("%.1fs", d.Seconds())
	}
	return []string{
		">> Rhythm analysis complete:",
		"   - Required sequence: " + strings.Join(order, " -> "),
		"   - Timing intervals: " + strings.Join(gaps, ", "),
		fmt.Sprintf("   - Tolerance: +/-%.1f seconds", p.timing.Tolerance.Seconds()),
		">> Start the sequence with 'fire pulse " + strconv.Itoa(p.timing.Sequence[0]) + "'.",
	}
}

func (p *PulseArray) firePulse(in command.Input, s *state.Session) (command.Response, error) {
	if !s.GetFlag(paRhythm) {
		return command.Say(">> Rhythm analysis required. Use 'analyze rhythm' first."), nil
	}
	if s.GetFlag(paComplete) {
		return command.Say(">> Sequence already complete. Use 'activate beacon'."), nil
	}
	fields := in.Fields()
	if len(fields) != 1 {
		return command.Say(">> Invalid syntax. Use 'fire pulse [1/2/3]'."), nil
	}
	id, err := strconv.Atoi(fields[0])
	if err != nil || id < 1 || id > 3 {
		return command.Say(">> Invalid pulse ID. Use 1, 2, or 3."), nil
	}

	now := p.clock()
	step := p.step(s)
	expected := p.timing.Sequence[step]
	if id != expected {
		p.clearSequence(s)
		return command.Say(
			fmt.Sprintf(">> Pulse %d fired out of sequence.", id),
			fmt.Sprintf(">> Expected pulse %d. Sequence reset.", expected),
			">> Restart with 'fire pulse "+strconv.Itoa(p.timing.Sequence[0])+"'.",
		), nil
	}

	if step > 0 {
		want := p.timing.Intervals[step-1]
		got := now.Sub(time.UnixMilli(int64(s.GetInt(paLastShot, 0))))
		if diff := got - want; diff > p.timing.Tolerance || diff < -p.timing.Tolerance {
			p.clearSequence(s)
			return command.Say(
				fmt.Sprintf(">> Pulse %d fired with incorrect timing.", id),
				fmt.Sprintf(">> Expected %.1fs interval, got %.1fs.", want.Seconds(), got.Seconds()),
				">> Sequence reset. Restart with 'fire pulse "+strconv.Itoa(p.timing.Sequence[0])+"'.",
			), nil
		}
	}

	step++
	fired, _ := s.GetVar(paFired, []string{}).([]string)
	s.SetVar(paStep, step)
	s.SetVar(paLastShot, int(now.UnixMilli()))
	s.SetVar(paFired, append(fired, strconv.Itoa(id)))

	lines := []string{fmt.Sprintf(">> Pulse %d fired successfully.", id)}
	if step == len(p.timing.Sequence) {
		s.SetFlag(paComplete, true)
		return command.Say(append(lines,
			">> SYNCHRONIZATION COMPLETE. Pulse sequence matched.",
			">> Harmonic resonance achieved. Beacon ready for activation.",
		)...), nil
	}
	next := p.timing.Sequence[step]
	return command.Say(append(lines,
		fmt.Sprintf(">> Next: fire pulse %d in %.1fs", next, p.timing.Intervals[step-1].Seconds()),
	)...), nil
}

func (p *PulseArray) resetSequence(_ command.Input, s *state.Session) (command.Response, error) {
	if !s.GetFlag(paRhythm) {
		return command.Say(">> No sequence to reset. Learn the rhythm first."), nil
	}
	p.clearSequence(s)
	return command.Say(
		">> Pulse sequence reset.",
		">> All spires returned to standby.",
	), nil
}

func (p *PulseArray) emergencyStop(_ command.Input, s *state.Session) (command.Response, error) {
	p.clearSequence(s)
	return command.Say(
		">> EMERGENCY STOP ACTIVATED",
		">> All pulse generators shut down.",
	), nil
}

func (p *PulseArray) status(_ command.Input, s *state.Session) (command.Response, error) {
	lines := []string{">> Pulse Array Status:"}
	if !s.GetFlag(paRhythm) {
		return command.Say(append(lines, "   - Rhythm analysis required")...), nil
	}
	if s.GetFlag(paComplete) {
		return command.Say(append(lines, "   - Sequence: COMPLETE")...), nil
	}

	step := p.step(s)
	lines = append(lines, fmt.Sprintf("   - Progress: %d/%d", step, len(p.timing.Sequence)))
	if fired, ok := s.GetVar(paFired, nil).([]string); ok && len(fired) > 0 {
		lines = append(lines, "   - Fired: "+strings.Join(fired, " -> "))
	}
	next := p.timing.Sequence[step]
	if step == 0 {
		lines = append(lines, fmt.Sprintf("   - Next: pulse %d (start sequence)", next))
	} else {
		lines = append(lines, fmt.Sprintf("   - Next: pulse %d (wait %.1fs)", next, p.timing.Intervals[step-1].Seconds()))
	}
	return command.Say(lines...), nil
}

// step is the index of the next pulse. Progress left over from a cleared room is discarded.
func (p *PulseArray) step(s *state.Session) int {
	step := s.GetInt(paStep, 0)
	if step < 0 || step >= len(p.timing.Sequence) {
		p.clearSequence(s)
		return 0
	}
	return step
}

func (p *PulseArray) clearSequence(s *state.Session) {
	s.DeleteVar(paStep)
	s.DeleteVar(paLastShot)
	s.DeleteVar(paFired)
}
