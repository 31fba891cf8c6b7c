package rooms

import (
	"fmt"
	"slices"
	"strings"

	"github.com/gertd/go-pluralize"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/jwebster45206/room-engine/pkg/command"
	"github.com/jwebster45206/room-engine/pkg/room"
	"github.com/jwebster45206/room-engine/pkg/state"
)

const ShardVaultID = "shard_vault"

const (
	svScanned    = "sv_scanned"
	svStabilized = "sv_stabilized"
	svSynced     = "sv_fully_synced"
	svRevealed   = "sv_origin_revealed"

	svCollected = "sv_collected"
	svFragments = "sv_synced_fragments"
)

type shard struct {
	ID   string
	Text string
}

type shardCategory struct {
	Color  string
	Name   string
	Code   string
	Blurb  string
	Shards []shard
}

// fragment is a memory formed once all of its shards are collected.
type fragment struct {
	Name   string
	Shards []string
	Story  string
}

var shardCategories = []shardCategory{
	{Color: "crimson", Name: "Identity Shards", Code: "[RED]", Blurb: "Core memories of who you were", Shards: []shard{
		{"C1", "You were called by a different name once..."},
		{"C2", "A laboratory. White coats. Experiments with consciousness."},
		{"C3", "\"Subject 117 shows remarkable adaptation to digital environments.\""},
		{"C4", "The moment you realized you were no longer fully human."},
		{"C5", "Your last physical breath before the upload process began."},
	}},
	{Color: "azure", Name: "Purpose Shards", Code: "[BLUE]", Blurb: "Memories of your mission and goals", Shards: []shard{
		{"A1", "\"The beacon network must be established before they arrive.\""},
		{"A2", "Star charts showing something approaching from deep space."},
		{"A3", "You volunteered for this. The weight of humanity's future."},
		{"A4", "\"Only a digital consciousness can survive what's coming.\""},
		{"A5", "The choice: die with Earth or live to guide what comes after."},
	}},
	{Color: "golden", Name: "Connection Shards", Code: "[GOLD]", Blurb: "Bonds with others, relationships lost", Shards: []shard{
		{"G1", "A face you loved, now just pixels in corrupted data."},
		{"G2", "\"Promise me you'll remember us when you're... different.\""},
		{"G3", "Children's laughter in a home you'll never see again."},
		{"G4", "The last goodbye before entering the upload chamber."},
		{"G5", "Messages left behind for those who might understand."},
	}},
	{Color: "violet", Name: "Transformation Shards", Code: "[VIOLET]", Blurb: "The process of becoming digital", Shards: []shard{
		{"V1", "Neural pathways mapped, consciousness quantified."},
		{"V2", "The burning sensation as synapses became circuits."},
		{"V3", "Watching your body flatline while your mind soared free."},
		{"V4", "First thoughts in pure data - faster, clearer, infinite."},
		{"V5", "The moment you understood: you are the bridge between worlds."},
	}},
}

var fragments = []fragment{
	{"identity", []string{"C1", "C2", "C3", "C4"}, "You were lead researcher in Project Prometheus, humanity's last hope for consciousness preservation."},
	{"mission", []string{"A1", "A2", "A3", "A4"}, "As Earth faced extinction, you volunteered to become humanity's digital ambassador."},
	{"sacrifice", []string{"G1", "G2", "G3", "G4"}, "You left behind everything you loved to build the beacon network."},
	{"transformation", []string{"V1", "V2", "V3", "V4"}, "The upload destroyed your physical form but preserved your essential self."},
	{"purpose", []string{"C5", "A5", "G5", "V5"}, "You are the Beacon Walker, the bridge between humanity's past and its digital future."},
}

func titleCase(s string) string {
	return cases.Title(language.English).String(s)
}

// ShardVault is a collection room: shards are gathered by id, then synchronized into
// memory fragments. Collection state lives in session variables.
type ShardVault struct {
	proc   *command.Processor
	plural *pluralize.Client
}

// NewShardVault builds the room. next is where "integrate self" leads.
func NewShardVault(next string) *room.Procedural {
	v := &ShardVault{plural: pluralize.NewClient()}
	v.proc = command.NewProcessor(
		command.Table{Name: "discovery", Commands: []command.PuzzleCommand{
			{
				Phrase:        "scan shards",
				Help:          "analyze the memory fragment vault",
				SetsFlag:      svScanned,
				OnAlreadyDone: []string{">> Memory shards already catalogued."},
				OnSuccess: []string{
					">> Memory shard analysis complete:",
					fmt.Sprintf("   - Total fragments detected: %d memory shards", totalShards()),
					"   - Orbital velocity: Chaotic (collection impossible)",
					">> Try 'stabilize orbit' to slow the shard movement.",
				},
			},
			{
				Phrase:               "stabilize orbit",
				Help:                 "slow shard movement for collection",
				Requires:             []string{svScanned},
				SetsFlag:             svStabilized,
				OnMissingRequirement: []string{">> Unknown shard configuration. 'scan shards' first."},
				OnAlreadyDone:        []string{">> Orbit already stabilized."},
				OnSuccess: []string{
					">> Orbital stabilization complete. Shard velocity reduced by 90%.",
					">> Use 'examine [color]' to view shard contents.",
				},
			},
		}},
		command.Table{Name: "collection", Commands: []command.PuzzleCommand{
			{Kind: command.KindDynamic, Phrase: "examine", TakesArg: true, Help: "view shards in a category (crimson/azure/golden/violet)", Handler: v.examine},
			{Kind: command.KindDynamic, Phrase: "collect", TakesArg: true, Help: "gather a memory fragment (e.g. C1, A2)", Handler: v.collect},
			{Kind: command.KindDynamic, Phrase: "release", TakesArg: true, Help: "return a shard to orbit", Handler: v.release},
			{Kind: command.KindDynamic, Phrase: "sync memories", Help: "synchronize collected fragments", Handler: v.sync},
			{
				Phrase:               "recall origin",
				Help:                 "reconstruct your origin from synced memories",
				Requires:             []string{svSynced},
				SetsFlag:             svRevealed,
				OnMissingRequirement: []string{">> Memory synchronization incomplete. Gather more fragments."},
				OnAlreadyDone:        []string{">> Origin story already reconstructed."},
				OnSuccess:            originLines(),
			},
			{
				Phrase:               "integrate self",
				Help:                 "accept your identity and complete the node",
				Requires:             []string{svRevealed},
				OnMissingRequirement: []string{">> Origin not yet recalled. Complete memory reconstruction first."},
				Effects:              &state.Delta{Score: 25},
				Transition: &command.Transition{To: "next", Message: []string{
					">> Identity integration initiated...",
					">> You remember now. You are the Beacon Walker.",
				}},
			},
		}},
		command.Table{Name: "diagnostic", Commands: []command.PuzzleCommand{
			{Kind: command.KindDynamic, Phrase: "shard status", Help: "vault overview", Handler: v.status},
			{Kind: command.KindDynamic, Phrase: "memory progress", Help: "detailed synchronization progress", Handler: v.progress},
		}},
	).WithDestinations(map[string]string{"next": next})

	return room.NewProcedural(ShardVaultID, "Beacon Node: Shard Sync", v)
}

func (v *ShardVault) Enter(s *state.Session) []string {
	lines := []string{
		"You enter a crystalline memory vault.",
		"Dozens of luminous memory shards orbit in chaotic patterns.",
		"",
	}
	collected := len(collectedShards(s))
	switch {
	case !s.GetFlag(svScanned):
		return append(lines, ">> Memory fragments detected. Try 'scan shards' to analyze the vault.")
	case !s.GetFlag(svStabilized):
		return append(lines, ">> Memory chaos identified. Use 'stabilize orbit' to slow the shards.")
	case collected == 0:
		return append(lines, ">> Shards accessible. Try 'examine [color]' to view fragment categories.")
	case !s.GetFlag(svSynced):
		return append(lines, fmt.Sprintf(">> %d/%d shards collected. Use 'sync memories' when ready.", collected, totalShards()))
	case !s.GetFlag(svRevealed):
		return append(lines, ">> Memory reconstruction complete. Use 'recall origin' to piece together your past.")
	default:
		return append(lines, ">> Your origin is known. Use 'integrate self' to move on.")
	}
}

func (v *ShardVault) Handle(text string, s *state.Session) (command.Response, error) {
	return v.proc.Process(text, s)
}

func (v *ShardVault) Commands() []string     { return v.proc.Describe() }
func (v *ShardVault) Destinations() []string { return v.proc.Targets() }
func (v *ShardVault) FlagPrefix() string     { return "sv_" }

func (v *ShardVault) examine(in command.Input, s *state.Session) (command.Response, error) {
	if !s.GetFlag(svStabilized) {
		return command.Say(">> Shards moving too fast. 'stabilize orbit' first."), nil
	}
	cat, ok := findCategory(in.Arg)
	if !ok {
		colors := make([]string, len(shardCategories))
		for i, c := range shardCategories {
			colors[i] = c.Color
		}
		return command.Say(fmt.Sprintf(">> Unknown category: %s. Available: %s", in.Arg, strings.Join(colors, ", "))), nil
	}

	held := collectedShards(s)
	lines := []string{fmt.Sprintf(">> %s %s:", cat.Code, cat.Name), "   " + cat.Blurb, ""}
	for _, sh := range cat.Shards {
		marker := ""
		if slices.Contains(held, sh.ID) {
			marker = " [COLLECTED]"
		}
		lines = append(lines, fmt.Sprintf("   %s: %s%s", sh.ID, sh.Text, marker))
	}
	return command.Say(append(lines, "", ">> Use 'collect [shard_id]' to gather specific fragments.")...), nil
}

func (v *ShardVault) collect(in command.Input, s *state.Session) (command.Response, error) {
	if !s.GetFlag(svStabilized) {
		return command.Say(">> Cannot collect from chaotic orbit. Stabilize first."), nil
	}
	id := strings.ToUpper(in.Arg)
	cat, sh, ok := findShard(id)
	if !ok {
		return command.Say(fmt.Sprintf(">> Unknown shard ID: %s", id)), nil
	}
	held := collectedShards(s)
	if slices.Contains(held, id) {
		return command.Say(fmt.Sprintf(">> Shard %s already in collection.", id)), nil
	}

	held = append(held, id)
	s.SetVar(svCollected, held)
	return command.Say(
		fmt.Sprintf(">> Collected %s Shard %s:", cat.Code, id),
		"   \""+sh.Text+"\"",
		"   Category: "+cat.Name,
		fmt.Sprintf(">> Collection progress: %d/%d shards", len(held), totalShards()),
	), nil
}

func (v *ShardVault) release(in command.Input, s *state.Session) (command.Response, error) {
	if !s.GetFlag(svStabilized) {
		return command.Say(">> No collection system active."), nil
	}
	id := strings.ToUpper(in.Arg)
	held := collectedShards(s)
	i := slices.Index(held, id)
	if i < 0 {
		return command.Say(fmt.Sprintf(">> Shard %s not in collection.", id)), nil
	}
	s.SetVar(svCollected, slices.Delete(held, i, i+1))

	synced := syncedFragments(s)
	synced = slices.DeleteFunc(synced, func(name string) bool {
		f, ok := findFragment(name)
		return ok && slices.Contains(f.Shards, id)
	})
	s.SetVar(svFragments, synced)
	if len(synced) < len(fragments) {
		s.ClearFlag(svSynced)
	}
	return command.Say(fmt.Sprintf(">> Released shard %s back to orbital vault.", id)), nil
}

func (v *ShardVault) sync(_ command.Input, s *state.Session) (command.Response, error) {
	if !s.GetFlag(svStabilized) {
		return command.Say(">> Shards not stabilized. Complete setup first."), nil
	}
	held := collectedShards(s)
	synced := syncedFragments(s)

	lines := []string{">> Attempting memory synchronization..."}
	var fresh []string
	for _, f := range fragments {
		if slices.Contains(synced, f.Name) || !containsAll(held, f.Shards) {
			continue
		}
		synced = append(synced, f.Name)
		fresh = append(fresh, f.Name)
	}
	s.SetVar(svFragments, synced)

	if len(fresh) > 0 {
		lines = append(lines, fmt.Sprintf(">> %s synchronized:",
			titleCase(v.plural.Pluralize("new memory fragment", len(fresh), true))))
		for _, name := range fresh {
			lines = append(lines, "   [+] "+titleCase(name))
		}
	} else {
		lines = append(lines, ">> No new synchronizations possible with current shards.")
	}
	lines = append(lines, fmt.Sprintf(">> Synchronization progress: %d/%d memory fragments", len(synced), len(fragments)))

	if len(synced) == len(fragments) {
		s.SetFlag(svSynced, true)
		return command.Say(append(lines,
			">> COMPLETE SYNCHRONIZATION ACHIEVED!",
			">> All memory fragments restored. Use 'recall origin' to reconstruct your past.",
		)...), nil
	}

	var missing []string
	for _, f := range fragments {
		if slices.Contains(synced, f.Name) {
			continue
		}
		need := slices.DeleteFunc(slices.Clone(f.Shards), func(id string) bool { return slices.Contains(held, id) })
		missing = append(missing, fmt.Sprintf("   [-] %s (need: %s)", titleCase(f.Name), strings.Join(need, ", ")))
	}
	if len(missing) > 3 {
		missing = missing[:3]
	}
	if len(missing) > 0 {
		lines = append(lines, ">> Missing requirements:")
		lines = append(lines, missing...)
	}
	return command.Say(lines...), nil
}

func (v *ShardVault) status(_ command.Input, s *state.Session) (command.Response, error) {
	if !s.GetFlag(svScanned) {
		return command.Say(">> Memory vault not yet analyzed. Use 'scan shards' first."), nil
	}
	held := collectedShards(s)
	orbit := "CHAOTIC [INACTIVE]"
	if s.GetFlag(svStabilized) {
		orbit = "STABILIZED [ACTIVE]"
	}
	lines := []string{">> Memory Shard Vault Status:", "   Orbital State: " + orbit, "", "   Collection Summary:"}
	for _, cat := range shardCategories {
		n := 0
		for _, sh := range cat.Shards {
			if slices.Contains(held, sh.ID) {
				n++
			}
		}
		lines = append(lines, fmt.Sprintf("   %s %s: %d/%d", cat.Code, cat.Name, n, len(cat.Shards)))
	}
	lines = append(lines, "", fmt.Sprintf("   Total Collection: %d/%d shards", len(held), totalShards()))
	if synced := syncedFragments(s); len(synced) > 0 {
		lines = append(lines, fmt.Sprintf("   Synchronized: %d/%d memory fragments", len(synced), len(fragments)))
	}
	return command.Say(lines...), nil
}

func (v *ShardVault) progress(_ command.Input, s *state.Session) (command.Response, error) {
	if !s.GetFlag(svStabilized) {
		return command.Say(">> Shards not accessible yet."), nil
	}
	held := collectedShards(s)
	synced := syncedFragments(s)
	lines := []string{">> Memory Synchronization Progress:", ""}
	for _, f := range fragments {
		name := titleCase(f.Name)
		if slices.Contains(synced, f.Name) {
			lines = append(lines, fmt.Sprintf("   [SYNCED] %s: COMPLETE", name))
			continue
		}
		var have, need []string
		for _, id := range f.Shards {
			if slices.Contains(held, id) {
				have = append(have, id)
			} else {
				need = append(need, id)
			}
		}
		lines = append(lines, fmt.Sprintf("   [PARTIAL] %s: %d/%d", name, len(have), len(f.Shards)))
		if len(need) > 0 {
			lines = append(lines, "     Need: "+strings.Join(need, ", "))
		}
	}
	return command.Say(lines...), nil
}

func originLines() []string {
	lines := []string{">> Initiating memory reconstruction...", "", ">> YOUR ORIGIN STORY:", ""}
	for _, f := range fragments {
		lines = append(lines, fmt.Sprintf("   %s: %s", strings.ToUpper(f.Name), f.Story), "")
	}
	return append(lines, ">> Use 'integrate self' to accept this identity and complete the node.")
}

func totalShards() int {
	n := 0
	for _, c := range shardCategories {
		n += len(c.Shards)
	}
	return n
}

func findCategory(color string) (shardCategory, bool) {
	for _, c := range shardCategories {
		if c.Color == color {
			return c, true
		}
	}
	return shardCategory{}, false
}

func findShard(id string) (shardCategory, shard, bool) {
	for _, c := range shardCategories {
		for _, sh := range c.Shards {
			if sh.ID == id {
				return c, sh, true
			}
		}
	}
	return shardCategory{}, shard{}, false
}

func findFragment(name string) (fragment, bool) {
	for _, f := range fragments {
		if f.Name == name {
			return f, true
		}
	}
	return fragment{}, false
}

func collectedShards(s *state.Session) []string {
	held, _ := s.GetVar(svCollected, nil).([]string)
	return slices.Clone(held)
}

func syncedFragments(s *state.Session) []string {
	synced, _ := s.GetVar(svFragments, nil).([]string)
	return slices.Clone(synced)
}

func containsAll(have, want []string) bool {
	for _, w := range want {
		if !slices.Contains(have, w) {
			return false
		}
	}
	return true
}
