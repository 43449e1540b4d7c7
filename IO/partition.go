package IO

import (
	"slices"

	"gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/smf"
)

type PartitionMode int

const (
	// PartitionParts: at least one track declares an instrument; Events are
	// the first instrument part.
	PartitionParts PartitionMode = iota
	// PartitionFlat: no instrument found; Events merge every track.
	PartitionFlat
)

func (m PartitionMode) String() string {
	if m == PartitionFlat {
		return "flat"
	}
	return "parts"
}

// NoteStart is a note-on with non-zero velocity at an absolute tick.
type NoteStart struct {
	Tick  int64
	Track int
	Key   uint8
}

// Partition is the event stream chosen from one file.
type Partition struct {
	Mode PartitionMode
	// Program of the selected part; meaningless for PartitionFlat.
	Program uint8
	Parts   int
	Events  []NoteStart
}

type trackNotes struct {
	program    uint8
	hasProgram bool
	starts     []NoteStart
}

func readTrack(i int, tr smf.Track) trackNotes {
	var tn trackNotes
	var tick int64
	for _, ev := range tr {
		tick += int64(ev.Delta)
		msg := midi.Message(ev.Message)

		var ch, key, vel, prog uint8
		switch {
		case msg.GetNoteStart(&ch, &key, &vel):
			tn.starts = append(tn.starts, NoteStart{Tick: tick, Track: i, Key: key})
		case msg.GetProgramChange(&ch, &prog):
			if !tn.hasProgram {
				tn.program, tn.hasProgram = prog, true
			}
		}
	}
	return tn
}

// mergeByTick orders note starts by absolute tick, keeping track order for
// equal ticks.
func mergeByTick(starts []NoteStart) []NoteStart {
	slices.SortStableFunc(starts, func(a, b NoteStart) int {
		switch {
		case a.Tick < b.Tick:
			return -1
		case a.Tick > b.Tick:
			return 1
		}
		return a.Track - b.Track
	})
	return starts
}

// PartitionByInstrument groups the tracks of s by their first program change.
// Parts are ordered by first appearance and the first one is returned. A file
// without any program change falls back to a flat merge of all tracks.
func PartitionByInstrument(s *smf.SMF) Partition {
	var order []uint8
	parts := map[uint8][]NoteStart{}
	var all []NoteStart

	for i, tr := range s.Tracks {
		tn := readTrack(i, tr)
		all = append(all, tn.starts...)
		if !tn.hasProgram {
			continue
		}
		if _, ok := parts[tn.program]; !ok {
			order = append(order, tn.program)
		}
		parts[tn.program] = append(parts[tn.program], tn.starts...)
	}

	if len(order) == 0 {
		return Partition{Mode: PartitionFlat, Events: mergeByTick(all)}
	}
	first := order[0]
	return Partition{
		Mode:    PartitionParts,
		Program: first,
		Parts:   len(order),
		Events:  mergeByTick(parts[first]),
	}
}

// Symbols turns the partition into note and chord symbols in time order.
// Note starts sharing a tick within one track form one group: one distinct
// key gives a pitch name, more give a chord. Simultaneous starts on different
// tracks stay separate symbols.
func (p Partition) Symbols() []string {
	var out []string
	for i := 0; i < len(p.Events); {
		j := i
		var keys []uint8
		for j < len(p.Events) && p.Events[j].Tick == p.Events[i].Tick && p.Events[j].Track == p.Events[i].Track {
			if !slices.Contains(keys, p.Events[j].Key) {
				keys = append(keys, p.Events[j].Key)
			}
			j++
		}
		if len(keys) == 1 {
			out = append(out, PitchName(keys[0]))
		} else {
			out = append(out, ChordSymbol(keys))
		}
		i = j
	}
	return out
}
