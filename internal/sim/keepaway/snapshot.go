package keepaway

import (
	"fmt"
	"math/big"

	"aoc2022.dev/internal/persistence/snapshot"
)

// ExportSnapshot captures the complete simulator state after Round() rounds.
func (s *Simulator) ExportSnapshot() snapshot.SnapshotV1 {
	snap := snapshot.SnapshotV1{
		Header: snapshot.Header{
			Version: snapshot.Version,
			RunID:   s.cfg.RunID,
			Round:   s.round,
		},
		ReliefDivisor: s.cfg.ReliefDivisor,
		Modulus:       s.modulus.String(),
		Actors:        make([]snapshot.ActorV1, len(s.actors)),
	}
	if s.mode.valid() {
		snap.Mode = s.mode.String()
	}
	for i, a := range s.actors {
		items := make([]string, len(s.queues[i]))
		for j, w := range s.queues[i] {
			items[j] = w.String()
		}
		snap.Actors[i] = snapshot.ActorV1{
			Op:          a.Rule.Op.String(),
			OperandSelf: a.Rule.Operand.Self,
			Operand:     a.Rule.Operand.Value,
			Test:        a.Test,
			IfTrue:      a.IfTrue,
			IfFalse:     a.IfFalse,
			Items:       items,
			Inspections: s.counts[i],
		}
	}
	return snap
}

// FromSnapshot builds a simulator whose state equals the snapshot's.
func FromSnapshot(snap snapshot.SnapshotV1) (*Simulator, error) {
	s := &Simulator{}
	if err := s.ImportSnapshot(snap); err != nil {
		return nil, err
	}
	return s, nil
}

// ImportSnapshot replaces the simulator state with the snapshot. Attached
// round loggers are kept.
func (s *Simulator) ImportSnapshot(snap snapshot.SnapshotV1) error {
	if snap.Header.Version != snapshot.Version {
		return fmt.Errorf("unsupported snapshot version: %d", snap.Header.Version)
	}

	notes := Notes{
		Actors: make([]Actor, len(snap.Actors)),
		Items:  make([][]*big.Int, len(snap.Actors)),
	}
	for i, a := range snap.Actors {
		op, ok := parseOp(a.Op)
		if !ok {
			return fmt.Errorf("snapshot actor %d: %w: %q", i, ErrInvalidRule, a.Op)
		}
		notes.Actors[i] = Actor{
			Rule:    Rule{Op: op, Operand: Operand{Self: a.OperandSelf, Value: a.Operand}},
			Test:    a.Test,
			IfTrue:  a.IfTrue,
			IfFalse: a.IfFalse,
		}
		items := make([]*big.Int, len(a.Items))
		for j, str := range a.Items {
			w, ok := new(big.Int).SetString(str, 10)
			if !ok {
				return fmt.Errorf("snapshot actor %d item %d: bad integer %q", i, j, str)
			}
			items[j] = w
		}
		notes.Items[i] = items
	}

	next, err := New(Config{RunID: snap.Header.RunID, ReliefDivisor: snap.ReliefDivisor}, notes)
	if err != nil {
		return fmt.Errorf("snapshot: %w", err)
	}
	if snap.Modulus != "" && snap.Modulus != next.modulus.String() {
		return fmt.Errorf("snapshot modulus mismatch: snap=%s computed=%s", snap.Modulus, next.modulus)
	}
	if snap.Mode != "" {
		m, err := ParseMode(snap.Mode)
		if err != nil {
			return fmt.Errorf("snapshot: %w", err)
		}
		next.mode = m
	}
	for i, a := range snap.Actors {
		next.counts[i] = a.Inspections
	}
	next.round = snap.Header.Round
	next.loggers = s.loggers

	*s = *next
	return nil
}
