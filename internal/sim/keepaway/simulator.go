package keepaway

import (
	"errors"
	"fmt"
	"math/big"
	"slices"
)

const DefaultReliefDivisor = 3

type Config struct {
	RunID         string
	ReliefDivisor int64
}

func (c *Config) applyDefaults() {
	if c.ReliefDivisor <= 0 {
		c.ReliefDivisor = DefaultReliefDivisor
	}
}

// RoundLogger receives one entry per completed round.
type RoundLogger interface {
	WriteRound(entry RoundLogEntry) error
}

// RoundLogEntry describes the state right after a round.
type RoundLogEntry struct {
	RunID       string   `json:"run_id,omitempty"`
	Round       uint64   `json:"round"`
	Mode        string   `json:"mode"`
	Digest      string   `json:"digest"`
	Inspected   []uint64 `json:"inspected"`
	Inspections []uint64 `json:"inspections"`
	Holding     []int    `json:"holding"`
}

// Simulator owns the actors, their queues and inspection counters. It is not
// safe for concurrent use; rounds are strictly sequential.
type Simulator struct {
	cfg    Config
	actors []Actor

	// Cached per-actor operands; lits[i] is nil for self-referential rules.
	lits  []*big.Int
	tests []*big.Int

	modulus *big.Int
	divisor *big.Int

	queues [][]*big.Int
	counts []uint64
	round  uint64
	mode   Mode

	scratch big.Int

	loggers []RoundLogger
	logErr  error
}

func New(cfg Config, notes Notes) (*Simulator, error) {
	cfg.applyDefaults()

	n := len(notes.Actors)
	if n < 2 {
		return nil, fmt.Errorf("%w: got %d", ErrTooFewActors, n)
	}
	if len(notes.Items) != n {
		return nil, fmt.Errorf("%w: %d actors, %d item lists", ErrItemsMismatch, n, len(notes.Items))
	}

	s := &Simulator{
		cfg:     cfg,
		actors:  slices.Clone(notes.Actors),
		lits:    make([]*big.Int, n),
		tests:   make([]*big.Int, n),
		divisor: big.NewInt(cfg.ReliefDivisor),
		queues:  make([][]*big.Int, n),
		counts:  make([]uint64, n),
	}

	testValues := make([]int64, n)
	for i, a := range s.actors {
		if !a.Rule.valid() {
			return nil, fmt.Errorf("%w: actor %d: %s", ErrInvalidRule, i, a.Rule)
		}
		if a.Test <= 0 {
			return nil, fmt.Errorf("%w: actor %d: %d", ErrInvalidTest, i, a.Test)
		}
		if a.IfTrue < 0 || a.IfTrue >= n || a.IfFalse < 0 || a.IfFalse >= n {
			return nil, fmt.Errorf("%w: actor %d throws to %d/%d, have %d actors", ErrTargetOutOfRange, i, a.IfTrue, a.IfFalse, n)
		}
		if !a.Rule.Operand.Self {
			s.lits[i] = big.NewInt(a.Rule.Operand.Value)
		}
		s.tests[i] = big.NewInt(a.Test)
		testValues[i] = a.Test

		q := make([]*big.Int, 0, len(notes.Items[i]))
		for _, w := range notes.Items[i] {
			if w == nil || w.Sign() < 0 {
				return nil, fmt.Errorf("%w: actor %d: %v", ErrNegativeItem, i, w)
			}
			q = append(q, new(big.Int).Set(w))
		}
		s.queues[i] = q
	}
	s.modulus = commonModulus(testValues)
	return s, nil
}

// commonModulus is the least common multiple of the test values.
func commonModulus(tests []int64) *big.Int {
	m := big.NewInt(1)
	var g, t big.Int
	for _, v := range tests {
		t.SetInt64(v)
		g.GCD(nil, nil, m, &t)
		m.Mul(m, &t)
		m.Quo(m, &g)
	}
	return m
}

func (s *Simulator) Config() Config { return s.cfg }

func (s *Simulator) AddRoundLogger(l RoundLogger) {
	if l != nil {
		s.loggers = append(s.loggers, l)
	}
}

// AdvanceRound runs one round: every actor, in index order, drains its queue,
// inspects each item and throws it on.
func (s *Simulator) AdvanceRound(mode Mode) {
	if !mode.valid() {
		panic(fmt.Sprintf("keepaway: AdvanceRound with %v", mode))
	}
	inspected := s.advance(mode, s.visitOrder())
	if len(s.loggers) > 0 {
		s.emit(inspected, s.Digest())
	}
}

// StepOnce advances one round and returns the completed round number together
// with the resulting state digest.
func (s *Simulator) StepOnce(mode Mode) (round uint64, digest string) {
	if !mode.valid() {
		panic(fmt.Sprintf("keepaway: StepOnce with %v", mode))
	}
	inspected := s.advance(mode, s.visitOrder())
	digest = s.Digest()
	if len(s.loggers) > 0 {
		s.emit(inspected, digest)
	}
	return s.round, digest
}

// Run advances exactly rounds rounds. A non-nil error means the mode was
// invalid (nothing ran) or a round logger failed (every round still ran).
func (s *Simulator) Run(rounds int, mode Mode) error {
	if !mode.valid() {
		return fmt.Errorf("%w: %v", ErrUnknownMode, mode)
	}
	for r := 0; r < rounds; r++ {
		s.AdvanceRound(mode)
	}
	return s.logErr
}

func (s *Simulator) visitOrder() []int {
	order := make([]int, len(s.actors))
	for i := range order {
		order[i] = i
	}
	return order
}

// advance visits actors in the given order. Production code always passes the
// index order; tests use other orders to show that it matters.
func (s *Simulator) advance(mode Mode, order []int) []uint64 {
	inspected := make([]uint64, len(s.actors))
	for _, i := range order {
		// Snapshot then clear: items that arrive in this actor's queue from
		// now on, including its own throws, wait for the next round.
		held := s.queues[i]
		s.queues[i] = nil

		a := &s.actors[i]
		for _, w := range held {
			a.Rule.apply(w, w, s.lits[i])
			switch mode {
			case DivideAndFloor:
				w.Quo(w, s.divisor)
			case ModulusBound:
				w.Mod(w, s.modulus)
			}
			target := a.IfFalse
			if s.scratch.Mod(w, s.tests[i]).Sign() == 0 {
				target = a.IfTrue
			}
			s.queues[target] = append(s.queues[target], w)
		}
		s.counts[i] += uint64(len(held))
		inspected[i] = uint64(len(held))
	}
	s.round++
	s.mode = mode
	return inspected
}

func (s *Simulator) emit(inspected []uint64, digest string) {
	entry := RoundLogEntry{
		RunID:       s.cfg.RunID,
		Round:       s.round,
		Mode:        s.mode.String(),
		Digest:      digest,
		Inspected:   inspected,
		Inspections: s.Inspections(),
		Holding:     s.Holding(),
	}
	for _, l := range s.loggers {
		if err := l.WriteRound(entry); err != nil {
			s.logErr = errors.Join(s.logErr, fmt.Errorf("round %d: %w", entry.Round, err))
		}
	}
}

// TopTwoProduct multiplies the two largest inspection counters.
func (s *Simulator) TopTwoProduct() (*big.Int, error) {
	if len(s.counts) < 2 {
		return nil, ErrTooFewActors
	}
	c := slices.Clone(s.counts)
	slices.Sort(c)
	p := new(big.Int).SetUint64(c[len(c)-1])
	return p.Mul(p, new(big.Int).SetUint64(c[len(c)-2])), nil
}

// Round is the number of completed rounds.
func (s *Simulator) Round() uint64 { return s.round }

// Modulus returns a copy of the common modulus.
func (s *Simulator) Modulus() *big.Int { return new(big.Int).Set(s.modulus) }

func (s *Simulator) Actors() []Actor { return slices.Clone(s.actors) }

func (s *Simulator) Inspections() []uint64 { return slices.Clone(s.counts) }

// Holding is the number of items queued at each actor.
func (s *Simulator) Holding() []int {
	out := make([]int, len(s.queues))
	for i, q := range s.queues {
		out[i] = len(q)
	}
	return out
}

// Items returns a copy of actor i's queue in processing order.
func (s *Simulator) Items(i int) []*big.Int {
	q := s.queues[i]
	out := make([]*big.Int, len(q))
	for j, w := range q {
		out[j] = new(big.Int).Set(w)
	}
	return out
}
