package keepaway

import (
	"math/big"
	"strconv"
	"strings"
)

const blockLines = 6

// Parse reads the notes: blocks of six lines separated by blank lines.
//
//	Monkey 0:
//	  Starting items: 79, 98
//	  Operation: new = old * 19
//	  Test: divisible by 23
//	    If true: throw to monkey 2
//	    If false: throw to monkey 3
func Parse(text string) (Notes, error) {
	var notes Notes
	for b, block := range splitBlocks(text) {
		if len(block) != blockLines {
			return Notes{}, &ParseError{Block: b, Err: ErrMalformedBlock}
		}
		p := blockParser{block: b, lines: block}
		a, items, err := p.parse()
		if err != nil {
			return Notes{}, err
		}
		notes.Actors = append(notes.Actors, a)
		notes.Items = append(notes.Items, items)
	}
	return notes, nil
}

func splitBlocks(text string) [][]string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	var (
		blocks [][]string
		cur    []string
	)
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			if len(cur) > 0 {
				blocks = append(blocks, cur)
				cur = nil
			}
			continue
		}
		cur = append(cur, line)
	}
	if len(cur) > 0 {
		blocks = append(blocks, cur)
	}
	return blocks
}

type blockParser struct {
	block int
	lines []string
}

func (p *blockParser) fail(line int, err error) *ParseError {
	return &ParseError{Block: p.block, Line: line + 1, Text: p.lines[line], Err: err}
}

// field strips prefix from line i and returns the rest.
func (p *blockParser) field(i int, prefix string) (string, error) {
	rest, ok := strings.CutPrefix(p.lines[i], prefix)
	if !ok {
		return "", p.fail(i, ErrMalformedBlock)
	}
	return strings.TrimSpace(rest), nil
}

func (p *blockParser) integer(i int, s string) (int64, error) {
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, p.fail(i, ErrBadInteger)
	}
	return v, nil
}

func (p *blockParser) parse() (Actor, []*big.Int, error) {
	var a Actor

	// Monkey N:
	head, err := p.field(0, "Monkey ")
	if err != nil {
		return a, nil, err
	}
	idx, ok := strings.CutSuffix(head, ":")
	if !ok {
		return a, nil, p.fail(0, ErrMalformedBlock)
	}
	n, err := p.integer(0, idx)
	if err != nil {
		return a, nil, err
	}
	if n != int64(p.block) {
		return a, nil, p.fail(0, ErrMalformedBlock)
	}

	list, err := p.field(1, "Starting items:")
	if err != nil {
		return a, nil, err
	}
	var items []*big.Int
	if list != "" {
		for _, f := range strings.Split(list, ",") {
			w, ok := new(big.Int).SetString(strings.TrimSpace(f), 10)
			if !ok || w.Sign() < 0 {
				return a, nil, p.fail(1, ErrBadInteger)
			}
			items = append(items, w)
		}
	}

	expr, err := p.field(2, "Operation: new =")
	if err != nil {
		return a, nil, err
	}
	terms := strings.Fields(expr)
	if len(terms) != 3 || terms[0] != "old" {
		return a, nil, p.fail(2, ErrMalformedBlock)
	}
	op, ok := parseOp(terms[1])
	if !ok {
		return a, nil, p.fail(2, ErrUnknownOperator)
	}
	a.Rule.Op = op
	if terms[2] == "old" {
		a.Rule.Operand = Old
	} else {
		v, err := p.integer(2, terms[2])
		if err != nil {
			return a, nil, err
		}
		if v < 0 {
			return a, nil, p.fail(2, ErrBadInteger)
		}
		a.Rule.Operand = Literal(v)
	}

	test, err := p.field(3, "Test: divisible by")
	if err != nil {
		return a, nil, err
	}
	if a.Test, err = p.integer(3, test); err != nil {
		return a, nil, err
	}

	t, err := p.field(4, "If true: throw to monkey")
	if err != nil {
		return a, nil, err
	}
	v, err := p.integer(4, t)
	if err != nil {
		return a, nil, err
	}
	a.IfTrue = int(v)

	f, err := p.field(5, "If false: throw to monkey")
	if err != nil {
		return a, nil, err
	}
	if v, err = p.integer(5, f); err != nil {
		return a, nil, err
	}
	a.IfFalse = int(v)

	return a, items, nil
}
