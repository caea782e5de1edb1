package dispatch

import (
	"fmt"
	"strings"

	"jobshop_heuristics/jsp"
)

// Rule is a dispatching priority. Ties always go to the lowest job, then the lowest operation.
type Rule string

const (
	// SPS and LPS prefer the job with the shortest / longest processed sequence, i.e. the op
	// with the lowest / highest position in its job. They count operations, not time: LWRM and
	// MWRM rank by remaining processing time.
	SPS Rule = "sps"
	LPS Rule = "lps"
	// SPT and LPT prefer the shortest / longest operation.
	SPT Rule = "spt"
	LPT Rule = "lpt"
	// LWRM and MWRM prefer the job with the least / most work remaining.
	LWRM Rule = "lwrm"
	MWRM Rule = "mwrm"
)

func Rules() []Rule {
	return []Rule{SPS, LPS, SPT, LPT, LWRM, MWRM}
}

func ParseRule(name string) (Rule, error) {
	rule := Rule(strings.ToLower(strings.TrimSpace(name)))
	for _, known := range Rules() {
		if rule == known {
			return rule, nil
		}
	}
	return "", fmt.Errorf("unknown dispatching rule %q", name)
}

// key is the rule's measure of op, negated for rules that prefer large values, so that the
// smallest key always wins.
func (r Rule) key(p *jsp.Problem, op int) int {
	o := p.Ops[op]
	switch r {
	case SPS:
		return o.Index
	case LPS:
		return -o.Index
	case SPT:
		return o.Duration
	case LPT:
		return -o.Duration
	case LWRM:
		return p.RemainingWork(op)
	case MWRM:
		return -p.RemainingWork(op)
	default:
		panic("dispatch: unknown rule " + string(r))
	}
}

// priority folds the rule key and the tie-breakers into a single ordered value.
func (r Rule) priority(p *jsp.Problem, op int, width int) int64 {
	o := p.Ops[op]
	stride := int64(p.Jobs) * int64(width)
	return int64(r.key(p, op))*stride + int64(o.Job)*int64(width) + int64(o.Index)
}
