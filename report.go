package main

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/fatih/color"

	"jobshop_heuristics/jsp"
	"jobshop_heuristics/search"
)

var (
	bold   = color.New(color.Bold).SprintFunc()
	cyan   = color.New(color.FgCyan).SprintFunc()
	green  = color.New(color.Bold, color.FgGreen).SprintFunc()
	yellow = color.New(color.FgYellow).SprintFunc()
)

// writeReport prints the makespan, then per job the start times of its operations in job
// order.
func writeReport(w io.Writer, s *jsp.Schedule) error {
	out := bufio.NewWriter(w)
	fmt.Fprintln(out, s.Makespan())
	for _, starts := range s.StartTimes() {
		for i, start := range starts {
			if i > 0 {
				out.WriteByte(' ')
			}
			out.WriteString(strconv.Itoa(start))
		}
		out.WriteByte('\n')
	}
	return out.Flush()
}

func writeSummary(w io.Writer, solver string, p *jsp.Problem, result search.Result) {
	line := fmt.Sprintf("%s %s on %s (%dx%d): makespan %s, %d iterations, %d evaluations in %s",
		green("✔"), cyan(solver), p.Name, p.Jobs, p.Machines, bold(result.Makespan),
		result.Iterations, result.Evaluations, result.Duration.Round(time.Millisecond))
	if p.Optimum > 0 {
		gap := 100 * float64(result.Makespan-p.Optimum) / float64(p.Optimum)
		line += yellow(fmt.Sprintf(", optimum %d (gap %.2f%%)", p.Optimum, gap))
	}
	if stopped, ok := result.Meta["stopped"]; ok {
		line += fmt.Sprintf(", stopped by %v", stopped)
	}
	fmt.Fprintln(w, line)
}
