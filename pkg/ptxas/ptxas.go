// Package ptxas extracts per-kernel resource usage from the verbose
// diagnostic output of NVIDIA's device assembler.
//
// The report is unstructured text whose layout drifts across toolkit
// releases, so the scanner is deliberately permissive: matching is
// case-insensitive, tolerates arbitrary run-length whitespace, and treats
// anything unrecognizable as a non-match rather than an error.
//
// A typical fragment:
//
//	ptxas info    : Compiling entry function '_Z6kernelPfS_' for 'sm_20'
//	ptxas info    : Function properties for '_Z6kernelPfS_':
//	    16 bytes stack frame, 0 bytes spill stores, 0 bytes spill loads
//	ptxas info    : Used 20 registers, 2048 bytes smem, 64 bytes cmem[0]
package ptxas

import (
	"iter"
	"regexp"
	"strconv"
	"strings"

	"github.com/samcharles93/warptune/pkg/cuda"
)

// A kernel block opens with a lead line and is fed by every following line
// that contains at least one recognizable resource clause. Clauses are
// comma-separated; within a clause the first matching pattern wins.
var (
	leadRE   = regexp.MustCompile(`(?i)^(?:ptxas\s+)?info\s+:\s+function\s+properties\s+for\s+`)
	regsRE   = regexp.MustCompile(`(?i)used\s+(\d+)\s+registers`)
	stackRE  = regexp.MustCompile(`(?i)(\d+)\s+(?:bytes\s+)?stack`)
	sharedRE = regexp.MustCompile(`(?i)(\d+)\s+bytes\s+smem`)
	localRE  = regexp.MustCompile(`(?i)(\d+)\s+bytes\s+lmem`)
)

// Scan walks the report and yields one (kernel name, resource usage) pair
// per function-properties block, in document order. The same kernel may
// appear more than once when the compiler reports it across several
// optimization passes. The sequence is restartable; Scan never fails.
func Scan(report string) iter.Seq2[string, cuda.ResourceUsage] {
	return func(yield func(string, cuda.ResourceUsage) bool) {
		lines := strings.Split(report, "\n")
		for i := 0; i < len(lines); i++ {
			loc := leadRE.FindStringIndex(lines[i])
			if loc == nil {
				continue
			}
			name := kernelName(lines[i][loc[1]:])

			var usage cuda.ResourceUsage
			j := i + 1
			for ; j < len(lines); j++ {
				if !scanResourceLine(lines[j], &usage) {
					break
				}
			}
			if !yield(name, usage) {
				return
			}
			// The line that ended the block may itself lead the next one.
			i = j - 1
		}
	}
}

// Parse folds Scan into a name → usage map. A kernel reported several times
// keeps only its latest record, replaced whole rather than merged field by
// field.
func Parse(report string) map[string]cuda.ResourceUsage {
	kernels := make(map[string]cuda.ResourceUsage)
	for name, usage := range Scan(report) {
		kernels[name] = usage
	}
	return kernels
}

// kernelName cleans up the text after the lead match: surrounding
// whitespace and trailing colons go, then one pair of single quotes is
// removed if both halves are present.
func kernelName(s string) string {
	name := strings.TrimRight(strings.TrimSpace(s), ":")
	if len(name) >= 2 && strings.HasPrefix(name, "'") && strings.HasSuffix(name, "'") {
		name = name[1 : len(name)-1]
	}
	return name
}

// scanResourceLine applies the clause patterns to one line, recording every
// match in usage. It reports whether the line contained at least one
// recognizable clause; a line with none terminates the block.
func scanResourceLine(line string, usage *cuda.ResourceUsage) bool {
	patterns := []struct {
		re  *regexp.Regexp
		dst *int
	}{
		{regsRE, &usage.Registers},
		{stackRE, &usage.StackFrame},
		{sharedRE, &usage.SharedMem},
		{localRE, &usage.LocalMem},
	}

	matched := false
	for _, clause := range strings.Split(line, ",") {
		for _, p := range patterns {
			m := p.re.FindStringSubmatch(clause)
			if m == nil {
				continue
			}
			// Overflowing numbers make the clause a non-match.
			if n, err := strconv.Atoi(m[1]); err == nil {
				*p.dst = n
				matched = true
			}
			break
		}
	}
	return matched
}
