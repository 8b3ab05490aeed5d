package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

// readBuildLog loads the compiler report from path. "-" reads stdin; an
// empty path falls back to stdin only when input is piped in.
func readBuildLog(path string, stdin io.Reader) (string, error) {
	path = strings.TrimSpace(path)
	if path == "" && stdinIsTTY() {
		return "", errors.New("--log is required (or pipe a report to stdin)")
	}
	if path == "" || path == "-" {
		b, err := io.ReadAll(stdin)
		if err != nil {
			return "", fmt.Errorf("read stdin: %w", err)
		}
		return string(b), nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func parseCandidates(s string) ([]int, error) {
	parts := strings.Split(s, ",")
	out := make([]int, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		n, err := strconv.Atoi(p)
		if err != nil {
			return nil, fmt.Errorf("invalid candidate block size %q", p)
		}
		out = append(out, n)
	}
	if len(out) == 0 {
		return nil, errors.New("no candidate block sizes given")
	}
	return out, nil
}
