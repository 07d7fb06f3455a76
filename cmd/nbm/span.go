package main

import (
	"fmt"
	"strconv"
	"strings"

	"nbm/internal/nbm"
)

// parseSpan reads the optional SPAN argument of backup and restore: "I"
// selects one resource, "A:B" the range [A, B). Either bound of a range may
// be left out. No argument selects the whole list.
func parseSpan(args []string) (nbm.Span, error) {
	if len(args) == 0 {
		return nbm.SpanAll(), nil
	}
	raw := strings.TrimSpace(args[0])

	start, end, isRange := strings.Cut(raw, ":")
	if !isRange {
		i, err := parseIndex(raw)
		if err != nil {
			return nbm.Span{}, err
		}
		return nbm.SpanOf(i), nil
	}

	span := nbm.SpanAll()
	if start != "" {
		i, err := parseIndex(start)
		if err != nil {
			return nbm.Span{}, err
		}
		span.Start = i
	}
	if end != "" {
		i, err := parseIndex(end)
		if err != nil {
			return nbm.Span{}, err
		}
		span.End = i
	}
	return span, nil
}

// parseIndex reads a non-negative position.
func parseIndex(raw string) (int, error) {
	i, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return 0, fmt.Errorf("invalid index %q", raw)
	}
	if i < 0 {
		return 0, fmt.Errorf("invalid index %q: must not be negative", raw)
	}
	return i, nil
}
