package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fatih/color"
	"golang.org/x/term"

	"nbm/internal/nbm"
)

var (
	copiedColor    = color.New(color.FgGreen)
	unchangedColor = color.New(color.FgHiBlack)
	failedColor    = color.New(color.FgRed, color.Bold)
	selectedColor  = color.New(color.FgCyan, color.Bold)
)

// outcomeWord is the word printed for a resource's outcome.
func outcomeWord(res nbm.Result) string {
	switch res.Outcome {
	case nbm.Copied:
		return copiedColor.Sprint("copied")
	case nbm.Skipped:
		return unchangedColor.Sprint("unchanged")
	default:
		return failedColor.Sprint("cannot be copied")
	}
}

// printResult prints one line per resource of a backup or restore run.
// Directory resources also show their member counters.
func printResult(w io.Writer, index int, r nbm.Resource, res nbm.Result) {
	fmt.Fprintf(w, "[%d] %s %s", index, r.Name(), outcomeWord(res))
	if r.Kind() == nbm.KindDir {
		fmt.Fprintf(w, " (%d copied, %d unchanged, %d failed)", res.Copied, res.Skipped, res.Failed)
	}
	if res.Err != nil {
		fmt.Fprintf(w, ": %v", res.Err)
	}
	fmt.Fprintln(w)
}

// printMention prints the registry summary with the selected line highlighted.
func printMention(w io.Writer, mention string) {
	for _, line := range strings.Split(mention, "\n") {
		if strings.HasPrefix(line, "*") {
			line = selectedColor.Sprint(line)
		}
		fmt.Fprintln(w, line)
	}
}

// isInteractive reports whether stdin is a terminal a user can answer from.
func isInteractive() bool {
	return term.IsTerminal(int(os.Stdin.Fd()))
}

// confirm asks a yes/no question on w and reads the answer from r.
// Anything but "y" or "yes" is a no.
func confirm(w io.Writer, r io.Reader, question string) bool {
	fmt.Fprintf(w, "%s [y/N] ", question)
	answer, err := bufio.NewReader(r).ReadString('\n')
	if err != nil && answer == "" {
		return false
	}
	switch strings.ToLower(strings.TrimSpace(answer)) {
	case "y", "yes":
		return true
	default:
		return false
	}
}
