package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
)

// prompter collects operator answers from an input stream. Commands hand
// it their stdin; tests hand it a scripted reader. With input disabled
// every prompt short-circuits to its default so flag-driven runs never
// block on a read.
type prompter struct {
	scanner *bufio.Scanner
	out     io.Writer
	noInput bool
}

func newPrompter(in io.Reader, noInput bool) *prompter {
	return &prompter{scanner: bufio.NewScanner(in), out: os.Stderr, noInput: noInput}
}

// String asks for a value, returning def on blank input.
func (p *prompter) String(label, def string) string {
	if p.noInput {
		return def
	}
	if def != "" {
		fmt.Fprintf(p.out, "%s [%s]: ", label, def)
	} else {
		fmt.Fprintf(p.out, "%s: ", label)
	}
	if !p.scanner.Scan() {
		return def
	}
	answer := strings.TrimSpace(p.scanner.Text())
	if answer == "" {
		return def
	}
	return answer
}

// YesNo asks a yes/no question, returning def on blank input.
func (p *prompter) YesNo(label string, def bool) bool {
	if p.noInput {
		return def
	}
	hint := "y/N"
	if def {
		hint = "Y/n"
	}
	fmt.Fprintf(p.out, "%s [%s]: ", label, hint)
	if !p.scanner.Scan() {
		return def
	}
	switch strings.ToLower(strings.TrimSpace(p.scanner.Text())) {
	case "y", "yes":
		return true
	case "n", "no":
		return false
	default:
		return def
	}
}
