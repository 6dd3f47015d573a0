// Package script parses the line-oriented command file each SP reads: a
// sequence of Frame and Wait directives, blank lines and "#" comments
// ignored, unparseable lines silently skipped.
package script

import (
	"bufio"
	"io"
	"regexp"
	"strconv"
	"strings"
)

// Kind distinguishes the two directive shapes a command file can produce.
type Kind int

const (
	// KindFrame requests sending a frame to another SP.
	KindFrame Kind = iota
	// KindWait requests blocking until a number of frames have arrived.
	KindWait
)

// Directive is one parsed command-file line.
type Directive struct {
	Kind Kind

	// Frame fields.
	Seq      int
	Dst      int
	Text     string // literal payload, valid when IsFile is false
	FilePath string // payload source path, valid when IsFile is true
	IsFile   bool

	// Wait fields.
	WaitCount int
}

var (
	waitRe  = regexp.MustCompile(`^Wait for receiving (\d+) frames?$`)
	frameRe = regexp.MustCompile(`^Frame (\d+), To SP (\d+)(.*)$`)
)

// Parser reads Directives one at a time from an underlying line source.
type Parser struct {
	scanner *bufio.Scanner
}

// NewParser wraps r (a command file or an interactive console) for
// directive-at-a-time consumption.
func NewParser(r io.Reader) *Parser {
	return &Parser{scanner: bufio.NewScanner(r)}
}

// Next returns the next Directive, skipping blank lines, "#" comments, and
// any line that doesn't match the grammar. It returns io.EOF once the
// underlying source is exhausted with no further directive found.
func (p *Parser) Next() (Directive, error) {
	for p.scanner.Scan() {
		line := strings.TrimSpace(p.scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if d, ok := ParseLine(line); ok {
			return d, nil
		}
		// Unparseable: ignored per grammar, move to next line.
	}
	if err := p.scanner.Err(); err != nil {
		return Directive{}, err
	}
	return Directive{}, io.EOF
}

// ParseLine classifies a single already-trimmed, non-comment line. It
// returns ok=false for anything that matches neither directive shape.
func ParseLine(line string) (Directive, bool) {
	if m := waitRe.FindStringSubmatch(line); m != nil {
		count, err := strconv.Atoi(m[1])
		if err != nil {
			return Directive{}, false
		}
		return Directive{Kind: KindWait, WaitCount: count}, true
	}

	if m := frameRe.FindStringSubmatch(line); m != nil {
		seq, err := strconv.Atoi(m[1])
		if err != nil {
			return Directive{}, false
		}
		dst, err := strconv.Atoi(m[2])
		if err != nil {
			return Directive{}, false
		}
		rest := strings.TrimPrefix(m[3], " ")
		if rest == "" {
			// Bare "Frame S, To SP D": payload is the ASCII decimal of S.
			return Directive{Kind: KindFrame, Seq: seq, Dst: dst, Text: strconv.Itoa(seq)}, true
		}
		if path, ok := strings.CutPrefix(rest, "$"); ok {
			return Directive{Kind: KindFrame, Seq: seq, Dst: dst, IsFile: true, FilePath: path}, true
		}
		return Directive{Kind: KindFrame, Seq: seq, Dst: dst, Text: rest}, true
	}

	return Directive{}, false
}
