// Package command turns input lines into Command values.
//
// Grounded in original_source/TransactionManager.py's Parser class: strip
// "//" comments, tokenize identifiers with [A-Za-z0-9_]+, and stop all
// further parsing at a line beginning with "===".
package command

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

var tokenRe = regexp.MustCompile(`[A-Za-z0-9_]+`)

// Kind identifies a command verb.
type Kind int

const (
	Begin Kind = iota
	BeginRO
	Read
	Write
	End
	Dump
	Fail
	Recover
	Graph // non-spec debug verb, §4.11
)

func (k Kind) String() string {
	switch k {
	case Begin:
		return "begin"
	case BeginRO:
		return "beginRO"
	case Read:
		return "R"
	case Write:
		return "W"
	case End:
		return "end"
	case Dump:
		return "dump"
	case Fail:
		return "fail"
	case Recover:
		return "recover"
	case Graph:
		return "graph"
	default:
		return "unknown"
	}
}

// Command is one parsed input line.
type Command struct {
	Kind Kind
	Tx   string // Begin, BeginRO, Read, Write, End
	Var  string // Read, Write
	Val  int    // Write
	Site int    // Fail, Recover
}

// Done is returned by Parse for a line that begins the "===" terminator;
// callers must stop feeding further lines once they see it.
var Done = Command{Kind: -1}

// IsDone reports whether c is the end-of-input marker.
func IsDone(c Command) bool { return c.Kind == -1 }

// Parse tokenizes a single input line into a Command. Blank lines (after
// stripping comments) return an ok=false with no error, matching the
// original parser's silent skip of empty input.
func Parse(line string) (cmd Command, ok bool, err error) {
	if idx := strings.Index(line, "//"); idx >= 0 {
		line = line[:idx]
	}
	trimmed := strings.TrimSpace(line)
	if strings.HasPrefix(trimmed, "===") {
		return Done, true, nil
	}

	tokens := tokenRe.FindAllString(line, -1)
	if len(tokens) == 0 {
		return Command{}, false, nil
	}

	verb := tokens[0]
	args := tokens[1:]

	switch verb {
	case "begin":
		if len(args) != 1 {
			return Command{}, false, fmt.Errorf("%w: begin expects 1 argument, got %d", ErrInvalidCommand, len(args))
		}
		return Command{Kind: Begin, Tx: args[0]}, true, nil

	case "beginRO":
		if len(args) != 1 {
			return Command{}, false, fmt.Errorf("%w: beginRO expects 1 argument, got %d", ErrInvalidCommand, len(args))
		}
		return Command{Kind: BeginRO, Tx: args[0]}, true, nil

	case "R":
		if len(args) != 2 {
			return Command{}, false, fmt.Errorf("%w: R expects 2 arguments, got %d", ErrInvalidCommand, len(args))
		}
		return Command{Kind: Read, Tx: args[0], Var: args[1]}, true, nil

	case "W":
		if len(args) != 3 {
			return Command{}, false, fmt.Errorf("%w: W expects 3 arguments, got %d", ErrInvalidCommand, len(args))
		}
		v, err := strconv.Atoi(args[2])
		if err != nil {
			return Command{}, false, fmt.Errorf("%w: W value %q is not an integer", ErrInvalidCommand, args[2])
		}
		return Command{Kind: Write, Tx: args[0], Var: args[1], Val: v}, true, nil

	case "end":
		if len(args) != 1 {
			return Command{}, false, fmt.Errorf("%w: end expects 1 argument, got %d", ErrInvalidCommand, len(args))
		}
		return Command{Kind: End, Tx: args[0]}, true, nil

	case "dump":
		return Command{Kind: Dump}, true, nil

	case "graph":
		return Command{Kind: Graph}, true, nil

	case "fail":
		if len(args) != 1 {
			return Command{}, false, fmt.Errorf("%w: fail expects 1 argument, got %d", ErrInvalidCommand, len(args))
		}
		site, err := strconv.Atoi(args[0])
		if err != nil {
			return Command{}, false, fmt.Errorf("%w: fail site %q is not an integer", ErrInvalidCommand, args[0])
		}
		return Command{Kind: Fail, Site: site}, true, nil

	case "recover":
		if len(args) != 1 {
			return Command{}, false, fmt.Errorf("%w: recover expects 1 argument, got %d", ErrInvalidCommand, len(args))
		}
		site, err := strconv.Atoi(args[0])
		if err != nil {
			return Command{}, false, fmt.Errorf("%w: recover site %q is not an integer", ErrInvalidCommand, args[0])
		}
		return Command{Kind: Recover, Site: site}, true, nil

	default:
		return Command{}, false, fmt.Errorf("%w: unknown verb %q", ErrInvalidCommand, verb)
	}
}
