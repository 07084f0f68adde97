package config

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/watchexec/corewatch/internal/werrors"
)

// ExpandArgfiles rewrites every "@path" token in args into the arguments
// read from that file, one per line, expanded in place; arguments given
// after an argfile token on the original command line still override it
// since cobra/pflag apply later-wins semantics on the flattened result
// (spec §6, "Argfile (@path): one argument per line, expanded in place;
// subsequent CLI args override").
func ExpandArgfiles(args []string) ([]string, error) {
	return expandArgfiles(args, nil)
}

func expandArgfiles(args []string, stack []string) ([]string, error) {
	out := make([]string, 0, len(args))
	for _, a := range args {
		path, ok := strings.CutPrefix(a, "@")
		if !ok {
			out = append(out, a)
			continue
		}
		for _, seen := range stack {
			if seen == path {
				return nil, werrors.New(werrors.Configuration, fmt.Sprintf("argfile cycle detected at %q", path))
			}
		}
		lines, err := readArgfile(path)
		if err != nil {
			return nil, werrors.Wrap(werrors.Configuration, "reading argfile "+path, err)
		}
		expanded, err := expandArgfiles(lines, append(stack, path))
		if err != nil {
			return nil, err
		}
		out = append(out, expanded...)
	}
	return out, nil
}

func readArgfile(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var lines []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		lines = append(lines, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return lines, nil
}
