package filter

import (
	"bufio"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// Rule is one parsed line of an ignore/filter file: a glob pattern,
// optionally negated with a leading `!` (spec §6 File formats).
type Rule struct {
	Pattern string
	Negate  bool
	// Dir is the directory the owning ignore file lives in; nested ignore
	// files only apply to paths under Dir (spec §4.4 stage 3, "tree-aware").
	Dir string
}

// ParseRules parses the line-based format shared by ignore files and
// filter files: `#` comments, blank lines ignored, each remaining line one
// glob pattern with optional leading `!` negation.
func ParseRules(r io.Reader, dir string) ([]Rule, error) {
	var rules []Rule
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		negate := false
		if strings.HasPrefix(line, "!") {
			negate = true
			line = line[1:]
		}
		rules = append(rules, Rule{Pattern: line, Negate: negate, Dir: dir})
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return rules, nil
}

// ParseRulesFile reads and parses an ignore/filter file, scoping its rules
// to its containing directory.
func ParseRulesFile(path string) ([]Rule, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ParseRules(f, filepath.Dir(path))
}

// matches reports whether path (absolute) is matched by rule r, honouring
// the rule's directory scope.
func (r Rule) matches(path string) bool {
	rel, err := filepath.Rel(r.Dir, path)
	if err != nil || strings.HasPrefix(rel, "..") {
		return false
	}
	rel = filepath.ToSlash(rel)

	if matchGlob(r.Pattern, rel) {
		return true
	}
	// Also try matching just the base name, so a plain pattern like
	// "*.o" or "target" matches regardless of depth, matching common
	// gitignore ergonomics.
	base := filepath.Base(rel)
	return matchGlob(r.Pattern, base)
}
