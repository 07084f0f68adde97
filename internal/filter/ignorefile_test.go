package filter

import (
	"strings"
	"testing"
)

func TestParseRulesSkipsCommentsAndBlankLines(t *testing.T) {
	src := "# a comment\n\n*.log\n!keep.log\n  \ntarget/**\n"
	rules, err := ParseRules(strings.NewReader(src), "/repo")
	if err != nil {
		t.Fatalf("ParseRules: %v", err)
	}
	want := []Rule{
		{Pattern: "*.log", Dir: "/repo"},
		{Pattern: "keep.log", Negate: true, Dir: "/repo"},
		{Pattern: "target/**", Dir: "/repo"},
	}
	if len(rules) != len(want) {
		t.Fatalf("got %d rules, want %d: %+v", len(rules), len(want), rules)
	}
	for i := range want {
		if rules[i] != want[i] {
			t.Errorf("rule[%d] = %+v, want %+v", i, rules[i], want[i])
		}
	}
}
