package filter

import (
	"testing"

	"github.com/watchexec/corewatch/internal/event"
)

func TestKindMaskDefaultRejectsAccess(t *testing.T) {
	m := DefaultKindMask()
	access := event.New(event.PathTag("/a", event.FileTypeFile), event.FSTag(event.FSAccess, "access"))
	ok, err := m.Accept(access)
	if err != nil || ok {
		t.Fatalf("Accept(access) = %v, %v; want false, nil", ok, err)
	}
	modify := event.New(event.PathTag("/a", event.FileTypeFile), event.FSTag(event.FSModify, "data-content"))
	ok, err = m.Accept(modify)
	if err != nil || !ok {
		t.Fatalf("Accept(modify) = %v, %v; want true, nil", ok, err)
	}
}

func TestWatchScopeRecursiveVsDirect(t *testing.T) {
	recursive := NewWatchScope(WatchRoot{Path: "/repo", Recursive: true})
	nested := event.New(event.PathTag("/repo/a/b/c.go", event.FileTypeFile))
	if ok, _ := recursive.Accept(nested); !ok {
		t.Fatalf("recursive scope should accept nested path")
	}

	direct := NewWatchScope(WatchRoot{Path: "/repo", Recursive: false})
	if ok, _ := direct.Accept(nested); ok {
		t.Fatalf("non-recursive scope should reject nested path")
	}
	top := event.New(event.PathTag("/repo/a.go", event.FileTypeFile))
	if ok, _ := direct.Accept(top); !ok {
		t.Fatalf("non-recursive scope should accept direct child")
	}

	outside := event.New(event.PathTag("/other/a.go", event.FileTypeFile))
	if ok, _ := recursive.Accept(outside); ok {
		t.Fatalf("scope should reject path outside all roots")
	}
}

// TestIgnorePrecedence is scenario 4 from spec §8: an ignore glob for
// target/** must reject target/out.o while leaving src/main.rs untouched.
func TestIgnorePrecedence(t *testing.T) {
	set := NewIgnoreSet("/repo", []string{"target/**"}, nil)

	rejected := event.New(event.PathTag("/repo/target/out.o", event.FileTypeFile))
	if ok, _ := set.Accept(rejected); ok {
		t.Fatalf("expected target/out.o to be ignored")
	}

	accepted := event.New(event.PathTag("/repo/src/main.rs", event.FileTypeFile))
	if ok, _ := set.Accept(accepted); !ok {
		t.Fatalf("expected src/main.rs to pass the ignore stage")
	}
}

func TestIgnoreSetNegation(t *testing.T) {
	rules := []Rule{
		{Pattern: "*.log", Dir: "/repo"},
		{Pattern: "keep.log", Dir: "/repo", Negate: true},
	}
	set := NewIgnoreSet("/repo", nil, rules)

	if ok, _ := set.Accept(event.New(event.PathTag("/repo/debug.log", event.FileTypeFile))); ok {
		t.Fatalf("debug.log should be ignored")
	}
	if ok, _ := set.Accept(event.New(event.PathTag("/repo/keep.log", event.FileTypeFile))); !ok {
		t.Fatalf("keep.log should be re-included by the negated rule")
	}
}

func TestIgnoreFileTreeScoping(t *testing.T) {
	rootRules := []Rule{{Pattern: "*.tmp", Dir: "/repo"}}
	nestedRules := []Rule{{Pattern: "fixture.json", Dir: "/repo/testdata"}}
	set := NewIgnoreSet("/repo", nil, append(rootRules, nestedRules...))

	// The nested rule must not apply outside its directory.
	outside := event.New(event.PathTag("/repo/src/fixture.json", event.FileTypeFile))
	if ok, _ := set.Accept(outside); !ok {
		t.Fatalf("nested ignore rule leaked outside its directory scope")
	}
	inside := event.New(event.PathTag("/repo/testdata/fixture.json", event.FileTypeFile))
	if ok, _ := set.Accept(inside); ok {
		t.Fatalf("nested ignore rule should apply within its own directory")
	}
}

func TestAllowFiltersExtensionAndGlob(t *testing.T) {
	a := NewAllowFilters("/repo", []string{"go"}, []string{"docs/**.md"})

	if ok, _ := a.Accept(event.New(event.PathTag("/repo/main.go", event.FileTypeFile))); !ok {
		t.Fatalf("expected .go file to be allowed")
	}
	if ok, _ := a.Accept(event.New(event.PathTag("/repo/docs/readme.md", event.FileTypeFile))); !ok {
		t.Fatalf("expected docs glob to allow markdown under docs/")
	}
	if ok, _ := a.Accept(event.New(event.PathTag("/repo/main.py", event.FileTypeFile))); ok {
		t.Fatalf("expected .py file to be rejected when allow filters are configured")
	}
}

func TestAllowFiltersPassThroughWhenUnconfigured(t *testing.T) {
	a := NewAllowFilters("/repo", nil, nil)
	if a.Configured() {
		t.Fatalf("Configured() should be false with no filters")
	}
	if ok, _ := a.Accept(event.New(event.PathTag("/repo/anything.xyz", event.FileTypeFile))); !ok {
		t.Fatalf("unconfigured allow filters should pass everything")
	}
}

type fakeStage struct {
	name   string
	accept bool
	err    error
}

func (f fakeStage) Name() string                       { return f.name }
func (f fakeStage) Accept(event.Event) (bool, error) { return f.accept, f.err }

func TestStackShortCircuitsOnFirstRejection(t *testing.T) {
	calledSecond := false
	second := fakeStage{name: "second", accept: true}
	s := New(nil,
		fakeStage{name: "first", accept: false},
		trackingStage{inner: second, called: &calledSecond},
	)
	if s.Accept(event.New(event.PathTag("/a", event.FileTypeFile))) {
		t.Fatalf("expected rejection from first stage")
	}
	if calledSecond {
		t.Fatalf("second stage should not have been evaluated")
	}
}

type trackingStage struct {
	inner  Stage
	called *bool
}

func (t trackingStage) Name() string { return t.inner.Name() }
func (t trackingStage) Accept(e event.Event) (bool, error) {
	*t.called = true
	return t.inner.Accept(e)
}

func TestStackUrgentBypassesAllStages(t *testing.T) {
	s := New(nil, fakeStage{name: "reject-everything", accept: false})
	urgent := event.NewWithPriority(event.Urgent, event.SignalTag(event.SigInterrupt))
	if !s.Accept(urgent) {
		t.Fatalf("urgent events must bypass every stage")
	}
}

func TestStackStageErrorTreatedAsRejection(t *testing.T) {
	s := New(nil, fakeStage{name: "broken", accept: true, err: errBoom})
	if s.Accept(event.New(event.PathTag("/a", event.FileTypeFile))) {
		t.Fatalf("a stage error must be treated as a rejection")
	}
}

var errBoom = &stubError{"boom"}

type stubError struct{ s string }

func (e *stubError) Error() string { return e.s }
