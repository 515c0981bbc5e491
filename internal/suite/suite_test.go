package suite

import (
	"context"
	"testing"
)

type stubSuite struct{ name string }

func (s *stubSuite) Name() string     { return s.name }
func (s *stubSuite) Describe() string { return s.name }
func (s *stubSuite) Run(ctx context.Context, t *Target) (*Result, error) {
	return NewResult(s.name), nil
}

func TestRegistryOrder(t *testing.T) {
	r := NewRegistry()
	r.Register(&stubSuite{name: "config"})
	r.Register(&stubSuite{name: "manifest"})
	r.Register(&stubSuite{name: "links"})

	all := r.All()
	if len(all) != 3 {
		t.Fatalf("expected 3 suites, got %d", len(all))
	}
	for i, want := range []string{"config", "manifest", "links"} {
		if all[i].Name() != want {
			t.Fatalf("position %d: expected %s, got %s", i, want, all[i].Name())
		}
	}
}

func TestRegistryReplaceKeepsOrder(t *testing.T) {
	r := NewRegistry()
	r.Register(&stubSuite{name: "config"})
	r.Register(&stubSuite{name: "links"})
	r.Register(&stubSuite{name: "config"})

	all := r.All()
	if len(all) != 2 {
		t.Fatalf("expected 2 suites after re-registration, got %d", len(all))
	}
	if all[0].Name() != "config" {
		t.Fatalf("re-registering must not move a suite, got %s first", all[0].Name())
	}
}

func TestRegistryGetUnknown(t *testing.T) {
	r := NewRegistry()
	if _, err := r.Get("nope"); err == nil {
		t.Fatal("expected error for unknown suite")
	}
}

func TestResultCounters(t *testing.T) {
	res := NewResult("config")
	if !res.OK {
		t.Fatal("new result should start passing")
	}

	res.Pass("a", "a")
	res.Add(Finding{ID: "b", Description: "b", Warn: true, Detail: "advisory"})
	if !res.OK {
		t.Fatal("advisory failure must not flip OK")
	}

	res.Fail("c", "c", "broken")
	if res.OK {
		t.Fatal("required failure must flip OK")
	}

	if res.Passed() != 1 || res.Failed() != 1 || res.Warned() != 1 {
		t.Fatalf("unexpected counts: passed=%d failed=%d warned=%d",
			res.Passed(), res.Failed(), res.Warned())
	}
}
