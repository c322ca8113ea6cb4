package cron

import (
	"context"
	"testing"
)

type stubJob struct {
	name string
}

func (s *stubJob) Name() string              { return s.name }
func (s *stubJob) Run(context.Context) error { return nil }

func TestRegistryKeepsOrderAndCopies(t *testing.T) {
	a, b := &stubJob{name: "dangling-image-sweep"}, &stubJob{name: "orphan-blob-sweep"}
	registry, err := NewRegistry(a, nil, b)
	if err != nil {
		t.Fatalf("NewRegistry: %v", err)
	}
	jobs := registry.Jobs()
	if len(jobs) != 2 || jobs[0] != a || jobs[1] != b {
		t.Fatalf("unexpected jobs %v", jobs)
	}
	jobs[0] = nil
	if registry.Jobs()[0] == nil {
		t.Fatalf("internal slice leaked")
	}
}

func TestRegistryRejectsDuplicateAndBlankNames(t *testing.T) {
	if _, err := NewRegistry(&stubJob{name: "x"}, &stubJob{name: "x"}); err == nil {
		t.Fatal("expected duplicate name error")
	}
	var registry Registry
	if err := registry.Register(&stubJob{}); err == nil {
		t.Fatal("expected blank name error")
	}
}
