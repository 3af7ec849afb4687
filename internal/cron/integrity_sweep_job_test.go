package cron

import (
	"context"
	"errors"
	"testing"

	"github.com/lromero/storefront-backend/internal/identity"
	"github.com/lromero/storefront-backend/internal/integrity"
)

type stubIntegrity struct {
	report     *integrity.RepairReport
	err        error
	calls      int
	lastOpts   integrity.RepairOptions
	lastScope  *identity.Identity
	scanIssues []integrity.Issue
}

func (s *stubIntegrity) Scan(_ context.Context, scope *identity.Identity) ([]integrity.Issue, error) {
	s.lastScope = scope
	return s.scanIssues, s.err
}

func (s *stubIntegrity) Repair(_ context.Context, scope *identity.Identity, opts integrity.RepairOptions) (*integrity.RepairReport, error) {
	s.calls++
	s.lastScope = scope
	s.lastOpts = opts
	if s.err != nil {
		return nil, s.err
	}
	return s.report, nil
}

func TestIntegritySweepJobRunsGlobalRepair(t *testing.T) {
	stub := &stubIntegrity{report: &integrity.RepairReport{
		FixesApplied: map[integrity.IssueKind]int{integrity.IssueStaleGuestCart: 3},
	}}
	job, err := NewIntegritySweepJob(IntegritySweepJobParams{Logger: testLogger(), Integrity: stub})
	if err != nil {
		t.Fatalf("construct job: %v", err)
	}

	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}
	if stub.calls != 1 {
		t.Fatalf("expected one repair call, got %d", stub.calls)
	}
	if stub.lastScope != nil {
		t.Fatal("expected a global scope")
	}
	if !stub.lastOpts.Any() || !stub.lastOpts.DeleteStaleGuests {
		t.Fatal("expected every repair enabled")
	}
}

func TestIntegritySweepJobSurfacesFailures(t *testing.T) {
	stub := &stubIntegrity{err: errors.New("db down")}
	job, err := NewIntegritySweepJob(IntegritySweepJobParams{Logger: testLogger(), Integrity: stub})
	if err != nil {
		t.Fatalf("construct job: %v", err)
	}
	if err := job.Run(context.Background()); err == nil {
		t.Fatal("expected error from failed repair")
	}

	stub = &stubIntegrity{report: &integrity.RepairReport{
		FixesApplied: map[integrity.IssueKind]int{},
		Errors:       2,
	}}
	job, err = NewIntegritySweepJob(IntegritySweepJobParams{Logger: testLogger(), Integrity: stub})
	if err != nil {
		t.Fatalf("construct job: %v", err)
	}
	if err := job.Run(context.Background()); err == nil {
		t.Fatal("expected error when identities failed to repair")
	}
}

func TestNewIntegritySweepJobValidatesDeps(t *testing.T) {
	if _, err := NewIntegritySweepJob(IntegritySweepJobParams{Integrity: &stubIntegrity{}}); err == nil {
		t.Fatal("expected error without logger")
	}
	if _, err := NewIntegritySweepJob(IntegritySweepJobParams{Logger: testLogger()}); err == nil {
		t.Fatal("expected error without integrity service")
	}
}
