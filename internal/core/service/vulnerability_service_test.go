package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/programacion-segura/secure-api/internal/core/domain"
	"github.com/programacion-segura/secure-api/internal/core/ports"
)

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

func newVulnSvc() (*VulnerabilityService, *stubVulnRepo, *stubSink) {
	repo := newStubVulnRepo()
	sink := &stubSink{}
	svc := NewVulnerabilityService(repo, NewAuthorizer(), NewAuditor(sink, zerolog.Nop()), zerolog.Nop())
	svc.now = func() time.Time { return fixedNow }
	return svc, repo, sink
}

func vulnInput(name, severity string) ports.CreateVulnerabilityInput {
	return ports.CreateVulnerabilityInput{
		Name:        name,
		Description: "Unsanitised input reaches a SQL query.",
		Severity:    severity,
	}
}

// ---------------------------------------------------------------------------
// Tests
// ---------------------------------------------------------------------------

func TestVulnerabilityService_Create_Success(t *testing.T) {
	svc, _, sink := newVulnSvc()

	v, err := svc.Create(context.Background(), admin, vulnInput("  SQL Injection ", "critical"))
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if v.ID == 0 || v.Name != "SQL Injection" || v.Status != domain.VulnerabilityActive {
		t.Errorf("unexpected entry %+v", v)
	}
	if v.CreatedBy != admin.ID {
		t.Errorf("created_by must come from the caller, got %d", v.CreatedBy)
	}
	if !v.CreatedAt.Equal(fixedNow) {
		t.Errorf("unexpected created_at %v", v.CreatedAt)
	}

	rec := sink.last()
	if rec.Outcome != domain.OutcomeAllowed || rec.TargetRef != domain.VulnerabilityRef(v.ID) {
		t.Errorf("unexpected audit record %+v", rec)
	}
}

func TestVulnerabilityService_Create_DuplicateNameIgnoresCase(t *testing.T) {
	svc, repo, _ := newVulnSvc()
	ctx := context.Background()

	if _, err := svc.Create(ctx, admin, vulnInput("sqli", "high")); err != nil {
		t.Fatalf("seed failed: %v", err)
	}

	_, err := svc.Create(ctx, admin, vulnInput("SQLi", "low"))
	if !errors.Is(err, domain.ErrVulnerabilityExists) {
		t.Fatalf("expected ErrVulnerabilityExists, got %v", err)
	}
	if !errors.Is(err, domain.ErrAlreadyExists) {
		t.Errorf("expected uniqueness conflict kind, got %v", err)
	}
	if len(repo.byID) != 1 {
		t.Errorf("store changed: %d entries", len(repo.byID))
	}
}

func TestVulnerabilityService_Create_DeletedNameIsReusable(t *testing.T) {
	svc, _, _ := newVulnSvc()
	ctx := context.Background()

	first, _ := svc.Create(ctx, admin, vulnInput("XSS", "medium"))
	if _, err := svc.Delete(ctx, admin, first.ID, "duplicate entry"); err != nil {
		t.Fatalf("delete failed: %v", err)
	}
	if _, err := svc.Create(ctx, admin, vulnInput("xss", "medium")); err != nil {
		t.Fatalf("expected name reuse after delete, got %v", err)
	}
}

func TestVulnerabilityService_Create_NonAdminDenied(t *testing.T) {
	svc, repo, sink := newVulnSvc()

	_, err := svc.Create(context.Background(), alice, vulnInput("CSRF", "low"))
	if !errors.Is(err, domain.ErrInsufficientPrivilege) {
		t.Fatalf("expected insufficient privilege, got %v", err)
	}
	if len(repo.byID) != 0 {
		t.Errorf("nothing should be stored")
	}
	rec := sink.last()
	if rec.Outcome != domain.OutcomeDenied || rec.ActorID != alice.ID || rec.Action != domain.ActionCreateVulnerability {
		t.Errorf("unexpected audit record %+v", rec)
	}
}

func TestVulnerabilityService_Create_Validation(t *testing.T) {
	svc, _, sink := newVulnSvc()

	cases := []ports.CreateVulnerabilityInput{
		{Name: "", Description: "long enough description", Severity: "low"},
		{Name: strings.Repeat("n", 101), Description: "long enough description", Severity: "low"},
		{Name: "Short", Description: "too short", Severity: "low"},
		{Name: "Long", Description: strings.Repeat("d", 501), Severity: "low"},
		{Name: "Bad severity", Description: "long enough description", Severity: "severe"},
		{Name: "Upper severity", Description: "long enough description", Severity: "HIGH"},
	}
	for _, in := range cases {
		if _, err := svc.Create(context.Background(), admin, in); !errors.Is(err, domain.ErrInvalidInput) {
			t.Errorf("%q: expected invalid input, got %v", in.Name, err)
		}
	}
	if rec := sink.last(); rec.Outcome != domain.OutcomeFailed {
		t.Errorf("expected failed outcome for rejected payload, got %+v", rec)
	}
}

func TestVulnerabilityService_Delete_Twice(t *testing.T) {
	svc, repo, sink := newVulnSvc()
	ctx := context.Background()
	v, _ := svc.Create(ctx, admin, vulnInput("Open Redirect", "low"))

	deleted, err := svc.Delete(ctx, admin, v.ID, "fixed upstream")
	if err != nil {
		t.Fatalf("first delete failed: %v", err)
	}
	if deleted.Status != domain.VulnerabilityDeleted || deleted.DeleteReason != "fixed upstream" {
		t.Errorf("unexpected entry after delete %+v", deleted)
	}
	if repo.byID[v.ID].Status != domain.VulnerabilityDeleted {
		t.Errorf("soft delete not persisted")
	}

	_, err = svc.Delete(ctx, admin, v.ID, "")
	if !errors.Is(err, domain.ErrVulnerabilityDeleted) {
		t.Fatalf("expected ErrVulnerabilityDeleted, got %v", err)
	}
	if errors.Is(err, domain.ErrAlreadyExists) {
		t.Errorf("re-delete is a state conflict, not a uniqueness conflict")
	}
	if rec := sink.last(); rec.Outcome != domain.OutcomeFailed || rec.Action != domain.ActionDeleteVulnerability {
		t.Errorf("unexpected audit record %+v", rec)
	}
}

func TestVulnerabilityService_Delete_NotFoundAndForbidden(t *testing.T) {
	svc, _, _ := newVulnSvc()
	ctx := context.Background()

	if _, err := svc.Delete(ctx, admin, 77, ""); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("expected not found, got %v", err)
	}
	if _, err := svc.Delete(ctx, bob, 77, ""); !errors.Is(err, domain.ErrInsufficientPrivilege) {
		t.Errorf("expected insufficient privilege, got %v", err)
	}
}

func TestVulnerabilityService_ListAndGet_HideDeleted(t *testing.T) {
	svc, _, _ := newVulnSvc()
	ctx := context.Background()

	keep, _ := svc.Create(ctx, admin, vulnInput("IDOR", "high"))
	gone, _ := svc.Create(ctx, admin, vulnInput("Mass Assignment", "medium"))
	_, _ = svc.Create(ctx, admin, vulnInput("SSRF", "high"))
	_, _ = svc.Delete(ctx, admin, gone.ID, "")

	res, err := svc.List(ctx, alice, ports.ListVulnerabilitiesInput{Page: 1, Limit: 10})
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if res.Total != 2 || len(res.Items) != 2 || res.TotalPages != 1 {
		t.Errorf("unexpected result total=%d items=%d pages=%d", res.Total, len(res.Items), res.TotalPages)
	}

	if _, err := svc.Get(ctx, alice, gone.ID); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("deleted entry should be not found, got %v", err)
	}
	if got, err := svc.Get(ctx, alice, keep.ID); err != nil || got.ID != keep.ID {
		t.Errorf("get active entry: %+v %v", got, err)
	}
}

func TestVulnerabilityService_List_SeverityAndPages(t *testing.T) {
	svc, _, _ := newVulnSvc()
	ctx := context.Background()
	for _, name := range []string{"A1", "A2", "A3"} {
		_, _ = svc.Create(ctx, admin, vulnInput(name, "high"))
	}
	_, _ = svc.Create(ctx, admin, vulnInput("B1", "low"))

	res, err := svc.List(ctx, bob, ports.ListVulnerabilitiesInput{Page: 2, Limit: 2, Severity: "high"})
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if res.Total != 3 || res.TotalPages != 2 || len(res.Items) != 1 || res.Items[0].Name != "A3" {
		t.Errorf("unexpected page %+v", res)
	}

	if _, err := svc.List(ctx, bob, ports.ListVulnerabilitiesInput{Page: 1, Limit: 10, Severity: "urgent"}); !errors.Is(err, domain.ErrInvalidInput) {
		t.Errorf("unknown severity: expected invalid input, got %v", err)
	}
	if _, err := svc.List(ctx, bob, ports.ListVulnerabilitiesInput{Page: 1, Limit: 0}); !errors.Is(err, domain.ErrInvalidInput) {
		t.Errorf("limit 0: expected invalid input, got %v", err)
	}
}

func TestVulnerabilityService_List_EmptyHasOnePage(t *testing.T) {
	svc, _, _ := newVulnSvc()

	res, err := svc.List(context.Background(), alice, ports.ListVulnerabilitiesInput{Page: 1, Limit: 10})
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if res.Total != 0 || res.TotalPages != 1 {
		t.Errorf("expected 0 total and 1 page, got %d/%d", res.Total, res.TotalPages)
	}
}
