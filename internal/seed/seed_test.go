package seed

import (
	"context"
	"os"
	"testing"

	"github.com/opensource-welfare/kestrel/internal/auth"
	"github.com/opensource-welfare/kestrel/internal/domain"
	"github.com/opensource-welfare/kestrel/internal/repository"
)

func TestRun(t *testing.T) {
	tmpFile, err := os.CreateTemp("", "kestrel-seed-test-*.db")
	if err != nil {
		t.Fatalf("failed to create temp file: %v", err)
	}
	tmpPath := tmpFile.Name()
	tmpFile.Close()
	t.Cleanup(func() { os.Remove(tmpPath) })

	repo, err := repository.New(domain.RepositoryConfig{
		Driver:     "sqlite",
		SQLitePath: tmpPath,
	})
	if err != nil {
		t.Fatalf("failed to create repository: %v", err)
	}
	t.Cleanup(func() { repo.Close() })

	authSvc, err := auth.NewService(domain.AuthConfig{
		JWTSecret:    "seed-test",
		TokenTTLMins: 60,
		BCryptCost:   4,
	})
	if err != nil {
		t.Fatalf("failed to create auth service: %v", err)
	}

	ctx := context.Background()
	opts := DefaultOptions()
	opts.Subjects = 30
	opts.Shops = 5
	opts.Transactions = 60

	summary, err := Run(ctx, repo, authSvc, opts)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if summary.Subjects != 30 || summary.Shops != 5 {
		t.Errorf("unexpected summary: %+v", summary)
	}
	if summary.Cards < summary.Subjects {
		t.Errorf("expected at least one card per subject, got %d", summary.Cards)
	}
	if summary.Transactions == 0 {
		t.Error("expected seeded transactions")
	}
	if !summary.AdminCreated {
		t.Error("expected admin account to be created")
	}

	subjects, err := repo.ListSubjects(ctx, domain.SubjectFilter{})
	if err != nil {
		t.Fatalf("ListSubjects failed: %v", err)
	}
	if len(subjects) != 30 {
		t.Errorf("expected 30 subjects in store, got %d", len(subjects))
	}

	// The generated population must contain screening targets.
	var duplicateIDs int
	for _, s := range subjects {
		count, err := repo.CountByNationalID(ctx, s.NationalID, s.ID)
		if err != nil {
			t.Fatalf("CountByNationalID failed: %v", err)
		}
		if count > 0 {
			duplicateIDs++
		}
	}
	if duplicateIDs == 0 {
		t.Error("expected seeded duplicate national IDs")
	}

	admin, err := repo.GetAdminByEmail(ctx, opts.AdminEmail)
	if err != nil {
		t.Fatalf("GetAdminByEmail failed: %v", err)
	}
	if err := authSvc.CheckPassword(admin.PasswordHash, opts.AdminPassword); err != nil {
		t.Errorf("seeded admin password does not verify: %v", err)
	}

	// Rerunning must not duplicate the admin account.
	again, err := Run(ctx, repo, authSvc, opts)
	if err != nil {
		t.Fatalf("second Run failed: %v", err)
	}
	if again.AdminCreated {
		t.Error("expected admin creation to be skipped on rerun")
	}
}
