package integrity

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"go.uber.org/multierr"
	"gorm.io/gorm"

	"github.com/lromero/storefront-backend/internal/identity"
	pkgerrors "github.com/lromero/storefront-backend/pkg/errors"
	"github.com/lromero/storefront-backend/pkg/logger"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Service scans cart state for corruption and repairs it. Scan is read-only;
// Repair works identity by identity, one transaction each, so a failure on
// one identity never rolls back another's committed fixes and never leaves a
// single identity half-fixed.
type Service interface {
	Scan(ctx context.Context, scope *identity.Identity) ([]Issue, error)
	Repair(ctx context.Context, scope *identity.Identity, opts RepairOptions) (*RepairReport, error)
}

type service struct {
	repo      *Repository
	tx        txRunner
	retention time.Duration
	logg      *logger.Logger
	now       func() time.Time
}

func NewService(repo *Repository, tx txRunner, retention time.Duration, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("integrity repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if retention <= 0 {
		return nil, fmt.Errorf("guest retention window required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{
		repo:      repo,
		tx:        tx,
		retention: retention,
		logg:      logg,
		now:       func() time.Time { return time.Now().UTC() },
	}, nil
}

func scopeKey(scope *identity.Identity) string {
	if scope == nil {
		return ""
	}
	return scope.Key()
}

func (s *service) Scan(ctx context.Context, scope *identity.Identity) ([]Issue, error) {
	key := scopeKey(scope)
	var issues []Issue

	orphans, err := s.repo.OrphanedLines(ctx, key)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "scan orphaned references")
	}
	for _, line := range orphans {
		productID := line.ProductID
		issues = append(issues, Issue{
			Kind:         IssueOrphanedProductReference,
			IdentityKey:  line.IdentityKey,
			ProductID:    &productID,
			LineIDs:      []uuid.UUID{line.ID},
			SuggestedFix: "remove the line; its product no longer exists",
		})
	}

	groups, err := s.repo.DuplicateGroups(ctx, key)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "scan duplicate lines")
	}
	for _, group := range groups {
		lines, err := s.repo.GroupLines(ctx, group.IdentityKey, group.ProductID)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load duplicate group")
		}
		productID := group.ProductID
		issue := Issue{
			Kind:         IssueDuplicateLine,
			IdentityKey:  group.IdentityKey,
			ProductID:    &productID,
			SuggestedFix: "collapse into the earliest line, summing quantities",
		}
		for _, line := range lines {
			issue.LineIDs = append(issue.LineIDs, line.ID)
		}
		issues = append(issues, issue)
	}

	invalid, err := s.repo.InvalidQuantityLines(ctx, key)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "scan invalid quantities")
	}
	for _, line := range invalid {
		productID := line.ProductID
		issues = append(issues, Issue{
			Kind:         IssueInvalidQuantity,
			IdentityKey:  line.IdentityKey,
			ProductID:    &productID,
			LineIDs:      []uuid.UUID{line.ID},
			SuggestedFix: "delete the line; quantity is not positive",
		})
	}

	stale, err := s.repo.StaleGuestIdentities(ctx, key, s.now().Add(-s.retention))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "scan stale guest carts")
	}
	for _, staleKey := range stale {
		issues = append(issues, Issue{
			Kind:         IssueStaleGuestCart,
			IdentityKey:  staleKey,
			SuggestedFix: "delete the cart; every line is past the retention window",
		})
	}

	return issues, nil
}

// Repair scans, groups the findings by identity, and fixes each identity in
// its own transaction. A failed identity is counted and logged, then the
// pass moves on.
func (s *service) Repair(ctx context.Context, scope *identity.Identity, opts RepairOptions) (*RepairReport, error) {
	report := newRepairReport()
	if !opts.Any() {
		return report, nil
	}

	issues, err := s.Scan(ctx, scope)
	if err != nil {
		return nil, err
	}

	affected := make(map[string]struct{})
	for _, issue := range issues {
		if !opts.enables(issue.Kind) {
			continue
		}
		affected[issue.IdentityKey] = struct{}{}
	}

	keys := make([]string, 0, len(affected))
	for key := range affected {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	var failures error
	for _, key := range keys {
		if err := s.repairIdentity(ctx, key, opts, report); err != nil {
			report.Errors++
			failures = multierr.Append(failures, fmt.Errorf("repair %s: %w", key, err))
		}
	}
	if failures != nil {
		s.logg.Error(ctx, "cart repair pass finished with failed identities", failures)
	}
	return report, nil
}

// enables maps an issue kind to its toggle.
func (o RepairOptions) enables(kind IssueKind) bool {
	switch kind {
	case IssueOrphanedProductReference:
		return o.RemoveOrphans
	case IssueDuplicateLine:
		return o.CollapseDuplicates
	case IssueInvalidQuantity:
		return o.NormalizeQuantities
	case IssueStaleGuestCart:
		return o.DeleteStaleGuests
	}
	return false
}

// repairIdentity re-derives the findings inside the transaction before
// fixing them, so a line mutated between scan and repair is judged by its
// current state.
func (s *service) repairIdentity(ctx context.Context, identityKey string, opts RepairOptions, report *RepairReport) error {
	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		if opts.DeleteStaleGuests {
			stale, err := repo.StaleGuestIdentities(ctx, identityKey, s.now().Add(-s.retention))
			if err != nil {
				return err
			}
			if len(stale) > 0 {
				if _, err := repo.DeleteIdentityLines(ctx, identityKey); err != nil {
					return err
				}
				report.FixesApplied[IssueStaleGuestCart]++
				// Nothing left under this identity to fix.
				return nil
			}
		}

		if opts.RemoveOrphans {
			orphans, err := repo.OrphanedLines(ctx, identityKey)
			if err != nil {
				return err
			}
			ids := make([]uuid.UUID, 0, len(orphans))
			for _, line := range orphans {
				ids = append(ids, line.ID)
			}
			removed, err := repo.DeleteLines(ctx, ids)
			if err != nil {
				return err
			}
			report.FixesApplied[IssueOrphanedProductReference] += int(removed)
		}

		if opts.CollapseDuplicates {
			groups, err := repo.DuplicateGroups(ctx, identityKey)
			if err != nil {
				return err
			}
			for _, group := range groups {
				lines, err := repo.GroupLines(ctx, group.IdentityKey, group.ProductID)
				if err != nil {
					return err
				}
				if len(lines) < 2 {
					continue
				}
				total := 0
				extras := make([]uuid.UUID, 0, len(lines)-1)
				for i, line := range lines {
					total += line.Quantity
					if i > 0 {
						extras = append(extras, line.ID)
					}
				}
				if _, err := repo.DeleteLines(ctx, extras); err != nil {
					return err
				}
				if total < 1 {
					// All members were bad writes; the survivor goes too.
					if _, err := repo.DeleteLines(ctx, []uuid.UUID{lines[0].ID}); err != nil {
						return err
					}
				} else if err := repo.SetLineQuantity(ctx, lines[0].ID, total); err != nil {
					return err
				}
				report.FixesApplied[IssueDuplicateLine]++
			}
		}

		if opts.NormalizeQuantities {
			invalid, err := repo.InvalidQuantityLines(ctx, identityKey)
			if err != nil {
				return err
			}
			ids := make([]uuid.UUID, 0, len(invalid))
			for _, line := range invalid {
				ids = append(ids, line.ID)
			}
			removed, err := repo.DeleteLines(ctx, ids)
			if err != nil {
				return err
			}
			report.FixesApplied[IssueInvalidQuantity] += int(removed)
		}

		return nil
	})
}
