package integrity

import "github.com/google/uuid"

// IssueKind tags one class of cart corruption the scanner looks for.
type IssueKind string

const (
	IssueOrphanedProductReference IssueKind = "orphaned_product_reference"
	IssueDuplicateLine            IssueKind = "duplicate_line"
	IssueInvalidQuantity          IssueKind = "invalid_quantity"
	IssueStaleGuestCart           IssueKind = "stale_guest_cart"
)

// Issue is one transient finding. Nothing here is persisted; a fresh scan
// re-derives the full picture from cart state.
type Issue struct {
	Kind         IssueKind   `json:"kind"`
	IdentityKey  string      `json:"identity_key"`
	ProductID    *uuid.UUID  `json:"product_id,omitempty"`
	LineIDs      []uuid.UUID `json:"line_ids,omitempty"`
	SuggestedFix string      `json:"suggested_fix"`
}

// RepairOptions toggles each fix independently.
type RepairOptions struct {
	RemoveOrphans       bool `json:"remove_orphans"`
	CollapseDuplicates  bool `json:"collapse_duplicates"`
	NormalizeQuantities bool `json:"normalize_quantities"`
	DeleteStaleGuests   bool `json:"delete_stale_guests"`
}

// AllRepairs enables every fix, the default for the scheduled sweep.
func AllRepairs() RepairOptions {
	return RepairOptions{
		RemoveOrphans:       true,
		CollapseDuplicates:  true,
		NormalizeQuantities: true,
		DeleteStaleGuests:   true,
	}
}

// Any reports whether at least one fix is enabled.
func (o RepairOptions) Any() bool {
	return o.RemoveOrphans || o.CollapseDuplicates || o.NormalizeQuantities || o.DeleteStaleGuests
}

// RepairReport counts what a repair pass did. Errors counts identities whose
// repair transaction failed; their fixes rolled back, everyone else's stuck.
type RepairReport struct {
	FixesApplied map[IssueKind]int `json:"fixes_applied"`
	Errors       int               `json:"errors"`
}

func newRepairReport() *RepairReport {
	return &RepairReport{FixesApplied: make(map[IssueKind]int)}
}
