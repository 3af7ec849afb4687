package controllers

import (
	"net/http"

	"github.com/lromero/storefront-backend/api/responses"
	"github.com/lromero/storefront-backend/api/validators"
	"github.com/lromero/storefront-backend/internal/identity"
	integritysvc "github.com/lromero/storefront-backend/internal/integrity"
	pkgerrors "github.com/lromero/storefront-backend/pkg/errors"
	"github.com/lromero/storefront-backend/pkg/logger"
)

type integrityScanRequest struct {
	IdentityKey string `json:"identity_key"`
}

type integrityRepairRequest struct {
	IdentityKey         string `json:"identity_key"`
	RemoveOrphans       *bool  `json:"remove_orphans"`
	CollapseDuplicates  *bool  `json:"collapse_duplicates"`
	NormalizeQuantities *bool  `json:"normalize_quantities"`
	DeleteStaleGuests   *bool  `json:"delete_stale_guests"`
}

type integrityScanView struct {
	Issues []integritysvc.Issue `json:"issues"`
}

// IntegrityScan reports cart corruption without mutating anything. An empty
// identity key scans globally.
func IntegrityScan(svc integritysvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "integrity service unavailable"))
			return
		}

		var payload integrityScanRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		scope, err := scopeFromKey(payload.IdentityKey)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		issues, err := svc.Scan(r.Context(), scope)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if issues == nil {
			issues = []integritysvc.Issue{}
		}
		responses.WriteSuccess(w, integrityScanView{Issues: issues})
	}
}

// IntegrityRepair applies the selected fixes. Omitting every toggle applies
// all of them, matching the scheduled sweep.
func IntegrityRepair(svc integritysvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "integrity service unavailable"))
			return
		}

		var payload integrityRepairRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		scope, err := scopeFromKey(payload.IdentityKey)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		report, err := svc.Repair(r.Context(), scope, repairOptions(payload))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, report)
	}
}

func repairOptions(payload integrityRepairRequest) integritysvc.RepairOptions {
	if payload.RemoveOrphans == nil && payload.CollapseDuplicates == nil &&
		payload.NormalizeQuantities == nil && payload.DeleteStaleGuests == nil {
		return integritysvc.AllRepairs()
	}
	opts := integritysvc.RepairOptions{}
	if payload.RemoveOrphans != nil {
		opts.RemoveOrphans = *payload.RemoveOrphans
	}
	if payload.CollapseDuplicates != nil {
		opts.CollapseDuplicates = *payload.CollapseDuplicates
	}
	if payload.NormalizeQuantities != nil {
		opts.NormalizeQuantities = *payload.NormalizeQuantities
	}
	if payload.DeleteStaleGuests != nil {
		opts.DeleteStaleGuests = *payload.DeleteStaleGuests
	}
	return opts
}

func scopeFromKey(key string) (*identity.Identity, error) {
	if key == "" {
		return nil, nil
	}
	ident, err := identity.ParseKey(key)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid identity key")
	}
	return &ident, nil
}
