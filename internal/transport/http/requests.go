package httptransport

import (
	dErrors "healthnet/pkg/domain-errors"
)

const maxNotesLength = 4000

type ManualVerificationRequest struct {
	Notes string `json:"notes"`
}

func (r *ManualVerificationRequest) Validate() error {
	if len(r.Notes) > maxNotesLength {
		return dErrors.New(dErrors.CodeValidation, "notes must be at most 4000 bytes")
	}
	return nil
}

type ClosedUserGroupRequest struct {
	Enabled *bool `json:"enabled"`
}

func (r *ClosedUserGroupRequest) Validate() error {
	if r.Enabled == nil {
		return dErrors.New(dErrors.CodeValidation, "enabled is required")
	}
	return nil
}
