package models

import (
	"time"

	id "healthnet/pkg/domain"
	dErrors "healthnet/pkg/domain-errors"
)

// Worker is a health worker enrolled in the programme.
//
// Invariants:
//   - Name is non-empty
//   - VerificationTier only leaves TierUnverified through the verification
//     engine or a manual override, and never returns to it
//   - AddedToClosedUserGroupAt is set iff ClosedUserGroup is true
//   - A worker is linked to at most one claimed candidate record by the engine
type Worker struct {
	ID                         id.WorkerID      `json:"id"`
	Name                       string           `json:"name"`
	Surname                    string           `json:"surname"`
	VodacomPhone               string           `json:"vodacom_phone"`
	OtherPhone                 string           `json:"other_phone,omitempty"`
	Email                      string           `json:"email,omitempty"`
	PayrollNumber              string           `json:"payroll_number,omitempty"`
	RegistrationNumber         string           `json:"registration_number,omitempty"`
	Country                    string           `json:"country"`
	Language                   string           `json:"language,omitempty"`
	VerificationTier           VerificationTier `json:"verification_tier"`
	VerifiedAt                 *time.Time       `json:"verified_at,omitempty"`
	ManualVerificationNotes    string           `json:"manual_verification_notes,omitempty"`
	ClosedUserGroup            bool             `json:"closed_user_group"`
	AddedToClosedUserGroupAt   *time.Time       `json:"added_to_closed_user_group_at,omitempty"`
	RequestedClosedUserGroupAt *time.Time       `json:"requested_closed_user_group_at,omitempty"`
	CreatedAt                  time.Time        `json:"created_at"`
	UpdatedAt                  time.Time        `json:"updated_at"`
}

func NewWorker(workerID id.WorkerID, name string, now time.Time) (*Worker, error) {
	if name == "" {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "worker name cannot be empty")
	}
	return &Worker{
		ID:               workerID,
		Name:             name,
		Country:          "TZ",
		VerificationTier: TierUnverified,
		CreatedAt:        now,
		UpdatedAt:        now,
	}, nil
}

// IsUnverified reports whether the engine may still act on the worker.
func (w *Worker) IsUnverified() bool {
	return w.VerificationTier == TierUnverified
}

// ApplyAutoVerification records a tier reached through automatic matching.
func (w *Worker) ApplyAutoVerification(tier VerificationTier, now time.Time) error {
	if !w.IsUnverified() {
		return dErrors.New(dErrors.CodeInvariantViolation, "worker is already verified")
	}
	if !tier.IsAutomatic() {
		return dErrors.New(dErrors.CodeInvariantViolation, "tier is not reachable by automatic verification")
	}
	w.VerificationTier = tier
	w.VerifiedAt = &now
	w.UpdatedAt = now
	return nil
}

// ApplyManualVerification moves the worker to TierManual from any tier.
func (w *Worker) ApplyManualVerification(notes string, now time.Time) {
	w.VerificationTier = TierManual
	w.VerifiedAt = &now
	if notes != "" {
		w.ManualVerificationNotes = notes
	}
	w.UpdatedAt = now
}

// CanToggleMembership reports whether setting the closed user group flag to
// enabled would change anything.
func (w *Worker) CanToggleMembership(enabled bool) bool {
	return w.ClosedUserGroup != enabled
}

// ApplyMembership sets the closed user group flag and its activation time.
// Call CanToggleMembership first.
func (w *Worker) ApplyMembership(enabled bool, now time.Time) {
	w.ClosedUserGroup = enabled
	if enabled {
		w.AddedToClosedUserGroupAt = &now
	} else {
		w.AddedToClosedUserGroupAt = nil
	}
	w.UpdatedAt = now
}

// ApplyMembershipRequest records the first time the worker asked to join.
// Returns false when a request is already on file.
func (w *Worker) ApplyMembershipRequest(now time.Time) bool {
	if w.RequestedClosedUserGroupAt != nil {
		return false
	}
	w.RequestedClosedUserGroupAt = &now
	w.UpdatedAt = now
	return true
}
