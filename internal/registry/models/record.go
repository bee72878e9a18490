package models

import (
	"time"

	id "healthnet/pkg/domain"
)

// Record is a candidate record imported from one source. Fields the source
// does not provide are left empty. ClaimedBy is written at most once.
type Record struct {
	ID                 id.RecordID
	Source             Source
	Name               string
	PayrollNumber      string
	RegistrationNumber string
	PhoneNumber        string
	ClaimedBy          *id.WorkerID
	ImportedAt         time.Time
}

// Value returns the record's value for f, or "" when the source lacks it.
func (r Record) Value(f Field) string {
	if !r.Source.Provides(f) {
		return ""
	}
	switch f {
	case FieldName:
		return r.Name
	case FieldPayrollNumber:
		return r.PayrollNumber
	case FieldRegistrationNumber:
		return r.RegistrationNumber
	case FieldPhoneNumber:
		return r.PhoneNumber
	default:
		return ""
	}
}

func (r Record) IsClaimed() bool {
	return r.ClaimedBy != nil
}

// Filter selects unclaimed records whose Field equals Value exactly. An empty
// Field matches every unclaimed record of the source.
type Filter struct {
	Field Field
	Value string
}

// Matches applies the filter to a record, ignoring the claimed state.
func (f Filter) Matches(r Record) bool {
	if f.Field == "" {
		return true
	}
	return r.Source.Provides(f.Field) && r.Value(f.Field) == f.Value
}
