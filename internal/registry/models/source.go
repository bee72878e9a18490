package models

import (
	"fmt"
)

// Source identifies one of the externally maintained candidate lists.
type Source string

const (
	SourcePayroll      Source = "mct_payroll"
	SourceProfessional Source = "mct_registration"
	SourceDistrict     Source = "dmo_registration"
	SourcePartner      Source = "ngo_registration"
)

// AllSources lists every source in the order used for matched-name lookup.
var AllSources = []Source{SourcePayroll, SourceProfessional, SourceDistrict, SourcePartner}

// Field is a matchable attribute of a candidate record.
type Field string

const (
	FieldName               Field = "name"
	FieldPayrollNumber      Field = "payroll_number"
	FieldRegistrationNumber Field = "registration_number"
	FieldPhoneNumber        Field = "phone_number"
)

var capabilities = map[Source]map[Field]bool{
	SourcePayroll: {
		FieldName:          true,
		FieldPayrollNumber: true,
	},
	SourceProfessional: {
		FieldName:               true,
		FieldRegistrationNumber: true,
	},
	SourceDistrict: {
		FieldName:               true,
		FieldPayrollNumber:      true,
		FieldRegistrationNumber: true,
		FieldPhoneNumber:        true,
	},
	SourcePartner: {
		FieldName:               true,
		FieldPayrollNumber:      true,
		FieldRegistrationNumber: true,
		FieldPhoneNumber:        true,
	},
}

// Provides reports whether records from the source carry the field.
func (s Source) Provides(f Field) bool {
	return capabilities[s][f]
}

func (s Source) IsValid() bool {
	_, ok := capabilities[s]
	return ok
}

func (s Source) String() string {
	return string(s)
}

// ParseSource validates a source name from configuration or transport input.
func ParseSource(raw string) (Source, error) {
	s := Source(raw)
	if !s.IsValid() {
		return "", fmt.Errorf("unknown candidate source %q", raw)
	}
	return s, nil
}
