package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	id "healthnet/pkg/domain"
)

func TestSourceProvides(t *testing.T) {
	tests := []struct {
		source Source
		field  Field
		want   bool
	}{
		{SourcePayroll, FieldName, true},
		{SourcePayroll, FieldPayrollNumber, true},
		{SourcePayroll, FieldRegistrationNumber, false},
		{SourcePayroll, FieldPhoneNumber, false},
		{SourceProfessional, FieldRegistrationNumber, true},
		{SourceProfessional, FieldPayrollNumber, false},
		{SourceProfessional, FieldPhoneNumber, false},
		{SourceDistrict, FieldPhoneNumber, true},
		{SourcePartner, FieldPayrollNumber, true},
		{Source("unknown"), FieldName, false},
	}
	for _, tt := range tests {
		t.Run(string(tt.source)+"/"+string(tt.field), func(t *testing.T) {
			assert.Equal(t, tt.want, tt.source.Provides(tt.field))
		})
	}
}

func TestParseSource(t *testing.T) {
	s, err := ParseSource("dmo_registration")
	require.NoError(t, err)
	assert.Equal(t, SourceDistrict, s)

	_, err = ParseSource("hospital")
	assert.Error(t, err)
}

func TestRecordValue(t *testing.T) {
	r := Record{
		Source:             SourceProfessional,
		Name:               "Brandon Bickford",
		RegistrationNumber: "1234",
		PayrollNumber:      "ignored",
	}
	assert.Equal(t, "Brandon Bickford", r.Value(FieldName))
	assert.Equal(t, "1234", r.Value(FieldRegistrationNumber))
	assert.Equal(t, "", r.Value(FieldPayrollNumber), "professional records carry no payroll number")
	assert.False(t, r.IsClaimed())

	w := id.WorkerID(9)
	r.ClaimedBy = &w
	assert.True(t, r.IsClaimed())
}

func TestFilterMatches(t *testing.T) {
	r := Record{Source: SourcePayroll, Name: "A", PayrollNumber: "4567"}

	assert.True(t, Filter{}.Matches(r))
	assert.True(t, Filter{Field: FieldPayrollNumber, Value: "4567"}.Matches(r))
	assert.False(t, Filter{Field: FieldPayrollNumber, Value: "1111"}.Matches(r))
	assert.False(t, Filter{Field: FieldPhoneNumber, Value: ""}.Matches(r), "unsupported field never matches")
}
