package verification

import (
	hw "healthnet/internal/healthworker/models"
	registry "healthnet/internal/registry/models"
	"healthnet/internal/verification/similarity"
	pstrings "healthnet/pkg/platform/strings"
)

// strategy is one way of corroborating a worker against candidate sources.
// Sources are searched in the listed order.
type strategy struct {
	name    string
	tier    hw.VerificationTier
	sources []registry.Source
	// filter narrows the candidate query; ok is false when the worker lacks
	// the input this strategy needs.
	filter func(w *hw.Worker) (f registry.Filter, ok bool)
	// accept is applied to each candidate returned by the filtered query.
	// nil accepts every candidate.
	accept func(w *hw.Worker, r registry.Record) bool
}

// strategies in priority order. The first match stops the search.
var strategies = []strategy{
	{
		name:    "payroll_number",
		tier:    hw.TierPayrollNumber,
		sources: []registry.Source{registry.SourcePayroll, registry.SourceDistrict, registry.SourcePartner},
		filter: func(w *hw.Worker) (registry.Filter, bool) {
			if w.PayrollNumber == "" {
				return registry.Filter{}, false
			}
			return registry.Filter{Field: registry.FieldPayrollNumber, Value: w.PayrollNumber}, true
		},
	},
	{
		name:    "registration_number",
		tier:    hw.TierRegistrationNumber,
		sources: []registry.Source{registry.SourceProfessional, registry.SourceDistrict, registry.SourcePartner},
		filter: func(w *hw.Worker) (registry.Filter, bool) {
			if w.Surname == "" || w.RegistrationNumber == "" {
				return registry.Filter{}, false
			}
			return registry.Filter{Field: registry.FieldRegistrationNumber, Value: w.RegistrationNumber}, true
		},
		accept: func(w *hw.Worker, r registry.Record) bool {
			return similarity.IsSimilar(w.Surname, r.Name)
		},
	},
	{
		name:    "phone_number",
		tier:    hw.TierPhoneNumber,
		sources: []registry.Source{registry.SourceDistrict, registry.SourcePartner},
		filter: func(w *hw.Worker) (registry.Filter, bool) {
			if w.VodacomPhone == "" {
				return registry.Filter{}, false
			}
			return registry.Filter{Field: registry.FieldPhoneNumber, Value: w.VodacomPhone}, true
		},
	},
	{
		name:    "name",
		tier:    hw.TierName,
		sources: []registry.Source{registry.SourcePayroll, registry.SourceProfessional, registry.SourceDistrict, registry.SourcePartner},
		filter: func(w *hw.Worker) (registry.Filter, bool) {
			// Names with digits or punctuation in any token are not trusted
			// for name matching.
			if w.Name == "" || !pstrings.AllTokensAlpha(w.Name) {
				return registry.Filter{}, false
			}
			return registry.Filter{}, true
		},
		accept: func(w *hw.Worker, r registry.Record) bool {
			return similarity.IsSimilar(w.Name, r.Name)
		},
	},
}
