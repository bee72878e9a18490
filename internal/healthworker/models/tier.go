package models

// VerificationTier records how a worker's identity was corroborated.
// Values are persisted; do not renumber.
type VerificationTier int

const (
	TierUnverified         VerificationTier = 0
	TierPayrollNumber      VerificationTier = 1
	TierRegistrationNumber VerificationTier = 2
	TierManual             VerificationTier = 3
	TierPhoneNumber        VerificationTier = 4
	TierName               VerificationTier = 5
)

var tierLabels = map[VerificationTier]string{
	TierUnverified:         "Needs Verification",
	TierPayrollNumber:      "Verified By Payroll Number",
	TierRegistrationNumber: "Verified By Registration Number+Name",
	TierManual:             "Manually Verified",
	TierPhoneNumber:        "Verified By Phone Number",
	TierName:               "Verified By Name",
}

func (t VerificationTier) String() string {
	if label, ok := tierLabels[t]; ok {
		return label
	}
	return "Unknown"
}

func (t VerificationTier) IsValid() bool {
	_, ok := tierLabels[t]
	return ok
}

// IsAutomatic reports whether the engine can assign the tier.
func (t VerificationTier) IsAutomatic() bool {
	switch t {
	case TierPayrollNumber, TierRegistrationNumber, TierPhoneNumber, TierName:
		return true
	default:
		return false
	}
}
