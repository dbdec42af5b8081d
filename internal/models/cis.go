package models

import "time"

// CIS (Construction Industry Scheme) deduction rates set by HMRC based on
// subcontractor verification status. The engine accepts any percentage;
// restricting input to this closed set is the caller's job.
const (
	// CISRateGross applies to subcontractors with gross payment status
	CISRateGross = 0.0

	// CISRateRegistered applies to verified, registered subcontractors
	CISRateRegistered = 20.0

	// CISRateUnverified applies to unverified subcontractors
	CISRateUnverified = 30.0
)

// CISBreakdown is the result of a CIS subcontractor payment calculation
type CISBreakdown struct {
	Gross        float64   `json:"gross"`
	Materials    float64   `json:"materials"`
	Labour       float64   `json:"labour"`
	CISDeduction float64   `json:"cis_deduction"`
	Retention    float64   `json:"retention"`
	NetPaid      float64   `json:"net_paid"`
	CalculatedAt time.Time `json:"calculated_at"`
}

// CalculateCIS computes the CIS deduction breakdown for a subcontractor
// payment. CIS is withheld on the labour element only; materials are
// excluded, and labour never goes negative even when materials exceed the
// gross amount. Retention is withheld on the gross. Pure function, no
// validation: rate and retention percentages are taken as given.
func CalculateCIS(gross, materials, cisRatePercent, retentionPercent float64) *CISBreakdown {
	labour := gross - materials
	if labour < 0 {
		labour = 0
	}

	cisDeduction := RoundMoney(labour * cisRatePercent / 100)
	retention := RoundMoney(gross * retentionPercent / 100)
	netPaid := RoundMoney(gross - cisDeduction - retention)

	return &CISBreakdown{
		Gross:        gross,
		Materials:    materials,
		Labour:       labour,
		CISDeduction: cisDeduction,
		Retention:    retention,
		NetPaid:      netPaid,
		CalculatedAt: time.Now().UTC(),
	}
}
