package models

import "testing"

func TestCalculateCIS(t *testing.T) {
	tests := []struct {
		name             string
		gross            float64
		materials        float64
		cisRatePercent   float64
		retentionPercent float64
		expected         CISBreakdown
	}{
		{
			name:           "registered subcontractor",
			gross:          1000,
			materials:      200,
			cisRatePercent: CISRateRegistered,
			expected: CISBreakdown{
				Labour:       800,
				CISDeduction: 160,
				Retention:    0,
				NetPaid:      840,
			},
		},
		{
			name:           "unverified subcontractor",
			gross:          1000,
			materials:      200,
			cisRatePercent: CISRateUnverified,
			expected: CISBreakdown{
				Labour:       800,
				CISDeduction: 240,
				Retention:    0,
				NetPaid:      760,
			},
		},
		{
			name:           "gross payment status deducts nothing",
			gross:          1000,
			materials:      200,
			cisRatePercent: CISRateGross,
			expected: CISBreakdown{
				Labour:       800,
				CISDeduction: 0,
				Retention:    0,
				NetPaid:      1000,
			},
		},
		{
			name:           "materials exceeding gross floor labour at zero",
			gross:          1000,
			materials:      1500,
			cisRatePercent: CISRateRegistered,
			expected: CISBreakdown{
				Labour:       0,
				CISDeduction: 0,
				Retention:    0,
				NetPaid:      1000,
			},
		},
		{
			name:             "retention withheld on gross",
			gross:            2000,
			materials:        500,
			cisRatePercent:   CISRateRegistered,
			retentionPercent: 5,
			expected: CISBreakdown{
				Labour:       1500,
				CISDeduction: 300,
				Retention:    100,
				NetPaid:      1600,
			},
		},
		{
			name:           "fractional amounts round per step",
			gross:          1234.56,
			materials:      234.56,
			cisRatePercent: CISRateRegistered,
			expected: CISBreakdown{
				Labour:       1000,
				CISDeduction: 200,
				Retention:    0,
				NetPaid:      1034.56,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := CalculateCIS(tt.gross, tt.materials, tt.cisRatePercent, tt.retentionPercent)

			// Labour is deliberately unrounded, so compare with a
			// tolerance well below a cent.
			if abs(got.Labour-tt.expected.Labour) > 1e-9 {
				t.Errorf("Labour = %v, want %v", got.Labour, tt.expected.Labour)
			}
			if got.CISDeduction != tt.expected.CISDeduction {
				t.Errorf("CISDeduction = %v, want %v", got.CISDeduction, tt.expected.CISDeduction)
			}
			if got.Retention != tt.expected.Retention {
				t.Errorf("Retention = %v, want %v", got.Retention, tt.expected.Retention)
			}
			if got.NetPaid != tt.expected.NetPaid {
				t.Errorf("NetPaid = %v, want %v", got.NetPaid, tt.expected.NetPaid)
			}
		})
	}
}

func TestCalculateCIS_AcceptsArbitraryRate(t *testing.T) {
	// The engine does not enforce the 0/20/30 closed set; callers do.
	got := CalculateCIS(1000, 0, 12.5, 0)

	if got.CISDeduction != 125 {
		t.Errorf("CISDeduction = %v, want 125", got.CISDeduction)
	}
	if got.NetPaid != 875 {
		t.Errorf("NetPaid = %v, want 875", got.NetPaid)
	}
}
