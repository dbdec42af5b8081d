package config

import (
	"fmt"
	"os"
	"strconv"

	"construction-invoice-api/internal/models"
)

// TaxSystemConfig holds configuration for the UK construction tax system
type TaxSystemConfig struct {
	DefaultVATMode          models.VATMode `json:"default_vat_mode" env:"TAX_DEFAULT_VAT_MODE" default:"STANDARD_20"`
	DefaultRetentionPercent float64        `json:"default_retention_percent" env:"TAX_DEFAULT_RETENTION_PERCENT" default:"0"`
	DefaultCISRatePercent   float64        `json:"default_cis_rate_percent" env:"TAX_DEFAULT_CIS_RATE_PERCENT" default:"20"`
	EnforceCISRateSet       bool           `json:"enforce_cis_rate_set" env:"TAX_ENFORCE_CIS_RATE_SET" default:"true"`
}

// LoadTaxSystemConfig loads tax system configuration from environment variables
func LoadTaxSystemConfig() (*TaxSystemConfig, error) {
	config := &TaxSystemConfig{
		DefaultVATMode:    models.VATMode(GetEnv("TAX_DEFAULT_VAT_MODE", string(models.VATModeStandard20))),
		EnforceCISRateSet: GetEnvAsBool("TAX_ENFORCE_CIS_RATE_SET", true),
	}

	if retention := os.Getenv("TAX_DEFAULT_RETENTION_PERCENT"); retention != "" {
		val, err := strconv.ParseFloat(retention, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid TAX_DEFAULT_RETENTION_PERCENT: %w", err)
		}
		if val < 0 || val > 100 {
			return nil, fmt.Errorf("TAX_DEFAULT_RETENTION_PERCENT must be between 0 and 100, got %f", val)
		}
		config.DefaultRetentionPercent = val
	}

	config.DefaultCISRatePercent = models.CISRateRegistered
	if cisRate := os.Getenv("TAX_DEFAULT_CIS_RATE_PERCENT"); cisRate != "" {
		val, err := strconv.ParseFloat(cisRate, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid TAX_DEFAULT_CIS_RATE_PERCENT: %w", err)
		}
		config.DefaultCISRatePercent = val
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// Validate validates the tax system configuration
func (c *TaxSystemConfig) Validate() error {
	if !c.DefaultVATMode.IsValid() {
		return fmt.Errorf("unsupported VAT mode: %s", c.DefaultVATMode)
	}

	if c.DefaultRetentionPercent < 0 || c.DefaultRetentionPercent > 100 {
		return fmt.Errorf("default retention percent must be between 0 and 100, got %f", c.DefaultRetentionPercent)
	}

	if c.EnforceCISRateSet && !IsKnownCISRate(c.DefaultCISRatePercent) {
		return fmt.Errorf("default CIS rate %.1f is not one of the HMRC rates (0, 20, 30)", c.DefaultCISRatePercent)
	}

	return nil
}

// IsKnownCISRate reports whether the rate is one of the HMRC deduction
// rates. The calculation engine accepts any rate; enforcement of the
// closed set happens here and at the handler boundary.
func IsKnownCISRate(rate float64) bool {
	switch rate {
	case models.CISRateGross, models.CISRateRegistered, models.CISRateUnverified:
		return true
	}
	return false
}

// VATModeInfo describes one supported VAT mode for API consumers
type VATModeInfo struct {
	Mode        models.VATMode `json:"mode"`
	Rate        float64        `json:"rate"`
	Description string         `json:"description"`
}

// SupportedVATModes returns the closed set of VAT modes with their rates
func SupportedVATModes() []VATModeInfo {
	return []VATModeInfo{
		{
			Mode:        models.VATModeStandard20,
			Rate:        0.20,
			Description: "Standard rate VAT charged on the invoice",
		},
		{
			Mode:        models.VATModeReverseCharge20,
			Rate:        0.0,
			Description: "Domestic reverse charge: VAT liability shifts to the buyer, nothing charged here",
		},
		{
			Mode:        models.VATModeNoVAT,
			Rate:        0.0,
			Description: "VAT-exempt supply or seller not VAT registered",
		},
	}
}

// CISRateInfo describes one CIS deduction rate for API consumers
type CISRateInfo struct {
	RatePercent float64 `json:"rate_percent"`
	Status      string  `json:"status"`
	Description string  `json:"description"`
}

// SupportedCISRates returns the HMRC deduction rates by verification status
func SupportedCISRates() []CISRateInfo {
	return []CISRateInfo{
		{
			RatePercent: models.CISRateGross,
			Status:      "gross",
			Description: "Gross payment status, no deduction withheld",
		},
		{
			RatePercent: models.CISRateRegistered,
			Status:      "registered",
			Description: "Verified and registered subcontractor",
		},
		{
			RatePercent: models.CISRateUnverified,
			Status:      "unverified",
			Description: "Unverified subcontractor, higher rate withheld",
		},
	}
}
