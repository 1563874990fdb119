package common

import (
	"fmt"
	"os"
	"path/filepath"

	"pvtela-wallet-go/internal/models"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v2"
)

// Policy file defaults, applied per field when the file omits a value or does
// not exist at all.
const (
	defaultCurrency = "ZAR"
	defaultMinTopUp = "50.00"
	defaultMaxTopUp = "25000.00"
	defaultFeeRate  = "0.15"
	defaultBaseUrl  = "http://localhost:5000"
)

type policyFile struct {
	Currency      string `yaml:"currency"`
	MinTopUp      string `yaml:"min_top_up"`
	MaxTopUp      string `yaml:"max_top_up"`
	FeeRate       string `yaml:"fee_rate"`
	ReturnUrlBase string `yaml:"return_url_base"`
}

// LoadWalletPolicy reads the business policy from a yaml file. Amounts are
// decimal strings in the file; a missing file yields the defaults.
func LoadWalletPolicy(policyPath string) (models.WalletPolicy, error) {
	var path string
	if filepath.IsAbs(policyPath) {
		path = policyPath
	} else {
		wd, err := os.Getwd()
		if err != nil {
			return models.WalletPolicy{}, fmt.Errorf("failed to get working directory: %w", err)
		}
		path = filepath.Join(wd, policyPath)
	}

	var raw policyFile
	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			return models.WalletPolicy{}, fmt.Errorf("unable to read %s: %w", policyPath, err)
		}
	} else if err := yaml.Unmarshal(data, &raw); err != nil {
		return models.WalletPolicy{}, fmt.Errorf("unable to parse %s: %w", policyPath, err)
	}

	applyDefault(&raw.Currency, defaultCurrency)
	applyDefault(&raw.MinTopUp, defaultMinTopUp)
	applyDefault(&raw.MaxTopUp, defaultMaxTopUp)
	applyDefault(&raw.FeeRate, defaultFeeRate)
	applyDefault(&raw.ReturnUrlBase, defaultBaseUrl)

	minTopUp, err := decimal.NewFromString(raw.MinTopUp)
	if err != nil {
		return models.WalletPolicy{}, fmt.Errorf("invalid min_top_up %q: %w", raw.MinTopUp, err)
	}
	maxTopUp, err := decimal.NewFromString(raw.MaxTopUp)
	if err != nil {
		return models.WalletPolicy{}, fmt.Errorf("invalid max_top_up %q: %w", raw.MaxTopUp, err)
	}
	feeRate, err := decimal.NewFromString(raw.FeeRate)
	if err != nil {
		return models.WalletPolicy{}, fmt.Errorf("invalid fee_rate %q: %w", raw.FeeRate, err)
	}

	if minTopUp.LessThanOrEqual(decimal.Zero) || maxTopUp.LessThan(minTopUp) {
		return models.WalletPolicy{}, fmt.Errorf(
			"top-up bounds must satisfy 0 < min <= max, got %s..%s", raw.MinTopUp, raw.MaxTopUp)
	}
	if feeRate.IsNegative() || feeRate.GreaterThanOrEqual(decimal.NewFromInt(1)) {
		return models.WalletPolicy{}, fmt.Errorf("fee_rate must be in [0, 1), got %s", raw.FeeRate)
	}

	return models.WalletPolicy{
		Currency:      raw.Currency,
		MinTopUp:      minTopUp,
		MaxTopUp:      maxTopUp,
		FeeRate:       feeRate,
		ReturnUrlBase: raw.ReturnUrlBase,
	}, nil
}

func applyDefault(field *string, defaultValue string) {
	if *field == "" {
		*field = defaultValue
	}
}
