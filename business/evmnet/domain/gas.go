package domain

// GasPrices is the {slow, average, fast} tier triple the gas oracle
// client returns, always in gwei and always sanitized to a finite,
// positive value before it reaches a caller.
type GasPrices struct {
	Slow    float64
	Average float64
	Fast    float64
}

// AutoGasSetting selects a tier out of GasPrices, or — for any other
// string — is interpreted as a literal gwei override.
type AutoGasSetting string

const (
	GasSettingSlow    AutoGasSetting = "Slow"
	GasSettingAverage AutoGasSetting = "Average"
	GasSettingFast    AutoGasSetting = "Fast"
)

// ResolveAutoGasPriceGwei implements getAutoGasPriceGwei: setting is
// either one of the three named tiers, a parseable floating-point gwei
// value, or (on failure to parse) falls back to the average tier.
func ResolveAutoGasPriceGwei(prices GasPrices, setting string) float64 {
	switch AutoGasSetting(setting) {
	case GasSettingSlow:
		return prices.Slow
	case GasSettingAverage:
		return prices.Average
	case GasSettingFast:
		return prices.Fast
	}

	if v, ok := parseFiniteFloat(setting); ok {
		return v
	}

	return prices.Average
}
