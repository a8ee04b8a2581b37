package domain

import "testing"

func TestResolveAutoGasPriceGwei_NamedTiers(t *testing.T) {
	prices := GasPrices{Slow: 10, Average: 20, Fast: 40}

	tests := []struct {
		setting string
		want    float64
	}{
		{"Slow", 10},
		{"Average", 20},
		{"Fast", 40},
	}

	for _, tt := range tests {
		t.Run(tt.setting, func(t *testing.T) {
			got := ResolveAutoGasPriceGwei(prices, tt.setting)
			if got != tt.want {
				t.Fatalf("expected %v, got %v", tt.want, got)
			}
		})
	}
}

func TestResolveAutoGasPriceGwei_LiteralOverride(t *testing.T) {
	prices := GasPrices{Slow: 10, Average: 20, Fast: 40}

	got := ResolveAutoGasPriceGwei(prices, "123.5")
	if got != 123.5 {
		t.Fatalf("expected 123.5, got %v", got)
	}
}

func TestResolveAutoGasPriceGwei_UnparseableFallsBackToAverage(t *testing.T) {
	prices := GasPrices{Slow: 10, Average: 20, Fast: 40}

	got := ResolveAutoGasPriceGwei(prices, "not-a-number")
	if got != 20 {
		t.Fatalf("expected fallback to average 20, got %v", got)
	}
}

func TestResolveAutoGasPriceGwei_NonFiniteLiteralFallsBackToAverage(t *testing.T) {
	prices := GasPrices{Slow: 10, Average: 20, Fast: 40}

	for _, setting := range []string{"NaN", "Inf", "+Inf", "-Inf"} {
		got := ResolveAutoGasPriceGwei(prices, setting)
		if got != 20 {
			t.Fatalf("setting %q: expected fallback to average 20, got %v", setting, got)
		}
	}
}

func TestClamp(t *testing.T) {
	tests := []struct {
		name string
		v    float64
		min  float64
		max  float64
		want float64
	}{
		{"below min", -5, 0, 10, 0},
		{"above max", 15, 0, 10, 10},
		{"within range", 5, 0, 10, 5},
		{"equal to min", 0, 0, 10, 0},
		{"equal to max", 10, 0, 10, 10},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Clamp(tt.v, tt.min, tt.max)
			if got != tt.want {
				t.Fatalf("expected %v, got %v", tt.want, got)
			}
		})
	}
}
