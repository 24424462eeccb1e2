package payment

import (
	"testing"

	"github.com/Ruruu18/Smart-Parking-sub000/internal/config"
	"github.com/shopspring/decimal"
)

func TestToMinorUnits(t *testing.T) {
	tests := []struct {
		amount string
		want   int64
	}{
		{"150", 15000},
		{"150.5", 15050},
		{"0.005", 1},
		{"0.004", 0},
		{"19.999", 2000},
	}
	for _, tt := range tests {
		t.Run(tt.amount, func(t *testing.T) {
			if got := ToMinorUnits(decimal.RequireFromString(tt.amount)); got != tt.want {
				t.Errorf("ToMinorUnits(%s) = %d, want %d", tt.amount, got, tt.want)
			}
		})
	}
	if got := FromMinorUnits(15050); !got.Equal(decimal.RequireFromString("150.5")) {
		t.Errorf("FromMinorUnits(15050) = %s", got)
	}
}

func TestNewProvider(t *testing.T) {
	for _, name := range []string{"paymongo", "stripe"} {
		p, err := NewProvider(&config.Config{PaymentProvider: name, PaymentSecretKey: "sk_test"})
		if err != nil {
			t.Fatalf("NewProvider(%s) error = %v", name, err)
		}
		if p.Name() != name {
			t.Errorf("Name() = %s, want %s", p.Name(), name)
		}
	}
	if _, err := NewProvider(&config.Config{PaymentProvider: "paypal"}); err == nil {
		t.Error("unknown provider should fail")
	}
}
