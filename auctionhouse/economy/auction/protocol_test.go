package auction

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestNextMinimumBid(t *testing.T) {
	tests := []struct {
		name     string
		protocol Protocol
		price    int64
		rule     IncrementRule
		want     int64
	}{
		{name: "percent on round price", protocol: ProtocolStandard, price: 1000, rule: PercentIncrement(10), want: 1100},
		{name: "percent rounds up", protocol: ProtocolStandard, price: 1105, rule: PercentIncrement(10), want: 1216},
		{name: "flat", protocol: ProtocolReserve, price: 1000, rule: FlatIncrement(100), want: 1100},
		{name: "percent plus flat", protocol: ProtocolStandard, price: 1000, rule: IncrementRule{Percent: decimal.NewFromInt(5), Flat: 25}, want: 1075},
		{name: "fractional percent", protocol: ProtocolStandard, price: 999, rule: IncrementRule{Percent: decimal.RequireFromString("2.5")}, want: 1024},
		{name: "step never below one", protocol: ProtocolStandard, price: 3, rule: PercentIncrement(1), want: 4},
		{name: "zero rule still steps", protocol: ProtocolStandard, price: 50, rule: IncrementRule{}, want: 51},
		{name: "dutch is the live price", protocol: ProtocolDutch, price: 1700, rule: PercentIncrement(10), want: 1700},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := NextMinimumBid(tt.protocol, tt.price, tt.rule); got != tt.want {
				t.Errorf("NextMinimumBid() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestParseProtocol(t *testing.T) {
	tests := []struct {
		in      string
		want    Protocol
		wantErr bool
	}{
		{in: "standard", want: ProtocolStandard},
		{in: " Reserve ", want: ProtocolReserve},
		{in: "DUTCH", want: ProtocolDutch},
		{in: "vickrey", wantErr: true},
		{in: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseProtocol(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseProtocol() error = %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ParseProtocol() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestStatusClasses(t *testing.T) {
	for _, s := range []Status{StatusSettled, StatusUnsold, StatusCancelled} {
		if !s.Terminal() || s.Live() {
			t.Errorf("%s should be terminal and not live", s)
		}
	}
	for _, s := range []Status{StatusPending, StatusActive} {
		if s.Terminal() || !s.Live() {
			t.Errorf("%s should be live", s)
		}
	}
	if StatusClosing.Terminal() || StatusClosing.Live() {
		t.Errorf("closing is neither live nor terminal")
	}
}
