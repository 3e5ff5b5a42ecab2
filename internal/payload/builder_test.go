package payload

import (
	"math"
	"testing"
	"time"

	"quotefetcher/internal/fetcher"
)

func TestSafeDecimal(t *testing.T) {
	tests := []struct {
		name  string
		input any
		want  *float64
	}{
		{"nil", nil, nil},
		{"float", 42.5, f(42.5)},
		{"zero", 0.0, f(0)},
		{"nan", math.NaN(), nil},
		{"pos inf", math.Inf(1), nil},
		{"neg inf", math.Inf(-1), nil},
		{"nil pointer", (*float64)(nil), nil},
		{"pointer", f(7.25), f(7.25)},
		{"int", 12, f(12)},
		{"int64", int64(13), f(13)},
		{"float32", float32(1.5), f(1.5)},
		{"numeric string", " 3.14 ", f(3.14)},
		{"nan string", "NaN", nil},
		{"inf string", "+Inf", nil},
		{"garbage string", "n/a", nil},
		{"empty string", "", nil},
		{"unsupported type", struct{}{}, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := SafeDecimal(tt.input)
			if (got == nil) != (tt.want == nil) {
				t.Fatalf("SafeDecimal(%v) = %v, want %v", tt.input, deref(got), deref(tt.want))
			}
			if got != nil && *got != *tt.want {
				t.Errorf("SafeDecimal(%v) = %g, want %g", tt.input, *got, *tt.want)
			}
			if got != nil && (math.IsNaN(*got) || math.IsInf(*got, 0)) {
				t.Errorf("SafeDecimal(%v) returned invalid numeric %g", tt.input, *got)
			}
		})
	}
}

func TestBuild_PriceDeltas(t *testing.T) {
	// 253 closes climbing linearly: enough for every horizon.
	closes := make([]float64, 253)
	for i := range closes {
		closes[i] = 100 + float64(i)
	}
	res := &fetcher.Result{Symbol: "TEST", Closes: closes, Price: f(closes[252])}

	rec := Build("TEST", res, time.Now())

	checks := []struct {
		name     string
		got      *float64
		lookback int
	}{
		{"1d", rec.Change1Day, 1},
		{"1w", rec.Change1Week, 5},
		{"1mo", rec.Change1Month, 21},
		{"1y", rec.Change1Year, 252},
	}
	for _, c := range checks {
		if c.got == nil {
			t.Errorf("delta %s absent, want present", c.name)
			continue
		}
		base := closes[252-c.lookback]
		want := (closes[252] - base) / base * 100
		if math.Abs(*c.got-want) > 1e-9 {
			t.Errorf("delta %s = %g, want %g", c.name, *c.got, want)
		}
	}
}

func TestBuild_ShortSeriesSkipsHorizons(t *testing.T) {
	res := &fetcher.Result{Symbol: "TEST", Closes: []float64{100, 101, 102}, Price: f(102)}
	rec := Build("TEST", res, time.Now())

	if rec.Change1Day == nil {
		t.Error("1d delta absent despite 3 closes")
	}
	if rec.Change1Week != nil {
		t.Error("1w delta present despite only 3 closes")
	}
	if rec.Change1Month != nil || rec.Change1Year != nil {
		t.Error("long-horizon deltas present despite short series")
	}
}

func TestBuild_ChangePercent(t *testing.T) {
	res := &fetcher.Result{Symbol: "TEST", Closes: []float64{200, 210}, Price: f(210)}
	rec := Build("TEST", res, time.Now())

	if rec.ChangePercent == nil {
		t.Fatal("change_percent absent")
	}
	if math.Abs(*rec.ChangePercent-5.0) > 1e-9 {
		t.Errorf("change_percent = %g, want 5", *rec.ChangePercent)
	}

	single := &fetcher.Result{Symbol: "TEST", Closes: []float64{200}, Price: f(200)}
	if rec := Build("TEST", single, time.Now()); rec.ChangePercent != nil {
		t.Error("change_percent present with a single close")
	}
}

func TestBuild_VolumeRatio(t *testing.T) {
	tests := []struct {
		name   string
		volume *float64
		avg    *float64
		want   *float64
	}{
		{"both present", f(2_000_000), f(1_000_000), f(2)},
		{"zero denominator", f(2_000_000), f(0), nil},
		{"absent volume", nil, f(1_000_000), nil},
		{"absent average", f(2_000_000), nil, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := &fetcher.Result{
				Symbol: "TEST",
				Price:  f(100),
				Meta: &fetcher.Meta{
					RegularMarketVolume: tt.volume,
					AverageVolume:       tt.avg,
				},
			}
			rec := Build("TEST", res, time.Now())
			if (rec.VolumeRatio == nil) != (tt.want == nil) {
				t.Fatalf("VolumeRatio = %v, want %v", deref(rec.VolumeRatio), deref(tt.want))
			}
			if rec.VolumeRatio != nil && *rec.VolumeRatio != *tt.want {
				t.Errorf("VolumeRatio = %g, want %g", *rec.VolumeRatio, *tt.want)
			}
		})
	}
}

func TestBuild_PESelection(t *testing.T) {
	res := &fetcher.Result{
		Symbol: "TEST",
		Price:  f(100),
		Meta: &fetcher.Meta{
			TrailingPE: f(0), // zero is skipped
			ForwardPE:  f(18.5),
		},
	}
	rec := Build("TEST", res, time.Now())
	if rec.PERatio == nil || *rec.PERatio != 18.5 {
		t.Errorf("PERatio = %v, want 18.5", deref(rec.PERatio))
	}
}

func TestBuild_DividendYieldRescale(t *testing.T) {
	tests := []struct {
		name string
		raw  *float64
		want float64
	}{
		{"fraction rescaled", f(0.0234), 2.34},
		{"percent kept", f(2.34), 2.34},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := &fetcher.Result{
				Symbol: "TEST",
				Price:  f(100),
				Meta:   &fetcher.Meta{DividendYield: tt.raw},
			}
			rec := Build("TEST", res, time.Now())
			if rec.DividendYield == nil {
				t.Fatal("DividendYield absent")
			}
			if math.Abs(*rec.DividendYield-tt.want) > 1e-9 {
				t.Errorf("DividendYield = %g, want %g", *rec.DividendYield, tt.want)
			}
		})
	}
}

func TestBuild_Timestamp(t *testing.T) {
	now := time.Date(2026, 3, 4, 15, 30, 0, 0, time.UTC)
	res := &fetcher.Result{Symbol: "TEST", Price: f(100)}
	rec := Build("TEST", res, now)
	if rec.LastUpdated != "2026-03-04T15:30:00Z" {
		t.Errorf("LastUpdated = %q, want 2026-03-04T15:30:00Z", rec.LastUpdated)
	}
}

func f(v float64) *float64 {
	return &v
}

func deref(v *float64) any {
	if v == nil {
		return nil
	}
	return *v
}
