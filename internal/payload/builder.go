package payload

import (
	"math"
	"strconv"
	"strings"
	"time"

	"quotefetcher/internal/fetcher"
)

// deltaLookbacks maps each price-change horizon to its lookback in trading
// observations relative to the latest close.
var deltaLookbacks = []struct {
	name     string
	lookback int
}{
	{"1d", 1},
	{"1w", 5},
	{"1mo", 21},
	{"1y", 252},
}

// SafeDecimal converts an arbitrary numeric-like value to a valid decimal
// or nil. NaN, infinities, unparsable strings and nil all map to nil; it
// never panics. This is the only path raw provider numbers take into a
// Record.
func SafeDecimal(v any) *float64 {
	var f float64
	switch x := v.(type) {
	case nil:
		return nil
	case float64:
		f = x
	case *float64:
		if x == nil {
			return nil
		}
		f = *x
	case float32:
		f = float64(x)
	case int:
		f = float64(x)
	case int64:
		f = float64(x)
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(x), 64)
		if err != nil {
			return nil
		}
		f = parsed
	default:
		return nil
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return nil
	}
	return &f
}

// Build transforms a fetch result into a normalized record. It is a pure
// function of its inputs; now stamps the record's last_updated field.
func Build(symbol string, res *fetcher.Result, now time.Time) Record {
	rec := Record{
		Symbol:      symbol,
		LastUpdated: now.UTC().Format(time.RFC3339),
	}

	rec.CurrentPrice = SafeDecimal(res.Price)

	if meta := res.Meta; meta != nil {
		if meta.CompanyName != nil {
			rec.CompanyName = *meta.CompanyName
		}
		if meta.Currency != nil {
			rec.Currency = *meta.Currency
		}
		rec.DayLow = SafeDecimal(meta.RegularMarketDayLow)
		rec.DayHigh = SafeDecimal(meta.RegularMarketDayHigh)
		rec.Volume = SafeDecimal(meta.RegularMarketVolume)
		rec.AverageVolume = SafeDecimal(meta.AverageVolume)
		rec.MarketCap = SafeDecimal(meta.MarketCap)
		rec.WeekLow52 = SafeDecimal(meta.FiftyTwoWeekLow)
		rec.WeekHigh52 = SafeDecimal(meta.FiftyTwoWeekHigh)
		rec.PERatio = selectFirst(meta.TrailingPE, meta.ForwardPE)
		rec.DividendYield = dividendYield(meta.DividendYield, meta.TrailingAnnualDividendYield)
	}

	rec.VolumeRatio = ratio(rec.Volume, rec.AverageVolume)
	rec.ChangePercent = changePercent(res.Closes)

	deltas := priceDeltas(res.Closes)
	rec.Change1Day = deltas["1d"]
	rec.Change1Week = deltas["1w"]
	rec.Change1Month = deltas["1mo"]
	rec.Change1Year = deltas["1y"]

	return rec
}

// selectFirst returns the first present, non-zero value from the
// prioritized candidates.
func selectFirst(candidates ...*float64) *float64 {
	for _, c := range candidates {
		v := SafeDecimal(c)
		if v != nil && *v != 0 {
			return v
		}
	}
	return nil
}

// dividendYield selects a yield from the prioritized candidates, rescaling
// fractional values (0,1) to percent.
func dividendYield(candidates ...*float64) *float64 {
	v := selectFirst(candidates...)
	if v == nil {
		return nil
	}
	if *v > 0 && *v < 1 {
		scaled := *v * 100
		return &scaled
	}
	return v
}

// ratio computes num/den, absent if either operand is absent or the
// denominator is zero.
func ratio(num, den *float64) *float64 {
	if num == nil || den == nil || *den == 0 {
		return nil
	}
	return SafeDecimal(*num / *den)
}

// changePercent computes the percent change between the last two closes.
func changePercent(closes []float64) *float64 {
	if len(closes) < 2 {
		return nil
	}
	prev := closes[len(closes)-2]
	last := closes[len(closes)-1]
	if prev == 0 {
		return nil
	}
	return SafeDecimal((last - prev) / prev * 100)
}

// priceDeltas computes the percent change over each horizon's lookback.
// A horizon is skipped when the series is shorter than its lookback.
func priceDeltas(closes []float64) map[string]*float64 {
	out := make(map[string]*float64, len(deltaLookbacks))
	n := len(closes)
	for _, h := range deltaLookbacks {
		if n < h.lookback+1 {
			continue
		}
		base := closes[n-1-h.lookback]
		if base == 0 {
			continue
		}
		out[h.name] = SafeDecimal((closes[n-1] - base) / base * 100)
	}
	return out
}
