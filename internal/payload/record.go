package payload

// Record is the canonical, persistence-ready unit produced from one fetch.
// Numeric fields are pointers: nil means the value is absent. A present
// value is always a well-formed decimal; NaN and infinities never survive
// the safe-decimal boundary.
type Record struct {
	Symbol        string   `json:"symbol"`
	CompanyName   string   `json:"company_name,omitempty"`
	Currency      string   `json:"currency,omitempty"`
	CurrentPrice  *float64 `json:"current_price,omitempty"`
	DayLow        *float64 `json:"day_low,omitempty"`
	DayHigh       *float64 `json:"day_high,omitempty"`
	Volume        *float64 `json:"volume,omitempty"`
	AverageVolume *float64 `json:"average_volume,omitempty"`
	VolumeRatio   *float64 `json:"volume_ratio,omitempty"`
	MarketCap     *float64 `json:"market_cap,omitempty"`
	PERatio       *float64 `json:"pe_ratio,omitempty"`
	DividendYield *float64 `json:"dividend_yield,omitempty"`
	WeekLow52     *float64 `json:"fifty_two_week_low,omitempty"`
	WeekHigh52    *float64 `json:"fifty_two_week_high,omitempty"`
	ChangePercent *float64 `json:"change_percent,omitempty"`
	Change1Day    *float64 `json:"change_1d,omitempty"`
	Change1Week   *float64 `json:"change_1w,omitempty"`
	Change1Month  *float64 `json:"change_1mo,omitempty"`
	Change1Year   *float64 `json:"change_1y,omitempty"`
	LastUpdated   string   `json:"last_updated"`
}
