package fetcher

// Meta holds the optional metadata fields a provider response may carry.
// Every field is a pointer: nil means the provider did not send it. Raw
// dynamic maps never cross this boundary.
type Meta struct {
	CompanyName                 *string
	Currency                    *string
	RegularMarketPrice          *float64
	RegularMarketDayLow         *float64
	RegularMarketDayHigh        *float64
	RegularMarketVolume         *float64
	AverageVolume               *float64
	MarketCap                   *float64
	TrailingPE                  *float64
	ForwardPE                   *float64
	DividendYield               *float64
	TrailingAnnualDividendYield *float64
	FiftyTwoWeekLow             *float64
	FiftyTwoWeekHigh            *float64
}

// FieldCount returns how many metadata fields are populated. The client
// uses it to decide whether a response is useful or effectively empty.
func (m *Meta) FieldCount() int {
	if m == nil {
		return 0
	}
	n := 0
	for _, set := range []bool{
		m.CompanyName != nil,
		m.Currency != nil,
		m.RegularMarketPrice != nil,
		m.RegularMarketDayLow != nil,
		m.RegularMarketDayHigh != nil,
		m.RegularMarketVolume != nil,
		m.AverageVolume != nil,
		m.MarketCap != nil,
		m.TrailingPE != nil,
		m.ForwardPE != nil,
		m.DividendYield != nil,
		m.TrailingAnnualDividendYield != nil,
		m.FiftyTwoWeekLow != nil,
		m.FiftyTwoWeekHigh != nil,
	} {
		if set {
			n++
		}
	}
	return n
}

// Result is the per-symbol outcome of a fetch: whatever data was gathered
// (possibly partial), the derived price, and the attempt history. A Result
// lives for one pipeline run and is consumed immediately by the payload
// builder.
type Result struct {
	Symbol string

	// Meta is the provider metadata from the last useful response, nil if
	// no attempt produced one.
	Meta *Meta

	// Closes and Timestamps are the historical close series, oldest first.
	Closes     []float64
	Timestamps []int64

	// Price is the derived current price, nil if no fallback produced one.
	Price *float64

	// FastPrice is the lightweight price quoted alongside the historical
	// series. It is the last resort in the price fallback chain.
	FastPrice *float64

	Attempts int
	Errors   []string

	// ProxyURL is the egress point used on the final attempt, empty for a
	// direct connection.
	ProxyURL string
}

// HasData reports whether the fetch gathered anything at all: a non-empty
// close series or useful metadata.
func (r *Result) HasData() bool {
	return len(r.Closes) > 0 || r.Meta.FieldCount() > 0
}

// OK reports the fetch success criterion: some data plus a derived price.
func (r *Result) OK() bool {
	return r.HasData() && r.Price != nil
}

// AddError appends an error string to the attempt history.
func (r *Result) AddError(msg string) {
	r.Errors = append(r.Errors, msg)
}
