package yahoo

// quoteResponse represents the quote endpoint payload. Only the fields the
// pipeline consumes are modeled; everything is optional because the
// upstream omits fields freely.
type quoteResponse struct {
	QuoteResponse struct {
		Result []quoteResult `json:"result"`
		Error  *apiError     `json:"error"`
	} `json:"quoteResponse"`
}

type quoteResult struct {
	Symbol                      string   `json:"symbol"`
	LongName                    *string  `json:"longName"`
	ShortName                   *string  `json:"shortName"`
	Currency                    *string  `json:"currency"`
	RegularMarketPrice          *float64 `json:"regularMarketPrice"`
	RegularMarketDayLow         *float64 `json:"regularMarketDayLow"`
	RegularMarketDayHigh        *float64 `json:"regularMarketDayHigh"`
	RegularMarketVolume         *float64 `json:"regularMarketVolume"`
	AverageDailyVolume3Month    *float64 `json:"averageDailyVolume3Month"`
	AverageDailyVolume10Day     *float64 `json:"averageDailyVolume10Day"`
	MarketCap                   *float64 `json:"marketCap"`
	TrailingPE                  *float64 `json:"trailingPE"`
	ForwardPE                   *float64 `json:"forwardPE"`
	DividendYield               *float64 `json:"dividendYield"`
	TrailingAnnualDividendYield *float64 `json:"trailingAnnualDividendYield"`
	FiftyTwoWeekLow             *float64 `json:"fiftyTwoWeekLow"`
	FiftyTwoWeekHigh            *float64 `json:"fiftyTwoWeekHigh"`
}

// chartResponse represents the chart endpoint payload: a historical close
// series plus a lightweight meta block.
type chartResponse struct {
	Chart struct {
		Result []struct {
			Meta struct {
				Symbol             string   `json:"symbol"`
				Currency           string   `json:"currency"`
				RegularMarketPrice *float64 `json:"regularMarketPrice"`
				ChartPreviousClose *float64 `json:"chartPreviousClose"`
			} `json:"meta"`
			Timestamp  []int64 `json:"timestamp"`
			Indicators struct {
				Quote []struct {
					Close  []*float64 `json:"close"`
					Volume []*float64 `json:"volume"`
				} `json:"quote"`
			} `json:"indicators"`
		} `json:"result"`
		Error *apiError `json:"error"`
	} `json:"chart"`
}

type apiError struct {
	Code        string `json:"code"`
	Description string `json:"description"`
}
