package contracts

import "time"

// UniverseEntry is one tradable instrument of the day's universe
// ⭐ SSOT: S1 유니버스 종목 (Symbol = "EXCH:TICKER", 당일 유일)
type UniverseEntry struct {
	Symbol          string  `json:"symbol"`
	InstrumentToken int64   `json:"instrument_token"`
	CompanyName     string  `json:"company_name"`
	TickSize        float64 `json:"tick_size"`
	Sector          string  `json:"sector,omitempty"` // 비어있으면 미분류
}

// Ticker returns the part of the symbol after the exchange prefix
func (u UniverseEntry) Ticker() string {
	for i := 0; i < len(u.Symbol); i++ {
		if u.Symbol[i] == ':' {
			return u.Symbol[i+1:]
		}
	}
	return u.Symbol
}

// OHLC is the session open/high/low/previous-close block of a quote
type OHLC struct {
	Open  float64 `json:"open"`
	High  float64 `json:"high"`
	Low   float64 `json:"low"`
	Close float64 `json:"close"` // 전일 종가
}

// DepthLevel is one level of the order book
type DepthLevel struct {
	Price    float64 `json:"price"`
	Quantity int64   `json:"quantity"`
	Orders   int     `json:"orders"`
}

// Depth is the top of book on both sides
type Depth struct {
	Buy  []DepthLevel `json:"buy"`
	Sell []DepthLevel `json:"sell"`
}

// Quote is a live market quote for one symbol
type Quote struct {
	InstrumentToken int64   `json:"instrument_token"`
	LastPrice       float64 `json:"last_price"`
	Volume          int64   `json:"volume"`
	OHLC            *OHLC   `json:"ohlc,omitempty"`
	Depth           *Depth  `json:"depth,omitempty"`
}

// BestBidAsk returns the first depth level on each side, if present
func (q Quote) BestBidAsk() (bid, ask float64, ok bool) {
	if q.Depth == nil || len(q.Depth.Buy) == 0 || len(q.Depth.Sell) == 0 {
		return 0, 0, false
	}
	bid, ask = q.Depth.Buy[0].Price, q.Depth.Sell[0].Price
	if bid <= 0 || ask <= 0 {
		return 0, 0, false
	}
	return bid, ask, true
}

// Granularity is the bar interval requested from market data
type Granularity string

const (
	GranularityDay    Granularity = "day"
	GranularityMinute Granularity = "minute"
)

// Bar is one OHLCV candle
type Bar struct {
	Time   time.Time `json:"time"`
	Open   float64   `json:"open"`
	High   float64   `json:"high"`
	Low    float64   `json:"low"`
	Close  float64   `json:"close"`
	Volume int64     `json:"volume"`
}

// ShortlistRow is one row produced by the fast shortlist filter (S2)
type ShortlistRow struct {
	Symbol      string   `json:"symbol"`
	Name        string   `json:"name"`
	Token       int64    `json:"token"`
	Last        float64  `json:"last"`
	PrevClose   float64  `json:"prev_close"`
	Open        float64  `json:"open"`
	GapPct      float64  `json:"gap_pct"`
	IntradayPct float64  `json:"intraday_pct"`
	SpreadPct   *float64 `json:"spread_pct,omitempty"` // 호가 없으면 nil
}

// TechScore is the technical factor breakdown for one symbol (S3)
type TechScore struct {
	Symbol    string   `json:"symbol"`
	Token     int64    `json:"token"`
	Last      float64  `json:"last"`
	Avg1mVol  float64  `json:"avg_1m_vol"`
	ATRPct    *float64 `json:"atr_pct,omitempty"`
	SpreadPct float64  `json:"spread_pct"`
	VWAP      float64  `json:"vwap"`
	Ret5m     float64  `json:"ret_5m"`
	Ret15m    float64  `json:"ret_15m"`
	Ret60m    float64  `json:"ret_60m"`
	MomScore  float64  `json:"mom_score"`
	VWAPScore float64  `json:"vwap_score"`
	ATRScore  float64  `json:"atr_score"`
	LiqScore  float64  `json:"liq_score"`
	TechTotal float64  `json:"tech_total"`
}

// Instrument is one row of the broker's instrument master
type Instrument struct {
	InstrumentToken int64   `json:"instrument_token"`
	Exchange        string  `json:"exchange"`
	TradingSymbol   string  `json:"tradingsymbol"`
	Name            string  `json:"name"`
	InstrumentType  string  `json:"instrument_type"`
	Segment         string  `json:"segment"`
	TickSize        float64 `json:"tick_size"`
	LotSize         int     `json:"lot_size"`
}
