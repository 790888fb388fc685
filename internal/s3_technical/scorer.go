package s3_technical

import (
	"context"
	"fmt"
	"time"

	"github.com/wonny/aegis-picker/internal/contracts"
	"github.com/wonny/aegis-picker/internal/pool"
	"github.com/wonny/aegis-picker/internal/s1_universe"
	"github.com/wonny/aegis-picker/pkg/config"
	"github.com/wonny/aegis-picker/pkg/logger"
	"github.com/wonny/aegis-picker/pkg/market"
	"github.com/wonny/aegis-picker/pkg/metrics"
	"github.com/wonny/aegis-picker/pkg/redis"
)

const (
	// DefaultWorkers is the per-symbol fan-out when TechPoolSize is unset
	DefaultWorkers = 5
	// DefaultTimeout bounds the fetches of one symbol
	DefaultTimeout = 10 * time.Second
)

// Scorer computes technical factor scores for shortlisted symbols (S3)
// ⭐ SSOT: 기술 팩터 점수는 여기서만
type Scorer struct {
	calendar *market.Calendar
	cache    *redis.Cache // nil = 캐시 없음
	policy   config.TechnicalPolicy
	workers  int
	timeout  time.Duration
	metrics  *metrics.Registry
	logger   *logger.Logger
	now      func() time.Time
}

// NewScorer creates a technical scorer; cache may be nil
func NewScorer(calendar *market.Calendar, cache *redis.Cache, policy *config.Policy, cfg config.PickerConfig, m *metrics.Registry, log *logger.Logger) *Scorer {
	workers := cfg.TechPoolSize
	if workers <= 0 {
		workers = DefaultWorkers
	}
	timeout := cfg.TechTimeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Scorer{
		calendar: calendar,
		cache:    cache,
		policy:   policy.Technical,
		workers:  workers,
		timeout:  timeout,
		metrics:  m,
		logger:   log.WithModule("s3_technical"),
		now:      time.Now,
	}
}

// WithClock overrides the time source (tests)
func (s *Scorer) WithClock(now func() time.Time) *Scorer {
	s.now = now
	return s
}

// ScoreAll scores rows under the bounded worker pool.
// A symbol whose fetch fails, times out or lacks history is dropped; output keeps input order.
func (s *Scorer) ScoreAll(ctx context.Context, day *s1_universe.DayContext, rows []contracts.ShortlistRow) ([]contracts.TechScore, error) {
	start := time.Now()
	if len(rows) == 0 {
		return nil, nil
	}

	symbols := make([]string, len(rows))
	for i, r := range rows {
		symbols[i] = r.Symbol
	}

	// 스프레드/현재가용 시세 1회 갱신 (실패 시 숏리스트 값 사용)
	quotes, err := day.Market.QuoteBatch(ctx, symbols)
	if err != nil {
		s.logger.WithError(err).Warn("Quote refresh failed, using shortlist snapshot")
		quotes = nil
	}

	scoreOne := pool.WithTimeout(s.timeout, func(ctx context.Context, row contracts.ShortlistRow) (contracts.TechScore, error) {
		return s.ScoreSymbol(ctx, day, row, quotes[row.Symbol])
	})
	results := pool.Map(ctx, rows, s.workers, scoreOne)

	scores := make([]contracts.TechScore, 0, len(rows))
	dropped := 0
	for i, r := range results {
		if r.Err != nil {
			dropped++
			s.logger.WithError(r.Err).WithField("symbol", rows[i].Symbol).Warn("Technical score dropped")
			continue
		}
		scores = append(scores, r.Value)
	}

	if err := ctx.Err(); err != nil && len(scores) == 0 {
		s.metrics.ObserveStage(contracts.StageTechnical.String(), start, err)
		return nil, fmt.Errorf("technical scoring cancelled: %w", err)
	}

	s.metrics.ObserveStage(contracts.StageTechnical.String(), start, nil)
	s.metrics.CountItems(contracts.StageTechnical.String(), "scored", len(scores))
	s.metrics.CountItems(contracts.StageTechnical.String(), "dropped", dropped)
	s.logger.WithFields(map[string]interface{}{
		"input":   len(rows),
		"scored":  len(scores),
		"dropped": dropped,
		"workers": s.workers,
	}).Info("Technical scoring completed")

	return scores, nil
}

// ScoreSymbol fetches bars for one shortlisted symbol and scores it.
// q is the refreshed quote (zero value when unavailable).
func (s *Scorer) ScoreSymbol(ctx context.Context, day *s1_universe.DayContext, row contracts.ShortlistRow, q contracts.Quote) (contracts.TechScore, error) {
	now := s.now()

	daily, err := s.dailyBars(ctx, day, row.Token, now)
	if err != nil {
		return contracts.TechScore{}, err
	}
	minDaily := s.policy.MinDailyBars
	if minDaily <= 0 {
		minDaily = 15
	}
	if len(daily) < minDaily {
		return contracts.TechScore{}, fmt.Errorf("%s: %d bars: %w", row.Symbol, len(daily), contracts.ErrInsufficientHistory)
	}

	var minute []contracts.Bar
	open := s.calendar.SessionOpen(now)
	if now.After(open) {
		minute, err = day.Market.Historical(ctx, row.Token, open, now, contracts.GranularityMinute)
		if err != nil {
			return contracts.TechScore{}, fmt.Errorf("minute bars %s: %w", row.Symbol, err)
		}
	}
	intraday := ComputeIntraday(minute)

	lastClose := daily[len(daily)-1].Close
	last := firstPositive(q.LastPrice, row.Last, intraday.LastClose, lastClose)

	var atrPct *float64
	period := s.policy.ATRPeriod
	if period <= 0 {
		period = 14
	}
	if atr, ok := ATR(daily, period); ok && lastClose > 0 {
		v := atr / lastClose
		atrPct = &v
	}

	// 호가 없으면 스프레드 0 (숏리스트 값이 있으면 사용)
	spread := 0.0
	if bid, ask, ok := q.BestBidAsk(); ok {
		spread = (ask - bid) / ((ask + bid) / 2)
	} else if row.SpreadPct != nil {
		spread = *row.SpreadPct
	}

	score := Score(Inputs{
		Symbol:    row.Symbol,
		Token:     row.Token,
		Last:      last,
		ATRPct:    atrPct,
		SpreadPct: spread,
		Intraday:  intraday,
	}, s.policy)

	s.logger.WithFields(map[string]interface{}{
		"symbol":     row.Symbol,
		"daily_bars": len(daily),
		"minute":     intraday.Bars,
		"mom":        score.MomScore,
		"liq":        score.LiqScore,
		"total":      score.TechTotal,
	}).Debug("Calculated technical score")

	return score, nil
}

// dailyBars serves daily history from the day-scoped cache when possible
func (s *Scorer) dailyBars(ctx context.Context, day *s1_universe.DayContext, token int64, now time.Time) ([]contracts.Bar, error) {
	key := redis.DailyBarsKey(token, day.DateKey)

	if s.cache != nil {
		var cached []contracts.Bar
		hit, err := s.cache.Get(ctx, key, &cached)
		if err != nil {
			s.logger.WithError(err).Debug("Daily bar cache read failed")
		}
		if hit {
			return cached, nil
		}
	}

	lookback := s.policy.DailyLookbackDays
	if lookback <= 0 {
		lookback = 90
	}
	// 당일 일봉 제외: 전일까지
	to := s.calendar.SessionOpen(now).Add(-time.Minute)
	from := to.AddDate(0, 0, -lookback)

	bars, err := day.Market.Historical(ctx, token, from, to, contracts.GranularityDay)
	if err != nil {
		return nil, fmt.Errorf("daily bars %d: %w", token, err)
	}

	if s.cache != nil && len(bars) > 0 {
		if err := s.cache.Set(ctx, key, bars, redis.TTLDay); err != nil {
			s.logger.WithError(err).Debug("Daily bar cache write failed")
		}
	}
	return bars, nil
}

func firstPositive(vals ...float64) float64 {
	for _, v := range vals {
		if v > 0 {
			return v
		}
	}
	return 0
}
