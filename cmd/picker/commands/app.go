package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/wonny/aegis-picker/internal/brain"
	"github.com/wonny/aegis-picker/internal/contracts"
	"github.com/wonny/aegis-picker/internal/external/fake"
	"github.com/wonny/aegis-picker/internal/external/kite"
	"github.com/wonny/aegis-picker/internal/external/llm"
	"github.com/wonny/aegis-picker/internal/external/rss"
	"github.com/wonny/aegis-picker/internal/publish"
	"github.com/wonny/aegis-picker/internal/s1_universe"
	"github.com/wonny/aegis-picker/internal/s2_shortlist"
	"github.com/wonny/aegis-picker/internal/s3_technical"
	"github.com/wonny/aegis-picker/internal/s4_news"
	"github.com/wonny/aegis-picker/internal/selection"
	"github.com/wonny/aegis-picker/pkg/config"
	"github.com/wonny/aegis-picker/pkg/database"
	"github.com/wonny/aegis-picker/pkg/httputil"
	"github.com/wonny/aegis-picker/pkg/logger"
	"github.com/wonny/aegis-picker/pkg/market"
	"github.com/wonny/aegis-picker/pkg/metrics"
	"github.com/wonny/aegis-picker/pkg/redis"
)

// dryRunSeed keeps generated dry-run markets reproducible
const dryRunSeed = 20240101

// app holds every wired component for one CLI process
// ⭐ SSOT: 의존성 조립은 여기서만
type app struct {
	cfg      *config.Config
	log      *logger.Logger
	policy   *config.Policy
	calendar *market.Calendar
	metrics  *metrics.Registry

	db    *database.DB  // dry-run이면 nil
	redis *redis.Client // 비활성화 시 no-op

	universe     *s1_universe.Manager
	shortlister  *s2_shortlist.Shortlister
	newsScorer   *s4_news.Scorer
	ingestor     *s4_news.Ingestor
	orchestrator *brain.Orchestrator
	runs         contracts.RunStore
	flow         *publish.Flow
}

// loadConfig reads the environment and applies global flag overrides
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if env != "" {
		cfg.Env = env
	}
	if verbose {
		cfg.LogLevel = "debug"
	}
	if policyFile != "" {
		cfg.PolicyPath = policyFile
	}
	return cfg, nil
}

// newApp wires the full picker; callers must Close it
func newApp(ctx context.Context) (*app, error) {
	// 1. Load config
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}

	// 2. Initialize logger
	log := logger.New(cfg)

	// 3. Load policy
	policy, err := config.LoadPolicyOrDefault(cfg.PolicyPath)
	if err != nil {
		return nil, fmt.Errorf("load policy: %w", err)
	}

	a := &app{
		cfg:      cfg,
		log:      log,
		policy:   policy,
		calendar: market.NewCalendar(cfg.Market),
	}
	if cfg.MetricsEnabled {
		a.metrics = metrics.New()
	}

	log.WithFields(map[string]interface{}{
		"env":     cfg.Env,
		"dry_run": dryRun,
		"policy":  cfg.PolicyPath,
		"llm":     cfg.LLM.Enabled(),
	}).Info("Initializing picker")

	if err := a.wireStores(ctx); err != nil {
		a.Close()
		return nil, err
	}
	return a, nil
}

// wireStores connects the stores (or in-memory stand-ins) and builds every stage
func (a *app) wireStores(ctx context.Context) error {
	cfg, log := a.cfg, a.log

	var (
		md          contracts.MarketData
		source      contracts.UniverseSource
		snapshots   s1_universe.SnapshotStore
		shortlists  s2_shortlist.Store
		events      contracts.NewsEventStore
		runs        contracts.RunStore
		lists       contracts.PublishStore
		merge       contracts.MergeSetStore
		cache       *redis.Cache
		redisClient *redis.Client
	)

	if dryRun {
		// Dry run: 파일 유니버스 + 생성된 시세, 메모리 저장소
		if cfg.Picker.UniverseFile == "" {
			return fmt.Errorf("dry run needs UNIVERSE_FILE")
		}
		file := s1_universe.NewFileSource(cfg.Picker.UniverseFile)
		universe, err := file.Universe(ctx, "")
		if err != nil {
			return fmt.Errorf("load universe file: %w", err)
		}
		now := time.Now()
		md = fake.Generate(universe, a.calendar.SessionOpen(now), now, dryRunSeed)
		source = file

		mem := publish.NewMemoryStore()
		if _, err := mem.InitMergeSet(ctx); err != nil {
			return err
		}
		runs, lists, merge = mem, mem, mem
		events = s4_news.NewMemoryEvents()
		redisClient = redis.Wrap(nil)
	} else {
		// 4. Connect to database
		db, err := database.New(cfg)
		if err != nil {
			return fmt.Errorf("connect to database: %w", err)
		}
		a.db = db
		log.Info("Connected to database")

		// 5. Connect to Redis
		redisClient, err = redis.New(cfg)
		if err != nil {
			return fmt.Errorf("connect to redis: %w", err)
		}
		cache = redis.NewCache(redisClient, cfg.Redis.Prefix)

		// 6. Broker market data
		kiteClient := kite.NewClient(cfg.Kite, a.calendar.Location(), a.metrics, log)
		md = kiteClient
		if cfg.Picker.UniverseFile != "" {
			source = s1_universe.NewFileSource(cfg.Picker.UniverseFile)
		} else {
			source = s1_universe.NewBuilder(kite.NewInstrumentSource(kiteClient), s1_universe.DefaultConfig())
			if cfg.Picker.SectorFile != "" {
				sectors, err := s1_universe.LoadSectorFile(cfg.Picker.SectorFile)
				if err != nil {
					return err
				}
				source = s1_universe.NewSectorSource(source, sectors)
			} else {
				log.Warn("SECTOR_FILE not set, per-sector cap inactive for broker universe")
			}
		}

		// 7. Create repositories
		publishRepo := publish.NewRepository(db.Pool, a.calendar.Location())
		snapshots = s1_universe.NewRepository(db.Pool)
		shortlists = s2_shortlist.NewRepository(db.Pool)
		events = s4_news.NewRepository(db.Pool)
		runs, lists, merge = publishRepo, publishRepo, publishRepo
	}
	a.redis = redisClient
	a.runs = runs

	// 8. Catalyst classifier (model → rules)
	var model contracts.CatalystModel
	if cfg.LLM.Enabled() {
		model = llm.NewClassifier(cfg.LLM, s4_news.Catalysts(), log)
	}
	classifier := s4_news.NewFallbackClassifier(model, cfg.LLM.Timeout, a.metrics, log)

	// 9. Pipeline stages
	a.universe = s1_universe.NewManager(source, snapshots, md, log)
	a.shortlister = s2_shortlist.NewShortlister(shortlists, a.policy, cfg.Picker, a.metrics, log)
	technical := s3_technical.NewScorer(a.calendar, cache, a.policy, cfg.Picker, a.metrics, log)
	a.newsScorer = s4_news.NewScorer(events, runs, classifier, a.policy, log)
	blender := selection.NewBlender(a.policy, cfg.Picker.TopN, log)
	recorder := publish.NewRecorder(runs, a.metrics, log)

	// 피드는 5xx/429에 한 번만 재시도 (피드별 타임아웃 안에서)
	feedHTTP := httputil.NewWithTimeout(log, cfg.News.FeedTimeout).WithRetry(1, 500*time.Millisecond)
	feedClient := rss.NewClient(feedHTTP, log)
	a.ingestor = s4_news.NewIngestor(feedClient, events, cfg.News, a.policy.News.MapThreshold, a.metrics, log)

	a.orchestrator = brain.NewOrchestrator(
		a.universe,
		a.shortlister,
		technical,
		a.newsScorer,
		blender,
		recorder,
		a.calendar,
		a.policy,
		cfg.Picker,
		a.metrics,
		log,
	)

	// 10. Publish flow (fresh pick on demand)
	publisher := publish.NewPublisher(lists, merge, cfg.Picker.PublishMaxCount, a.metrics, log)
	a.flow = publish.NewFlow(a.calendar, runs, publisher, a.pick, cfg.Picker, log)

	return nil
}

// pick runs one plain invocation for the publish flow
func (a *app) pick(ctx context.Context) (*contracts.RunResult, error) {
	return a.orchestrator.Run(ctx, brain.RunConfig{})
}

// Close releases every connection
func (a *app) Close() {
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			a.log.WithError(err).Warn("Failed to close redis")
		}
	}
	if a.db != nil {
		a.db.Close()
	}
}
