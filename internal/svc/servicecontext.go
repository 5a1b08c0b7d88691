package svc

import (
	"context"
	"log"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib" // register pgx driver
	gocache "github.com/zeromicro/go-zero/core/stores/cache"
	"github.com/zeromicro/go-zero/core/stores/redis"
	"github.com/zeromicro/go-zero/core/stores/sqlx"
	"github.com/zeromicro/go-zero/core/syncx"

	cachekeys "signalpilot/internal/cache"
	"signalpilot/internal/config"
	"signalpilot/internal/store"
	"signalpilot/pkg/broker"
	_ "signalpilot/pkg/broker/rest"
	brokersim "signalpilot/pkg/broker/sim"
	"signalpilot/pkg/guard"
	"signalpilot/pkg/journal"
	"signalpilot/pkg/ledger"
	"signalpilot/pkg/scheduler"
	"signalpilot/pkg/screener"
	"signalpilot/pkg/settings"
	"signalpilot/pkg/signal"
	_ "signalpilot/pkg/signal/httpsrc"
)

type ServiceContext struct {
	Config config.Config

	SignalConfig  *signal.Config
	Sources       map[string]signal.Source
	DefaultSource signal.Source

	ScreenerConfig *screener.Config
	Ranker         *screener.Ranker

	BrokerConfig   *broker.Config
	Gateways       map[string]broker.Gateway
	DefaultGateway broker.Gateway

	SchedulerConfig *scheduler.Config
	Cooldown        *ledger.Cooldown
	Guard           *guard.Guard
	SettingsStore   settings.Store
	Journal         *journal.Writer
	Scheduler       *scheduler.Scheduler

	// Optional persistence collaborators; nil without DSN / Redis config.
	DBConn        sqlx.SqlConn
	Cache         gocache.Cache
	Redis         *redis.Redis
	CooldownStore *store.CooldownStore
}

func NewServiceContext(c config.Config) *ServiceContext {
	svc := &ServiceContext{Config: c}

	if c.Signals.Value == nil {
		log.Fatalf("signals config section is required")
	}
	svc.SignalConfig = c.Signals.Value
	sources, err := svc.SignalConfig.BuildSources()
	if err != nil {
		log.Fatalf("failed to build signal sources: %v", err)
	}
	svc.Sources = sources
	if svc.SignalConfig.Default != "" {
		svc.DefaultSource = sources[svc.SignalConfig.Default]
	}
	if svc.DefaultSource == nil {
		log.Fatalf("signals config must name a default source")
	}

	screenerCfg := c.Screener.Value
	if screenerCfg == nil {
		screenerCfg = screener.DefaultConfig()
	}
	svc.ScreenerConfig = screenerCfg
	svc.Ranker = screener.NewRanker(screenerCfg)

	if c.Broker.Value == nil {
		log.Fatalf("broker config section is required")
	}
	svc.BrokerConfig = c.Broker.Value
	// Test environment never talks to a live venue.
	if c.IsTestEnv() {
		svc.DefaultGateway = brokersim.New()
	} else {
		gateways, err := svc.BrokerConfig.BuildGateways()
		if err != nil {
			log.Fatalf("failed to build broker gateways: %v", err)
		}
		svc.Gateways = gateways
		if svc.BrokerConfig.Default != "" {
			svc.DefaultGateway = gateways[svc.BrokerConfig.Default]
		}
		if svc.DefaultGateway == nil {
			log.Fatalf("broker config must name a default gateway")
		}
	}

	schedCfg := c.Scheduler.Value
	if schedCfg == nil {
		schedCfg = scheduler.DefaultConfig()
	}
	svc.SchedulerConfig = schedCfg

	svc.Cooldown = ledger.New(schedCfg.CooldownWindow)
	svc.Guard = guard.New()
	svc.SettingsStore = settings.NewMemoryStore(settings.Default())
	if schedCfg.JournalDir != "" {
		svc.Journal = journal.NewWriter(schedCfg.JournalDir)
	}

	if c.Postgres.DSN != "" {
		svc.DBConn = sqlx.NewSqlConn("pgx", c.Postgres.DSN)
	}
	if len(c.Redis.Host) > 0 {
		svc.Redis = redis.MustNewRedis(c.Redis)
		svc.Cache = gocache.NewNode(svc.Redis, syncx.NewSingleFlight(), gocache.NewStat(cachekeys.Namespace), sqlx.ErrNotFound)
		svc.CooldownStore = store.NewCooldownStore(svc.Redis)
	}
	if svc.DBConn != nil {
		svc.SettingsStore = store.NewSettingsStore(svc.DBConn, svc.Cache, cachekeys.NewTTLSet(c.TTL))
	}

	if svc.CooldownStore != nil {
		entries, err := svc.CooldownStore.Load(context.Background(), schedCfg.CooldownWindow, time.Now())
		if err != nil {
			log.Fatalf("failed to hydrate cooldown ledger: %v", err)
		}
		svc.Cooldown.Restore(entries)
	}

	sched, err := scheduler.New(
		schedCfg,
		svc.DefaultSource,
		svc.Ranker,
		svc.Cooldown,
		svc.Guard,
		svc.DefaultGateway,
		svc.SettingsStore,
		scheduler.Options{Journal: svc.Journal, Persist: persister(svc.CooldownStore)},
	)
	if err != nil {
		log.Fatalf("failed to build scheduler: %v", err)
	}
	svc.Scheduler = sched

	return svc
}

// persister keeps the scheduler's optional dependency nil when no Redis
// store is configured; a typed nil pointer would defeat its nil checks.
func persister(cs *store.CooldownStore) scheduler.LedgerPersister {
	if cs == nil {
		return nil
	}
	return cs
}
