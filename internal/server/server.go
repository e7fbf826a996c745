package server

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/rs/zerolog/log"

	"gemrush/internal/cache"
	"gemrush/internal/config"
	"gemrush/internal/database"
	"gemrush/internal/game/rng"
	"gemrush/internal/spin"
	"gemrush/internal/state"
	"gemrush/internal/wallet"
)

type FiberServer struct {
	*fiber.App

	db         database.Service
	cache      cache.Service
	profile    *config.Holder
	controller *spin.Controller
	hub        *Hub
}

// New wires the full service: Postgres stores, Redis-backed caches and
// locks when Redis is reachable, the spin controller and the live feed hub.
// With cfg.SkipPersistence everything runs on in-memory stores, for local
// development without a database.
func New(cfg config.Server) *FiberServer {
	profileCfg, err := config.ByName(cfg.Profile)
	if err != nil {
		log.Fatal().Err(err).Msg("invalid math profile")
	}
	holder := config.NewHolder(profileCfg)
	rngSvc := rng.NewService()
	hub := NewHub()

	var (
		db       database.Service
		redisSvc cache.Service
		states   state.Store
		ledger   wallet.Ledger
		results  spin.ResultRepository
		txRunner spin.TxRunner
		spinOpts spin.Options
	)

	if cfg.SkipPersistence {
		log.Warn().Msg("persistence disabled, using in-memory stores")
		states = state.NewMemoryStore()
		memLedger := wallet.NewMemoryLedger()
		seedDevPlayers(memLedger)
		ledger = memLedger
		results = spin.NewMemoryResultRepository()
		txRunner = spin.NopTxRunner{}
	} else {
		dbSvc, err := database.New()
		if err != nil {
			log.Fatal().Err(err).Msg("connecting to database")
		}
		db = dbSvc
		pool := db.Pool()

		durable := state.NewPGStore(pool)
		redisSvc = cache.New()
		if redisSvc != nil {
			spinOpts.Redis = redisSvc.GetClient()
		}

		cached, err := state.NewCachedStore(durable, spinOpts.Redis)
		if err != nil {
			log.Fatal().Err(err).Msg("building state cache")
		}
		states = cached
		ledger = wallet.NewPGLedger(pool)
		results = spin.NewPGResultRepository(pool)
		txRunner = database.NewTxManager(pool)
	}

	spinOpts.Feed = hub
	controller, err := spin.NewController(holder, rngSvc, states, ledger, results, txRunner, spinOpts)
	if err != nil {
		log.Fatal().Err(err).Msg("building spin controller")
	}

	server := &FiberServer{
		App: fiber.New(fiber.Config{
			ServerHeader:  "gemrush",
			AppName:       "gemrush",
			ReadTimeout:   10 * time.Second,
			WriteTimeout:  10 * time.Second,
			IdleTimeout:   120 * time.Second,
			StrictRouting: false,
		}),

		db:         db,
		cache:      redisSvc,
		profile:    holder,
		controller: controller,
		hub:        hub,
	}

	server.App.Use(recover.New())
	server.App.Use(limiter.New(limiter.Config{
		Max:        100,
		Expiration: 1 * time.Minute,
	}))

	go hub.Run()

	return server
}

// Shutdown closes the hub and the backing connections.
func (s *FiberServer) Shutdown() error {
	log.Info().Msg("shutting down")

	if s.hub != nil {
		s.hub.Stop()
	}
	if s.cache != nil {
		s.cache.Close()
	}
	if s.db != nil {
		if err := s.db.Close(); err != nil {
			return err
		}
	}
	return nil
}
