package httpapi

import (
	"log/slog"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/example/trainer-marketplace/internal/booking"
	"github.com/example/trainer-marketplace/internal/config"
	"github.com/example/trainer-marketplace/internal/dispatch"
	"github.com/example/trainer-marketplace/internal/geoindex"
	"github.com/example/trainer-marketplace/internal/geoloc"
	"github.com/example/trainer-marketplace/internal/ingest"
	"github.com/example/trainer-marketplace/internal/locfeed"
	"github.com/example/trainer-marketplace/internal/logging"
	"github.com/example/trainer-marketplace/internal/models"
	"github.com/example/trainer-marketplace/internal/payments"
	"github.com/example/trainer-marketplace/internal/presence"
	"github.com/example/trainer-marketplace/internal/session"
	"github.com/example/trainer-marketplace/internal/storage"
)

// Server hosts one trainer session per connected trainer plus the
// shared discovery index. The UI layer is a reader and a trigger of
// operations; nothing here mutates session state directly.
type Server struct {
	cfg      config.ServerConfig
	logger   *slog.Logger
	geo      geoindex.Index
	store    storage.Store
	kafka    *ingest.KafkaProducer
	wsreg    *dispatch.WSRegistry
	validate *validator.Validate
	mux      *mux.Router

	mu       sync.Mutex
	sessions map[string]*trainerSession
}

// trainerSession bundles the per-trainer runtime: the device gateway
// feeding the location feed, the presence controller and the booking
// store, composed by the orchestrator.
type trainerSession struct {
	orch   *session.Orchestrator
	device *geoloc.DeviceGateway
}

func NewServer(cfg config.ServerConfig, logger *slog.Logger) *Server {
	var geo geoindex.Index
	if cfg.RedisAddr != "" {
		geo = geoindex.NewRedisIndex(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisGeoKey)
	} else {
		geo = geoindex.NewMemoryIndex()
	}

	var store storage.Store
	if cfg.PGDSN != "" {
		if ps, err := storage.NewPostgresStore(cfg.PGDSN); err == nil {
			store = ps
		} else {
			logger.Warn("postgres unavailable, using memory store", "error", err)
		}
	}
	if store == nil {
		store = storage.NewMemoryStore()
	}

	var kp *ingest.KafkaProducer
	if len(cfg.KafkaBrokers) > 0 {
		kp = ingest.NewKafkaProducer(cfg.KafkaBrokers, cfg.KafkaTopic)
	}

	s := &Server{
		cfg:      cfg,
		logger:   logger,
		geo:      geo,
		store:    store,
		kafka:    kp,
		wsreg:    dispatch.NewWSRegistry(logging.For(logger, "dispatch")),
		validate: validator.New(),
		mux:      mux.NewRouter(),
		sessions: make(map[string]*trainerSession),
	}
	s.registerMiddleware()
	s.routes()
	return s
}

// sessionFor returns the trainer's session, creating it on first use.
func (s *Server) sessionFor(trainerID string) *trainerSession {
	s.mu.Lock()
	defer s.mu.Unlock()
	if ts, ok := s.sessions[trainerID]; ok {
		return ts
	}

	profile := models.TrainerProfile{
		ID:            trainerID,
		HourlyRate:    75,
		Rating:        5,
		ServiceRadius: 16000, // ~10 miles
	}

	device := geoloc.NewDeviceGateway(0)
	feed := locfeed.New(device, locfeed.Config{
		MinInterval:     s.cfg.FeedMinInterval,
		MinDisplacement: s.cfg.FeedMinDisplacement,
		PollInterval:    s.cfg.FeedPollInterval,
		FixTimeout:      s.cfg.FixTimeout,
	}, logging.For(s.logger, "locfeed"))

	ctrl := presence.NewController(trainerID, s.store, device, feed,
		logging.For(s.logger, "presence"),
		presence.WithBroadcast(&broadcaster{geo: s.geo, kafka: s.kafka, profile: profile, log: s.logger}),
		presence.WithPrompter(&wsPrompter{reg: s.wsreg}),
		presence.WithSyncTimeout(s.cfg.SyncTimeout),
	)

	var responder booking.Responder
	if s.cfg.PushEndpoint != "" {
		responder = dispatch.NewPushResponder(s.cfg.PushEndpoint, "")
	} else {
		responder = dispatch.LogResponder{}
	}
	if s.cfg.StripeAPIKey != "" {
		responder = &dispatch.HoldingResponder{
			Next:     responder,
			Payments: payments.NewStripeClient(s.cfg.StripeAPIKey),
			Currency: "usd",
		}
	}

	bookings := booking.NewStore(trainerID, responder, logging.For(s.logger, "booking")).WithArchive(s.store)

	// stored schedule if the trainer has edited one; session.New
	// falls back to the default week on nil
	sched, err := s.store.Schedule(trainerID)
	if err != nil {
		s.logger.Warn("schedule load failed, using default", "trainer", trainerID, "error", err)
	}

	ts := &trainerSession{
		orch:   session.New(profile, ctrl, bookings, sched),
		device: device,
	}
	s.sessions[trainerID] = ts
	return ts
}

// broadcaster fans committed presence output out to the location
// pipeline and the shared geo index.
type broadcaster struct {
	geo     geoindex.Index
	kafka   *ingest.KafkaProducer
	profile models.TrainerProfile
	log     *slog.Logger
}

func (b *broadcaster) Sample(sample models.LocationSample) {
	if b.kafka != nil {
		if err := b.kafka.PublishSample(sample); err != nil {
			b.log.Warn("sample publish failed", "trainer", sample.TrainerID, "error", err)
		}
	}
	b.geo.Upsert(models.TrainerPresence{
		ID:            sample.TrainerID,
		Loc:           sample.Loc,
		Rating:        b.profile.Rating,
		Online:        true,
		ServiceRadius: b.profile.ServiceRadius,
	})
}

func (b *broadcaster) Offline(trainerID string) {
	b.geo.Remove(trainerID)
}

// wsPrompter surfaces the permission remediation prompt through the
// trainer's live session, when one is connected.
type wsPrompter struct {
	reg *dispatch.WSRegistry
}

func (p *wsPrompter) PermissionNeeded(trainerID string) {
	_ = p.reg.Notify(trainerID, models.Notification{
		ID:     uuid.NewString(),
		Kind:   models.NotifySystem,
		Title:  "Location Required",
		Body:   "Location access is required to show your availability to nearby clients.",
		SentAt: time.Now(),
	})
}
