package http

import (
	"context"
	"log"
	"net/http"
	"time"

	"veritas/internal/config"
	"veritas/internal/domain"
	"veritas/internal/infra/attestation"
	"veritas/internal/infra/cachemem"
	"veritas/internal/infra/canonical"
	"veritas/internal/infra/crypto"
	"veritas/internal/infra/db"
	"veritas/internal/infra/hashing"
	"veritas/internal/infra/policyopa"
	"veritas/internal/infra/ratelimit"
	"veritas/internal/infra/truststore"
	"veritas/internal/usecase"

	"github.com/gin-gonic/gin"
)

// TrustRefresher triggers one trust feed refresh, used by the admin
// endpoint.
type TrustRefresher interface {
	Refresh(ctx context.Context) error
}

type Server struct {
	cfg   config.Config
	store *db.Store
	r     *gin.Engine

	verifyUC *usecase.VerifyMedia
	recordUC *usecase.RecordMedia
	media    usecase.MediaRepository
	trust    usecase.TrustSource
	refresh  TrustRefresher

	adminAPIKey string

	limiter             domain.SubmissionLimiter
	rateLimitFailClosed bool
}

func NewServer(cfg config.Config, store *db.Store, trust *truststore.Store, refresh TrustRefresher) *Server {
	r := gin.New()
	r.Use(gin.Recovery())

	s := &Server{cfg: cfg, store: store, r: r, trust: trust, refresh: refresh}
	s.initDeps()
	s.routes()
	return s
}

type ServerDeps struct {
	Verify      *usecase.VerifyMedia
	Record      *usecase.RecordMedia
	Media       usecase.MediaRepository
	Trust       usecase.TrustSource
	Refresh     TrustRefresher
	AdminAPIKey string
	RateLimiter domain.SubmissionLimiter
}

func NewServerWithDeps(cfg config.Config, deps ServerDeps) *Server {
	r := gin.New()
	r.Use(gin.Recovery())

	s := &Server{
		cfg:         cfg,
		r:           r,
		verifyUC:    deps.Verify,
		recordUC:    deps.Record,
		media:       deps.Media,
		trust:       deps.Trust,
		refresh:     deps.Refresh,
		adminAPIKey: deps.AdminAPIKey,
	}
	s.initRateLimit(deps.RateLimiter)
	s.routes()
	return s
}

func (s *Server) initDeps() {
	s.adminAPIKey = s.cfg.AdminAPIKey

	var mediaRepo *db.MediaRepository
	var revocations *db.RevocationRepository
	if s.store != nil && s.store.DB != nil {
		mediaRepo = db.NewMediaRepository(s.store.DB)
		revocations = db.NewRevocationRepository(s.store.DB)
	}

	validator := attestation.NewValidator(nil, s.cfg.Revocation(), s.cfg.MaxChainLength)
	if revocations != nil {
		validator.Revocations = revocations
	}

	var policy usecase.AcceptancePolicy
	if s.cfg.PolicyBundlePath != "" {
		engine, err := policyopa.NewEngineFromBundlePath(context.Background(), s.cfg.PolicyBundlePath)
		if err != nil {
			log.Printf("http: policy bundle %s failed to load, continuing without policy: %v",
				s.cfg.PolicyBundlePath, err)
		} else {
			policy = engine
		}
	}

	s.verifyUC = &usecase.VerifyMedia{
		Hasher:    hashingFromConfig(s.cfg),
		Metadata:  canonical.Service{},
		Signature: crypto.NewService(),
		Chain:     validator,
		Trust:     s.trust,
		Policy:    policy,
		Cache:     cachemem.New(),
	}
	if mediaRepo != nil {
		s.media = mediaRepo
		s.recordUC = &usecase.RecordMedia{Repo: mediaRepo}
	}

	s.initRateLimit(nil)
}

func hashingFromConfig(cfg config.Config) *hashing.Hasher {
	return hashing.NewHasher(cfg.ChunkSizeBytes, cfg.MaxContentBytes)
}

func (s *Server) initRateLimit(limiter domain.SubmissionLimiter) {
	s.rateLimitFailClosed = s.cfg.RateLimitFailClosed
	if limiter != nil {
		s.limiter = limiter
		return
	}
	quota := domain.SubmissionQuota{
		Limit:  s.cfg.RateLimitRequests,
		Window: time.Duration(s.cfg.RateLimitWindowSeconds) * time.Second,
	}
	if !quota.Enabled() {
		return
	}
	if s.cfg.RedisAddr != "" {
		redisLimiter, err := ratelimit.NewRedisLimiter(s.cfg.RedisAddr, s.cfg.RedisPassword, s.cfg.RedisDB, quota, nil)
		if err == nil {
			s.limiter = redisLimiter
			return
		}
		log.Printf("http: redis rate limiter unavailable, using in-memory limiter: %v", err)
	}
	s.limiter = ratelimit.NewMemoryLimiter(quota, ratelimit.MemoryOptions{MaxUploaders: s.cfg.RateLimitMaxKeys})
}

func (s *Server) routes() {
	s.r.GET("/healthz", func(c *gin.Context) {
		dbMode := "no-db"
		if s.store != nil && s.store.DB != nil {
			dbMode = "db"
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok", "mode": dbMode})
	})

	v1 := s.r.Group("/v1")
	{
		v1.POST("/media/verify", s.handleVerifyMedia)
		v1.GET("/media/:fingerprint", s.handleGetMediaRecords)
		v1.GET("/truststore", s.handleTrustSnapshot)
		v1.POST("/truststore/refresh", s.handleRefreshTrust)
	}

	s.r.NoRoute(s.handleNoRoute)
}

func (s *Server) Run() error {
	return s.r.Run(s.cfg.HTTPAddr)
}
