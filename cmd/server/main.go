// Command server wires the administration API: postgres-backed stores,
// the propagation bus with its subscribers, and the HTTP router.
package main

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	abonenthandler "domopass/internal/abonent/handler"
	abonentmetrics "domopass/internal/abonent/metrics"
	abonentservice "domopass/internal/abonent/service"
	abonentstore "domopass/internal/abonent/store/abonent"
	"domopass/internal/catalog/store/object"
	"domopass/internal/catalog/store/perimeter"
	"domopass/internal/catalog/store/tariff"
	companyhandler "domopass/internal/company/handler"
	companyservice "domopass/internal/company/service"
	companystore "domopass/internal/company/store/company"
	jwttoken "domopass/internal/jwt_token"
	keymetrics "domopass/internal/key/metrics"
	"domopass/internal/key/renewal"
	keyservice "domopass/internal/key/service"
	keystore "domopass/internal/key/store/key"
	templatestore "domopass/internal/key/store/template"
	"domopass/internal/platform/config"
	"domopass/internal/platform/httpserver"
	"domopass/internal/platform/kafka/producer"
	"domopass/internal/platform/logger"
	"domopass/internal/platform/redis"
	"domopass/internal/propagation"
	propmetrics "domopass/internal/propagation/metrics"
	"domopass/internal/propagation/relay"
	userstore "domopass/internal/user/store/user"
	auditpostgres "domopass/pkg/platform/audit/store/postgres"
	"domopass/pkg/platform/audit/publisher"
	"domopass/pkg/platform/bus"
	"domopass/pkg/platform/middleware/auth"
	"domopass/pkg/platform/middleware/metadata"
	"domopass/pkg/platform/middleware/requestid"
	"domopass/pkg/platform/middleware/requesttime"
	"domopass/pkg/platform/tx"
)

func main() {
	cfg := config.FromEnv()
	log := logger.New()
	ctx := context.Background()

	db, err := sql.Open("pgx", cfg.Postgres.DSN)
	if err != nil {
		log.Error("failed to open postgres", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	pingCtx, cancelPing := context.WithTimeout(ctx, 5*time.Second)
	if err := db.PingContext(pingCtx); err != nil {
		cancelPing()
		log.Error("postgres unreachable", "error", err)
		os.Exit(1)
	}
	cancelPing()

	// Catalogs. The object catalog optionally sits behind a redis
	// read-through cache for snapshot resolution on the propagation path.
	perimeters := perimeter.NewPostgres(db)
	tariffs := tariff.NewPostgres(db)

	var objects object.Catalog = object.NewPostgres(db)
	redisClient, err := redis.New(cfg.Redis)
	if err != nil {
		log.Error("failed to connect to redis", "error", err)
		os.Exit(1)
	}
	if redisClient != nil {
		defer redisClient.Close()
		objects = object.NewRedisCache(objects, redisClient, config.ObjectCacheTTL)
		log.Info("access-object cache enabled", "ttl", config.ObjectCacheTTL)
	}

	// Propagation bus and its subscribers.
	eventBus := bus.New(log)
	propagator := propagation.New(eventBus, objects,
		propagation.WithLogger(log),
		propagation.WithMetrics(propmetrics.New()),
	)

	// The relay and the renewal submitter publish different record shapes,
	// so each gets its own topic and producer.
	renewalSubmitter := keyservice.Renewal(renewal.NewLog(log))
	if len(cfg.Kafka.Brokers) > 0 {
		relayProducer, err := producer.New(ctx, cfg.Kafka.Brokers, cfg.Kafka.Topic)
		if err != nil {
			log.Error("failed to connect to kafka", "error", err)
			os.Exit(1)
		}
		defer relayProducer.Close()
		relay.New(relayProducer, log).Subscribe(eventBus)
		log.Info("propagation relay enabled", "topic", cfg.Kafka.Topic)

		renewalProducer, err := producer.New(ctx, cfg.Kafka.Brokers, cfg.Kafka.RenewalTopic)
		if err != nil {
			log.Error("failed to connect to kafka", "error", err)
			os.Exit(1)
		}
		defer renewalProducer.Close()
		renewalSubmitter = renewal.NewKafka(renewalProducer, log)
		log.Info("key renewal submission enabled", "topic", cfg.Kafka.RenewalTopic)
	}

	synchronizer := keyservice.New(
		keystore.NewPostgres(db),
		templatestore.NewPostgres(db),
		renewalSubmitter,
		keyservice.WithLogger(log),
		keyservice.WithMetrics(keymetrics.New()),
	)
	synchronizer.Register(eventBus)

	// Domain services.
	abonentSvc := abonentservice.New(
		abonentstore.NewPostgres(db),
		abonentservice.NewGuard(perimeters, tariffs),
		objects,
		userstore.NewPostgres(db),
		propagator,
		abonentservice.WithLogger(log),
		abonentservice.WithMetrics(abonentmetrics.New()),
	)

	auditStore := auditpostgres.New(db)

	tokens := jwttoken.NewJWTService(cfg.Server.JWTSigningKey, "domopass", "domopass-admin")
	companySvc := companyservice.New(companystore.NewPostgres(db), tokens, log,
		companyservice.WithAuditTrail(auditStore, tx.NewRunner(db)),
	)

	auditTrail := publisher.NewPublisher(auditStore,
		publisher.WithAsyncBuffer(256),
		publisher.WithLogger(log),
	)
	defer auditTrail.Close()

	router := chi.NewRouter()
	router.Use(chimiddleware.Recoverer)
	router.Use(requestid.Middleware)
	router.Use(requesttime.Middleware)
	router.Use(metadata.ClientMetadata)

	router.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	router.Handle("/metrics", promhttp.Handler())

	companyhandler.New(companySvc, auditTrail, log).Register(router)
	router.Group(func(r chi.Router) {
		r.Use(auth.RequireOperator(operatorTokens{tokens}, log))
		abonenthandler.New(abonentSvc, auditTrail, log).Register(r)
	})

	srv := httpserver.New(cfg.Server.Addr, router)
	log.Info("starting domopass admin server", "addr", cfg.Server.Addr)

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("graceful shutdown failed", "error", err)
		os.Exit(1)
	}
	log.Info("server stopped")
}

// operatorTokens adapts the jwt service to the auth middleware contract.
type operatorTokens struct {
	service *jwttoken.JWTService
}

func (t operatorTokens) ValidateToken(raw string) (*auth.Claims, error) {
	claims, err := t.service.ValidateToken(raw)
	if err != nil {
		return nil, err
	}
	return &auth.Claims{CompanyID: claims.CompanyID, Operator: claims.Operator}, nil
}
