// README: Entry point; loads config, runs migrations, wires services and serves the HTTP API.
package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"village/internal/ai"
	"village/internal/config"
	"village/internal/events"
	httptransport "village/internal/http"
	"village/internal/infra"
	"village/internal/maps"
	"village/internal/modules/assist"
	"village/internal/modules/cart"
	"village/internal/modules/catalog"
	"village/internal/modules/order"
	"village/internal/modules/pricing"
	"village/internal/modules/user"
	"village/internal/notify"
	"village/internal/session"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.Firebase.ProjectID == "" {
		log.Fatal("VILLAGE_FIREBASE_PROJECT_ID is required")
	}
	app, err := infra.NewFirebaseApp(ctx, cfg.Firebase.ProjectID, cfg.Firebase.CredentialsFile)
	if err != nil {
		log.Fatalf("firebase init: %v", err)
	}
	verifier, err := infra.NewFirebaseVerifier(ctx, app)
	if err != nil {
		log.Fatalf("firebase auth: %v", err)
	}

	if err := infra.Migrate(cfg.DB.DSN); err != nil {
		log.Fatal(err)
	}
	dbPool, err := infra.NewDB(ctx, cfg.DB.DSN)
	if err != nil {
		log.Fatal(err)
	}
	defer dbPool.Close()

	redisClient := infra.NewRedis(cfg.Redis.Addr)
	defer redisClient.Close()
	sessions := session.NewStore(redisClient, cfg.Redis.SessionTTL)

	shops, err := catalog.Default()
	if err != nil {
		log.Fatal(err)
	}

	pricingSvc := pricing.NewService(pricing.NewStore(dbPool))
	cartSvc := cart.NewService(sessions, shops)

	profiles, err := user.NewStore(ctx, app)
	if err != nil {
		log.Fatalf("firestore: %v", err)
	}
	defer profiles.Close()

	fcm, err := notify.NewFCM(ctx, app)
	if err != nil {
		log.Fatalf("fcm: %v", err)
	}

	var publisher order.Publisher = events.Noop{}
	if len(cfg.Kafka.Brokers) > 0 {
		kp := events.NewKafkaPublisher(cfg.Kafka.OrderTopic, cfg.Kafka.Brokers...)
		defer kp.Close()
		publisher = kp
	} else {
		log.Printf("kafka: no brokers configured, order events are not published")
	}

	orderSvc := order.NewService(order.NewStore(dbPool), pricingSvc, shops, cartSvc,
		order.WithNotifier(fcm),
		order.WithPublisher(publisher),
	)

	var places *maps.PlacesService
	if cfg.Maps.APIKey != "" {
		if places, err = maps.NewPlacesService(cfg.Maps.APIKey); err != nil {
			log.Fatalf("maps: %v", err)
		}
	} else {
		log.Printf("maps: no api key, location search disabled")
	}

	var llm ai.LLMProvider
	if cfg.AI.GeminiKey != "" {
		gemini, err := ai.NewGeminiProvider(ctx, cfg.AI.GeminiKey)
		if err != nil {
			log.Fatalf("gemini: %v", err)
		}
		defer gemini.Close()
		llm = gemini
	} else {
		log.Printf("gemini: no api key, custom-order assistant disabled")
	}

	handler := httptransport.NewServer(httptransport.ServerDeps{
		Order:          orderSvc,
		Cart:           cartSvc,
		Pricing:        pricingSvc,
		Catalog:        shops,
		Sessions:       sessions,
		Users:          user.NewService(profiles),
		Assist:         assist.NewService(assist.NewStore(dbPool), llm, shops),
		Places:         places,
		Verifier:       verifier,
		CORSOrigins:    cfg.HTTP.CORSOrigins,
		RequestTimeout: cfg.HTTP.RequestTimeout,
	})

	server := &http.Server{Addr: cfg.HTTP.Addr, Handler: handler.Routes()}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Printf("http shutdown: %v", err)
		}
	}()

	log.Printf("village-api listening on %s", cfg.HTTP.Addr)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatal(err)
	}
}
