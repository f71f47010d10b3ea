// Worker runs the background jobs of the sharing subsystem: it sweeps overdue
// invitations, reconciles sessions against revocation events published by
// other nodes, and ships audit entries from Kafka to Loki.
// Set DATABASE_URL; KAFKA_BROKERS and LOKI_URL enable the event pipelines.
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/segmentio/kafka-go"

	"credvault/backend/internal/audit"
	"credvault/backend/internal/audit/loki"
	auditproducer "credvault/backend/internal/audit/producer"
	auditrepo "credvault/backend/internal/audit/repository"
	"credvault/backend/internal/config"
	"credvault/backend/internal/db"
	invrepo "credvault/backend/internal/invitation/repository"
	"credvault/backend/internal/revocation"
	"credvault/backend/internal/session"
	sessrepo "credvault/backend/internal/session/repository"
	"credvault/backend/internal/sharing/service"
	otelsetup "credvault/backend/internal/telemetry/otel"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	if cfg.DatabaseURL == "" {
		log.Fatal("worker: DATABASE_URL is required")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
		<-quit
		log.Println("worker: shutting down...")
		cancel()
	}()

	providers, err := otelsetup.NewProviders(ctx, cfg.OTLPEndpoint, "credvault-worker", cfg.OTLPInsecure)
	if err != nil {
		log.Fatalf("telemetry: %v", err)
	}
	providers.SetGlobal()
	defer func() {
		shCtx, shCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shCancel()
		_ = providers.Shutdown(shCtx)
	}()

	dbConn, err := db.Open(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("db: %v", err)
	}
	defer dbConn.Close()

	brokers := cfg.KafkaBrokersList()
	registry := session.NewRegistry(sessrepo.NewPostgresRepository(dbConn))
	producer := auditproducer.NewKafkaProducer(brokers, cfg.AuditKafkaTopic)
	defer producer.Close()
	publisher := revocation.NewKafkaPublisher(brokers, cfg.RevocationKafkaTopic)
	defer publisher.Close()

	svc := service.NewSharingService(service.Deps{
		Invitations: invrepo.NewPostgresRepository(dbConn),
		Sessions:    registry,
		Audit:       audit.NewLogger(auditrepo.NewPostgresRepository(dbConn), producer),
		Bus:         revocation.NewFanout(revocation.NewMemoryBus(), publisher),
	})

	if len(brokers) > 0 && cfg.LokiURL != "" {
		go shipAuditEntries(ctx, cfg, brokers)
	}
	if len(brokers) > 0 {
		go reconcileRevocations(ctx, cfg, brokers, registry)
	}

	interval := cfg.ExpirySweepIntervalDuration()
	log.Printf("worker: sweeping overdue invitations every %s", interval)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			log.Println("worker: stopped")
			return
		case <-ticker.C:
			sweepCtx, sweepCancel := context.WithTimeout(ctx, interval)
			n, err := svc.ExpireOverdue(sweepCtx, 500)
			sweepCancel()
			if err != nil {
				log.Printf("worker: expiry sweep failed: %v", err)
			} else if n > 0 {
				log.Printf("worker: expired %d invitations", n)
			}
		}
	}
}

// shipAuditEntries consumes the audit topic and pushes each entry to Loki.
func shipAuditEntries(ctx context.Context, cfg *config.Config, brokers []string) {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:        brokers,
		Topic:          cfg.AuditKafkaTopic,
		GroupID:        cfg.KafkaGroupID,
		MinBytes:       1,
		MaxBytes:       10e6, // 10MB
		MaxWait:        1 * time.Second,
		CommitInterval: time.Second,
	})
	defer reader.Close()

	log.Printf("worker: shipping audit entries from %s to %s", cfg.AuditKafkaTopic, cfg.LokiURL)
	for {
		msg, err := reader.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			log.Printf("worker: audit kafka read error: %v", err)
			continue
		}
		pushCtx, pushCancel := context.WithTimeout(ctx, 10*time.Second)
		if err := loki.PushEntryJSON(pushCtx, cfg.LokiURL, msg.Value); err != nil {
			log.Printf("worker: loki push failed: %v", err)
		}
		pushCancel()
	}
}

// reconcileRevocations consumes revocation events produced on other nodes and
// closes any sessions for the invitation that are still open in the store.
// Local listeners on those nodes already got the event; this is the durable
// backstop for sessions whose node missed it.
func reconcileRevocations(ctx context.Context, cfg *config.Config, brokers []string, registry *session.Registry) {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:        brokers,
		Topic:          cfg.RevocationKafkaTopic,
		GroupID:        cfg.KafkaGroupID + "-revocations",
		MinBytes:       1,
		MaxBytes:       10e6, // 10MB
		MaxWait:        1 * time.Second,
		CommitInterval: time.Second,
	})
	defer reader.Close()

	bus := revocation.NewMemoryBus()
	go revocation.Relay(ctx, reader, bus)

	log.Printf("worker: reconciling sessions from %s", cfg.RevocationKafkaTopic)
	bus.SubscribeAll(func(ev revocation.Event) {
		closeCtx, closeCancel := context.WithTimeout(ctx, 10*time.Second)
		defer closeCancel()
		n, err := registry.CloseAll(closeCtx, ev.SharedAccessID, ev.Reason)
		if err != nil {
			log.Printf("worker: close sessions for %s failed: %v", ev.SharedAccessID, err)
			return
		}
		if n > 0 {
			log.Printf("worker: closed %d stale sessions for %s", n, ev.SharedAccessID)
		}
	})
	<-ctx.Done()
}
