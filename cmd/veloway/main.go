// Veloway Core - Bike Sharing Platform
//
// This is the main entry point for the Veloway Core application.
// Veloway Core provides the platform's central services:
//   - OAuth2 authorization-code flow with mandatory PKCE
//   - Multi-tenant client validation and scope negotiation
//   - First-party login and registration with Argon2id credentials
//   - Station telemetry ingest (MQTT) with history (InfluxDB)
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	_ "github.com/veloway/veloway-core/migrations"

	"github.com/veloway/veloway-core/internal/api"
	"github.com/veloway/veloway-core/internal/audit"
	"github.com/veloway/veloway-core/internal/iam"
	"github.com/veloway/veloway-core/internal/infrastructure/config"
	"github.com/veloway/veloway-core/internal/infrastructure/database"
	"github.com/veloway/veloway-core/internal/infrastructure/influxdb"
	"github.com/veloway/veloway-core/internal/infrastructure/logging"
	"github.com/veloway/veloway-core/internal/infrastructure/mqtt"
	"github.com/veloway/veloway-core/internal/telemetry"
)

// Version information - set at build time via ldflags
// Example: go build -ldflags "-X main.version=1.0.0 -X main.commit=abc123"
var (
	version = "dev"     // Semantic version (e.g., "1.0.0")
	commit  = "unknown" // Git commit hash
	date    = "unknown" // Build date
)

// Default configuration file path
const defaultConfigPath = "configs/config.yaml"

func main() {
	// Cancel on interrupt signals (Ctrl+C, SIGTERM) for graceful shutdown
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// run is the actual application logic, separated from main for testability.
// Returning an error allows main to handle exit codes consistently.
func run(ctx context.Context) error {
	// Use default logger until config is loaded
	log := logging.Default()
	log.Info("starting Veloway Core",
		"version", version,
		"commit", commit,
		"build_date", date,
	)

	// Load configuration
	configPath := getConfigPath()
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	log.Info("configuration loaded", "path", configPath)

	// Reinitialise logger with config settings
	log = logging.New(cfg.Logging, version)
	log.Info("logger initialised",
		"level", cfg.Logging.Level,
		"format", cfg.Logging.Format,
	)

	// Open database
	db, err := database.Open(database.Config{
		Path:        cfg.Database.Path,
		WALMode:     cfg.Database.WALMode,
		BusyTimeout: cfg.Database.BusyTimeout,
	})
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer func() {
		log.Info("closing database")
		if closeErr := db.Close(); closeErr != nil {
			log.Error("error closing database", "error", closeErr)
		}
	}()
	log.Info("database connected", "path", cfg.Database.Path)

	// Run migrations
	if migrateErr := db.Migrate(ctx); migrateErr != nil {
		return fmt.Errorf("running migrations: %w", migrateErr)
	}
	log.Info("database migrations complete")

	// Initialise identity and access repositories
	tenants := iam.NewTenantRepository(db.DB)
	identities := iam.NewIdentityRepository(db.DB)
	grants := iam.NewGrantRepository(db.DB)

	// Seed the default tenant and admin account on first boot
	if _, seedErr := iam.SeedDefaults(ctx, tenants, identities, log.Logger); seedErr != nil {
		return fmt.Errorf("seeding defaults: %w", seedErr)
	}

	// Token manager signs and verifies access tokens
	tokens, err := iam.NewTokenManager(iam.TokenConfig{
		Realm:       cfg.Security.Realm,
		Key:         []byte(cfg.Security.JWT.Secret),
		PreviousKey: previousKey(cfg.Security.JWT.PreviousSecret),
		TTL:         cfg.AccessTokenTTL(),
		RolesClaim:  cfg.Security.JWT.RolesClaim,
	})
	if err != nil {
		return fmt.Errorf("creating token manager: %w", err)
	}
	log.Info("token manager initialised",
		"realm", tokens.Realm(),
		"ttl", tokens.TTL(),
	)

	// Code issuer mints and redeems PKCE-bound authorization codes
	codes := iam.NewCodeIssuer([]byte(cfg.Security.AuthCode.Secret))

	// Audit trail
	auditRepo := audit.NewSQLiteRepository(db.DB)

	// Connect to MQTT broker (optional: station telemetry feed)
	var mqttClient *mqtt.Client
	if cfg.MQTT.Enabled {
		mqttClient, err = mqtt.Connect(cfg.MQTT)
		if err != nil {
			return fmt.Errorf("connecting to MQTT: %w", err)
		}
		defer func() {
			log.Info("disconnecting from MQTT")
			if closeErr := mqttClient.Close(); closeErr != nil {
				log.Error("error closing MQTT", "error", closeErr)
			}
		}()
		log.Info("MQTT connected",
			"broker", fmt.Sprintf("%s:%d", cfg.MQTT.Broker.Host, cfg.MQTT.Broker.Port),
			"client_id", cfg.MQTT.Broker.ClientID,
		)

		mqttClient.SetOnConnect(func() {
			log.Info("MQTT reconnected")
		})
		mqttClient.SetOnDisconnect(func(err error) {
			log.Warn("MQTT disconnected", "error", err)
		})
	} else {
		log.Info("MQTT disabled")
	}

	// Connect to InfluxDB (optional: station telemetry history)
	var influxClient *influxdb.Client
	if cfg.InfluxDB.Enabled {
		influxClient, err = influxdb.Connect(cfg.InfluxDB)
		if err != nil {
			return fmt.Errorf("connecting to InfluxDB: %w", err)
		}
		defer func() {
			log.Info("closing InfluxDB connection")
			if closeErr := influxClient.Close(); closeErr != nil {
				log.Error("error closing InfluxDB", "error", closeErr)
			}
		}()
		log.Info("InfluxDB connected",
			"url", cfg.InfluxDB.URL,
			"org", cfg.InfluxDB.Org,
			"bucket", cfg.InfluxDB.Bucket,
		)

		influxClient.SetOnError(func(err error) {
			log.Error("InfluxDB write error", "error", err)
		})
	} else {
		log.Info("InfluxDB disabled")
	}

	// Start the telemetry ingestor when both the feed and the history
	// store are available
	if mqttClient != nil && influxClient != nil {
		ingestor := telemetry.NewIngestor(mqttClient, influxClient, log, byte(cfg.MQTT.QoS))
		if startErr := ingestor.Start(); startErr != nil {
			return fmt.Errorf("starting telemetry ingest: %w", startErr)
		}
	} else {
		log.Info("telemetry ingest disabled")
	}

	// Start the HTTP API server
	server, err := api.New(api.Deps{
		Config:     cfg.API,
		Security:   cfg.Security,
		Logger:     log,
		Tenants:    tenants,
		Identities: identities,
		Grants:     grants,
		Tokens:     tokens,
		Codes:      codes,
		AuditRepo:  auditRepo,
		MQTT:       mqttClient,
		DB:         db.DB,
		Version:    version,
	})
	if err != nil {
		return fmt.Errorf("creating API server: %w", err)
	}
	if startErr := server.Start(ctx); startErr != nil {
		return fmt.Errorf("starting API server: %w", startErr)
	}
	defer func() {
		log.Info("stopping API server")
		if closeErr := server.Close(); closeErr != nil {
			log.Error("error stopping API server", "error", closeErr)
		}
	}()
	log.Info("API server started",
		"host", cfg.API.Host,
		"port", cfg.API.Port,
		"tls", cfg.API.TLS.Enabled,
	)

	// Verify all connections are healthy
	if err := healthCheck(ctx, db, mqttClient, influxClient); err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	log.Info("all health checks passed")

	log.Info("initialisation complete, waiting for shutdown signal")

	// Wait for shutdown signal
	<-ctx.Done()

	log.Info("shutdown signal received, cleaning up")

	// Deferred Close() calls will run in reverse order:
	// 1. API server
	// 2. InfluxDB (if enabled)
	// 3. MQTT (if enabled)
	// 4. Database

	log.Info("Veloway Core stopped")
	return nil
}

// getConfigPath returns the configuration file path.
// Uses VELOWAY_CONFIG environment variable if set, otherwise default.
func getConfigPath() string {
	if path := os.Getenv("VELOWAY_CONFIG"); path != "" {
		return path
	}
	return defaultConfigPath
}

// previousKey converts an optional rotation secret to key bytes.
// An empty secret means no rotation overlap is active.
func previousKey(secret string) []byte {
	if secret == "" {
		return nil
	}
	return []byte(secret)
}

// healthCheck verifies all infrastructure connections are healthy.
// The MQTT and InfluxDB clients may be nil when disabled.
func healthCheck(ctx context.Context, db *database.DB, mqttClient *mqtt.Client, influxClient *influxdb.Client) error {
	if err := db.HealthCheck(ctx); err != nil {
		return fmt.Errorf("database: %w", err)
	}

	if mqttClient != nil {
		if err := mqttClient.HealthCheck(ctx); err != nil {
			return fmt.Errorf("mqtt: %w", err)
		}
	}

	if influxClient != nil {
		if err := influxClient.HealthCheck(ctx); err != nil {
			return fmt.Errorf("influxdb: %w", err)
		}
	}

	return nil
}
