package commands

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"filippo.io/csrf"
	"github.com/google/uuid"
	"github.com/rs/cors"
	"github.com/rs/zerolog"

	"github.com/menuhub/menuhub/internal/auth"
	"github.com/menuhub/menuhub/internal/blob"
	memoryblob "github.com/menuhub/menuhub/internal/blob/memory"
	s3blob "github.com/menuhub/menuhub/internal/blob/s3"
	httpmiddleware "github.com/menuhub/menuhub/internal/http"
	"github.com/menuhub/menuhub/internal/logger"
	"github.com/menuhub/menuhub/internal/login"
	"github.com/menuhub/menuhub/internal/menu"
	"github.com/menuhub/menuhub/internal/models"
	"github.com/menuhub/menuhub/internal/store"
	memorystore "github.com/menuhub/menuhub/internal/store/memory"
	postgresstore "github.com/menuhub/menuhub/internal/store/postgres"
	"github.com/menuhub/menuhub/internal/telemetry"
	"github.com/menuhub/menuhub/internal/website"
)

type ServerCmd struct {
	// Server configuration
	Listen string `help:"HTTP server listen address" default:"localhost:8080" env:"MENUHUB_LISTEN"`
	Cert   string `help:"path to TLS cert file" default:"" env:"MENUHUB_TLS_CERT"`
	Key    string `help:"path to TLS key file" default:"" env:"MENUHUB_TLS_KEY"`

	// CORS configuration for the public menu API
	CORSOrigins []string `help:"allowed CORS origins for the public menu API" default:"*" env:"MENUHUB_CORS_ORIGINS"`

	// Session configuration
	SessionTTL             time.Duration `help:"session TTL" default:"168h" env:"MENUHUB_SESSION_TTL"`
	SessionCleanupInterval time.Duration `help:"interval between expired session sweeps" default:"1h" env:"MENUHUB_SESSION_CLEANUP_INTERVAL"`

	// Development and operational modes
	Dev     bool `help:"development mode - seed a demo tenant and accounts" default:"false" env:"MENUHUB_DEV"`
	Tracing bool `help:"enable tracing" default:"false" env:"MENUHUB_TRACING"`

	// Store configuration
	StoreType     string             `help:"store type (memory or postgres)" default:"memory" env:"MENUHUB_STORE_TYPE" enum:"memory,postgres"`
	PostgresStore PostgresStoreFlags `embed:"" prefix:"postgres-"`

	// Blob store configuration
	BlobType string      `help:"blob store type (memory or s3)" default:"memory" env:"MENUHUB_BLOB_TYPE" enum:"memory,s3"`
	S3Blob   S3BlobFlags `embed:"" prefix:"s3-"`

	// Account bootstrap
	Bootstrap BootstrapFlags `embed:"" prefix:"bootstrap-"`
}

type PostgresStoreFlags struct {
	// Connection Configuration
	ConnString string `help:"PostgreSQL connection string" env:"POSTGRES_CONNECTION_STRING"`

	// Connection Pool Configuration
	MaxConns        int32 `help:"maximum number of connections in pool" default:"20"`
	MinConns        int32 `help:"minimum number of connections in pool" default:"2"`
	MaxConnLifetime int32 `help:"maximum connection lifetime in seconds" default:"3600"`
	MaxConnIdleTime int32 `help:"maximum connection idle time in seconds" default:"1800"`

	// Migration Configuration
	AutoMigrate bool `help:"run database migrations on startup" default:"false" env:"MENUHUB_POSTGRES_AUTO_MIGRATE"`
}

func (s *PostgresStoreFlags) Validate() error {
	if s.ConnString == "" {
		return errors.New("PostgreSQL connection string is required (--postgres-conn-string or POSTGRES_CONNECTION_STRING)")
	}
	return nil
}

type S3BlobFlags struct {
	Bucket        string `help:"S3 bucket for menu images" env:"MENUHUB_S3_BUCKET"`
	PublicBaseURL string `help:"public URL prefix under which bucket objects are served" env:"MENUHUB_S3_PUBLIC_BASE_URL"`
	Region        string `help:"AWS region" default:"us-east-1" env:"MENUHUB_S3_REGION"`

	// Endpoint override for local development (LocalStack, MinIO)
	EndpointURL     string `help:"S3 endpoint URL override" default:"" env:"MENUHUB_S3_ENDPOINT_URL"`
	AccessKeyID     string `help:"static access key id for local development" default:"" env:"MENUHUB_S3_ACCESS_KEY_ID"`
	SecretAccessKey string `help:"static secret access key for local development" default:"" env:"MENUHUB_S3_SECRET_ACCESS_KEY"`
}

func (s *S3BlobFlags) Validate() error {
	if s.Bucket == "" {
		return errors.New("S3 bucket is required (--s3-bucket or MENUHUB_S3_BUCKET)")
	}
	if s.PublicBaseURL == "" {
		return errors.New("S3 public base URL is required (--s3-public-base-url or MENUHUB_S3_PUBLIC_BASE_URL)")
	}
	return nil
}

// BootstrapFlags provisions the first master account on startup so a fresh
// deployment can be administered without touching the database by hand.
type BootstrapFlags struct {
	MasterID       string `help:"subject id (UUID) of the bootstrap master account" default:"" env:"MENUHUB_BOOTSTRAP_MASTER_ID"`
	MasterEmail    string `help:"email of the bootstrap master account" default:"" env:"MENUHUB_BOOTSTRAP_MASTER_EMAIL"`
	MasterPassword string `help:"password of the bootstrap master account" default:"" env:"MENUHUB_BOOTSTRAP_MASTER_PASSWORD"`
}

func (b *BootstrapFlags) enabled() bool {
	return b.MasterID != "" || b.MasterEmail != "" || b.MasterPassword != ""
}

func (b *BootstrapFlags) Validate() error {
	if !b.enabled() {
		return nil
	}
	if b.MasterID == "" || b.MasterEmail == "" || b.MasterPassword == "" {
		return errors.New("bootstrap requires master id, email and password together")
	}
	if _, err := uuid.Parse(b.MasterID); err != nil {
		return fmt.Errorf("bootstrap master id must be a UUID: %w", err)
	}
	return nil
}

func (c *ServerCmd) Run(globals *Globals) error {
	log := logger.Setup(globals.Debug)
	ctx := context.Background()

	log.Info().Str("version", globals.Version).Bool("debug", globals.Debug).Msg("Starting server")

	// Setup telemetry if enabled
	if c.Tracing {
		log.Info().Msg("Tracing is enabled")
		shutdown, err := telemetry.InitTelemetry(ctx, "menuhub-server", globals.Version)
		if err != nil {
			log.Warn().Err(err).Msg("Failed to initialize telemetry, continuing without metrics")
			shutdown = func(ctx context.Context) error { return nil }
		}
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := shutdown(shutdownCtx); err != nil {
				log.Error().Err(err).Msg("Failed to shutdown telemetry")
			}
		}()
	}

	// Create stores based on store type
	var (
		organizationStore store.OrganizationStore
		userStore         store.UserStore
		sessionStore      store.SessionStore
		menuImageStore    store.MenuImageStore
	)

	switch c.StoreType {
	case "postgres":
		if err := c.PostgresStore.Validate(); err != nil {
			return fmt.Errorf("failed to validate postgres flags: %w", err)
		}

		pool, err := postgresstore.NewPool(ctx, &postgresstore.PoolConfig{
			ConnString:      c.PostgresStore.ConnString,
			MaxConns:        c.PostgresStore.MaxConns,
			MinConns:        c.PostgresStore.MinConns,
			MaxConnLifetime: c.PostgresStore.MaxConnLifetime,
			MaxConnIdleTime: c.PostgresStore.MaxConnIdleTime,
		})
		if err != nil {
			return fmt.Errorf("failed to create store pool: %w", err)
		}
		defer pool.Close()

		if c.PostgresStore.AutoMigrate {
			if err := postgresstore.RunMigrations(ctx, pool); err != nil {
				return fmt.Errorf("failed to run migrations: %w", err)
			}
		}

		organizationStore = postgresstore.NewOrganizationStore(pool)
		userStore = postgresstore.NewUserStore(pool)
		sessionStore = postgresstore.NewSessionStore(pool)
		menuImageStore = postgresstore.NewMenuImageStore(pool)
		log.Info().Msg("Using PostgreSQL stores")

	default:
		organizationStore = memorystore.NewOrganizationStore()
		userStore = memorystore.NewUserStore()
		sessionStore = memorystore.NewSessionStore()
		menuImageStore = memorystore.NewMenuImageStore()
		log.Info().Msg("Using in-memory stores")
	}

	// Create the blob store backing menu image uploads
	var blobStore blob.Store

	switch c.BlobType {
	case "s3":
		if err := c.S3Blob.Validate(); err != nil {
			return fmt.Errorf("failed to validate s3 flags: %w", err)
		}

		s3Store, err := s3blob.NewStore(ctx, &s3blob.Config{
			Bucket:          c.S3Blob.Bucket,
			PublicBaseURL:   c.S3Blob.PublicBaseURL,
			Region:          c.S3Blob.Region,
			EndpointURL:     c.S3Blob.EndpointURL,
			AccessKeyID:     c.S3Blob.AccessKeyID,
			SecretAccessKey: c.S3Blob.SecretAccessKey,
		})
		if err != nil {
			return fmt.Errorf("failed to create s3 blob store: %w", err)
		}
		blobStore = s3Store
		log.Info().Str("bucket", c.S3Blob.Bucket).Msg("Using S3 blob store")

	default:
		blobStore = memoryblob.NewStore(fmt.Sprintf("http://%s/blobs", c.Listen))
		log.Warn().Msg("Using in-memory blob store; uploaded images do not survive restarts")
	}

	menuManager := menu.NewManager(menuImageStore, blobStore)

	// Identity and authorization
	resolver := auth.NewResolver(sessionStore, userStore)
	engine := auth.NewEngine(organizationStore)
	gate := auth.NewGate(resolver, engine)

	provider := login.NewStaticProvider()

	if err := c.Bootstrap.Validate(); err != nil {
		return err
	}
	if c.Bootstrap.enabled() {
		if err := bootstrapMaster(ctx, provider, userStore, c.Bootstrap); err != nil {
			return fmt.Errorf("failed to bootstrap master account: %w", err)
		}
	}

	if c.Dev {
		if err := seedDevData(ctx, provider, organizationStore, userStore, log); err != nil {
			return fmt.Errorf("failed to seed development data: %w", err)
		}
	}

	loginHandler, err := login.NewHandler(provider, login.Stores{
		Sessions: sessionStore,
		Users:    userStore,
		Orgs:     organizationStore,
	}, c.SessionTTL)
	if err != nil {
		return fmt.Errorf("failed to create login handler: %w", err)
	}

	mux := http.NewServeMux()

	website.NewHandlers(organizationStore, userStore, menuManager).Register(mux)

	// Client IP middleware for session audit metadata
	clientIPMiddleware := httpmiddleware.ClientIPMiddleware()

	mux.Handle("POST /login", http.HandlerFunc(loginHandler.LoginHandler))
	mux.Handle("POST /logout", http.HandlerFunc(loginHandler.LogoutHandler))

	login.StartSessionCleanup(ctx, sessionStore, c.SessionCleanupInterval)

	// CSRF protection for cookie-authenticated routes; the public menu API
	// gets CORS instead so other sites can embed menus.
	protection := csrf.New()

	routed := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if isAPIRoute(r.URL.Path) {
			withCORS(c.CORSOrigins, mux).ServeHTTP(w, r)
		} else {
			protection.Handler(mux).ServeHTTP(w, r)
		}
	})

	handler := httpmiddleware.RequestLogger(log)(
		clientIPMiddleware(
			gate.Middleware()(routed)))

	if c.Cert != "" || c.Key != "" {
		if _, err := os.Stat(c.Cert); err != nil {
			return fmt.Errorf("TLS certificate not found at %s: %w", c.Cert, err)
		}
		if _, err := os.Stat(c.Key); err != nil {
			return fmt.Errorf("TLS key not found at %s: %w", c.Key, err)
		}
		log.Info().Str("addr", c.Listen).Msg("Starting HTTPS server")
		return configureHTTPServer(c.Listen, handler).ListenAndServeTLS(c.Cert, c.Key)
	}

	log.Warn().Str("addr", c.Listen).Msg("Starting HTTP server without TLS; use --cert and --key in production")
	return configureHTTPServer(c.Listen, handler).ListenAndServe()
}

// isAPIRoute returns true if the path belongs to the public API, which gets
// CORS instead of CSRF protection.
func isAPIRoute(path string) bool {
	return strings.HasPrefix(path, "/api/")
}

// withCORS adds CORS support for the read-only public menu API.
func withCORS(allowedOrigins []string, h http.Handler) http.Handler {
	middleware := cors.New(cors.Options{
		AllowedOrigins: allowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodHead},
	})
	return middleware.Handler(h)
}

// bootstrapMaster provisions the configured master account and its
// credentials. Safe to run on every startup.
func bootstrapMaster(ctx context.Context, provider *login.StaticProvider, users store.UserStore, flags BootstrapFlags) error {
	masterID, err := uuid.Parse(flags.MasterID)
	if err != nil {
		return err
	}

	user := &models.UserAccount{
		ID:        masterID,
		IsMaster:  true,
		CreatedAt: time.Now(),
	}
	if err := users.Create(ctx, user); err != nil && !errors.Is(err, store.ErrUserAlreadyExists) {
		return err
	}

	provider.Register(flags.MasterEmail, flags.MasterPassword, masterID)

	return nil
}

// seedDevData creates a demo tenant with one master and one organization
// account so the admin areas are reachable out of the box.
func seedDevData(ctx context.Context, provider *login.StaticProvider, orgs store.OrganizationStore, users store.UserStore, log zerolog.Logger) error {
	now := time.Now()

	orgID, err := uuid.NewV7()
	if err != nil {
		return err
	}

	org := &models.Organization{
		ID:        orgID,
		Slug:      "demo-restaurant",
		Name:      "Demo Restaurant",
		WhatsApp:  "+15550100",
		Instagram: "demo.restaurant",
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := orgs.Create(ctx, org); err != nil && !errors.Is(err, store.ErrSlugAlreadyExists) {
		return err
	}

	masterID, err := uuid.NewV7()
	if err != nil {
		return err
	}
	if err := users.Create(ctx, &models.UserAccount{ID: masterID, IsMaster: true, CreatedAt: now}); err != nil {
		return err
	}
	provider.Register("master@menuhub.local", "master", masterID)

	orgUserID, err := uuid.NewV7()
	if err != nil {
		return err
	}
	if err := users.Create(ctx, &models.UserAccount{ID: orgUserID, OrganizationID: &org.ID, CreatedAt: now}); err != nil {
		return err
	}
	provider.Register("demo@menuhub.local", "demo", orgUserID)

	log.Warn().
		Str("master_email", "master@menuhub.local").
		Str("org_email", "demo@menuhub.local").
		Str("org_slug", org.Slug).
		Msg("Development accounts seeded; do not use in production")

	return nil
}
