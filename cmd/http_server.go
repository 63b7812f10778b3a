package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/go-chi/chi"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	"github.com/spf13/cobra"
	gormpostgres "gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/frahmantamala/order-fulfillment/internal"
	"github.com/frahmantamala/order-fulfillment/internal/catalog"
	catalogrepo "github.com/frahmantamala/order-fulfillment/internal/catalog/postgres"
	"github.com/frahmantamala/order-fulfillment/internal/core/events"
	"github.com/frahmantamala/order-fulfillment/internal/order"
	orderrepo "github.com/frahmantamala/order-fulfillment/internal/order/postgres"
	"github.com/frahmantamala/order-fulfillment/internal/payment"
	paymentrepo "github.com/frahmantamala/order-fulfillment/internal/payment/postgres"
	"github.com/frahmantamala/order-fulfillment/internal/razorpay"
	"github.com/frahmantamala/order-fulfillment/internal/shipping"
	shippingrepo "github.com/frahmantamala/order-fulfillment/internal/shipping/postgres"
	"github.com/frahmantamala/order-fulfillment/internal/transport"
	"github.com/frahmantamala/order-fulfillment/internal/transport/rest"
	"github.com/frahmantamala/order-fulfillment/pkg/logger"
)

var httpServerCmd = &cobra.Command{
	Use:   "server",
	Short: "Start HTTP server",
	Long:  `Start the HTTP server to handle API requests`,
	Run: func(cmd *cobra.Command, args []string) {
		startHTTPServer()
	},
}

type Dependencies struct {
	Config *internal.Config
	DB     *sqlx.DB
	GormDB *gorm.DB
	Router *chi.Mux
	Logger *slog.Logger
}

func startHTTPServer() {
	deps, err := initializeDependencies()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize dependencies: %v\n", err)
		os.Exit(1)
	}

	validateOpenAPISpec(deps.Logger)
	wireRoutes(deps)

	addr := fmt.Sprintf(":%d", deps.Config.Server.Port)
	deps.Logger.Info("starting HTTP server", "address", addr)

	server := &http.Server{
		Addr:              addr,
		Handler:           deps.Router,
		ReadHeaderTimeout: deps.Config.Server.ReadHeaderTimeout,
		ReadTimeout:       deps.Config.Server.ReadTimeout,
		WriteTimeout:      deps.Config.Server.WriteTimeout,
		IdleTimeout:       deps.Config.Server.IdleTimeout,
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	serverErrChan := make(chan error, 1)
	go func() {
		serverErrChan <- server.ListenAndServe()
	}()

	select {
	case sig := <-sigChan:
		deps.Logger.Info("received signal, shutting down", "signal", sig)
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := server.Shutdown(ctx); err != nil {
			deps.Logger.Error("server shutdown error", "error", err)
		}
		if err := deps.DB.Close(); err != nil {
			deps.Logger.Error("database close error", "error", err)
		}
	case err := <-serverErrChan:
		if err != nil && err != http.ErrServerClosed {
			deps.Logger.Error("server failed to start", "error", err)
			os.Exit(1)
		}
	}

	deps.Logger.Info("server stopped")
}

// wireRoutes builds the full dependency graph: repositories over gorm,
// services, the in-process event bus and the HTTP handlers.
func wireRoutes(deps *Dependencies) {
	cfg := deps.Config
	lg := deps.Logger

	eventBus := events.NewEventBus(lg)
	gateway := razorpay.NewClient(cfg.Razorpay, lg)

	catalogRepo := catalogrepo.NewCatalogRepository(deps.GormDB)
	catalogService := catalog.NewService(catalogRepo, lg)

	orderRepo := orderrepo.NewOrderRepository(deps.GormDB)
	orderService := order.NewService(orderRepo, gateway, catalogService, lg)
	orderHandler := order.NewHandler(orderService, lg)

	shipmentRepo := shippingrepo.NewShipmentRepository(deps.GormDB)
	provider := shipping.NewClient(cfg.Shipping, lg)
	shippingService := shipping.NewService(provider, shipmentRepo, orderRepo, catalogService, gateway, eventBus, cfg.Shipping, lg)
	shippingHandler := shipping.NewHandler(shippingService, lg)

	paymentRepo := paymentrepo.NewPaymentRepository(deps.GormDB)
	webhookEventRepo := paymentrepo.NewWebhookEventRepository(deps.GormDB)
	paymentService := payment.NewService(orderRepo, paymentRepo, webhookEventRepo, gateway, shippingService, eventBus, lg)
	paymentHandler := payment.NewHandler(paymentService, lg)
	webhookHandler := payment.NewWebhookHandler(transport.NewBaseHandler(lg), paymentService, gateway, lg)

	shippingEvents := shipping.NewEventHandler(shippingService, orderRepo, lg)
	shippingEvents.RegisterEventHandlers(eventBus)

	rest.RegisterAllRoutes(deps.Router, deps.DB.DB, cfg, orderHandler, paymentHandler, webhookHandler, shippingHandler, lg)
}

// validateOpenAPISpec sanity-checks the published contract at startup so a
// broken spec is caught at boot, not by the first swagger reader.
func validateOpenAPISpec(lg *slog.Logger) {
	loader := openapi3.NewLoader()
	doc, err := loader.LoadFromFile("api/openapi.yml")
	if err == nil {
		err = doc.Validate(loader.Context)
	}
	if err != nil {
		lg.Warn("OpenAPI spec failed validation", "error", err)
		return
	}
	lg.Info("OpenAPI spec validated", "title", doc.Info.Title, "version", doc.Info.Version)
}

func initializeDependencies() (*Dependencies, error) {
	config, err := loadConfig(".")
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	db, err := initDB(config.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	gormDB, err := initGorm(db)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize ORM: %w", err)
	}

	if config.Observability.Logging.Format == "json" {
		logger.Init("production")
	} else {
		logger.Init("development")
	}

	return &Dependencies{
		Config: config,
		Logger: logger.LoggerWrapper(),
		DB:     db,
		GormDB: gormDB,
		Router: chi.NewRouter(),
	}, nil
}

// initDB opens the pgx connection pool used for health checks and migrations.
func initDB(cfg internal.DatabaseConfig) (*sqlx.DB, error) {
	const driver = "pgx"

	dbConn, err := sqlx.Connect(driver, cfg.Source)
	if err != nil {
		return nil, fmt.Errorf("failed to open db connection: %w", err)
	}

	dbConn.SetMaxIdleConns(cfg.MaxIdleConns)
	dbConn.SetMaxOpenConns(cfg.MaxOpenConns)

	if err := dbConn.Ping(); err != nil {
		_ = dbConn.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return dbConn, nil
}

// initGorm layers the ORM over the already-open pool so both share one set
// of connections. TranslateError turns driver unique violations into
// gorm.ErrDuplicatedKey, which the repositories rely on.
func initGorm(db *sqlx.DB) (*gorm.DB, error) {
	return gorm.Open(gormpostgres.New(gormpostgres.Config{Conn: db.DB}), &gorm.Config{
		TranslateError: true,
	})
}
