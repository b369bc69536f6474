// Package integration exercises the assembled HTTP stack against real
// Postgres and MongoDB containers.
package integration

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"testing"
	"time"

	"storefront/internal/database"
	"storefront/internal/events"
	"storefront/internal/handler"
	"storefront/internal/model"
	"storefront/internal/payment"
	"storefront/internal/repository"
	"storefront/internal/router"
	"storefront/internal/service"
	"storefront/internal/settings"

	"github.com/alicebob/miniredis/v2"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	svix "github.com/svix/svix-webhooks/go"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/mongodb"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	testAPIKey        = "test-api-key"
	testWebhookSecret = "whsec_MfKQ9r8GKYqrTwjUPD8ILPZIo2LaLaSw"
)

// TestDB represents a migrated test database instance.
type TestDB struct {
	Container *postgres.PostgresContainer
	Pool      *pgxpool.Pool
	ConnStr   string
}

// SetupTestDB creates a PostgreSQL test container, applies the migrations
// and opens a connection pool.
func SetupTestDB(t *testing.T) *TestDB {
	t.Helper()

	ctx := context.Background()

	postgresContainer, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("testdb"),
		postgres.WithUsername("testuser"),
		postgres.WithPassword("testpass"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second)),
	)
	if err != nil {
		t.Fatalf("failed to start postgres container: %v", err)
	}

	connStr, err := postgresContainer.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		t.Fatalf("failed to get connection string: %v", err)
	}

	if err := database.Migrate(connStr, zerolog.Nop()); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}

	pool, err := pgxpool.New(ctx, connStr)
	if err != nil {
		t.Fatalf("failed to create connection pool: %v", err)
	}

	if err := pool.Ping(ctx); err != nil {
		t.Fatalf("failed to ping database: %v", err)
	}

	t.Cleanup(func() {
		pool.Close()
		if err := postgresContainer.Terminate(ctx); err != nil {
			t.Logf("failed to terminate container: %v", err)
		}
	})

	return &TestDB{
		Container: postgresContainer,
		Pool:      pool,
		ConnStr:   connStr,
	}
}

// SetupTestMongo creates a MongoDB test container holding the cart store.
func SetupTestMongo(t *testing.T) *mongo.Database {
	t.Helper()

	ctx := context.Background()

	mongoContainer, err := mongodb.Run(ctx, "mongo:7")
	if err != nil {
		t.Fatalf("failed to start mongo container: %v", err)
	}

	uri, err := mongoContainer.ConnectionString(ctx)
	if err != nil {
		t.Fatalf("failed to get mongo connection string: %v", err)
	}

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		t.Fatalf("failed to connect to mongo: %v", err)
	}

	db := client.Database("storefront_test")
	if err := repository.EnsureCartIndexes(ctx, db, zerolog.Nop()); err != nil {
		t.Fatalf("failed to create cart indexes: %v", err)
	}

	t.Cleanup(func() {
		_ = client.Disconnect(ctx)
		if err := mongoContainer.Terminate(ctx); err != nil {
			t.Logf("failed to terminate container: %v", err)
		}
	})

	return db
}

// SeedProducts inserts test product data into the database.
func SeedProducts(t *testing.T, pool *pgxpool.Pool) {
	t.Helper()

	ctx := context.Background()

	products := []struct {
		id       string
		name     string
		price    string
		category string
	}{
		{"P001", "Test Product 1", "10.00", "Category A"},
		{"P002", "Test Product 2", "20.00", "Category B"},
		{"P003", "Test Product 3", "30.00", "Category A"},
		{"P004", "Test Product 4", "40.00", "Category C"},
		{"P005", "Test Product 5", "50.00", "Category B"},
	}

	for _, p := range products {
		_, err := pool.Exec(ctx,
			"INSERT INTO products (id, name, price, category) VALUES ($1, $2, $3, $4)",
			p.id, p.name, decimal.RequireFromString(p.price), p.category,
		)
		if err != nil {
			t.Fatalf("failed to seed product %s: %v", p.id, err)
		}
	}
}

// CleanupDB cleans all data from test tables and the cart collection.
func CleanupDB(t *testing.T, pool *pgxpool.Pool, carts *mongo.Database) {
	t.Helper()

	ctx := context.Background()

	for _, table := range []string{"orders", "products"} {
		if _, err := pool.Exec(ctx, fmt.Sprintf("DELETE FROM %s", table)); err != nil {
			t.Logf("failed to clean table %s: %v", table, err)
		}
	}

	if _, err := carts.Collection("cart_lines").DeleteMany(ctx, bson.M{}); err != nil {
		t.Logf("failed to clean cart lines: %v", err)
	}
}

// FakeGateway is an in-memory payment gateway. Opened sessions are reported
// as paid on retrieval unless marked otherwise.
type FakeGateway struct {
	mu       sync.Mutex
	seq      int
	sessions map[string]*payment.SessionDetails
}

// NewFakeGateway creates an empty FakeGateway.
func NewFakeGateway() *FakeGateway {
	return &FakeGateway{sessions: make(map[string]*payment.SessionDetails)}
}

func (g *FakeGateway) CreateSession(_ context.Context, p payment.CreateSessionParams) (*payment.Session, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.seq++
	id := "cs_test_" + strconv.Itoa(g.seq)
	g.sessions[id] = &payment.SessionDetails{
		ID:            id,
		AmountTotal:   p.AmountMinor,
		Currency:      p.Currency,
		PaymentStatus: payment.PaymentStatusPaid,
		CustomerEmail: "buyer@example.com",
		CustomerName:  "Test Buyer",
		Region:        "GB",
		UserID:        p.UserID,
	}
	return &payment.Session{ID: id, ClientToken: id + "_secret"}, nil
}

func (g *FakeGateway) RetrieveSession(_ context.Context, sessionID string) (*payment.SessionDetails, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	s, ok := g.sessions[sessionID]
	if !ok {
		return nil, model.ErrGateway.Wrap(fmt.Errorf("no such checkout session: %s", sessionID))
	}
	details := *s
	return &details, nil
}

// SetPaymentStatus overrides the status reported for a session.
func (g *FakeGateway) SetPaymentStatus(sessionID, status string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if s, ok := g.sessions[sessionID]; ok {
		s.PaymentStatus = status
	}
}

// TestServer is the assembled HTTP stack plus the fakes behind it.
type TestServer struct {
	Handler http.Handler
	Gateway *FakeGateway
	DB      *TestDB
	Carts   *mongo.Database
}

// SetupTestServer wires the real repositories, services and router against
// the containers, with miniredis as settings cache and FakeGateway for payments.
func SetupTestServer(t *testing.T) *TestServer {
	t.Helper()

	logger := zerolog.Nop()
	testDB := SetupTestDB(t)
	carts := SetupTestMongo(t)

	mr := miniredis.RunT(t)
	cache := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = cache.Close() })

	defaults := model.PublicSettings{
		TaxRate:               decimal.RequireFromString("8.5"),
		ShippingRate:          decimal.RequireFromString("5.99"),
		FreeShippingThreshold: decimal.RequireFromString("50"),
		CartLimit:             3,
	}
	loader := settings.NewFallbackLoader(nil, settings.NewFileLoader(logger), "", false, logger)
	provider := settings.NewCachedProvider(cache, loader, "testdata/missing.json", defaults, time.Minute, logger)

	verifier, err := payment.NewSvixVerifier(testWebhookSecret)
	if err != nil {
		t.Fatalf("failed to create verifier: %v", err)
	}
	gateway := NewFakeGateway()

	productRepo := repository.NewProductRepository(testDB.Pool, logger)
	orderRepo := repository.NewOrderRepository(testDB.Pool, logger)
	cartRepo := repository.NewCartRepository(carts, logger)

	productService := service.NewProductService(productRepo, logger)
	cartService := service.NewCartService(cartRepo, productRepo, provider, logger)
	checkoutService := service.NewCheckoutService(cartService, provider, gateway, service.CheckoutOptions{
		Currency:  "usd",
		ReturnURL: "http://localhost/return?session_id={CHECKOUT_SESSION_ID}",
		Label:     "Storefront order",
	}, logger)
	settlementService := service.NewSettlementService(verifier, gateway, cartRepo, orderRepo, events.NewNopPublisher(), logger)
	orderService := service.NewOrderService(orderRepo, productRepo, logger)

	h := router.New(router.Handlers{
		Product:  handler.NewProductHandler(productService, logger),
		Cart:     handler.NewCartHandler(cartService, logger),
		Checkout: handler.NewCheckoutHandler(checkoutService, logger),
		Order:    handler.NewOrderHandler(orderService, logger),
		Webhook:  handler.NewWebhookHandler(settlementService, 1<<16, logger),
	}, testAPIKey, logger)

	return &TestServer{Handler: h, Gateway: gateway, DB: testDB, Carts: carts}
}

// completedEvent builds a checkout.session.completed payload for sessionID.
func completedEvent(eventID, sessionID string) []byte {
	return []byte(fmt.Sprintf(
		`{"id":%q,"object":"event","type":"checkout.session.completed","data":{"object":{"id":%q,"object":"checkout.session"}}}`,
		eventID, sessionID,
	))
}

// signWebhook returns the svix headers for payload.
func signWebhook(t *testing.T, msgID string, payload []byte) http.Header {
	t.Helper()

	wh, err := svix.NewWebhook(testWebhookSecret)
	if err != nil {
		t.Fatalf("failed to create signer: %v", err)
	}
	now := time.Now()
	sig, err := wh.Sign(msgID, now, payload)
	if err != nil {
		t.Fatalf("failed to sign payload: %v", err)
	}

	h := http.Header{}
	h.Set("svix-id", msgID)
	h.Set("svix-timestamp", strconv.FormatInt(now.Unix(), 10))
	h.Set("svix-signature", sig)
	return h
}
