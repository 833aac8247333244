package main

import (
	"database/sql"
	"log"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	jwtware "github.com/gofiber/jwt/v2"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	"github.com/dukahub/duka-backend/internal/cart"
	"github.com/dukahub/duka-backend/internal/category"
	"github.com/dukahub/duka-backend/internal/config"
	"github.com/dukahub/duka-backend/internal/mpesa"
	"github.com/dukahub/duka-backend/internal/order"
	"github.com/dukahub/duka-backend/internal/payment"
	"github.com/dukahub/duka-backend/internal/pickup"
	"github.com/dukahub/duka-backend/internal/product"
	"github.com/dukahub/duka-backend/internal/ratelimit"
	"github.com/dukahub/duka-backend/internal/user"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load()

	app := fiber.New()
	setupCORS(app)

	db := mustOpenDB(cfg.DatabaseURL)
	defer db.Close()
	ensureSchema(db)

	limiter := buildLimiter(cfg)

	userService := user.NewService(user.NewPostgresRepository(db))
	userHandler := user.NewHandler(userService, limiter)

	categoryHandler := category.NewHandler(category.NewService(category.NewPostgresRepository(db)))
	pickupHandler := pickup.NewHandler(pickup.NewService(pickup.NewPostgresRepository(db)))

	productService := product.NewService(product.NewPostgresRepository(db))
	productHandler := product.NewHandler(productService)

	// cart needs the product service for the courtesy stock check at add time
	cartHandler := cart.NewHandler(cart.NewService(cart.NewPostgresRepository(db), productService))

	orderService := order.NewService(order.NewPostgresRepository(db))
	orderHandler := order.NewHandler(orderService)

	gateway := mpesa.NewClient(cfg.Mpesa)
	paymentService := payment.NewService(payment.NewPostgresRepository(db), orderService, gateway)
	paymentHandler := payment.NewHandler(paymentService)

	// public routes before the JWT middleware: auth endpoints, catalog reads
	// and the gateway callback
	userHandler.RegisterPublicRoutes(app)
	categoryHandler.RegisterPublicRoutes(app)
	pickupHandler.RegisterPublicRoutes(app)
	productHandler.RegisterPublicRoutes(app)
	paymentHandler.RegisterPublicRoutes(app)

	app.Use(jwtware.New(jwtware.Config{
		SigningKey: []byte(cfg.JWTSecret),
	}))

	userHandler.RegisterProtectedRoutes(app)
	categoryHandler.RegisterProtectedRoutes(app)
	pickupHandler.RegisterProtectedRoutes(app)
	productHandler.RegisterProtectedRoutes(app)
	cartHandler.RegisterProtectedRoutes(app)
	orderHandler.RegisterProtectedRoutes(app)
	paymentHandler.RegisterProtectedRoutes(app)

	log.Fatal(app.Listen(cfg.Addr))
}

func setupCORS(app *fiber.App) {
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST,HEAD,PUT,DELETE,PATCH",
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
	}))
}

func mustOpenDB(dbURL string) *sql.DB {
	if dbURL == "" {
		panic("DATABASE_URL is not set")
	}

	db, err := sql.Open("pgx", dbURL)
	if err != nil {
		panic(err)
	}

	if err := db.Ping(); err != nil {
		panic(err)
	}

	return db
}

func buildLimiter(cfg config.Config) ratelimit.Limiter {
	if cfg.RedisAddr == "" {
		log.Println("REDIS_ADDR not set, rate limiting disabled")
		return ratelimit.NopLimiter{}
	}
	client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	// 5 attempts per 15 minutes matches the reset-token lifetime
	return ratelimit.NewRedisLimiter(client, 5, 15*time.Minute)
}

func ensureSchema(db *sql.DB) {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS users (
			user_id SERIAL PRIMARY KEY,
			email TEXT NOT NULL UNIQUE,
			password TEXT NOT NULL,
			name TEXT NOT NULL DEFAULT '',
			phone TEXT NOT NULL DEFAULT '',
			role TEXT NOT NULL DEFAULT 'customer',
			reset_token_hash TEXT,
			reset_expires_at TEXT,
			created_at TEXT NOT NULL DEFAULT '',
			updated_at TEXT NOT NULL DEFAULT ''
		)`,
		`CREATE TABLE IF NOT EXISTS categories (
			category_id SERIAL PRIMARY KEY,
			name TEXT NOT NULL,
			description TEXT
		)`,
		`CREATE TABLE IF NOT EXISTS products (
			product_id SERIAL PRIMARY KEY,
			name TEXT NOT NULL,
			category_id INT,
			price NUMERIC NOT NULL DEFAULT 0,
			description TEXT,
			stock_quantity INT NOT NULL DEFAULT 0,
			is_active BOOLEAN NOT NULL DEFAULT TRUE,
			created_at TEXT NOT NULL DEFAULT '',
			updated_at TEXT NOT NULL DEFAULT ''
		)`,
		`CREATE TABLE IF NOT EXISTS pickup_locations (
			location_id SERIAL PRIMARY KEY,
			name TEXT NOT NULL,
			address TEXT NOT NULL DEFAULT '',
			city TEXT NOT NULL DEFAULT '',
			is_active BOOLEAN NOT NULL DEFAULT TRUE
		)`,
		`CREATE TABLE IF NOT EXISTS cart_items (
			user_id INT NOT NULL,
			product_id INT NOT NULL,
			quantity INT NOT NULL,
			PRIMARY KEY (user_id, product_id)
		)`,
		`CREATE TABLE IF NOT EXISTS orders (
			order_id SERIAL PRIMARY KEY,
			order_number TEXT NOT NULL UNIQUE,
			user_id INT NOT NULL,
			order_status TEXT NOT NULL,
			total_price NUMERIC NOT NULL DEFAULT 0,
			delivery_method TEXT NOT NULL,
			ship_address TEXT,
			ship_city TEXT,
			ship_postal_code TEXT,
			pickup_location_id INT,
			created_at TEXT NOT NULL DEFAULT '',
			updated_at TEXT NOT NULL DEFAULT ''
		)`,
		`CREATE TABLE IF NOT EXISTS order_items (
			order_item_id SERIAL PRIMARY KEY,
			order_id INT NOT NULL,
			product_id INT NOT NULL,
			name TEXT NOT NULL,
			quantity INT NOT NULL,
			price NUMERIC NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS payments (
			payment_id SERIAL PRIMARY KEY,
			order_id INT NOT NULL,
			user_id INT NOT NULL,
			payment_method TEXT NOT NULL,
			amount NUMERIC NOT NULL,
			status TEXT NOT NULL,
			checkout_request_id TEXT,
			merchant_request_id TEXT,
			transaction_id TEXT,
			paid_at TEXT,
			created_at TEXT NOT NULL DEFAULT '',
			updated_at TEXT NOT NULL DEFAULT ''
		)`,
		// at most one open payment attempt per order
		`CREATE UNIQUE INDEX IF NOT EXISTS payments_one_pending
			ON payments (order_id) WHERE status = 'Pending'`,
		`CREATE INDEX IF NOT EXISTS payments_checkout_request
			ON payments (checkout_request_id)`,
	}
	for _, stmt := range stmts {
		if _, err := db.Exec(stmt); err != nil {
			panic(err)
		}
	}
}
