package main

import (
	"context"
	"expvar"
	"fmt"
	"log"
	"os"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/cloudinary/cloudinary-go/v2"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"vitrine/internal/auth"
	"vitrine/internal/cache"
	"vitrine/internal/db"
	"vitrine/internal/domain/storage"
	"vitrine/internal/mailer"
	"vitrine/internal/ratelimiter"
	"vitrine/internal/upload"
)

// LoadRateLimiterConfig retrieves rate limiter settings from environment variables
func LoadRateLimiterConfig() ratelimiter.Config {
	// Default values
	defaultRequests := 200
	defaultEnabled := false

	// Retrieve request count with error handling
	requestsPerTimeFrame := defaultRequests
	if val, exists := os.LookupEnv("RATELIMITER_REQUESTS_COUNT"); exists {
		if parsedVal, err := strconv.Atoi(val); err == nil {
			requestsPerTimeFrame = parsedVal
		} else {
			fmt.Println("Invalid RATELIMITER_REQUESTS_COUNT, defaulting to", defaultRequests)
		}
	}

	// Retrieve enabled flag with error handling
	enabled := defaultEnabled
	if val, exists := os.LookupEnv("RATE_LIMITER_ENABLED"); exists {
		if parsedVal, err := strconv.ParseBool(val); err == nil {
			enabled = parsedVal
		} else {
			fmt.Println("Invalid RATE_LIMITER_ENABLED, defaulting to", defaultEnabled)
		}
	}

	return ratelimiter.Config{
		RequestsPerTimeFrame: requestsPerTimeFrame,
		TimeFrame:            5 * time.Second,
		Enabled:              enabled,
	}
}

// NewLogger creates a new zap logger with color.
func NewLogger() (*zap.SugaredLogger, error) {
	// Configure the encoder to be a console encoder with color
	encoderCfg := zap.NewProductionEncoderConfig()
	encoderCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	encoderCfg.EncodeLevel = zapcore.CapitalColorLevelEncoder // This adds color to log levels (INFO, WARN, ERROR)

	consoleEncoder := zapcore.NewConsoleEncoder(encoderCfg)

	level := zapcore.InfoLevel

	core := zapcore.NewCore(consoleEncoder, zapcore.NewMultiWriteSyncer(zapcore.AddSync(os.Stdout)), level)

	logger := zap.New(core)

	return logger.Sugar(), nil
}

func envInt(key string, fallback int) int {
	if v, err := strconv.Atoi(strings.TrimSpace(os.Getenv(key))); err == nil {
		return v
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v, err := time.ParseDuration(strings.TrimSpace(os.Getenv(key))); err == nil && v > 0 {
		return v
	}
	return fallback
}

func envString(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

var version = "1.0.0"

//	@title			Vitrine API
//	@description	Storefront and back-office API: catalog, banners, team and store settings.

//	@contact.name	API Support
//	@contact.email	contato@minhaloja.com.br

//	@BasePath					/api
//	@securityDefinitions.apikey	ApiKeyAuth
//	@in							header
//	@name						Authorization
//	@description

func main() {
	if err := godotenv.Load(); err != nil {
		log.Printf("no .env file loaded: %v", err)
	}

	cfg := config{
		addr:        envString("ADDR", ":8080"),
		env:         envString("ENV", "development"),
		frontendURL: os.Getenv("FRONTEND_URL"),
		apiURL:      envString("EXTERNAL_URL", "http://localhost:8080"),
		db: dbConfig{
			addr:         os.Getenv("DB_ADDR"),
			maxOpenConns: envInt("DB_MAX_OPEN_CONNS", 30),
			maxIdleConns: envInt("DB_MAX_IDLE_CONNS", 30),
			maxIdleTime:  envString("DB_MAX_IDLE_TIME", "15m"),
		},
		auth: authConfig{
			basic: basicConfig{
				user: os.Getenv("AUTH_BASIC_USER"),
				pass: os.Getenv("AUTH_BASIC_PASS"),
			},
			token: tokenConfig{
				secret: os.Getenv("AUTH_TOKEN_SECRET"),
				exp:    envDuration("AUTH_TOKEN_EXP", 4*time.Hour),
				iss:    envString("AUTH_TOKEN_ISS", "vitrine"),
			},
		},
		upload: uploadConfig{
			driver:        envString("UPLOAD_DRIVER", "local"),
			dir:           envString("UPLOAD_DIR", "./uploads"),
			baseURL:       envString("BACKEND_URL", "http://localhost:8080") + "/uploads",
			cloudinaryURL: os.Getenv("CLOUDINARY_URL"),
		},
		mail: mailConfig{
			host:      os.Getenv("SMTP_HOST"),
			port:      envInt("SMTP_PORT", 587),
			username:  os.Getenv("SMTP_USERNAME"),
			password:  os.Getenv("SMTP_PASSWORD"),
			fromEmail: envString("MAIL_FROM", "no-reply@minhaloja.com.br"),
		},
		cache: cacheConfig{
			ttl: envDuration("CACHE_TTL", 60*time.Second),
		},
		rateLimiter: LoadRateLimiterConfig(),
		cleanup: cleanupConfig{
			interval:    envDuration("CLEANUP_INTERVAL", time.Minute),
			batchSize:   50,
			maxAttempts: 5,
		},
	}

	// Logger
	logger, err := NewLogger()
	if err != nil {
		fmt.Println("Error creating logger:", err)
		return
	}
	defer logger.Sync()

	if cfg.frontendURL == "" {
		logger.Warn("FRONTEND_URL is not set: CORS allows any origin without credentials")
	}
	if cfg.auth.token.secret == "" {
		logger.Fatal("AUTH_TOKEN_SECRET is required")
	}

	// Database
	gdb, err := db.New(
		cfg.db.addr,
		cfg.db.maxOpenConns,
		cfg.db.maxIdleConns,
		cfg.db.maxIdleTime,
	)
	if err != nil {
		logger.Fatal(err)
	}
	defer db.Close(gdb)
	logger.Info("database connection pool established")

	if err := storage.Migrate(gdb); err != nil {
		logger.Fatal(err)
	}

	//storage
	store := storage.NewContainer(gdb)

	// file uploads
	var uploads upload.Handler
	switch cfg.upload.driver {
	case "cloudinary":
		cld, err := cloudinary.NewFromURL(cfg.upload.cloudinaryURL)
		if err != nil {
			logger.Fatal(err)
		}
		uploads = upload.NewCloudinary(cld, "vitrine")
	default:
		local, err := upload.NewLocal(cfg.upload.dir, cfg.upload.baseURL)
		if err != nil {
			logger.Fatal(err)
		}
		uploads = local
	}

	// public read cache
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	publicCache, err := cache.New(ctx, cfg.cache.ttl)
	if err != nil {
		logger.Fatal(err)
	}
	defer publicCache.Close()

	// mail notifications
	var mail mailer.Client = mailer.NewLogMailer(logger)
	if cfg.mail.host != "" {
		mail = mailer.NewSMTP(cfg.mail.host, cfg.mail.port, cfg.mail.username, cfg.mail.password, cfg.mail.fromEmail)
	}

	// Rate limiter
	rateLimiter := ratelimiter.NewFixedWindowLimiter(
		cfg.rateLimiter.RequestsPerTimeFrame,
		cfg.rateLimiter.TimeFrame,
	)

	// Authenticator
	jwtAuthenticator := auth.NewJWTAuthenticator(
		cfg.auth.token.secret,
		cfg.auth.token.iss,
		cfg.auth.token.iss,
		cfg.auth.token.exp,
	)

	app := &application{
		config:        cfg,
		logger:        logger,
		store:         store,
		uploads:       uploads,
		cache:         publicCache,
		mailer:        mail,
		authenticator: jwtAuthenticator,
		rateLimiter:   rateLimiter,
		cleanupKick:   make(chan struct{}, 1),
	}

	//Metrics collected http://localhost:8080/api/debug/vars
	expvar.NewString("version").Set(version)
	expvar.Publish("database", expvar.Func(func() any {
		sqlDB, err := gdb.DB()
		if err != nil {
			return nil
		}
		return sqlDB.Stats()
	}))
	expvar.Publish("goroutines", expvar.Func(func() any {
		return runtime.NumGoroutine()
	}))

	mux := app.mount()

	logger.Fatal(app.run(mux))
}
