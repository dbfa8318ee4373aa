package main

import (
	"context"
	"errors"
	"expvar"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	httpSwagger "github.com/swaggo/http-swagger/v2"
	"go.uber.org/zap"

	"vitrine/docs" //this is required to generate swagger docs
	"vitrine/internal/auth"
	"vitrine/internal/cache"
	"vitrine/internal/domain/storage"
	"vitrine/internal/mailer"
	"vitrine/internal/ratelimiter"
	"vitrine/internal/upload"
)

type application struct {
	config        config
	store         *storage.Container
	logger        *zap.SugaredLogger
	uploads       upload.Handler
	cache         *cache.Tagged
	mailer        mailer.Client
	authenticator auth.Authenticator
	rateLimiter   ratelimiter.Limiter

	cleanupKick chan struct{}
	wg          sync.WaitGroup
}

type config struct {
	addr        string
	db          dbConfig
	env         string
	apiURL      string
	frontendURL string
	auth        authConfig
	upload      uploadConfig
	mail        mailConfig
	cache       cacheConfig
	rateLimiter ratelimiter.Config
	cleanup     cleanupConfig
}

type authConfig struct {
	basic basicConfig
	token tokenConfig
}
type tokenConfig struct {
	secret string
	exp    time.Duration
	iss    string
}
type basicConfig struct {
	user string
	pass string
}

type uploadConfig struct {
	driver        string // "local" or "cloudinary"
	dir           string
	baseURL       string
	cloudinaryURL string
}

type mailConfig struct {
	host      string
	port      int
	username  string
	password  string
	fromEmail string
}

type cacheConfig struct {
	ttl time.Duration
}

type cleanupConfig struct {
	interval    time.Duration
	batchSize   int
	maxAttempts int
}

type dbConfig struct {
	addr         string
	maxOpenConns int
	maxIdleConns int
	maxIdleTime  string
}

func (app *application) mount() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Use(cors.Handler(app.corsOptions()))

	if app.config.rateLimiter.Enabled {
		r.Use(app.RateLimiterMiddleware)
	}

	//Set a timeout value on the request context (ctx), that will signal through ctx.Done() that the request has timed out and further processing should be stopped
	r.Use(middleware.Timeout(60 * time.Second))

	// local driver: uploaded files are served by the api itself
	if local, ok := app.uploads.(*upload.Local); ok {
		r.Handle("/uploads/*", http.StripPrefix("/uploads/", http.FileServer(http.Dir(local.Root()))))
	}

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", app.healthCheckHandler)
		r.With(app.BasicAuthMiddleware()).Get("/debug/vars", expvar.Handler().ServeHTTP)

		docsURL := fmt.Sprintf("%s/api/docs/doc.json", app.config.apiURL)
		r.Get("/docs/*", httpSwagger.Handler(httpSwagger.URL(docsURL)))

		r.Route("/auth", func(r chi.Router) {
			r.Post("/login", app.loginHandler)
			r.Post("/logout", app.logoutHandler)
			r.With(app.AuthTokenMiddleware).Get("/session", app.sessionHandler)
		})

		// storefront
		r.Route("/public", func(r chi.Router) {
			r.Get("/settings", app.publicSettingsHandler)

			r.Group(func(r chi.Router) {
				r.Use(app.MaintenanceMiddleware)
				r.Get("/category", app.publicCategoriesHandler)
				r.Get("/banner", app.publicBannersHandler)
				r.Get("/product", app.publicProductsHandler)
				r.Get("/product/{slug}", app.publicProductHandler)
			})
		})

		// back-office
		r.Route("/private", func(r chi.Router) {
			r.Use(app.AuthTokenMiddleware)

			r.Route("/brand", func(r chi.Router) {
				r.Get("/", app.listBrandsHandler)
				r.Post("/", app.createBrandHandler)
				r.Get("/{id}", app.getBrandHandler)
				r.Patch("/{id}", app.updateBrandHandler)
				r.Delete("/{id}", app.deleteBrandHandler)
			})
			r.Route("/category", func(r chi.Router) {
				r.Get("/", app.listCategoriesHandler)
				r.Post("/", app.createCategoryHandler)
				r.Get("/{id}", app.getCategoryHandler)
				r.Patch("/{id}", app.updateCategoryHandler)
				r.Delete("/{id}", app.deleteCategoryHandler)
			})
			r.Route("/banner", func(r chi.Router) {
				r.Get("/", app.listBannersHandler)
				r.Post("/", app.createBannerHandler)
				r.Get("/{id}", app.getBannerHandler)
				r.Patch("/{id}", app.updateBannerHandler)
				r.Delete("/{id}", app.deleteBannerHandler)
			})
			r.Route("/product", func(r chi.Router) {
				r.Get("/", app.listProductsHandler)
				r.Post("/", app.createProductHandler)
				r.Get("/{id}", app.getProductHandler)
				r.Patch("/{id}", app.updateProductHandler)
				r.Delete("/{id}", app.deleteProductHandler)
			})
			r.Route("/social-media", func(r chi.Router) {
				r.Get("/", app.listSocialMediaHandler)
				r.Post("/", app.createSocialMediaHandler)
				r.Get("/{id}", app.getSocialMediaHandler)
				r.Patch("/{id}", app.updateSocialMediaHandler)
				r.Delete("/{id}", app.deleteSocialMediaHandler)
			})
			r.Route("/team", func(r chi.Router) {
				r.Get("/", app.listTeamHandler)
				r.Get("/{id}", app.getTeamMemberHandler)

				r.Group(func(r chi.Router) {
					r.Use(app.RequireAdmin)
					r.Post("/", app.createTeamMemberHandler)
					r.Patch("/{id}", app.updateTeamMemberHandler)
					r.Delete("/{id}", app.deleteTeamMemberHandler)
				})
			})
			r.Route("/settings", func(r chi.Router) {
				r.Get("/", app.getSettingsHandler)
				r.With(app.RequireAdmin).Patch("/", app.updateSettingsHandler)
			})
		})
	})
	return r
}

// corsOptions allows credentialed requests (the session cookie) only from
// the configured frontends. Without FRONTEND_URL any origin may call the API
// but browsers send no cookies; Bearer tokens still work.
func (app *application) corsOptions() cors.Options {
	opts := cors.Options{
		AllowedMethods: []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token"},
		ExposedHeaders: []string{"Link"},
		MaxAge:         300, // Maximum value not ignored by any of major browsers
	}
	for _, o := range strings.Split(app.config.frontendURL, ",") {
		if o = strings.TrimRight(strings.TrimSpace(o), "/"); o != "" {
			opts.AllowedOrigins = append(opts.AllowedOrigins, o)
		}
	}
	if len(opts.AllowedOrigins) == 0 {
		opts.AllowedOrigins = []string{"https://*", "http://*"}
		return opts
	}
	opts.AllowCredentials = true
	return opts
}

func (app *application) run(mux http.Handler) error {
	// Docs
	docs.SwaggerInfo.Version = version
	docs.SwaggerInfo.Host = strings.TrimPrefix(strings.TrimPrefix(app.config.apiURL, "https://"), "http://")
	docs.SwaggerInfo.BasePath = "/api"

	srv := &http.Server{
		Addr:         app.config.addr,
		Handler:      mux,
		WriteTimeout: time.Second * 60,
		ReadTimeout:  time.Second * 30, // multipart uploads
		IdleTimeout:  time.Minute,
	}

	// background workers live until shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	app.startCleanupSweeper(ctx)
	if rl, ok := app.rateLimiter.(*ratelimiter.FixedWindowRateLimiter); ok && app.config.rateLimiter.Enabled {
		go rl.Run(ctx)
	}

	// Implementing graceful shutdown
	shutdown := make(chan error)

	go func() {
		quit := make(chan os.Signal, 1)

		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		s := <-quit

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		app.logger.Infow("signal caught", "signal", s.String())

		shutdown <- srv.Shutdown(ctx)
	}()

	app.logger.Infow("server has started", "addr", app.config.addr, "env", app.config.env)

	err := srv.ListenAndServe()
	if !errors.Is(err, http.ErrServerClosed) {
		return err
	}

	err = <-shutdown
	if err != nil {
		return err
	}

	// pending notifications
	app.wg.Wait()

	app.logger.Infow("server has stopped", "addr", app.config.addr, "env", app.config.env)

	return nil
}
