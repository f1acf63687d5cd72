package main

import (
	"context"
	"errors"
	"github.com/ariefcatur/go-storefront/internal/auth"
	"github.com/ariefcatur/go-storefront/internal/carts"
	"github.com/ariefcatur/go-storefront/internal/catalog"
	"github.com/ariefcatur/go-storefront/internal/config"
	"github.com/ariefcatur/go-storefront/internal/discounts"
	"github.com/ariefcatur/go-storefront/internal/httpx"
	"github.com/ariefcatur/go-storefront/internal/inventory"
	kafkax "github.com/ariefcatur/go-storefront/internal/kafka"
	"github.com/ariefcatur/go-storefront/internal/media"
	"github.com/ariefcatur/go-storefront/internal/notify"
	"github.com/ariefcatur/go-storefront/internal/orders"
	"github.com/ariefcatur/go-storefront/internal/postgres"
	"github.com/ariefcatur/go-storefront/internal/redisx"
	"github.com/ariefcatur/go-storefront/internal/telemetry"
	"github.com/ariefcatur/go-storefront/internal/users"
	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"
)

func main() {
	_ = godotenv.Load()
	log.SetFormatter(&log.JSONFormatter{})

	cfg, err := config.Load()
	if err != nil {
		log.WithError(err).Fatal("config")
	}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	shutdownTracing, err := telemetry.Setup(ctx, cfg.ServiceName, cfg.OtelExporter, cfg.OtelEndpoint)
	if err != nil {
		log.WithError(err).Fatal("telemetry setup")
	}

	// DB
	if err := postgres.Migrate(cfg.PostgresDSN); err != nil {
		log.WithError(err).Fatal("db migrate")
	}
	db, err := postgres.Connect(ctx, cfg.PostgresDSN, cfg.PostgresMaxConns)
	if err != nil {
		log.WithError(err).Fatal("db connect")
	}
	defer db.Close()
	tx := &postgres.TxManager{DB: db}

	// Redis
	rdb := redisx.New(cfg.RedisAddr)
	defer rdb.Close()
	progress := redisx.NewProgress(rdb)

	// Object storage
	store, err := media.NewS3(ctx, media.S3Config{
		Bucket:        cfg.S3Bucket,
		Region:        cfg.S3Region,
		Endpoint:      cfg.S3Endpoint,
		PublicBaseURL: cfg.S3PublicBaseURL,
		AccessKey:     cfg.S3AccessKey,
		SecretKey:     cfg.S3SecretKey,
	})
	if err != nil {
		log.WithError(err).Fatal("s3 client")
	}
	uploader := &media.Uploader{Store: store, Progress: progress}
	folders := catalog.Folders{
		CategoryBanner: cfg.CategoryBannerFolder,
		CategoryIcon:   cfg.CategoryIconFolder,
		ProductImage:   cfg.ProductImageFolder,
		HeroSlider:     cfg.HeroSliderFolder,
	}

	// Domain services
	discountRepo := &discounts.Repo{DB: db}
	discountSvc := discounts.NewService(discountRepo, tx)
	stock := inventory.NewService(&inventory.Repo{DB: db}, tx)
	products := catalog.NewProductService(&catalog.ProductRepo{DB: db}, discounts.NewResolver(discountRepo), stock, uploader, folders)
	categories := catalog.NewCategoryService(&catalog.CategoryRepo{DB: db}, redisx.NewCache(rdb), cfg.CategoryCacheTTL, uploader, folders)
	discountSvc.OnChange(categories.Invalidate)
	slider := catalog.NewSliderService(&catalog.SlideRepo{DB: db}, uploader, folders.HeroSlider)
	cartSvc := carts.NewService(&carts.Repo{DB: db}, tx, products, stock)
	shipping := orders.NewShippingService(&orders.ShippingRepo{DB: db})

	tokens := auth.NewTokens(cfg.AccessTokenSecret, cfg.RefreshTokenSecret)
	userSvc := users.NewService(&users.Repo{DB: db}, tx, cartSvc, tokens, providers(cfg))

	notifier, err := notify.New(notify.NewSMTP(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUser, cfg.SMTPPass), cfg.AdminEmail, rdb, cfg.ServiceName)
	if err != nil {
		log.WithError(err).Fatal("mail templates")
	}

	orderSvc := &orders.Service{
		Repo:     &orders.Repo{DB: db},
		Tx:       tx,
		Carts:    cartSvc,
		Products: products,
		Stock:    stock,
		Coupons:  discountSvc,
		Shipping: shipping,
		Redis:    rdb,
		Producer: cfg.ServiceName,
	}

	// Kafka: events out, notification consumer in. Tanpa broker, notifikasi
	// dikirim langsung dari proses ini.
	var prod *kafkax.Producer
	consumerDone := make(chan struct{})
	if brokers := cfg.KafkaBrokers(); len(brokers) > 0 {
		prod = kafkax.NewProducer(brokers, 1024)
		prod.Start(ctx)
		orderSvc.Publisher = orders.KafkaPublisher{Producer: prod}

		consumer := kafkax.NewConsumer(brokers, cfg.NotifyGroup, orders.Topics, cfg.NotifyWorkers)
		go func() {
			defer close(consumerDone)
			if err := consumer.Start(ctx, notifier.HandleMessage); err != nil {
				log.WithError(err).Error("notification consumer stopped")
			}
		}()
	} else {
		orderSvc.Publisher = notifier.Direct()
		close(consumerDone)
	}

	// HTTP
	guard := &httpx.Auth{Tokens: tokens}
	cookies := auth.Cookies{Secure: cfg.CookieSecure}
	router := httpx.NewRouter()
	httpx.Mount(router, &httpx.EventsHandler{Progress: progress},
		&httpx.AuthHandler{Users: userSvc, Cookies: cookies, Auth: guard},
		&httpx.CatalogHandler{Categories: categories, Products: products, Inventories: stock, Slider: slider, Auth: guard},
		&httpx.InventoryHandler{Inventories: stock, Auth: guard},
		&httpx.CartHandler{Carts: cartSvc, Cookies: cookies, Auth: guard},
		&httpx.OrdersHandler{Orders: orderSvc, Cookies: cookies, Auth: guard},
		&httpx.PricingHandler{Discounts: discountSvc, Shipping: shipping, Auth: guard},
	)

	srv := &http.Server{Addr: cfg.HTTPAddr, Handler: otelhttp.NewHandler(router, cfg.ServiceName)}

	// graceful shutdown
	go func() {
		log.WithField("addr", cfg.HTTPAddr).Info("HTTP listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Fatal("listen")
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	log.Info("shutting down...")

	ctx2, cancel2 := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel2()
	_ = srv.Shutdown(ctx2)
	if prod != nil {
		prod.Close() // stop terima pesan baru, flush sisa inbox, tutup writer
	}
	cancel()
	if prod != nil {
		prod.WaitClosed()
	}
	<-consumerDone
	if err := shutdownTracing(ctx2); err != nil {
		log.WithError(err).Warn("tracer shutdown")
	}
}

// providers registers only the social logins that have credentials.
func providers(cfg config.Config) *auth.Registry {
	callback := func(name string) string { return cfg.BaseAPIURL + "/auth/login/" + name + "/callback" }
	var ps []auth.Provider
	if c := (auth.ClientConfig{ClientID: cfg.GoogleClientID, ClientSecret: cfg.GoogleClientSecret, RedirectURL: callback("google")}); c.Enabled() {
		ps = append(ps, auth.NewGoogle(c))
	}
	if c := (auth.ClientConfig{ClientID: cfg.FacebookClientID, ClientSecret: cfg.FacebookClientSecret, RedirectURL: callback("facebook")}); c.Enabled() {
		ps = append(ps, auth.NewFacebook(c))
	}
	if c := (auth.ClientConfig{ClientID: cfg.GithubClientID, ClientSecret: cfg.GithubClientSecret, RedirectURL: callback("github")}); c.Enabled() {
		ps = append(ps, auth.NewGithub(c))
	}
	reg := auth.NewRegistry(ps...)
	log.WithField("providers", reg.Names()).Info("social login")
	return reg
}
