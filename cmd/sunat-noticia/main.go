package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/go-pkgz/lgr"
	"github.com/jessevdk/go-flags"

	"github.com/nmitic/sunat-noticia/pkg/ads"
	"github.com/nmitic/sunat-noticia/pkg/config"
	"github.com/nmitic/sunat-noticia/pkg/content"
	"github.com/nmitic/sunat-noticia/pkg/repository"
	"github.com/nmitic/sunat-noticia/pkg/scheduler"
	"github.com/nmitic/sunat-noticia/pkg/scraper"
	"github.com/nmitic/sunat-noticia/pkg/sse"
	"github.com/nmitic/sunat-noticia/server"
)

// Opts with all CLI options
type Opts struct {
	Config string `short:"f" long:"config" env:"CONFIG" default:"sunat-noticia.yml" description:"config file"`
	Listen string `short:"l" long:"listen" env:"LISTEN" description:"listen address, overrides config"`

	// Common options
	Debug   bool `long:"dbg" env:"DEBUG" description:"debug mode"`
	Version bool `short:"V" long:"version" description:"show version info"`
	NoColor bool `long:"no-color" env:"NO_COLOR" description:"disable color output"`
}

var revision = "unknown"

func main() {
	var opts Opts
	parser := flags.NewParser(&opts, flags.Default)
	if _, err := parser.Parse(); err != nil {
		if flagsErr, ok := err.(*flags.Error); ok && flagsErr.Type == flags.ErrHelp {
			os.Exit(0)
		}
		os.Exit(1)
	}

	if opts.Version {
		fmt.Printf("Version: %s\nGolang: %s\n", revision, runtime.Version())
		os.Exit(0)
	}

	cfg, err := config.Load(opts.Config)
	if err != nil {
		log.Printf("[ERROR] can't load config: %v", err)
		os.Exit(1)
	}
	if opts.Listen != "" {
		cfg.Server.Listen = opts.Listen
	}

	setupLog(opts.Debug, cfg.Scrapers.Facebook.AccessToken)
	log.Printf("[INFO] starting sunat-noticia version %s", revision)

	ctx, cancel := context.WithCancel(context.Background())

	// handle termination signals
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
		<-sigChan
		log.Print("[INFO] termination signal received")
		cancel()
	}()

	if err := run(ctx, cfg, opts.Debug); err != nil {
		log.Printf("[ERROR] %v", err)
		cancel()
		os.Exit(1)
	}
	cancel()
	log.Print("[INFO] shutdown complete")
}

// run wires storage, scrapers, scheduler and the HTTP server together and
// blocks until ctx is canceled
func run(ctx context.Context, cfg *config.Config, debug bool) error {
	repos, err := repository.NewRepositories(ctx, repository.Config{
		DSN:             cfg.Database.DSN,
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		ConnMaxLifetime: time.Duration(cfg.Database.ConnMaxLifetime) * time.Second,
	})
	if err != nil {
		return fmt.Errorf("init database: %w", err)
	}
	defer func() {
		if err := repos.Close(); err != nil {
			log.Printf("[WARN] can't close database: %v", err)
		}
	}()

	sched, err := makeScheduler(cfg, repos)
	if err != nil {
		return err
	}
	if err := sched.Start(ctx); err != nil {
		return fmt.Errorf("start scheduler: %w", err)
	}
	defer sched.Stop()

	pool := ads.NewPool(cfg.Ads.PoolAds(time.Now()))
	injector := ads.NewInjector(pool, cfg.Ads.InjectorConfig())
	live := sse.NewBroadcaster()

	srv := server.New(server.Config{
		Listen:  cfg.Server.Listen,
		Timeout: cfg.Server.Timeout,
		Version: revision,
		Debug:   debug,
	}, repos.News, repos.Run, sched, live, injector)

	if err := srv.Run(ctx); err != nil {
		return fmt.Errorf("server failed: %w", err)
	}
	return nil
}

// makeScheduler builds the runners for every configured scraper
func makeScheduler(cfg *config.Config, repos *repository.Repositories) (*scheduler.Scheduler, error) {
	client := scraper.NewHTTPClient(30 * time.Second)
	extractor := content.NewHTTPExtractor(cfg.Extraction.Timeout)

	store := scraperStore{NewsRepository: repos.News, RunRepository: repos.Run}

	mk := func(src scraper.Source, name string, sc config.ScraperConfig) *scraper.Runner {
		return scraper.NewRunner(src, scraper.Config{Name: name, Schedule: sc.Schedule, Enabled: sc.Enabled}, store)
	}

	runners := []scheduler.Runner{
		mk(scraper.NewMensajes(client), "mensajes", cfg.Scrapers.Mensajes),
		mk(scraper.NewSalaPrensa(client), "sala-prensa", cfg.Scrapers.SalaPrensa),
		mk(scraper.NewInstitucion(client, extractor), "institucion", cfg.Scrapers.Institucion),
		mk(scraper.NewFacebook(client, cfg.Scrapers.Facebook.PageID, cfg.Scrapers.Facebook.AccessToken),
			"facebook", cfg.Scrapers.Facebook.ScraperConfig),
		mk(scraper.NewLaRepublica(client), "la-republica", cfg.Scrapers.LaRepublica),
		mk(scraper.NewGestion(client), "gestion", cfg.Scrapers.Gestion),
	}

	sched, err := scheduler.New(runners)
	if err != nil {
		return nil, fmt.Errorf("init scheduler: %w", err)
	}
	return sched, nil
}

// scraperStore joins the news and run repositories into the runner's
// persistence port
type scraperStore struct {
	*repository.NewsRepository
	*repository.RunRepository
}

func setupLog(dbg bool, secrets ...string) {
	logOpts := []lgr.Option{lgr.Msec, lgr.LevelBraces}
	if dbg {
		logOpts = []lgr.Option{lgr.Debug, lgr.CallerFile, lgr.CallerFunc, lgr.Msec, lgr.LevelBraces, lgr.StackTraceOnError}
	}

	colorizer := lgr.Mapper{
		ErrorFunc:  func(s string) string { return color.New(color.FgHiRed).Sprint(s) },
		WarnFunc:   func(s string) string { return color.New(color.FgRed).Sprint(s) },
		InfoFunc:   func(s string) string { return color.New(color.FgYellow).Sprint(s) },
		DebugFunc:  func(s string) string { return color.New(color.FgWhite).Sprint(s) },
		CallerFunc: func(s string) string { return color.New(color.FgBlue).Sprint(s) },
		TimeFunc:   func(s string) string { return color.New(color.FgCyan).Sprint(s) },
	}
	logOpts = append(logOpts, lgr.Map(colorizer))

	var secs []string
	for _, s := range secrets {
		if s != "" {
			secs = append(secs, s)
		}
	}
	if len(secs) > 0 {
		logOpts = append(logOpts, lgr.Secret(secs...))
	}
	lgr.SetupStdLogger(logOpts...)
	lgr.Setup(logOpts...)
}
