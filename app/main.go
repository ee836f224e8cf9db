package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-pkgz/lgr"
	"github.com/umputun/go-flags"

	"github.com/umputun/certcheck/app/check"
	"github.com/umputun/certcheck/app/config"
	"github.com/umputun/certcheck/app/report"
	"github.com/umputun/certcheck/app/source"
)

var revision string

var opts struct {
	InputFile string `short:"i" long:"input-filename" env:"INPUT_FILENAME" description:"file with the domain list, one domain per line"`
	Domain    string `short:"d" long:"domain" env:"DOMAIN" description:"single domain to check"`
	Backend   string `short:"b" long:"backend-name" env:"BACKEND_NAME" description:"remote backend providing the domain list"`

	OnlyAlerting bool `short:"l" long:"only-alerting" description:"report only erroring or soon to expire domains"`
	OnlyNames    bool `short:"n" long:"only-names" description:"report domain names only, no details"`
	AlertLimit   int  `short:"A" long:"alert-limit" default:"7" description:"days before expiration to start alerting"`

	SensorMode      bool `short:"s" long:"sensor-mode" description:"exit with code 1 if anything was reported"`
	GenerateMetrics bool `short:"G" long:"generate-metrics" description:"write prometheus metrics file, path set in config"`

	Retries     int           `short:"R" long:"retries" default:"1" description:"probe attempts per domain"`
	Concurrency int           `long:"concurrency" env:"CONCURRENCY" default:"10" description:"number of concurrent probes"`
	TimeOut     time.Duration `long:"timeout" env:"TIMEOUT" default:"10s" description:"timeout for each probe"`

	Config string `short:"f" long:"config" env:"CONFIG" default:"certcheck.yml" description:"config file"`
	Dbg    bool   `short:"v" long:"verbose" env:"DEBUG" description:"show debug info"`
}

func main() {
	fmt.Printf("certcheck %s\n", revision)

	p := flags.NewParser(&opts, flags.PassDoubleDash|flags.HelpFlag)
	if _, err := p.Parse(); err != nil {
		if err.(*flags.Error).Type != flags.ErrHelp {
			fmt.Printf("%v\n", err)
			os.Exit(1)
		}
		p.WriteHelp(os.Stderr)
		os.Exit(2)
	}
	setupLog(opts.Dbg)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		if x := recover(); x != nil {
			log.Printf("[WARN] run time panic:\n%v", x)
			panic(x)
		}

		// catch signal and invoke graceful termination
		stop := make(chan os.Signal, 1)
		signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
		<-stop
		log.Printf("[WARN] interrupt signal")
		cancel()
	}()

	checked, err := run(ctx)
	if err != nil {
		log.Fatalf("[ERROR] %s", err)
	}

	// sensor mode alarms on "anything was reported", not only on failures
	if opts.SensorMode && checked > 0 {
		log.Printf("[DEBUG] sensor mode, %d results", checked)
		os.Exit(1)
	}
}

// run executes the whole pipeline and returns the number of produced results
func run(ctx context.Context) (checked int, err error) {
	var cfg *config.Parameters
	if opts.Backend != "" || opts.GenerateMetrics {
		if cfg, err = config.New(opts.Config); err != nil {
			return 0, err
		}
		log.Printf("[DEBUG] %s", cfg)
	}

	src, err := makeSource(cfg)
	if err != nil {
		return 0, err
	}

	// metrics destination verified before any probing to avoid wasted network work
	var metrics *report.MetricsFile
	if opts.GenerateMetrics {
		if cfg.Metrics.File == "" {
			return 0, errors.New("generate-metrics requires metrics file path in config")
		}
		if metrics, err = report.NewMetricsFile(cfg.Metrics.File); err != nil {
			return 0, err
		}
		defer func() {
			if err != nil {
				metrics.Cleanup()
			}
		}()
	}

	hosts, err := src.Fetch(ctx)
	if err != nil {
		return 0, err
	}

	runner := check.Runner{
		Prober:      &check.Prober{TimeOut: opts.TimeOut, Retries: opts.Retries},
		Concurrency: opts.Concurrency,
		Logger:      lgr.Default(),
	}
	results := runner.Run(ctx, hosts)
	if len(results) == 0 {
		log.Printf("[WARN] nothing processed")
	}

	now := time.Now()
	if metrics != nil {
		// metrics always get the full unfiltered result set
		if err = metrics.Write(results, now); err != nil {
			return 0, err
		}
		log.Printf("[INFO] metrics written to %s", cfg.Metrics.File)
	}

	rows := report.Format(results, now, report.Options{
		AlertLimitDays: opts.AlertLimit,
		OnlyAlerting:   opts.OnlyAlerting,
		OnlyNames:      opts.OnlyNames,
	})

	if opts.OnlyNames {
		err = report.RenderNames(os.Stdout, rows)
	} else {
		err = report.RenderTable(os.Stdout, rows)
	}
	if err != nil {
		return 0, err
	}
	return len(results), nil
}

// makeSource picks the domain list provider from the mutually exclusive
// input flags, backends resolved by registry lookup
func makeSource(cfg *config.Parameters) (source.Provider, error) {
	set := 0
	for _, v := range []string{opts.InputFile, opts.Domain, opts.Backend} {
		if v != "" {
			set++
		}
	}
	if set != 1 {
		return nil, errors.New("exactly one of --input-filename, --domain or --backend-name must be set")
	}

	switch {
	case opts.InputFile != "":
		return &source.File{Path: opts.InputFile}, nil
	case opts.Domain != "":
		return &source.Static{Domains: []string{opts.Domain}}, nil
	default:
		registry := source.Registry{
			"paste": &source.Paste{
				URL:     cfg.Backends.Paste.URL,
				UserKey: cfg.Backends.Paste.UserKey,
				DevKey:  cfg.Backends.Paste.DevKey,
				PasteID: cfg.Backends.Paste.PasteID,
				Client:  http.Client{Timeout: opts.TimeOut},
				Logger:  lgr.Default(),
			},
		}
		return registry.Lookup(opts.Backend)
	}
}

func setupLog(dbg bool) {
	logOpts := []lgr.Option{lgr.Msec, lgr.LevelBraces, lgr.StackTraceOnError}
	if dbg {
		logOpts = []lgr.Option{lgr.Debug, lgr.CallerFile, lgr.CallerFunc, lgr.Msec, lgr.LevelBraces, lgr.StackTraceOnError}
	}
	lgr.SetupStdLogger(logOpts...)
	lgr.Setup(logOpts...)
}
