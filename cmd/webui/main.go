package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"net/http/pprof"
	"os"
	"os/signal"
	"syscall"
	"time"

	"dosepilot/dblayer"
	"dosepilot/healthz"
	"dosepilot/httpmetrics"
	"dosepilot/notify"
	"dosepilot/scheduler"
	"dosepilot/webui"

	"cloud.google.com/go/firestore"
	"cloud.google.com/go/profiler"
	"contrib.go.opencensus.io/exporter/stackdriver"
	"github.com/golang/glog"
)

var (
	debugListen         = flag.String("debug-listen", "127.0.0.1:8001", "Server address:port for debug endpoint.")
	uiListen            = flag.String("ui-listen", "127.0.0.1:8000", "Server address:port for ui endpoint.")
	dataProject         = flag.String("data-project", "", "GCP project that contains the application state.")
	googleOAuthClientID = flag.String("google-oauth-client-id", "", "OAuth client ID for Log In With Google.")
	timezone            = flag.String("timezone", "", "IANA timezone for interpreting reminder times.  Defaults to the system timezone.")
	enableProfiling     = flag.Bool("enable-profiling", false, "")
	enableMetrics       = flag.Bool("enable-metrics", false, "")
)

func main() {
	flag.Parse()

	glog.Infof("flags:")
	glog.Infof("debug-listen: %v", *debugListen)
	glog.Infof("ui-listen: %v", *uiListen)
	glog.Infof("data-project: %v", *dataProject)
	glog.Infof("google-oauth-client-id: %v", *googleOAuthClientID)
	glog.Infof("timezone: %v", *timezone)
	glog.Infof("enable-profiling: %v", *enableProfiling)
	glog.Infof("enable-metrics: %v", *enableMetrics)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := do(ctx); err != nil {
		glog.Exitf("Error: %v", err)
	}
}

func do(ctx context.Context) error {
	// Cloud Profiler initialization, best done as early as possible.
	if *enableProfiling {
		if err := profiler.Start(profiler.Config{
			Service:        "dosepilot-webui",
			ServiceVersion: "0.0.1",
		}); err != nil {
			return fmt.Errorf("while initializing profiler: %w", err)
		}
	}

	if *enableMetrics {
		exporter, err := stackdriver.NewExporter(stackdriver.Options{
			MetricPrefix:      "dosepilot",
			ReportingInterval: 60 * time.Second,
		})
		if err != nil {
			return fmt.Errorf("while initializing metrics exporter: %w", err)
		}
		exporter.StartMetricsExporter()
		defer exporter.Flush()
		defer exporter.StopMetricsExporter()
	}

	loc := time.Local
	if *timezone != "" {
		var err error
		loc, err = time.LoadLocation(*timezone)
		if err != nil {
			return fmt.Errorf("while loading timezone %q: %w", *timezone, err)
		}
	}

	fstore, err := firestore.NewClient(ctx, *dataProject)
	if err != nil {
		return fmt.Errorf("while creating FireStore client: %w", err)
	}

	health := healthz.New()

	debugServeMux := http.NewServeMux()
	debugServeMux.Handle("/healthz", health)
	debugServeMux.Handle("/readyz", health.Readiness())
	debugServeMux.HandleFunc("/debug/pprof/", pprof.Index)
	debugServeMux.HandleFunc("/debug/pprof/cmdline", pprof.Cmdline)
	debugServeMux.HandleFunc("/debug/pprof/profile", pprof.Profile)
	debugServeMux.HandleFunc("/debug/pprof/symbol", pprof.Symbol)
	debugServeMux.HandleFunc("/debug/pprof/trace", pprof.Trace)
	debugServer := &http.Server{
		Addr:    *debugListen,
		Handler: debugServeMux,

		ReadTimeout:    30 * time.Second,
		WriteTimeout:   30 * time.Second,
		MaxHeaderBytes: 1 << 20,
	}

	db := dblayer.New(fstore, *googleOAuthClientID)
	queue := notify.NewFirestoreQueue(fstore)
	coord := scheduler.NewCoordinator(db, scheduler.New(queue, loc))

	ui := webui.New(db, coord, queue)
	uiServeMux := http.NewServeMux()
	ui.Register(uiServeMux)

	metrics := httpmetrics.New(uiServeMux)
	metrics.RegisterMetrics()

	uiServer := &http.Server{
		Addr:    *uiListen,
		Handler: metrics,

		ReadTimeout:    30 * time.Second,
		WriteTimeout:   30 * time.Second,
		MaxHeaderBytes: 1 << 20,
	}

	go func() {
		if err := debugServer.ListenAndServe(); err != nil {
			glog.Fatalf("Debug server died: %v", err)
		}
	}()

	go func() {
		if err := uiServer.ListenAndServe(); err != nil {
			glog.Fatalf("UI server died: %v", err)
		}
	}()

	health.SetReady()

	signalCh := make(chan os.Signal, 1)
	signal.Notify(signalCh, syscall.SIGINT, syscall.SIGTERM)
	<-signalCh

	glog.Flush()

	return nil
}
