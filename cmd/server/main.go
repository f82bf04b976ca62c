package main

import (
	"flag"
	"io"
	"os"

	"farmacias-turno/internal/components/chrono"
	"farmacias-turno/internal/components/serviceutil"
	"farmacias-turno/internal/components/telemetry"
	"farmacias-turno/internal/config"
	"farmacias-turno/internal/farmacias"
	"farmacias-turno/internal/server"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

func main() {
	verbose := flag.Bool("v", false, "Enable verbose logging/instrumentation.")
	configPath := flag.String("config", "config.json5", "Path to the configuration file.")
	flag.Parse()

	ctx := serviceutil.SignalContext()

	cfg, err := config.Load(*configPath, os.LookupEnv)
	if err != nil {
		serviceutil.Fatal("read config", err)
	}

	InitTelemetry(ctx, cfg.Telemetry, *verbose)

	tel := telemetry.SlogAPI{}
	acquirer, err := config.NewAcquirer(cfg, tel)
	if err != nil {
		serviceutil.Fatal("init acquirer", err)
	}
	pipeline := farmacias.NewPipeline(cfg.PipelineConfig(), acquirer, tel)

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	var accessLog io.Writer
	if *verbose {
		accessLog = os.Stderr
	}
	srv := server.New(server.Options{
		Runner:    pipeline,
		Clock:     chrono.NewStandardImpl(),
		Tel:       tel,
		Registry:  registry,
		AccessLog: accessLog,
	})

	err = serviceutil.StartHttpServer(ctx, cfg.Server.Port, srv)
	if err != nil {
		serviceutil.Fatal("serve http", err)
	}
}
