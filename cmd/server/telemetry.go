package main

import (
	"context"
	"log/slog"

	"farmacias-turno/internal/components/serviceutil"
	"farmacias-turno/internal/components/telemetry"
)

func InitTelemetry(ctx context.Context, cfg telemetry.Config, verbose bool) {
	telemetry.InitSlog(verbose)

	if verbose {
		slog.DebugContext(ctx, "verbose logging enabled")
	}

	t, err := telemetry.Setup(ctx, "farmacias-turno", cfg)
	if err != nil {
		serviceutil.Fatal("setup telemetry", err)
	}
	go func() {
		<-ctx.Done()
		err := t.Shutdown(context.Background())
		if err != nil {
			slog.Error("shutdown telemetry", "err", err)
		}
	}()
	telemetry.InstrumentPerfStats(ctx)
}
