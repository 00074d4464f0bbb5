package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/MKhiriev/go-sync-core/internal/client"
	"github.com/MKhiriev/go-sync-core/internal/config"
	"github.com/MKhiriev/go-sync-core/internal/logger"
	"github.com/MKhiriev/go-sync-core/internal/validators"
	"github.com/MKhiriev/go-sync-core/models"
)

var (
	buildVersion string
	buildDate    string
	buildCommit  string
)

func main() {
	fmt.Print(models.NewAppBuildInfo(buildVersion, buildDate, buildCommit))

	cfg, err := config.GetClientConfig(os.Args[1:])
	if err != nil {
		logger.NewLogger("syncd").Fatal().Err(err).Msg("error getting configs")
	}

	log := logger.NewClientLogger("syncd", cfg.App.LogPath)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := client.NewApp(ctx, cfg, validators.NewSchemaRegistry(validators.ExampleSchemas()...), log)
	if err != nil {
		log.Fatal().Err(err).Msg("init sync core error")
	}

	go logReports(app, log)

	if err = app.Run(ctx); err != nil {
		log.Fatal().Err(err).Msg("sync core run error")
	}
}

// logReports writes a line per finished pass until the app closes.
func logReports(app *client.App, log *logger.Logger) {
	reports, cancel := app.Reports()
	defer cancel()

	for r := range reports {
		log.Info().
			Str("func", "logReports").
			Str("trigger", string(r.Trigger)).
			Str("outcome", string(r.Outcome)).
			Int("pulled", r.Pulled).
			Int("pushed", r.Pushed()).
			Int("conflicts", r.Conflicts).
			Msg("sync pass finished")
	}
}
