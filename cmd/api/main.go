// Command api serves the Google Drive import endpoints on their own port.
package main

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/andresuchdata/salesledger/internal/app"
	"github.com/andresuchdata/salesledger/internal/config"
	"github.com/andresuchdata/salesledger/internal/drive"
	"github.com/andresuchdata/salesledger/pkg/logger"
)

func main() {
	cfg := config.Load()
	logger.Configure(cfg.Log.Level, cfg.Log.Format)
	ctx := context.Background()

	driveService, err := drive.NewService(ctx, cfg.Drive.CredentialsJSON)
	if err != nil {
		logger.Log.Fatal().Err(err).Msg("Failed to initialize Google Drive service")
	}

	application, err := app.New(ctx, cfg, app.Options{})
	if err != nil {
		logger.Log.Fatal().Err(err).Msg("Failed to initialise application")
	}
	defer application.Close()

	ingestService := drive.NewIngestService(driveService, application.Services.Sales)

	r := mux.NewRouter()
	drive.NewHandler(driveService, ingestService).RegisterRoutes(r)

	r.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	}).Methods("GET")

	addr := fmt.Sprintf(":%s", cfg.Server.Port)
	logger.Log.Info().Str("addr", addr).Msg("Drive import server starting")
	if err := http.ListenAndServe(addr, r); err != nil {
		logger.Log.Fatal().Err(err).Msg("Drive import server stopped")
	}
}
