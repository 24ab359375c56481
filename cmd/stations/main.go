package main

import (
	"context"
	"net/http"
	"sync"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	"github.com/rs/zerolog/log"
	"github.com/trntxt/trntxt/internal/api"
	"github.com/trntxt/trntxt/internal/app"
	"github.com/trntxt/trntxt/internal/config"
	"github.com/trntxt/trntxt/internal/handler"
)

var (
	stationsHandler *handler.StationsHandler
	setupOnce       sync.Once
)

func setup() {
	cfg := config.LoadFromEnv()
	cfg.InitializeLogging()

	log.Info().Str("env", cfg.Environment).Msg("Environment")

	a, err := app.Build(context.Background(), cfg)
	if err != nil {
		log.Error().Err(err).Msg("Failed to initialize stations lambda")
		return
	}
	stationsHandler = handler.NewStationsHandler(a.Resolver)
}

func handleRequest(ctx context.Context, request events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	setupOnce.Do(setup)
	if stationsHandler == nil {
		return api.Error("Internal Server Error", http.StatusInternalServerError)
	}

	log.Info().Msg("Handling stations request")
	return stationsHandler.HandleRequest(ctx, request)
}

func main() {
	setupOnce.Do(setup)
	lambda.Start(handleRequest)
}
