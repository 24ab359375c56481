package main

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/aws/aws-lambda-go/events"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"
	"github.com/trntxt/trntxt/internal/app"
	"github.com/trntxt/trntxt/internal/handler"
	"github.com/urfave/cli/v2"
)

const shutdownTimeout = 5 * time.Second

type lambdaHandler func(context.Context, events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error)

func newWebApp() *fiber.App {
	web := fiber.New(fiber.Config{
		DisableStartupMessage: true,
		Immutable:             true,
		ErrorHandler:          errorHandler,
	})
	web.Use(requestLogger())
	return web
}

// newServer exposes the Lambda handlers over HTTP for local use.
func newServer(a *app.App) *fiber.App {
	web := newWebApp()
	web.Get("/stations", lambdaRoute(handler.NewStationsHandler(a.Resolver).HandleRequest))
	web.Get("/departures", lambdaRoute(handler.NewDeparturesHandler(a.Resolver, a.Departures).HandleRequest))
	return web
}

func lambdaRoute(h lambdaHandler) fiber.Handler {
	return func(c *fiber.Ctx) error {
		resp, err := h(c.UserContext(), events.APIGatewayProxyRequest{
			HTTPMethod:            c.Method(),
			Path:                  c.Path(),
			QueryStringParameters: c.Queries(),
		})
		if err != nil {
			return err
		}

		for k, v := range resp.Headers {
			c.Set(k, v)
		}
		return c.Status(resp.StatusCode).SendString(resp.Body)
	}
}

// errorHandler keeps handler failures out of the response body
func errorHandler(c *fiber.Ctx, err error) error {
	var fe *fiber.Error
	if errors.As(err, &fe) {
		return c.Status(fe.Code).SendString(fe.Message)
	}

	log.Error().Err(err).Str("path", c.Path()).Msg("Handler failed")
	return c.Status(fiber.StatusInternalServerError).SendString("Internal server error")
}

func requestLogger() fiber.Handler {
	return func(c *fiber.Ctx) error {
		startTime := time.Now()
		if err := c.Next(); err != nil {
			if herr := c.App().Config().ErrorHandler(c, err); herr != nil {
				_ = c.SendStatus(fiber.StatusInternalServerError)
			}
		}

		code := c.Response().StatusCode()
		requestLogger := log.With().
			Int("status", code).
			Str("method", c.Method()).
			Str("path", c.Path()).
			Str("latency", time.Since(startTime).String()).
			Logger()

		switch {
		case code >= fiber.StatusInternalServerError:
			requestLogger.Error().Msg("HTTP Request")
		case code >= fiber.StatusBadRequest:
			requestLogger.Warn().Msg("HTTP Request")
		default:
			requestLogger.Info().Msg("HTTP Request")
		}
		return nil
	}
}

// runServer listens on addr until ctx is cancelled or the listener fails.
// It returns only once the shutdown watcher has exited.
func runServer(ctx context.Context, web *fiber.App, addr string) error {
	done := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		select {
		case <-ctx.Done():
			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			if err := web.ShutdownWithContext(shutdownCtx); err != nil {
				log.Warn().Err(err).Msg("Server shutdown failed")
			}
		case <-done:
		}
	}()

	log.Info().Str("addr", addr).Msg("Listening")
	err := web.Listen(addr)
	close(done)
	wg.Wait()
	return err
}

func serveAction(c *cli.Context) error {
	a, err := buildApp(c)
	if err != nil {
		return err
	}

	port := a.Config.Port
	if c.IsSet("port") {
		port = c.String("port")
	}

	defer a.LogCacheStats()
	return runServer(c.Context, newServer(a), ":"+port)
}
