package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/kr/pretty"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/trntxt/trntxt/internal/app"
	"github.com/trntxt/trntxt/internal/clock"
	"github.com/trntxt/trntxt/internal/config"
	"github.com/trntxt/trntxt/internal/departure"
	"github.com/trntxt/trntxt/internal/models"
	"github.com/urfave/cli/v2"
)

func main() {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newApp(os.Stdout).RunContext(ctx, os.Args); err != nil {
		log.Fatal().Err(err).Send()
	}
}

func newApp(out io.Writer) *cli.App {
	return &cli.App{
		Name:  "trntxt",
		Usage: "UK train departures from the command line",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Usage:   "YAML config file",
				EnvVars: []string{"CONFIG_FILE"},
			},
			&cli.StringFlag{
				Name:  "log-level",
				Value: "warn",
				Usage: "zerolog level",
			},
		},
		Writer: out,
		Commands: []*cli.Command{
			{
				Name:      "stations",
				Usage:     "list stations matching a name or CRS code",
				ArgsUsage: "<query>",
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:  "limit",
						Value: 10,
						Usage: "maximum number of stations to show",
					},
				},
				Action: stationsAction,
			},
			{
				Name:      "departures",
				Usage:     "show departures from a station, optionally only those calling at another",
				ArgsUsage: "<from> [to]",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "raw",
						Usage: "dump the assembled board instead of formatting it",
					},
				},
				Action: departuresAction,
			},
			{
				Name:  "serve",
				Usage: "serve the stations and departures endpoints over HTTP",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "port",
						Usage: "listen port, overrides PORT from config",
					},
				},
				Action: serveAction,
			},
		},
	}
}

func buildApp(c *cli.Context) (*app.App, error) {
	cfg, err := config.Load(c.String("config"))
	if err != nil {
		return nil, err
	}
	config.WithLogLevel(c.String("log-level"))(cfg)
	zerolog.SetGlobalLevel(cfg.LogLevel)

	return app.Build(c.Context, cfg)
}

func stationsAction(c *cli.Context) error {
	if c.NArg() < 1 {
		return cli.Exit("usage: trntxt stations <query>", 2)
	}

	a, err := buildApp(c)
	if err != nil {
		return err
	}

	stations := a.Resolver.Resolve(strings.Join(c.Args().Slice(), " "))
	if limit := c.Int("limit"); limit > 0 && len(stations) > limit {
		stations = stations[:limit]
	}
	if len(stations) == 0 {
		fmt.Fprintln(c.App.Writer, "No stations found")
		return nil
	}
	for _, s := range stations {
		fmt.Fprintf(c.App.Writer, "%s  %s\n", s.Code, s.Name)
	}
	return nil
}

func departuresAction(c *cli.Context) error {
	if c.NArg() < 1 {
		return cli.Exit("usage: trntxt departures <from> [to]", 2)
	}

	a, err := buildApp(c)
	if err != nil {
		return err
	}

	from, ok := a.Resolver.ResolveOne(c.Args().Get(0))
	if !ok {
		return cli.Exit(fmt.Sprintf("No station found matching %q", c.Args().Get(0)), 1)
	}
	route := models.Route{From: from}
	if c.NArg() > 1 {
		to, ok := a.Resolver.ResolveOne(c.Args().Get(1))
		if !ok {
			return cli.Exit(fmt.Sprintf("No station found matching %q", c.Args().Get(1)), 1)
		}
		route.To = &to
	}

	board, err := a.Departures.GetDepartures(c.Context, route)
	if err != nil {
		return err
	}

	if c.Bool("raw") {
		pretty.Fprintf(c.App.Writer, "%# v\n", board)
		return nil
	}
	printBoard(c.App.Writer, board)
	return nil
}

func printBoard(w io.Writer, board *models.DepartureBoard) {
	fmt.Fprintln(w, departure.PageTitle(board))
	for _, msg := range board.NrccMessages {
		fmt.Fprintf(w, "! %s\n", msg)
	}
	printServices(w, "Trains", board.TrainServices)
	printServices(w, "Buses", board.BusServices)
}

func printServices(w io.Writer, heading string, services []models.Service) {
	if len(services) == 0 {
		return
	}
	fmt.Fprintf(w, "\n%s\n", heading)
	for _, s := range services {
		platform := "-"
		if s.Platform != nil {
			platform = *s.Platform
		}
		line := fmt.Sprintf("%-5s %-9s plat %-3s %s", s.Std, s.Etd, platform, s.DestinationStation.Name)
		if s.ArrivalStation != "" {
			arrival := s.Eta
			if _, ok := clock.ParseClock(arrival); !ok {
				arrival = s.Sta
			}
			line += fmt.Sprintf(" (arr %s %s", s.ArrivalStation, arrival)
			if s.Duration != "" {
				line += ", " + s.Duration
			}
			line += ")"
		}
		fmt.Fprintln(w, line)
	}
}
