package main

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/Domenick1991/flightreservation/config"
	"github.com/Domenick1991/flightreservation/internal/bootstrap"
	"github.com/Domenick1991/flightreservation/internal/database/migrations"
	"github.com/Domenick1991/flightreservation/internal/service/cities"
	"github.com/Domenick1991/flightreservation/internal/service/flights"
	"github.com/shopspring/decimal"
	"github.com/urfave/cli/v2"
	"go.uber.org/zap"
)

type openFunc func(ctx context.Context) (*bootstrap.App, error)

func newCLI(cfg *config.Config, log *zap.Logger, open openFunc, out io.Writer) *cli.App {
	withApp := func(fn func(c *cli.Context, app *bootstrap.App) error) cli.ActionFunc {
		return func(c *cli.Context) error {
			app, err := open(c.Context)
			if err != nil {
				return err
			}
			defer func() { _ = app.Close() }()
			return fn(c, app)
		}
	}

	return &cli.App{
		Name:      "flightreservation-admin",
		Usage:     "Manage the flight reservation database",
		Writer:    out,
		ErrWriter: out,
		Commands: []*cli.Command{
			{
				Name:  "migrate",
				Usage: "apply or roll back schema migrations",
				Subcommands: []*cli.Command{
					{Name: "up", Usage: "apply pending migrations", Action: migrateAction(cfg, log, out, (*migrations.Runner).Up)},
					{Name: "down", Usage: "roll back all migrations", Action: migrateAction(cfg, log, out, (*migrations.Runner).Down)},
				},
			},
			{
				Name:  "city",
				Usage: "manage cities",
				Subcommands: []*cli.Command{
					{
						Name:  "add",
						Usage: "add a city",
						Flags: []cli.Flag{
							&cli.StringFlag{Name: "name", Required: true},
							&cli.StringFlag{Name: "country", Required: true},
						},
						Action: withApp(func(c *cli.Context, app *bootstrap.App) error {
							city, err := app.Cities.Create(c.Context, cities.CityInput{
								Name:    c.String("name"),
								Country: c.String("country"),
							})
							if err != nil {
								return err
							}
							fmt.Fprintf(out, "%d\t%s\t%s\n", city.ID, city.Name, city.Country)
							return nil
						}),
					},
					{
						Name:  "list",
						Usage: "list cities",
						Action: withApp(func(c *cli.Context, app *bootstrap.App) error {
							list, err := app.Cities.List(c.Context)
							if err != nil {
								return err
							}
							for _, city := range list {
								fmt.Fprintf(out, "%d\t%s\t%s\n", city.ID, city.Name, city.Country)
							}
							return nil
						}),
					},
				},
			},
			{
				Name:  "flight",
				Usage: "manage flights",
				Subcommands: []*cli.Command{
					{
						Name:  "add",
						Usage: "add a flight",
						Flags: []cli.Flag{
							&cli.StringFlag{Name: "code", Required: true},
							&cli.Int64Flag{Name: "from", Usage: "departure city id", Required: true},
							&cli.Int64Flag{Name: "to", Usage: "arrival city id", Required: true},
							&cli.TimestampFlag{Name: "departure", Layout: time.RFC3339, Required: true},
							&cli.TimestampFlag{Name: "arrival", Layout: time.RFC3339, Required: true},
							&cli.IntFlag{Name: "seats", Required: true},
							&cli.StringFlag{Name: "price", Usage: "base price per seat, e.g. 149.90", Required: true},
						},
						Action: withApp(func(c *cli.Context, app *bootstrap.App) error {
							price, err := decimal.NewFromString(c.String("price"))
							if err != nil {
								return fmt.Errorf("invalid price %q: %w", c.String("price"), err)
							}
							flight, err := app.Flights.Create(c.Context, flights.FlightInput{
								Code:            c.String("code"),
								DepartureCityID: c.Int64("from"),
								ArrivalCityID:   c.Int64("to"),
								DepartureTime:   *c.Timestamp("departure"),
								ArrivalTime:     *c.Timestamp("arrival"),
								TotalSeats:      c.Int("seats"),
								BasePrice:       price,
							})
							if err != nil {
								return err
							}
							fmt.Fprintf(out, "%d\t%s\t%s -> %s\t%d seats\t%s\n", flight.ID, flight.Code,
								flight.DepartureCity.Name, flight.ArrivalCity.Name, flight.TotalSeats, flight.BasePrice.StringFixed(2))
							return nil
						}),
					},
					{
						Name:  "list",
						Usage: "list flights",
						Action: withApp(func(c *cli.Context, app *bootstrap.App) error {
							list, err := app.Flights.List(c.Context)
							if err != nil {
								return err
							}
							for _, f := range list {
								fmt.Fprintf(out, "%d\t%s\t%s\t%d/%d\t%s\n", f.ID, f.Code,
									f.DepartureTime.Format(time.RFC3339), f.AvailableSeats, f.TotalSeats, f.BasePrice.StringFixed(2))
							}
							return nil
						}),
					},
				},
			},
		},
	}
}

func migrateAction(cfg *config.Config, log *zap.Logger, out io.Writer, step func(*migrations.Runner) error) cli.ActionFunc {
	return func(c *cli.Context) error {
		if cfg.Database.Driver != config.DriverPostgres {
			return fmt.Errorf("migrations need the %s driver, configured %q", config.DriverPostgres, cfg.Database.Driver)
		}
		dbCfg := cfg.Database
		dbCfg.AutoMigrate = false
		storage, err := bootstrap.OpenStorage(c.Context, dbCfg, log)
		if err != nil {
			return err
		}
		defer storage.Close()

		runner := migrations.NewRunner(storage.Pool(), log)
		defer func() { _ = runner.Close() }()
		if err := step(runner); err != nil {
			return err
		}
		version, dirty, err := runner.Version()
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "schema version %d (dirty: %t)\n", version, dirty)
		return nil
	}
}
