package main

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/iliyamo/movie-ticketing/internal/app"
	"github.com/iliyamo/movie-ticketing/internal/booking"
	"github.com/iliyamo/movie-ticketing/internal/config"
	"github.com/iliyamo/movie-ticketing/internal/database"
	"github.com/iliyamo/movie-ticketing/internal/logging"
	"github.com/iliyamo/movie-ticketing/internal/model"
)

// env is what every subcommand gets once the root has loaded config.
type env struct {
	cfg config.Config
	log *logrus.Logger
	out io.Writer
}

func newRootCmd() *cobra.Command {
	e := &env{out: os.Stdout}
	root := &cobra.Command{
		Use:           "cinemactl",
		Short:         "Movie ticketing admin CLI",
		Long:          `Run migrations, seed the catalog and inspect bookings from the terminal.`,
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := config.LoadDotEnv(); err != nil {
				return err
			}
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("config: %w", err)
			}
			// CLI output goes to stdout, logs to stderr.
			log, err := logging.New(cfg.LogLevel, "text", cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			e.cfg, e.log, e.out = cfg, log, cmd.OutOrStdout()
			return nil
		},
	}
	root.AddCommand(
		newMigrateCmd(e),
		newSeedCmd(e),
		newStatsCmd(e),
		newBookingsCmd(e),
		newSeatsCmd(e),
	)
	return root
}

func newMigrateCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create the MySQL schema",
		RunE: func(cmd *cobra.Command, args []string) error {
			if e.cfg.StorageDriver != config.DriverMySQL {
				return fmt.Errorf("migrate needs STORAGE_DRIVER=%s", config.DriverMySQL)
			}
			db, err := database.Open(cmd.Context(), database.Options{
				User: e.cfg.DBUser, Pass: e.cfg.DBPass, Host: e.cfg.DBHost, Port: e.cfg.DBPort,
				Name: e.cfg.DBName, MaxConns: e.cfg.DBMaxConns,
			})
			if err != nil {
				return err
			}
			defer db.Close()
			return database.RunMigrations(cmd.Context(), db, e.log)
		},
	}
}

func newSeedCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Insert the sample catalog when it is empty",
		RunE: func(cmd *cobra.Command, args []string) error {
			b, err := e.open(cmd)
			if err != nil {
				return err
			}
			defer b.Close()
			return database.Seed(cmd.Context(), b.Store, time.Now(), e.log)
		},
	}
}

func newStatsCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Print the dashboard totals and upcoming showtimes",
		RunE: func(cmd *cobra.Command, args []string) error {
			b, err := e.open(cmd)
			if err != nil {
				return err
			}
			defer b.Close()
			stats, err := booking.NewQueryService(b.Store, nil).GetDashboardStats(cmd.Context())
			if err != nil {
				return err
			}
			renderStats(e.out, stats)
			return nil
		},
	}
}

func newBookingsCmd(e *env) *cobra.Command {
	var movieID uint64
	cmd := &cobra.Command{
		Use:   "bookings",
		Short: "List bookings, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			b, err := e.open(cmd)
			if err != nil {
				return err
			}
			defer b.Close()
			var filter *uint64
			if movieID > 0 {
				filter = &movieID
			}
			list, err := booking.NewQueryService(b.Store, nil).ListBookings(cmd.Context(), filter)
			if err != nil {
				return err
			}
			renderBookings(e.out, list)
			return nil
		},
	}
	cmd.Flags().Uint64Var(&movieID, "movie", 0, "only bookings for this movie id")
	return cmd
}

func newSeatsCmd(e *env) *cobra.Command {
	var showtimeID uint64
	cmd := &cobra.Command{
		Use:   "seats",
		Short: "Print the seat map of a showtime",
		RunE: func(cmd *cobra.Command, args []string) error {
			if showtimeID == 0 {
				return fmt.Errorf("--showtime is required")
			}
			b, err := e.open(cmd)
			if err != nil {
				return err
			}
			defer b.Close()
			seats, err := b.Store.ListSeats(cmd.Context(), showtimeID)
			if err != nil {
				return err
			}
			renderSeats(e.out, seats)
			return nil
		},
	}
	cmd.Flags().Uint64Var(&showtimeID, "showtime", 0, "showtime id")
	return cmd
}

func (e *env) open(cmd *cobra.Command) (*app.Backend, error) {
	cfg := e.cfg
	// Seeding is an explicit subcommand here.
	cfg.DBSeed = false
	return app.OpenBackend(cmd.Context(), cfg, e.log)
}

func money(cents int64) string {
	return fmt.Sprintf("%d.%02d", cents/100, cents%100)
}

func renderStats(w io.Writer, s *model.DashboardStats) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.AppendHeader(table.Row{"Movies", "Bookings", "Revenue"})
	t.AppendRow(table.Row{s.TotalMovies, s.TotalBookings, money(s.TotalRevenueCents)})
	t.Render()

	up := table.NewWriter()
	up.SetOutputMirror(w)
	up.SetTitle("Upcoming showtimes")
	up.AppendHeader(table.Row{"ID", "Movie", "Date", "Time", "Price", "Available"})
	for _, st := range s.UpcomingShowtimes {
		up.AppendRow(table.Row{st.ID, st.MovieID, st.Date, st.Time, money(st.PriceCents),
			fmt.Sprintf("%d/%d", st.AvailableSeats, st.TotalSeats)})
	}
	up.Render()
}

func renderBookings(w io.Writer, list []model.BookingSummary) {
	rowConfigAutoMerge := table.RowConfig{AutoMerge: true}
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.AppendHeader(table.Row{"Movie", "Showtime", "Booking", "Customer", "Seats", "Total"}, rowConfigAutoMerge)
	t.SetColumnConfigs([]table.ColumnConfig{
		{Number: 1, AutoMerge: true, WidthMax: 30},
		{Number: 2, AutoMerge: true},
	})
	for _, b := range list {
		labels := make([]string, len(b.Seats))
		for i, s := range b.Seats {
			labels[i] = s.Position().Label()
		}
		t.AppendRow(table.Row{
			b.Movie.Title,
			b.Showtime.Date + " " + b.Showtime.Time,
			b.ID,
			b.CustomerName + " <" + b.CustomerEmail + ">",
			fmt.Sprint(labels),
			money(b.TotalPriceCents),
		}, rowConfigAutoMerge)
	}
	t.AppendFooter(table.Row{"", "", "", "", "bookings", len(list)})
	t.Render()
}

func renderSeats(w io.Writer, seats []model.Seat) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	var (
		row   table.Row
		label string
	)
	flush := func() {
		if row != nil {
			t.AppendRow(row)
		}
	}
	for _, s := range seats {
		if s.Row != label {
			flush()
			label = s.Row
			row = table.Row{s.Row}
		}
		mark := "."
		if s.IsBooked {
			mark = "X"
		}
		row = append(row, fmt.Sprintf("%d%s", s.Number, mark))
	}
	flush()
	t.Style().Options.SeparateRows = true
	t.Render()
}
