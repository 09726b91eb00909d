package database

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/iliyamo/movie-ticketing/internal/model"
)

// Seeder is the slice of the catalog the seed needs.
type Seeder interface {
	CountMovies(ctx context.Context) (int, error)
	CreateMovie(ctx context.Context, m *model.Movie) error
	CreateShowtime(ctx context.Context, st *model.Showtime) error
}

type seedMovie struct {
	title    string
	director string
	year     int
	genre    string
	times    []string
	price    int64
	seats    int
}

var seedMovies = []seedMovie{
	{"Inception", "Christopher Nolan", 2010, "Sci-Fi", []string{"14:00", "19:30"}, 1200, 50},
	{"The Grand Budapest Hotel", "Wes Anderson", 2014, "Comedy", []string{"16:15"}, 1000, 40},
	{"Spirited Away", "Hayao Miyazaki", 2001, "Animation", []string{"11:00", "17:45"}, 900, 60},
	{"Parasite", "Bong Joon-ho", 2019, "Thriller", []string{"20:30"}, 1100, 12},
}

// Seed inserts a small catalog with showtimes over the next days.  It does
// nothing when movies already exist.
func Seed(ctx context.Context, s Seeder, now time.Time, log logrus.FieldLogger) error {
	n, err := s.CountMovies(ctx)
	if err != nil {
		return fmt.Errorf("seed: count movies: %w", err)
	}
	if n > 0 {
		log.WithField("movies", n).Info("seed skipped, catalog not empty")
		return nil
	}

	showtimes := 0
	for i, sm := range seedMovies {
		m := &model.Movie{Title: sm.title, Director: sm.director, Year: sm.year, Genre: sm.genre}
		if err := s.CreateMovie(ctx, m); err != nil {
			return fmt.Errorf("seed: movie %q: %w", sm.title, err)
		}
		date := now.UTC().AddDate(0, 0, i+1).Format(model.DateLayout)
		for _, clock := range sm.times {
			st := &model.Showtime{
				MovieID:    m.ID,
				Date:       date,
				Time:       clock,
				PriceCents: sm.price,
				TotalSeats: sm.seats,
			}
			if err := s.CreateShowtime(ctx, st); err != nil {
				return fmt.Errorf("seed: showtime %s %s: %w", date, clock, err)
			}
			showtimes++
		}
	}
	log.WithFields(logrus.Fields{"movies": len(seedMovies), "showtimes": showtimes}).Info("seed completed")
	return nil
}
