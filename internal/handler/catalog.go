package handler

import (
    "context"
    "net/http"
    "strings"
    "time"

    "github.com/labstack/echo/v4"
    "github.com/sirupsen/logrus"

    "github.com/iliyamo/movie-ticketing/internal/booking"
    "github.com/iliyamo/movie-ticketing/internal/model"
)

// Catalog is the movie and showtime storage used by CatalogHandler.
type Catalog interface {
    ListMovies(ctx context.Context) ([]model.Movie, error)
    GetMovie(ctx context.Context, id uint64) (*model.Movie, error)
    CreateMovie(ctx context.Context, m *model.Movie) error
    UpdateMovie(ctx context.Context, m *model.Movie) error
    DeleteMovie(ctx context.Context, id uint64) error
    // CreateShowtime stores the showtime with its full seat inventory.
    CreateShowtime(ctx context.Context, st *model.Showtime) error
    GetShowtime(ctx context.Context, movieID, showtimeID uint64) (*model.Showtime, error)
}

// CatalogHandler serves movie and showtime management.
type CatalogHandler struct {
    Catalog Catalog
    Log     logrus.FieldLogger
}

// NewCatalogHandler panics on a nil catalog.
func NewCatalogHandler(catalog Catalog, log logrus.FieldLogger) *CatalogHandler {
    if catalog == nil {
        panic("nil catalog passed to NewCatalogHandler")
    }
    return &CatalogHandler{Catalog: catalog, Log: log}
}

// movieRequest is the body of POST and PUT /v1/movies.
type movieRequest struct {
    Title     string  `json:"title"`
    Director  string  `json:"director"`
    Year      int     `json:"year"`
    Genre     string  `json:"genre"`
    PosterURL *string `json:"poster_url"`
}

func (r movieRequest) toMovie() (*model.Movie, error) {
    m := &model.Movie{
        Title:    strings.TrimSpace(r.Title),
        Director: strings.TrimSpace(r.Director),
        Year:     r.Year,
        Genre:    strings.TrimSpace(r.Genre),
    }
    if r.PosterURL != nil {
        if p := strings.TrimSpace(*r.PosterURL); p != "" {
            m.PosterURL = &p
        }
    }
    switch {
    case m.Title == "":
        return nil, booking.InvalidInput("title is required")
    case m.Director == "":
        return nil, booking.InvalidInput("director is required")
    case m.Genre == "":
        return nil, booking.InvalidInput("genre is required")
    case m.Year < 1888 || m.Year > 2200:
        return nil, booking.InvalidInput("year %d out of range", m.Year)
    }
    return m, nil
}

// showtimeRequest is the body of POST /v1/movies/:id/showtimes.
type showtimeRequest struct {
    Date       string `json:"date"`
    Time       string `json:"time"`
    PriceCents int64  `json:"price_cents"`
    TotalSeats int    `json:"total_seats"`
}

func (r showtimeRequest) toShowtime(movieID uint64) (*model.Showtime, error) {
    st := &model.Showtime{
        MovieID:    movieID,
        Date:       strings.TrimSpace(r.Date),
        Time:       strings.TrimSpace(r.Time),
        PriceCents: r.PriceCents,
        TotalSeats: r.TotalSeats,
    }
    if _, err := time.Parse(model.DateLayout, st.Date); err != nil {
        return nil, booking.InvalidInput("date must be YYYY-MM-DD")
    }
    if _, err := time.Parse(model.ClockLayout, st.Time); err != nil {
        return nil, booking.InvalidInput("time must be HH:MM")
    }
    if st.PriceCents < 0 {
        return nil, booking.InvalidInput("price_cents must not be negative")
    }
    if st.TotalSeats <= 0 {
        return nil, booking.InvalidInput("total_seats must be positive")
    }
    if st.TotalSeats > booking.MaxSeatsPerShowtime {
        return nil, booking.InvalidInput("total_seats must be at most %d", booking.MaxSeatsPerShowtime)
    }
    return st, nil
}

// ListMovies handles GET /v1/movies.
func (h *CatalogHandler) ListMovies(c echo.Context) error {
    movies, err := h.Catalog.ListMovies(c.Request().Context())
    if err != nil {
        return respondError(c, h.Log, err)
    }
    return c.JSON(http.StatusOK, echo.Map{"items": movies})
}

// GetMovie handles GET /v1/movies/:id.
func (h *CatalogHandler) GetMovie(c echo.Context) error {
    id, err := parseID(c, "id")
    if err != nil {
        return respondError(c, h.Log, err)
    }
    m, err := h.Catalog.GetMovie(c.Request().Context(), id)
    if err != nil {
        return respondError(c, h.Log, err)
    }
    return c.JSON(http.StatusOK, m)
}

// CreateMovie handles POST /v1/movies.
func (h *CatalogHandler) CreateMovie(c echo.Context) error {
    var body movieRequest
    if err := bindJSON(c, &body); err != nil {
        return respondError(c, h.Log, err)
    }
    m, err := body.toMovie()
    if err != nil {
        return respondError(c, h.Log, err)
    }
    if err := h.Catalog.CreateMovie(c.Request().Context(), m); err != nil {
        return respondError(c, h.Log, err)
    }
    h.Log.WithFields(logrus.Fields{"movie_id": m.ID, "title": m.Title}).Info("movie created")
    return c.JSON(http.StatusCreated, m)
}

// UpdateMovie handles PUT /v1/movies/:id.
func (h *CatalogHandler) UpdateMovie(c echo.Context) error {
    id, err := parseID(c, "id")
    if err != nil {
        return respondError(c, h.Log, err)
    }
    var body movieRequest
    if err := bindJSON(c, &body); err != nil {
        return respondError(c, h.Log, err)
    }
    m, err := body.toMovie()
    if err != nil {
        return respondError(c, h.Log, err)
    }
    m.ID = id
    if err := h.Catalog.UpdateMovie(c.Request().Context(), m); err != nil {
        return respondError(c, h.Log, err)
    }
    return c.JSON(http.StatusOK, m)
}

// DeleteMovie handles DELETE /v1/movies/:id.  Showtimes, seats and
// bookings of the movie go with it.
func (h *CatalogHandler) DeleteMovie(c echo.Context) error {
    id, err := parseID(c, "id")
    if err != nil {
        return respondError(c, h.Log, err)
    }
    if err := h.Catalog.DeleteMovie(c.Request().Context(), id); err != nil {
        return respondError(c, h.Log, err)
    }
    h.Log.WithField("movie_id", id).Info("movie deleted")
    return c.NoContent(http.StatusNoContent)
}

// CreateShowtime handles POST /v1/movies/:id/showtimes.  The seat
// inventory is generated in the same transaction.
func (h *CatalogHandler) CreateShowtime(c echo.Context) error {
    movieID, err := parseID(c, "id")
    if err != nil {
        return respondError(c, h.Log, err)
    }
    var body showtimeRequest
    if err := bindJSON(c, &body); err != nil {
        return respondError(c, h.Log, err)
    }
    st, err := body.toShowtime(movieID)
    if err != nil {
        return respondError(c, h.Log, err)
    }
    if err := h.Catalog.CreateShowtime(c.Request().Context(), st); err != nil {
        return respondError(c, h.Log, err)
    }
    h.Log.WithFields(logrus.Fields{
        "movie_id":    movieID,
        "showtime_id": st.ID,
        "total_seats": st.TotalSeats,
    }).Info("showtime created")
    return c.JSON(http.StatusCreated, st)
}

// GetShowtime handles GET /v1/movies/:id/showtimes/:showtime_id.
func (h *CatalogHandler) GetShowtime(c echo.Context) error {
    movieID, err := parseID(c, "id")
    if err != nil {
        return respondError(c, h.Log, err)
    }
    showtimeID, err := parseID(c, "showtime_id")
    if err != nil {
        return respondError(c, h.Log, err)
    }
    st, err := h.Catalog.GetShowtime(c.Request().Context(), movieID, showtimeID)
    if err != nil {
        return respondError(c, h.Log, err)
    }
    return c.JSON(http.StatusOK, st)
}
