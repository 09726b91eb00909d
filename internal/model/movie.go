package model

import "time"

// Movie is the root of the catalog.  A movie owns its showtimes; deleting
// a movie removes its showtimes, their seats and every booking made for
// them.
//
// Fields:
//  ID        – primary key identifier.
//  Title     – display title.
//  Director  – director name.
//  Year      – release year.
//  Genre     – free-form genre label.
//  PosterURL – optional poster reference.
//  Showtimes – populated by catalog reads, empty otherwise.
type Movie struct {
    ID        uint64     `json:"id"`                   // movies.id
    Title     string     `json:"title"`                // movies.title
    Director  string     `json:"director"`             // movies.director
    Year      int        `json:"year"`                 // movies.year
    Genre     string     `json:"genre"`                // movies.genre
    PosterURL *string    `json:"poster_url,omitempty"` // movies.poster_url (nullable)
    Showtimes []Showtime `json:"showtimes,omitempty"`
    CreatedAt time.Time  `json:"created_at"` // movies.created_at
    UpdatedAt time.Time  `json:"updated_at"` // movies.updated_at
}

// MovieRef is the short form of a movie embedded in booking listings.
type MovieRef struct {
    ID    uint64 `json:"id"`
    Title string `json:"title"`
}
