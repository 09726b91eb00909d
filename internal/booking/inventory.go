package booking

import "github.com/iliyamo/movie-ticketing/internal/model"

// RowLabels are the rows of every auditorium, front to back.
var RowLabels = []string{"A", "B", "C", "D", "E"}

// MaxSeatsPerShowtime caps a showtime's inventory.  It also keeps the
// bulk seat INSERT (three placeholders per seat) under MySQL's 65535
// placeholder limit.
const MaxSeatsPerShowtime = 1000

// GenerateLayout lays totalSeats seats out over RowLabels.  Every row
// holds ceil(totalSeats/len(RowLabels)) seats and rows are filled in
// order, so the last populated row may be short.  The result is ordered
// by row then number and is the same for the same input.
func GenerateLayout(totalSeats int) ([]model.SeatPosition, error) {
	if totalSeats <= 0 {
		return nil, invalidInput("total seats must be positive, got %d", totalSeats)
	}
	if totalSeats > MaxSeatsPerShowtime {
		return nil, invalidInput("total seats must be at most %d, got %d", MaxSeatsPerShowtime, totalSeats)
	}
	rows := len(RowLabels)
	seatsPerRow := (totalSeats + rows - 1) / rows

	layout := make([]model.SeatPosition, 0, totalSeats)
	for rowIndex, row := range RowLabels {
		for n := 1; n <= seatsPerRow; n++ {
			if rowIndex*seatsPerRow+n > totalSeats {
				break
			}
			layout = append(layout, model.SeatPosition{Row: row, Number: n})
		}
	}
	return layout, nil
}
