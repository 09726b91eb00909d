// Package handler exposes the HTTP API: catalog management, seat maps,
// booking creation and the admin read side.
package handler

import (
    "context"
    "errors"
    "net/http"
    "strconv"

    "github.com/labstack/echo/v4"
    "github.com/sirupsen/logrus"

    "github.com/iliyamo/movie-ticketing/internal/booking"
)

// ErrorResponse is the JSON body of every failed request.
type ErrorResponse struct {
    Error      string `json:"error"`
    Message    string `json:"message"`
    ShowtimeID uint64 `json:"showtime_id,omitempty"`
    Seat       string `json:"seat,omitempty"`
}

// parseID reads a positive numeric path parameter.
func parseID(c echo.Context, name string) (uint64, error) {
    id, err := strconv.ParseUint(c.Param(name), 10, 64)
    if err != nil || id == 0 {
        return 0, booking.InvalidInput("invalid %s", name)
    }
    return id, nil
}

// statusFor maps an error onto its HTTP status.
func statusFor(err error) int {
    switch booking.KindOf(err) {
    case booking.KindNotFound:
        return http.StatusNotFound
    case booking.KindConflict:
        return http.StatusConflict
    case booking.KindValidation:
        return http.StatusBadRequest
    case booking.KindIntegrity:
        return http.StatusInternalServerError
    }
    switch {
    case errors.Is(err, context.DeadlineExceeded):
        return http.StatusGatewayTimeout
    case errors.Is(err, booking.ErrLockConflict):
        return http.StatusServiceUnavailable
    }
    return http.StatusInternalServerError
}

// respondError writes err as an ErrorResponse.  Internal failures are
// logged and their details withheld from the client.
func respondError(c echo.Context, log logrus.FieldLogger, err error) error {
    status := statusFor(err)
    body := ErrorResponse{Error: "internal_error", Message: "internal server error"}

    var be *booking.Error
    if errors.As(err, &be) && be.Kind() != booking.KindIntegrity {
        body = ErrorResponse{Error: string(be.Code), Message: be.Error(), ShowtimeID: be.ShowtimeID, Seat: be.Seat}
    } else {
        switch status {
        case http.StatusGatewayTimeout:
            body = ErrorResponse{Error: "timeout", Message: "request timed out"}
        case http.StatusServiceUnavailable:
            body = ErrorResponse{Error: "busy", Message: "showtime is busy, retry shortly"}
        }
        if be != nil {
            body.Error = string(be.Code)
            body.ShowtimeID = be.ShowtimeID
        }
        log.WithError(err).WithFields(logrus.Fields{
            "method": c.Request().Method,
            "path":   c.Request().URL.Path,
        }).Error("request failed")
    }
    return c.JSON(status, body)
}

// bindJSON binds the request body and reports malformed payloads as
// validation errors.
func bindJSON(c echo.Context, dst any) error {
    if err := c.Bind(dst); err != nil {
        return booking.InvalidInput("invalid request body")
    }
    return nil
}
