package queue

import (
    "context"
    "encoding/json"
    "errors"
    "fmt"
    "os"
    "path/filepath"
    "strings"
    "time"

    amqp "github.com/rabbitmq/amqp091-go"
    "github.com/sirupsen/logrus"
)

// Consumer appends every booking event to an audit log file, one line per
// booking.
type Consumer struct {
    url     string
    queue   string
    logPath string
    log     logrus.FieldLogger
}

// NewConsumer builds a consumer writing to logPath.
func NewConsumer(url, logPath string, log logrus.FieldLogger) *Consumer {
    if url == "" {
        url = DefaultURL
    }
    if logPath == "" {
        logPath = filepath.Join("logs", "booking.log")
    }
    return &Consumer{url: url, queue: BookingCreatedQueue, logPath: logPath, log: log}
}

// Run connects to RabbitMQ and consumes until ctx is cancelled, redialing
// with exponential backoff whenever the connection drops.
func (c *Consumer) Run(ctx context.Context) error {
    backoff := time.Second
    for {
        conn, err := amqp.Dial(c.url)
        if err != nil {
            c.log.WithError(err).WithField("retry_in", backoff).Warn("booking consumer: dial failed")
            if werr := wait(ctx, backoff); werr != nil {
                return werr
            }
            if backoff < 30*time.Second {
                backoff *= 2
            }
            continue
        }
        backoff = time.Second

        err = c.consume(ctx, conn)
        _ = conn.Close()
        if ctx.Err() != nil {
            return ctx.Err()
        }
        c.log.WithError(err).Warn("booking consumer: consume loop ended, reconnecting")
        if werr := wait(ctx, 2*time.Second); werr != nil {
            return werr
        }
    }
}

func (c *Consumer) consume(ctx context.Context, conn *amqp.Connection) error {
    ch, err := conn.Channel()
    if err != nil {
        return fmt.Errorf("channel open: %w", err)
    }
    defer func() { _ = ch.Close() }()

    if err := ch.Qos(50, 0, false); err != nil {
        c.log.WithError(err).Warn("booking consumer: set QoS failed")
    }
    if _, err := ch.QueueDeclare(c.queue, true, false, false, false, nil); err != nil {
        return fmt.Errorf("queue declare: %w", err)
    }
    msgs, err := ch.ConsumeWithContext(ctx, c.queue, "", false, false, false, false, nil)
    if err != nil {
        return fmt.Errorf("queue consume: %w", err)
    }
    c.log.WithField("queue", c.queue).Info("booking consumer started")

    for {
        select {
        case <-ctx.Done():
            return ctx.Err()
        case d, ok := <-msgs:
            if !ok {
                return errors.New("deliveries channel closed")
            }
            if err := c.handleMessage(d.Body); err != nil {
                c.log.WithError(err).Error("booking consumer: handle message failed")
                _ = d.Nack(false, false) // reject without requeue to avoid tight loops
                continue
            }
            _ = d.Ack(false)
        }
    }
}

func (c *Consumer) handleMessage(body []byte) error {
    var ev BookingCreatedEvent
    if err := json.Unmarshal(body, &ev); err != nil {
        return fmt.Errorf("unmarshal: %w", err)
    }
    if ev.BookingID == "" {
        return errors.New("event without booking id")
    }
    if err := os.MkdirAll(filepath.Dir(c.logPath), 0o755); err != nil {
        return fmt.Errorf("mkdir %s: %w", filepath.Dir(c.logPath), err)
    }
    f, err := os.OpenFile(c.logPath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
    if err != nil {
        return fmt.Errorf("open log file: %w", err)
    }
    defer f.Close()

    if _, err := f.WriteString(formatLine(ev)); err != nil {
        return fmt.Errorf("write log: %w", err)
    }
    return nil
}

func formatLine(ev BookingCreatedEvent) string {
    return fmt.Sprintf("[%s] Booking created | booking_id=%s | movie_id=%d | showtime_id=%d | show=\"%s %s\" | customer=%q | email=%s | total=%d cents | seats=[%s] | remaining=%d\n",
        ev.BookedAt, ev.BookingID, ev.MovieID, ev.ShowtimeID, ev.ShowDate, ev.ShowTime,
        ev.CustomerName, ev.CustomerEmail, ev.TotalPriceCents, strings.Join(ev.SeatLabels, ","), ev.AvailableSeats)
}

func wait(ctx context.Context, d time.Duration) error {
    t := time.NewTimer(d)
    defer t.Stop()
    select {
    case <-ctx.Done():
        return ctx.Err()
    case <-t.C:
        return nil
    }
}
