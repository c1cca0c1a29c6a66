package firehose

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"time"

	"github.com/gorilla/websocket"
	"github.com/oshiwatch/oshiwatch/internal/domain"
)

const statsLogInterval = 30 * time.Second

// wantedCollections is the set of AT Proto collection NSIDs this subscriber
// requests from Jetstream. Only post events feed the tracker.
var wantedCollections = []string{
	postCollection,
}

// Subscriber connects to the Jetstream firehose and hands post-creation
// events to the tracker. Connections are re-established after the
// configured delay whenever they drop; there is no cursor, so a reconnect
// resumes from live.
type Subscriber struct {
	url            string
	reconnectDelay time.Duration
	tracker        *domain.Tracker
	logger         *slog.Logger
}

// NewSubscriber creates a new firehose subscriber.
func NewSubscriber(
	firehoseURL string,
	reconnectDelay time.Duration,
	tracker *domain.Tracker,
	logger *slog.Logger,
) *Subscriber {
	return &Subscriber{
		url:            firehoseURL,
		reconnectDelay: reconnectDelay,
		tracker:        tracker,
		logger:         logger,
	}
}

// Start connects to the firehose and processes events until the context is
// cancelled. It automatically reconnects on transient errors.
func (s *Subscriber) Start(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
			if err := s.subscribe(ctx); err != nil {
				if ctx.Err() != nil {
					// Shutdown, not a connection failure.
					return ctx.Err()
				}
				s.logger.Error("firehose connection error, reconnecting", "error", err)
				select {
				case <-ctx.Done():
					return ctx.Err()
				case <-time.After(s.reconnectDelay):
					// backoff before reconnecting
				}
			}
		}
	}
}

func (s *Subscriber) buildURL() string {
	u, _ := url.Parse(s.url)
	q := u.Query()
	for _, c := range wantedCollections {
		q.Add("wantedCollections", c)
	}
	u.RawQuery = q.Encode()
	return u.String()
}

func (s *Subscriber) subscribe(ctx context.Context) error {
	wsURL := s.buildURL()
	s.logger.Info("connecting to firehose", "url", wsURL)

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, wsURL, nil)
	if err != nil {
		return fmt.Errorf("dial firehose: %w", err)
	}
	defer conn.Close()

	s.logger.Info("connected to firehose")

	var eventsReceived, postsSeen, postsEnqueued int64
	lastStatsLog := time.Now()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		_, message, err := conn.ReadMessage()
		if err != nil {
			return fmt.Errorf("read message: %w", err)
		}

		event, err := parseEvent(message)
		if err != nil {
			s.logger.Error("failed to parse event", "error", err)
			continue
		}

		eventsReceived++

		if post, ok := postCreationFromEvent(event); ok {
			postsSeen++
			if s.tracker.HandlePostCreate(post) {
				postsEnqueued++
			}
		}

		// Log stats every 30 seconds
		if time.Since(lastStatsLog) >= statsLogInterval {
			s.logger.Info("firehose stats",
				"events_received", eventsReceived,
				"posts_seen", postsSeen,
				"posts_enqueued", postsEnqueued,
				"queue_depth", s.tracker.QueueDepth(),
			)
			lastStatsLog = time.Now()
		}
	}
}
