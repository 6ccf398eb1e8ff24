package notification

import (
	"context"
	"encoding/json"
	"time"

	"leadboard_backend/internal/events"
	"leadboard_backend/platform/logger"

	"github.com/redis/go-redis/v9"
)

// ProgressChannel is the Redis channel carrying import progress between the
// worker and API processes.
const ProgressChannel = "import:progress"

const (
	defaultRelayBackoff    = time.Second
	defaultRelayMaxBackoff = 30 * time.Second
)

// ProgressRelay forwards import progress events across processes over Redis
// pub/sub.
type ProgressRelay struct {
	rdb     *redis.Client
	channel string
	log     *logger.Logger

	backoff    time.Duration
	maxBackoff time.Duration
}

func NewProgressRelay(rdb *redis.Client, log *logger.Logger) *ProgressRelay {
	return &ProgressRelay{
		rdb:        rdb,
		channel:    ProgressChannel,
		log:        log,
		backoff:    defaultRelayBackoff,
		maxBackoff: defaultRelayMaxBackoff,
	}
}

// RegisterHandlers publishes every local ImportJobProgressed event to Redis.
func (r *ProgressRelay) RegisterHandlers(bus events.Bus) {
	bus.Subscribe(events.ImportJobProgressed{}.EventName(), r)
}

// Handle implements events.Handler.
func (r *ProgressRelay) Handle(ctx context.Context, event events.Event) error {
	e, ok := event.(events.ImportJobProgressed)
	if !ok {
		return nil
	}
	data, err := json.Marshal(e)
	if err != nil {
		return err
	}
	return r.rdb.Publish(ctx, r.channel, data).Err()
}

// Run keeps a subscription open until ctx is done, resubscribing with
// exponential backoff whenever Listen fails or the subscription closes.
func (r *ProgressRelay) Run(ctx context.Context, deliver func(events.ImportJobProgressed)) {
	wait := r.backoff
	for {
		started := time.Now()
		err := r.Listen(ctx, deliver)
		if ctx.Err() != nil {
			return
		}
		if time.Since(started) > r.maxBackoff {
			wait = r.backoff
		}
		r.log.Warn("import progress relay disconnected", "error", err, "retryIn", wait)

		select {
		case <-ctx.Done():
			return
		case <-time.After(wait):
		}
		wait = min(wait*2, r.maxBackoff)
	}
}

// Listen delivers progress events received from Redis until ctx is done.
func (r *ProgressRelay) Listen(ctx context.Context, deliver func(events.ImportJobProgressed)) error {
	sub := r.rdb.Subscribe(ctx, r.channel)
	defer sub.Close()

	if _, err := sub.Receive(ctx); err != nil {
		return err
	}

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			var e events.ImportJobProgressed
			if err := json.Unmarshal([]byte(msg.Payload), &e); err != nil {
				r.log.Warn("discarding malformed progress message", "error", err)
				continue
			}
			deliver(e)
		}
	}
}
