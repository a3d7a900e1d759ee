// Package redis publishes emitted signals to Redis for external
// consumers: a latest-value key per (symbol, timeframe), a capped stream
// per session for replay, and a PubSub channel for live dashboards.
// A circuit breaker guards the connection; while it is open, signals are
// buffered locally and flushed when Redis recovers.
package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"time"

	goredis "github.com/go-redis/redis/v8"

	"signal-systemv1/internal/model"
)

const (
	// streamMaxLen keeps roughly a day of 1m signals per session.
	streamMaxLen     = 1500
	defaultLatestTTL = 30 * time.Minute

	breakerFailures = 5
	breakerReset    = 10 * time.Second
	maxBuffered     = 2000
)

// PublisherConfig configures the Redis publisher.
type PublisherConfig struct {
	Addr     string // Redis address, e.g. "localhost:6379"
	Password string
	DB       int
}

var _ model.SignalPublisher = (*Publisher)(nil)

// Publisher writes signals to Redis behind a circuit breaker.
type Publisher struct {
	client *goredis.Client
	cb     *CircuitBreaker

	mu     sync.Mutex
	buffer [][]byte // JSON signals held while the breaker is open

	// OnPublish is called with the pipeline latency of each successful
	// publish. Used for metrics.
	OnPublish func(d time.Duration)
}

// Client returns the underlying Redis client for health checks.
func (p *Publisher) Client() *goredis.Client { return p.client }

// NewPublisher connects to Redis and pings the server.
func NewPublisher(cfg PublisherConfig) (*Publisher, error) {
	client := goredis.NewClient(&goredis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	p := &Publisher{
		client: client,
		cb:     NewCircuitBreaker(breakerFailures, breakerReset),
	}
	p.cb.OnStateChange = func(from, to State) {
		log.Printf("[redis] circuit breaker %s -> %s", from, to)
		if to == StateClosed {
			go p.flush(context.Background())
		}
	}

	log.Printf("[redis] connected to %s", cfg.Addr)
	return p, nil
}

// Run drains the signal channel until ctx is cancelled or it closes.
func (p *Publisher) Run(ctx context.Context, signals <-chan model.SignalResult) {
	for {
		select {
		case <-ctx.Done():
			return
		case sig, ok := <-signals:
			if !ok {
				return
			}
			p.PublishSignal(ctx, sig)
		}
	}
}

// PublishSignal publishes one signal. While the breaker is open the
// signal is buffered locally, not lost.
func (p *Publisher) PublishSignal(ctx context.Context, sig model.SignalResult) error {
	payload := sig.JSON()
	err := p.cb.Execute(func() error {
		return p.write(ctx, sig, payload)
	})
	if err == ErrCircuitOpen {
		p.bufferSignal(payload)
		return nil
	}
	return err
}

// write performs the pipelined SET + XADD + PUBLISH for one signal.
func (p *Publisher) write(ctx context.Context, sig model.SignalResult, payload []byte) error {
	start := time.Now()
	data := string(payload)

	pipe := p.client.Pipeline()
	pipe.Set(ctx, latestKey(sig.Symbol, sig.Timeframe), data, defaultLatestTTL)
	pipe.XAdd(ctx, &goredis.XAddArgs{
		Stream: streamKey(sig.SessionID),
		MaxLen: streamMaxLen,
		Approx: true,
		Values: map[string]interface{}{"data": data},
	})
	pipe.Publish(ctx, pubsubChannel(sig.Symbol, sig.Timeframe), data)

	if _, err := pipe.Exec(ctx); err != nil {
		log.Printf("[redis] signal pipeline error for %s/%ds: %v", sig.Symbol, sig.Timeframe, err)
		return err
	}
	if p.OnPublish != nil {
		p.OnPublish(time.Since(start))
	}
	return nil
}

// bufferSignal holds a payload until the breaker closes, dropping the
// oldest entry when the buffer is full.
func (p *Publisher) bufferSignal(payload []byte) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.buffer) >= maxBuffered {
		p.buffer = p.buffer[1:]
	}
	p.buffer = append(p.buffer, payload)
}

// flush replays buffered signals after the breaker closes.
func (p *Publisher) flush(ctx context.Context) {
	p.mu.Lock()
	toFlush := p.buffer
	p.buffer = nil
	p.mu.Unlock()
	if len(toFlush) == 0 {
		return
	}

	flushed := 0
	for _, payload := range toFlush {
		var sig model.SignalResult
		if json.Unmarshal(payload, &sig) != nil {
			continue
		}
		if p.write(ctx, sig, payload) == nil {
			flushed++
		}
	}
	log.Printf("[redis] flushed %d buffered signals", flushed)
}

// PendingCount returns how many signals are waiting for the breaker.
func (p *Publisher) PendingCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.buffer)
}

// Close closes the Redis client.
func (p *Publisher) Close() error {
	return p.client.Close()
}

func latestKey(symbol string, tf int) string {
	return fmt.Sprintf("signal:latest:%s:%ds", symbol, tf)
}

func streamKey(sessionID string) string {
	return "signal:stream:" + sessionID
}

func pubsubChannel(symbol string, tf int) string {
	return fmt.Sprintf("pub:signal:%s:%ds", symbol, tf)
}
