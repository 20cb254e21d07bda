// Package live keeps a persistent WebSocket connection to the tick source and
// feeds every tick into the prices store.
package live

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"tickerbar/internal/prices"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

// Dispatcher receives the actions produced by the channel.
type Dispatcher interface {
	Dispatch(action prices.Action)
}

// Channel reconnects with capped exponential backoff until stopped. Malformed
// messages are logged and dropped; they never reach the store.
type Channel struct {
	url        string
	dispatcher Dispatcher
	logger     *logrus.Entry

	mu     sync.RWMutex
	conn   *websocket.Conn
	cancel context.CancelFunc
	wg     sync.WaitGroup

	ReadTimeout  time.Duration
	PingInterval time.Duration
	BaseDelay    time.Duration
	MaxDelay     time.Duration
}

func NewChannel(url string, dispatcher Dispatcher, logger *logrus.Logger) *Channel {
	return &Channel{
		url:          url,
		dispatcher:   dispatcher,
		logger:       logger.WithFields(logrus.Fields{"component": "live", "url": url}),
		ReadTimeout:  60 * time.Second,
		PingInterval: 30 * time.Second,
		BaseDelay:    baseReconnectDelay,
		MaxDelay:     maxReconnectDelay,
	}
}

// Start dispatches the connect marker and launches the connection loop.
func (c *Channel) Start(ctx context.Context) {
	c.dispatcher.Dispatch(prices.ConnectToWebsocket{})

	ctx, c.cancel = context.WithCancel(ctx)
	c.wg.Add(1)
	go c.runLoop(ctx)
}

// Stop closes the connection and waits for the loop to exit.
func (c *Channel) Stop() {
	if c.cancel != nil {
		c.cancel()
	}
	c.close()
	c.wg.Wait()
}

func (c *Channel) runLoop(ctx context.Context) {
	defer c.wg.Done()
	attempt := 0

	for {
		if ctx.Err() != nil {
			return
		}

		if err := c.connect(ctx); err != nil {
			delay := reconnectDelay(attempt, c.BaseDelay, c.MaxDelay)
			c.logger.WithError(err).WithFields(logrus.Fields{"attempt": attempt, "delay": delay}).Warn("Tick channel connect failed")
			attempt++

			select {
			case <-ctx.Done():
				return
			case <-time.After(delay):
				continue
			}
		}

		attempt = 0
		c.read(ctx)
	}
}

func (c *Channel) connect(ctx context.Context) error {
	dialer := websocket.Dialer{HandshakeTimeout: 10 * time.Second}
	conn, _, err := dialer.DialContext(ctx, c.url, http.Header{})
	if err != nil {
		return fmt.Errorf("dial: %w", err)
	}

	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(c.ReadTimeout))
	})

	c.mu.Lock()
	c.conn = conn
	c.mu.Unlock()

	if c.PingInterval > 0 {
		go c.pingLoop(ctx, conn)
	}

	c.logger.Info("Tick channel connected")
	return nil
}

func (c *Channel) read(ctx context.Context) {
	c.mu.RLock()
	conn := c.conn
	c.mu.RUnlock()
	if conn == nil {
		return
	}

	for {
		conn.SetReadDeadline(time.Now().Add(c.ReadTimeout))
		_, msg, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() == nil {
				c.logger.WithError(err).Warn("Tick channel read failed")
			}
			c.close()
			return
		}
		c.handleMessage(msg)
	}
}

func (c *Channel) handleMessage(msg []byte) {
	tick, err := prices.ParseTick(msg)
	if err != nil {
		c.logger.WithError(err).WithField("payload", string(msg)).Warn("Dropping tick")
		return
	}
	c.dispatcher.Dispatch(prices.UpdatePrice{Tick: tick})
}

func (c *Channel) pingLoop(ctx context.Context, conn *websocket.Conn) {
	ticker := time.NewTicker(c.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.mu.RLock()
			current := c.conn
			c.mu.RUnlock()
			if current != conn {
				return
			}
			deadline := time.Now().Add(10 * time.Second)
			if err := conn.WriteControl(websocket.PingMessage, nil, deadline); err != nil {
				c.logger.WithError(err).Warn("Tick channel ping failed")
				c.close()
				return
			}
		}
	}
}

func (c *Channel) close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn != nil {
		c.conn.Close()
		c.conn = nil
	}
}
