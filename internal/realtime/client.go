package realtime

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/shiptrack/tracking-system/internal/api/metrics"
	"github.com/shiptrack/tracking-system/internal/core/ports"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 64 * 1024
	sendBufferSize = 64
)

// connIDCounter hands out unique connection ids for the registry.
var connIDCounter atomic.Uint64

// ReportQueue accepts driver location reports for ordered processing. The
// sharded dispatcher implements it.
type ReportQueue interface {
	Enqueue(report ports.LocationReport)
}

// Client owns the lifetime of one websocket connection: register, read loop,
// close, and cleanup of its registry entries. The close path runs exactly
// once no matter how many triggers race (read error, write error, remote
// close, server shutdown).
type Client struct {
	id       uint64
	hub      *Hub
	conn     *websocket.Conn
	reports  ReportQueue
	driverID string
	log      zerolog.Logger

	send      chan Message
	closeOnce sync.Once
}

// NewClient wraps an upgraded connection. driverID is the authenticated
// identity attached to any location reports this connection submits; empty
// for observer connections.
func NewClient(hub *Hub, conn *websocket.Conn, reports ReportQueue, driverID string, log zerolog.Logger) *Client {
	return &Client{
		id:       connIDCounter.Add(1),
		hub:      hub,
		conn:     conn,
		reports:  reports,
		driverID: driverID,
		log:      log,
		send:     make(chan Message, sendBufferSize),
	}
}

// ID returns the connection identifier used in the registry.
func (c *Client) ID() uint64 {
	return c.id
}

// Start registers the client and launches its pumps.
func (c *Client) Start() {
	c.hub.register(c)
	go c.writePump()
	go c.readPump()
}

// Close tears the connection down. Safe to call concurrently and repeatedly;
// cleanup runs once.
func (c *Client) Close() {
	c.closeOnce.Do(func() {
		c.hub.unregister(c)
		if c.conn != nil {
			_ = c.conn.Close()
		}
	})
}

// readPump decodes inbound frames into commands and dispatches them. Any
// read error or remote close ends the loop and triggers the single close
// path. Malformed frames are logged and ignored; they never terminate the
// connection.
func (c *Client) readPump() {
	defer c.Close()

	c.conn.SetReadLimit(maxMessageSize)
	if err := c.conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
		c.log.Error().Err(err).Msg("failed to set read deadline")
		return
	}
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				c.log.Warn().Err(err).Uint64("conn_id", c.id).Msg("unexpected websocket close")
			}
			return
		}

		cmd, err := DecodeCommand(raw)
		if err != nil {
			c.log.Warn().Err(err).Uint64("conn_id", c.id).Msg("malformed message ignored")
			continue
		}
		c.dispatch(cmd)
	}
}

// dispatch routes a decoded command. The switch is exhaustive over the
// command sum type.
func (c *Client) dispatch(cmd Command) {
	switch v := cmd.(type) {
	case JoinCommand:
		c.hub.Registry().Join(c.id, v.TrackingNumber)
		metrics.ActiveSubscriptions.Set(float64(c.hub.Registry().Size()))
		c.log.Debug().Uint64("conn_id", c.id).Str("tracking_number", v.TrackingNumber).Msg("subscribed")

	case LeaveCommand:
		c.hub.Registry().Leave(c.id, v.TrackingNumber)
		metrics.ActiveSubscriptions.Set(float64(c.hub.Registry().Size()))
		c.log.Debug().Uint64("conn_id", c.id).Str("tracking_number", v.TrackingNumber).Msg("unsubscribed")

	case ReportCommand:
		if c.reports == nil {
			c.log.Warn().Uint64("conn_id", c.id).Msg("location report on connection without ingest access")
			return
		}
		c.reports.Enqueue(ports.LocationReport{
			TrackingNumbers: v.TrackingNumbers,
			Position:        v.Position,
			DriverID:        c.driverID,
			ObservedAt:      time.Now().UTC(),
		})
		metrics.ReportsIngestedTotal.WithLabelValues("websocket").Inc()
	}
}

// writePump drains the send buffer to the socket and keeps the connection
// alive with pings. A write error ends the pump; readPump's deadline then
// expires and the close path runs.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				return
			}
			if !ok {
				// Hub closed the channel.
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteJSON(msg); err != nil {
				return
			}

		case <-ticker.C:
			if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				return
			}
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
