package websocketPkg

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"ProjectZukan/internal/entity"
	"ProjectZukan/pkg/log"
	"github.com/gorilla/websocket"
	jsoniter "github.com/json-iterator/go"
)

const defaultYOLOURL = "ws://localhost:8000/api/v1/yolo/ws"

var ErrNotConnected = errors.New("not connected to detection service")

type IWebsocket interface {
	DetectFrame(ctx context.Context, frame []byte) ([]entity.Detection, error)
	IsConnected() bool
	Reconnect() error
	CloseConnections()
}

type yoloDetection struct {
	Class      string    `json:"class"`
	Confidence float64   `json:"confidence"`
	BBox       []float64 `json:"bbox"`
}

type yoloResponse struct {
	Detections []yoloDetection `json:"detections"`
	Count      int             `json:"count"`
	Error      string          `json:"error,omitempty"`
}

type webSocketClient struct {
	url          string
	conn         *websocket.Conn
	mu           sync.Mutex
	roundTrip    sync.Mutex
	pingInterval time.Duration
	readTimeout  time.Duration
	writeTimeout time.Duration
}

// NewAIWebSocketClient connects to the YOLO sidecar in the background. A failed
// first attempt is retried on the next DetectFrame call.
func NewAIWebSocketClient(url string) IWebsocket {
	if url == "" {
		url = os.Getenv("AI_YOLO_DETECTION_URL")
	}
	if url == "" {
		url = defaultYOLOURL
	}

	client := &webSocketClient{
		url:          url,
		pingInterval: 30 * time.Second,
		readTimeout:  10 * time.Second,
		writeTimeout: 5 * time.Second,
	}

	go client.connectInBackground()

	return client
}

func (c *webSocketClient) connectInBackground() {
	if err := c.Reconnect(); err != nil {
		log.Warn(log.Fields{
			"url":   c.url,
			"error": err.Error(),
		}, "[websocket.connectInBackground] initial connection failed, will retry on demand")
		return
	}
	log.Info(log.Fields{"url": c.url}, "[websocket.connectInBackground] connected to detection service")
}

func (c *webSocketClient) IsConnected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn != nil
}

func (c *webSocketClient) Reconnect() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn != nil {
		c.conn.Close()
		c.conn = nil
	}

	dialer := *websocket.DefaultDialer
	dialer.HandshakeTimeout = 10 * time.Second

	conn, _, err := dialer.Dial(c.url, nil)
	if err != nil {
		return fmt.Errorf("failed to connect to %s: %w", c.url, err)
	}

	conn.SetPingHandler(func(appData string) error {
		if err := conn.WriteControl(websocket.PongMessage, []byte(appData), time.Now().Add(c.writeTimeout)); err != nil {
			log.Debug(log.Fields{"error": err.Error()}, "[websocket.PingHandler] failed to send pong")
		}
		return nil
	})

	c.conn = conn
	go c.keepAlive(conn)

	return nil
}

func (c *webSocketClient) CloseConnections() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn != nil {
		c.conn.Close()
		c.conn = nil
	}
}

func (c *webSocketClient) keepAlive(conn *websocket.Conn) {
	ticker := time.NewTicker(c.pingInterval)
	defer ticker.Stop()

	for range ticker.C {
		c.mu.Lock()
		if c.conn != conn {
			c.mu.Unlock()
			return
		}

		err := conn.WriteControl(websocket.PingMessage, []byte{}, time.Now().Add(c.writeTimeout))
		if err != nil {
			log.Warn(log.Fields{
				"url":   c.url,
				"error": err.Error(),
			}, "[websocket.keepAlive] ping failed, marking connection as dead")
			c.conn = nil
			conn.Close()
			c.mu.Unlock()
			return
		}
		c.mu.Unlock()
	}
}

func (c *webSocketClient) getConnection() (*websocket.Conn, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn == nil {
		return nil, ErrNotConnected
	}
	return c.conn, nil
}

func (c *webSocketClient) drop(conn *websocket.Conn) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn == conn {
		c.conn = nil
	}
	conn.Close()
}

// DetectFrame sends one JPEG frame as a binary message and waits for its detections.
// Round trips are serialized so responses cannot be paired with the wrong frame.
func (c *webSocketClient) DetectFrame(ctx context.Context, frame []byte) ([]entity.Detection, error) {
	c.roundTrip.Lock()
	defer c.roundTrip.Unlock()

	conn, err := c.getConnection()
	if err != nil {
		if err := c.Reconnect(); err != nil {
			return nil, fmt.Errorf("cannot connect to detection service: %w", err)
		}
		if conn, err = c.getConnection(); err != nil {
			return nil, err
		}
	}

	writeDeadline := deadline(ctx, c.writeTimeout)
	readDeadline := deadline(ctx, c.readTimeout)

	c.mu.Lock()
	conn.SetWriteDeadline(writeDeadline)
	err = conn.WriteMessage(websocket.BinaryMessage, frame)
	c.mu.Unlock()
	if err != nil {
		c.drop(conn)
		return nil, fmt.Errorf("error sending frame: %w", err)
	}

	conn.SetReadDeadline(readDeadline)
	_, message, err := conn.ReadMessage()
	if err != nil {
		c.drop(conn)
		return nil, fmt.Errorf("error reading detection message: %w", err)
	}
	conn.SetReadDeadline(time.Time{})

	return ParseResponse(message)
}

// ParseResponse decodes the sidecar answer and converts corner boxes to x,y,w,h.
func ParseResponse(message []byte) ([]entity.Detection, error) {
	var result yoloResponse
	if err := jsoniter.Unmarshal(message, &result); err != nil {
		return nil, fmt.Errorf("error unmarshaling detection response: %w", err)
	}
	if result.Error != "" {
		return nil, fmt.Errorf("detection service error: %s", result.Error)
	}

	dets := make([]entity.Detection, 0, len(result.Detections))
	for _, d := range result.Detections {
		if len(d.BBox) != 4 {
			continue
		}
		dets = append(dets, entity.Detection{
			Label:      d.Class,
			Confidence: d.Confidence,
			Box:        entity.BoxFromCorners(d.BBox[0], d.BBox[1], d.BBox[2], d.BBox[3]),
		})
	}
	return dets, nil
}

func deadline(ctx context.Context, timeout time.Duration) time.Time {
	d := time.Now().Add(timeout)
	if ctxDeadline, ok := ctx.Deadline(); ok && ctxDeadline.Before(d) {
		return ctxDeadline
	}
	return d
}
