package tuya

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"sync"
	"time"

	json "github.com/goccy/go-json"
	"github.com/sirupsen/logrus"

	"github.com/pets-series/petsbridge/internal/models"
)

// ErrUnavailable is returned when the device cannot be reached on the local
// network.
var ErrUnavailable = errors.New("local device unavailable")

// StatusProvider answers one status query against the local device backend.
type StatusProvider interface {
	Status(ctx context.Context) (models.TuyaStatus, error)
}

const dialTimeout = 5 * time.Second

// Config identifies one local device. Version defaults to 3.4 upstream.
type Config struct {
	ClientID string
	Host     string
	LocalKey string
	Version  float64
}

// Client queries device status over the vendor's local TCP protocol.
type Client struct {
	cfg    Config
	logger *logrus.Logger

	mu  sync.Mutex
	seq uint32
}

func NewClient(cfg Config, logger *logrus.Logger) *Client {
	return &Client{cfg: cfg, logger: logger}
}

// Status sends a DP_QUERY and parses the datapoint map from the reply.
func (c *Client) Status(ctx context.Context) (models.TuyaStatus, error) {
	payload, err := c.queryPayload()
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.seq++
	frame := encodeFrame(c.seq, cmdDPQuery, payload)
	c.mu.Unlock()

	var d net.Dialer
	addr := c.cfg.Host
	if _, _, err := net.SplitHostPort(addr); err != nil {
		addr = net.JoinHostPort(addr, "6668")
	}

	dialCtx, cancel := context.WithTimeout(ctx, dialTimeout)
	defer cancel()
	conn, err := d.DialContext(dialCtx, "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer conn.Close()

	if deadline, ok := ctx.Deadline(); ok {
		conn.SetDeadline(deadline)
	} else {
		conn.SetDeadline(time.Now().Add(dialTimeout))
	}

	if _, err := conn.Write(frame); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	raw, err := readFrame(conn)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	status, err := c.parseStatus(raw)
	if err != nil {
		return nil, err
	}
	c.logger.WithField("dps", len(status)).Debug("local status query complete")
	return status, nil
}

func (c *Client) queryPayload() ([]byte, error) {
	plain, err := json.Marshal(map[string]string{
		"gwId":  c.cfg.ClientID,
		"devId": c.cfg.ClientID,
	})
	if err != nil {
		return nil, err
	}
	if c.cfg.Version < 3.3 {
		return plain, nil
	}
	return encryptPayload([]byte(c.cfg.LocalKey), plain)
}

func (c *Client) parseStatus(frame []byte) (models.TuyaStatus, error) {
	payload, err := decodeFrame(frame)
	if err != nil {
		return nil, err
	}
	// Responses carry a 4-byte return code before the body.
	if len(payload) >= 4 {
		payload = payload[4:]
	}
	if c.cfg.Version >= 3.3 {
		payload, err = decryptPayload([]byte(c.cfg.LocalKey), payload)
		if err != nil {
			return nil, err
		}
	}

	var body struct {
		DPS models.TuyaStatus `json:"dps"`
	}
	if err := json.Unmarshal(payload, &body); err != nil {
		return nil, fmt.Errorf("failed to decode status payload: %v", err)
	}
	if body.DPS == nil {
		return models.TuyaStatus{}, nil
	}
	return body.DPS, nil
}

// readFrame reads one complete 55aa envelope off the wire.
func readFrame(r io.Reader) ([]byte, error) {
	header := make([]byte, 16)
	if _, err := io.ReadFull(r, header); err != nil {
		return nil, err
	}
	length := int(uint32(header[12])<<24 | uint32(header[13])<<16 | uint32(header[14])<<8 | uint32(header[15]))
	if length <= 0 || length > 1<<16 {
		return nil, fmt.Errorf("implausible frame length %d", length)
	}
	rest := make([]byte, length)
	if _, err := io.ReadFull(r, rest); err != nil {
		return nil, err
	}
	return bytes.Join([][]byte{header, rest}, nil), nil
}

var _ StatusProvider = (*Client)(nil)
