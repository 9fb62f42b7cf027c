package aisstream

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"nhooyr.io/websocket"
)

const DefaultURL = "wss://stream.aisstream.io/v0/stream"

const (
	MessagePositionReport = "PositionReport"
	MessageShipStaticData = "ShipStaticData"
)

// Subscription must be sent within a few seconds of connecting or the server drops the socket.
type Subscription struct {
	APIKey             string         `json:"APIKey"`
	BoundingBoxes      [][][2]float64 `json:"BoundingBoxes"`
	FilterMessageTypes []string       `json:"FilterMessageTypes,omitempty"`
	FiltersShipMMSI    []string       `json:"FiltersShipMMSI,omitempty"`
}

type MetaData struct {
	MMSI      int64   `json:"MMSI"`
	ShipName  string  `json:"ShipName"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	TimeUTC   string  `json:"time_utc"`
}

type PositionReport struct {
	UserID             int64   `json:"UserID"`
	Latitude           float64 `json:"Latitude"`
	Longitude          float64 `json:"Longitude"`
	Sog                float64 `json:"Sog"`
	Cog                float64 `json:"Cog"`
	TrueHeading        float64 `json:"TrueHeading"`
	NavigationalStatus int     `json:"NavigationalStatus"`
}

type ShipStaticData struct {
	UserID               int64   `json:"UserID"`
	Name                 string  `json:"Name"`
	Type                 int     `json:"Type"`
	Destination          string  `json:"Destination"`
	MaximumStaticDraught float64 `json:"MaximumStaticDraught"`
}

type Envelope struct {
	MessageType string   `json:"MessageType"`
	MetaData    MetaData `json:"MetaData"`
	Message     struct {
		PositionReport *PositionReport `json:"PositionReport,omitempty"`
		ShipStaticData *ShipStaticData `json:"ShipStaticData,omitempty"`
	} `json:"Message"`
	Error string `json:"error,omitempty"`
}

// ObservedAt parses the metadata timestamp, falling back to fallback.
func (e Envelope) ObservedAt(fallback time.Time) time.Time {
	raw := strings.TrimSpace(e.MetaData.TimeUTC)
	if raw == "" {
		return fallback
	}
	// "2022-12-29 18:22:32.318353 +0000 UTC"
	raw = strings.TrimSuffix(raw, " UTC")
	for _, layout := range []string{"2006-01-02 15:04:05.999999999 -0700", time.RFC3339Nano} {
		if t, err := time.Parse(layout, raw); err == nil {
			return t.UTC()
		}
	}
	return fallback
}

type WSClient struct {
	url  string
	conn *websocket.Conn
}

func NewWSClient(url string) *WSClient {
	if strings.TrimSpace(url) == "" {
		url = DefaultURL
	}
	return &WSClient{url: url}
}

func (c *WSClient) Connect(ctx context.Context) error {
	if c == nil {
		return fmt.Errorf("ws client is nil")
	}
	conn, _, err := websocket.Dial(ctx, c.url, nil)
	if err != nil {
		return err
	}
	conn.SetReadLimit(1 << 20)
	c.conn = conn
	return nil
}

func (c *WSClient) Close(status websocket.StatusCode, reason string) error {
	if c == nil || c.conn == nil {
		return nil
	}
	return c.conn.Close(status, reason)
}

func (c *WSClient) Subscribe(ctx context.Context, sub Subscription) error {
	if c == nil || c.conn == nil {
		return fmt.Errorf("ws not connected")
	}
	payload, err := json.Marshal(sub)
	if err != nil {
		return err
	}
	return c.conn.Write(ctx, websocket.MessageText, payload)
}

// Read blocks for the next message. Undecodable frames are returned as an
// error so the caller can decide whether to keep reading.
func (c *WSClient) Read(ctx context.Context) (Envelope, error) {
	if c == nil || c.conn == nil {
		return Envelope{}, fmt.Errorf("ws not connected")
	}
	_, data, err := c.conn.Read(ctx)
	if err != nil {
		return Envelope{}, err
	}
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return Envelope{}, fmt.Errorf("%w: %v", ErrBadFrame, err)
	}
	if env.Error != "" {
		return env, fmt.Errorf("aisstream: %s", env.Error)
	}
	return env, nil
}
