package report

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/smazurov/camspeed/internal/events"
	"github.com/smazurov/camspeed/internal/logging"
)

// MQTTConfig configures the MQTT report sink.
type MQTTConfig struct {
	Broker   string // e.g. tcp://localhost:1883
	ClientID string
	Topic    string // prefix; reports go to <Topic>/<serial>/fps
	QoS      byte
	Username string
	Password string
	Timeout  time.Duration
}

// MQTTPayload is the JSON document published per report.
type MQTTPayload struct {
	SessionID  string    `json:"session_id"`
	Serial     string    `json:"serial"`
	Seq        int       `json:"seq"`
	Frames     int       `json:"frames"`
	FPS        float64   `json:"fps"`
	IntervalMs int64     `json:"interval_ms"`
	Timestamp  time.Time `json:"timestamp"`
}

// MQTT publishes report events to a broker.
type MQTT struct {
	client  mqtt.Client
	topic   string
	qos     byte
	timeout time.Duration
	logger  logging.Logger
}

// NewMQTT connects to the broker described by cfg.
func NewMQTT(cfg MQTTConfig, logger logging.Logger) (*MQTT, error) {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 5 * time.Second
	}
	opts := mqtt.NewClientOptions().AddBroker(cfg.Broker).SetClientID(cfg.ClientID)
	opts.SetKeepAlive(30 * time.Second)
	opts.SetPingTimeout(cfg.Timeout)
	opts.SetConnectTimeout(cfg.Timeout)
	opts.SetAutoReconnect(true)
	if cfg.Username != "" {
		opts.SetUsername(cfg.Username)
		opts.SetPassword(cfg.Password)
	}
	opts.SetConnectionLostHandler(func(_ mqtt.Client, err error) {
		logger.Warn("MQTT connection lost", "broker", cfg.Broker, "error", err)
	})

	client := mqtt.NewClient(opts)
	token := client.Connect()
	if !token.WaitTimeout(cfg.Timeout) {
		return nil, fmt.Errorf("connect to %s: timeout after %v", cfg.Broker, cfg.Timeout)
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("connect to %s: %w", cfg.Broker, err)
	}
	logger.Info("Connected to MQTT broker", "broker", cfg.Broker, "topic", cfg.Topic)

	return newMQTT(client, cfg, logger), nil
}

func newMQTT(client mqtt.Client, cfg MQTTConfig, logger logging.Logger) *MQTT {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 5 * time.Second
	}
	return &MQTT{
		client:  client,
		topic:   strings.TrimSuffix(cfg.Topic, "/"),
		qos:     cfg.QoS,
		timeout: cfg.Timeout,
		logger:  logger,
	}
}

// TopicFor returns the topic reports of serial are published to.
func (m *MQTT) TopicFor(serial string) string {
	return m.topic + "/" + serial + "/fps"
}

// Publish sends one report event.
func (m *MQTT) Publish(e events.ReportEvent) error {
	payload, err := json.Marshal(MQTTPayload{
		SessionID:  e.SessionID,
		Serial:     e.Serial,
		Seq:        e.Seq,
		Frames:     e.Frames,
		FPS:        e.FPS,
		IntervalMs: e.Interval.Milliseconds(),
		Timestamp:  e.Timestamp,
	})
	if err != nil {
		return err
	}
	token := m.client.Publish(m.TopicFor(e.Serial), m.qos, false, payload)
	if !token.WaitTimeout(m.timeout) {
		return fmt.Errorf("publish to %s: timeout", m.TopicFor(e.Serial))
	}
	return token.Error()
}

// Attach publishes every report event of bus until the returned function
// is called.
func (m *MQTT) Attach(bus *events.Bus) func() {
	return events.Subscribe(bus, func(e events.ReportEvent) {
		if err := m.Publish(e); err != nil {
			m.logger.Warn("Failed to publish report", "error", err)
		}
	})
}

// Close disconnects from the broker.
func (m *MQTT) Close() {
	m.client.Disconnect(250)
}
