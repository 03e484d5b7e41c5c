// Package broker probes a live MQTT broker for the dashboard's status card.
// It holds a client connection, mirrors the broker's $SYS counters into a
// snapshot, and reports connection state through Prometheus.
package broker

import (
	"fmt"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/mqttscope/mqttscope/pkg/metrics"
	"go.uber.org/zap"
)

// Options configures the probe connection.
type Options struct {
	URL      string
	Username string
	Password string
	ClientID string
	// ConnectTimeout bounds the initial connect; defaults to 10s.
	ConnectTimeout time.Duration
}

// Snapshot is the probe's view of the broker at one instant.
type Snapshot struct {
	Connected        bool      `json:"connected"`
	ClientsConnected int64     `json:"clients_connected"`
	MessagesReceived int64     `json:"messages_received"`
	MessagesSent     int64     `json:"messages_sent"`
	SubscriptionsCnt int64     `json:"subscriptions"`
	Uptime           string    `json:"uptime"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// Probe is an MQTT client subscribed to the broker's $SYS topics.
type Probe struct {
	opts   Options
	client mqtt.Client
	logger *zap.Logger

	mu   sync.RWMutex
	snap Snapshot
}

// New creates a probe for the broker at opts.URL.
func New(opts Options, logger *zap.Logger) *Probe {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.ClientID == "" {
		opts.ClientID = fmt.Sprintf("mqttscope-probe-%d", time.Now().UnixNano()%100000)
	}
	if opts.ConnectTimeout == 0 {
		opts.ConnectTimeout = 10 * time.Second
	}
	return &Probe{opts: opts, logger: logger}
}

// Connect establishes the broker connection and subscribes to $SYS topics.
// The paho client reconnects on its own afterwards.
func (p *Probe) Connect() error {
	clientOpts := mqtt.NewClientOptions().
		AddBroker(p.opts.URL).
		SetClientID(p.opts.ClientID).
		SetConnectTimeout(p.opts.ConnectTimeout).
		SetAutoReconnect(true).
		SetOnConnectHandler(p.onConnect).
		SetConnectionLostHandler(p.onConnectionLost)

	if p.opts.Username != "" {
		clientOpts.SetUsername(p.opts.Username)
	}
	if p.opts.Password != "" {
		clientOpts.SetPassword(p.opts.Password)
	}

	p.client = mqtt.NewClient(clientOpts)
	if token := p.client.Connect(); token.Wait() && token.Error() != nil {
		return fmt.Errorf("broker connection error: %w", token.Error())
	}
	return nil
}

// Disconnect closes the broker connection.
func (p *Probe) Disconnect() {
	if p.client != nil {
		p.client.Disconnect(250)
	}
	p.setConnected(false)
	p.logger.Info("disconnected from broker")
}

// Snapshot returns the current broker view.
func (p *Probe) Snapshot() Snapshot {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.snap
}

func (p *Probe) onConnect(client mqtt.Client) {
	p.setConnected(true)
	p.logger.Info("connected to broker", zap.String("url", p.opts.URL))

	if token := client.Subscribe("$SYS/#", 0, p.onSysMessage); token.Wait() && token.Error() != nil {
		p.logger.Error("failed to subscribe to $SYS topics", zap.Error(token.Error()))
	}
}

func (p *Probe) onConnectionLost(_ mqtt.Client, err error) {
	p.setConnected(false)
	p.logger.Warn("broker connection lost", zap.Error(err))
}

func (p *Probe) onSysMessage(_ mqtt.Client, msg mqtt.Message) {
	p.mu.Lock()
	defer p.mu.Unlock()
	applySysTopic(&p.snap, msg.Topic(), string(msg.Payload()))
	p.snap.UpdatedAt = time.Now().UTC()
}

func (p *Probe) setConnected(connected bool) {
	p.mu.Lock()
	p.snap.Connected = connected
	p.snap.UpdatedAt = time.Now().UTC()
	p.mu.Unlock()

	if connected {
		metrics.BrokerConnected.Set(1)
	} else {
		metrics.BrokerConnected.Set(0)
	}
}
