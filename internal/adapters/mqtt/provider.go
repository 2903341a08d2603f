package mqttadapter

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/samirrijal/picplace/internal/adapters/location"
	"github.com/samirrijal/picplace/internal/core/domain"
	"github.com/samirrijal/picplace/internal/pkg/metrics"
)

// ErrConnectionLost is reported to registrations when the broker connection
// drops. Subscriptions are not resumed automatically.
var ErrConnectionLost = errors.New("mqtt connection lost")

// Provider implements location.Provider over an MQTT topic filter such as
// picplace/device/+/location.
type Provider struct {
	client mqtt.Client
	topic  string
	qos    byte
	logger *slog.Logger
	fanout location.Fanout
}

// NewProvider creates a Provider. Call Subscribe once the client is connected.
func NewProvider(client mqtt.Client, topic string, qos byte, logger *slog.Logger) *Provider {
	if logger == nil {
		logger = slog.Default()
	}
	return &Provider{
		client: client,
		topic:  topic,
		qos:    qos,
		logger: logger.With("component", "mqtt_provider", "topic", topic),
	}
}

// Subscribe registers the topic filter with the broker.
func (p *Provider) Subscribe() error {
	token := p.client.Subscribe(p.topic, p.qos, p.handleMessage)
	token.Wait()
	if err := token.Error(); err != nil {
		return fmt.Errorf("mqtt subscribe %s: %w", p.topic, err)
	}
	return nil
}

// ConnectionLost fails every open registration. Wire it as the client's
// connection-lost callback.
func (p *Provider) ConnectionLost(err error) {
	p.fanout.Fail(fmt.Errorf("%w: %v", ErrConnectionLost, err))
}

// Enabled reports whether the broker connection is open.
func (p *Provider) Enabled() bool {
	return p.client != nil && p.client.IsConnectionOpen()
}

// RequestUpdates implements location.Provider. The publish rate is set by the
// devices, so the interval is left to the Source throttle.
func (p *Provider) RequestUpdates(_ time.Duration, onFix func(domain.LocationFix), onFailure func(error)) (func(), error) {
	if !p.Enabled() {
		return nil, ErrConnectionLost
	}
	return p.fanout.Register(onFix, onFailure), nil
}

func (p *Provider) handleMessage(_ mqtt.Client, msg mqtt.Message) {
	fix, err := location.ParseDeviceMessage(msg.Payload(), deviceIDFromTopic(msg.Topic()))
	if err != nil {
		metrics.FixesDropped.WithLabelValues("invalid").Inc()
		p.logger.Warn("dropping device message", "error", err)
		return
	}
	metrics.FixesReceived.WithLabelValues("mqtt").Inc()
	p.fanout.Dispatch(fix)
}

// Close unsubscribes from the topic.
func (p *Provider) Close() {
	if p.client != nil && p.client.IsConnectionOpen() {
		p.client.Unsubscribe(p.topic).WaitTimeout(2 * time.Second)
	}
	p.fanout.Fail(ErrConnectionLost)
}

// deviceIDFromTopic extracts <id> from picplace/device/<id>/location.
func deviceIDFromTopic(topic string) string {
	parts := strings.Split(strings.Trim(topic, "/"), "/")
	for i := 0; i+1 < len(parts); i++ {
		if parts[i] == "device" {
			return parts[i+1]
		}
	}
	return ""
}
