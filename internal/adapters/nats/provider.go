package natsadapter

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/samirrijal/picplace/internal/adapters/location"
	"github.com/samirrijal/picplace/internal/core/domain"
	"github.com/samirrijal/picplace/internal/pkg/metrics"
)

// ErrSubscriptionClosed is reported to registrations when the device
// subscription ends under them.
var ErrSubscriptionClosed = errors.New("nats device subscription closed")

// Provider implements location.Provider over a NATS subject that devices
// publish fixes to. The rate is set by the devices, so the requested interval
// is left to the Source throttle.
type Provider struct {
	conn    *nats.Conn
	subject string
	logger  *slog.Logger
	fanout  location.Fanout
	sub     *nats.Subscription
}

// NewProvider subscribes to subject, which may contain wildcards such as
// picplace.device.*.location.
func NewProvider(conn *nats.Conn, subject string, logger *slog.Logger) (*Provider, error) {
	if logger == nil {
		logger = slog.Default()
	}
	p := &Provider{
		conn:    conn,
		subject: subject,
		logger:  logger.With("component", "nats_provider", "subject", subject),
	}

	sub, err := conn.Subscribe(subject, p.handle)
	if err != nil {
		return nil, fmt.Errorf("subscribe %s: %w", subject, err)
	}
	p.sub = sub
	conn.SetClosedHandler(func(*nats.Conn) {
		p.fanout.Fail(ErrSubscriptionClosed)
	})
	return p, nil
}

// Enabled reports whether the connection is currently usable.
func (p *Provider) Enabled() bool {
	return p.conn != nil && p.conn.IsConnected()
}

// RequestUpdates implements location.Provider.
func (p *Provider) RequestUpdates(_ time.Duration, onFix func(domain.LocationFix), onFailure func(error)) (func(), error) {
	if p.sub == nil || !p.sub.IsValid() {
		return nil, ErrSubscriptionClosed
	}
	return p.fanout.Register(onFix, onFailure), nil
}

func (p *Provider) handle(msg *nats.Msg) {
	fix, err := location.ParseDeviceMessage(msg.Data, deviceIDFromSubject(msg.Subject))
	if err != nil {
		metrics.FixesDropped.WithLabelValues("invalid").Inc()
		p.logger.Warn("dropping device message", "error", err)
		return
	}
	metrics.FixesReceived.WithLabelValues("nats").Inc()
	p.fanout.Dispatch(fix)
}

// Close unsubscribes and fails every open registration.
func (p *Provider) Close() {
	if p.sub != nil {
		_ = p.sub.Unsubscribe()
	}
	p.fanout.Fail(ErrSubscriptionClosed)
}

// deviceIDFromSubject extracts <id> from picplace.device.<id>.location.
func deviceIDFromSubject(subject string) string {
	parts := strings.Split(subject, ".")
	for i := 0; i+1 < len(parts); i++ {
		if parts[i] == "device" {
			return parts[i+1]
		}
	}
	return ""
}
