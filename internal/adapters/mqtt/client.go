package mqttadapter

import (
	"fmt"
	"log/slog"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

// Options configures the broker connection.
type Options struct {
	Broker   string
	ClientID string
	Username string
	Password string
	// OnConnect runs after every successful (re)connect.
	OnConnect func()
	// OnLost runs when an established connection drops.
	OnLost func(error)
}

// Connect dials the broker. The first attempt must succeed; later drops are
// retried in the background.
func Connect(opts Options) (mqtt.Client, error) {
	co := mqtt.NewClientOptions().
		AddBroker(opts.Broker).
		SetClientID(opts.ClientID).
		SetAutoReconnect(true).
		SetMaxReconnectInterval(30 * time.Second).
		SetConnectionLostHandler(func(_ mqtt.Client, err error) {
			slog.Warn("mqtt connection lost", "broker", opts.Broker, "error", err)
			if opts.OnLost != nil {
				opts.OnLost(err)
			}
		}).
		SetOnConnectHandler(func(mqtt.Client) {
			if opts.OnConnect != nil {
				opts.OnConnect()
			}
		})
	if opts.Username != "" {
		co.SetUsername(opts.Username).SetPassword(opts.Password)
	}

	client := mqtt.NewClient(co)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return nil, fmt.Errorf("mqtt connect: %w", token.Error())
	}
	return client, nil
}
