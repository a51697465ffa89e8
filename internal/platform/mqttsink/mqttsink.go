// Package mqttsink publishes sequence events to an MQTT broker.
package mqttsink

import (
	"encoding/json"
	"log/slog"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"image-sequence/internal/sequence"
)

// PublishTimeout bounds how long a publish is tracked for error reporting.
const PublishTimeout = 5 * time.Second

// Sink is a sequence.Sink publishing JSON encoded events to topic.
type Sink struct {
	client mqtt.Client
	topic  string
	qos    byte
	log    *slog.Logger
}

// New returns a Sink publishing with QoS 1.
func New(client mqtt.Client, topic string, log *slog.Logger) *Sink {
	return &Sink{
		client: client,
		topic:  topic,
		qos:    1,
		log:    log.With(slog.String("component", "mqtt_sink")),
	}
}

// Emit implements sequence.Sink. Publishing is fire-and-forget; failures are
// only logged.
func (s *Sink) Emit(ev sequence.Event) {
	b, err := json.Marshal(ev)
	if err != nil {
		s.log.Error("marshal event", slog.String("event", ev.Name), slog.String("error", err.Error()))
		return
	}
	token := s.client.Publish(s.topic, s.qos, false, b)
	go func() {
		if !token.WaitTimeout(PublishTimeout) {
			s.log.Warn("publish timed out", slog.String("event", ev.Name))
			return
		}
		if err := token.Error(); err != nil {
			s.log.Warn("publish failed", slog.String("event", ev.Name), slog.String("error", err.Error()))
		}
	}()
}

// Options returns client options for broker url, in the manner used by the
// server command.
func Options(url, clientID, username, password string, onConnect mqtt.OnConnectHandler) *mqtt.ClientOptions {
	return mqtt.NewClientOptions().
		AddBroker(url).
		SetClientID(clientID).
		SetUsername(username).
		SetPassword(password).
		SetKeepAlive(30 * time.Second).
		SetPingTimeout(5 * time.Second).
		SetAutoReconnect(true).
		SetOnConnectHandler(onConnect)
}
