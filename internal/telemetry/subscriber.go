package telemetry

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/example/gasguard/internal/application"
)

// DefaultTopic matches one reading topic per equipment.
const DefaultTopic = "gasguard/readings/+"

const (
	connectTimeout    = 10 * time.Second
	disconnectQuiesce = 250
)

// SubscriberConfig describes the broker connection.
type SubscriberConfig struct {
	Broker   string
	ClientID string
	Username string
	Password string
	Topic    string
	QoS      byte
	Logger   *slog.Logger
	Now      func() time.Time
}

// Subscriber ingests readings published on MQTT.
type Subscriber struct {
	sink   ReadingSink
	cfg    SubscriberConfig
	logger *slog.Logger
	client mqtt.Client
	ctx    context.Context
}

// NewSubscriber prepares a subscriber. Connect opens the broker session.
func NewSubscriber(sink ReadingSink, cfg SubscriberConfig) *Subscriber {
	if cfg.Topic == "" {
		cfg.Topic = DefaultTopic
	}
	if cfg.ClientID == "" {
		cfg.ClientID = "gasguard"
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Subscriber{
		sink:   sink,
		cfg:    cfg,
		logger: logger.With(slog.String("component", "telemetry.Subscriber"), slog.String("topic", cfg.Topic)),
		ctx:    context.Background(),
	}
}

// Connect dials the broker and subscribes. The subscription is renewed on
// every reconnect. ctx scopes the ingestion calls made by the handler.
func (s *Subscriber) Connect(ctx context.Context) error {
	if s.cfg.Broker == "" {
		return errors.New("telemetry: broker address is required")
	}
	s.ctx = ctx

	opts := mqtt.NewClientOptions()
	opts.AddBroker(s.cfg.Broker)
	opts.SetClientID(s.cfg.ClientID)
	if s.cfg.Username != "" {
		opts.SetUsername(s.cfg.Username)
	}
	if s.cfg.Password != "" {
		opts.SetPassword(s.cfg.Password)
	}
	opts.SetAutoReconnect(true)
	opts.SetCleanSession(true)
	opts.SetOnConnectHandler(func(client mqtt.Client) {
		if err := awaitToken(client.Subscribe(s.cfg.Topic, s.cfg.QoS, s.onMessage), connectTimeout); err != nil {
			s.logger.Error("mqtt subscribe failed", slog.String("error", err.Error()))
			return
		}
		s.logger.Info("mqtt subscribed")
	})
	opts.SetConnectionLostHandler(func(_ mqtt.Client, err error) {
		s.logger.Warn("mqtt connection lost", slog.String("error", err.Error()))
	})

	client := mqtt.NewClient(opts)
	if err := awaitToken(client.Connect(), connectTimeout); err != nil {
		return fmt.Errorf("failed to connect to MQTT broker %s: %w", s.cfg.Broker, err)
	}
	s.client = client
	return nil
}

// errTokenTimeout reports a broker acknowledgement that did not arrive in time.
var errTokenTimeout = errors.New("telemetry: timed out waiting for broker")

// awaitToken waits for a paho token. A timeout is an error, not a success.
func awaitToken(token mqtt.Token, timeout time.Duration) error {
	if !token.WaitTimeout(timeout) {
		return errTokenTimeout
	}
	return token.Error()
}

// Close disconnects from the broker.
func (s *Subscriber) Close() {
	if s.client != nil && s.client.IsConnected() {
		s.client.Disconnect(disconnectQuiesce)
	}
}

func (s *Subscriber) onMessage(_ mqtt.Client, msg mqtt.Message) {
	// Errors are logged inside HandleMessage and never end the subscription.
	_ = s.HandleMessage(s.ctx, msg.Topic(), msg.Payload())
}

// HandleMessage decodes one payload and forwards it to the sink.
func (s *Subscriber) HandleMessage(ctx context.Context, topic string, payload []byte) error {
	reading, err := DecodeReading(topic, payload, s.cfg.Now())
	if err != nil {
		s.logger.Warn("mqtt reading rejected",
			slog.String("message_topic", topic),
			slog.String("error", err.Error()),
		)
		return err
	}

	if _, err := s.sink.IngestReading(ctx, reading.EquipmentID, reading.GasLevel, reading.Timestamp); err != nil {
		s.logger.Warn("mqtt reading not ingested",
			slog.String("equipment_id", reading.EquipmentID),
			slog.Float64("gas_level", reading.GasLevel),
			slog.String("error", err.Error()),
			slog.String("error_kind", application.ErrorKind(err)),
		)
		return err
	}
	return nil
}
