// Package dispatch delivers automation action effects to the MQTT broker the
// device fleet listens on. It covers the two action types with a broker-side
// effect; notifications and log entries are handled by the recording API, not
// here.
package dispatch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/openhaus/flowengine/pkg/models"
)

var (
	ErrConnectionFailed  = errors.New("mqtt connection failed")
	ErrNotConnected      = errors.New("mqtt client not connected")
	ErrPublishTimeout    = errors.New("mqtt publish timed out")
	ErrUnsupportedAction = errors.New("action type has no broker effect")
)

const (
	defaultConnectTimeout = 10 * time.Second
	defaultPublishTimeout = 5 * time.Second
	defaultQoS            = byte(1)
)

// deviceSetTopic is the command topic devices subscribe to, keyed by device
// id and field.
const deviceSetTopic = "openhaus/device/%s/set/%s"

// Dispatcher publishes action effects over a shared MQTT connection. All
// methods are safe for concurrent use; the underlying paho client serializes
// publishes internally.
type Dispatcher struct {
	client  pahomqtt.Client
	qos     byte
	timeout time.Duration
	logger  *slog.Logger
}

// Connect establishes the broker connection and returns a ready Dispatcher.
// The paho client reconnects automatically; publishes while disconnected fail
// with ErrNotConnected instead of queueing silently.
func Connect(brokerURL, clientID string, logger *slog.Logger) (*Dispatcher, error) {
	opts := pahomqtt.NewClientOptions().
		AddBroker(brokerURL).
		SetClientID(clientID).
		SetAutoReconnect(true).
		SetOrderMatters(false)

	client := pahomqtt.NewClient(opts)

	token := client.Connect()
	if !token.WaitTimeout(defaultConnectTimeout) {
		return nil, fmt.Errorf("%w: timeout after %v", ErrConnectionFailed, defaultConnectTimeout)
	}

	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConnectionFailed, err)
	}

	return &Dispatcher{
		client:  client,
		qos:     defaultQoS,
		timeout: defaultPublishTimeout,
		logger:  logger,
	}, nil
}

// NewDispatcher wraps an existing client, mainly for tests and callers that
// manage their own connection options.
func NewDispatcher(client pahomqtt.Client, logger *slog.Logger) *Dispatcher {
	return &Dispatcher{
		client:  client,
		qos:     defaultQoS,
		timeout: defaultPublishTimeout,
		logger:  logger,
	}
}

// Dispatch publishes the broker effect of a single action. Actions without a
// broker effect (notify, log) return ErrUnsupportedAction so callers can
// route them elsewhere.
func (d *Dispatcher) Dispatch(ctx context.Context, action *models.Action) error {
	switch action.Type {
	case models.ActionTypeDeviceControl:
		return d.dispatchDeviceControl(ctx, action)
	case models.ActionTypeMQTTPublish:
		return d.publish(ctx, action.MQTTTopic, []byte(action.Payload))
	case models.ActionTypeNotify, models.ActionTypeLog:
		return fmt.Errorf("%w: %s", ErrUnsupportedAction, action.Type)
	default:
		return fmt.Errorf("%w: %s", ErrUnsupportedAction, action.Type)
	}
}

func (d *Dispatcher) dispatchDeviceControl(ctx context.Context, action *models.Action) error {
	payload, err := json.Marshal(map[string]any{"value": action.Value})
	if err != nil {
		return fmt.Errorf("failed to encode device command: %w", err)
	}

	topic := fmt.Sprintf(deviceSetTopic, action.DeviceID, action.Field)

	return d.publish(ctx, topic, payload)
}

func (d *Dispatcher) publish(ctx context.Context, topic string, payload []byte) error {
	if !d.client.IsConnected() {
		return ErrNotConnected
	}

	token := d.client.Publish(topic, d.qos, false, payload)
	if !token.WaitTimeout(d.timeout) {
		return fmt.Errorf("%w: topic %s", ErrPublishTimeout, topic)
	}

	if err := token.Error(); err != nil {
		return fmt.Errorf("failed to publish to %s: %w", topic, err)
	}

	d.logger.DebugContext(ctx, "dispatched action effect", "topic", topic, "bytes", len(payload))

	return nil
}

// Close disconnects from the broker, waiting briefly for in-flight publishes.
func (d *Dispatcher) Close() {
	d.client.Disconnect(250)
}
