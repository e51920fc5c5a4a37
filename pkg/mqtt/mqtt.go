// Package mqtt publishes moderation events to an MQTT broker so other
// services (dashboards, the music bot, alerting) can follow them.
package mqtt

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/PancyStudios/PancyGuardGo/pkg/logger"
	"github.com/PancyStudios/PancyGuardGo/pkg/security"
	"github.com/PancyStudios/PancyGuardGo/pkg/warnings"
)

// TopicRoot prefixes every topic published by the bot.
const TopicRoot = "pancyguard"

const publishTimeout = 5 * time.Second

// SecurityTopic is where the log records of a guild are published.
func SecurityTopic(tenantID string) string {
	return fmt.Sprintf("%s/security/%s", TopicRoot, tenantID)
}

// WarningsTopic is where the warning events of a guild are published.
func WarningsTopic(tenantID string) string {
	return fmt.Sprintf("%s/warnings/%s", TopicRoot, tenantID)
}

// Options configures the broker connection.
type Options struct {
	Host     string
	Port     string
	Username string
	Password string
	ClientID string
}

// client is the part of mqtt.Client the publisher uses.
type client interface {
	IsConnected() bool
	Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token
	Disconnect(quiesce uint)
}

// Publisher sends security records and warning events to the broker. It is a
// security.LogSink and a warnings.Notifier.
type Publisher struct {
	client   client
	clientID string
	wg       sync.WaitGroup
}

var (
	publisher *Publisher
	once      sync.Once
)

// Init initializes the global publisher
func Init(opts Options) *Publisher {
	once.Do(func() {
		publisher = NewPublisher(opts)
	})
	return publisher
}

// Get returns the global publisher
func Get() *Publisher {
	return publisher
}

// NewPublisher connects to the broker. A failed first connection is logged and
// retried in the background.
func NewPublisher(opts Options) *Publisher {
	uniqueID := fmt.Sprintf("%s_%s", opts.ClientID, uuid.New().String())

	clientOpts := mqtt.NewClientOptions().
		AddBroker(fmt.Sprintf("tcp://%s:%s", opts.Host, opts.Port)).
		SetClientID(uniqueID).
		SetUsername(opts.Username).
		SetPassword(opts.Password).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(5 * time.Second).
		SetOnConnectHandler(func(c mqtt.Client) {
			logger.Success(fmt.Sprintf("Conectado al broker MQTT como %s", opts.ClientID), "MQTT")
		}).
		SetConnectionLostHandler(func(c mqtt.Client, err error) {
			logger.Error(fmt.Sprintf("Conexión MQTT perdida: %v", err), "MQTT")
		})

	c := mqtt.NewClient(clientOpts)
	token := c.Connect()
	if token.WaitTimeout(publishTimeout) && token.Error() != nil {
		logger.Error(fmt.Sprintf("Error de conexión MQTT: %v", token.Error()), "MQTT")
	}

	return newPublisher(c, opts.ClientID)
}

func newPublisher(c client, clientID string) *Publisher {
	return &Publisher{client: c, clientID: clientID}
}

// IsConnected returns true if connected to the broker
func (p *Publisher) IsConnected() bool {
	return p.client != nil && p.client.IsConnected()
}

// Publish encodes payload as JSON and waits for the broker to accept it.
// Messages are dropped while the broker is unreachable.
func (p *Publisher) Publish(ctx context.Context, topic string, payload interface{}) error {
	if !p.IsConnected() {
		logger.Debug("MQTT desconectado, mensaje descartado: "+topic, "MQTT")
		return nil
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal payload: %w", err)
	}

	token := p.client.Publish(topic, 1, false, data)
	select {
	case <-token.Done():
		return token.Error()
	case <-ctx.Done():
		return fmt.Errorf("publishing to %s: %w", topic, ctx.Err())
	}
}

// Emit publishes a security log record.
func (p *Publisher) Emit(ctx context.Context, rec security.LogRecord) error {
	return p.Publish(ctx, SecurityTopic(rec.TenantID), rec)
}

// WarningEvent publishes a warning event without blocking the caller.
func (p *Publisher) WarningEvent(_ context.Context, ev warnings.Event) {
	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
		defer cancel()
		if err := p.Publish(ctx, WarningsTopic(ev.TenantID), ev); err != nil && !errors.Is(err, context.Canceled) {
			logger.Warn(fmt.Sprintf("No se pudo publicar el evento de advertencia: %v", err), "MQTT")
		}
	}()
}

// Destroy waits for pending publishes and closes the connection
func (p *Publisher) Destroy() {
	p.wg.Wait()
	if p.IsConnected() {
		p.client.Disconnect(250)
		logger.System("Conexión MQTT cerrada exitosamente.", "MQTT")
	} else {
		logger.Warn("El cliente MQTT no estaba conectado, no se necesita cerrar.", "MQTT")
	}
}
