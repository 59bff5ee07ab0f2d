package publisher

import (
	"encoding/json"
	"fmt"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/jgoulah/gridforecast/internal/config"
	"github.com/jgoulah/gridforecast/pkg/models"
)

// Publisher sends stored predictions to an MQTT broker, one retained message
// per building.
type Publisher struct {
	client      mqtt.Client
	topicPrefix string
}

// New connects to the broker configured in cfg.
func New(cfg config.MQTTConfig) (*Publisher, error) {
	if !cfg.Enabled {
		return nil, fmt.Errorf("MQTT publishing is not enabled in config")
	}
	if cfg.Broker == "" {
		return nil, fmt.Errorf("MQTT broker address is required when enabled")
	}

	opts := mqtt.NewClientOptions()
	opts.AddBroker(fmt.Sprintf("tcp://%s", cfg.Broker))
	opts.SetClientID("gridforecast")
	opts.SetAutoReconnect(true)
	opts.SetConnectRetry(true)
	opts.SetConnectTimeout(10 * time.Second)

	if cfg.Username != "" {
		opts.SetUsername(cfg.Username)
	}
	if cfg.Password != "" {
		opts.SetPassword(cfg.Password)
	}

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return nil, fmt.Errorf("connecting to MQTT broker: %w", token.Error())
	}

	return &Publisher{
		client:      client,
		topicPrefix: cfg.GetTopicPrefix(),
	}, nil
}

// payload is the wire format of one published prediction
type payload struct {
	BuildingID   string  `json:"building_id"`
	Date         string  `json:"date"`
	PredictedKWh float64 `json:"predicted_kwh"`
	ModelRunID   string  `json:"model_run_id,omitempty"`
}

// Publish sends one prediction to <prefix>/<building_id> as a retained
// message.
func (p *Publisher) Publish(pred models.Prediction) error {
	body, err := json.Marshal(payload{
		BuildingID:   pred.BuildingID,
		Date:         pred.Date.Format("2006-01-02"),
		PredictedKWh: pred.PredictedKWh,
		ModelRunID:   pred.ModelRunID,
	})
	if err != nil {
		return fmt.Errorf("encoding payload: %w", err)
	}

	topic := fmt.Sprintf("%s/%s", p.topicPrefix, pred.BuildingID)
	token := p.client.Publish(topic, 0, true, body)
	if token.Wait() && token.Error() != nil {
		return fmt.Errorf("publishing to %s: %w", topic, token.Error())
	}
	return nil
}

// Close disconnects from the MQTT broker
func (p *Publisher) Close() {
	if p.client != nil && p.client.IsConnected() {
		p.client.Disconnect(250)
	}
}
