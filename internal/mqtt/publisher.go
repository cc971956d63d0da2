package mqtt

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"activity-planner/internal/planner"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

const publishTimeout = 5 * time.Second

type Publisher struct {
	client      mqtt.Client
	topicPrefix string
	enabled     bool
	pending     sync.WaitGroup
}

type PublisherConfig struct {
	Broker      string
	ClientID    string
	Username    string
	Password    string
	TopicPrefix string
	Enabled     bool
}

// PlanEvent is the JSON document published to <prefix>/plan.
type PlanEvent struct {
	Latitude    float64   `json:"latitude"`
	Longitude   float64   `json:"longitude"`
	Date        string    `json:"date"`
	Sunrise     string    `json:"sunrise"`
	Sunset      string    `json:"sunset"`
	DayLength   string    `json:"day_length"`
	Activities  []string  `json:"activities"`
	PublishedAt time.Time `json:"published_at"`
}

func NewPublisher(cfg PublisherConfig) (*Publisher, error) {
	if !cfg.Enabled {
		return &Publisher{enabled: false}, nil
	}

	opts := mqtt.NewClientOptions().
		AddBroker(cfg.Broker).
		SetClientID(cfg.ClientID).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(5 * time.Second).
		SetConnectionLostHandler(func(c mqtt.Client, err error) {
			slog.Warn("MQTT connection lost", "component", "mqtt", "error", err)
		}).
		SetOnConnectHandler(func(c mqtt.Client) {
			slog.Info("MQTT connected", "component", "mqtt", "broker", cfg.Broker)
		})

	if cfg.Username != "" {
		opts.SetUsername(cfg.Username)
		opts.SetPassword(cfg.Password)
	}

	client := mqtt.NewClient(opts)
	token := client.Connect()
	if token.WaitTimeout(publishTimeout) && token.Error() != nil {
		return nil, fmt.Errorf("failed to connect to MQTT broker: %w", token.Error())
	}

	return &Publisher{
		client:      client,
		topicPrefix: cfg.TopicPrefix,
		enabled:     true,
	}, nil
}

// NewPlanEvent builds the event document for a composed plan.
func NewPlanEvent(req planner.ActivityRequest, plan *planner.ActivityResponse, at time.Time) PlanEvent {
	return PlanEvent{
		Latitude:    req.Latitude,
		Longitude:   req.Longitude,
		Date:        req.Date.Format(time.DateOnly),
		Sunrise:     plan.Sunrise,
		Sunset:      plan.Sunset,
		DayLength:   plan.DayLength,
		Activities:  plan.Activities,
		PublishedAt: at.UTC(),
	}
}

type message struct {
	topic   string
	payload interface{}
}

// planMessages lists the per-value state topics followed by the full plan
// document on <prefix>/plan.
func (p *Publisher) planMessages(plan *planner.ActivityResponse, event []byte) []message {
	return []message{
		{fmt.Sprintf("%s/plan/sunrise", p.topicPrefix), plan.Sunrise},
		{fmt.Sprintf("%s/plan/sunset", p.topicPrefix), plan.Sunset},
		{fmt.Sprintf("%s/plan/day_length", p.topicPrefix), plan.DayLength},
		{fmt.Sprintf("%s/plan", p.topicPrefix), event},
	}
}

// PublishPlan hands the plan to the client and returns without waiting for
// the broker. Delivery failures are logged once the tokens complete.
func (p *Publisher) PublishPlan(req planner.ActivityRequest, plan *planner.ActivityResponse) error {
	if !p.enabled {
		return nil
	}

	payload, err := json.Marshal(NewPlanEvent(req, plan, time.Now()))
	if err != nil {
		return fmt.Errorf("failed to marshal plan: %w", err)
	}

	messages := p.planMessages(plan, payload)
	tokens := make([]mqtt.Token, len(messages))
	for i, m := range messages {
		tokens[i] = p.client.Publish(m.topic, 0, false, m.payload)
	}

	p.pending.Add(1)
	go func() {
		defer p.pending.Done()
		for i, token := range tokens {
			awaitDelivery(messages[i].topic, token)
		}
	}()

	return nil
}

func awaitDelivery(topic string, token mqtt.Token) {
	if !token.WaitTimeout(publishTimeout) {
		slog.Warn("timed out publishing", "component", "mqtt", "topic", topic)
		return
	}
	if err := token.Error(); err != nil {
		slog.Warn("failed to publish", "component", "mqtt", "topic", topic, "error", err)
	}
}

func (p *Publisher) PublishHomeAssistantDiscovery() error {
	if !p.enabled {
		return nil
	}

	sensors := []struct {
		Name string
		ID   string
		Icon string
	}{
		{"Sunrise", "sunrise", "mdi:weather-sunset-up"},
		{"Sunset", "sunset", "mdi:weather-sunset-down"},
		{"Day Length", "day_length", "mdi:timer-sand"},
	}

	for _, sensor := range sensors {
		discoveryTopic := fmt.Sprintf("homeassistant/sensor/activity_planner/%s/config", sensor.ID)

		config := map[string]interface{}{
			"name":        fmt.Sprintf("Activity Planner %s", sensor.Name),
			"unique_id":   fmt.Sprintf("activity_planner_%s", sensor.ID),
			"state_topic": fmt.Sprintf("%s/plan/%s", p.topicPrefix, sensor.ID),
			"icon":        sensor.Icon,
			"device": map[string]interface{}{
				"identifiers":  []string{"activity_planner"},
				"name":         "Activity Planner",
				"manufacturer": "activity-planner",
			},
		}

		payload, err := json.Marshal(config)
		if err != nil {
			return fmt.Errorf("failed to marshal discovery config: %w", err)
		}
		token := p.client.Publish(discoveryTopic, 0, true, payload)
		if token.WaitTimeout(publishTimeout) && token.Error() != nil {
			return fmt.Errorf("failed to publish discovery for %s: %w", sensor.ID, token.Error())
		}
	}

	return nil
}

func (p *Publisher) IsConnected() bool {
	if !p.enabled {
		return false
	}
	return p.client.IsConnected()
}

// Close waits for in-flight plan deliveries, then disconnects.
func (p *Publisher) Close() {
	p.pending.Wait()
	if p.enabled && p.client != nil {
		p.client.Disconnect(1000)
	}
}
