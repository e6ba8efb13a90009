// The gate bridge subscribes to the depot gate terminals' MQTT topic
// and forwards raw departure/arrival payloads to the HTTP API. Gate
// terminals are dumb: they publish whatever the guard keyed in, and
// every validation decision stays with the API.
package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	log "github.com/sirupsen/logrus"
)

// GateEvent is the payload a gate terminal publishes.
type GateEvent struct {
	Type            string   `json:"type"` // "departure" or "arrival"
	DriverID        string   `json:"driver_id"`
	VehicleID       string   `json:"vehicle_id"`
	ManagerID       string   `json:"manager_id,omitempty"`
	Phone           string   `json:"phone,omitempty"`
	OdometerReading *float64 `json:"odometer_reading,omitempty"`
	Notes           string   `json:"notes,omitempty"`
}

var authToken string

func authorizedPost(url string, body *bytes.Buffer) (*http.Response, error) {
	req, err := http.NewRequest(http.MethodPost, url, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if authToken != "" {
		req.Header.Set("Authorization", "Bearer "+authToken)
	}
	client := &http.Client{Timeout: 10 * time.Second}
	return client.Do(req)
}

func forward(apiURL string, event GateEvent) {
	var path string
	switch event.Type {
	case "departure":
		path = "/events/departure"
	case "arrival":
		path = "/events/arrival"
	default:
		log.WithField("type", event.Type).Warn("Dropping gate event with unknown type")
		return
	}

	data, err := json.Marshal(event)
	if err != nil {
		log.WithError(err).Error("Failed to marshal gate event")
		return
	}

	resp, err := authorizedPost(apiURL+path, bytes.NewBuffer(data))
	if err != nil {
		log.WithError(err).Error("Failed to forward gate event")
		return
	}
	defer resp.Body.Close()

	entry := log.WithFields(log.Fields{
		"type":       event.Type,
		"driver_id":  event.DriverID,
		"vehicle_id": event.VehicleID,
		"status":     resp.Status,
	})
	if resp.StatusCode >= 400 {
		// Rejections are expected (e.g. vehicle already out); the gate
		// guard resubmits after correcting, the bridge never retries.
		entry.Warn("Gate event rejected")
		return
	}
	entry.Info("Forwarded gate event")
}

func main() {
	authToken = os.Getenv("GATE_AUTH_TOKEN")

	broker := os.Getenv("MQTT_BROKER")
	if broker == "" {
		broker = "tcp://localhost:1883"
	}
	topic := os.Getenv("GATE_TOPIC")
	if topic == "" {
		topic = "fleet/gate/events"
	}
	apiURL := os.Getenv("API_BASE_URL")
	if apiURL == "" {
		apiURL = "http://localhost:8080/api"
	}

	opts := mqtt.NewClientOptions().
		AddBroker(broker).
		SetClientID(fmt.Sprintf("gatebridge-%d", os.Getpid())).
		SetAutoReconnect(true).
		SetConnectRetry(true)

	opts.OnConnect = func(client mqtt.Client) {
		token := client.Subscribe(topic, 1, func(_ mqtt.Client, msg mqtt.Message) {
			var event GateEvent
			if err := json.Unmarshal(msg.Payload(), &event); err != nil {
				log.WithError(err).WithField("topic", msg.Topic()).Error("Invalid gate payload")
				return
			}
			forward(apiURL, event)
		})
		if token.Wait() && token.Error() != nil {
			log.WithError(token.Error()).Fatal("Failed to subscribe to gate topic")
		}
		log.WithFields(log.Fields{"broker": broker, "topic": topic}).Info("Subscribed to gate events")
	}
	opts.OnConnectionLost = func(_ mqtt.Client, err error) {
		log.WithError(err).Warn("MQTT connection lost")
	}

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		log.WithError(token.Error()).Fatal("Failed to connect to MQTT broker")
	}

	log.WithField("api_url", apiURL).Info("Gate bridge started")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	client.Disconnect(250)
	log.Info("Gate bridge stopped")
}
