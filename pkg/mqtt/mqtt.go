// Package mqtt provides MQTT communication capabilities for the bot.
// Music state and bank movements are published under TopicPrefix, and
// dashboards can query the bot with request/response pairs.
package mqtt

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/PancyStudios/UselessBotGo/pkg/logger"
	"github.com/goccy/go-json"
	"github.com/google/uuid"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

// TopicPrefix is the root of every topic the bot uses
const TopicPrefix = "uselessbot"

// ErrNotConnected is returned when publishing without a broker connection
var ErrNotConnected = errors.New("mqtt not connected")

// Publisher is the subset used by the player and the bank commands
type Publisher interface {
	Publish(topic string, payload interface{}) error
}

// MusicTopic returns the topic for a guild's music event
func MusicTopic(guildID, event string) string {
	return fmt.Sprintf("%s/music/%s/%s", TopicPrefix, guildID, event)
}

// BankTopic returns the topic for a bank event
func BankTopic(event string) string {
	return fmt.Sprintf("%s/bank/%s", TopicPrefix, event)
}

func requestTopic(topic string) string {
	return fmt.Sprintf("%s/request/%s", TopicPrefix, topic)
}

func responseTopic(topic, correlationID string) string {
	return fmt.Sprintf("%s/response/%s/%s", TopicPrefix, topic, correlationID)
}

// MqttRequest represents an MQTT request message
type MqttRequest struct {
	CorrelationID string      `json:"correlationId"`
	Payload       interface{} `json:"payload,omitempty"`
}

// MqttResponse represents an MQTT response message
type MqttResponse struct {
	CorrelationID string      `json:"correlationId"`
	Data          interface{} `json:"data"`
	Error         string      `json:"error,omitempty"`
}

type route struct {
	pattern string
	handler func(topic string, payload []byte)
}

// MqttCommunicator handles MQTT communication
type MqttCommunicator struct {
	client           mqtt.Client
	responseHandlers map[string]func(MqttResponse)
	routes           []route
	mu               sync.RWMutex
	clientID         string
}

var (
	communicator *MqttCommunicator
	once         sync.Once
)

// Init initializes the global MQTT communicator
func Init(host, port, username, password, clientID string) *MqttCommunicator {
	once.Do(func() {
		communicator = NewMqttCommunicator(host, port, username, password, clientID)
	})
	return communicator
}

// Get returns the global MQTT communicator
func Get() *MqttCommunicator {
	return communicator
}

// NewMqttCommunicator creates a new MQTT communicator and starts connecting
// in the background. The broker may come up later; AutoReconnect and
// ConnectRetry keep trying.
func NewMqttCommunicator(host, port, username, password, clientID string) *MqttCommunicator {
	mc := newCommunicator(clientID)

	uniqueID := fmt.Sprintf("%s_%s", clientID, uuid.New().String())

	opts := mqtt.NewClientOptions().
		AddBroker(fmt.Sprintf("tcp://%s:%s", host, port)).
		SetClientID(uniqueID).
		SetUsername(username).
		SetPassword(password).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(5 * time.Second).
		SetDefaultPublishHandler(func(_ mqtt.Client, msg mqtt.Message) {
			mc.dispatch(msg.Topic(), msg.Payload())
		}).
		SetOnConnectHandler(func(c mqtt.Client) {
			logger.Success(fmt.Sprintf("Conectado al broker MQTT como %s", clientID), "MQTT")
			mc.resubscribe()
		}).
		SetConnectionLostHandler(func(c mqtt.Client, err error) {
			logger.Error(fmt.Sprintf("Conexión MQTT perdida: %v", err), "MQTT")
		})

	mc.client = mqtt.NewClient(opts)

	token := mc.client.Connect()
	go func() {
		if token.Wait() && token.Error() != nil {
			logger.Error(fmt.Sprintf("Error de conexión MQTT: %v", token.Error()), "MQTT")
		}
	}()

	return mc
}

func newCommunicator(clientID string) *MqttCommunicator {
	return &MqttCommunicator{
		responseHandlers: make(map[string]func(MqttResponse)),
		clientID:         clientID,
	}
}

// Destroy closes the MQTT connection
func (mc *MqttCommunicator) Destroy() {
	if mc.IsConnected() {
		mc.client.Disconnect(250)
		logger.System("Conexión MQTT cerrada exitosamente.", "MQTT")
	} else {
		logger.Warn("El cliente MQTT no estaba conectado, no se necesita cerrar.", "MQTT")
	}
}

// IsConnected returns true if connected to the broker
func (mc *MqttCommunicator) IsConnected() bool {
	return mc != nil && mc.client != nil && mc.client.IsConnected()
}

// Publish sends a JSON message to a topic
func (mc *MqttCommunicator) Publish(topic string, payload interface{}) error {
	if !mc.IsConnected() {
		return ErrNotConnected
	}

	jsonData, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal payload: %w", err)
	}

	token := mc.client.Publish(topic, 0, false, jsonData)
	if !token.WaitTimeout(5 * time.Second) {
		return fmt.Errorf("publish to %s timed out", topic)
	}
	return token.Error()
}

// Request sends a request and waits for a response
func (mc *MqttCommunicator) Request(topic string, payload interface{}, timeout time.Duration) (interface{}, error) {
	if !mc.IsConnected() {
		return nil, ErrNotConnected
	}

	correlationID := uuid.New().String()
	respTopic := responseTopic(topic, correlationID)

	responseChan := make(chan MqttResponse, 1)
	errChan := make(chan error, 1)

	mc.mu.Lock()
	mc.responseHandlers[correlationID] = func(response MqttResponse) {
		responseChan <- response
	}
	mc.mu.Unlock()

	defer func() {
		mc.mu.Lock()
		delete(mc.responseHandlers, correlationID)
		mc.mu.Unlock()
		mc.client.Unsubscribe(respTopic)
	}()

	token := mc.client.Subscribe(respTopic, 0, func(c mqtt.Client, msg mqtt.Message) {
		var response MqttResponse
		if err := json.Unmarshal(msg.Payload(), &response); err != nil {
			errChan <- err
			return
		}

		mc.mu.RLock()
		handler, exists := mc.responseHandlers[response.CorrelationID]
		mc.mu.RUnlock()

		if exists {
			handler(response)
		}
	})

	if token.Wait() && token.Error() != nil {
		return nil, token.Error()
	}

	request := MqttRequest{
		CorrelationID: correlationID,
		Payload:       payload,
	}

	if err := mc.Publish(requestTopic(topic), request); err != nil {
		return nil, err
	}

	select {
	case response := <-responseChan:
		if response.Error != "" {
			return nil, fmt.Errorf("%s", response.Error)
		}
		return response.Data, nil
	case err := <-errChan:
		return nil, err
	case <-time.After(timeout):
		return nil, fmt.Errorf("la petición a '%s' ha expirado (timeout)", topic)
	}
}

// RequestHandler is a function type for handling MQTT requests
type RequestHandler func(payload map[string]interface{}) (interface{}, error)

// On registers a handler for a request topic. The pattern may use MQTT
// wildcards; the concrete topic is passed to the handler as "_topic".
func (mc *MqttCommunicator) On(requestPattern string, callback RequestHandler) {
	prefix := requestTopic("")
	mc.route(requestTopic(requestPattern), func(receivedTopic string, raw []byte) {
		var request MqttRequest
		if err := json.Unmarshal(raw, &request); err != nil {
			logger.Error(fmt.Sprintf("Error parsing MQTT request: %v", err), "MQTT")
			return
		}

		actualTopic := strings.TrimPrefix(receivedTopic, prefix)
		response := handleRequest(actualTopic, request, callback)

		if err := mc.Publish(responseTopic(actualTopic, request.CorrelationID), response); err != nil {
			logger.Warn(fmt.Sprintf("No se pudo responder a %s: %v", actualTopic, err), "MQTT")
		}
	})
}

// handleRequest runs a request callback and builds its response
func handleRequest(topic string, request MqttRequest, callback RequestHandler) MqttResponse {
	payloadMap := make(map[string]interface{})
	if pm, ok := request.Payload.(map[string]interface{}); ok {
		payloadMap = pm
	}
	payloadMap["_topic"] = topic

	data, err := callback(payloadMap)
	if err != nil {
		return MqttResponse{CorrelationID: request.CorrelationID, Error: err.Error()}
	}
	return MqttResponse{CorrelationID: request.CorrelationID, Data: data}
}

// Subscribe subscribes to a topic pattern with a message handler
func (mc *MqttCommunicator) Subscribe(pattern string, handler func(topic string, payload []byte)) error {
	return mc.route(pattern, handler)
}

// route records the handler and subscribes. Routes survive reconnects and
// messages are dispatched with topicMatch.
func (mc *MqttCommunicator) route(pattern string, handler func(topic string, payload []byte)) error {
	mc.mu.Lock()
	mc.routes = append(mc.routes, route{pattern: pattern, handler: handler})
	mc.mu.Unlock()

	if !mc.IsConnected() {
		return nil
	}
	token := mc.client.Subscribe(pattern, 0, nil)
	token.Wait()
	if err := token.Error(); err != nil {
		logger.Error(fmt.Sprintf("Error subscribing to topic %s: %v", pattern, err), "MQTT")
		return err
	}
	return nil
}

func (mc *MqttCommunicator) resubscribe() {
	mc.mu.RLock()
	patterns := make([]string, 0, len(mc.routes))
	for _, r := range mc.routes {
		patterns = append(patterns, r.pattern)
	}
	mc.mu.RUnlock()

	for _, p := range patterns {
		mc.client.Subscribe(p, 0, nil)
	}
}

func (mc *MqttCommunicator) dispatch(topic string, payload []byte) {
	mc.mu.RLock()
	var matched []route
	for _, r := range mc.routes {
		if topicMatch(r.pattern, topic) {
			matched = append(matched, r)
		}
	}
	mc.mu.RUnlock()

	for _, r := range matched {
		r.handler(topic, payload)
	}
}

// Unsubscribe drops the routes for a pattern and unsubscribes
func (mc *MqttCommunicator) Unsubscribe(pattern string) error {
	mc.mu.Lock()
	kept := mc.routes[:0]
	for _, r := range mc.routes {
		if r.pattern != pattern {
			kept = append(kept, r)
		}
	}
	mc.routes = kept
	mc.mu.Unlock()

	if !mc.IsConnected() {
		return nil
	}
	token := mc.client.Unsubscribe(pattern)
	token.Wait()
	return token.Error()
}

// topicMatch checks if a received topic matches a pattern (with wildcards)
// '+' matches exactly one topic level
// '#' matches zero or more topic levels and must be the last character
func topicMatch(pattern, topic string) bool {
	patternParts := strings.Split(pattern, "/")
	topicParts := strings.Split(topic, "/")

	for i, part := range patternParts {
		if part == "#" {
			return true
		}
		if i >= len(topicParts) {
			return false
		}
		if part == "+" {
			continue
		}
		if part != topicParts[i] {
			return false
		}
	}

	return len(patternParts) == len(topicParts)
}
