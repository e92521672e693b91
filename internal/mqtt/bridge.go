package mqtt

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"go.uber.org/zap"

	"github.com/thomluther/anker-solix-api/internal/api"
	"github.com/thomluther/anker-solix-api/internal/cache"
	"github.com/thomluther/anker-solix-api/internal/catalog"
	"github.com/thomluther/anker-solix-api/internal/hexdata"
	"github.com/thomluther/anker-solix-api/internal/logging"
)

const (
	brokerPort       = 8883
	connectTimeout   = 30 * time.Second
	publishQoS       = 1
	subscribeQoS     = 1
	keepAliveSeconds = 60
)

// DeviceRef identifies a device on the broker by its serial and model.
type DeviceRef struct {
	SN    string
	Model string
}

// Message is one decoded broker message handed to the handler.
type Message struct {
	Topic     string
	Model     string
	Timestamp time.Time
	Data      []byte
	Result    *hexdata.Result
}

// Handler receives every decoded message, including degraded ones.
type Handler func(msg Message)

// Config carries everything the bridge needs. Info and Registry are
// required, the rest is optional.
type Config struct {
	Info    *api.MqttInfo
	Reg     *catalog.Registry
	CertDir string
	Logger  *zap.Logger
	// Cache, when set, receives decoded param and state values as a
	// device overlay merge keyed by the topic serial.
	Cache   *cache.Cache
	Handler Handler
}

// Bridge maintains the broker session of one account: a TLS client
// authenticated with the account certificates, a persistent
// subscription set that survives reconnects, and the message decode
// path into the handler and optional cache overlay.
type Bridge struct {
	info     *api.MqttInfo
	decoder  *hexdata.Decoder
	composer *hexdata.Composer
	logger   *zap.Logger
	cache    *cache.Cache
	handler  Handler

	mu     sync.Mutex
	subs   map[string]DeviceRef
	client paho.Client
}

// New builds a bridge from the account broker info. Certificates are
// written to certDir so external tooling can reuse them.
func New(cfg Config) (*Bridge, error) {
	if cfg.Info == nil || cfg.Info.EndpointAddr == "" {
		return nil, api.NewRequestError(0, "no broker endpoint in account info", "get_mqtt_info")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	reg := cfg.Reg
	if reg == nil {
		reg = catalog.Default()
	}

	b := &Bridge{
		info:     cfg.Info,
		decoder:  hexdata.NewDecoder(reg, logger),
		composer: hexdata.NewComposer(reg),
		logger:   logger,
		cache:    cfg.Cache,
		handler:  cfg.Handler,
		subs:     make(map[string]DeviceRef),
	}

	tlsConfig, err := b.tlsConfig(cfg.CertDir)
	if err != nil {
		return nil, err
	}

	opts := paho.NewClientOptions().
		AddBroker(fmt.Sprintf("tls://%s:%d", cfg.Info.EndpointAddr, brokerPort)).
		SetClientID(cfg.Info.ThingName).
		SetCleanSession(true).
		SetKeepAlive(keepAliveSeconds * time.Second).
		SetTLSConfig(tlsConfig).
		SetAutoReconnect(true).
		SetOnConnectHandler(b.onConnect).
		SetConnectionLostHandler(func(_ paho.Client, err error) {
			logger.Warn("broker connection lost", zap.Error(err))
		})
	b.client = paho.NewClient(opts)
	return b, nil
}

// tlsConfig builds the client TLS setup from the account certificates
// and persists them under dir when one is given.
func (b *Bridge) tlsConfig(dir string) (*tls.Config, error) {
	pool := x509.NewCertPool()
	if !pool.AppendCertsFromPEM([]byte(b.info.RootCA)) {
		return nil, api.NewParseError("broker root certificate", nil)
	}
	cert, err := tls.X509KeyPair([]byte(b.info.Certificate), []byte(b.info.PrivateKey))
	if err != nil {
		return nil, api.NewParseError("broker client certificate", err)
	}

	if dir != "" {
		if err := writeCerts(dir, b.info); err != nil {
			return nil, err
		}
	}

	return &tls.Config{
		RootCAs:      pool,
		Certificates: []tls.Certificate{cert},
		MinVersion:   tls.VersionTLS12,
	}, nil
}

// writeCerts caches the account certificates on disk, keyed by the
// thing name, with the private key readable by the owner only.
func writeCerts(dir string, info *api.MqttInfo) error {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}
	files := []struct {
		name string
		body string
		mode os.FileMode
	}{
		{info.ThingName + "_root_ca.pem", info.RootCA, 0o644},
		{info.ThingName + "_certificate.pem", info.Certificate, 0o644},
		{info.ThingName + "_private_key.pem", info.PrivateKey, 0o600},
	}
	for _, f := range files {
		if err := os.WriteFile(filepath.Join(dir, f.name), []byte(f.body), f.mode); err != nil {
			return err
		}
	}
	return nil
}

// Connect opens the broker session. Subscriptions registered before
// connecting are established by the connect callback.
func (b *Bridge) Connect(ctx context.Context) error {
	token := b.client.Connect()
	select {
	case <-token.Done():
		if err := token.Error(); err != nil {
			return api.NewNetworkError("broker connect", err)
		}
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(connectTimeout):
		return api.NewNetworkError("broker connect", context.DeadlineExceeded)
	}
}

// Disconnect closes the session, allowing in flight messages a short
// drain.
func (b *Bridge) Disconnect() {
	b.client.Disconnect(250)
}

// onConnect re-establishes the full subscription set. Running this on
// every connect keeps subscriptions alive across broker reconnects.
func (b *Bridge) onConnect(client paho.Client) {
	b.mu.Lock()
	topics := make([]string, 0, len(b.subs))
	for t := range b.subs {
		topics = append(topics, t)
	}
	b.mu.Unlock()

	b.logger.Info("broker connected", zap.Int("subscriptions", len(topics)))
	for _, topic := range topics {
		if token := client.Subscribe(topic, subscribeQoS, b.onMessage); token.Wait() && token.Error() != nil {
			b.logger.Error("resubscribe failed", zap.String("topic", topic), zap.Error(token.Error()))
		}
	}
}

// DataTopic returns the telemetry topic prefix of a device.
func (b *Bridge) DataTopic(dev DeviceRef) string {
	return fmt.Sprintf("dt/%s/%s/%s/", b.info.AppName, dev.Model, dev.SN)
}

// CommandTopic returns the command topic prefix of a device.
func (b *Bridge) CommandTopic(dev DeviceRef) string {
	return fmt.Sprintf("cmd/%s/%s/%s/", b.info.AppName, dev.Model, dev.SN)
}

// Subscribe adds a device to the subscription set and subscribes
// immediately when connected. The set persists across reconnects.
func (b *Bridge) Subscribe(dev DeviceRef) error {
	topic := b.DataTopic(dev) + "#"

	b.mu.Lock()
	_, exists := b.subs[topic]
	if !exists {
		b.subs[topic] = dev
	}
	b.mu.Unlock()
	if exists {
		return nil
	}

	b.logger.Info("subscribed device", zap.String("device_sn", dev.SN), zap.String("topic", topic))
	if b.client.IsConnected() {
		if token := b.client.Subscribe(topic, subscribeQoS, b.onMessage); token.Wait() && token.Error() != nil {
			return api.NewNetworkError("subscribe "+topic, token.Error())
		}
	}
	return nil
}

// Unsubscribe removes a device from the subscription set.
func (b *Bridge) Unsubscribe(dev DeviceRef) error {
	topic := b.DataTopic(dev) + "#"

	b.mu.Lock()
	_, exists := b.subs[topic]
	delete(b.subs, topic)
	b.mu.Unlock()
	if !exists {
		return nil
	}

	if b.client.IsConnected() {
		if token := b.client.Unsubscribe(topic); token.Wait() && token.Error() != nil {
			return api.NewNetworkError("unsubscribe "+topic, token.Error())
		}
	}
	return nil
}

// envelope is the JSON wrapper every broker message arrives in. The
// payload is itself a JSON document in string form, carrying the model
// and the base64 encoded hex message.
type envelope struct {
	Head struct {
		Timestamp int64 `json:"timestamp"`
	} `json:"head"`
	Payload string `json:"payload"`
}

type envelopePayload struct {
	PN   string `json:"pn"`
	Data string `json:"data"`
}

// decodeEnvelope unwraps one broker message down to the model and raw
// hex message bytes.
func decodeEnvelope(raw []byte) (model string, ts time.Time, data []byte, err error) {
	var env envelope
	if err = json.Unmarshal(raw, &env); err != nil {
		return "", time.Time{}, nil, fmt.Errorf("envelope: %w", err)
	}
	var payload envelopePayload
	if err = json.Unmarshal([]byte(env.Payload), &payload); err != nil {
		return "", time.Time{}, nil, fmt.Errorf("envelope payload: %w", err)
	}
	data, err = base64.StdEncoding.DecodeString(payload.Data)
	if err != nil {
		return "", time.Time{}, nil, fmt.Errorf("envelope data: %w", err)
	}
	if env.Head.Timestamp > 0 {
		ts = time.Unix(env.Head.Timestamp, 0)
	}
	return payload.PN, ts, data, nil
}

func (b *Bridge) onMessage(_ paho.Client, m paho.Message) {
	model, ts, data, err := decodeEnvelope(m.Payload())
	if err != nil {
		b.logger.Debug("undecodable broker message", zap.String("topic", m.Topic()), zap.Error(err))
		return
	}

	logging.LogMessageData("Broker message", model, data)
	result, err := b.decoder.Decode(model, data)
	if err != nil {
		b.logger.Debug("malformed hex message",
			zap.String("topic", m.Topic()), zap.String("model", model), zap.Error(err))
		return
	}

	b.overlay(m.Topic(), result)
	if b.handler != nil {
		b.handler(Message{
			Topic:     m.Topic(),
			Model:     model,
			Timestamp: ts,
			Data:      data,
			Result:    result,
		})
	}
}

// overlay merges decoded values into the cache keyed by the serial in
// the message, falling back to the topic serial. Degraded results have
// no named values and merge nothing.
func (b *Bridge) overlay(topic string, result *hexdata.Result) {
	if b.cache == nil || len(result.Fields) == 0 {
		return
	}
	sn := ""
	if v, ok := result.Fields["device_sn"]; ok {
		sn = v.Str
	}
	if sn == "" {
		sn = b.topicSerial(topic)
	}
	if sn == "" {
		return
	}

	attrs := make(cache.Attrs, len(result.Fields))
	for name, v := range result.Fields {
		attrs[name] = cache.FromAny(v.Any())
	}
	b.cache.MergeDevice(sn, cache.NormalizeDeviceAttrs(attrs))
}

// topicSerial finds the subscribed device owning a message topic.
func (b *Bridge) topicSerial(topic string) string {
	b.mu.Lock()
	defer b.mu.Unlock()
	for sub, dev := range b.subs {
		prefix := sub[:len(sub)-1] // drop the wildcard
		if len(topic) >= len(prefix) && topic[:len(prefix)] == prefix {
			return dev.SN
		}
	}
	return ""
}

// SendCommand composes the named command and publishes it to the
// device command topic wrapped in the standard envelope. The returned
// command carries the state binding for confirmation tracking.
func (b *Bridge) SendCommand(ctx context.Context, dev DeviceRef, command string, params map[string]any) (*hexdata.Command, error) {
	cmd, err := b.composer.Compose(command, params)
	if err != nil {
		return nil, err
	}
	logging.LogMessageData("Command composed", dev.Model, cmd.Bytes)

	payload, err := json.Marshal(envelopePayload{
		PN:   dev.Model,
		Data: base64.StdEncoding.EncodeToString(cmd.Bytes),
	})
	if err != nil {
		return nil, err
	}
	env := map[string]any{
		"head":    map[string]any{"timestamp": time.Now().Unix()},
		"payload": string(payload),
	}
	body, err := json.Marshal(env)
	if err != nil {
		return nil, err
	}

	topic := b.CommandTopic(dev) + cmd.Topic
	token := b.client.Publish(topic, publishQoS, false, body)
	select {
	case <-token.Done():
		if err := token.Error(); err != nil {
			return nil, api.NewNetworkError("publish "+topic, err)
		}
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	b.logger.Debug("command published",
		zap.String("device_sn", dev.SN),
		zap.String("command", command),
		zap.String("topic", topic))
	return cmd, nil
}
