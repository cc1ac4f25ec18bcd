package led

import (
	"encoding/binary"
	"image"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/pkg/errors"

	"github.com/coreman2200/lumiplay/internal/layout"
)

// MQTTOptions configures the remote LED receiver sink.
type MQTTOptions struct {
	URL      string        `yaml:"url"`
	ClientID string        `yaml:"client_id"`
	Username string        `yaml:"username"`
	Password string        `yaml:"password"`
	Topic    string        `yaml:"topic"`
	QoS      byte          `yaml:"qos"`
	Timeout  time.Duration `yaml:"timeout"`
}

// Publisher is the part of mqtt.Client the sink uses.
type Publisher interface {
	Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token
}

// MQTT publishes every frame as a binary message: a little endian uint16 pixel count
// followed by one RGB triplet per pixel in wiring order.
type MQTT struct {
	pub     Publisher
	client  mqtt.Client
	topic   string
	qos     byte
	timeout time.Duration
	sampler *Sampler
}

func NewMQTT(pub Publisher, topic string, lay layout.Layout) *MQTT {
	return &MQTT{
		pub:     pub,
		topic:   topic,
		qos:     0,
		timeout: time.Second,
		sampler: NewSampler(lay),
	}
}

// DialMQTT connects to the broker and returns a sink publishing on o.Topic.
func DialMQTT(o MQTTOptions, lay layout.Layout) (*MQTT, error) {
	if lay.Count() <= 0 || lay.Count() > 0xFFFF {
		return nil, errors.Errorf("invalid pixel count %d", lay.Count())
	}
	id := o.ClientID
	if id == "" {
		id = "lumiplay"
	}
	options := mqtt.NewClientOptions().
		AddBroker(o.URL).
		SetClientID(id).
		SetUsername(o.Username).
		SetPassword(o.Password).
		SetKeepAlive(30 * time.Second).
		SetPingTimeout(5 * time.Second).
		SetAutoReconnect(true)
	client := mqtt.NewClient(options)

	timeout := o.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	tok := client.Connect()
	if !tok.WaitTimeout(timeout) {
		return nil, errors.Errorf("mqtt connect %s: timeout", o.URL)
	}
	if err := tok.Error(); err != nil {
		return nil, errors.Wrapf(err, "mqtt connect %s", o.URL)
	}

	m := NewMQTT(client, o.Topic, lay)
	m.client = client
	m.qos = o.QoS
	if o.Timeout > 0 {
		m.timeout = o.Timeout
	}
	return m, nil
}

func (m *MQTT) Write(img *image.RGBA) error {
	payload := MarshalFrame(m.sampler.Sample(img))
	tok := m.pub.Publish(m.topic, m.qos, false, payload)
	if !tok.WaitTimeout(m.timeout) {
		return errors.Errorf("mqtt publish %s: timeout", m.topic)
	}
	return errors.Wrapf(tok.Error(), "mqtt publish %s", m.topic)
}

func (m *MQTT) Close() error {
	if m.client != nil {
		m.client.Disconnect(250)
	}
	return nil
}

// MarshalFrame encodes a 1×N strip image.
func MarshalFrame(line *image.RGBA) []byte {
	n := line.Bounds().Dx()
	data := make([]byte, 2, n*3+2)
	binary.LittleEndian.PutUint16(data, uint16(n))
	for x := 0; x < n; x++ {
		c := line.RGBAAt(line.Bounds().Min.X+x, line.Bounds().Min.Y)
		data = append(data, c.R, c.G, c.B)
	}
	return data
}
