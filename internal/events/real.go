package events

import (
	"sync"
	"time"

	"github.com/charmbracelet/log"
	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/pkg/errors"
)

const bufferCapacity = 64

// RealPublisher publishes to an MQTT broker. While the broker is
// unreachable, messages land in a fixed-capacity ring buffer (oldest
// dropped on overflow) and are replayed in order once the connection comes
// back.
type RealPublisher struct {
	client paho.Client
	logger *log.Logger

	mu  sync.Mutex
	buf *ringBuffer
}

// NewRealPublisher creates a publisher for the given broker. The initial
// connection is attempted in the background; publishing before it succeeds
// only buffers.
func NewRealPublisher(broker, clientID string, logger *log.Logger) *RealPublisher {
	p := &RealPublisher{
		logger: logger,
		buf:    newRingBuffer(bufferCapacity),
	}

	opts := paho.NewClientOptions().
		AddBroker(broker).
		SetClientID(clientID).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(5 * time.Second).
		SetOnConnectHandler(p.onConnect)

	p.client = paho.NewClient(opts)
	p.client.Connect()
	return p
}

// PublishPress sends one completed press dispatch (QoS 0).
func (p *RealPublisher) PublishPress(event PressEvent) error {
	payload, err := FormatPressPayload(event)
	if err != nil {
		return errors.Wrap(err, "format press payload")
	}
	return p.publishOrBuffer(bufferedMsg{topic: Topic, payload: payload, qos: 0})
}

// PublishSystem sends a lifecycle event (QoS 1, so STARTUP/SHUTDOWN are not
// silently lost).
func (p *RealPublisher) PublishSystem(event SystemEvent) error {
	payload, err := FormatSystemPayload(event)
	if err != nil {
		return errors.Wrap(err, "format system payload")
	}
	return p.publishOrBuffer(bufferedMsg{
		topic:    TopicSystem,
		payload:  payload,
		qos:      1,
		retained: event.Retained,
	})
}

func (p *RealPublisher) publishOrBuffer(msg bufferedMsg) error {
	if !p.client.IsConnected() {
		p.mu.Lock()
		p.buf.push(msg)
		n := p.buf.len()
		p.mu.Unlock()
		p.logger.Debug("broker unreachable, buffered event", "topic", msg.topic, "buffered", n)
		return nil
	}

	token := p.client.Publish(msg.topic, msg.qos, msg.retained, msg.payload)
	if !token.WaitTimeout(5 * time.Second) {
		p.mu.Lock()
		p.buf.push(msg)
		p.mu.Unlock()
		return errors.New("publish timeout")
	}
	if err := token.Error(); err != nil {
		p.mu.Lock()
		p.buf.push(msg)
		p.mu.Unlock()
		return errors.Wrap(err, "publish")
	}
	return nil
}

// onConnect replays buffered messages in their original order.
func (p *RealPublisher) onConnect(client paho.Client) {
	p.mu.Lock()
	pending := p.buf.drainAll()
	p.mu.Unlock()

	if len(pending) == 0 {
		return
	}
	p.logger.Info("broker connected, replaying buffered events", "count", len(pending))
	for _, msg := range pending {
		token := client.Publish(msg.topic, msg.qos, msg.retained, msg.payload)
		token.WaitTimeout(5 * time.Second)
		if err := token.Error(); err != nil {
			p.logger.Warn("replay failed", "topic", msg.topic, "err", err)
		}
	}
}

// Close disconnects from the broker, giving in-flight publishes a moment
// to finish.
func (p *RealPublisher) Close() error {
	p.client.Disconnect(1000)
	return nil
}
