// Package natsbus publishes controller events to NATS. It has the same
// surface as the MQTT publisher so the daemon can use either broker.
package natsbus

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"github.com/sweeney/boiler-controller/internal/logic"
	"github.com/sweeney/boiler-controller/internal/mqtt"
)

// Subjects for controller and lifecycle events.
const (
	Subject       = "boiler.controller.events"
	SubjectSystem = "boiler.controller.system"
)

// Bucket is the JetStream key-value bucket holding the latest retained
// system message, the NATS counterpart of an MQTT retained message.
const Bucket = "boiler_controller"

const kvTimeout = 5 * time.Second

// conn is the subset of *nats.Conn the publisher uses.
type conn interface {
	Publish(subj string, data []byte) error
	IsConnected() bool
	Drain() error
}

// kvStore is the subset of jetstream.KeyValue the publisher uses.
type kvStore interface {
	Put(ctx context.Context, key string, value []byte) (uint64, error)
}

// Publisher publishes events on NATS subjects.
type Publisher struct {
	nc conn
	kv kvStore
}

// Connect dials the NATS server at url. Reconnection is handled by the
// client library, which buffers publishes while disconnected.
func Connect(url, name string) (*Publisher, error) {
	nc, err := nats.Connect(url,
		nats.Name(name),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			log.Printf("nats: disconnected: %v", err)
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			log.Printf("nats: reconnected to %s", c.ConnectedUrl())
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("connect to nats: %w", err)
	}

	p := &Publisher{nc: nc}
	kv, err := openBucket(nc)
	if err != nil {
		log.Printf("nats: retained status disabled: %v", err)
	} else {
		p.kv = kv
	}
	return p, nil
}

func openBucket(nc *nats.Conn) (jetstream.KeyValue, error) {
	js, err := jetstream.New(nc)
	if err != nil {
		return nil, fmt.Errorf("create jetstream context: %w", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), kvTimeout)
	defer cancel()

	if kv, err := js.KeyValue(ctx, Bucket); err == nil {
		return kv, nil
	}
	kv, err := js.CreateKeyValue(ctx, jetstream.KeyValueConfig{
		Bucket:      Bucket,
		Description: "Latest boiler controller status",
		History:     1,
	})
	if err != nil {
		return nil, fmt.Errorf("create kv bucket: %w", err)
	}
	return kv, nil
}

// Publish sends a controller event.
func (p *Publisher) Publish(event logic.Event) error {
	payload, err := mqtt.FormatPayload(event)
	if err != nil {
		return fmt.Errorf("format payload: %w", err)
	}
	if err := p.nc.Publish(Subject, payload); err != nil {
		return fmt.Errorf("publish: %w", err)
	}
	return nil
}

// PublishSystem sends a lifecycle event. Retained events also replace the
// "status" key in the bucket.
func (p *Publisher) PublishSystem(event mqtt.SystemEvent) error {
	payload, err := mqtt.FormatSystemPayload(event)
	if err != nil {
		return fmt.Errorf("format system payload: %w", err)
	}
	if err := p.nc.Publish(SubjectSystem, payload); err != nil {
		return fmt.Errorf("publish system: %w", err)
	}
	if event.Retained && p.kv != nil {
		ctx, cancel := context.WithTimeout(context.Background(), kvTimeout)
		defer cancel()
		if _, err := p.kv.Put(ctx, "status", payload); err != nil {
			return fmt.Errorf("store retained status: %w", err)
		}
	}
	return nil
}

// IsConnected reports whether the server connection is up.
func (p *Publisher) IsConnected() bool {
	return p.nc.IsConnected()
}

// Close flushes pending messages and closes the connection.
func (p *Publisher) Close() error {
	if err := p.nc.Drain(); err != nil {
		return fmt.Errorf("drain nats connection: %w", err)
	}
	return nil
}

var _ mqtt.Publisher = (*Publisher)(nil)
