package notify

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	"github.com/TWChennai/gocd-git-path-material-plugin/internal/config"
	"github.com/TWChennai/gocd-git-path-material-plugin/internal/logfields"
)

// NATSPublisher publishes notifications on core NATS subjects and, when a
// bucket is configured, records the latest revision per material in a
// JetStream key-value store.
type NATSPublisher struct {
	conn    *nats.Conn
	kv      jetstream.KeyValue
	subject string
}

// NewNATSPublisher connects to the server named in cfg.
func NewNATSPublisher(cfg config.NotifyConfig) (*NATSPublisher, error) {
	if !cfg.Enabled() {
		return nil, fmt.Errorf("notifications are disabled")
	}

	conn, err := nats.Connect(cfg.NATSURL, nats.Name("gitpath"))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	p := &NATSPublisher{conn: conn, subject: cfg.Subject}
	if cfg.KVBucket != "" {
		if err := p.initKVBucket(cfg.KVBucket); err != nil {
			conn.Close()
			return nil, fmt.Errorf("failed to initialize KV bucket: %w", err)
		}
	}

	slog.Info("NATS publisher initialized",
		logfields.URL(cfg.NATSURL),
		slog.String("subject", cfg.Subject),
		slog.String("kv_bucket", cfg.KVBucket))
	return p, nil
}

func (p *NATSPublisher) initKVBucket(bucket string) error {
	js, err := jetstream.New(p.conn)
	if err != nil {
		return fmt.Errorf("failed to create JetStream context: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	kv, err := js.KeyValue(ctx, bucket)
	if err == nil {
		p.kv = kv
		return nil
	}
	kv, err = js.CreateKeyValue(ctx, jetstream.KeyValueConfig{
		Bucket:      bucket,
		Description: "Latest revision per git path material",
		History:     1,
	})
	if err != nil {
		return fmt.Errorf("failed to create KV bucket: %w", err)
	}
	p.kv = kv
	slog.Info("Created KV bucket for latest revisions", slog.String("bucket", bucket))
	return nil
}

// Publish sends n on the material's subject.
func (p *NATSPublisher) Publish(ctx context.Context, n *Notification) error {
	data, err := encode(n)
	if err != nil {
		return err
	}
	subject := Subject(p.subject, n.Material)
	if err := p.conn.Publish(subject, data); err != nil {
		return fmt.Errorf("failed to publish notification: %w", err)
	}
	if err := p.conn.FlushWithContext(ctx); err != nil {
		return fmt.Errorf("failed to flush notification: %w", err)
	}

	if p.kv != nil && n.Latest() != "" {
		if _, err := p.kv.Put(ctx, n.Material, []byte(n.Latest())); err != nil {
			return fmt.Errorf("failed to store latest revision: %w", err)
		}
	}

	slog.Debug("Published revision notification",
		logfields.Material(n.Material),
		logfields.Revision(n.Latest()),
		logfields.Count(len(n.Revisions)),
		slog.String("subject", subject))
	return nil
}

// Close drains and closes the connection.
func (p *NATSPublisher) Close() error {
	if p.conn == nil {
		return nil
	}
	if err := p.conn.Drain(); err != nil {
		p.conn.Close()
		return err
	}
	return nil
}
