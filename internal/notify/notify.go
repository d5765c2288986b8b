// Package notify publishes new-revision notifications.
package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/TWChennai/gocd-git-path-material-plugin/internal/material"
)

// Notification announces revisions detected for one material.
type Notification struct {
	JobID      string                  `json:"job_id"`
	Material   string                  `json:"material"`
	Previous   string                  `json:"previous,omitempty"`
	Revisions  []material.RevisionJSON `json:"revisions"`
	DetectedAt time.Time               `json:"detected_at"`
}

// Latest returns the newest revision in the notification.
func (n *Notification) Latest() string {
	if len(n.Revisions) == 0 {
		return ""
	}
	return n.Revisions[0].Revision
}

// Publisher delivers notifications.
type Publisher interface {
	Publish(ctx context.Context, n *Notification) error
	Close() error
}

// NoopPublisher drops notifications.
type NoopPublisher struct{}

func (NoopPublisher) Publish(context.Context, *Notification) error { return nil }
func (NoopPublisher) Close() error                                 { return nil }

// Subject returns the subject for material below base. Characters that NATS
// treats as tokens or wildcards are replaced.
func Subject(base, materialName string) string {
	r := strings.NewReplacer(".", "_", "*", "_", ">", "_", " ", "_")
	return base + "." + r.Replace(materialName)
}

func encode(n *Notification) ([]byte, error) {
	data, err := json.Marshal(n)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal notification: %w", err)
	}
	return data, nil
}
