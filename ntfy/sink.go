package ntfy

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/timgluz/nrwatch/alert"
)

// Sink turns alert messages into ntfy notifications on one topic.
type Sink struct {
	config   Config
	notifier Notifier
}

func NewSink(config Config, notifier Notifier) *Sink {
	return &Sink{
		config:   config,
		notifier: notifier,
	}
}

// NewSinkFromConfig wires an HTTPNotifier for config. The bearer token is
// attached only when its environment variable is present.
func NewSinkFromConfig(config Config, client *http.Client, logger *slog.Logger) *Sink {
	notifier := NewHTTPNotifier(config.Endpoint, client, logger)
	notifier.SetCredentialProvider(TokenFromEnv(config.TokenEnv))

	return NewSink(config, notifier)
}

func (s *Sink) Deliver(ctx context.Context, msg alert.Message) error {
	tags := append([]string{}, s.config.Tags...)
	tags = append(tags, string(msg.Kind))

	notification := NewNotification(
		s.config.Topic,
		msg.Title,
		msg.Text,
		WithPriority(s.config.Priority),
		WithMarkdown(s.config.MarkdownEnabled()),
		WithTags(tags...),
	)

	return s.notifier.Send(ctx, notification)
}
