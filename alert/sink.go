package alert

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
)

type Kind string

const (
	KindApdex     Kind = "apdex"
	KindErrorRate Kind = "error_rate"
)

// Message is a single breach notification for one application.
type Message struct {
	Kind       Kind    `json:"kind"`
	EntityID   string  `json:"app_id"`
	EntityName string  `json:"app_name"`
	Value      float64 `json:"value"`
	Rule       string  `json:"rule"`

	Title string `json:"title"`
	Text  string `json:"text"`
}

func NewMessage(kind Kind, entityID, entityName string, value float64, rule ComparisonRule) Message {
	msg := Message{
		Kind:       kind,
		EntityID:   entityID,
		EntityName: entityName,
		Value:      value,
		Rule:       rule.String(),
	}

	switch kind {
	case KindApdex:
		msg.Title = "Apdex alert: " + entityName
		msg.Text = fmt.Sprintf("New Relic application *%s*'s apdex score is %s", entityName, FormatValue(value))
	case KindErrorRate:
		msg.Title = "Error rate alert: " + entityName
		msg.Text = fmt.Sprintf("New Relic application *%s*'s error rate is %s!", entityName, FormatValue(value))
	default:
		msg.Title = "Alert: " + entityName
		msg.Text = fmt.Sprintf("New Relic application *%s*: %s is %s", entityName, kind, FormatValue(value))
	}

	return msg
}

// Sink delivers alert messages to a fixed destination. Delivery is one-way.
type Sink interface {
	Deliver(ctx context.Context, msg Message) error
}

type SinkFunc func(ctx context.Context, msg Message) error

func (f SinkFunc) Deliver(ctx context.Context, msg Message) error {
	return f(ctx, msg)
}

// common sink builders
func LogSink(logger *slog.Logger) Sink {
	return SinkFunc(func(ctx context.Context, msg Message) error {
		logger.Info("Alert triggered", "kind", msg.Kind, "appID", msg.EntityID, "appName", msg.EntityName, "value", msg.Value, "rule", msg.Rule)
		return nil
	})
}

// MultiSink delivers to every sink, even when an earlier one fails, and
// returns the joined errors.
func MultiSink(sinks ...Sink) Sink {
	return SinkFunc(func(ctx context.Context, msg Message) error {
		var errs []error
		for _, sink := range sinks {
			if err := sink.Deliver(ctx, msg); err != nil {
				errs = append(errs, err)
			}
		}
		return errors.Join(errs...)
	})
}
