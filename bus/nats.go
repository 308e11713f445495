package bus

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/timgluz/nrwatch/alert"
	"github.com/timgluz/nrwatch/command"
)

// Connect opens a connection that keeps reconnecting in the background.
func Connect(config Config, logger *slog.Logger) (*nats.Conn, error) {
	conn, err := nats.Connect(config.URL,
		nats.Name(config.ClientName),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				logger.Warn("Disconnected from NATS", "error", err)
			}
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			logger.Info("Reconnected to NATS", "url", c.ConnectedUrl())
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("connect to nats %s: %w", config.URL, err)
	}

	return conn, nil
}

// Close drains pending messages before closing the connection.
func Close(conn *nats.Conn) {
	if conn != nil {
		_ = conn.Drain()
		conn.Close()
	}
}

type publisher interface {
	Publish(subject string, data []byte) error
}

// AlertPublisher is an alert.Sink that publishes messages as JSON.
type AlertPublisher struct {
	conn    publisher
	subject string
	logger  *slog.Logger
}

func NewAlertPublisher(conn *nats.Conn, subject string, logger *slog.Logger) *AlertPublisher {
	return &AlertPublisher{
		conn:    conn,
		subject: subject,
		logger:  logger,
	}
}

func (p *AlertPublisher) Deliver(ctx context.Context, msg alert.Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	data, err := json.Marshal(msg)
	if err != nil {
		return err
	}

	if err := p.conn.Publish(p.subject, data); err != nil {
		return fmt.Errorf("publish alert to %s: %w", p.subject, err)
	}

	p.logger.Debug("Published alert", "subject", p.subject, "appID", msg.EntityID, "kind", msg.Kind)
	return nil
}

type Dispatcher interface {
	Dispatch(ctx context.Context, req command.Request) (string, error)
}

type commandReply struct {
	Reply string `json:"reply,omitempty"`
	Error string `json:"error,omitempty"`
}

// CommandResponder answers command requests received on a subject. The
// permissions of a request are taken as sent, so only trusted clients may
// publish on the subject.
type CommandResponder struct {
	dispatcher Dispatcher
	timeout    time.Duration
	logger     *slog.Logger

	sub *nats.Subscription
}

func NewCommandResponder(dispatcher Dispatcher, timeout time.Duration, logger *slog.Logger) *CommandResponder {
	return &CommandResponder{
		dispatcher: dispatcher,
		timeout:    timeout,
		logger:     logger,
	}
}

func (r *CommandResponder) Subscribe(conn *nats.Conn, subject string) error {
	sub, err := conn.Subscribe(subject, func(msg *nats.Msg) {
		if msg.Reply == "" {
			r.logger.Warn("Dropping command without reply subject", "subject", msg.Subject)
			return
		}

		if err := msg.Respond(r.handle(msg.Data)); err != nil {
			r.logger.Error("Failed to respond to command", "error", err)
		}
	})
	if err != nil {
		return fmt.Errorf("subscribe to %s: %w", subject, err)
	}

	r.sub = sub
	r.logger.Info("Listening for commands", "subject", subject)
	return nil
}

func (r *CommandResponder) Unsubscribe() error {
	if r.sub == nil {
		return nil
	}
	return r.sub.Unsubscribe()
}

func (r *CommandResponder) handle(data []byte) []byte {
	var req command.Request
	if err := json.Unmarshal(data, &req); err != nil {
		return encodeReply(commandReply{Error: "invalid command payload"})
	}

	ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
	defer cancel()

	reply, err := r.dispatcher.Dispatch(ctx, req)
	switch {
	case errors.Is(err, command.ErrNoMatch):
		return encodeReply(commandReply{Error: "unknown command"})
	case err != nil:
		r.logger.Error("Command failed", "text", req.Text, "error", err)
		return encodeReply(commandReply{Error: err.Error()})
	}

	return encodeReply(commandReply{Reply: reply})
}

func encodeReply(reply commandReply) []byte {
	data, _ := json.Marshal(reply)
	return data
}
