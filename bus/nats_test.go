package bus

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/timgluz/nrwatch/alert"
	"github.com/timgluz/nrwatch/command"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type capturePublisher struct {
	subject string
	data    []byte
	err     error
}

func (p *capturePublisher) Publish(subject string, data []byte) error {
	p.subject = subject
	p.data = data
	return p.err
}

func TestAlertPublisherPublishesJSON(t *testing.T) {
	conn := &capturePublisher{}
	publisher := &AlertPublisher{conn: conn, subject: "alerts", logger: discardLogger()}

	msg := alert.NewMessage(alert.KindApdex, "1", "web", 0.5, alert.DefaultApdexRule)
	if err := publisher.Deliver(context.Background(), msg); err != nil {
		t.Fatalf("Deliver returned error: %v", err)
	}

	if conn.subject != "alerts" {
		t.Errorf("unexpected subject %q", conn.subject)
	}

	var decoded alert.Message
	if err := json.Unmarshal(conn.data, &decoded); err != nil {
		t.Fatalf("payload is not JSON: %v", err)
	}
	if decoded.EntityName != "web" || decoded.Kind != alert.KindApdex || decoded.Rule != "< 0.8" {
		t.Errorf("unexpected payload %+v", decoded)
	}
}

func TestAlertPublisherWrapsErrors(t *testing.T) {
	cause := errors.New("nats: connection closed")
	publisher := &AlertPublisher{conn: &capturePublisher{err: cause}, subject: "alerts", logger: discardLogger()}

	err := publisher.Deliver(context.Background(), alert.Message{})
	if !errors.Is(err, cause) {
		t.Fatalf("expected wrapped cause, got %v", err)
	}
}

type staticDispatcher struct {
	reply string
	err   error
	got   command.Request
}

func (d *staticDispatcher) Dispatch(ctx context.Context, req command.Request) (string, error) {
	d.got = req
	return d.reply, d.err
}

func decodeReply(t *testing.T, data []byte) commandReply {
	t.Helper()

	var reply commandReply
	if err := json.Unmarshal(data, &reply); err != nil {
		t.Fatalf("reply is not JSON: %v", err)
	}
	return reply
}

func TestCommandResponderHandle(t *testing.T) {
	dispatcher := &staticDispatcher{reply: "Enabled *web*."}
	responder := NewCommandResponder(dispatcher, time.Second, discardLogger())

	reply := decodeReply(t, responder.handle([]byte(`{"text":"newrelic enable web","permissions":["admin","server"]}`)))
	if reply.Reply != "Enabled *web*." || reply.Error != "" {
		t.Errorf("unexpected reply %+v", reply)
	}
	if dispatcher.got.Text != "newrelic enable web" || len(dispatcher.got.Permissions) != 2 {
		t.Errorf("unexpected dispatched request %+v", dispatcher.got)
	}
}

func TestCommandResponderErrors(t *testing.T) {
	responder := NewCommandResponder(&staticDispatcher{err: command.ErrNoMatch}, time.Second, discardLogger())

	if reply := decodeReply(t, responder.handle([]byte(`{"text":"dance"}`))); reply.Error != "unknown command" {
		t.Errorf("unexpected reply for unmatched command %+v", reply)
	}

	if reply := decodeReply(t, responder.handle([]byte(`not json`))); reply.Error != "invalid command payload" {
		t.Errorf("unexpected reply for bad payload %+v", reply)
	}
}

func TestConfigDefaults(t *testing.T) {
	var config Config
	config.ApplyDefaults()

	if config.Enabled() {
		t.Errorf("config without url must be disabled")
	}
	if config.CommandSubject != DefaultCommandSubject || config.AlertSubject != DefaultAlertSubject {
		t.Errorf("unexpected defaults %+v", config)
	}
}
