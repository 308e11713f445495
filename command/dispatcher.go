package command

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"slices"
	"strings"
)

const (
	PermissionAdmin  = "admin"
	PermissionServer = "server"

	ReplyForbidden = "You don't have permission to do that."
)

var ErrNoMatch = errors.New("no command matches")

// Request is an incoming command text plus the permissions its sender holds.
type Request struct {
	Text        string   `json:"text"`
	Permissions []string `json:"permissions"`
}

// Handler receives the submatches of the route pattern in args.
type Handler func(ctx context.Context, req Request, args []string) (string, error)

type route struct {
	pattern     *regexp.Regexp
	permissions []string
	handler     Handler
}

type Dispatcher struct {
	routes []route
	logger *slog.Logger
}

func NewDispatcher(logger *slog.Logger) *Dispatcher {
	return &Dispatcher{logger: logger}
}

// Handle registers a case-insensitive pattern. Routes are tried in
// registration order.
func (d *Dispatcher) Handle(pattern string, permissions []string, handler Handler) error {
	re, err := regexp.Compile("(?i)" + pattern)
	if err != nil {
		return fmt.Errorf("compile pattern %q: %w", pattern, err)
	}

	d.routes = append(d.routes, route{pattern: re, permissions: permissions, handler: handler})
	return nil
}

// Dispatch runs the first route matching req.Text. Handler errors are logged
// and the handler reply is still returned.
func (d *Dispatcher) Dispatch(ctx context.Context, req Request) (string, error) {
	text := strings.TrimSpace(req.Text)

	for _, r := range d.routes {
		match := r.pattern.FindStringSubmatch(text)
		if match == nil {
			continue
		}

		if !hasPermissions(req.Permissions, r.permissions) {
			d.logger.Warn("Command rejected", "text", text, "required", r.permissions)
			return ReplyForbidden, nil
		}

		reply, err := r.handler(ctx, req, match[1:])
		if err != nil {
			d.logger.Error("Command handler failed", "text", text, "error", err)
		}
		return reply, nil
	}

	return "", ErrNoMatch
}

func hasPermissions(granted, required []string) bool {
	for _, perm := range required {
		if !slices.Contains(granted, perm) {
			return false
		}
	}
	return true
}

// NewAdminDispatcher wires the newrelic commands and their help topic.
func NewAdminDispatcher(admin *Admin, logger *slog.Logger) *Dispatcher {
	d := NewDispatcher(logger)
	perms := []string{PermissionAdmin, PermissionServer}

	// patterns are constants, compile errors are programming errors
	mustHandle(d, `^newrelic list$`, perms, func(ctx context.Context, req Request, args []string) (string, error) {
		return admin.List(ctx)
	})
	mustHandle(d, `^newrelic enable (.+)$`, perms, func(ctx context.Context, req Request, args []string) (string, error) {
		return admin.Enable(ctx, ParseSelector(args[0]))
	})
	mustHandle(d, `^newrelic disable (.+)$`, perms, func(ctx context.Context, req Request, args []string) (string, error) {
		return admin.Disable(ctx, ParseSelector(args[0]))
	})

	mustHandle(d, `^help newrelic$`, nil, func(ctx context.Context, req Request, args []string) (string, error) {
		return NewRelicHelp.String(), nil
	})

	return d
}

func mustHandle(d *Dispatcher, pattern string, permissions []string, handler Handler) {
	if err := d.Handle(pattern, permissions, handler); err != nil {
		panic(err)
	}
}
