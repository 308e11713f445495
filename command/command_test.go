package command

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/timgluz/nrwatch/monitor"
	"github.com/timgluz/nrwatch/registry"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fakeSource struct {
	entities []monitor.Entity
	err      error
}

func (s fakeSource) ListEntities(ctx context.Context) ([]monitor.Entity, error) {
	return s.entities, s.err
}

func (s fakeSource) Apdex(ctx context.Context, id string) (float64, error) { return 1, nil }

func (s fakeSource) ErrorRate(ctx context.Context, id string) (float64, error) { return 0, nil }

var entities = []monitor.Entity{{ID: "10", Name: "web"}, {ID: "20", Name: "api"}}

func newAdmin(t *testing.T, source monitor.Source) (*Admin, *registry.Registry) {
	t.Helper()
	reg := registry.New(registry.NewMemoryStore(), discardLogger())
	return NewAdmin(source, reg, discardLogger()), reg
}

func TestParseSelector(t *testing.T) {
	tests := []struct {
		in      string
		byIndex bool
		str     string
	}{
		{"1", true, "1"},
		{" 7 ", true, "7"},
		{"web", false, "web"},
		{"1a", false, "1a"},
		{"-1", false, "-1"},
		{"007", true, "007"},
	}

	for _, tc := range tests {
		sel := ParseSelector(tc.in)
		if sel.IsIndex() != tc.byIndex || sel.String() != tc.str {
			t.Errorf("ParseSelector(%q) = %+v", tc.in, sel)
		}
	}

	if ParseSelector("007").index != ByIndex(7).index {
		t.Errorf("leading zeros must parse to the same index")
	}
}

func TestSelectorResolve(t *testing.T) {
	tests := []struct {
		sel  string
		want string
	}{
		{"1", "api"},
		{"0", "web"},
		{"web", "web"},
	}
	for _, tc := range tests {
		entity, err := ParseSelector(tc.sel).Resolve(entities)
		if err != nil {
			t.Fatalf("Resolve(%q) returned error: %v", tc.sel, err)
		}
		if entity.Name != tc.want {
			t.Errorf("Resolve(%q) = %q, want %q", tc.sel, entity.Name, tc.want)
		}
	}

	for _, sel := range []string{"999", "nosuch", "Web"} {
		_, err := ParseSelector(sel).Resolve(entities)
		var resErr *ResolutionError
		if !errors.As(err, &resErr) {
			t.Errorf("Resolve(%q): expected ResolutionError, got %v", sel, err)
		}
	}
}

func TestListFormat(t *testing.T) {
	ctx := context.Background()
	admin, reg := newAdmin(t, fakeSource{entities: entities})
	_ = reg.Enable(ctx, registry.Record{ID: "10", Name: "web"})

	reply, err := admin.List(ctx)
	if err != nil {
		t.Fatalf("List returned error: %v", err)
	}
	if want := "0. web – Enabled\n1. api – Disabled"; reply != want {
		t.Errorf("unexpected list reply %q, want %q", reply, want)
	}
}

func TestListEmpty(t *testing.T) {
	admin, _ := newAdmin(t, fakeSource{})
	reply, err := admin.List(context.Background())
	if err != nil || reply != ReplyEmptyList {
		t.Errorf("unexpected reply %q, %v", reply, err)
	}
}

func TestEnableAndDisableReplies(t *testing.T) {
	ctx := context.Background()
	admin, reg := newAdmin(t, fakeSource{entities: entities})

	reply, err := admin.Enable(ctx, ParseSelector("1"))
	if err != nil || reply != "Enabled *api*." {
		t.Fatalf("unexpected enable reply %q, %v", reply, err)
	}
	if ok, _ := reg.IsEnabled(ctx, "20"); !ok {
		t.Fatalf("api must be enabled")
	}

	reply, err = admin.Disable(ctx, ParseSelector("api"))
	if err != nil || reply != "Disabled *api*." {
		t.Fatalf("unexpected disable reply %q, %v", reply, err)
	}
	if ok, _ := reg.IsEnabled(ctx, "20"); ok {
		t.Fatalf("api must be disabled")
	}
}

func TestUnresolvedSelectorReply(t *testing.T) {
	admin, _ := newAdmin(t, fakeSource{entities: entities})

	reply, err := admin.Enable(context.Background(), ParseSelector("nosuch"))
	if err != nil {
		t.Fatalf("not found must not be an error, got %v", err)
	}
	if reply != "Application *nosuch* not found." {
		t.Errorf("unexpected reply %q", reply)
	}
}

func TestProviderFailureReply(t *testing.T) {
	admin, _ := newAdmin(t, fakeSource{err: errors.New("unauthorized")})

	reply, err := admin.Disable(context.Background(), ParseSelector("web"))
	if err == nil {
		t.Fatalf("expected provider error")
	}
	if reply != ReplyFailed {
		t.Errorf("unexpected reply %q", reply)
	}
}

func TestDispatcherRoutesAndPermissions(t *testing.T) {
	admin, _ := newAdmin(t, fakeSource{entities: entities})
	d := NewAdminDispatcher(admin, discardLogger())
	ctx := context.Background()
	perms := []string{PermissionAdmin, PermissionServer}

	reply, err := d.Dispatch(ctx, Request{Text: "NewRelic enable web", Permissions: perms})
	if err != nil || reply != "Enabled *web*." {
		t.Fatalf("unexpected reply %q, %v", reply, err)
	}

	reply, err = d.Dispatch(ctx, Request{Text: "newrelic list", Permissions: perms})
	if err != nil || reply != "0. web – Enabled\n1. api – Disabled" {
		t.Fatalf("unexpected list reply %q, %v", reply, err)
	}

	reply, err = d.Dispatch(ctx, Request{Text: "newrelic disable 0", Permissions: []string{PermissionAdmin}})
	if err != nil || reply != ReplyForbidden {
		t.Fatalf("expected permission reply, got %q, %v", reply, err)
	}

	if _, err := d.Dispatch(ctx, Request{Text: "newrelic restart", Permissions: perms}); !errors.Is(err, ErrNoMatch) {
		t.Fatalf("expected ErrNoMatch, got %v", err)
	}

	reply, err = d.Dispatch(ctx, Request{Text: "help newrelic"})
	if err != nil || reply != NewRelicHelp.String() {
		t.Fatalf("unexpected help reply %q, %v", reply, err)
	}
}
