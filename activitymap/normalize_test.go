package activitymap_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/goliatone/go-identity"
	"github.com/goliatone/go-identity/activitymap"
)

func TestNormalizeLoginSuccess(t *testing.T) {
	t.Parallel()

	ts := time.Date(2026, 1, 10, 9, 30, 0, 0, time.UTC)
	event := identity.ActivityEvent{
		EventType: identity.ActivityEventLoginSuccess,
		AccountID: "acc-42",
		Metadata: map[string]any{
			"identifier": "jane@example.com",
			"kind":       "email",
			"session":    "ses-1",
		},
		OccurredAt: ts,
	}

	out := activitymap.Normalize(event)

	if out.ActorID != "acc-42" {
		t.Fatalf("expected actor_id acc-42, got %q", out.ActorID)
	}
	if out.Verb != string(identity.ActivityEventLoginSuccess) {
		t.Fatalf("expected verb %q, got %q", identity.ActivityEventLoginSuccess, out.Verb)
	}
	if out.ObjectType != activitymap.ObjectTypeSession || out.ObjectID != "ses-1" {
		t.Fatalf("expected session ses-1, got %s %q", out.ObjectType, out.ObjectID)
	}
	if out.Channel != "identity" {
		t.Fatalf("expected channel identity, got %q", out.Channel)
	}
	if !out.OccurredAt.Equal(ts) {
		t.Fatalf("expected occurred_at %v, got %v", ts, out.OccurredAt)
	}
	if _, ok := out.Metadata["identifier"]; ok {
		t.Fatalf("expected identifier to be redacted, got %+v", out.Metadata)
	}
	if out.Metadata["kind"] != "email" {
		t.Fatalf("expected metadata kind email, got %#v", out.Metadata["kind"])
	}
	if len(event.Metadata) != 3 {
		t.Fatalf("expected source metadata to remain unchanged, got %+v", event.Metadata)
	}
}

func TestNormalizeObjects(t *testing.T) {
	t.Parallel()

	tests := []struct {
		event      identity.ActivityEventType
		objectType string
	}{
		{identity.ActivityEventRegistered, activitymap.ObjectTypeAccount},
		{identity.ActivityEventSocialCreated, activitymap.ObjectTypeExternalIdentity},
		{identity.ActivityEventSocialLinked, activitymap.ObjectTypeExternalIdentity},
		{identity.ActivityEventSocialLogin, activitymap.ObjectTypeExternalIdentity},
	}

	for _, tt := range tests {
		out := activitymap.Normalize(identity.ActivityEvent{EventType: tt.event, AccountID: "acc-1"})
		if out.ObjectType != tt.objectType || out.ObjectID != "acc-1" {
			t.Fatalf("%s: expected %s acc-1, got %s %q", tt.event, tt.objectType, out.ObjectType, out.ObjectID)
		}
		if out.Metadata != nil {
			t.Fatalf("%s: expected nil metadata, got %+v", tt.event, out.Metadata)
		}
	}
}

func TestNormalizeOptionOverrides(t *testing.T) {
	t.Parallel()

	event := identity.ActivityEvent{
		EventType: identity.ActivityEventLoginFailure,
		Metadata:  map[string]any{"identifier": "jane", "reason": "mismatch"},
	}

	out := activitymap.Normalize(event,
		activitymap.WithDefaultChannel("audit"),
		activitymap.WithActorFallback("gateway"),
		activitymap.WithRedactedKeys("reason"),
	)

	if out.Channel != "audit" {
		t.Fatalf("expected channel audit, got %q", out.Channel)
	}
	if out.ActorID != "gateway" {
		t.Fatalf("expected actor fallback gateway, got %q", out.ActorID)
	}
	if out.Metadata["identifier"] != "jane" {
		t.Fatalf("expected identifier kept, got %+v", out.Metadata)
	}
	if _, ok := out.Metadata["reason"]; ok {
		t.Fatalf("expected reason redacted, got %+v", out.Metadata)
	}
	if out.OccurredAt.IsZero() {
		t.Fatal("expected occurred_at to default to now")
	}
}

func TestSinkForwardsNormalized(t *testing.T) {
	t.Parallel()

	var got activitymap.Normalized
	boom := errors.New("queue full")
	sink := activitymap.Sink(func(_ context.Context, record activitymap.Normalized) error {
		got = record
		return boom
	})

	err := sink.Record(context.Background(), identity.ActivityEvent{
		EventType: identity.ActivityEventRegistered,
		AccountID: "acc-7",
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected forward error, got %v", err)
	}
	if got.ObjectID != "acc-7" {
		t.Fatalf("expected forwarded record for acc-7, got %+v", got)
	}

	if err := activitymap.Sink(nil).Record(context.Background(), identity.ActivityEvent{}); err != nil {
		t.Fatalf("expected nil forward to be a no-op, got %v", err)
	}
}

func TestLogSink(t *testing.T) {
	t.Parallel()

	core, logs := observer.New(zap.InfoLevel)
	sink := activitymap.LogSink(zap.New(core))

	identity.EmitActivity(context.Background(), sink, nil, identity.ActivityEvent{
		EventType: identity.ActivityEventSocialLinked,
		AccountID: "acc-9",
		Metadata:  map[string]any{"provider": "google"},
	})

	entries := logs.FilterMessage("activity").All()
	if len(entries) != 1 {
		t.Fatalf("expected one activity entry, got %d", len(entries))
	}
	fields := entries[0].ContextMap()
	if fields["verb"] != string(identity.ActivityEventSocialLinked) {
		t.Fatalf("expected verb field, got %+v", fields)
	}
	if fields["object_type"] != activitymap.ObjectTypeExternalIdentity {
		t.Fatalf("expected object_type external_identity, got %+v", fields)
	}
}
