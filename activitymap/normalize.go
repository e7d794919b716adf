package activitymap

import (
	"strings"
	"time"

	"github.com/goliatone/go-identity"
)

const (
	// MetadataKeySession carries the session id on login and validation events.
	MetadataKeySession = "session"
	// MetadataKeyProvider carries the provider name on social events.
	MetadataKeyProvider = "provider"
	// MetadataKeyIdentifier carries the raw login identifier.
	MetadataKeyIdentifier = "identifier"
)

const (
	defaultChannel = "identity"
	defaultActorID = "anonymous"

	ObjectTypeAccount          = "account"
	ObjectTypeSession          = "session"
	ObjectTypeExternalIdentity = "external_identity"
)

// Normalized is a transport-agnostic activity shape for downstream systems.
type Normalized struct {
	ActorID    string         `json:"actor_id"`
	Verb       string         `json:"verb"`
	ObjectType string         `json:"object_type,omitempty"`
	ObjectID   string         `json:"object_id,omitempty"`
	Channel    string         `json:"channel,omitempty"`
	Metadata   map[string]any `json:"metadata,omitempty"`
	OccurredAt time.Time      `json:"occurred_at"`
}

// Option customizes normalization behavior.
type Option func(*normalizeOptions)

type normalizeOptions struct {
	channel       string
	actorFallback string
	redacted      map[string]struct{}
	now           func() time.Time
}

// Normalize converts an identity.ActivityEvent into a generic normalized shape.
// Raw login identifiers are dropped unless WithRedactedKeys overrides the set.
func Normalize(event identity.ActivityEvent, opts ...Option) Normalized {
	options := defaultNormalizeOptions()
	for _, opt := range opts {
		if opt != nil {
			opt(&options)
		}
	}

	occurredAt := event.OccurredAt
	if occurredAt.IsZero() {
		occurredAt = options.now()
	}

	objectType, objectID := resolveObject(event)

	return Normalized{
		ActorID:    firstNonEmpty(strings.TrimSpace(event.AccountID), options.actorFallback),
		Verb:       string(event.EventType),
		ObjectType: objectType,
		ObjectID:   objectID,
		Channel:    options.channel,
		Metadata:   normalizeMetadata(event.Metadata, options.redacted),
		OccurredAt: occurredAt.UTC(),
	}
}

// WithDefaultChannel sets the channel for normalized records.
func WithDefaultChannel(channel string) Option {
	return func(opts *normalizeOptions) {
		if c := strings.TrimSpace(channel); c != "" {
			opts.channel = c
		}
	}
}

// WithActorFallback sets the actor id used when the event has no account.
func WithActorFallback(actorID string) Option {
	return func(opts *normalizeOptions) {
		if a := strings.TrimSpace(actorID); a != "" {
			opts.actorFallback = a
		}
	}
}

// WithRedactedKeys replaces the set of metadata keys removed from records.
// Call it with no keys to keep everything.
func WithRedactedKeys(keys ...string) Option {
	return func(opts *normalizeOptions) {
		opts.redacted = make(map[string]struct{}, len(keys))
		for _, key := range keys {
			opts.redacted[key] = struct{}{}
		}
	}
}

func defaultNormalizeOptions() normalizeOptions {
	return normalizeOptions{
		channel:       defaultChannel,
		actorFallback: defaultActorID,
		redacted:      map[string]struct{}{MetadataKeyIdentifier: {}},
		now:           time.Now,
	}
}

func resolveObject(event identity.ActivityEvent) (string, string) {
	switch event.EventType {
	case identity.ActivityEventLoginSuccess,
		identity.ActivityEventLoginFailure,
		identity.ActivityEventValidationFailure:
		session, _ := event.Metadata[MetadataKeySession].(string)
		return ObjectTypeSession, strings.TrimSpace(session)
	case identity.ActivityEventSocialCreated,
		identity.ActivityEventSocialLinked,
		identity.ActivityEventSocialLogin:
		return ObjectTypeExternalIdentity, strings.TrimSpace(event.AccountID)
	default:
		return ObjectTypeAccount, strings.TrimSpace(event.AccountID)
	}
}

func normalizeMetadata(in map[string]any, redacted map[string]struct{}) map[string]any {
	if len(in) == 0 {
		return nil
	}
	out := make(map[string]any, len(in))
	for key, value := range in {
		if _, drop := redacted[key]; drop {
			continue
		}
		out[key] = value
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

func firstNonEmpty(values ...string) string {
	for _, value := range values {
		if value != "" {
			return value
		}
	}
	return ""
}
