// Package audit emits structured audit events for security relevant actions:
// admin logins and the lifecycle of live form sessions.
package audit

import (
	"context"
	"math/rand/v2"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/noah-isme/backend-liquido/internal/common"
)

// ActorKind represents the source of an audited action.
type ActorKind string

const (
	// ActorKindAdmin represents the authenticated administrator.
	ActorKindAdmin ActorKind = "admin"
	// ActorKindSystem represents internal automated actions.
	ActorKindSystem ActorKind = "system"
	// ActorKindAnonymous represents unauthenticated actors.
	ActorKindAnonymous ActorKind = "anonymous"
)

// Actor describes the entity performing the action.
type Actor struct {
	Kind    ActorKind
	Subject string
}

// Entry is a single audit event.
type Entry struct {
	Actor        Actor
	Action       string
	ResourceType string
	ResourceID   string
	Status       int
	Metadata     map[string]any
}

// Service writes audit entries to a dedicated zerolog logger.
type Service struct {
	Logger       zerolog.Logger
	Enabled      bool
	SamplingRate float64
}

// Record emits entry, enriched with request metadata when req is not nil.
func (s Service) Record(ctx context.Context, entry Entry, req *http.Request) {
	if !s.Enabled {
		return
	}
	if s.SamplingRate > 0 && s.SamplingRate < 1 && rand.Float64() > s.SamplingRate {
		return
	}

	status := entry.Status
	if status == 0 {
		status = http.StatusOK
	}
	evt := s.Logger.Info().
		Str("kind", "audit").
		Str("actor_kind", string(normalizeActorKind(entry.Actor.Kind))).
		Str("action", buildAction(entry.Action, req)).
		Str("resource_type", buildResource(entry.ResourceType, route(req))).
		Int("status", status)

	if subject := strings.TrimSpace(entry.Actor.Subject); subject != "" {
		evt = evt.Str("actor", subject)
	}
	if id := strings.TrimSpace(entry.ResourceID); id != "" {
		evt = evt.Str("resource_id", id)
	}
	if req != nil {
		evt = evt.Str("method", req.Method).Str("path", req.URL.Path)
		if ip := common.ClientIP(req); ip != "" {
			evt = evt.Str("ip", ip)
		}
		if ua := strings.TrimSpace(req.UserAgent()); ua != "" {
			evt = evt.Str("user_agent", ua)
		}
	}
	if reqID := middleware.GetReqID(ctx); reqID != "" {
		evt = evt.Str("request_id", reqID)
	}
	if len(entry.Metadata) > 0 {
		evt = evt.Fields(map[string]any{"metadata": entry.Metadata})
	}
	evt.Msg("audit")
}

func route(req *http.Request) string {
	if req == nil {
		return ""
	}
	if rc := chi.RouteContext(req.Context()); rc != nil {
		if pattern := rc.RoutePattern(); pattern != "" {
			return pattern
		}
	}
	return req.URL.Path
}

func buildAction(action string, req *http.Request) string {
	if trimmed := strings.TrimSpace(action); trimmed != "" {
		return trimmed
	}
	if req == nil {
		return "unknown"
	}
	return strings.ToUpper(req.Method) + " " + route(req)
}

// buildResource derives a dotted resource name from the route when none is
// given: /api/v1/forms/{id}/input becomes forms.{id}.input.
func buildResource(resourceType, route string) string {
	if trimmed := strings.TrimSpace(resourceType); trimmed != "" {
		return trimmed
	}
	route = strings.Trim(strings.TrimSpace(route), "/")
	if route == "" {
		return "unknown"
	}
	segments := strings.Split(route, "/")
	if len(segments) >= 3 && segments[0] == "api" && segments[1] == "v1" {
		segments = segments[2:]
	}
	return strings.Join(segments, ".")
}

func normalizeActorKind(kind ActorKind) ActorKind {
	switch kind {
	case ActorKindAdmin, ActorKindSystem:
		return kind
	default:
		return ActorKindAnonymous
	}
}
