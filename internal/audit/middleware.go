package audit

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/noah-isme/backend-liquido/internal/common"
	"github.com/noah-isme/backend-liquido/internal/obs"
)

// HTTPRecorder records HTTP requests after they have been handled.
type HTTPRecorder struct {
	Service *Service
}

// HTTPConfig customises how the audit entry is produced for a route.
type HTTPConfig struct {
	Action          string
	ResourceType    string
	ResourceIDParam string
	MetadataFunc    func(*http.Request, int) map[string]any
}

// Middleware returns a chi-compatible middleware that records audit entries.
func (r HTTPRecorder) Middleware(cfg HTTPConfig) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			if r.Service == nil || !r.Service.Enabled {
				next.ServeHTTP(w, req)
				return
			}

			recorder := obs.NewStatusRecorder(w)
			next.ServeHTTP(recorder, req)

			entry := Entry{
				Actor:        actorOf(req),
				Action:       cfg.Action,
				ResourceType: cfg.ResourceType,
				Status:       recorder.Status(),
			}
			if cfg.ResourceIDParam != "" {
				entry.ResourceID = chi.URLParam(req, cfg.ResourceIDParam)
			}
			if cfg.MetadataFunc != nil {
				entry.Metadata = cfg.MetadataFunc(req, recorder.Status())
			}
			r.Service.Record(req.Context(), entry, req)
		})
	}
}

func actorOf(req *http.Request) Actor {
	if subject, ok := common.Subject(req.Context()); ok {
		return Actor{Kind: ActorKindAdmin, Subject: subject}
	}
	return Actor{Kind: ActorKindAnonymous}
}
