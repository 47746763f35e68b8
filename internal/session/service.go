package session

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"slices"
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"

	"github.com/noah-isme/backend-liquido/internal/common"
	"github.com/noah-isme/backend-liquido/internal/form"
	"github.com/noah-isme/backend-liquido/internal/lock"
	"github.com/noah-isme/backend-liquido/internal/obs"
	"github.com/noah-isme/backend-liquido/internal/pricing"
)

const (
	defaultTTL     = 30 * time.Minute
	defaultLockTTL = 5 * time.Second
)

// OpenRequest describes the page to host: which tracked inputs are rendered,
// which of them the listener must find, and their initial text.
type OpenRequest struct {
	Present  []string          `json:"present" validate:"omitempty,unique,dive,oneof=valor_contrato valor_quitado custo_produto percentual_comissao"`
	Required []string          `json:"required" validate:"omitempty,unique,dive,oneof=valor_contrato valor_quitado custo_produto percentual_comissao"`
	Values   map[string]string `json:"values" validate:"omitempty,dive,keys,oneof=valor_contrato valor_quitado custo_produto percentual_comissao,endkeys,max=256"`
}

// InputEvent is one edit to an input element.
type InputEvent struct {
	ElementID string `json:"element_id" validate:"required,max=64"`
	Value     string `json:"value" validate:"max=256"`
}

// Service manages live form sessions.
type Service struct {
	Store   Store
	Locker  lock.Locker
	TTL     time.Duration
	LockTTL time.Duration
	now     func() time.Time
}

// NewService wires a Service with defaults for zero durations.
func NewService(store Store, locker lock.Locker, ttl, lockTTL time.Duration) *Service {
	if ttl <= 0 {
		ttl = defaultTTL
	}
	if lockTTL <= 0 {
		lockTTL = defaultLockTTL
	}
	return &Service{Store: store, Locker: locker, TTL: ttl, LockTTL: lockTTL, now: time.Now}
}

var errNotAttached = common.NewAppError("FORM_NOT_ATTACHED", "a required field is missing from the form", http.StatusUnprocessableEntity, nil)

func notFound(err error) error {
	return common.NotFound("form session not found", err)
}

// Open creates a session for the page and performs the first recompute.
func (s *Service) Open(ctx context.Context, owner string, req OpenRequest) (View, error) {
	present := req.Present
	if len(present) == 0 {
		present = form.DefaultConfig().TrackedIDs()
	}
	if extra := lo.Without(lo.Keys(req.Values), present...); len(extra) > 0 {
		slices.Sort(extra)
		appErr := common.NewAppError("VALIDATION_ERROR", "values given for fields not on the form", http.StatusBadRequest, nil)
		appErr.Details = map[string]any{"fields": extra}
		return View{}, appErr
	}

	now := s.now().UTC()
	sess := Session{
		ID:        uuid.NewString(),
		Owner:     owner,
		Present:   present,
		Required:  req.Required,
		Values:    lo.PickByKeys(req.Values, present),
		CreatedAt: now,
		UpdatedAt: now,
	}

	listener, err := form.Setup(sess.page(), sess.config())
	if err != nil {
		if errors.Is(err, form.ErrRequiredFieldMissing) {
			e := *errNotAttached
			e.Err = err
			return View{}, &e
		}
		return View{}, err
	}
	sess.apply(listener.Recompute())
	obs.RecordCalculation(obs.SourceForm)

	if err := s.Store.Save(ctx, sess, s.TTL); err != nil {
		return View{}, err
	}
	obs.RecordFormSessionOpened()
	return sess.view(listener.Bound(), s.TTL), nil
}

// Input applies one input event. Events for elements the form does not render
// or the listener is not bound to are accepted and leave the display as it was.
// Events for one session run one at a time.
func (s *Service) Input(ctx context.Context, owner, id string, ev InputEvent) (View, error) {
	start := time.Now()
	var out View
	err := s.Locker.WithLock(ctx, "form:"+id, s.LockTTL, func(ctx context.Context) error {
		sess, err := s.load(ctx, owner, id)
		if err != nil {
			return err
		}
		page := sess.page()
		listener, err := form.Setup(page, sess.config())
		if err != nil {
			return fmt.Errorf("rebuild form %s: %w", id, err)
		}

		applied := false
		if el, ok := page[ev.ElementID]; ok && ev.ElementID != form.DisplayNetResult {
			el.SetValue(ev.Value)
			sess.Values[ev.ElementID] = ev.Value
			if summary, ok := listener.HandleInput(ev.ElementID); ok {
				sess.apply(summary)
				applied = true
				obs.RecordCalculation(obs.SourceForm)
			}
		}
		sess.Events++
		sess.UpdatedAt = s.now().UTC()
		if err := s.Store.Save(ctx, sess, s.TTL); err != nil {
			return err
		}
		out = sess.view(listener.Bound(), s.TTL)
		out.Applied = &applied
		return nil
	})

	if errors.Is(err, context.DeadlineExceeded) {
		err = common.NewAppError("FORM_BUSY", "form is busy, retry the event", http.StatusServiceUnavailable, err)
	}
	obs.ObserveFormEvent(obs.DurationMillis(time.Since(start)))
	switch {
	case err != nil:
		obs.RecordFormEvent("error")
	case *out.Applied:
		obs.RecordFormEvent("applied")
	default:
		obs.RecordFormEvent("ignored")
	}
	return out, err
}

// Get returns the current state of the session.
func (s *Service) Get(ctx context.Context, owner, id string) (View, error) {
	sess, err := s.load(ctx, owner, id)
	if err != nil {
		return View{}, err
	}
	listener, err := form.Setup(sess.page(), sess.config())
	if err != nil {
		return View{}, fmt.Errorf("rebuild form %s: %w", id, err)
	}
	return sess.view(listener.Bound(), s.TTL), nil
}

// Close discards the session.
func (s *Service) Close(ctx context.Context, owner, id string) error {
	return s.Locker.WithLock(ctx, "form:"+id, s.LockTTL, func(ctx context.Context) error {
		if _, err := s.load(ctx, owner, id); err != nil {
			return err
		}
		if err := s.Store.Delete(ctx, id); err != nil {
			if errors.Is(err, ErrNotFound) {
				return notFound(err)
			}
			return err
		}
		return nil
	})
}

// load fetches a session owned by owner. Sessions of other owners are
// reported as missing.
func (s *Service) load(ctx context.Context, owner, id string) (Session, error) {
	sess, err := s.Store.Load(ctx, id)
	if errors.Is(err, ErrNotFound) {
		return Session{}, notFound(err)
	}
	if err != nil {
		return Session{}, err
	}
	if sess.Owner != owner {
		return Session{}, notFound(nil)
	}
	if sess.Values == nil {
		sess.Values = map[string]string{}
	}
	return sess, nil
}

func (s *Session) apply(summary pricing.Summary) {
	s.Display = pricing.FormatBRL(summary.NetResult)
	s.CommissionAmount = summary.CommissionAmount.String()
	s.NetResult = summary.NetResult.String()
}
