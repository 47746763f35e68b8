// Package session hosts live operations forms on the server. A session holds
// what a browser page would: which inputs are rendered, their current text and
// the text of the result display. Each input event rebuilds the page, runs the
// form listener over it and stores the outcome.
package session

import (
	"maps"
	"slices"
	"time"

	"github.com/samber/lo"

	"github.com/noah-isme/backend-liquido/internal/form"
)

// Session is the stored state of one live form.
type Session struct {
	ID               string            `json:"id"`
	Owner            string            `json:"owner"`
	Present          []string          `json:"present"`
	Required         []string          `json:"required,omitempty"`
	Values           map[string]string `json:"values"`
	Display          string            `json:"display"`
	CommissionAmount string            `json:"commission_amount"`
	NetResult        string            `json:"net_result"`
	Events           int64             `json:"events"`
	CreatedAt        time.Time         `json:"created_at"`
	UpdatedAt        time.Time         `json:"updated_at"`
}

func (s Session) clone() Session {
	s.Present = slices.Clone(s.Present)
	s.Required = slices.Clone(s.Required)
	s.Values = maps.Clone(s.Values)
	return s
}

// config returns the listener configuration for this page: every tracked
// field, required where the session asked for it.
func (s Session) config() form.Config {
	cfg := form.DefaultConfig()
	for i, f := range cfg.Fields {
		cfg.Fields[i].Required = lo.Contains(s.Required, f.ElementID)
	}
	return cfg
}

// page rebuilds the rendered elements. Inputs absent from Present do not
// exist on the page; the display keeps the text it last showed.
func (s Session) page() form.MapPage {
	values := make(map[string]string, len(s.Present))
	for _, id := range s.Present {
		values[id] = s.Values[id]
	}
	page := form.NewPage(values, form.DisplayNetResult)
	page[form.DisplayNetResult].SetText(s.Display)
	return page
}

// View is the client facing rendition of a session.
type View struct {
	ID               string            `json:"id"`
	Bound            []string          `json:"bound"`
	Values           map[string]string `json:"values"`
	Display          string            `json:"display"`
	CommissionAmount string            `json:"commission_amount"`
	NetResult        string            `json:"net_result"`
	Events           int64             `json:"events"`
	Applied          *bool             `json:"applied,omitempty"`
	ExpiresAt        time.Time         `json:"expires_at"`
}

func (s Session) view(bound []string, ttl time.Duration) View {
	return View{
		ID:               s.ID,
		Bound:            bound,
		Values:           maps.Clone(s.Values),
		Display:          s.Display,
		CommissionAmount: s.CommissionAmount,
		NetResult:        s.NetResult,
		Events:           s.Events,
		ExpiresAt:        s.UpdatedAt.Add(ttl),
	}
}
