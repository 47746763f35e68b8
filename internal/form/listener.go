// Package form binds the net-result calculation to a page of identified input
// elements and keeps a display element in sync as the inputs change.
package form

import (
	"errors"
	"fmt"

	"github.com/samber/lo"
	"github.com/shopspring/decimal"

	"github.com/noah-isme/backend-liquido/internal/pricing"
)

// Element ids used by the operations form.
const (
	FieldContractValue     = "valor_contrato"
	FieldSettledValue      = "valor_quitado"
	FieldProductCost       = "custo_produto"
	FieldCommissionPercent = "percentual_comissao"
	DisplayNetResult       = "resultado_liquido"
)

var (
	// ErrDisplayMissing is returned by Setup when the page has no display element.
	ErrDisplayMissing = errors.New("form: display element missing")
	// ErrRequiredFieldMissing is returned by Setup when a required input is absent.
	ErrRequiredFieldMissing = errors.New("form: required field missing")
	// ErrUnknownField is returned by Setup for a field whose role cannot be
	// determined or is claimed by an earlier field.
	ErrUnknownField = errors.New("form: field has no calculation role")
)

// Role names the calculation input a field feeds.
type Role int

const (
	// RoleFromID derives the role from one of the default element ids.
	RoleFromID Role = iota
	RoleContractValue
	RoleSettledValue
	RoleProductCost
	RoleCommissionPercent
)

var defaultRoles = map[string]Role{
	FieldContractValue:     RoleContractValue,
	FieldSettledValue:      RoleSettledValue,
	FieldProductCost:       RoleProductCost,
	FieldCommissionPercent: RoleCommissionPercent,
}

func (r Role) valid() bool {
	return r >= RoleContractValue && r <= RoleCommissionPercent
}

// Element is a single identified element on a page.
type Element interface {
	Value() string
	SetText(text string)
}

// Page resolves elements by identifier.
type Page interface {
	Element(id string) (Element, bool)
}

// FieldSpec describes one tracked input, the value it feeds and whether the
// listener may run without it. Pages with their own ids must set Role.
type FieldSpec struct {
	ElementID string
	Role      Role
	Required  bool
}

func (f FieldSpec) role() Role {
	if f.Role != RoleFromID {
		return f.Role
	}
	return defaultRoles[f.ElementID]
}

// Config lists the tracked inputs and the element the result is written to.
type Config struct {
	Fields    []FieldSpec
	DisplayID string
}

// DefaultFields tracks the four inputs of the operations form. All of them are
// optional: a form rendered without one of them still gets a result.
func DefaultFields() []FieldSpec {
	return []FieldSpec{
		{ElementID: FieldContractValue, Role: RoleContractValue},
		{ElementID: FieldSettledValue, Role: RoleSettledValue},
		{ElementID: FieldProductCost, Role: RoleProductCost},
		{ElementID: FieldCommissionPercent, Role: RoleCommissionPercent},
	}
}

// DefaultConfig is the configuration of the operations form.
func DefaultConfig() Config {
	return Config{Fields: DefaultFields(), DisplayID: DisplayNetResult}
}

// TrackedIDs returns the element ids listed in the configuration, in order.
func (c Config) TrackedIDs() []string {
	return lo.Map(c.Fields, func(f FieldSpec, _ int) string { return f.ElementID })
}

// Listener recomputes the net result whenever a bound input changes.
type Listener struct {
	inputs  map[string]Element
	roles   map[Role]string
	order   []string
	display Element
}

// Setup captures element references once. Optional fields missing from the page
// are left unbound; a missing required field or display element means no
// listener is attached, as does a field without a role.
func Setup(page Page, cfg Config) (*Listener, error) {
	if page == nil {
		return nil, ErrDisplayMissing
	}
	display, ok := page.Element(cfg.DisplayID)
	if !ok || display == nil {
		return nil, fmt.Errorf("%w: %s", ErrDisplayMissing, cfg.DisplayID)
	}
	l := &Listener{
		inputs:  make(map[string]Element, len(cfg.Fields)),
		roles:   make(map[Role]string, len(cfg.Fields)),
		display: display,
	}
	for _, spec := range cfg.Fields {
		role := spec.role()
		if !role.valid() {
			return nil, fmt.Errorf("%w: %s", ErrUnknownField, spec.ElementID)
		}
		if owner, taken := l.roles[role]; taken && owner != spec.ElementID {
			return nil, fmt.Errorf("%w: %s shares a role with %s", ErrUnknownField, spec.ElementID, owner)
		}
		el, ok := page.Element(spec.ElementID)
		if !ok || el == nil {
			if spec.Required {
				return nil, fmt.Errorf("%w: %s", ErrRequiredFieldMissing, spec.ElementID)
			}
			continue
		}
		if _, dup := l.inputs[spec.ElementID]; dup {
			continue
		}
		l.inputs[spec.ElementID] = el
		l.roles[role] = spec.ElementID
		l.order = append(l.order, spec.ElementID)
	}
	return l, nil
}

// Bound returns the ids of the inputs the listener is attached to.
func (l *Listener) Bound() []string {
	out := make([]string, len(l.order))
	copy(out, l.order)
	return out
}

// IsBound reports whether events from the element trigger a recompute.
func (l *Listener) IsBound(id string) bool {
	_, ok := l.inputs[id]
	return ok
}

// HandleInput reacts to an input event. Events from elements the listener is
// not bound to are ignored.
func (l *Listener) HandleInput(id string) (pricing.Summary, bool) {
	if !l.IsBound(id) {
		return pricing.Summary{}, false
	}
	return l.Recompute(), true
}

// Recompute reads every bound input, derives the net result and writes its
// formatted value into the display element.
func (l *Listener) Recompute() pricing.Summary {
	summary := pricing.Compute(l.Inputs())
	l.display.SetText(pricing.FormatBRL(summary.NetResult))
	return summary
}

// Inputs reads the current text of the bound inputs. Unbound or unparseable
// fields count as zero.
func (l *Listener) Inputs() pricing.Inputs {
	return pricing.Inputs{
		ContractValue:     l.read(RoleContractValue),
		SettledValue:      l.read(RoleSettledValue),
		ProductCost:       l.read(RoleProductCost),
		CommissionPercent: l.read(RoleCommissionPercent),
	}
}

func (l *Listener) read(role Role) decimal.Decimal {
	el, ok := l.inputs[l.roles[role]]
	if !ok {
		return decimal.Zero
	}
	return pricing.ParseAmount(el.Value())
}
