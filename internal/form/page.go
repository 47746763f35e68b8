package form

import "sync"

// TextElement is an in-memory element holding a value and a text content.
type TextElement struct {
	mu    sync.RWMutex
	value string
	text  string
}

// NewTextElement returns an element with the provided value.
func NewTextElement(value string) *TextElement {
	return &TextElement{value: value}
}

// Value implements Element.
func (e *TextElement) Value() string {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.value
}

// SetValue replaces the element value, as typing into an input would.
func (e *TextElement) SetValue(v string) {
	e.mu.Lock()
	e.value = v
	e.mu.Unlock()
}

// SetText implements Element.
func (e *TextElement) SetText(text string) {
	e.mu.Lock()
	e.text = text
	e.mu.Unlock()
}

// Text returns the element text content.
func (e *TextElement) Text() string {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.text
}

// MapPage is a Page backed by a fixed set of elements.
type MapPage map[string]*TextElement

// Element implements Page.
func (p MapPage) Element(id string) (Element, bool) {
	el, ok := p[id]
	if !ok || el == nil {
		return nil, false
	}
	return el, true
}

// NewPage builds a page with one element per tracked field present in values
// plus the display element.
func NewPage(values map[string]string, displayID string) MapPage {
	page := make(MapPage, len(values)+1)
	for id, v := range values {
		page[id] = NewTextElement(v)
	}
	page[displayID] = NewTextElement("")
	return page
}
