package calculation

import (
	"bytes"
	"encoding/json"
	"errors"
	"mime"
	"net/http"

	"github.com/noah-isme/backend-liquido/internal/common"
)

// Handler exposes POST /api/v1/calculations.
type Handler struct {
	Svc Service
}

// Calculate accepts the four fields as a JSON object (strings or numbers) or
// as an urlencoded form keyed by element id.
func (h Handler) Calculate(w http.ResponseWriter, r *http.Request) {
	values, err := readValues(r)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	result, err := h.Svc.Calculate(values)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.Data(w, http.StatusOK, result)
}

func readValues(r *http.Request) (map[string]string, error) {
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	switch mediaType {
	case "application/x-www-form-urlencoded", "multipart/form-data":
		if err := r.ParseMultipartForm(32 << 10); err != nil && !errors.Is(err, http.ErrNotMultipart) {
			return nil, common.BodyError(err)
		}
		values := make(map[string]string, len(r.PostForm))
		for key := range r.PostForm {
			values[key] = r.PostForm.Get(key)
		}
		return values, nil
	default:
		var raw map[string]fieldText
		if err := json.NewDecoder(r.Body).Decode(&raw); err != nil {
			return nil, common.BodyError(err)
		}
		values := make(map[string]string, len(raw))
		for key, v := range raw {
			values[key] = string(v)
		}
		return values, nil
	}
}

// fieldText is the text of one input. JSON numbers keep their literal form
// so they parse exactly as typed text would.
type fieldText string

func (f *fieldText) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch {
	case bytes.Equal(data, []byte("null")):
		*f = ""
	case len(data) > 0 && data[0] == '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = fieldText(s)
	default:
		var n json.Number
		if err := json.Unmarshal(data, &n); err != nil {
			return errors.New("field must be a string or a number")
		}
		*f = fieldText(n)
	}
	return nil
}
