package dispatch

import (
	"encoding/json"
	"log/slog"

	"github.com/gyaneshwarpardhi/omtree/internal/param"
)

const noMockBody = `{"message":"No predefined response found."}`

// Mocks maps fully substituted request URLs to canned response bodies. A
// string value is used verbatim; any other value is encoded as JSON.
type Mocks map[string]any

func (m Mocks) respond(url string, values param.Lookup) httpResponse {
	v, ok := m[url]
	if !ok {
		slog.Warn("no predefined response found", "url", url)
		return httpResponse{StatusCode: 200, Body: []byte(noMockBody)}
	}
	var body string
	switch t := v.(type) {
	case string:
		body = t
	default:
		b, err := json.Marshal(t)
		if err != nil {
			slog.Error("mock response is not serializable", "url", url, "error", err)
			return httpResponse{StatusCode: 200, Body: []byte(noMockBody)}
		}
		body = string(b)
	}
	slog.Debug("found a predefined response", "url", url)
	return httpResponse{StatusCode: 200, Body: []byte(param.ExpandSingle(body, values))}
}
