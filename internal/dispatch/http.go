package dispatch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"time"

	"github.com/gyaneshwarpardhi/omtree/internal/action"
	"github.com/gyaneshwarpardhi/omtree/internal/metrics"
	"github.com/gyaneshwarpardhi/omtree/internal/model"
	"github.com/gyaneshwarpardhi/omtree/internal/param"
)

// APIResultParameter is the output an API request produces when the call
// succeeds with an empty body.
const APIResultParameter = "api_result"

type httpRequest struct {
	Method  string
	URL     string
	Headers map[string]string
	Params  map[string]string
	Body    any
}

type httpResponse struct {
	StatusCode int
	Body       []byte
}

func (r httpResponse) ok() bool { return r.StatusCode >= 200 && r.StatusCode < 300 }

func (d *Dispatcher) request(ctx context.Context, a *model.Action, actionIndex int, rc *model.RunContext, repeat bool) *model.Result {
	apiID, endpoint, err := a.SplitEndpoint()
	if err != nil {
		return model.Failed(&DispatchError{Action: a.Name, Err: err})
	}
	def, ep, err := d.registry.ResolveEndpoint(apiID, endpoint)
	if err != nil {
		return model.Failed(&DispatchError{Action: a.Name, Err: err})
	}
	bound, err := d.resolver.ResolveAll(ctx, a.Parameters, rc, actionIndex, repeat)
	if err != nil {
		return model.Failed(err)
	}

	values := requestValues(bound, rc)
	req := buildRequest(def, ep, values)
	slog.Debug("performing api request",
		"api", apiID, "endpoint", endpoint, "method", req.Method, "url", req.URL,
		"timeout_s", def.RequestTimeout, "mock", d.mocks != nil)

	var resp httpResponse
	if d.mocks != nil {
		resp = d.mocks.respond(req.URL, values)
	} else {
		resp, err = d.send(ctx, def, req)
		if err != nil {
			metrics.APIRequests.WithLabelValues(apiID, "transport_error").Inc()
			return model.Failed(err)
		}
	}

	data := decodeBody(resp.Body)
	if !resp.ok() {
		metrics.APIRequests.WithLabelValues(apiID, "http_error").Inc()
		res := model.Failed(&TransportError{
			Method: req.Method, URL: req.URL, StatusCode: resp.StatusCode, Body: string(resp.Body),
		})
		res.Data = data
		return res
	}
	metrics.APIRequests.WithLabelValues(apiID, "success").Inc()

	var outputs []*model.Parameter
	if len(resp.Body) == 0 {
		outputs = []*model.Parameter{
			rc.Output(APIResultParameter, fmt.Sprintf("The %s API call succeeded", a.Name), actionIndex),
		}
	} else {
		outputs = extractOutputs(resp.Body, ep.ResponseVariables, rc, actionIndex)
	}
	return &model.Result{Success: true, Data: data, Parameters: outputs}
}

// requestValues maps {key} tokens to values: api_parameter_name or the
// handler-facing name of each bound parameter, falling back to the run
// context by name.
func requestValues(bound []*model.Parameter, rc *model.RunContext) param.Lookup {
	values := make(map[string]string, len(bound))
	for _, p := range bound {
		if !p.HasValue() {
			continue
		}
		key := p.APIParameterName
		if key == "" {
			key = p.HandlerName()
		}
		values[key] = p.Text()
	}
	fromContext := param.FromContext(rc)
	return func(name string) (string, bool) {
		if v, ok := values[name]; ok {
			return v, true
		}
		return fromContext(name)
	}
}

func buildRequest(def *action.APIDefinition, ep *action.APIEndpoint, values param.Lookup) httpRequest {
	vars := param.FromMap(def.CustomVariables)
	fill := func(s string) string {
		return param.ExpandSingle(param.ExpandDouble(s, vars), values)
	}

	req := httpRequest{
		Method:  ep.RequestType,
		URL:     fill(ep.URL),
		Headers: make(map[string]string, len(ep.Headers)),
		Params:  make(map[string]string, len(ep.Params)),
	}
	for k, v := range ep.Headers {
		req.Headers[k] = fill(v)
	}
	for k, v := range ep.Params {
		req.Params[k] = fill(v)
	}
	switch req.Method {
	case "POST", "PUT", "PATCH":
		if ep.Data != nil {
			req.Body = fillAny(ep.Data, fill)
		}
	}
	return req
}

// fillAny substitutes tokens in every string leaf of a decoded document.
func fillAny(v any, fill func(string) string) any {
	switch t := v.(type) {
	case string:
		return fill(t)
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, e := range t {
			out[k] = fillAny(e, fill)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = fillAny(e, fill)
		}
		return out
	default:
		return v
	}
}

func (d *Dispatcher) send(ctx context.Context, def *action.APIDefinition, req httpRequest) (httpResponse, error) {
	timeout := time.Duration(def.RequestTimeout) * time.Second
	if timeout <= 0 {
		timeout = action.DefaultRequestTimeout * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	r := d.client.R().
		SetContext(ctx).
		SetHeaders(req.Headers).
		SetQueryParams(req.Params)
	if req.Body != nil {
		r.SetBody(req.Body)
	}
	resp, err := r.Execute(req.Method, req.URL)
	if err != nil {
		return httpResponse{}, &TransportError{
			Method:  req.Method,
			URL:     req.URL,
			Timeout: isTimeout(err),
			Err:     err,
		}
	}
	return httpResponse{StatusCode: resp.StatusCode(), Body: resp.Body()}, nil
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}

// decodeBody returns the decoded JSON document, the raw text for non-JSON
// bodies, or nil for an empty body.
func decodeBody(body []byte) any {
	if len(body) == 0 {
		return nil
	}
	var v any
	if err := json.Unmarshal(body, &v); err != nil {
		return string(body)
	}
	return v
}
