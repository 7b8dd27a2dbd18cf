package handler

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
)

// HTTPTriggerRequest represents the structure of the JSON payload for HTTP triggers.
type HTTPTriggerRequest struct {
	Data struct {
		Req httpTriggerData `json:"req"`
	} `json:"Data"`
	Metadata map[string]any `json:"Metadata"`
}

type httpTriggerData struct {
	URL             string              `json:"Url"`
	Method          string              `json:"Method"`
	Query           map[string]string   `json:"Query"`
	Headers         map[string][]string `json:"Headers"`
	Params          map[string]string   `json:"Params"`
	Body            string              `json:"Body"`
	IsBase64Encoded bool                `json:"isBase64Encoded"`
}

// HTTPTriggerResponse represents the structure of the JSON response for HTTP triggers.
type HTTPTriggerResponse struct {
	Outputs struct {
		Res struct {
			StatusCode int               `json:"statusCode"`
			Headers    map[string]string `json:"headers"`
			Body       string            `json:"body"`
		} `json:"res"`
	} `json:"Outputs"`
	Logs        []string `json:"Logs,omitempty"`
	ReturnValue any      `json:"ReturnValue,omitempty"`
}

// HandleHttpTrigger adapts the Azure Functions JSON POST request to a standard
// HTTP request, runs it through next and wraps the recorded response.
func (d *Dependencies) HandleHttpTrigger(next http.Handler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var invokeReq HTTPTriggerRequest
		if err := json.NewDecoder(r.Body).Decode(&invokeReq); err != nil {
			slog.Error("failed to unmarshal HTTP trigger request", "error", err)
			http.Error(w, "Failed to unmarshal request", http.StatusBadRequest)
			return
		}

		newReq, err := buildInternalRequest(r, invokeReq.Data.Req)
		if err != nil {
			slog.Error("failed to create internal request", "error", err)
			http.Error(w, "Failed to create internal request", http.StatusBadRequest)
			return
		}

		slog.Info("processing wrapped HTTP request",
			"method", newReq.Method,
			"path", newReq.URL.Path,
			"query", newReq.URL.RawQuery,
		)

		recorder := httptest.NewRecorder()
		next.ServeHTTP(recorder, newReq)

		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(triggerResponse(recorder)); err != nil {
			slog.Error("failed to encode HTTP trigger response", "error", err)
		}
	}
}

// buildInternalRequest turns the host's request description into an
// *http.Request carrying the outer request's context.
func buildInternalRequest(outer *http.Request, reqData httpTriggerData) (*http.Request, error) {
	if reqData.Method == "" || reqData.URL == "" {
		return nil, fmt.Errorf("wrapped request is missing method or url")
	}

	u, err := url.Parse(reqData.URL)
	if err != nil {
		return nil, fmt.Errorf("invalid wrapped url: %w", err)
	}

	// The host reports query values separately; keep any the URL already carries.
	if len(reqData.Query) > 0 {
		q := u.Query()
		for k, v := range reqData.Query {
			if !q.Has(k) {
				q.Set(k, v)
			}
		}
		u.RawQuery = q.Encode()
	}

	newReq, err := http.NewRequestWithContext(outer.Context(), reqData.Method, u.String(), requestBody(reqData))
	if err != nil {
		return nil, err
	}

	for k, v := range reqData.Headers {
		for _, val := range v {
			newReq.Header.Add(k, val)
		}
	}
	return newReq, nil
}

// requestBody decodes base64 bodies. Some hosts send base64 without setting
// isBase64Encoded, so valid base64 that is not JSON is decoded as well.
func requestBody(reqData httpTriggerData) io.Reader {
	if reqData.Body == "" {
		return http.NoBody
	}

	body := []byte(reqData.Body)
	if reqData.IsBase64Encoded || !json.Valid(body) {
		if decoded, err := base64.StdEncoding.DecodeString(reqData.Body); err == nil {
			body = decoded
		}
	}
	return bytes.NewReader(body)
}

func triggerResponse(recorder *httptest.ResponseRecorder) HTTPTriggerResponse {
	result := recorder.Result()
	defer result.Body.Close()
	body, _ := io.ReadAll(result.Body)

	headers := make(map[string]string, len(result.Header))
	for k, v := range result.Header {
		headers[k] = strings.Join(v, ", ")
	}

	var resp HTTPTriggerResponse
	resp.Outputs.Res.StatusCode = result.StatusCode
	resp.Outputs.Res.Headers = headers
	resp.Outputs.Res.Body = string(body)
	return resp
}
