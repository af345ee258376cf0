// Package testutil provides testing utilities for the GitHub client.
// MockGraphQL also answers REST GET requests, so one server backs a client
// whose REST base URL is derived from the GraphQL endpoint.
package testutil

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"time"
)

// MockResponse defines the behavior for one mock GraphQL response.
type MockResponse struct {
	StatusCode int
	Body       string
	Headers    map[string]string
	Delay      time.Duration
}

type route struct {
	match     string
	responses []MockResponse
	next      int
}

// MockGraphQL is a configurable mock GitHub GraphQL server. Responses are
// routed by a substring of the query document and served in order; the last
// response of a route repeats.
type MockGraphQL struct {
	server *httptest.Server
	mu     sync.Mutex
	routes []*route
	rest   []*route

	// Tracking
	RequestCount      int
	LastRequestHeader http.Header
	LastVariables     map[string]interface{}
	Queries           []string
	Paths             []string
}

// NewMockGraphQL creates a new mock GraphQL server.
func NewMockGraphQL() *MockGraphQL {
	mock := &MockGraphQL{}
	mock.server = httptest.NewServer(http.HandlerFunc(mock.serve))
	return mock
}

// URL returns the GraphQL endpoint of the mock server.
func (m *MockGraphQL) URL() string {
	return m.server.URL + "/graphql"
}

// Close shuts down the mock server.
func (m *MockGraphQL) Close() {
	m.server.Close()
}

// On queues responses for queries containing match. Routes are tried in
// registration order.
func (m *MockGraphQL) On(match string, responses ...MockResponse) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.routes = append(m.routes, &route{match: match, responses: responses})
}

// OnREST queues responses for GET requests whose path contains match.
func (m *MockGraphQL) OnREST(match string, responses ...MockResponse) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rest = append(m.rest, &route{match: match, responses: responses})
}

// GetRequestCount returns the number of requests made to the server.
func (m *MockGraphQL) GetRequestCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.RequestCount
}

// GetLastVariables returns the variables of the most recent request.
func (m *MockGraphQL) GetLastVariables() map[string]interface{} {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.LastVariables
}

func (m *MockGraphQL) serve(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodGet {
		m.serveREST(w, r)
		return
	}

	var in struct {
		Query     string                 `json:"query"`
		Variables map[string]interface{} `json:"variables"`
	}
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	m.mu.Lock()
	m.RequestCount++
	m.LastRequestHeader = r.Header.Clone()
	m.LastVariables = in.Variables
	m.Queries = append(m.Queries, in.Query)

	resp := pick(m.routes, in.Query, NewDataResponse(`{}`))
	m.mu.Unlock()

	write(w, resp)
}

func (m *MockGraphQL) serveREST(w http.ResponseWriter, r *http.Request) {
	m.mu.Lock()
	m.RequestCount++
	m.LastRequestHeader = r.Header.Clone()
	m.Paths = append(m.Paths, r.URL.Path)
	resp := pick(m.rest, r.URL.Path, NewRESTNotFoundResponse())
	m.mu.Unlock()

	write(w, resp)
}

// pick returns the next response of the first route matching s. Callers
// hold m.mu.
func pick(routes []*route, s string, fallback MockResponse) MockResponse {
	for _, rt := range routes {
		if !strings.Contains(s, rt.match) || len(rt.responses) == 0 {
			continue
		}
		resp := rt.responses[rt.next]
		if rt.next < len(rt.responses)-1 {
			rt.next++
		}
		return resp
	}
	return fallback
}

func write(w http.ResponseWriter, resp MockResponse) {
	if resp.Delay > 0 {
		time.Sleep(resp.Delay)
	}
	for key, value := range resp.Headers {
		w.Header().Set(key, value)
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(resp.StatusCode)
	if resp.Body != "" {
		w.Write([]byte(resp.Body))
	}
}

func quotaHeaders(remaining int, resetIn time.Duration) map[string]string {
	return map[string]string{
		"X-RateLimit-Limit":     "5000",
		"X-RateLimit-Remaining": strconv.Itoa(remaining),
		"X-RateLimit-Used":      strconv.Itoa(5000 - remaining),
		"X-RateLimit-Reset":     strconv.FormatInt(time.Now().Add(resetIn).Unix(), 10),
	}
}

// NewDataResponse creates a 200 OK response wrapping data in {"data": ...}.
func NewDataResponse(data string) MockResponse {
	return MockResponse{
		StatusCode: http.StatusOK,
		Body:       `{"data":` + data + `}`,
		Headers:    quotaHeaders(4999, time.Hour),
	}
}

// NewJSONResponse creates a 200 OK REST response with body as is.
func NewJSONResponse(body string) MockResponse {
	return MockResponse{
		StatusCode: http.StatusOK,
		Body:       body,
		Headers:    quotaHeaders(4999, time.Hour),
	}
}

// NewRESTNotFoundResponse creates the REST 404 response.
func NewRESTNotFoundResponse() MockResponse {
	return MockResponse{
		StatusCode: http.StatusNotFound,
		Body:       `{"message":"Not Found","documentation_url":"https://docs.github.com/rest"}`,
		Headers:    quotaHeaders(4999, time.Hour),
	}
}

// NewRESTRateLimitedResponse creates the REST 403 response of an exhausted
// primary quota.
func NewRESTRateLimitedResponse(resetIn time.Duration) MockResponse {
	return MockResponse{
		StatusCode: http.StatusForbidden,
		Body:       `{"message":"API rate limit exceeded for user ID 1.","documentation_url":"https://docs.github.com/rest/rate-limit"}`,
		Headers:    quotaHeaders(0, resetIn),
	}
}

// NewRateLimitedResponse creates the 200 OK response GitHub returns when the
// GraphQL quota is exhausted.
func NewRateLimitedResponse(resetIn time.Duration) MockResponse {
	return MockResponse{
		StatusCode: http.StatusOK,
		Body:       `{"errors":[{"type":"RATE_LIMITED","message":"API rate limit exceeded for user ID 1."}]}`,
		Headers:    quotaHeaders(0, resetIn),
	}
}

// NewSecondaryRateLimitResponse creates a 403 response carrying Retry-After.
func NewSecondaryRateLimitResponse(retryAfter int) MockResponse {
	h := quotaHeaders(100, time.Hour)
	h["Retry-After"] = strconv.Itoa(retryAfter)
	return MockResponse{
		StatusCode: http.StatusForbidden,
		Body:       `{"message":"You have exceeded a secondary rate limit."}`,
		Headers:    h,
	}
}

// NewNotFoundResponse creates the response for an unknown object.
func NewNotFoundResponse(field, kind, name string) MockResponse {
	return MockResponse{
		StatusCode: http.StatusOK,
		Body: fmt.Sprintf(`{"data":{%q:null},"errors":[{"type":"NOT_FOUND","message":"Could not resolve to a %s with the name '%s'."}]}`,
			field, kind, name),
		Headers: quotaHeaders(4998, time.Hour),
	}
}

// NewServerErrorResponse creates a 502 Bad Gateway response.
func NewServerErrorResponse() MockResponse {
	return MockResponse{
		StatusCode: http.StatusBadGateway,
		Body:       `{"message":"Server Error"}`,
		Headers:    quotaHeaders(4999, time.Hour),
	}
}
