package http

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/jeju-platform/edge-engine/internal/domain"
	"github.com/jeju-platform/edge-engine/internal/port"
	"github.com/jeju-platform/edge-engine/internal/service"
)

type memFnRepo struct {
	fns map[string]*domain.Function
}

func (r *memFnRepo) Save(_ context.Context, fn *domain.Function) error {
	r.fns[fn.ID] = fn
	return nil
}
func (r *memFnRepo) FindByID(_ context.Context, id string) (*domain.Function, error) {
	fn, ok := r.fns[id]
	if !ok {
		return nil, domain.ErrFunctionNotFound
	}
	return fn, nil
}
func (r *memFnRepo) FindAll(_ context.Context, _ string) ([]*domain.Function, error) {
	var out []*domain.Function
	for _, fn := range r.fns {
		out = append(out, fn)
	}
	return out, nil
}
func (r *memFnRepo) Update(_ context.Context, fn *domain.Function) error {
	r.fns[fn.ID] = fn
	return nil
}
func (r *memFnRepo) Delete(_ context.Context, id string) error {
	delete(r.fns, id)
	return nil
}

type memVerRepo struct{}

func (memVerRepo) Save(context.Context, *domain.FunctionVersion) error { return nil }
func (memVerRepo) Find(context.Context, string, int) (*domain.FunctionVersion, error) {
	return nil, domain.ErrVersionNotFound
}
func (memVerRepo) FindAll(context.Context, string) ([]*domain.FunctionVersion, error) {
	return nil, nil
}

type memContent struct{}

func (memContent) Exists(context.Context, string) (bool, error) { return true, nil }
func (memContent) Upload(context.Context, []byte) (string, error) {
	return "QmYwAPJzv5CZsnA625s3Xf2nemtYgPpHdWEz79ojWnPbdG", nil
}
func (memContent) Get(context.Context, string) ([]byte, string, error) {
	return nil, "", domain.ErrNotFound
}
func (memContent) GetPath(context.Context, string, string) ([]byte, string, error) {
	return nil, "", domain.ErrNotFound
}

// echoEngine 把透传事件原样编码回响应体，方便断言翻译是否保真。
type echoEngine struct {
	deployed map[string]*domain.Function
}

func (e *echoEngine) Deploy(_ context.Context, fn *domain.Function) error {
	e.deployed[fn.ID] = fn
	return nil
}
func (e *echoEngine) Undeploy(_ context.Context, id string) error {
	delete(e.deployed, id)
	return nil
}
func (e *echoEngine) GetFunction(_ context.Context, id string) (*domain.Function, error) {
	fn, ok := e.deployed[id]
	if !ok {
		return nil, domain.ErrFunctionNotFound
	}
	return fn, nil
}
func (e *echoEngine) Invoke(_ context.Context, _ string, payload []byte) ([]byte, error) {
	return payload, nil
}
func (e *echoEngine) InvokeHTTP(_ context.Context, _ string, event *port.HTTPEvent) (*port.HTTPResult, error) {
	body, _ := json.Marshal(event)
	return &port.HTTPResult{
		Status:  http.StatusOK,
		Headers: map[string][]string{"X-Echo": {"1"}},
		Body:    body,
	}, nil
}
func (e *echoEngine) GetLogs(context.Context, string, int) ([]port.LogEntry, error) {
	return []port.LogEntry{{Level: "info", Message: "hi"}}, nil
}
func (e *echoEngine) GetMetrics(context.Context, string) (*port.Metrics, error) {
	return &port.Metrics{Invocations: 7}, nil
}

func newFunctionRouter() (http.Handler, *service.FunctionService) {
	repo := &memFnRepo{fns: make(map[string]*domain.Function)}
	svc := service.NewFunctionService(repo, memVerRepo{}, memContent{}, &echoEngine{deployed: make(map[string]*domain.Function)})
	h := NewRouter(nil, NewFunctionHandler(svc, time.Second), "")
	return h, svc
}

func deployTestFunction(t *testing.T, h http.Handler) string {
	t.Helper()
	body, _ := json.Marshal(service.DeployFunctionRequest{
		Name: "hello",
		Code: []byte("code"),
	})
	req := httptest.NewRequest(http.MethodPost, "/functions", bytes.NewReader(body))
	req.Header.Set("X-Owner", "alice")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	if w.Code != http.StatusCreated {
		t.Fatalf("deploy status = %d, body %s", w.Code, w.Body.String())
	}
	var resp struct {
		Data domain.Function `json:"data"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode deploy response: %v", err)
	}
	return resp.Data.ID
}

func TestCreateFunctionRequiresOwner(t *testing.T) {
	h, _ := newFunctionRouter()

	body, _ := json.Marshal(service.DeployFunctionRequest{Name: "hello", Code: []byte("code")})
	req := httptest.NewRequest(http.MethodPost, "/functions", bytes.NewReader(body))
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", w.Code)
	}
}

func TestCreateAndGetFunction(t *testing.T) {
	h, _ := newFunctionRouter()
	id := deployTestFunction(t, h)

	req := httptest.NewRequest(http.MethodGet, "/functions/"+id, nil)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Errorf("get status = %d", w.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/functions/unknown-id", nil)
	w = httptest.NewRecorder()
	h.ServeHTTP(w, req)
	if w.Code != http.StatusNotFound {
		t.Errorf("unknown id status = %d, want 404", w.Code)
	}
}

func TestInvokeAsyncReturns202(t *testing.T) {
	h, _ := newFunctionRouter()
	id := deployTestFunction(t, h)

	req := httptest.NewRequest(http.MethodPost, "/functions/"+id+"/invoke-async", bytes.NewReader([]byte(`{}`)))
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	if w.Code != http.StatusAccepted {
		t.Errorf("status = %d, want 202", w.Code)
	}
}

func TestHTTPPassthroughTranslation(t *testing.T) {
	h, _ := newFunctionRouter()
	id := deployTestFunction(t, h)

	req := httptest.NewRequest(http.MethodPut, "/functions/"+id+"/http/users/42?active=true", bytes.NewReader([]byte(`{"n":1}`)))
	req.Header.Set("X-Custom", "v")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", w.Code, w.Body.String())
	}
	if w.Header().Get("X-Echo") != "1" {
		t.Error("engine response headers should flow back")
	}

	var event port.HTTPEvent
	if err := json.Unmarshal(w.Body.Bytes(), &event); err != nil {
		t.Fatalf("decode echoed event: %v", err)
	}
	if event.Method != http.MethodPut {
		t.Errorf("Method = %q", event.Method)
	}
	if event.Path != "/users/42" {
		t.Errorf("Path = %q, want /users/42", event.Path)
	}
	if got := event.Query["active"]; len(got) != 1 || got[0] != "true" {
		t.Errorf("Query = %v", event.Query)
	}
	if got := event.Headers["X-Custom"]; len(got) != 1 || got[0] != "v" {
		t.Errorf("Headers[X-Custom] = %v", got)
	}
	if string(event.Body) != `{"n":1}` {
		t.Errorf("Body = %q", event.Body)
	}
}

func TestLogsAndMetrics(t *testing.T) {
	h, _ := newFunctionRouter()
	id := deployTestFunction(t, h)

	req := httptest.NewRequest(http.MethodGet, "/functions/"+id+"/logs?limit=10", nil)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Errorf("logs status = %d", w.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/functions/"+id+"/metrics", nil)
	w = httptest.NewRecorder()
	h.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Errorf("metrics status = %d", w.Code)
	}
}
