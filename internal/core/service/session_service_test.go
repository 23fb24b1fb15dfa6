package service

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"testing"

	"github.com/rs/zerolog"

	"github.com/amy/portal-client/internal/cache"
	"github.com/amy/portal-client/internal/core/domain"
	"github.com/amy/portal-client/internal/core/ports"
)

// ---------------------------------------------------------------------------
// Stubs
// ---------------------------------------------------------------------------

type recordedCall struct {
	method string
	path   string
	opts   ports.RequestOptions
}

// stubRequester answers from a per-route script. The last scripted response of
// a route is repeated once the script runs out.
type stubRequester struct {
	mu      sync.Mutex
	calls   []recordedCall
	scripts map[string][]stubResponse
	served  map[string]int
}

type stubResponse struct {
	body string
	err  error
}

func newStubRequester() *stubRequester {
	return &stubRequester{
		scripts: make(map[string][]stubResponse),
		served:  make(map[string]int),
	}
}

func (s *stubRequester) on(method, path string, responses ...stubResponse) *stubRequester {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.scripts[method+" "+path] = append(s.scripts[method+" "+path], responses...)
	return s
}

func (s *stubRequester) Do(_ context.Context, method, path string, opts ports.RequestOptions) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, recordedCall{method: method, path: path, opts: opts})

	route := method + " " + path
	script := s.scripts[route]
	if len(script) == 0 {
		return nil, &domain.HTTPStatusError{Method: method, Path: path, Status: http.StatusNotFound}
	}
	i := s.served[route]
	if i >= len(script) {
		i = len(script) - 1
	}
	s.served[route]++
	r := script[i]
	if r.err != nil {
		return nil, r.err
	}
	return []byte(r.body), nil
}

func (s *stubRequester) count(method, path string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, c := range s.calls {
		if c.method == method && c.path == path {
			n++
		}
	}
	return n
}

// lastIndex returns the position of the latest call to method+path, or -1.
func (s *stubRequester) lastIndex(method, path string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := len(s.calls) - 1; i >= 0; i-- {
		if s.calls[i].method == method && s.calls[i].path == path {
			return i
		}
	}
	return -1
}

func (s *stubRequester) lastCall(method, path string) recordedCall {
	i := s.lastIndex(method, path)
	s.mu.Lock()
	defer s.mu.Unlock()
	if i < 0 {
		return recordedCall{}
	}
	return s.calls[i]
}

type staticConfig string

func (c staticConfig) BaseURL() string { return string(c) }

type recordingRunner struct {
	mu   sync.Mutex
	keys []string
}

func (r *recordingRunner) Do(ctx context.Context, key string, fn func(context.Context) error) error {
	r.mu.Lock()
	r.keys = append(r.keys, key)
	r.mu.Unlock()
	return fn(ctx)
}

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

const (
	anonymousJSON = `{"authenticated":false}`
	steveJSON     = `{"authenticated":true,"user":{"id":"1","username":"Steve","linkedMinecraft":"Steve"}}`
	withAppJSON   = `{"authenticated":true,"user":{"id":"1","username":"Steve","rpApplication":{"id":"app-1","status":"approved","nickname":"Steve"}}}`
)

func okBody(body string) stubResponse { return stubResponse{body: body} }

func fail(status int) stubResponse {
	return stubResponse{err: &domain.HTTPStatusError{Status: status}}
}

// newSession builds a store and service over req and waits for the initial load.
func newSession(t *testing.T, req *stubRequester) (*SessionStore, *SessionService) {
	t.Helper()
	reg := cache.NewRegistry(zerolog.Nop())
	t.Cleanup(reg.Close)

	store, err := NewSessionStore(reg, req, staticConfig("http://localhost:8080/api"), zerolog.Nop())
	if err != nil {
		t.Fatalf("NewSessionStore: %v", err)
	}
	if _, err := store.Cell().Await(context.Background()); err != nil {
		t.Fatalf("initial load: %v", err)
	}
	return store, NewSessionService(store, req, nil, zerolog.Nop())
}

// ---------------------------------------------------------------------------
// Tests
// ---------------------------------------------------------------------------

func TestLinkExternalAccount_RefreshesAfterWrite(t *testing.T) {
	req := newStubRequester().
		on(http.MethodGet, sessionPath, okBody(anonymousJSON), okBody(steveJSON)).
		on(http.MethodPost, linkPath, okBody(`{}`))
	store, svc := newSession(t, req)

	if store.Authenticated() {
		t.Fatal("expected anonymous session before linking")
	}

	if err := svc.LinkExternalAccount(context.Background(), "Steve"); err != nil {
		t.Fatalf("LinkExternalAccount: %v", err)
	}

	if !store.Authenticated() {
		t.Error("expected authenticated after link")
	}
	u, ok := store.User()
	if !ok {
		t.Fatal("expected user after link")
	}
	if got, _ := u.LinkedMinecraft.Get(); got != "Steve" {
		t.Errorf("expected linkedMinecraft Steve, got %q", got)
	}
	if store.Loading() {
		t.Error("expected loading to be false once the action resolved")
	}
	if got := req.count(http.MethodGet, sessionPath); got != 2 {
		t.Errorf("expected 2 session fetches, got %d", got)
	}
	if req.lastIndex(http.MethodGet, sessionPath) < req.lastIndex(http.MethodPost, linkPath) {
		t.Error("expected the session refresh to be issued after the write")
	}

	call := req.lastCall(http.MethodPost, linkPath)
	if call.opts.Credentials != ports.CredentialsInclude {
		t.Errorf("expected include credentials on write, got %s", call.opts.Credentials)
	}
	if body, _ := json.Marshal(call.opts.Body); string(body) != `{"nickname":"Steve"}` {
		t.Errorf("unexpected body %s", body)
	}
}

func TestDeleteApplication_WriteFailureKeepsState(t *testing.T) {
	req := newStubRequester().
		on(http.MethodGet, sessionPath, okBody(withAppJSON)).
		on(http.MethodDelete, applicationsPath+"/app-1", fail(http.StatusNotFound))
	store, svc := newSession(t, req)

	before, ok := store.Application()
	if !ok {
		t.Fatal("expected application before delete")
	}
	fetches := req.count(http.MethodGet, sessionPath)

	err := svc.DeleteApplication(context.Background(), "app-1")
	if err == nil {
		t.Fatal("expected error, got nil")
	}
	var se *domain.HTTPStatusError
	if !errors.As(err, &se) || se.Status != http.StatusNotFound {
		t.Errorf("expected 404 HTTPStatusError, got %v", err)
	}
	if got := req.count(http.MethodGet, sessionPath); got != fetches {
		t.Errorf("expected no refresh after failed write, fetches %d -> %d", fetches, got)
	}

	after, ok := store.Application()
	if !ok || after.ID != before.ID || after.Status != before.Status {
		t.Errorf("expected application unchanged, got %+v", after)
	}
	if store.Err() != nil {
		t.Errorf("action failure must not land in the cache error, got %v", store.Err())
	}
}

func TestMutate_TransportFailureSkipsRefresh(t *testing.T) {
	transport := &domain.TransportError{Method: http.MethodPost, Path: logoutPath, Err: errors.New("connection refused")}
	req := newStubRequester().
		on(http.MethodGet, sessionPath, okBody(steveJSON)).
		on(http.MethodPost, logoutPath, stubResponse{err: transport})
	store, svc := newSession(t, req)

	err := svc.Logout(context.Background())
	if !errors.Is(err, domain.ErrTransport) {
		t.Fatalf("expected transport error, got %v", err)
	}
	if got := req.count(http.MethodGet, sessionPath); got != 1 {
		t.Errorf("expected only the initial fetch, got %d", got)
	}
	if !store.Authenticated() {
		t.Error("expected session unchanged")
	}
}

func TestMutate_RefreshFailureSurfaces(t *testing.T) {
	req := newStubRequester().
		on(http.MethodGet, sessionPath, okBody(steveJSON), fail(http.StatusBadGateway)).
		on(http.MethodPost, logoutPath, okBody(``))
	store, svc := newSession(t, req)

	err := svc.Logout(context.Background())
	if domain.StatusCode(err) != http.StatusBadGateway {
		t.Fatalf("expected refresh failure with status 502, got %v", err)
	}
	if !store.Authenticated() {
		t.Error("expected last good session to stay readable")
	}
	if store.Err() == nil {
		t.Error("expected the refresh failure on the cache error signal")
	}
}

func TestLogout_NoBody(t *testing.T) {
	req := newStubRequester().
		on(http.MethodGet, sessionPath, okBody(steveJSON), okBody(anonymousJSON)).
		on(http.MethodPost, logoutPath, okBody(``))
	store, svc := newSession(t, req)

	if err := svc.Logout(context.Background()); err != nil {
		t.Fatalf("Logout: %v", err)
	}
	if store.Authenticated() {
		t.Error("expected anonymous after logout")
	}
	if _, ok := store.User(); ok {
		t.Error("expected no user after logout")
	}
	if store.ProfilePath() != profileFallback {
		t.Errorf("expected fallback profile path, got %q", store.ProfilePath())
	}
	if call := req.lastCall(http.MethodPost, logoutPath); call.opts.Body != nil {
		t.Errorf("expected no body, got %v", call.opts.Body)
	}
}

func TestVerifyCode_Normalized(t *testing.T) {
	req := newStubRequester().
		on(http.MethodGet, sessionPath, okBody(anonymousJSON), okBody(steveJSON)).
		on(http.MethodPost, verifyPath, okBody(`{"linked":true}`))
	_, svc := newSession(t, req)

	if err := svc.VerifyCode(context.Background(), "  ab12cd34 "); err != nil {
		t.Fatalf("VerifyCode: %v", err)
	}
	call := req.lastCall(http.MethodPost, verifyPath)
	if body, _ := json.Marshal(call.opts.Body); string(body) != `{"code":"AB12CD34"}` {
		t.Errorf("unexpected body %s", body)
	}
}

func TestActions_InvalidInputMakesNoCall(t *testing.T) {
	tests := []struct {
		name string
		run  func(*SessionService) error
	}{
		{"short nickname", func(s *SessionService) error { return s.LinkExternalAccount(context.Background(), "ab") }},
		{"nickname with space", func(s *SessionService) error { return s.LinkExternalAccount(context.Background(), "Steve Jobs") }},
		{"short code", func(s *SessionService) error { return s.VerifyCode(context.Background(), "abc") }},
		{"long code", func(s *SessionService) error { return s.VerifyCode(context.Background(), "ABCDEFGHIJKLM") }},
		{"empty id", func(s *SessionService) error { return s.DeleteApplication(context.Background(), "  ") }},
		{"id with slash", func(s *SessionService) error { return s.DeleteApplication(context.Background(), "../admin") }},
		{"empty application", func(s *SessionService) error {
			return s.SubmitApplication(context.Background(), domain.ApplicationPayload{})
		}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			req := newStubRequester().on(http.MethodGet, sessionPath, okBody(anonymousJSON))
			_, svc := newSession(t, req)

			err := tc.run(svc)
			if !errors.Is(err, domain.ErrValidation) {
				t.Fatalf("expected validation error, got %v", err)
			}
			req.mu.Lock()
			calls := len(req.calls)
			req.mu.Unlock()
			if calls != 1 {
				t.Errorf("expected only the initial fetch, got %d calls", calls)
			}
		})
	}
}

func TestSubmitApplication_SendsNormalizedPayload(t *testing.T) {
	req := newStubRequester().
		on(http.MethodGet, sessionPath, okBody(steveJSON), okBody(withAppJSON)).
		on(http.MethodPost, applicationsPath, okBody(`{"id":"app-1"}`))
	store, svc := newSession(t, req)

	payload := validPayload()
	payload.Nickname = "  Steve_01 "
	if err := svc.SubmitApplication(context.Background(), payload); err != nil {
		t.Fatalf("SubmitApplication: %v", err)
	}

	sent, ok := req.lastCall(http.MethodPost, applicationsPath).opts.Body.(domain.ApplicationPayload)
	if !ok {
		t.Fatal("expected an ApplicationPayload body")
	}
	if sent.Nickname != "Steve_01" {
		t.Errorf("expected trimmed nickname, got %q", sent.Nickname)
	}
	app, ok := store.Application()
	if !ok || app.Status != domain.ApplicationAccepted {
		t.Errorf("expected normalized accepted application, got %+v", app)
	}
}

func TestDeleteApplication_Success(t *testing.T) {
	req := newStubRequester().
		on(http.MethodGet, sessionPath, okBody(withAppJSON), okBody(steveJSON)).
		on(http.MethodDelete, applicationsPath+"/app-1", okBody(``))
	store, svc := newSession(t, req)

	if err := svc.DeleteApplication(context.Background(), "app-1"); err != nil {
		t.Fatalf("DeleteApplication: %v", err)
	}
	if _, ok := store.Application(); ok {
		t.Error("expected no application after delete")
	}
}

func TestReportPresence_DoesNotRefresh(t *testing.T) {
	req := newStubRequester().
		on(http.MethodGet, sessionPath, okBody(steveJSON)).
		on(http.MethodPost, presencePath, okBody(`{"active":false}`))
	_, svc := newSession(t, req)

	if err := svc.ReportPresence(context.Background(), false); err != nil {
		t.Fatalf("ReportPresence: %v", err)
	}
	if got := req.count(http.MethodGet, sessionPath); got != 1 {
		t.Errorf("expected no refresh, got %d fetches", got)
	}
	if body, _ := json.Marshal(req.lastCall(http.MethodPost, presencePath).opts.Body); string(body) != `{"active":false}` {
		t.Errorf("unexpected body %s", body)
	}
}

func TestMutate_SerializedThroughRunner(t *testing.T) {
	req := newStubRequester().
		on(http.MethodGet, sessionPath, okBody(steveJSON)).
		on(http.MethodPost, logoutPath, okBody(``))
	store, _ := newSession(t, req)
	runner := &recordingRunner{}
	svc := NewSessionService(store, req, runner, zerolog.Nop())

	if err := svc.Logout(context.Background()); err != nil {
		t.Fatalf("Logout: %v", err)
	}
	if len(runner.keys) != 1 || runner.keys[0] != SessionCacheKey {
		t.Errorf("expected one job under %q, got %v", SessionCacheKey, runner.keys)
	}
}

func validPayload() domain.ApplicationPayload {
	return domain.ApplicationPayload{
		Nickname:  "Steve",
		BirthDate: "1990-04-12",
		Race:      "Human",
		Gender:    "Male",
		Skills:    "Mining and smithing.",
		Plan:      "Open a forge in the capital.",
		Biography: "Born in the north. Raised by miners. Left home at sixteen. Travelled south. Settled in the capital.",
		SkinURL:   "https://textures.example.com/steve.png",
	}
}
