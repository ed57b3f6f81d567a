package session

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/five82/recast/internal/api"
	"github.com/five82/recast/internal/localstore"
)

type fakeAuth struct {
	loginResp   api.TokenResponse
	loginErr    error
	registerErr error
	logoutErr   error

	logoutTokens []string
	registered   []string
}

func (f *fakeAuth) Login(_ context.Context, email, _ string) (api.TokenResponse, error) {
	if f.loginErr != nil {
		return api.TokenResponse{}, f.loginErr
	}
	return f.loginResp, nil
}

func (f *fakeAuth) Register(_ context.Context, email, _, fullName string) (api.TokenResponse, error) {
	f.registered = append(f.registered, email+"|"+fullName)
	if f.registerErr != nil {
		return api.TokenResponse{}, f.registerErr
	}
	resp := f.loginResp
	resp.User.FullName = fullName
	return resp, nil
}

func (f *fakeAuth) Logout(_ context.Context, token string) error {
	f.logoutTokens = append(f.logoutTokens, token)
	return f.logoutErr
}

func jwtWithExpiry(exp time.Time) string {
	enc := base64.RawURLEncoding
	header := enc.EncodeToString([]byte(`{"alg":"HS256","typ":"JWT"}`))
	payload := enc.EncodeToString([]byte(fmt.Sprintf(`{"sub":"u1","exp":%d}`, exp.Unix())))
	return header + "." + payload + ".sig"
}

func newTestStore(storage localstore.Store, auth api.Authenticator) *Store {
	return New(storage, auth, zerolog.Nop())
}

func TestStore_LoadingUntilInit(t *testing.T) {
	mem := localstore.NewMemory()
	ctx := context.Background()
	_ = mem.Set(ctx, KeyAccessToken, "tok")
	_ = mem.Set(ctx, KeyUser, `{"id":"u1","email":"a@b.c"}`)

	s := newTestStore(mem, nil)
	if !s.Loading() {
		t.Fatalf("Loading() = false before Init, want true")
	}
	if s.IsAuthenticated() {
		t.Fatalf("IsAuthenticated() = true before Init, want false")
	}

	s.Init(ctx)
	if s.Loading() {
		t.Fatalf("Loading() = true after Init")
	}
	if !s.IsAuthenticated() {
		t.Fatalf("IsAuthenticated() = false, want restored session")
	}
	sess, ok := s.Current()
	if !ok || sess.UserID != "u1" || sess.Email != "a@b.c" || s.Token() != "tok" {
		t.Fatalf("Current = %#v, %v", sess, ok)
	}
}

func TestStore_InitRejectsPartialOrMalformedState(t *testing.T) {
	tests := []struct {
		name  string
		token string
		user  string
	}{
		{"token without user", "tok", ""},
		{"user without token", "", `{"id":"u1"}`},
		{"malformed user", "tok", `{"id":`},
		{"user without id", "tok", `{"email":"a@b.c"}`},
		{"expired token", jwtWithExpiry(time.Now().Add(-time.Hour)), `{"id":"u1"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			mem := localstore.NewMemory()
			if tt.token != "" {
				_ = mem.Set(ctx, KeyAccessToken, tt.token)
			}
			if tt.user != "" {
				_ = mem.Set(ctx, KeyUser, tt.user)
			}

			s := newTestStore(mem, nil)
			s.Init(ctx)

			if s.Loading() {
				t.Fatalf("Loading() = true after Init")
			}
			if s.IsAuthenticated() {
				t.Fatalf("IsAuthenticated() = true, want logged out")
			}
			if s.Token() != "" {
				t.Fatalf("Token() = %q, want empty", s.Token())
			}
			if keys := mem.Keys(); len(keys) != 0 {
				t.Fatalf("persisted keys = %v, want cleared", keys)
			}
		})
	}
}

func TestStore_InitKeepsUnexpiredJWT(t *testing.T) {
	ctx := context.Background()
	mem := localstore.NewMemory()
	exp := time.Now().Add(time.Hour).Truncate(time.Second)
	_ = mem.Set(ctx, KeyAccessToken, jwtWithExpiry(exp))
	_ = mem.Set(ctx, KeyUser, `{"id":"u1"}`)

	s := newTestStore(mem, nil)
	s.Init(ctx)
	sess, ok := s.Current()
	if !ok || !sess.Expiry.Equal(exp) {
		t.Fatalf("Current = %#v, want expiry %v", sess, exp)
	}
}

func TestStore_LoginSuccessPersists(t *testing.T) {
	ctx := context.Background()
	mem := localstore.NewMemory()
	auth := &fakeAuth{loginResp: api.TokenResponse{AccessToken: "tok", User: api.User{ID: "u1", Email: "a@b.c"}}}
	s := newTestStore(mem, auth)
	s.Init(ctx)

	res := s.Login(ctx, " a@b.c ", "secret")
	if !res.OK || res.Message != "Login successful!" {
		t.Fatalf("Login = %#v", res)
	}
	if !s.IsAuthenticated() {
		t.Fatalf("IsAuthenticated() = false after login")
	}
	if v, ok, _ := mem.Get(ctx, KeyAccessToken); !ok || v != "tok" {
		t.Fatalf("persisted token = %q %v", v, ok)
	}
	if v, ok, _ := mem.Get(ctx, KeyUser); !ok || v == "" {
		t.Fatalf("persisted user missing")
	}

	// A fresh store over the same storage restores the session.
	restored := newTestStore(mem, nil)
	restored.Init(ctx)
	if !restored.IsAuthenticated() {
		t.Fatalf("restored store not authenticated")
	}
}

func TestStore_LoginFailureLeavesStateUnchanged(t *testing.T) {
	ctx := context.Background()
	mem := localstore.NewMemory()
	auth := &fakeAuth{loginErr: &api.Error{StatusCode: 401, Detail: "Incorrect email or password"}}
	s := newTestStore(mem, auth)
	s.Init(ctx)

	res := s.Login(ctx, "a@b.c", "wrong")
	if res.OK {
		t.Fatalf("Login OK = true, want failure")
	}
	if res.Message != "Incorrect email or password" {
		t.Fatalf("Message = %q, want server detail", res.Message)
	}
	if s.IsAuthenticated() || len(mem.Keys()) != 0 {
		t.Fatalf("state changed on failed login")
	}

	auth.loginErr = errors.New("dial tcp: connection refused")
	if res := s.Login(ctx, "a@b.c", "pw"); res.Message != "Login failed" {
		t.Fatalf("Message = %q, want fallback", res.Message)
	}
}

func TestStore_LoginValidatesBeforeCallingServer(t *testing.T) {
	auth := &fakeAuth{loginErr: errors.New("should not be called")}
	s := newTestStore(nil, auth)
	res := s.Login(context.Background(), "not-an-email", "pw")
	var verr *ValidationError
	if res.OK || !errors.As(res.Err, &verr) || verr.Field != "email" {
		t.Fatalf("Login = %#v, want email validation error", res)
	}
}

func TestStore_LoginRejectsIncompleteTokenResponse(t *testing.T) {
	auth := &fakeAuth{loginResp: api.TokenResponse{AccessToken: "tok"}}
	s := newTestStore(nil, auth)
	s.Init(context.Background())
	res := s.Login(context.Background(), "a@b.c", "pw")
	if res.OK || s.IsAuthenticated() {
		t.Fatalf("Login = %#v, want failure on missing user", res)
	}
}

func TestStore_RegisterSendsFullName(t *testing.T) {
	ctx := context.Background()
	auth := &fakeAuth{loginResp: api.TokenResponse{AccessToken: "tok", User: api.User{ID: "u2", Email: "n@b.c"}}}
	s := newTestStore(nil, auth)
	s.Init(ctx)

	res := s.Register(ctx, "n@b.c", "Passw0rd", " Nia Doe ")
	if !res.OK || res.Message != "Registration successful!" {
		t.Fatalf("Register = %#v", res)
	}
	if len(auth.registered) != 1 || auth.registered[0] != "n@b.c|Nia Doe" {
		t.Fatalf("registered = %v", auth.registered)
	}
	sess, _ := s.Current()
	if sess.DisplayName() != "Nia Doe" {
		t.Fatalf("DisplayName = %q", sess.DisplayName())
	}

	auth.registerErr = &api.Error{StatusCode: 400, Detail: "Email already registered"}
	s2 := newTestStore(nil, auth)
	s2.Init(ctx)
	if res := s2.Register(ctx, "n@b.c", "Passw0rd", "Nia"); res.OK || res.Message != "Email already registered" {
		t.Fatalf("Register = %#v, want server detail", res)
	}
}

func TestStore_LogoutSucceedsWhenServerFails(t *testing.T) {
	ctx := context.Background()
	mem := localstore.NewMemory()
	auth := &fakeAuth{
		loginResp: api.TokenResponse{AccessToken: "tok", User: api.User{ID: "u1"}},
		logoutErr: errors.New("dial tcp: connection refused"),
	}
	s := newTestStore(mem, auth)
	s.Init(ctx)
	if res := s.Login(ctx, "a@b.c", "pw"); !res.OK {
		t.Fatalf("Login = %#v", res)
	}

	res := s.Logout(ctx)
	if !res.OK || res.Message != "Logged out successfully" {
		t.Fatalf("Logout = %#v, want success notice", res)
	}
	if s.IsAuthenticated() || s.Token() != "" {
		t.Fatalf("session survived logout")
	}
	if keys := mem.Keys(); len(keys) != 0 {
		t.Fatalf("persisted keys = %v, want cleared", keys)
	}
	if len(auth.logoutTokens) != 1 || auth.logoutTokens[0] != "tok" {
		t.Fatalf("server notified with %v, want old token", auth.logoutTokens)
	}
}

func TestStore_LogoutWhenSignedOutSkipsServer(t *testing.T) {
	auth := &fakeAuth{}
	s := newTestStore(nil, auth)
	s.Init(context.Background())
	if res := s.Logout(context.Background()); !res.OK {
		t.Fatalf("Logout = %#v", res)
	}
	if len(auth.logoutTokens) != 0 {
		t.Fatalf("server notified without a token")
	}
}

func TestStore_Invalidate(t *testing.T) {
	ctx := context.Background()
	mem := localstore.NewMemory()
	auth := &fakeAuth{loginResp: api.TokenResponse{AccessToken: "tok", User: api.User{ID: "u1"}}}
	s := newTestStore(mem, auth)
	s.Init(ctx)
	s.Login(ctx, "a@b.c", "pw")

	s.Invalidate()
	if s.IsAuthenticated() || len(mem.Keys()) != 0 {
		t.Fatalf("Invalidate left session behind")
	}
	if len(auth.logoutTokens) != 0 {
		t.Fatalf("Invalidate should not contact the server")
	}
}
