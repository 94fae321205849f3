package httpserver

import (
	"context"
	"encoding/base64"
	"encoding/binary"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wardengate/authcore/internal/auth"
	"github.com/wardengate/authcore/internal/cryptoutil"
	"github.com/wardengate/authcore/internal/domain"
	"github.com/wardengate/authcore/internal/password"
	"github.com/wardengate/authcore/internal/pow"
	"github.com/wardengate/authcore/internal/totp"
)

// --- in-memory fakes, mirroring the style of internal/auth and internal/pow's own tests ---

type fakeUserRepo struct {
	mu    sync.Mutex
	byID  map[uuid.UUID]*domain.User
	byPub map[string]uuid.UUID
	byCan map[string]uuid.UUID
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{byID: map[uuid.UUID]*domain.User{}, byPub: map[string]uuid.UUID{}, byCan: map[string]uuid.UUID{}}
}

func (f *fakeUserRepo) Create(_ context.Context, u *domain.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.byCan[u.CanonicalName]; ok {
		return domain.ErrConflict
	}
	cp := *u
	f.byID[u.UserID] = &cp
	f.byPub[u.PublicID] = u.UserID
	f.byCan[u.CanonicalName] = u.UserID
	return nil
}

func (f *fakeUserRepo) Update(_ context.Context, u *domain.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *u
	f.byID[u.UserID] = &cp
	return nil
}

func (f *fakeUserRepo) FindByID(_ context.Context, userID uuid.UUID) (*domain.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.byID[userID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (f *fakeUserRepo) FindByPublicID(_ context.Context, publicID string) (*domain.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	id, ok := f.byPub[publicID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *f.byID[id]
	return &cp, nil
}

func (f *fakeUserRepo) FindByUserName(_ context.Context, canonicalName string) (*domain.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	id, ok := f.byCan[canonicalName]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *f.byID[id]
	return &cp, nil
}

func (f *fakeUserRepo) ExistsByUserName(_ context.Context, canonicalName string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.byCan[canonicalName]
	return ok, nil
}

type fakeCredentialsRepo struct {
	mu   sync.Mutex
	rows map[uuid.UUID]*domain.Credentials
}

func newFakeCredentialsRepo() *fakeCredentialsRepo {
	return &fakeCredentialsRepo{rows: map[uuid.UUID]*domain.Credentials{}}
}

func (f *fakeCredentialsRepo) Create(_ context.Context, c *domain.Credentials) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *c
	f.rows[c.UserID] = &cp
	return nil
}

func (f *fakeCredentialsRepo) Update(_ context.Context, c *domain.Credentials) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *c
	f.rows[c.UserID] = &cp
	return nil
}

func (f *fakeCredentialsRepo) FindByUserID(_ context.Context, userID uuid.UUID) (*domain.Credentials, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.rows[userID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *c
	return &cp, nil
}

type fakeAuthSessionRepo struct {
	mu   sync.Mutex
	rows map[uuid.UUID]*domain.AuthSession
}

func newFakeAuthSessionRepo() *fakeAuthSessionRepo {
	return &fakeAuthSessionRepo{rows: map[uuid.UUID]*domain.AuthSession{}}
}

func (f *fakeAuthSessionRepo) Create(_ context.Context, s *domain.AuthSession) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *s
	f.rows[s.SessionID] = &cp
	return nil
}

func (f *fakeAuthSessionRepo) Update(_ context.Context, s *domain.AuthSession) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *s
	f.rows[s.SessionID] = &cp
	return nil
}

func (f *fakeAuthSessionRepo) FindByID(_ context.Context, sessionID uuid.UUID, fingerprintHash [32]byte) (*domain.AuthSession, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.rows[sessionID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	if s.FingerprintHash != fingerprintHash {
		return nil, domain.ErrSessionFingerprintMismatch
	}
	cp := *s
	return &cp, nil
}

func (f *fakeAuthSessionRepo) FindByUserID(_ context.Context, userID uuid.UUID) ([]*domain.AuthSession, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*domain.AuthSession
	for _, s := range f.rows {
		if s.UserID == userID {
			cp := *s
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (f *fakeAuthSessionRepo) Delete(_ context.Context, sessionID uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.rows, sessionID)
	return nil
}

func (f *fakeAuthSessionRepo) DeleteAllForUser(_ context.Context, userID uuid.UUID, exceptSessionID uuid.UUID) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for id, s := range f.rows {
		if s.UserID == userID && id != exceptSessionID {
			delete(f.rows, id)
			n++
		}
	}
	return n, nil
}

func (f *fakeAuthSessionRepo) CleanupExpired(_ context.Context) (int, error) { return 0, nil }

type fakeChallengeRepo struct {
	mu   sync.Mutex
	rows map[uuid.UUID]*domain.Challenge
}

func newFakeChallengeRepo() *fakeChallengeRepo {
	return &fakeChallengeRepo{rows: map[uuid.UUID]*domain.Challenge{}}
}

func (f *fakeChallengeRepo) Create(_ context.Context, c *domain.Challenge) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *c
	f.rows[c.ChallengeID] = &cp
	return nil
}

func (f *fakeChallengeRepo) Consume(_ context.Context, id uuid.UUID) (*domain.Challenge, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.rows[id]
	if !ok {
		return nil, domain.ErrChallengeNotFound
	}
	delete(f.rows, id)
	if c.IsExpired(time.Now()) {
		return nil, domain.ErrChallengeExpired
	}
	return c, nil
}

func (f *fakeChallengeRepo) CleanupExpired(_ context.Context) (int, error) { return 0, nil }

type fakePowSessionRepo struct {
	mu   sync.Mutex
	rows map[uuid.UUID]*domain.PowSession
}

func newFakePowSessionRepo() *fakePowSessionRepo {
	return &fakePowSessionRepo{rows: map[uuid.UUID]*domain.PowSession{}}
}

func (f *fakePowSessionRepo) Create(_ context.Context, s *domain.PowSession) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *s
	f.rows[s.PowSessionID] = &cp
	return nil
}

func (f *fakePowSessionRepo) Get(_ context.Context, id uuid.UUID, fpHash [32]byte) (*domain.PowSession, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.rows[id]
	if !ok || s.IsExpired(time.Now()) {
		return nil, domain.ErrNotFound
	}
	if s.FingerprintHash != fpHash {
		return nil, domain.ErrSessionFingerprintMismatch
	}
	cp := *s
	return &cp, nil
}

func (f *fakePowSessionRepo) Delete(_ context.Context, id uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.rows, id)
	return nil
}

func (f *fakePowSessionRepo) CleanupExpired(_ context.Context) (int, error) { return 0, nil }

type fakeRateLimitRepo struct {
	mu      sync.Mutex
	buckets map[[32]byte]map[int64]int
}

func newFakeRateLimitRepo() *fakeRateLimitRepo {
	return &fakeRateLimitRepo{buckets: map[[32]byte]map[int64]int{}}
}

func (f *fakeRateLimitRepo) Check(_ context.Context, fpHash [32]byte, max int, window int64) (int, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.buckets[fpHash] == nil {
		f.buckets[fpHash] = map[int64]int{}
	}
	f.buckets[fpHash][window]++
	count := f.buckets[fpHash][window]
	return count, count <= max, nil
}

type fakeUserDetailsRepo struct {
	mu   sync.Mutex
	rows map[uuid.UUID]*domain.UserDetails
}

func newFakeUserDetailsRepo() *fakeUserDetailsRepo {
	return &fakeUserDetailsRepo{rows: map[uuid.UUID]*domain.UserDetails{}}
}

func (f *fakeUserDetailsRepo) Create(_ context.Context, d *domain.UserDetails) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *d
	f.rows[d.UserID] = &cp
	return nil
}

func (f *fakeUserDetailsRepo) Update(_ context.Context, d *domain.UserDetails) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *d
	f.rows[d.UserID] = &cp
	return nil
}

func (f *fakeUserDetailsRepo) FindByUserID(_ context.Context, userID uuid.UUID) (*domain.UserDetails, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	d, ok := f.rows[userID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *d
	return &cp, nil
}

func newTestServer(t *testing.T) *Server {
	t.Helper()

	users := newFakeUserRepo()
	creds := newFakeCredentialsRepo()
	sessions := newFakeAuthSessionRepo()
	hasher := password.NewHasher(password.DefaultParams(), nil)
	totpEngine := totp.NewEngine("authcore-test")
	authSigner := auth.NewTokenSigner([]byte("auth-test-secret-0123456789abcd"))
	authSvc := auth.NewService(auth.DefaultConfig(), users, creds, sessions, hasher, totpEngine, authSigner)

	challenges := newFakeChallengeRepo()
	powSessions := newFakePowSessionRepo()
	rateLimits := newFakeRateLimitRepo()
	powCfg := pow.DefaultConfig()
	powCfg.DifficultyBits = 1 // keep solving cheap in tests
	powCfg.RateLimitMax = 1000
	powSigner := pow.NewTokenSigner([]byte("pow-test-secret-0123456789abcde"))
	powSvc := pow.NewService(powCfg, challenges, powSessions, rateLimits, powSigner)

	userDetails := newFakeUserDetailsRepo()

	return NewServer(powSvc, authSvc, userDetails, false, "Lax", time.Hour)
}

func doJSON(t *testing.T, srv *Server, method, path string, body any, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	t.Helper()
	var reader *strings.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		reader = strings.NewReader(string(b))
	} else {
		reader = strings.NewReader("")
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("User-Agent", "test-agent/1.0")
	req.Header.Set("Content-Type", "application/json")
	for _, c := range cookies {
		req.AddCookie(c)
	}
	rec := httptest.NewRecorder()

	var handler http.HandlerFunc
	switch path {
	case "/signup":
		handler = srv.SignUpHandler()
	case "/signin":
		handler = srv.SignInHandler()
	case "/signout":
		handler = srv.SignOutHandler()
	case "/signout-all":
		handler = srv.SignOutAllHandler()
	case "/status":
		handler = srv.AuthStatusHandler()
	case "/totp/setup":
		handler = srv.TOTPSetupHandler()
	case "/totp/verify":
		handler = srv.TOTPVerifyHandler()
	case "/totp/disable":
		handler = srv.TOTPDisableHandler()
	case "/pow/challenge":
		handler = srv.ChallengeHandler()
	case "/pow/submit":
		handler = srv.SubmitHandler()
	case "/pow/status":
		handler = srv.PowStatusHandler()
	case "/pow/logout":
		handler = srv.PowLogoutHandler()
	case "/users/me/details":
		if method == http.MethodGet {
			handler = srv.UserDetailsGetHandler()
		} else {
			handler = srv.UserDetailsPutHandler()
		}
	default:
		t.Fatalf("unknown test path %s", path)
	}
	handler.ServeHTTP(rec, req)
	return rec
}

const testStrongPassword = "MySecure#Pass2024!"

func TestSignUpSignInStatusFlow(t *testing.T) {
	srv := newTestServer(t)

	rec := doJSON(t, srv, http.MethodPost, "/signup", signUpRequest{UserName: "alice", Password: testStrongPassword})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, srv, http.MethodPost, "/signin", signInRequest{Identifier: "alice", Password: testStrongPassword})
	require.Equal(t, http.StatusOK, rec.Code)
	var signInRes signInResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &signInRes))
	assert.False(t, signInRes.Requires2FA)

	cookies := rec.Result().Cookies()
	var authCookie *http.Cookie
	for _, c := range cookies {
		if c.Name == authCookieName {
			authCookie = c
		}
	}
	require.NotNil(t, authCookie)

	rec = doJSON(t, srv, http.MethodGet, "/status", nil, authCookie)
	require.Equal(t, http.StatusOK, rec.Code)
	var status authStatusResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &status))
	assert.True(t, status.Authenticated)
	assert.Equal(t, signInRes.PublicID, status.PublicID)
	assert.NotEmpty(t, signInRes.PublicID)
}

func TestSignIn_WrongPasswordReturnsUnauthorized(t *testing.T) {
	srv := newTestServer(t)
	doJSON(t, srv, http.MethodPost, "/signup", signUpRequest{UserName: "bob", Password: testStrongPassword})

	rec := doJSON(t, srv, http.MethodPost, "/signin", signInRequest{Identifier: "bob", Password: "wrong-password"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	var pd problemDetails
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &pd))
	assert.Equal(t, "unauthorized", pd.Type)
}

func TestSignOut_ClearsSessionCookie(t *testing.T) {
	srv := newTestServer(t)
	doJSON(t, srv, http.MethodPost, "/signup", signUpRequest{UserName: "carol", Password: testStrongPassword})
	rec := doJSON(t, srv, http.MethodPost, "/signin", signInRequest{Identifier: "carol", Password: testStrongPassword})
	var authCookie *http.Cookie
	for _, c := range rec.Result().Cookies() {
		if c.Name == authCookieName {
			authCookie = c
		}
	}
	require.NotNil(t, authCookie)

	rec = doJSON(t, srv, http.MethodPost, "/signout", nil, authCookie)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = doJSON(t, srv, http.MethodGet, "/status", nil, authCookie)
	var status authStatusResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &status))
	assert.False(t, status.Authenticated)
}

func TestTOTPSetupVerifyThenSignInRequires2FA(t *testing.T) {
	srv := newTestServer(t)
	doJSON(t, srv, http.MethodPost, "/signup", signUpRequest{UserName: "dave", Password: testStrongPassword})
	rec := doJSON(t, srv, http.MethodPost, "/signin", signInRequest{Identifier: "dave", Password: testStrongPassword})
	var authCookie *http.Cookie
	for _, c := range rec.Result().Cookies() {
		if c.Name == authCookieName {
			authCookie = c
		}
	}
	require.NotNil(t, authCookie)

	rec = doJSON(t, srv, http.MethodPost, "/totp/setup", nil, authCookie)
	require.Equal(t, http.StatusOK, rec.Code)
	var setupRes totpSetupResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &setupRes))
	require.NotEmpty(t, setupRes.Secret)

	code, err := totp.GenerateCode(setupRes.Secret, time.Now())
	require.NoError(t, err)

	rec = doJSON(t, srv, http.MethodPost, "/totp/verify", totpCodeRequest{Code: code}, authCookie)
	require.Equal(t, http.StatusNoContent, rec.Code)

	rec = doJSON(t, srv, http.MethodPost, "/signin", signInRequest{Identifier: "dave", Password: testStrongPassword})
	require.Equal(t, http.StatusOK, rec.Code)
	var signInRes signInResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &signInRes))
	assert.True(t, signInRes.Requires2FA)
}

func TestPowChallengeSubmitStatusLogout(t *testing.T) {
	srv := newTestServer(t)

	rec := doJSON(t, srv, http.MethodGet, "/pow/challenge", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var ch challengeResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &ch))

	challengeBytes, err := base64.StdEncoding.DecodeString(ch.PowChallengeB64)
	require.NoError(t, err)
	nonce := findNonce(t, challengeBytes, ch.PowDifficultyBits)

	rec = doJSON(t, srv, http.MethodPost, "/pow/submit", submitRequest{ChallengeID: ch.PowChallengeID, NonceU32: nonce})
	require.Equal(t, http.StatusNoContent, rec.Code)
	var powCookie *http.Cookie
	for _, c := range rec.Result().Cookies() {
		if c.Name == powCookieName {
			powCookie = c
		}
	}
	require.NotNil(t, powCookie)

	rec = doJSON(t, srv, http.MethodGet, "/pow/status", nil, powCookie)
	require.Equal(t, http.StatusOK, rec.Code)
	var statusRes powStatusResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &statusRes))
	assert.True(t, statusRes.Passed)

	rec = doJSON(t, srv, http.MethodPost, "/pow/logout", nil, powCookie)
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestPowSubmit_DoubleSubmitFails(t *testing.T) {
	srv := newTestServer(t)
	rec := doJSON(t, srv, http.MethodGet, "/pow/challenge", nil)
	var ch challengeResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &ch))
	challengeBytes, err := base64.StdEncoding.DecodeString(ch.PowChallengeB64)
	require.NoError(t, err)
	nonce := findNonce(t, challengeBytes, ch.PowDifficultyBits)

	rec = doJSON(t, srv, http.MethodPost, "/pow/submit", submitRequest{ChallengeID: ch.PowChallengeID, NonceU32: nonce})
	require.Equal(t, http.StatusNoContent, rec.Code)

	rec = doJSON(t, srv, http.MethodPost, "/pow/submit", submitRequest{ChallengeID: ch.PowChallengeID, NonceU32: nonce})
	assert.Equal(t, http.StatusGone, rec.Code)
	assert.Empty(t, rec.Body.Bytes())
}

func TestUserDetails_GetThenPutRoundTrip(t *testing.T) {
	srv := newTestServer(t)
	doJSON(t, srv, http.MethodPost, "/signup", signUpRequest{UserName: "erin", Password: testStrongPassword})
	rec := doJSON(t, srv, http.MethodPost, "/signin", signInRequest{Identifier: "erin", Password: testStrongPassword})
	var authCookie *http.Cookie
	for _, c := range rec.Result().Cookies() {
		if c.Name == authCookieName {
			authCookie = c
		}
	}
	require.NotNil(t, authCookie)

	rec = doJSON(t, srv, http.MethodGet, "/users/me/details", nil, authCookie)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, srv, http.MethodPut, "/users/me/details", userDetailsUpdateRequest{DisplayName: "Erin"}, authCookie)
	require.Equal(t, http.StatusOK, rec.Code)
	var details userDetailsResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &details))
	assert.Equal(t, "Erin", details.DisplayName)
}

func findNonce(t *testing.T, challengeBytes []byte, difficulty uint8) uint32 {
	t.Helper()
	for n := uint32(0); n < 2_000_000; n++ {
		nonceBytes := make([]byte, 4)
		binary.BigEndian.PutUint32(nonceBytes, n)
		h := cryptoutil.SHA256(append(append([]byte{}, challengeBytes...), nonceBytes...))
		if pow.CountLeadingZeroBits(h[:]) >= int(difficulty) {
			return n
		}
	}
	t.Fatal("failed to find a nonce within bound")
	return 0
}
