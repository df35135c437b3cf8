package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/lestrrat-go/jwx/v2/jwa"
	"github.com/lestrrat-go/jwx/v2/jwt"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/backend-grocer/internal/common"
	"github.com/noah-isme/backend-grocer/internal/store"
)

type fakeQueries struct {
	mu    sync.Mutex
	users map[string]store.User
}

func newFakeQueries() *fakeQueries {
	return &fakeQueries{users: make(map[string]store.User)}
}

func (f *fakeQueries) CreateUser(_ context.Context, arg store.CreateUserParams) (store.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, exists := f.users[arg.Email]; exists {
		return store.User{}, &pgconn.PgError{Code: "23505"}
	}
	u := store.User{
		ID:           store.NewUUID(),
		Email:        arg.Email,
		Name:         arg.Name,
		PasswordHash: arg.PasswordHash,
		CreatedAt:    pgtype.Timestamptz{Time: time.Now(), Valid: true},
	}
	f.users[arg.Email] = u
	return u, nil
}

func (f *fakeQueries) GetUserByEmail(_ context.Context, email string) (store.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[strings.ToLower(email)]
	if !ok {
		return store.User{}, pgx.ErrNoRows
	}
	return u, nil
}

func (f *fakeQueries) GetUserByID(_ context.Context, id pgtype.UUID) (store.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if u.ID == id {
			return u, nil
		}
	}
	return store.User{}, pgx.ErrNoRows
}

func newTestService(t *testing.T) *Service {
	t.Helper()
	svc, err := NewService(Config{Queries: newFakeQueries(), Secret: "test-secret", AccessTokenTTL: time.Minute})
	require.NoError(t, err)
	return svc
}

func TestRegisterLoginMe(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	user, err := svc.Register(ctx, "Asha", "  Asha@Example.com ", "correct-horse")
	require.NoError(t, err)
	require.Equal(t, "asha@example.com", user.Email)

	_, err = svc.Register(ctx, "Asha again", "asha@example.com", "correct-horse")
	var appErr *common.AppError
	require.ErrorAs(t, err, &appErr)
	require.Equal(t, "EMAIL_ALREADY_USED", appErr.Code)

	res, err := svc.Login(ctx, "ASHA@example.com", "correct-horse")
	require.NoError(t, err)
	require.NotEmpty(t, res.AccessToken)

	subject, err := svc.ParseAccessToken(res.AccessToken)
	require.NoError(t, err)
	require.Equal(t, user.ID, subject)

	me, err := svc.Me(ctx, subject)
	require.NoError(t, err)
	require.Equal(t, "Asha", me.Name)
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	_, err := svc.Register(ctx, "Ravi", "ravi@example.com", "password-1")
	require.NoError(t, err)

	for _, tc := range []struct{ email, password string }{
		{"ravi@example.com", "wrong-password"},
		{"nobody@example.com", "password-1"},
		{"", ""},
	} {
		_, err := svc.Login(ctx, tc.email, tc.password)
		var appErr *common.AppError
		require.ErrorAs(t, err, &appErr)
		require.Equal(t, "INVALID_CREDENTIALS", appErr.Code)
	}
}

func TestRegisterValidatesPassword(t *testing.T) {
	svc := newTestService(t)
	_, err := svc.Register(context.Background(), "Short", "short@example.com", "1234")
	var appErr *common.AppError
	require.ErrorAs(t, err, &appErr)
	require.Equal(t, http.StatusBadRequest, appErr.HTTPStatus)
}

func TestParseAccessTokenRejectsOtherAlgorithm(t *testing.T) {
	svc := newTestService(t)
	now := time.Now()
	built, err := jwt.NewBuilder().
		Subject("user-id").
		Issuer(svc.validator.Issuer).
		Audience([]string{svc.validator.Audience}).
		IssuedAt(now).
		Expiration(now.Add(time.Minute)).
		Build()
	require.NoError(t, err)
	signed, err := jwt.Sign(built, jwt.WithKey(jwa.HS384, svc.secret))
	require.NoError(t, err)

	_, err = svc.ParseAccessToken(string(signed))
	require.Error(t, err)
}

func TestParseAccessTokenExpires(t *testing.T) {
	svc := newTestService(t)
	issued := time.Now()
	svc.WithNow(func() time.Time { return issued })
	token, _, err := svc.signAccessToken("user-id")
	require.NoError(t, err)

	svc.WithNow(func() time.Time { return issued.Add(2 * time.Minute) })
	_, err = svc.ParseAccessToken(token)
	require.Error(t, err)
}

func TestTokenValidatorChecksIssuer(t *testing.T) {
	now := time.Now()
	tok, err := jwt.NewBuilder().Issuer("other").Audience([]string{"aud"}).Expiration(now.Add(time.Minute)).Build()
	require.NoError(t, err)
	v := TokenValidator{Issuer: "issuer", Audience: "aud", Algorithm: jwa.HS256}
	require.Error(t, v.Validate(tok, jwa.HS256, now))
	require.Error(t, v.Validate(tok, jwa.RS256, now))
}

func TestRequireAuth(t *testing.T) {
	svc := newTestService(t)
	token, _, err := svc.signAccessToken("3f2c1d8e-9a4b-4c7d-8e6f-1a2b3c4d5e6f")
	require.NoError(t, err)

	var seen string
	handler := Middleware{Service: svc}.RequireAuth(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = common.UserID(r.Context())
		w.WriteHeader(http.StatusNoContent)
	}))

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/v1/basket/items", nil))
	require.Equal(t, http.StatusUnauthorized, rr.Code)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/basket/items", nil)
	req.Header.Set("Authorization", "Bearer not-a-token")
	rr = httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	require.Equal(t, http.StatusUnauthorized, rr.Code)

	req = httptest.NewRequest(http.MethodGet, "/api/v1/basket/items", nil)
	req.Header.Set("Authorization", "bearer "+token)
	rr = httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	require.Equal(t, http.StatusNoContent, rr.Code)
	require.Equal(t, "3f2c1d8e-9a4b-4c7d-8e6f-1a2b3c4d5e6f", seen)
}

func TestHandlerRegisterAndLogin(t *testing.T) {
	h := &Handler{Service: newTestService(t)}

	rr := httptest.NewRecorder()
	h.Register(rr, httptest.NewRequest(http.MethodPost, "/api/v1/auth/register",
		strings.NewReader(`{"name":"Meera","email":"meera@example.com","password":"pantry-pass"}`)))
	require.Equal(t, http.StatusCreated, rr.Code)

	rr = httptest.NewRecorder()
	h.Register(rr, httptest.NewRequest(http.MethodPost, "/api/v1/auth/register",
		strings.NewReader(`{"name":"Meera","email":"not-an-email","password":"pantry-pass"}`)))
	require.Equal(t, http.StatusBadRequest, rr.Code)
	require.Contains(t, rr.Body.String(), "VALIDATION_ERROR")

	rr = httptest.NewRecorder()
	h.Login(rr, httptest.NewRequest(http.MethodPost, "/api/v1/auth/login",
		strings.NewReader(`{"email":"meera@example.com","password":"pantry-pass"}`)))
	require.Equal(t, http.StatusOK, rr.Code)
	require.Contains(t, rr.Body.String(), "access_token")
}
