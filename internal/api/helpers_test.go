package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"sync"
	"testing"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"

	"gitlab.com/sgtreasury/tally/internal/mailer"
	"gitlab.com/sgtreasury/tally/internal/models"
	"gitlab.com/sgtreasury/tally/internal/repository/repotest"
	"gitlab.com/sgtreasury/tally/internal/service"
	"gitlab.com/sgtreasury/tally/internal/storage"
	"gitlab.com/sgtreasury/tally/internal/validation"
)

const (
	testSecret = "test-secret-with-enough-entropy"
	testIssuer = "tally-test"
)

type fakeMailer struct {
	mu   sync.Mutex
	sent []mailer.Invite
	err  error
}

func (f *fakeMailer) SendInvite(_ context.Context, invite mailer.Invite) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, invite)
	return nil
}

type testServer struct {
	handler  http.Handler
	verifier *TokenVerifier
	store    *repotest.Store
	objects  *storage.MemoryStore
	mail     *fakeMailer
	svc      Services
	registry *prometheus.Registry
}

func newTestServer(t *testing.T, tweak ...func(*Options)) *testServer {
	t.Helper()

	ts := &testServer{
		verifier: NewTokenVerifier(testSecret, testIssuer),
		store:    repotest.New(),
		objects:  storage.NewMemoryStore(),
		mail:     &fakeMailer{},
		registry: prometheus.NewRegistry(),
	}
	st := ts.store
	files := storage.NewService(ts.objects, "reimbursements")
	ts.svc = Services{
		Users:          service.NewUserService(st.Users()),
		Clubs:          service.NewClubService(st.Clubs()),
		Memberships:    service.NewMembershipService(st.Memberships(), st.Clubs()),
		Invites:        service.NewInviteService(st.Invites(), st.Clubs(), st.Memberships(), ts.mail, "https://tally.example.edu"),
		Budget:         service.NewBudgetService(st.Sections(), st.Items(), st.Clubs()),
		Reimbursements: service.NewReimbursementService(st.Reimbursements(), st.Clubs(), st.Users(), st.Items(), files, nil),
		Receipts:       service.NewReceiptService(nil),
	}

	opts := Options{Verifier: ts.verifier, Registry: ts.registry}
	for _, fn := range tweak {
		fn(&opts)
	}
	ts.handler = NewRouter(ts.svc, opts)
	return ts
}

// signIn syncs a fresh user and returns it with a bearer token.
func (ts *testServer) signIn(t *testing.T) (*models.User, string) {
	t.Helper()
	actor := service.Actor{UserID: gofakeit.UUID(), Email: gofakeit.Email()}
	user, err := ts.svc.Users.Sync(context.Background(), actor, &validation.UserInput{
		FirstName: gofakeit.FirstName(),
		LastName:  gofakeit.LastName(),
		Email:     actor.Email,
	})
	require.NoError(t, err)
	token, err := ts.verifier.Sign(actor, time.Hour)
	require.NoError(t, err)
	return user, token
}

func (ts *testServer) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var rdr io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		rdr = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, rdr)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	ts.handler.ServeHTTP(rec, req)
	return rec
}

type multipartFile struct {
	field, name, contentType string
	data                     []byte
}

func (ts *testServer) doMultipart(t *testing.T, path, token string, fields map[string]string, files ...multipartFile) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	for _, f := range files {
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", `form-data; name="`+f.field+`"; filename="`+f.name+`"`)
		h.Set("Content-Type", f.contentType)
		part, err := mw.CreatePart(h)
		require.NoError(t, err)
		_, err = part.Write(f.data)
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, path, &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	ts.handler.ServeHTTP(rec, req)
	return rec
}

type rawEnvelope struct {
	Code    string          `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func envelope(t *testing.T, rec *httptest.ResponseRecorder) rawEnvelope {
	t.Helper()
	require.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	var env rawEnvelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env), rec.Body.String())
	return env
}

// data asserts the status and decodes the envelope data into T.
func data[T any](t *testing.T, rec *httptest.ResponseRecorder, status int) T {
	t.Helper()
	require.Equal(t, status, rec.Code, rec.Body.String())
	env := envelope(t, rec)
	require.Equal(t, CodeSuccess, env.Code)
	var out T
	require.NoError(t, json.Unmarshal(env.Data, &out))
	return out
}

var errBoom = errors.New("boom")
