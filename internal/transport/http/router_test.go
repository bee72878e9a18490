package httptransport

//go:generate mockgen -source=handler.go -destination=mocks/mocks.go -package=mocks Verifier,Membership

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"healthnet/internal/transport/http/mocks"
	id "healthnet/pkg/domain"
	dErrors "healthnet/pkg/domain-errors"
	"healthnet/pkg/platform/middleware/auth"
	"healthnet/pkg/requestcontext"
)

const testSecret = "router-test-secret"

type RouterSuite struct {
	suite.Suite
	ctrl       *gomock.Controller
	verifier   *mocks.MockVerifier
	membership *mocks.MockMembership
	router     http.Handler
	token      string
}

func TestRouterSuite(t *testing.T) {
	suite.Run(t, new(RouterSuite))
}

func (s *RouterSuite) SetupTest() {
	s.ctrl = gomock.NewController(s.T())
	s.verifier = mocks.NewMockVerifier(s.ctrl)
	s.membership = mocks.NewMockMembership(s.ctrl)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	s.router = NewRouter(RouterConfig{
		Handler:   NewHandler(s.verifier, s.membership, logger),
		Validator: auth.NewHS256Validator(testSecret),
		Logger:    logger,
	})
	token, err := auth.IssueHS256(testSecret, "ops@healthnet", "admin", time.Minute)
	s.Require().NoError(err)
	s.token = token
}

func (s *RouterSuite) do(method, path, body string) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	r := httptest.NewRequest(method, path, reader)
	if s.token != "" {
		r.Header.Set("Authorization", "Bearer "+s.token)
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, r)
	return w
}

func (s *RouterSuite) TestVerify() {
	s.verifier.EXPECT().AttemptAutoVerify(gomock.Any(), id.WorkerID(42)).Return(true, nil)

	w := s.do(http.MethodPost, "/admin/workers/42/verify", "")

	s.Equal(http.StatusOK, w.Code)
	var resp VerifyResponse
	s.Require().NoError(json.NewDecoder(w.Body).Decode(&resp))
	s.Equal(VerifyResponse{WorkerID: 42, Verified: true}, resp)
	s.NotEmpty(w.Header().Get("X-Request-ID"))
}

func (s *RouterSuite) TestVerifyErrors() {
	s.Run("not found", func() {
		s.verifier.EXPECT().AttemptAutoVerify(gomock.Any(), id.WorkerID(7)).
			Return(false, dErrors.New(dErrors.CodeNotFound, "health worker not found"))
		w := s.do(http.MethodPost, "/admin/workers/7/verify", "")
		s.Equal(http.StatusNotFound, w.Code)
	})

	s.Run("internal error hides description", func() {
		s.verifier.EXPECT().AttemptAutoVerify(gomock.Any(), id.WorkerID(8)).
			Return(false, dErrors.Wrap(errors.New("pq: broken"), dErrors.CodeInternal, "verification store failure"))
		w := s.do(http.MethodPost, "/admin/workers/8/verify", "")
		s.Equal(http.StatusInternalServerError, w.Code)
		s.NotContains(w.Body.String(), "pq")
	})

	s.Run("bad id", func() {
		w := s.do(http.MethodPost, "/admin/workers/abc/verify", "")
		s.Equal(http.StatusBadRequest, w.Code)
	})
}

func (s *RouterSuite) TestManualVerification() {
	s.verifier.EXPECT().MarkManuallyVerified(gomock.Any(), id.WorkerID(5), "checked licence").
		DoAndReturn(func(ctx context.Context, _ id.WorkerID, _ string) error {
			s.Equal("ops@healthnet", requestcontext.ActorID(ctx))
			return nil
		})

	w := s.do(http.MethodPost, "/admin/workers/5/manual-verification", `{"notes":"checked licence"}`)
	s.Equal(http.StatusNoContent, w.Code)

	w = s.do(http.MethodPost, "/admin/workers/5/manual-verification", `{"notes":`)
	s.Equal(http.StatusBadRequest, w.Code)
}

func (s *RouterSuite) TestMatchedName() {
	s.verifier.EXPECT().MatchedName(gomock.Any(), id.WorkerID(3)).Return("Neema Juma", true, nil)
	w := s.do(http.MethodGet, "/admin/workers/3/matched-name", "")
	s.Equal(http.StatusOK, w.Code)
	s.JSONEq(`{"worker_id":3,"name":"Neema Juma"}`, w.Body.String())

	s.verifier.EXPECT().MatchedName(gomock.Any(), id.WorkerID(4)).Return("", false, nil)
	w = s.do(http.MethodGet, "/admin/workers/4/matched-name", "")
	s.Equal(http.StatusNotFound, w.Code)
}

func (s *RouterSuite) TestClosedUserGroup() {
	s.membership.EXPECT().SetClosedUserGroup(gomock.Any(), id.WorkerID(9), true).Return(nil)
	w := s.do(http.MethodPut, "/admin/workers/9/closed-user-group", `{"enabled":true}`)
	s.Equal(http.StatusNoContent, w.Code)

	w = s.do(http.MethodPut, "/admin/workers/9/closed-user-group", `{}`)
	s.Equal(http.StatusUnprocessableEntity, w.Code, "enabled is required")

	s.membership.EXPECT().RequestClosedUserGroup(gomock.Any(), id.WorkerID(9)).Return(nil)
	w = s.do(http.MethodPost, "/admin/workers/9/closed-user-group/request", "")
	s.Equal(http.StatusAccepted, w.Code)
}

func (s *RouterSuite) TestAdminRequiresToken() {
	s.token = ""
	w := s.do(http.MethodPost, "/admin/workers/1/verify", "")
	s.Equal(http.StatusUnauthorized, w.Code)

	token, err := auth.IssueHS256(testSecret, "viewer@healthnet", "viewer", time.Minute)
	s.Require().NoError(err)
	s.token = token
	w = s.do(http.MethodPost, "/admin/workers/1/verify", "")
	s.Equal(http.StatusForbidden, w.Code)
}

func (s *RouterSuite) TestPublicEndpoints() {
	s.token = ""
	w := s.do(http.MethodGet, "/healthz", "")
	s.Equal(http.StatusOK, w.Code)
	s.JSONEq(`{"status":"ok"}`, w.Body.String())

	w = s.do(http.MethodGet, "/metrics", "")
	s.Equal(http.StatusOK, w.Code)
}

func TestHealthzDegraded(t *testing.T) {
	h := healthz(map[string]HealthCheck{
		"redis": func(_ context.Context) error { return errors.New("dial tcp: refused") },
	})
	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	require.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Contains(t, w.Body.String(), "degraded")
}
