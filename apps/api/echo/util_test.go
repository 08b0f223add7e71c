package echoapi

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"reflect"
	"testing"

	"github.com/edukanda/edukanda/core/user"
	testutil "github.com/edukanda/edukanda/tests"
)

var errMissingToken = httpErr{Error: "missing or malformed jwt", Redirect: "/login"}

type httpErr struct {
	Error    string `json:"error"`
	Redirect string `json:"redirect,omitempty"`
}

type httpTest struct {
	name     string
	method   string
	path     string
	body     []byte
	token    string
	wantCode int
	wantData []byte
	extra    interface{}
}

func setup(t *testing.T) (*testutil.Services, *server) {
	svcs := testutil.NewServices(t)
	validate, translator := testutil.NewValidator()
	s := NewServer(&Options{
		Conf:           svcs.Conf,
		Logger:         svcs.Logger,
		Validate:       validate,
		Translator:     translator,
		UserSvc:        svcs.Users,
		CourseSvc:      svcs.Courses,
		DashboardSvc:   svcs.Dashboard,
		CommentSvc:     svcs.Comments,
		CertificateSvc: svcs.Certificates,
		RankingSvc:     svcs.Ranking,
		ModerationSvc:  svcs.Moderation,
	}).(*server)
	t.Cleanup(s.hub.stop)
	return svcs, s
}

func newAuthRequest(method, path, token string, data ...[]byte) (*http.Request, *httptest.ResponseRecorder) {
	var body bytes.Buffer
	if len(data) > 0 {
		body.Write(data[0])
	}
	req := httptest.NewRequest(method, path, &body)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	return req, rec
}

func newRequest(method, path string, data ...[]byte) (*http.Request, *httptest.ResponseRecorder) {
	return newAuthRequest(method, path, "", data...)
}

// serve runs tt against s. A zero method means GET and a zero wantCode means 200.
func serve(s *server, tt httpTest) *httptest.ResponseRecorder {
	method := tt.method
	if method == "" {
		method = http.MethodGet
	}
	req, rec := newAuthRequest(method, tt.path, tt.token, tt.body)
	s.ServeHTTP(rec, req)
	return rec
}

func getToken(t *testing.T, s *server, usr user.User) string {
	token, err := newAuthenticator(s.opts.Conf, s.opts.UserSvc).tokenFor(usr)
	if err != nil {
		t.Fatalf("getToken() failed: %v", err)
	}
	return token
}

func marchallObj(t *testing.T, obj interface{}) []byte {
	data, err := json.Marshal(obj)
	if err != nil {
		t.Fatalf("marchallObj() failed: %v", err)
	}
	return data
}

func unmarshall(t *testing.T, rec *httptest.ResponseRecorder, v interface{}) {
	if err := json.Unmarshal(rec.Body.Bytes(), v); err != nil {
		t.Fatalf("unmarshall(%s) failed: %v", rec.Body.String(), err)
	}
}

func jsonBytesEqual(b1, b2 []byte) (bool, error) {
	var j1, j2 interface{}
	if err := json.Unmarshal(b1, &j1); err != nil {
		return false, err
	}
	if err := json.Unmarshal(b2, &j2); err != nil {
		return false, err
	}
	return reflect.DeepEqual(j1, j2), nil
}

func checkCodeAndData(t *testing.T, tt httpTest, rec *httptest.ResponseRecorder) {
	wantCode := tt.wantCode
	if wantCode == 0 {
		wantCode = http.StatusOK
	}
	if rec.Code != wantCode {
		t.Errorf("failed! code = %v; wantCode %v; body %s", rec.Code, wantCode, rec.Body.String())
	}
	if tt.wantData == nil {
		return
	}
	ok, err := jsonBytesEqual(rec.Body.Bytes(), tt.wantData)
	if err != nil {
		t.Errorf("jsonBytesEqual() failed to compare; err %v", err)
	}
	if !ok {
		t.Errorf("failed! data = %v; wantData %v", rec.Body.String(), string(tt.wantData))
	}
}
