package echoapi_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"reflect"
	"testing"

	"github.com/stretchr/testify/require"

	. "github.com/trezcool/mahudhurio/apps/api/echo"
	"github.com/trezcool/mahudhurio/core"
	"github.com/trezcool/mahudhurio/core/attendance"
	"github.com/trezcool/mahudhurio/core/student"
	"github.com/trezcool/mahudhurio/core/user"
	emailsvc "github.com/trezcool/mahudhurio/services/email"
	dummydb "github.com/trezcool/mahudhurio/storage/database/dummy"
	"github.com/trezcool/mahudhurio/storage/tokenstore"
	testutil "github.com/trezcool/mahudhurio/tests"
)

var errMissingToken = httpErr{Error: "missing or malformed jwt"}

type fixture struct {
	app     Server
	conf    *core.Config
	usrRepo user.Repository
	stRepo  student.Repository
	ledger  attendance.Ledger
	tokens  user.TokenStore
	mailSvc *emailsvc.ConsoleServiceMock
}

func setup(t *testing.T, opts ...attendance.Options) *fixture {
	t.Helper()
	var attOpts attendance.Options
	if len(opts) > 0 {
		attOpts = opts[0]
	}
	return newFixture(t, attOpts, nil)
}

// newFixture runs the attendance transactions on tx, or on the dummy DB when tx is nil.
func newFixture(t *testing.T, attOpts attendance.Options, tx core.Transactor) *fixture {
	t.Helper()
	conf := testutil.NewConfig()
	logger := testutil.NewLogger()
	validate, translator := testutil.NewValidator()

	// set up DB & repos
	db := dummydb.Open()
	f := &fixture{
		conf:    conf,
		usrRepo: dummydb.NewUserRepository(db),
		stRepo:  dummydb.NewStudentRepository(db),
		ledger:  dummydb.NewAttendanceLedger(db),
		tokens:  tokenstore.NewMemoryStore(),
		mailSvc: emailsvc.NewConsoleServiceMock(conf, logger),
	}

	// set up services
	if tx == nil {
		tx = db
	}
	usrSvc := user.NewService(f.usrRepo, f.tokens, f.mailSvc, validate)
	stSvc := student.NewService(f.stRepo, validate)
	attSvc := attendance.NewService(f.ledger, stSvc, tx, validate, logger, attOpts)

	// set up server
	f.app = NewServer(ServerDeps{
		Conf:          conf,
		Logger:        logger,
		UserSvc:       usrSvc,
		StudentSvc:    stSvc,
		AttendanceSvc: attSvc,
		Validate:      validate,
		Translator:    translator,
	})
	return f
}

func (f *fixture) getToken(t *testing.T, usr user.User) string {
	t.Helper()
	version, err := f.tokens.Version(context.Background(), usr.ID)
	require.NoError(t, err)
	token, err := GenerateToken(f.conf, GetUserClaims(f.conf, usr, version))
	if err != nil {
		t.Fatalf("getToken() failed: %v", err)
	}
	return token
}

func (f *fixture) serve(req *http.Request, rec *httptest.ResponseRecorder) {
	f.app.ServeHTTP(rec, req)
}

type httpErr struct {
	Error string `json:"error"`
}

type httpTest struct {
	name     string
	method   string
	path     string
	body     []byte
	token    string
	wantCode int
	wantData []byte
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

func marchallObj(t *testing.T, obj interface{}) []byte {
	data, err := json.Marshal(obj)
	if err != nil {
		t.Fatalf("marchallObj() failed: %v", err)
	}
	return data
}

func marchallList(t *testing.T, objs ...interface{}) []byte {
	if objs == nil {
		objs = []interface{}{}
	}
	data, err := json.Marshal(objs)
	if err != nil {
		t.Fatalf("marchallList() failed: %v", err)
	}
	return data
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
	t.Helper()
	if rec.Code != tt.wantCode {
		t.Errorf("failed! code = %v; wantCode %v", rec.Code, tt.wantCode)
	}
	ok, err := jsonBytesEqual(rec.Body.Bytes(), tt.wantData)
	if err != nil {
		t.Errorf("jsonBytesEqual() failed to compare; err %v", err)
	}
	if !ok {
		t.Errorf("failed! data = %v; wantData %v", rec.Body.String(), string(tt.wantData))
	}
}

func runHTTPTests(t *testing.T, f *fixture, tests []httpTest) {
	t.Helper()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			method := tt.method
			if method == "" {
				method = http.MethodGet
			}
			req, rec := newAuthRequest(method, tt.path, tt.token, tt.body)
			f.serve(req, rec)
			checkCodeAndData(t, tt, rec)
		})
	}
}
