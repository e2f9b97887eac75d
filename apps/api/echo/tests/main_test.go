package tests

import (
	"bytes"
	"encoding/json"
	"log"
	"net/http"
	"net/http/httptest"
	"os"
	"reflect"
	"testing"

	. "github.com/dusabe/tathmini/apps/api/echo"
	"github.com/dusabe/tathmini/core"
	"github.com/dusabe/tathmini/core/announcement"
	"github.com/dusabe/tathmini/core/course"
	"github.com/dusabe/tathmini/core/evaluation"
	"github.com/dusabe/tathmini/core/identity"
	emailsvc "github.com/dusabe/tathmini/services/email"
	logsvc "github.com/dusabe/tathmini/services/logger"
	inmemdb "github.com/dusabe/tathmini/storage/database/inmem"
)

var (
	db       *inmemdb.DB
	app      Server
	idtRepo  identity.Repository
	crsRepo  course.Repository
	evalRepo evaluation.Repository
	annRepo  announcement.Repository

	errMissingToken = httpErr{Error: "missing or malformed jwt"}
	errForbidden    = httpErr{Error: "permission denied"}
)

func TestMain(m *testing.M) {
	core.Conf.Debug = false
	core.Conf.TestMode = true

	// set up DB & repos
	db = inmemdb.New()
	idtRepo = inmemdb.NewIdentityRepository(db)
	crsRepo = inmemdb.NewCourseRepository(db)
	evalRepo = inmemdb.NewEvaluationRepository(db)
	annRepo = inmemdb.NewAnnouncementRepository(db)

	// set up services
	mailSvc := emailsvc.NewConsoleServiceMock()

	// set up server
	app = NewServer(
		&Options{
			DisableReqLogs:  true,
			Logger:          logsvc.NewStdLogger(log.New(os.Stdout, "TEST : ", log.LstdFlags)),
			IdentitySvc:     identity.NewService(idtRepo, mailSvc),
			CourseSvc:       course.NewService(crsRepo),
			EvaluationSvc:   evaluation.NewService(evalRepo),
			AnnouncementSvc: announcement.NewService(annRepo),
		},
	)

	os.Exit(m.Run())
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
	extra    interface{}
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

func getToken(t *testing.T, idt identity.Identity) string {
	t.Helper()

	claims := GetIdentityClaims(idt)
	token, err := GenerateToken(claims)
	if err != nil {
		t.Fatalf("getToken(): %v", err)
	}
	return token
}

func marchallObj(t *testing.T, obj interface{}) []byte {
	data, err := json.Marshal(obj)
	if err != nil {
		t.Fatalf("marchallObj(): %v", err)
	}
	return data
}

func marchallList(t *testing.T, objs ...interface{}) []byte {
	data, err := json.Marshal(objs)
	if err != nil {
		t.Fatalf("marchallList(): %v", err)
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

// checkCodeAndData asserts the response code and, when wantData is set, the
// exact JSON payload.
func checkCodeAndData(t *testing.T, tt httpTest, rec *httptest.ResponseRecorder) {
	t.Helper()

	if rec.Code != tt.wantCode {
		t.Errorf("failed! code = %v; wantCode %v", rec.Code, tt.wantCode)
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
