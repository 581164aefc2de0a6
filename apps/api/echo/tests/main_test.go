package tests

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"reflect"
	"testing"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	echoapi "github.com/prochartist/backend/apps/api/echo"
	"github.com/prochartist/backend/core"
	"github.com/prochartist/backend/core/application"
	"github.com/prochartist/backend/core/catalog"
	"github.com/prochartist/backend/core/league"
	"github.com/prochartist/backend/core/media"
	"github.com/prochartist/backend/core/payment"
	"github.com/prochartist/backend/core/progress"
	"github.com/prochartist/backend/core/user"
	"github.com/prochartist/backend/core/video"
	emailsvc "github.com/prochartist/backend/services/email"
	"github.com/prochartist/backend/services/filestore"
	paymentsvc "github.com/prochartist/backend/services/payment"
	inmemdb "github.com/prochartist/backend/storage/database/inmem"
	"github.com/prochartist/backend/testutil"
)

const (
	masterToken = "master-link-token"
	strongPwd   = "Tr@d1ngR0cks!"
)

var (
	errMissingToken  = httpErr{Error: "missing or malformed jwt"}
	errPermission    = httpErr{Error: "permission denied"}
	skippedAnonymous = echoapi.SkippedResponse{Skipped: true, Message: "authentication required"}
)

func TestMain(m *testing.M) {
	conf := core.NewTestConfig()
	logger := testutil.NewLogger(conf)
	core.ParseEmailTemplates(logger, conf)
	user.LoadCommonPasswords(logger)

	os.Exit(m.Run())
}

// testEnv is a server wired with in-memory collaborators.
type testEnv struct {
	conf    *core.Config
	server  *echoapi.Server
	usrRepo user.Repository
	mailSvc *emailsvc.ConsoleServiceMock
	gateway *paymentsvc.Dummy
	tracker *progress.Tracker
}

func setup(t *testing.T) *testEnv {
	conf := core.NewTestConfig()
	conf.MasterLinkToken = masterToken
	conf.Storage.LocalDir = t.TempDir()
	logger := testutil.NewLogger(conf)

	validate := validator.New()
	_en := en.New()
	translator, _ := ut.New(_en, _en).GetTranslator("en")
	core.InitValidators(validate, translator)
	user.InitValidators(validate, translator)

	// set up DB & repos
	db := inmemdb.Open()
	usrRepo := inmemdb.NewUserRepository(db)

	// set up services
	mailSvc := emailsvc.NewConsoleServiceMock(logger, conf)
	gateway := paymentsvc.NewDummy(conf)
	usrSvc := user.NewService(usrRepo, inmemdb.NewOTPStore(db), mailSvc, conf)
	catalogSvc := catalog.NewService(inmemdb.NewPhaseRepository(db))
	tracker := progress.NewTracker(inmemdb.NewProgressRepository(db), catalogSvc)
	paymentSvc := payment.NewService(inmemdb.NewPaymentRepository(db), gateway, catalogSvc, tracker, logger, conf)
	store := filestore.NewLocalStorage(conf)

	if _, err := catalogSvc.Seed(context.Background()); err != nil {
		t.Fatalf("catalogSvc.Seed(): %v", err)
	}

	// set up server
	server := echoapi.NewServer(conf, logger, validate, translator, &echoapi.Deps{
		UserSvc:        usrSvc,
		Tracker:        tracker,
		CatalogSvc:     catalogSvc,
		VideoSvc:       video.NewService(inmemdb.NewVideoRepository(db)),
		ApplicationSvc: application.NewService(inmemdb.NewApplicationRepository(db)),
		LeagueSvc:      league.NewService(inmemdb.NewLeagueRepository(db)),
		PaymentSvc:     paymentSvc,
		Uploader:       media.NewUploader(store, conf),
		UploadsDir:     store.Dir(),
	})

	return &testEnv{
		conf:    conf,
		server:  server,
		usrRepo: usrRepo,
		mailSvc: mailSvc,
		gateway: gateway,
		tracker: tracker,
	}
}

func (env *testEnv) createUser(t *testing.T, name, email string, roles []string, isActive bool) user.User {
	return testutil.CreateUser(t, env.usrRepo, name, email, strongPwd, roles, isActive)
}

func (env *testEnv) getToken(t *testing.T, usr user.User) string {
	auth := env.server.Auth()
	token, err := auth.GenerateToken(auth.UserClaims(usr))
	if err != nil {
		t.Fatalf("getToken(): %v", err)
	}
	return token
}

func (env *testEnv) serve(req *http.Request, rec *httptest.ResponseRecorder) {
	env.server.ServeHTTP(rec, req)
}

// do sends a JSON request and returns the recorded response.
func (env *testEnv) do(method, path, token string, body []byte) *httptest.ResponseRecorder {
	req, rec := newAuthRequest(method, path, token, body)
	env.serve(req, rec)
	return rec
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
		t.Fatalf("marchallObj(): %v", err)
	}
	return data
}

func unmarchallObj(t *testing.T, data []byte, obj interface{}) {
	if err := json.Unmarshal(data, obj); err != nil {
		t.Fatalf("unmarchallObj(%s): %v", data, err)
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
	if rec.Code != tt.wantCode {
		t.Errorf("failed! code = %v; wantCode %v; body %s", rec.Code, tt.wantCode, rec.Body.String())
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

func runHTTPTests(t *testing.T, env *testEnv, tests []httpTest) {
	t.Helper()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			method := tt.method
			if method == "" {
				method = http.MethodGet
			}
			req, rec := newAuthRequest(method, tt.path, tt.token, tt.body)
			env.serve(req, rec)
			checkCodeAndData(t, tt, rec)
		})
	}
}
