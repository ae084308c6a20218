package tests

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"reflect"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/require"

	echoapi "github.com/Shilpa0612/school-app-backend-sub003/apps/api/echo"
	"github.com/Shilpa0612/school-app-backend-sub003/core"
	"github.com/Shilpa0612/school-app-backend-sub003/core/chat"
	"github.com/Shilpa0612/school-app-backend-sub003/core/directory"
	"github.com/Shilpa0612/school-app-backend-sub003/core/moderation"
	"github.com/Shilpa0612/school-app-backend-sub003/core/notification"
	"github.com/Shilpa0612/school-app-backend-sub003/core/user"
	livesvc "github.com/Shilpa0612/school-app-backend-sub003/services/live"
	inmemdb "github.com/Shilpa0612/school-app-backend-sub003/storage/database/inmem"
	testutil "github.com/Shilpa0612/school-app-backend-sub003/tests"
)

var errMissingToken = httpErr{Error: "missing or malformed jwt"}

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

// env is a running API over an in-memory school:
//
//	class-a: teacher, student-a (guardian parent)
//	class-b: other teacher, student-b (guardian otherParent)
type env struct {
	app      echoapi.Server
	conf     *core.Config
	logger   *testutil.Logger
	users    user.Repository
	notifs   *inmemdb.NotificationRepository
	registry *livesvc.Registry

	principal, admin, teacher, otherTeacher, parent, otherParent, inactive user.User
}

func setup(t *testing.T) *env {
	t.Helper()

	conf := &core.Config{
		TestMode:  true,
		AppName:   "School App",
		SecretKey: "test-secret",
		Server:    core.ServerConfig{JWTExpirationDelta: time.Hour},
	}
	db := inmemdb.Open()
	e := &env{
		conf:     conf,
		logger:   testutil.NewLogger(),
		users:    inmemdb.NewUserRepository(db),
		notifs:   inmemdb.NewNotificationRepository(db),
		registry: livesvc.NewRegistry(time.Minute, 2*time.Minute, testutil.NewLogger()),
	}
	e.principal = testutil.CreateUser(t, e.users, "Principal Paula", user.RolePrincipal, true)
	e.admin = testutil.CreateUser(t, e.users, "Admin Ada", user.RoleAdmin, true)
	e.teacher = testutil.CreateUser(t, e.users, "Teacher Tom", user.RoleTeacher, true)
	e.otherTeacher = testutil.CreateUser(t, e.users, "Teacher Ben", user.RoleTeacher, true)
	e.parent = testutil.CreateUser(t, e.users, "Parent Pat", user.RoleParent, true)
	e.otherParent = testutil.CreateUser(t, e.users, "Parent Olly", user.RoleParent, true)
	e.inactive = testutil.CreateUser(t, e.users, "Former Fred", user.RoleParent, false)

	dir := inmemdb.NewDirectoryRepository(db)
	dir.AssignTeacher(directory.TeacherClassAssignment{TeacherID: e.teacher.ID, ClassDivisionID: "class-a", IsActive: true})
	dir.AssignTeacher(directory.TeacherClassAssignment{TeacherID: e.otherTeacher.ID, ClassDivisionID: "class-b", IsActive: true})
	dir.AddStudent(directory.Student{ID: "student-a", Name: "Alice", ClassDivisionID: "class-a"})
	dir.AddStudent(directory.Student{ID: "student-b", Name: "Bob", ClassDivisionID: "class-b"})
	dir.LinkGuardian(directory.GuardianStudentLink{GuardianID: e.parent.ID, StudentID: "student-a"})
	dir.LinkGuardian(directory.GuardianStudentLink{GuardianID: e.otherParent.ID, StudentID: "student-b"})

	resolver := directory.NewResolver(dir, e.logger)
	notifier := notification.NewNotifier(
		notification.NewAudience(resolver, e.users, e.logger),
		notification.NewDispatcher(e.notifs, e.notifs, e.logger, notification.WithLive(e.registry)),
		e.logger,
	)
	screener, err := moderation.NewScreener([]string{"idiot"}, '*')
	require.NoError(t, err)

	validate := validator.New()
	translator := core.NewTranslator()
	core.InitValidators(validate, translator)

	e.app = echoapi.NewServer(echoapi.ServerDeps{
		Conf:       conf,
		Logger:     e.logger,
		Users:      e.users,
		ChatSvc:    chat.NewService(inmemdb.NewChatRepository(db), e.users, notifier, screener, e.logger),
		NotifSvc:   notification.NewService(e.notifs, e.notifs, e.logger),
		Notifier:   notifier,
		Directory:  resolver,
		Live:       e.registry,
		Validate:   validate,
		Translator: translator,
	})
	return e
}

func (e *env) inbox(t *testing.T, usr user.User) []notification.Notification {
	t.Helper()
	ns, err := e.notifs.ListNotifications(context.Background(), usr.ID, false, 100)
	require.NoError(t, err)
	return ns
}

// do runs one request against the app and returns the recorder.
func (e *env) do(method, path, token string, data ...[]byte) *httptest.ResponseRecorder {
	req, rec := newAuthRequest(method, path, token, data...)
	e.app.ServeHTTP(rec, req)
	return rec
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

func getToken(t *testing.T, conf *core.Config, usr user.User) string {
	token, err := echoapi.GenerateToken(conf, echoapi.GetUserClaims(conf, usr))
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

func unmarchall(t *testing.T, rec *httptest.ResponseRecorder, obj interface{}) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), obj); err != nil {
		t.Fatalf("unmarchall() failed: %v; body %s", err, rec.Body.String())
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

func runHTTPTests(t *testing.T, e *env, tests []httpTest) {
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			method := tt.method
			if method == "" {
				method = http.MethodGet
			}
			checkCodeAndData(t, tt, e.do(method, tt.path, tt.token, tt.body))
		})
	}
}
