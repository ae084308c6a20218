package tests

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"

	"github.com/Shilpa0612/school-app-backend-sub003/core/notification"
)

func Test_notificationApi_inbox(t *testing.T) {
	req := require.New(t)
	e := setup(t)
	parentToken := getToken(t, e.conf, e.parent)

	for _, id := range []string{"hw-1", "hw-2"} {
		rec := e.do(http.MethodPost, "/v1/homework", getToken(t, e.conf, e.teacher), marchallObj(t, notification.Homework{
			ID: id, ClassDivisionID: "class-a", Subject: "Maths", Title: "Exercise " + id, DueDate: time.Now().Add(48 * time.Hour),
		}))
		req.Equal(http.StatusAccepted, rec.Code, rec.Body.String())
	}

	var ns []notification.Notification
	rec := e.do(http.MethodGet, "/v1/notifications?unread=true&limit=1", parentToken)
	req.Equal(http.StatusOK, rec.Code)
	unmarchall(t, rec, &ns)
	req.Len(ns, 1)
	req.Equal("hw-2", ns[0].EntityID)

	// someone else's notification reads as not found
	rec = e.do(http.MethodPost, "/v1/notifications/"+ns[0].ID+"/read", getToken(t, e.conf, e.otherParent))
	req.Equal(http.StatusNotFound, rec.Code)

	rec = e.do(http.MethodPost, "/v1/notifications/"+ns[0].ID+"/read", parentToken)
	req.Equal(http.StatusNoContent, rec.Code)

	rec = e.do(http.MethodGet, "/v1/notifications?unread=true", parentToken)
	unmarchall(t, rec, &ns)
	req.Len(ns, 1)
	req.Equal("hw-1", ns[0].EntityID)
}

func Test_notificationApi_devices(t *testing.T) {
	e := setup(t)
	parentToken := getToken(t, e.conf, e.parent)

	runHTTPTests(t, e, []httpTest{
		{name: "register", method: http.MethodPost, path: "/v1/devices", token: parentToken,
			body: marchallObj(t, notification.NewDevice{Token: "fcm-token-1", Platform: "android"}), wantCode: http.StatusCreated},
		{name: "unknown platform", method: http.MethodPost, path: "/v1/devices", token: parentToken,
			body: marchallObj(t, notification.NewDevice{Token: "fcm-token-2", Platform: "web"}), wantCode: http.StatusBadRequest},
		{name: "not the owner", method: http.MethodDelete, path: "/v1/devices/fcm-token-1", token: getToken(t, e.conf, e.teacher),
			wantCode: http.StatusNotFound, wantData: marchallObj(t, httpErr{Error: "not found"})},
		{name: "unregister", method: http.MethodDelete, path: "/v1/devices/fcm-token-1", token: parentToken, wantCode: http.StatusNoContent},
	})
}

func Test_liveApi_websocket(t *testing.T) {
	req := require.New(t)
	e := setup(t)
	srv := httptest.NewServer(e.app)
	defer srv.Close()

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/v1/ws?token=" + getToken(t, e.conf, e.parent)
	client, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	req.NoError(err)
	defer client.Close()

	req.Eventually(func() bool { return e.registry.Connected(e.parent.ID) == 1 }, time.Second, 10*time.Millisecond)

	rec := e.do(http.MethodPost, "/v1/homework", getToken(t, e.conf, e.teacher), marchallObj(t, notification.Homework{
		ID: "hw-1", ClassDivisionID: "class-a", Subject: "Maths", Title: "Fractions", DueDate: time.Now().Add(24 * time.Hour),
	}))
	req.Equal(http.StatusAccepted, rec.Code)

	var res notification.DispatchResult
	unmarchall(t, rec, &res)
	req.Equal(1, res.LiveDelivered)

	req.NoError(client.SetReadDeadline(time.Now().Add(time.Second)))
	var frame notification.LiveFrame
	req.NoError(client.ReadJSON(&frame))
	req.Equal("notification", frame.Kind)
	req.Equal(notification.TypeHomework, frame.Notification.Type)

	// a token in the query is required
	_, resp, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http")+"/v1/ws", nil)
	req.Error(err)
	req.Equal(http.StatusUnauthorized, resp.StatusCode)
}
