package pushsvc

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/Shilpa0612/school-app-backend-sub003/core"
	"github.com/Shilpa0612/school-app-backend-sub003/core/notification"
	testutil "github.com/Shilpa0612/school-app-backend-sub003/tests"
)

var payload = notification.Payload{
	Type:      notification.TypeAttendance,
	Priority:  notification.PriorityHigh,
	Title:     "Attendance update",
	Body:      "Marked absent on Oct 16, 2026",
	EntityID:  "student-a",
	StudentID: "student-a",
}

func TestHTTPTransport_SendPush(t *testing.T) {
	tests := []struct {
		name      string
		status    int
		body      string
		wantOK    bool
		wantClass notification.PushErrorClass
	}{
		{name: "delivered", status: http.StatusOK, body: `{"success":1,"failure":0,"results":[{"message_id":"m1"}]}`, wantOK: true},
		{name: "unregistered token", status: http.StatusOK, body: `{"success":0,"failure":1,"results":[{"error":"NotRegistered"}]}`, wantClass: notification.PushInvalidToken},
		{name: "provider busy", status: http.StatusOK, body: `{"success":0,"failure":1,"results":[{"error":"Unavailable"}]}`, wantClass: notification.PushUnavailable},
		{name: "payload refused", status: http.StatusOK, body: `{"success":0,"failure":1,"results":[{"error":"MessageTooBig"}]}`, wantClass: notification.PushRejected},
		{name: "bad key", status: http.StatusUnauthorized, body: `Unauthorized`, wantClass: notification.PushRejected},
		{name: "server error", status: http.StatusServiceUnavailable, body: ``, wantClass: notification.PushUnavailable},
		{name: "garbage", status: http.StatusOK, body: `<html>`, wantClass: notification.PushRejected},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := require.New(t)

			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				req.Equal(http.MethodPost, r.Method)
				req.Equal(sendPath, r.URL.Path)
				req.Equal("key=secret", r.Header.Get("Authorization"))

				var msg pushMessage
				req.NoError(json.NewDecoder(r.Body).Decode(&msg))
				req.Equal("device-token", msg.To)
				req.Equal("high", msg.Priority)
				req.Equal(payload.Title, msg.Notification.Title)
				req.Equal("student-a", msg.Data["student_id"])

				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			tr := NewHTTPTransport(core.PushConfig{BaseURL: srv.URL + "/", ServerKey: "secret", Timeout: 5 * time.Second}, testutil.NewLogger())
			res := tr.SendPush(context.Background(), "device-token", notification.PlatformAndroid, payload)

			req.Equal(tt.wantOK, res.Success)
			req.Equal(tt.wantClass, res.ErrorClass)
		})
	}
}

func TestHTTPTransport_Timeout(t *testing.T) {
	req := require.New(t)
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-release
	}))
	defer srv.Close()
	defer close(release)

	tr := NewHTTPTransport(core.PushConfig{BaseURL: srv.URL, ServerKey: "secret", Timeout: 5 * time.Second}, testutil.NewLogger())
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()

	res := tr.SendPush(ctx, "device-token", notification.PlatformIOS, payload)
	req.False(res.Success)
	req.Equal(notification.PushTimeout, res.ErrorClass)
}

func TestConsoleTransport(t *testing.T) {
	logger := testutil.NewLogger()
	res := NewConsoleTransport(logger).SendPush(context.Background(), "abcdefghijkl", notification.PlatformIOS, payload)
	require.True(t, res.Success)
	require.Equal(t, 1, logger.Count("push"))
}
