package tests

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Shilpa0612/school-app-backend-sub003/core/chat"
	"github.com/Shilpa0612/school-app-backend-sub003/core/user"
)

func openThread(t *testing.T, e *env, token string, participantIDs ...string) chat.Thread {
	t.Helper()
	rec := e.do(http.MethodPost, "/v1/threads", token, marchallObj(t, chat.NewThread{
		Title: "Homework help", ParticipantIDs: participantIDs,
	}))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var th chat.Thread
	unmarchall(t, rec, &th)
	return th
}

func postMessage(t *testing.T, e *env, token, threadID, content string) chat.Message {
	t.Helper()
	rec := e.do(http.MethodPost, "/v1/threads/"+threadID+"/messages", token, marchallObj(t, chat.NewMessage{Content: content}))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var msg chat.Message
	unmarchall(t, rec, &msg)
	return msg
}

func Test_chatApi_moderationFlow(t *testing.T) {
	req := require.New(t)
	e := setup(t)
	teacherToken := getToken(t, e.conf, e.teacher)
	parentToken := getToken(t, e.conf, e.parent)
	principalToken := getToken(t, e.conf, e.principal)

	th := openThread(t, e, teacherToken, e.parent.ID)
	req.Len(th.Participants, 2)

	// Given a teacher's message is waiting for review
	msg := postMessage(t, e, teacherToken, th.ID, "Please revise chapter 3")
	req.Equal(chat.StatusPending, msg.ApprovalStatus)

	// Then the parent does not see it yet
	var msgs []chat.Message
	rec := e.do(http.MethodGet, "/v1/threads/"+th.ID+"/messages", parentToken)
	req.Equal(http.StatusOK, rec.Code)
	unmarchall(t, rec, &msgs)
	req.Empty(msgs)

	rec = e.do(http.MethodGet, "/v1/messages/"+msg.ID, parentToken)
	req.Equal(http.StatusNotFound, rec.Code)

	// And the principal finds it in the queue
	rec = e.do(http.MethodGet, "/v1/messages/pending", principalToken)
	req.Equal(http.StatusOK, rec.Code)
	unmarchall(t, rec, &msgs)
	req.Len(msgs, 1)
	req.Equal(msg.ID, msgs[0].ID)

	// When the principal approves it
	rec = e.do(http.MethodPost, "/v1/messages/"+msg.ID+"/approve", principalToken)
	req.Equal(http.StatusOK, rec.Code, rec.Body.String())
	var approved chat.Message
	unmarchall(t, rec, &approved)
	req.Equal(chat.StatusApproved, approved.ApprovalStatus)
	req.Equal(e.principal.ID, *approved.ApproverID)

	// Then the parent reads it and got notified
	rec = e.do(http.MethodGet, "/v1/threads/"+th.ID+"/messages", parentToken)
	unmarchall(t, rec, &msgs)
	req.Len(msgs, 1)
	req.NotEmpty(e.inbox(t, e.parent))

	// approving again is a no-op
	rec = e.do(http.MethodPost, "/v1/messages/"+msg.ID+"/approve", principalToken)
	req.Equal(http.StatusOK, rec.Code)

	// an approved message cannot be rejected
	rec = e.do(http.MethodPost, "/v1/messages/"+msg.ID+"/reject", principalToken,
		marchallObj(t, chat.RejectMessage{Reason: "too late"}))
	req.Equal(http.StatusConflict, rec.Code)
}

func Test_chatApi_editSendsBackToReview(t *testing.T) {
	req := require.New(t)
	e := setup(t)
	teacherToken := getToken(t, e.conf, e.teacher)
	principalToken := getToken(t, e.conf, e.principal)

	th := openThread(t, e, teacherToken, e.parent.ID)
	msg := postMessage(t, e, teacherToken, th.ID, "Test on Monday")
	rec := e.do(http.MethodPost, "/v1/messages/"+msg.ID+"/approve", principalToken)
	req.Equal(http.StatusOK, rec.Code)

	rec = e.do(http.MethodPut, "/v1/messages/"+msg.ID, teacherToken, marchallObj(t, chat.EditMessage{Content: "Test on Tuesday"}))
	req.Equal(http.StatusOK, rec.Code, rec.Body.String())

	var res chat.EditResult
	unmarchall(t, rec, &res)
	req.True(res.RequiresReapproval)
	req.Equal(chat.StatusPending, res.Message.ApprovalStatus)
	req.Nil(res.Message.ApproverID)

	var edits []chat.Edit
	rec = e.do(http.MethodGet, "/v1/messages/"+msg.ID+"/history", principalToken)
	req.Equal(http.StatusOK, rec.Code)
	unmarchall(t, rec, &edits)
	req.Len(edits, 1)
	req.Equal("Test on Monday", edits[0].PreviousContent)
	req.Contains(edits[0].Diff, "+Test on Tuesday")
}

func Test_chatApi_roleChangeTakesEffect(t *testing.T) {
	req := require.New(t)
	e := setup(t)
	ctx := context.Background()
	teacherToken := getToken(t, e.conf, e.teacher)
	principalToken := getToken(t, e.conf, e.principal)

	th := openThread(t, e, teacherToken, e.parent.ID)
	msg := postMessage(t, e, teacherToken, th.ID, "Swimming lessons start next week")

	// Given the principal is demoted after their token was issued
	demoted := e.principal
	demoted.Role = user.RoleTeacher
	_, err := e.users.CreateUser(ctx, demoted)
	req.NoError(err)

	// Then the token no longer carries moderation rights
	rec := e.do(http.MethodPost, "/v1/messages/"+msg.ID+"/approve", principalToken)
	req.Equal(http.StatusForbidden, rec.Code, rec.Body.String())
	rec = e.do(http.MethodGet, "/v1/messages/pending", principalToken)
	req.Equal(http.StatusForbidden, rec.Code)

	// And a teacher promoted to admin moderates with their existing token
	promoted := e.teacher
	promoted.Role = user.RoleAdmin
	_, err = e.users.CreateUser(ctx, promoted)
	req.NoError(err)

	rec = e.do(http.MethodPost, "/v1/messages/"+msg.ID+"/approve", teacherToken)
	req.Equal(http.StatusOK, rec.Code, rec.Body.String())
}

func Test_chatApi_permissions(t *testing.T) {
	e := setup(t)
	teacherToken := getToken(t, e.conf, e.teacher)
	parentToken := getToken(t, e.conf, e.parent)
	outsiderToken := getToken(t, e.conf, e.otherParent)

	th := openThread(t, e, teacherToken, e.parent.ID)
	msg := postMessage(t, e, teacherToken, th.ID, "Field trip form")
	forbidden := marchallObj(t, httpErr{Error: "permission denied"})
	notFound := marchallObj(t, httpErr{Error: "not found"})

	runHTTPTests(t, e, []httpTest{
		{name: "auth required", path: "/v1/messages/pending", wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)},
		{name: "inactive account", path: "/v1/threads/" + th.ID + "/messages", token: getToken(t, e.conf, e.inactive),
			wantCode: http.StatusForbidden, wantData: marchallObj(t, httpErr{Error: "account deactivated"})},
		{name: "queue needs a moderator", path: "/v1/messages/pending", token: teacherToken, wantCode: http.StatusForbidden, wantData: forbidden},
		{name: "parent cannot approve", method: http.MethodPost, path: "/v1/messages/" + msg.ID + "/approve", token: parentToken,
			wantCode: http.StatusForbidden, wantData: forbidden},
		{name: "outsider cannot read the thread", path: "/v1/threads/" + th.ID + "/messages", token: outsiderToken,
			wantCode: http.StatusForbidden, wantData: forbidden},
		{name: "outsider cannot post", method: http.MethodPost, path: "/v1/threads/" + th.ID + "/messages", token: outsiderToken,
			body: marchallObj(t, chat.NewMessage{Content: "hello"}), wantCode: http.StatusForbidden, wantData: forbidden},
		{name: "only the sender edits", method: http.MethodPut, path: "/v1/messages/" + msg.ID, token: parentToken,
			body: marchallObj(t, chat.EditMessage{Content: "changed"}), wantCode: http.StatusForbidden, wantData: forbidden},
		{name: "unknown thread", path: "/v1/threads/nope/messages", token: teacherToken, wantCode: http.StatusNotFound, wantData: notFound},
		{name: "unknown message", path: "/v1/messages/nope", token: teacherToken, wantCode: http.StatusNotFound, wantData: notFound},
		{name: "blank content", method: http.MethodPost, path: "/v1/threads/" + th.ID + "/messages", token: teacherToken,
			body: marchallObj(t, chat.NewMessage{Content: "   "}), wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"content": "this field cannot be blank"})},
		{name: "reject needs a reason", method: http.MethodPost, path: "/v1/messages/" + msg.ID + "/reject",
			token: getToken(t, e.conf, e.admin), body: marchallObj(t, chat.RejectMessage{}), wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"reason": "this field is required"})},
	})
}
