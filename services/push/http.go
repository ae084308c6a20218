package pushsvc

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/sendgrid/rest"

	"github.com/Shilpa0612/school-app-backend-sub003/core"
	"github.com/Shilpa0612/school-app-backend-sub003/core/notification"
)

const sendPath = "/fcm/send"

// provider error codes meaning the token will never work again
var invalidTokenErrors = map[string]bool{
	"NotRegistered":       true,
	"InvalidRegistration": true,
	"MismatchSenderId":    true,
}

var retryableErrors = map[string]bool{
	"Unavailable":         true,
	"InternalServerError": true,
}

type (
	httpTransport struct {
		baseURL   string
		serverKey string
		client    *rest.Client
		logger    core.Logger
	}

	pushMessage struct {
		To           string            `json:"to"`
		Priority     string            `json:"priority"`
		Notification pushNotification  `json:"notification"`
		Data         map[string]string `json:"data"`
	}

	pushNotification struct {
		Title string `json:"title"`
		Body  string `json:"body"`
	}

	pushResponse struct {
		Success int `json:"success"`
		Failure int `json:"failure"`
		Results []struct {
			MessageID string `json:"message_id"`
			Error     string `json:"error"`
		} `json:"results"`
	}
)

var _ notification.PushTransport = (*httpTransport)(nil)

// NewHTTPTransport posts to an FCM-compatible HTTP endpoint. timeout bounds each call
// on top of the caller's deadline.
func NewHTTPTransport(conf core.PushConfig, logger core.Logger) notification.PushTransport {
	return &httpTransport{
		baseURL:   strings.TrimSuffix(conf.BaseURL, "/"),
		serverKey: conf.ServerKey,
		client:    &rest.Client{HTTPClient: &http.Client{Timeout: conf.Timeout}},
		logger:    logger,
	}
}

func (t *httpTransport) SendPush(ctx context.Context, token string, platform notification.Platform, payload notification.Payload) notification.PushResult {
	body, err := json.Marshal(buildMessage(token, platform, payload))
	if err != nil {
		return notification.PushResult{ErrorClass: notification.PushRejected, Detail: errors.Wrap(err, "encoding push").Error()}
	}

	res, err := t.client.SendWithContext(ctx, rest.Request{
		Method:  rest.Post,
		BaseURL: t.baseURL + sendPath,
		Headers: map[string]string{
			"Authorization": "key=" + t.serverKey,
			"Content-Type":  "application/json",
		},
		Body: body,
	})
	if err != nil {
		class := notification.PushUnavailable
		if ctx.Err() != nil || isTimeout(err) {
			class = notification.PushTimeout
		}
		return notification.PushResult{ErrorClass: class, Detail: err.Error()}
	}
	return classify(res)
}

func buildMessage(token string, platform notification.Platform, p notification.Payload) pushMessage {
	prio := "normal"
	if p.Priority == notification.PriorityHigh || p.Priority == notification.PriorityUrgent {
		prio = "high"
	}
	data := map[string]string{
		"type":     string(p.Type),
		"priority": string(p.Priority),
		"platform": string(platform),
	}
	if p.EntityID != "" {
		data["entity_id"] = p.EntityID
	}
	if p.StudentID != "" {
		data["student_id"] = p.StudentID
	}
	return pushMessage{
		To:           token,
		Priority:     prio,
		Notification: pushNotification{Title: p.Title, Body: p.Body},
		Data:         data,
	}
}

func classify(res *rest.Response) notification.PushResult {
	switch {
	case res.StatusCode == http.StatusTooManyRequests || res.StatusCode >= http.StatusInternalServerError:
		return notification.PushResult{ErrorClass: notification.PushUnavailable, Detail: "status " + strconv.Itoa(res.StatusCode)}
	case res.StatusCode >= http.StatusBadRequest:
		return notification.PushResult{ErrorClass: notification.PushRejected, Detail: "status " + strconv.Itoa(res.StatusCode) + ": " + res.Body}
	}

	var pr pushResponse
	if err := json.Unmarshal([]byte(res.Body), &pr); err != nil {
		return notification.PushResult{ErrorClass: notification.PushRejected, Detail: errors.Wrap(err, "decoding push response").Error()}
	}
	if pr.Failure == 0 {
		return notification.PushResult{Success: true}
	}

	var code string
	if len(pr.Results) > 0 {
		code = pr.Results[0].Error
	}
	switch {
	case invalidTokenErrors[code]:
		return notification.PushResult{ErrorClass: notification.PushInvalidToken, Detail: code}
	case retryableErrors[code]:
		return notification.PushResult{ErrorClass: notification.PushUnavailable, Detail: code}
	}
	return notification.PushResult{ErrorClass: notification.PushRejected, Detail: code}
}

func isTimeout(err error) bool {
	var te interface{ Timeout() bool }
	return errors.As(err, &te) && te.Timeout()
}

// consoleTransport logs pushes instead of sending them; used when no provider is configured.
type consoleTransport struct {
	logger core.Logger
}

var _ notification.PushTransport = (*consoleTransport)(nil)

func NewConsoleTransport(logger core.Logger) notification.PushTransport {
	return &consoleTransport{logger: logger}
}

func (t *consoleTransport) SendPush(_ context.Context, token string, platform notification.Platform, payload notification.Payload) notification.PushResult {
	t.logger.Debug("push", map[string]interface{}{
		"token":    mask(token),
		"platform": platform,
		"title":    payload.Title,
		"at":       core.NowFunc().Format(time.RFC3339),
	})
	return notification.PushResult{Success: true}
}

func mask(token string) string {
	if len(token) <= 8 {
		return "****"
	}
	return token[:4] + "…" + token[len(token)-4:]
}
