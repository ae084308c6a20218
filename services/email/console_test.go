package emailsvc

import (
	"net/mail"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Shilpa0612/school-app-backend-sub003/core"
	testutil "github.com/Shilpa0612/school-app-backend-sub003/tests"
)

func TestConsoleServiceMock_SendMessages(t *testing.T) {
	req := require.New(t)
	ResetSentMessages()
	conf := &core.Config{AppName: "School App", DefaultFromEmail: "noreply@school.test"}
	svc := NewConsoleServiceMock(conf, testutil.NewLogger())

	svc.SendMessages(
		&core.EmailMessage{
			To:           []mail.Address{{Name: "Gina", Address: "gina@school.test"}},
			Subject:      "School closed",
			TemplateName: "notification",
			TemplateData: core.NotificationMailData{AppName: conf.AppName, Title: "School closed", Body: "Snow day"},
		},
		&core.EmailMessage{Subject: "nobody to send to", BodyStr: "dropped"},
	)

	req.Len(SentMessages, 1)
	sent := SentMessages[0]
	req.Contains(sent.TextContent, "Snow day")
	req.Contains(sent.HTMLContent, "<h2>School closed</h2>")
}
