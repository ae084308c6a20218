package core

import (
	"bytes"
	htmltmpl "html/template"
	"net/mail"
	texttmpl "text/template"
)

var (
	textTemplates = map[string]*texttmpl.Template{
		"notification": texttmpl.Must(texttmpl.New("notification").Parse(
			"{{.Title}}\n\n{{.Body}}\n\n-- {{.AppName}}\n",
		)),
	}
	htmlTemplates = map[string]*htmltmpl.Template{
		"notification": htmltmpl.Must(htmltmpl.New("notification").Parse(
			`<h2>{{.Title}}</h2><p>{{.Body}}</p><p><small>{{.AppName}}</small></p>`,
		)),
	}
)

type (
	EmailMessage struct {
		To      []mail.Address
		Subject string
		BodyStr string // simple text/plain, non-templated content

		// templated contents
		TemplateName string
		TemplateData interface{}
		TextContent  string
		HTMLContent  string
	}

	// NotificationMailData feeds the "notification" template.
	NotificationMailData struct {
		AppName string
		Title   string
		Body    string
	}

	// EmailService is any service that can send emails
	EmailService interface {
		// SendMessages sends messages concurrently
		SendMessages(messages ...*EmailMessage)
	}
)

func (m *EmailMessage) Render() error {
	if m.BodyStr != "" {
		m.TextContent = m.BodyStr
	} else if tmpl, ok := textTemplates[m.TemplateName]; ok {
		var buff bytes.Buffer
		if err := tmpl.Execute(&buff, m.TemplateData); err != nil {
			return err
		}
		m.TextContent = buff.String()
	}

	if tmpl, ok := htmlTemplates[m.TemplateName]; ok {
		var buff bytes.Buffer
		if err := tmpl.Execute(&buff, m.TemplateData); err != nil {
			return err
		}
		m.HTMLContent = buff.String()
	}
	return nil
}

func (m *EmailMessage) HasRecipients() bool { return len(m.To) > 0 }
func (m *EmailMessage) HasContent() bool    { return (m.TextContent != "") || (m.HTMLContent != "") }
