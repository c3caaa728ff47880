package core

import (
	"bytes"
	htmltmpl "html/template"
	"net/mail"
	"sync"
	texttmpl "text/template"

	"github.com/pkg/errors"
)

var templates = struct {
	sync.RWMutex
	text map[string]*texttmpl.Template
	html map[string]*htmltmpl.Template
}{
	text: make(map[string]*texttmpl.Template),
	html: make(map[string]*htmltmpl.Template),
}

type (
	EmailMessage struct {
		To      []mail.Address
		Cc      []mail.Address
		Bcc     []mail.Address
		Subject string
		BodyStr string // simple text/plain, non-templated content

		// templated contents
		TemplateName string
		TemplateData interface{}
		TextContent  string
		HTMLContent  string
	}

	ContextData struct {
		AppName string
		Data    interface{}
	}

	// EmailService is any service that can send emails
	EmailService interface {
		// SendMessages sends messages concurrently
		SendMessages(messages ...*EmailMessage)
	}
)

// RegisterEmailTemplate parses and stores the text & HTML bodies of the email template `name`.
// html may be empty for text-only emails.
func RegisterEmailTemplate(name, text, html string) {
	templates.Lock()
	defer templates.Unlock()

	templates.text[name] = texttmpl.Must(texttmpl.New(name).Option("missingkey=error").Parse(text))
	if html != "" {
		templates.html[name] = htmltmpl.Must(htmltmpl.New(name).Option("missingkey=error").Parse(html))
	}
}

// Render fills TextContent & HTMLContent from BodyStr or the message template.
func (m *EmailMessage) Render(appName string) error {
	if m.BodyStr != "" {
		m.TextContent = m.BodyStr
		return nil
	} else if m.TemplateName == "" {
		return nil
	}

	templates.RLock()
	textTmpl, hasText := templates.text[m.TemplateName]
	htmlTmpl, hasHTML := templates.html[m.TemplateName]
	templates.RUnlock()

	if !hasText {
		return errors.Errorf("email template %q not registered", m.TemplateName)
	}

	data := ContextData{AppName: appName, Data: m.TemplateData}
	var buff bytes.Buffer
	if err := textTmpl.Execute(&buff, data); err != nil {
		return errors.Wrap(err, "rendering text template")
	}
	m.TextContent = buff.String()

	if hasHTML {
		buff.Reset()
		if err := htmlTmpl.Execute(&buff, data); err != nil {
			return errors.Wrap(err, "rendering html template")
		}
		m.HTMLContent = buff.String()
	}
	return nil
}

func (m *EmailMessage) HasRecipients() bool { return len(m.To) > 0 }
func (m *EmailMessage) HasContent() bool    { return (m.TextContent != "") || (m.HTMLContent != "") }
