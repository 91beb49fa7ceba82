package core

import (
	"bytes"
	"encoding/base64"
	htmltmpl "html/template"
	"io"
	"io/fs"
	"net/http"
	"net/mail"
	"path"
	"strings"
	"sync"
	texttmpl "text/template"

	"github.com/pkg/errors"
)

type (
	tmplCacheEntry map[string]interface{}    // {ext: *Template}
	tmplCache      map[string]tmplCacheEntry // {name: {tmplCacheEntry}}

	Attachment struct {
		Content     *bytes.Buffer
		ContentType string
		Filename    string
	}

	EmailMessage struct {
		To          []mail.Address
		Cc          []mail.Address
		Bcc         []mail.Address
		Subject     string
		BodyStr     string // simple text/plain, non-templated content
		Attachments []Attachment

		// templated contents
		TemplateName string // without ext
		TemplateData interface{}
		TextContent  string
		HTMLContent  string
	}

	ContextData struct {
		AppName         string
		FrontendBaseURL string
		Data            interface{}
	}

	// EmailService is any service that can send emails
	EmailService interface {
		// SendMessages sends messages concurrently
		SendMessages(messages ...*EmailMessage)
	}

	// EmailTemplates renders EmailMessages from `<name>.txt` & `<name>.gohtml` files,
	// each one extending `_base.txt` / `_base.gohtml`.
	EmailTemplates struct {
		fsys    fs.FS
		appName string
		baseURL string
		strict  bool

		once  sync.Once
		cache tmplCache
		err   error
	}
)

func NewEmailTemplates(fsys fs.FS, conf *Config) *EmailTemplates {
	return &EmailTemplates{
		fsys:    fsys,
		appName: conf.AppName,
		baseURL: conf.FrontendBaseURL,
		strict:  conf.Debug || conf.TestMode,
	}
}

// Render fills msg.TextContent & msg.HTMLContent.
func (t *EmailTemplates) Render(msg *EmailMessage) error {
	if msg.BodyStr != "" {
		msg.TextContent = msg.BodyStr
	}
	if msg.TemplateName == "" {
		return nil
	}

	t.once.Do(t.parse) // only parse once, during first render
	if t.err != nil {
		return t.err
	}
	entry, ok := t.cache[msg.TemplateName]
	if !ok {
		return errors.Errorf("email template %q not found", msg.TemplateName)
	}
	data := ContextData{AppName: t.appName, FrontendBaseURL: t.baseURL, Data: msg.TemplateData}

	var buff bytes.Buffer
	if tmpl, ok := entry[".txt"].(*texttmpl.Template); ok && msg.BodyStr == "" {
		if err := tmpl.ExecuteTemplate(&buff, "base", data); err != nil {
			return errors.Wrap(err, "rendering text template")
		}
		msg.TextContent = buff.String()
	}
	if tmpl, ok := entry[".gohtml"].(*htmltmpl.Template); ok {
		buff.Reset()
		if err := tmpl.ExecuteTemplate(&buff, "base", data); err != nil {
			return errors.Wrap(err, "rendering html template")
		}
		msg.HTMLContent = buff.String()
	}
	return nil
}

func (t *EmailTemplates) parse() {
	t.cache = make(tmplCache)

	fps, err := fs.Glob(t.fsys, "*")
	if err != nil {
		t.err = errors.Wrap(err, "listing email templates")
		return
	}

	for _, fp := range fps {
		fname := path.Base(fp)
		ext := path.Ext(fname)
		if strings.HasPrefix(fname, "_") || !(ext == ".txt" || ext == ".gohtml") {
			continue
		}
		name := strings.TrimSuffix(fname, ext)
		entry, ok := t.cache[name]
		if !ok {
			entry = make(tmplCacheEntry)
			t.cache[name] = entry
		}

		if ext == ".txt" {
			tmpl, err := texttmpl.ParseFS(t.fsys, "_base.txt", fp)
			if err != nil {
				t.err = errors.Wrapf(err, "parsing %s", fp)
				return
			}
			if t.strict {
				tmpl = tmpl.Option("missingkey=error")
			}
			entry[ext] = tmpl
		} else {
			tmpl, err := htmltmpl.ParseFS(t.fsys, "_base.gohtml", fp)
			if err != nil {
				t.err = errors.Wrapf(err, "parsing %s", fp)
				return
			}
			if t.strict {
				tmpl = tmpl.Option("missingkey=error")
			}
			entry[ext] = tmpl
		}
	}
}

func (m *EmailMessage) Attach(r io.Reader, filename string, ct ...string) error {
	content, err := io.ReadAll(r)
	if err != nil {
		return errors.Wrap(err, "reading attachment")
	}

	at := Attachment{Filename: filename, Content: new(bytes.Buffer)}
	encoder := base64.NewEncoder(base64.StdEncoding, at.Content)
	if _, err := encoder.Write(content); err != nil {
		return errors.Wrap(err, "encoding attachment")
	}
	_ = encoder.Close()

	if len(ct) > 0 {
		at.ContentType = ct[0]
	} else {
		at.ContentType = http.DetectContentType(content)
	}
	m.Attachments = append(m.Attachments, at)
	return nil
}

func (m *EmailMessage) HasRecipients() bool  { return len(m.To) > 0 }
func (m *EmailMessage) HasContent() bool     { return (m.TextContent != "") || (m.HTMLContent != "") }
func (m *EmailMessage) HasAttachments() bool { return len(m.Attachments) > 0 }
