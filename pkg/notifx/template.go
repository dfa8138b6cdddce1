package notifx

import (
	"bytes"
	htmltemplate "html/template"
	"sync"
	texttemplate "text/template"
)

// Template is the source of one named email. Subject and Text use
// text/template; HTML uses html/template so data is escaped.
type Template struct {
	Subject string
	Text    string
	HTML    string
}

// Rendered is an executed Template.
type Rendered struct {
	Subject string
	Text    string
	HTML    string
}

type compiled struct {
	subject *texttemplate.Template
	text    *texttemplate.Template
	html    *htmltemplate.Template
}

// Templates is a concurrency-safe set of named templates.
type Templates struct {
	mu  sync.RWMutex
	set map[string]compiled
}

func NewTemplates() *Templates {
	return &Templates{set: make(map[string]compiled)}
}

// Register parses t and stores it under name, replacing any earlier one.
func (ts *Templates) Register(name string, t Template) error {
	var c compiled
	var err error

	if c.subject, err = texttemplate.New(name + ".subject").Parse(t.Subject); err != nil {
		return ErrRegistry.NewWithCause(CodeTemplateInvalid, err).WithDetail("template", name)
	}
	if t.Text != "" {
		if c.text, err = texttemplate.New(name + ".text").Parse(t.Text); err != nil {
			return ErrRegistry.NewWithCause(CodeTemplateInvalid, err).WithDetail("template", name)
		}
	}
	if t.HTML != "" {
		if c.html, err = htmltemplate.New(name + ".html").Parse(t.HTML); err != nil {
			return ErrRegistry.NewWithCause(CodeTemplateInvalid, err).WithDetail("template", name)
		}
	}

	ts.mu.Lock()
	ts.set[name] = c
	ts.mu.Unlock()
	return nil
}

func (ts *Templates) Render(name string, data interface{}) (Rendered, error) {
	ts.mu.RLock()
	c, ok := ts.set[name]
	ts.mu.RUnlock()
	if !ok {
		return Rendered{}, ErrRegistry.New(CodeTemplateNotFound).WithDetail("template", name)
	}

	var out Rendered
	var buf bytes.Buffer
	fail := func(err error) (Rendered, error) {
		return Rendered{}, ErrRegistry.NewWithCause(CodeTemplateInvalid, err).WithDetail("template", name)
	}

	if err := c.subject.Execute(&buf, data); err != nil {
		return fail(err)
	}
	out.Subject = buf.String()

	if c.text != nil {
		buf.Reset()
		if err := c.text.Execute(&buf, data); err != nil {
			return fail(err)
		}
		out.Text = buf.String()
	}
	if c.html != nil {
		buf.Reset()
		if err := c.html.Execute(&buf, data); err != nil {
			return fail(err)
		}
		out.HTML = buf.String()
	}
	return out, nil
}
