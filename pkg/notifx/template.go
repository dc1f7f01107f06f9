package notifx

import (
	"bytes"
	"errors"
	htmltemplate "html/template"
	"io/fs"
	"path"
	"strings"
	"sync"
	texttemplate "text/template"
)

// emailTemplate is one named email: an HTML body and an optional plain
// text alternative.
type emailTemplate struct {
	html *htmltemplate.Template
	text *texttemplate.Template
}

// TemplateRegistry holds email templates by name.
type TemplateRegistry struct {
	mu        sync.RWMutex
	templates map[string]emailTemplate
}

func NewTemplateRegistry() *TemplateRegistry {
	return &TemplateRegistry{templates: make(map[string]emailTemplate)}
}

// Register parses an HTML body and, when textBody is not empty, its plain
// text alternative.
func (r *TemplateRegistry) Register(name, htmlBody, textBody string) error {
	var t emailTemplate
	var err error
	if t.html, err = htmltemplate.New(name).Parse(htmlBody); err != nil {
		return notifxErrors.NewWithCause(ErrTemplateParse, err).WithDetail("template", name)
	}
	if textBody != "" {
		if t.text, err = texttemplate.New(name).Parse(textBody); err != nil {
			return notifxErrors.NewWithCause(ErrTemplateParse, err).WithDetail("template", name)
		}
	}

	r.mu.Lock()
	r.templates[name] = t
	r.mu.Unlock()
	return nil
}

// LoadFS registers every <name>.html in fsys, pairing it with <name>.txt
// when present.
func (r *TemplateRegistry) LoadFS(fsys fs.FS) error {
	files, err := fs.Glob(fsys, "*.html")
	if err != nil {
		return err
	}
	for _, file := range files {
		name := strings.TrimSuffix(path.Base(file), ".html")
		htmlBody, err := fs.ReadFile(fsys, file)
		if err != nil {
			return notifxErrors.NewWithCause(ErrTemplateParse, err).WithDetail("template", name)
		}
		textBody, err := fs.ReadFile(fsys, name+".txt")
		if err != nil && !errors.Is(err, fs.ErrNotExist) {
			return notifxErrors.NewWithCause(ErrTemplateParse, err).WithDetail("template", name)
		}
		if err := r.Register(name, string(htmlBody), string(textBody)); err != nil {
			return err
		}
	}
	return nil
}

// Render executes the named template. text is empty when the template has
// no plain text part.
func (r *TemplateRegistry) Render(name string, data any) (html, text string, err error) {
	r.mu.RLock()
	t, ok := r.templates[name]
	r.mu.RUnlock()
	if !ok {
		return "", "", notifxErrors.New(ErrTemplateNotFound).WithDetail("template", name)
	}

	var buf bytes.Buffer
	if err := t.html.Execute(&buf, data); err != nil {
		return "", "", notifxErrors.NewWithCause(ErrTemplateRender, err).WithDetail("template", name)
	}
	html = buf.String()

	if t.text != nil {
		buf.Reset()
		if err := t.text.Execute(&buf, data); err != nil {
			return "", "", notifxErrors.NewWithCause(ErrTemplateRender, err).WithDetail("template", name)
		}
		text = buf.String()
	}
	return html, text, nil
}
