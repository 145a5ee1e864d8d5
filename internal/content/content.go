// Package content renders notification envelopes from named templates.
// Each category owns one Group; the dispatcher decides which message of which
// group an email type is built with.
package content

import (
	"bytes"
	"errors"
	"fmt"
	htmltemplate "html/template"
	"sort"
	"strings"
	texttemplate "text/template"

	"github.com/Masterminds/sprig/v3"

	"github.com/notifyhub/mail-dispatcher/internal/domain"
)

var (
	ErrUnknownMessage = errors.New("unknown message")
	ErrMissingField   = errors.New("missing required payload field")
)

// recipientKeys are tried in order to find the envelope recipient.
var recipientKeys = []string{"to", "userEmail", "receiverEmail", "ownerEmail"}

// Message describes one renderable email. Subject and Text are text
// templates, HTML is an html template; all see the payload as their data.
type Message struct {
	Name     string
	Subject  string
	HTML     string
	Text     string
	Required []string
	Defaults map[string]any
}

type compiled struct {
	msg     Message
	subject *texttemplate.Template
	html    *htmltemplate.Template
	text    *texttemplate.Template
}

// Group is the builder set of one category.
type Group struct {
	category domain.Category
	messages map[string]*compiled
}

// NewGroup parses every message template up front.
func NewGroup(category domain.Category, messages ...Message) (*Group, error) {
	g := &Group{category: category, messages: make(map[string]*compiled, len(messages))}
	for _, m := range messages {
		c, err := compile(m)
		if err != nil {
			return nil, fmt.Errorf("%s/%s: %w", category, m.Name, err)
		}
		g.messages[m.Name] = c
	}
	return g, nil
}

// MustGroup is NewGroup for the built-in template sets.
func MustGroup(category domain.Category, messages ...Message) *Group {
	g, err := NewGroup(category, messages...)
	if err != nil {
		panic(err)
	}
	return g
}

func compile(m Message) (*compiled, error) {
	c := &compiled{msg: m}
	var err error
	if c.subject, err = texttemplate.New("subject").Funcs(sprig.TxtFuncMap()).Parse(m.Subject); err != nil {
		return nil, err
	}
	if c.html, err = htmltemplate.New("html").Funcs(sprig.FuncMap()).Parse(layout(m.HTML)); err != nil {
		return nil, err
	}
	if _, err = c.html.New("details").Parse(detailsPartial); err != nil {
		return nil, err
	}
	if m.Text != "" {
		if c.text, err = texttemplate.New("text").Funcs(sprig.TxtFuncMap()).Parse(m.Text); err != nil {
			return nil, err
		}
	}
	return c, nil
}

func (g *Group) Category() domain.Category { return g.category }

// Names lists the messages this group can build.
func (g *Group) Names() []string {
	names := make([]string, 0, len(g.messages))
	for n := range g.messages {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

func (g *Group) Has(name string) bool {
	_, ok := g.messages[name]
	return ok
}

// Build renders message name with payload. The returned envelope carries no
// category or type; the caller stamps those.
func (g *Group) Build(name string, payload domain.Payload) (*domain.Envelope, error) {
	c, ok := g.messages[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s/%s", ErrUnknownMessage, g.category, name)
	}

	data := prepare(payload, c.msg.Defaults)

	to := Recipient(data)
	if to == "" {
		return nil, fmt.Errorf("%w: to", ErrMissingField)
	}
	for _, field := range c.msg.Required {
		if data.String(field) == "" {
			return nil, fmt.Errorf("%w: %s", ErrMissingField, field)
		}
	}

	var subject, html, text bytes.Buffer
	if err := c.subject.Execute(&subject, data); err != nil {
		return nil, fmt.Errorf("render subject: %w", err)
	}
	if err := c.html.Execute(&html, data); err != nil {
		return nil, fmt.Errorf("render html: %w", err)
	}
	if c.text != nil {
		if err := c.text.Execute(&text, data); err != nil {
			return nil, fmt.Errorf("render text: %w", err)
		}
	}

	return &domain.Envelope{
		To:      to,
		Subject: strings.TrimSpace(subject.String()),
		HTML:    html.String(),
		Text:    strings.TrimSpace(text.String()),
	}, nil
}

// Recipient returns the first non-empty recipient field of payload.
func Recipient(payload domain.Payload) string {
	for _, k := range recipientKeys {
		if v := payload.String(k); v != "" {
			return v
		}
	}
	return ""
}

// prepare copies payload, fills defaults for absent or empty fields and
// accepts either spelling of the user's display name.
func prepare(payload domain.Payload, defaults map[string]any) domain.Payload {
	data := make(domain.Payload, len(payload)+len(defaults)+1)
	for k, v := range payload {
		data[k] = v
	}
	for k, v := range defaults {
		if data.String(k) == "" {
			data[k] = v
		}
	}
	if data.String("userName") == "" && data.String("username") != "" {
		data["userName"] = data["username"]
	}
	if data.String("userName") == "" {
		data["userName"] = "there"
	}
	return data
}

const layoutHead = `<div style="background-color:#f9f9f9;padding:40px 0;font-family:Arial,sans-serif;color:#333;">
<div style="max-width:600px;margin:0 auto;background:#ffffff;border-radius:10px;padding:40px 50px;">
`

const layoutFoot = `
<p style="font-size:12px;color:#999;text-align:center;margin-top:40px;">You are receiving this email because of activity on your account.</p>
</div>
</div>`

// detailsPartial renders the device/location table shared by security notices.
const detailsPartial = `<table style="width:100%;font-size:13px;margin:20px 0;">
<tr><td>Device</td><td style="text-align:right;">{{.device | default "Unknown Device"}}</td></tr>
<tr><td>Location</td><td style="text-align:right;">{{.location | default "Unknown Location"}}</td></tr>
<tr><td>IP address</td><td style="text-align:right;">{{.ipAddress | default "Unknown IP"}}</td></tr>
<tr><td>Time</td><td style="text-align:right;">{{.datetime | default "just now"}}</td></tr>
</table>`

func layout(body string) string {
	return layoutHead + body + layoutFoot
}
