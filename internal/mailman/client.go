package mailman

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/charmbracelet/log"

	"github.com/mailman-tools/mmunblock/internal/artifact"
	"github.com/mailman-tools/mmunblock/internal/config"
	"github.com/mailman-tools/mmunblock/internal/htmlform"
)

// Client drives one list's admin pages through a single authenticated
// session. It is not safe for concurrent use; the whole run is
// sequential because the server must be read-after-write consistent
// between steps.
type Client struct {
	session  *Session
	base     string
	list     string
	password string
	logger   *log.Logger
	dumper   *artifact.Dumper
}

// NewClient builds a client from validated configuration. dumper may be
// nil when artifact dumping is disabled.
func NewClient(cfg *config.Config, logger *log.Logger, dumper *artifact.Dumper) (*Client, error) {
	session, err := NewSession()
	if err != nil {
		return nil, err
	}
	return &Client{
		session:  session,
		base:     strings.TrimRight(cfg.BaseURL, "/"),
		list:     cfg.List,
		password: cfg.AdminPW,
		logger:   logger,
		dumper:   dumper,
	}, nil
}

// MembersURL is the per-letter membership page; an empty letter yields
// the unfiltered page used as the login probe.
func (c *Client) MembersURL(letter string) string {
	u := fmt.Sprintf("%s/mailman/admin/%s/members", c.base, c.list)
	if letter != "" {
		u += "?letter=" + url.QueryEscape(letter)
	}
	return u
}

func (c *Client) bounceURL() string {
	return fmt.Sprintf("%s/mailman/admin/%s/bounce", c.base, c.list)
}

// Login fetches the members page and, when it answers with the admin
// password form, resubmits that form with the password filled in. The
// session cookie set by the response authenticates everything after.
func (c *Client) Login(ctx context.Context) error {
	probeURL := c.MembersURL("")
	page, err := c.session.Get(ctx, probeURL, fetchTimeout)
	if err != nil {
		return err
	}
	c.dumper.Page("login-probe", page)

	form, err := htmlform.Parse(page)
	if err != nil {
		return err
	}
	if form == nil || !hasField(form, "adminpw") {
		// Already authenticated, or the site does not gate this list.
		c.logger.Debug("no login form present", "url", probeURL)
		return nil
	}

	payload := withFieldValue(htmlform.Build(form), "adminpw", c.password)
	if name, value, err := SelectMembersSubmit(form); err == nil {
		payload = payload.Append(name, value)
	}

	action := c.resolveAction(probeURL, form)
	c.logger.Debug("logging in", "url", action)
	c.dumper.Payload("login", payload)

	page, err = c.session.SubmitForm(ctx, form.Method, action, payload, submitTimeout)
	if err != nil {
		return fmt.Errorf("login failed: %w", err)
	}
	c.dumper.Page("login-result", page)
	return nil
}

// resolveAction turns a form's action attribute into an absolute URL,
// falling back to the page URL itself when the action is empty.
func (c *Client) resolveAction(pageURL string, form *htmlform.Form) string {
	if form.Action == "" {
		return pageURL
	}
	base, err := url.Parse(pageURL)
	if err != nil {
		return form.Action
	}
	ref, err := url.Parse(form.Action)
	if err != nil {
		return pageURL
	}
	return base.ResolveReference(ref).String()
}

func hasField(form *htmlform.Form, name string) bool {
	for _, f := range form.Fields {
		if f.Name == name {
			return true
		}
	}
	return false
}

// withFieldValue rewrites the value of every pair with the given name,
// keeping its original position, or appends one if the form never
// produced it.
func withFieldValue(p htmlform.Payload, name, value string) htmlform.Payload {
	out := make(htmlform.Payload, 0, len(p)+1)
	replaced := false
	for _, pair := range p {
		if pair.Name == name {
			pair.Value = value
			replaced = true
		}
		out = append(out, pair)
	}
	if !replaced {
		out = append(out, htmlform.Pair{Name: name, Value: value})
	}
	return out
}
