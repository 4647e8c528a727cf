package email

import (
	"bytes"
	"fmt"
	"html/template"
	"net/url"

	"github.com/fixora/authapi/application/port/outbound"
	"github.com/fixora/authapi/domain/entity"
)

const ResetSubject = "Reset Password"

var resetTemplate = template.Must(template.New("reset").Parse(`<html>
<head></head>
<body style="margin: 0; padding: 0; font-family: Arial, Helvetica, sans-serif;">
  <div style="background: linear-gradient(to top, #c9c9ff 50%, #6e6ef6 90%) no-repeat; width: 400px; padding: 30px;">
    <h1>Reset your Password</h1>
    <hr>
    <p>Hello {{.Name}},</p>
    <p>You're receiving this email because you requested a password reset for your account</p>
    <p>Please tap the button below to create a new password. The link expires in {{.ExpiresIn}}.</p>
    <a href="{{.Link}}" target="_blank" style="background: #0d6efc; color: white; border-radius: 4px; display: block; margin: 0 auto; width: 50%; text-align: center; text-decoration: none;">Reset Password</a>
    <p>Regards</p>
  </div>
</body>
</html>`))

// Composer renders password reset e-mails pointing at the client's reset page.
type Composer struct {
	baseURL   string
	expiresIn string
}

var _ outbound.ResetEmailComposer = (*Composer)(nil)

func NewComposer(baseURL, expiresIn string) *Composer {
	return &Composer{baseURL: baseURL, expiresIn: expiresIn}
}

// ResetLink returns baseURL?email=..&code=.. with both values query-escaped.
func (c *Composer) ResetLink(email, token string) (string, error) {
	u, err := url.Parse(c.baseURL)
	if err != nil {
		return "", fmt.Errorf("parse reset base url: %w", err)
	}
	q := u.Query()
	q.Set("email", email)
	q.Set("code", token)
	u.RawQuery = q.Encode()
	return u.String(), nil
}

func (c *Composer) ComposePasswordReset(user *entity.User, token string) (outbound.EmailMessage, error) {
	link, err := c.ResetLink(user.Email, token)
	if err != nil {
		return outbound.EmailMessage{}, err
	}

	name := user.DisplayName()
	if name == "" {
		name = user.Username
	}

	var body bytes.Buffer
	err = resetTemplate.Execute(&body, struct {
		Name      string
		Link      string
		ExpiresIn string
	}{name, link, c.expiresIn})
	if err != nil {
		return outbound.EmailMessage{}, fmt.Errorf("render reset email: %w", err)
	}

	return outbound.EmailMessage{
		To:      user.Email,
		Subject: ResetSubject,
		HTML:    body.String(),
	}, nil
}
