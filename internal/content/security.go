package content

import "github.com/notifyhub/mail-dispatcher/internal/domain"

const (
	MsgLoginNotification        = "login_notification"
	MsgNewIPLogin               = "new_ip_login"
	MsgTwoFactorEnabled         = "two_factor_enabled"
	MsgTwoFactorDisabled        = "two_factor_disabled"
	MsgPasskeyEnabled           = "passkey_enabled"
	MsgPasskeyDisabled          = "passkey_disabled"
	MsgSecurityQuestionEnabled  = "security_question_enabled"
	MsgSecurityQuestionDisabled = "security_question_disabled"
)

// securityChange builds the common "a security setting changed" message.
func securityChange(name, subject, headline string) Message {
	return Message{
		Name:    name,
		Subject: subject,
		HTML: `<h2 style="text-align:center;">` + headline + `</h2>
<p style="text-align:center;">Hi {{.userName}}, this change was made to your account{{with .passkeyName}} ({{.}}){{end}}.</p>
{{template "details" .}}
<p style="font-size:13px;color:#666;text-align:center;">If this wasn't you, secure your account immediately.</p>`,
		Text: headline + `{{with .passkeyName}} ({{.}}){{end}}

Device: {{.device | default "Unknown Device"}}
Location: {{.location | default "Unknown Location"}}
IP address: {{.ipAddress | default "Unknown IP"}}
Time: {{.datetime | default "just now"}}

If this wasn't you, secure your account immediately.`,
	}
}

func securityGroup() *Group {
	return MustGroup(domain.CategorySecurity,
		Message{
			Name:     MsgLoginNotification,
			Subject:  `New Login to Your Account`,
			Required: []string{"ipAddress"},
			HTML: `<h2 style="text-align:center;">New sign-in</h2>
<p style="text-align:center;">Hi <strong>{{.userName}}</strong>, your account was accessed at {{.loginTime | default "an unknown time"}} from {{.ipAddress}}.</p>`,
			Text: `Hi {{.userName}},

Your account was accessed at {{.loginTime | default "an unknown time"}} from {{.ipAddress}}.`,
		},
		Message{
			Name:     MsgNewIPLogin,
			Subject:  `New Device Login Detected`,
			Required: []string{"ipAddress"},
			HTML: `<h2 style="text-align:center;">New device login</h2>
<p style="text-align:center;">We noticed a sign-in from a device or location we haven't seen before.</p>
{{template "details" .}}`,
		},
		securityChange(MsgTwoFactorEnabled, `Two-Factor Authentication Enabled`, `Two-factor authentication was enabled`),
		securityChange(MsgTwoFactorDisabled, `Two-Factor Authentication Disabled`, `Two-factor authentication was disabled`),
		securityChange(MsgPasskeyEnabled, `Passkey Added to Your Account`, `A passkey was added`),
		securityChange(MsgPasskeyDisabled, `Passkey Removed from Your Account`, `A passkey was removed`),
		securityChange(MsgSecurityQuestionEnabled, `Security Questions Configured`, `Security questions were configured`),
		securityChange(MsgSecurityQuestionDisabled, `Security Questions Removed`, `Security questions were removed`),
	)
}
