package content

import "github.com/notifyhub/mail-dispatcher/internal/domain"

const (
	MsgAccountCreated            = "account_created"
	MsgPasswordReset             = "password_reset"
	MsgPasswordResetSuccess      = "password_reset_success"
	MsgOTP                       = "otp"
	MsgOTPVerified               = "otp_verified"
	MsgGoogleAccountDisconnected = "google_account_disconnected"
)

func accountGroup() *Group {
	return MustGroup(domain.CategoryAccount,
		Message{
			Name:    MsgAccountCreated,
			Subject: `Welcome – Your Account is Ready!`,
			HTML: `<h2 style="text-align:center;">Welcome aboard, {{.userName}}!</h2>
<p style="text-align:center;">Your account has been created. You can sign in and start uploading right away.</p>`,
			Text: `Hi {{.userName}},

Your account has been created. You can sign in and start uploading right away.`,
		},
		Message{
			Name:     MsgPasswordReset,
			Subject:  `Reset Your Password`,
			Required: []string{"resetLink"},
			HTML: `<h2 style="text-align:center;">Password reset requested</h2>
<p style="text-align:center;">Hi <strong>{{.userName}}</strong>, we received a request to reset your password.</p>
<div style="text-align:center;margin:30px 0;"><a href="{{.resetLink}}" style="background-color:#8B1E1E;color:#fff;text-decoration:none;padding:12px 30px;border-radius:25px;">Reset password</a></div>
<p style="font-size:13px;color:#666;text-align:center;">If you did not request this, you can safely ignore this email.</p>`,
			Text: `Hi {{.userName}},

We received a request to reset your password. Open the link below to choose a new one:
{{.resetLink}}

If you did not request this, you can safely ignore this email.`,
		},
		Message{
			Name:    MsgPasswordResetSuccess,
			Subject: `Password Reset Successful`,
			HTML: `<h2 style="text-align:center;">Your password was changed</h2>
<p style="text-align:center;">Hi <strong>{{.userName}}</strong>, your password has been updated successfully.</p>
<p style="font-size:13px;color:#666;text-align:center;">If this wasn't you, reset your password immediately and contact support.</p>`,
		},
		Message{
			Name:     MsgOTP,
			Subject:  `Your OTP Code for Secure Access`,
			Required: []string{"otpCode"},
			HTML: `<h2 style="text-align:center;">Your verification code</h2>
<p style="text-align:center;">Hi <strong>{{.userName}}</strong>, use the code below to continue.</p>
<p style="text-align:center;font-size:28px;letter-spacing:6px;font-weight:bold;">{{.otpCode}}</p>
<p style="font-size:13px;color:#666;text-align:center;">The code expires shortly. Never share it with anyone.</p>`,
			Text: `Hi {{.userName}},

Your verification code is {{.otpCode}}.
The code expires shortly. Never share it with anyone.`,
		},
		Message{
			Name:    MsgOTPVerified,
			Subject: `Email Verification Completed Successfully`,
			HTML: `<h2 style="text-align:center;">Email verified</h2>
<p style="text-align:center;">Hi <strong>{{.userName}}</strong>, your email address has been verified.</p>`,
		},
		Message{
			Name:    MsgGoogleAccountDisconnected,
			Subject: `Google Account Disconnected`,
			HTML: `<h2 style="text-align:center;">Google sign-in removed</h2>
<p style="text-align:center;">Hi <strong>{{.userName}}</strong>, your Google account was disconnected.</p>
{{template "details" .}}`,
		},
	)
}
