package content

import "github.com/notifyhub/mail-dispatcher/internal/domain"

const (
	MsgSubscriptionCreated  = "subscription_created"
	MsgSubscriptionRenewed  = "subscription_renewed"
	MsgAccountActivation    = "account_activation"
	MsgSubscriptionExpiring = "subscription_expiring"
	MsgSubscriptionExpired  = "subscription_expired"
)

const planTable = `<table style="width:100%;font-size:13px;margin:20px 0;">
<tr><td>Plan</td><td style="text-align:right;font-weight:500;">{{.planName}}</td></tr>
<tr><td>Start date</td><td style="text-align:right;">{{.startDate | default "today"}}</td></tr>
<tr><td>End date</td><td style="text-align:right;">{{.endDate | default "-"}}</td></tr>
<tr><td>Status</td><td style="text-align:right;">{{.status | default "active"}}</td></tr>
</table>`

func subscriptionGroup() *Group {
	return MustGroup(domain.CategorySubscription,
		Message{
			Name:     MsgSubscriptionCreated,
			Subject:  `Your Subscription is Now Active!`,
			Required: []string{"planName"},
			HTML: `<h2 style="text-align:center;">Subscription confirmed</h2>
<p style="text-align:center;">Hi <strong>{{.userName}}</strong>, thanks for subscribing.</p>
` + planTable,
			Text: `Hi {{.userName}},

Your {{.planName}} subscription is active from {{.startDate | default "today"}} until {{.endDate | default "further notice"}}.`,
		},
		Message{
			Name:     MsgSubscriptionRenewed,
			Subject:  `Your Subscription Has Been Renewed`,
			Required: []string{"planName"},
			HTML: `<h2 style="text-align:center;">Subscription renewed</h2>
<p style="text-align:center;">Hi <strong>{{.userName}}</strong>, your plan has been renewed.</p>
` + planTable,
		},
		Message{
			Name:    MsgAccountActivation,
			Subject: `Your Account is Now Active!`,
			HTML: `<h2 style="text-align:center;">You're all set</h2>
<p style="text-align:center;">Hi <strong>{{.userName}}</strong>, your account is now active on the <strong>{{.planName | default "selected"}}</strong> plan.</p>`,
		},
		Message{
			Name:    MsgSubscriptionExpiring,
			Subject: `Reminder: Your Subscription Will Expire Soon`,
			HTML: `<h2 style="text-align:center;">Your subscription is ending</h2>
<p style="text-align:center;">Hi <strong>{{.userName}}</strong>, your subscription will expire in {{.daysRemaining}} day(s).</p>
<p style="font-size:13px;color:#666;text-align:center;">Renew now to keep your galleries online.</p>`,
			Text: `Hi {{.userName}},

Your subscription will expire in {{.daysRemaining}} day(s). Renew now to keep your galleries online.`,
		},
		Message{
			Name:    MsgSubscriptionExpired,
			Subject: `Your Subscription Has Expired`,
			HTML: `<h2 style="text-align:center;">Subscription expired</h2>
<p style="text-align:center;">Hi <strong>{{.userName}}</strong>, your subscription has expired.</p>
<p style="text-align:center;">Your data is kept for {{.graceDaysRemaining}} more day{{if gt (int .graceDaysRemaining) 1}}s{{end}}. Renew before then to avoid losing it.</p>`,
		},
	)
}
