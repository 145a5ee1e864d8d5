package content

import "github.com/notifyhub/mail-dispatcher/internal/domain"

const (
	MsgPaymentSuccess   = "payment_success"
	MsgPaymentFailed    = "payment_failed"
	MsgPaymentRejection = "payment_rejection"
	MsgRefundProcessed  = "refund_processed"
)

func paymentGroup() *Group {
	return MustGroup(domain.CategoryPayment,
		Message{
			Name:     MsgPaymentSuccess,
			Subject:  `Payment Successful – Thank You!`,
			Required: []string{"amount"},
			HTML: `<h2 style="text-align:center;">Payment received</h2>
<p style="text-align:center;">Hi <strong>{{.userName}}</strong>, your payment of <strong>${{.amount}}</strong> has been processed successfully.</p>
<table style="width:100%;font-size:13px;margin:20px 0;">
<tr><td>Transaction ID</td><td style="text-align:right;">{{.transactionId | default "-"}}</td></tr>
<tr><td>Plan</td><td style="text-align:right;">{{.planName | default "-"}}</td></tr>
</table>`,
			Text: `Hi {{.userName}},

Your payment of ${{.amount}} has been processed successfully.

Transaction ID: {{.transactionId | default "-"}}
Plan: {{.planName | default "-"}}

Thank you for your business!`,
		},
		Message{
			Name:     MsgPaymentFailed,
			Subject:  `Payment Failed – Action Required`,
			Required: []string{"amount"},
			HTML: `<h2 style="text-align:center;">Payment failed</h2>
<p style="text-align:center;">Hi <strong>{{.userName}}</strong>, we couldn't process your payment of <strong>${{.amount}}</strong>{{with .planName}} for the {{.}} plan{{end}}.</p>
<p style="text-align:center;">Reason: {{.reason | default "declined by the payment provider"}}</p>`,
			Text: `Hi {{.userName}},

We couldn't process your payment of ${{.amount}}.
Reason: {{.reason | default "declined by the payment provider"}}

Please update your payment method to keep your plan active.`,
		},
		Message{
			Name:    MsgPaymentRejection,
			Subject: `Your Payment Could Not Be Completed`,
			HTML: `<h2 style="text-align:center;">Payment not completed</h2>
<p style="text-align:center;">Hi <strong>{{.userName}}</strong>, your payment for the <strong>{{.planName | default "selected"}}</strong> plan could not be completed.</p>`,
		},
		Message{
			Name:     MsgRefundProcessed,
			Subject:  `Refund Processed Successfully`,
			Required: []string{"amount"},
			HTML: `<h2 style="text-align:center;">Refund issued</h2>
<p style="text-align:center;">Hi <strong>{{.userName}}</strong>, a refund of <strong>${{.amount}}</strong> has been issued{{with .refundDate}} on {{.}}{{end}}.</p>
<table style="width:100%;font-size:13px;margin:20px 0;">
<tr><td>Transaction ID</td><td style="text-align:right;">{{.transactionId | default "-"}}</td></tr>
<tr><td>Reason</td><td style="text-align:right;">{{.reason | default "-"}}</td></tr>
</table>`,
		},
	)
}
