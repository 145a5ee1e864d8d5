package dispatch

import (
	"github.com/notifyhub/mail-dispatcher/internal/content"
	"github.com/notifyhub/mail-dispatcher/internal/domain"
)

// transform adjusts a private copy of the payload before it is rendered.
type transform func(p domain.Payload)

func withDefault(key string, v any) transform {
	return func(p domain.Payload) {
		if p.String(key) == "" {
			p[key] = v
		}
	}
}

// coalesce sets dst to the first non-empty of keys, or fallback.
func coalesce(dst string, fallback any, keys ...string) transform {
	return func(p domain.Payload) {
		for _, k := range keys {
			if p.String(k) != "" {
				p[dst] = p[k]
				return
			}
		}
		p[dst] = fallback
	}
}

// alias copies src into dst when dst is empty.
func alias(dst, src string) transform {
	return func(p domain.Payload) {
		if p.String(dst) == "" && p.String(src) != "" {
			p[dst] = p[src]
		}
	}
}

var unknownOrigin = []transform{
	withDefault("device", "Unknown Device"),
	withDefault("location", "Unknown Location"),
	withDefault("ipAddress", "Unknown IP"),
}

// Default installs the routing table over the given template groups. Several
// types share a message (e.g. SUBSCRIPTION_CANCELLED renders the expiry
// notice with a 3 day grace default).
func Default(groups map[domain.Category]*content.Group) *Dispatcher {
	d := New()
	for _, c := range domain.Categories {
		d.AddCategory(c)
	}

	route := func(c domain.Category, t domain.EmailType, from domain.Category, msg string, ts ...transform) {
		g := groups[from]
		if g == nil || !g.Has(msg) {
			return
		}
		d.Register(c, t, string(from)+"/"+msg, func(p domain.Payload) (*domain.Envelope, error) {
			data := make(domain.Payload, len(p))
			for k, v := range p {
				data[k] = v
			}
			for _, fn := range ts {
				fn(data)
			}
			return g.Build(msg, data)
		})
	}

	acc, sub, sec := domain.CategoryAccount, domain.CategorySubscription, domain.CategorySecurity
	prj, pay, sto := domain.CategoryProject, domain.CategoryPayment, domain.CategoryStorage

	route(acc, domain.TypeAccountCreated, acc, content.MsgAccountCreated)
	route(acc, domain.TypeAccountActivation, sub, content.MsgAccountActivation)
	route(acc, domain.TypePasswordReset, acc, content.MsgPasswordReset)
	route(acc, domain.TypePasswordResetSuccess, acc, content.MsgPasswordResetSuccess)
	route(acc, domain.TypeEmailVerification, acc, content.MsgOTP)
	route(acc, domain.TypePasswordChanged, acc, content.MsgPasswordResetSuccess)
	route(acc, domain.TypeEmailChanged, acc, content.MsgOTPVerified)
	route(acc, domain.TypeAccountDeleted, acc, content.MsgAccountCreated)
	route(acc, domain.TypeTwoFactorEnabled, sec, content.MsgTwoFactorEnabled, unknownOrigin...)
	route(acc, domain.TypeTwoFactorCode, acc, content.MsgOTP)

	route(sub, domain.TypeSubscriptionStarted, sub, content.MsgSubscriptionCreated)
	route(sub, domain.TypeSubscriptionRenewed, sub, content.MsgSubscriptionRenewed)
	route(sub, domain.TypeSubscriptionCancelled, sub, content.MsgSubscriptionExpired, withDefault("graceDaysRemaining", 3))
	route(sub, domain.TypeSubscriptionExpiring, sub, content.MsgSubscriptionExpiring, coalesce("daysRemaining", 7, "daysRemaining", "daysLeft"))
	route(sub, domain.TypeSubscriptionExpired, sub, content.MsgSubscriptionExpired, withDefault("graceDaysRemaining", 3))
	route(sub, domain.TypePlanUpgraded, sub, content.MsgAccountActivation)
	route(sub, domain.TypePlanDowngraded, sub, content.MsgSubscriptionCreated)

	route(sec, domain.TypeLoginAlert, sec, content.MsgNewIPLogin)
	route(sec, domain.TypeNewIPLogin, sec, content.MsgNewIPLogin)
	route(sec, domain.TypeSuspiciousActivity, sec, content.MsgLoginNotification)
	route(sec, domain.TypeGoogleAccountDisconnected, acc, content.MsgGoogleAccountDisconnected)
	route(sec, domain.TypeTwoFADisabled, sec, content.MsgTwoFactorDisabled)
	route(sec, domain.TypePasskeyEnabled, sec, content.MsgPasskeyEnabled)
	route(sec, domain.TypePasskeyDisabled, sec, content.MsgPasskeyDisabled)
	route(sec, domain.TypeSecurityQuestionEnabled, sec, content.MsgSecurityQuestionEnabled)
	route(sec, domain.TypeSecurityQuestionDisabled, sec, content.MsgSecurityQuestionDisabled)

	invitation := []transform{alias("photographerName", "inviterName"), alias("invitationLink", "projectLink")}
	access := []transform{alias("photographerName", "requesterName")}
	route(prj, domain.TypeProjectShared, prj, content.MsgProjectTransfer)
	route(prj, domain.TypeProjectTransfer, prj, content.MsgProjectTransfer)
	route(prj, domain.TypeGalleryShared, prj, content.MsgProjectInvitation, invitation...)
	route(prj, domain.TypeProjectInvitation, prj, content.MsgProjectInvitation, invitation...)
	route(prj, domain.TypeFolderShared, prj, content.MsgAccessRequest, access...)
	route(prj, domain.TypeAccessRequest, prj, content.MsgAccessRequest, access...)

	route(pay, domain.TypePaymentSuccess, pay, content.MsgPaymentSuccess)
	route(pay, domain.TypePaymentFailed, pay, content.MsgPaymentFailed)
	route(pay, domain.TypePaymentRejection, pay, content.MsgPaymentRejection)
	route(pay, domain.TypeRefundProcessed, pay, content.MsgRefundProcessed)

	route(sto, domain.TypeStorageWarning, sto, content.MsgStorageWarning)
	route(sto, domain.TypeStorageFull, sto, content.MsgStorageFull)
	route(sto, domain.TypeAddonExpiry, sto, content.MsgAddonExpiry)
	route(sto, domain.TypeAddonFinalGrace, sto, content.MsgAddonFinalGrace)

	return d
}
