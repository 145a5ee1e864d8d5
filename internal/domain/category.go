package domain

import "sort"

// Category is a top-level grouping of email types. Each category owns one
// queue and one worker pool.
type Category string

const (
	CategoryAccount      Category = "account"
	CategorySubscription Category = "subscription"
	CategorySecurity     Category = "security"
	CategoryProject      Category = "project"
	CategoryPayment      Category = "payment"
	CategoryStorage      Category = "storage"
)

// Categories lists every category in a stable order.
var Categories = []Category{
	CategoryAccount,
	CategorySubscription,
	CategorySecurity,
	CategoryProject,
	CategoryPayment,
	CategoryStorage,
}

func (c Category) IsValid() bool {
	_, ok := catalog[c]
	return ok
}

// EmailType identifies a notification within its category.
type EmailType string

const (
	// account
	TypeAccountCreated       EmailType = "ACCOUNT_CREATED"
	TypeAccountActivation    EmailType = "ACCOUNT_ACTIVATION"
	TypePasswordReset        EmailType = "PASSWORD_RESET"
	TypePasswordResetSuccess EmailType = "PASSWORD_RESET_SUCCESS"
	TypeEmailVerification    EmailType = "EMAIL_VERIFICATION"
	TypePasswordChanged      EmailType = "PASSWORD_CHANGED"
	TypeEmailChanged         EmailType = "EMAIL_CHANGED"
	TypeAccountDeleted       EmailType = "ACCOUNT_DELETED"
	TypeTwoFactorEnabled     EmailType = "TWO_FACTOR_ENABLED"
	TypeTwoFactorCode        EmailType = "TWO_FACTOR_CODE"
	TypeContactForm          EmailType = "CONTACT_FORM"

	// subscription
	TypeSubscriptionStarted   EmailType = "SUBSCRIPTION_STARTED"
	TypeSubscriptionRenewed   EmailType = "SUBSCRIPTION_RENEWED"
	TypeSubscriptionCancelled EmailType = "SUBSCRIPTION_CANCELLED"
	TypeSubscriptionExpiring  EmailType = "SUBSCRIPTION_EXPIRING"
	TypeSubscriptionExpired   EmailType = "SUBSCRIPTION_EXPIRED"
	TypePlanUpgraded          EmailType = "PLAN_UPGRADED"
	TypePlanDowngraded        EmailType = "PLAN_DOWNGRADED"

	// security
	TypeLoginAlert                EmailType = "LOGIN_ALERT"
	TypeNewIPLogin                EmailType = "NEW_IP_LOGIN"
	TypeSuspiciousActivity        EmailType = "SUSPICIOUS_ACTIVITY"
	TypeGoogleAccountDisconnected EmailType = "GOOGLE_ACCOUNT_DISCONNECTED"
	TypeTwoFADisabled             EmailType = "TWO_FA_DISABLED"
	TypePasskeyEnabled            EmailType = "PASSKEY_ENABLED"
	TypePasskeyDisabled           EmailType = "PASSKEY_DISABLED"
	TypeSecurityQuestionEnabled   EmailType = "SECURITY_QUESTION_ENABLED"
	TypeSecurityQuestionDisabled  EmailType = "SECURITY_QUESTION_DISABLED"

	// project
	TypeProjectShared     EmailType = "PROJECT_SHARED"
	TypeProjectInvitation EmailType = "PROJECT_INVITATION"
	TypeProjectTransfer   EmailType = "PROJECT_TRANSFER"
	TypeAccessRequest     EmailType = "ACCESS_REQUEST"
	TypeGalleryShared     EmailType = "GALLERY_SHARED"
	TypeFolderShared      EmailType = "FOLDER_SHARED"

	// payment
	TypePaymentSuccess   EmailType = "PAYMENT_SUCCESS"
	TypePaymentFailed    EmailType = "PAYMENT_FAILED"
	TypePaymentRejection EmailType = "PAYMENT_REJECTION"
	TypeRefundProcessed  EmailType = "REFUND_PROCESSED"

	// storage
	TypeStorageWarning  EmailType = "STORAGE_WARNING"
	TypeStorageFull     EmailType = "STORAGE_FULL"
	TypeAddonExpiry     EmailType = "ADDON_EXPIRY"
	TypeAddonFinalGrace EmailType = "ADDON_FINAL_GRACE"
)

// catalog is the set of types the inbound API accepts per category.
// Whether a type can actually be built is decided by the dispatcher.
var catalog = map[Category][]EmailType{
	CategoryAccount: {
		TypeAccountCreated, TypeAccountActivation, TypePasswordReset, TypePasswordResetSuccess,
		TypeEmailVerification, TypePasswordChanged, TypeEmailChanged, TypeAccountDeleted,
		TypeTwoFactorEnabled, TypeTwoFactorCode, TypeContactForm,
	},
	CategorySubscription: {
		TypeSubscriptionStarted, TypeSubscriptionRenewed, TypeSubscriptionCancelled,
		TypeSubscriptionExpiring, TypeSubscriptionExpired, TypePlanUpgraded, TypePlanDowngraded,
	},
	CategorySecurity: {
		TypeLoginAlert, TypeNewIPLogin, TypeSuspiciousActivity, TypeGoogleAccountDisconnected,
		TypeTwoFADisabled, TypePasskeyEnabled, TypePasskeyDisabled,
		TypeSecurityQuestionEnabled, TypeSecurityQuestionDisabled,
	},
	CategoryProject: {
		TypeProjectShared, TypeProjectInvitation, TypeProjectTransfer,
		TypeAccessRequest, TypeGalleryShared, TypeFolderShared,
	},
	CategoryPayment: {
		TypePaymentSuccess, TypePaymentFailed, TypePaymentRejection, TypeRefundProcessed,
	},
	CategoryStorage: {
		TypeStorageWarning, TypeStorageFull, TypeAddonExpiry, TypeAddonFinalGrace,
	},
}

// Allows reports whether t belongs to category c.
func (c Category) Allows(t EmailType) bool {
	for _, known := range catalog[c] {
		if known == t {
			return true
		}
	}
	return false
}

// Types returns the catalogue for c sorted by name.
func (c Category) Types() []EmailType {
	types := append([]EmailType(nil), catalog[c]...)
	sort.Slice(types, func(i, j int) bool { return types[i] < types[j] })
	return types
}
