package content

import "github.com/notifyhub/mail-dispatcher/internal/domain"

// DefaultGroups returns the built-in template group of every category.
func DefaultGroups() map[domain.Category]*Group {
	return map[domain.Category]*Group{
		domain.CategoryAccount:      accountGroup(),
		domain.CategorySubscription: subscriptionGroup(),
		domain.CategorySecurity:     securityGroup(),
		domain.CategoryProject:      projectGroup(),
		domain.CategoryPayment:      paymentGroup(),
		domain.CategoryStorage:      storageGroup(),
	}
}
