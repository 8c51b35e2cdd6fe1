package shared

// Billing permissions.
const (
	PermBillingInvoicesView   = "billing.invoices.view"
	PermBillingInvoicesCreate = "billing.invoices.create"
	PermBillingInvoicesVoid   = "billing.invoices.void"

	PermBillingPaymentsView   = "billing.payments.view"
	PermBillingPaymentsCreate = "billing.payments.create"
	PermBillingPaymentsRefund = "billing.payments.refund"

	PermBillingWalletView   = "billing.wallet.view"
	PermBillingWalletTopUp  = "billing.wallet.topup"
	PermBillingAddonsView   = "billing.addons.view"
	PermBillingAddonsUpdate = "billing.addons.update"
)

// BillingScopes lists all permissions related to billing.
func BillingScopes() []string {
	return []string{
		PermBillingInvoicesView,
		PermBillingInvoicesCreate,
		PermBillingInvoicesVoid,
		PermBillingPaymentsView,
		PermBillingPaymentsCreate,
		PermBillingPaymentsRefund,
		PermBillingWalletView,
		PermBillingWalletTopUp,
		PermBillingAddonsView,
		PermBillingAddonsUpdate,
	}
}
