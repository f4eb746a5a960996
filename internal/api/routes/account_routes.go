package routes

// setupAccountRoutes wires wallet and subscription management: a caller
// authenticated with its own per-session API key manages its own account,
// an admin manages any user's account via ?user_id= on the dashboard group.
func (r *Router) setupAccountRoutes() {
	wallet := r.app.Group("/wallet", r.auth.RequireAPIKey())
	wallet.Get("/", r.wallet.Balance)
	wallet.Post("/topup", r.wallet.Topup)
	wallet.Get("/transactions", r.wallet.Transactions)

	subs := r.app.Group("/subscriptions", r.auth.RequireAPIKey())
	subs.Get("/tiers", r.subscription.Tiers)
	subs.Get("/", r.subscription.Get)
	subs.Post("/", r.subscription.Subscribe)

	adminWallet := r.app.Group("/admin/wallet", r.auth.RequireAdmin())
	adminWallet.Get("/", r.wallet.Balance)
	adminWallet.Post("/topup", r.wallet.Topup)
	adminWallet.Get("/transactions", r.wallet.Transactions)

	adminSubs := r.app.Group("/admin/subscriptions", r.auth.RequireAdmin())
	adminSubs.Get("/", r.subscription.Get)
	adminSubs.Post("/", r.subscription.Subscribe)
}
