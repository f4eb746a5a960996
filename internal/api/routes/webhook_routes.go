package routes

// setupWebhookRoutes wires the webhook subscription CRUD and the
// test-trigger action behind the per-session API key, so a caller can only
// manage subscriptions for the session it authenticated as.
func (r *Router) setupWebhookRoutes() {
	webhooks := r.app.Group("/webhooks", r.auth.RequireAPIKey())

	webhooks.Post("/", r.webhook.Create)
	webhooks.Get("/", r.webhook.List)
	webhooks.Get("/:webhookId", r.webhook.Get)
	webhooks.Put("/:webhookId", r.webhook.Update)
	webhooks.Delete("/:webhookId", r.webhook.Delete)
	webhooks.Post("/:webhookId/test", r.webhook.Test)
}
