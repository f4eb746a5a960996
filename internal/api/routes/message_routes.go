package routes

// setupMessageRoutes wires /api/v1/send/*, the only route family that runs
// through the Admission Pipeline. Every request requires the per-session
// API key so the pipeline can resolve which session and user to admit for.
func (r *Router) setupMessageRoutes() {
	send := r.app.Group("/api/v1/send", r.auth.RequireAPIKey())

	send.Post("/text", r.message.SendText)
	send.Post("/otp", r.message.SendOTP)
	send.Post("/announcement", r.message.SendAnnouncement)
	send.Post("/test", r.message.SendTestMessage)
}
