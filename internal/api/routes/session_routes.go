package routes

// setupSessionRoutes wires the dashboard's session lifecycle: create/list
// are admin-only, everything scoped to one session requires the admin key
// too (session management stays an operator action, never a caller one).
func (r *Router) setupSessionRoutes() {
	sessions := r.app.Group("/sessions", r.auth.RequireAdmin())

	sessions.Post("/", r.session.Create)
	sessions.Get("/", r.session.List)
	sessions.Get("/:sessionId", r.session.Get)
	sessions.Get("/:sessionId/qr", r.session.QRCode)
	sessions.Delete("/:sessionId", r.session.Delete)

	sessions.Get("/:sessionId/apikey", r.apiKey.Get)
	sessions.Post("/:sessionId/apikey", r.apiKey.Generate)
	sessions.Delete("/:sessionId/apikey", r.apiKey.Revoke)
}
