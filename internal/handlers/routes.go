package handlers

import "net/http"

// Dependencies aggregates collaborators required by HTTP handlers.
type Dependencies struct {
	Sessions      SessionService
	Users         UserStore
	Graph         GraphService
	Subscriptions SubscriptionStore
	History       WatchHistoryStore
	Images        ImageStore
	Auth          Authenticator
	LoginLimiter  RateLimiter
}

// RegisterRoutes wires HTTP handlers into the provided ServeMux.
func RegisterRoutes(mux *http.ServeMux, deps Dependencies) {
	health := HealthHandler{}
	users := UserHandler{
		Sessions:     deps.Sessions,
		Users:        deps.Users,
		Images:       deps.Images,
		LoginLimiter: deps.LoginLimiter,
	}
	channels := ChannelHandler{
		Graph:         deps.Graph,
		Subscriptions: deps.Subscriptions,
		History:       deps.History,
		Auth:          deps.Auth,
	}

	authed := RequireAuth(deps.Auth)

	mux.HandleFunc("/healthz", health.Handle)

	mux.HandleFunc("/api/v1/users/register", users.Register)
	mux.HandleFunc("/api/v1/users/login", users.Login)
	mux.HandleFunc("/api/v1/users/refresh", users.Refresh)
	mux.Handle("/api/v1/users/logout", authed(http.HandlerFunc(users.Logout)))
	mux.Handle("/api/v1/users/changePassword", authed(http.HandlerFunc(users.ChangePassword)))
	mux.Handle("/api/v1/users/me", authed(http.HandlerFunc(users.CurrentUser)))
	mux.Handle("/api/v1/users/details", authed(http.HandlerFunc(users.UpdateDetails)))
	mux.Handle("/api/v1/users/avatar", authed(http.HandlerFunc(users.UpdateAvatar)))
	mux.Handle("/api/v1/users/coverImage", authed(http.HandlerFunc(users.UpdateCoverImage)))
	mux.Handle("/api/v1/users/history", authed(http.HandlerFunc(channels.HistoryRoot)))

	mux.HandleFunc("/api/v1/channels/{username}", channels.Profile)
	mux.Handle("/api/v1/subscriptions", authed(http.HandlerFunc(channels.HandleSubscriptions)))
}
