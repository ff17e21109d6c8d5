package auth

import (
	"context"
	"net/http"

	"github.com/ReeveMar/Backend/internal/store"
)

type accountKey struct{}

// RequireSession is middleware that authenticates the access cookie, loads
// the account, and puts it on the request context. Requests without a valid
// session get 401.
func RequireSession(sessions *Sessions, accounts store.Accounts) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			spotifyID, err := sessions.Authenticate(r)
			if err != nil {
				http.Error(w, "authentication required", http.StatusUnauthorized)
				return
			}

			account, err := accounts.Load(r.Context(), spotifyID)
			if err != nil {
				http.Error(w, "authentication required", http.StatusUnauthorized)
				return
			}

			ctx := context.WithValue(r.Context(), accountKey{}, account)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// AccountFrom returns the account placed on the context by RequireSession,
// or nil.
func AccountFrom(ctx context.Context) *store.Account {
	account, _ := ctx.Value(accountKey{}).(*store.Account)
	return account
}
