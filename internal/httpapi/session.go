package httpapi

import (
	"context"
	"net/http"

	"luhack/hub/internal/auth"
	"luhack/hub/internal/sqlcgen"
)

type ctxKey int

const identityKey ctxKey = iota

const sessionCookie = "hub_session"

// identity resolves the caller from a token query parameter or the
// session cookie. Anonymous requests proceed with no identity attached.
func (h *Handler) identity(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if id := h.identityFromRequest(r); id != nil {
			r = r.WithContext(context.WithValue(r.Context(), identityKey, id))
		}
		next.ServeHTTP(w, r)
	})
}

func (h *Handler) identityFromRequest(r *http.Request) *auth.Identity {
	if h.tokens == nil {
		return nil
	}

	token := r.URL.Query().Get("token")
	if token == "" {
		c, err := r.Cookie(sessionCookie)
		if err != nil {
			return nil
		}
		token = c.Value
	}
	if token == "" {
		return nil
	}

	id, err := h.tokens.Verify(token)
	if err != nil {
		h.log.Debug().Err(err).Msg("rejected session token")
		return nil
	}
	return id
}

func identityFrom(ctx context.Context) *auth.Identity {
	id, _ := ctx.Value(identityKey).(*auth.Identity)
	return id
}

// handleAuth turns a signed login link into a session cookie. Login
// links are handed out by the bot over Discord.
func (h *Handler) handleAuth(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	if token == "" || h.tokens == nil {
		h.renderError(w, r, http.StatusBadRequest, "Missing login token.")
		return
	}

	id, err := h.tokens.Verify(token)
	if err != nil {
		h.renderError(w, r, http.StatusBadRequest, "This login link is invalid or has expired. Ask the bot for a fresh one.")
		return
	}

	// Make sure the member exists locally so writeups can reference it.
	if h.queries != nil {
		params := sqlcgen.UpsertUserParams{DiscordID: id.DiscordID, Username: id.Username}
		if _, err := h.queries.UpsertUser(r.Context(), params); err != nil {
			h.log.Error().Err(err).Int64("discord_id", id.DiscordID).Msg("upserting user failed")
			h.renderError(w, r, http.StatusInternalServerError, "Something went wrong logging you in.")
			return
		}
	}

	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    token,
		Path:     "/",
		MaxAge:   int((7 * 24 * 60 * 60)),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	http.Redirect(w, r, "/writeups/", http.StatusFound)
}

func (h *Handler) handleLogout(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	http.Redirect(w, r, "/writeups/", http.StatusFound)
}
