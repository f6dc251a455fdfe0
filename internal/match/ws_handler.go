package match

import (
	"net/http"

	httperrors "github.com/hectoclash/hectoclash/pkg/http/errors"
	ws "github.com/hectoclash/hectoclash/pkg/http/ws"
)

// HandleWebSocket upgrades the HTTP connection and authenticates the user.
func (h *Handler) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	// Browsers cannot set headers on WebSocket upgrades, so the token rides
	// in a query parameter.
	token := r.URL.Query().Get("token")
	if token == "" {
		httperrors.RespondUnauthorized(w, httperrors.ErrCodeInvalidToken, "Missing token")
		return
	}

	claims, err := h.authSvc.ValidateToken(token)
	if err != nil {
		h.logger.Warn().Err(err).Msg("WebSocket token validation failed")
		httperrors.RespondUnauthorized(w, httperrors.ErrCodeInvalidToken, "Invalid token")
		return
	}

	conn, err := ws.Upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Error().Err(err).Msg("WebSocket upgrade failed")
		return
	}

	h.HandleConnection(conn, claims.UserID)
}
