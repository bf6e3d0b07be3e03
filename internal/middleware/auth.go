package middleware

import (
	"go.uber.org/zap"
	tele "gopkg.in/telebot.v3"

	"correctionloop/internal/service"
)

const (
	msgInternalError = "Something went wrong. Please try again later."
	msgUnauthorized  = "Send /start and enter the password first."
)

// Authorizer is the part of the auth service the middleware needs
type Authorizer interface {
	EnsureUserExists(userID int64) error
	IsAuthorized(userID int64) (bool, error)
}

var _ Authorizer = (*service.AuthService)(nil)

// AuthMiddleware rejects updates from users that have not entered the password
func AuthMiddleware(auth Authorizer, logger *zap.Logger) tele.MiddlewareFunc {
	return func(next tele.HandlerFunc) tele.HandlerFunc {
		return func(c tele.Context) error {
			userID := c.Sender().ID

			if err := auth.EnsureUserExists(userID); err != nil {
				logger.Error("Failed to ensure user exists in middleware", zap.Error(err))
				return reply(c, msgInternalError)
			}

			authorized, err := auth.IsAuthorized(userID)
			if err != nil {
				logger.Error("Failed to check authorization in middleware", zap.Error(err))
				return reply(c, msgInternalError)
			}

			if !authorized {
				logger.Debug("Rejected unauthorized update", zap.Int64("user_id", userID))
				return reply(c, msgUnauthorized)
			}

			return next(c)
		}
	}
}

// reply answers callbacks with an alert and messages with a message
func reply(c tele.Context, text string) error {
	if c.Callback() != nil {
		return c.Respond(&tele.CallbackResponse{Text: text, ShowAlert: true})
	}
	return c.Send(text)
}
