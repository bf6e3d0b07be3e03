package handler

import (
	"bytes"

	"go.uber.org/zap"
	tele "gopkg.in/telebot.v3"

	"correctionloop/internal/domain"
)

const (
	msgInternalError  = "Something went wrong. Please try again later."
	msgPasswordPrompt = "Hi! This bot is private. Enter the password:"
)

// handleStart handles /start command
func (h *Handler) handleStart(c tele.Context) error {
	userID := c.Sender().ID

	h.logger.Info("User started bot",
		zap.Int64("user_id", userID),
		zap.String("username", c.Sender().Username),
	)

	// Ensure user exists in database
	if err := h.authService.EnsureUserExists(userID); err != nil {
		h.logger.Error("Failed to ensure user exists", zap.Error(err))
		return c.Send(msgInternalError)
	}

	authorized, err := h.authService.IsAuthorized(userID)
	if err != nil {
		h.logger.Error("Failed to check authorization", zap.Error(err))
		return c.Send(msgInternalError)
	}

	if !authorized {
		h.SetState(userID, &domain.StateData{State: domain.StateWaitingPassword})
		return c.Send(msgPasswordPrompt)
	}

	h.ResetState(userID)
	text, markup := h.mainMenu()
	return c.Send(text, markup)
}

func (h *Handler) mainMenu() (string, *tele.ReplyMarkup) {
	return mainMenu(
		h.session.Categories(),
		h.session.ActiveCategory(),
		h.session.PendingTranslations(),
		h.session.TranslationModel(),
	)
}

// handleExport sends the snapshot as a JSON document
func (h *Handler) handleExport(c tele.Context) error {
	data, err := h.session.Export()
	if err != nil {
		h.logger.Error("Failed to export snapshot", zap.Error(err))
		return c.Send(msgInternalError)
	}
	doc := &tele.Document{
		File:     tele.FromReader(bytes.NewReader(data)),
		FileName: "correctionloop.json",
		MIME:     "application/json",
	}
	return c.Send(doc)
}
