package handler

import (
	"fmt"
	"strings"

	"go.uber.org/zap"
	tele "gopkg.in/telebot.v3"

	"correctionloop/internal/domain"
)

// handleText handles all text messages based on state
func (h *Handler) handleText(c tele.Context) error {
	userID := c.Sender().ID
	text := strings.TrimSpace(c.Text())

	// Ignore commands (starting with /)
	if strings.HasPrefix(text, "/") {
		return nil
	}

	if err := h.authService.EnsureUserExists(userID); err != nil {
		h.logger.Error("Failed to ensure user exists", zap.Error(err))
		return nil
	}

	authorized, err := h.authService.IsAuthorized(userID)
	if err != nil {
		h.logger.Error("Failed to check authorization", zap.Error(err))
		return c.Send(msgInternalError)
	}

	if !authorized {
		ok, err := h.authService.Login(userID, text)
		if err != nil {
			h.logger.Error("Failed to authorize user", zap.Error(err))
			return c.Send(msgInternalError)
		}
		if !ok {
			return c.Send("Wrong password")
		}

		h.logger.Info("User authorized", zap.Int64("user_id", userID))
		h.ResetState(userID)
		menuText, markup := h.mainMenu()
		return c.Send("✅ Access granted!\n\n"+menuText, markup)
	}

	state := h.GetState(userID)

	switch state.State {
	case domain.StateWaitingImport:
		return h.handleImportText(c, state, c.Text())
	case domain.StateWaitingCategory:
		return h.handleCategoryText(c, text)
	case domain.StateWaitingNote:
		return h.handleNoteText(c, state, text)
	default:
		// Idle: treat plain text as an import into the active category
		return h.handleImportText(c, &domain.StateData{
			State:      domain.StateWaitingImport,
			CategoryID: h.session.ActiveCategory(),
		}, c.Text())
	}
}

func (h *Handler) handleImportText(c tele.Context, state *domain.StateData, raw string) error {
	userID := c.Sender().ID

	items, err := h.session.Import(state.CategoryID, raw)
	if err != nil {
		h.logger.Warn("Import rejected",
			zap.Int64("user_id", userID),
			zap.String("category_id", state.CategoryID),
			zap.Error(err),
		)
		return c.Send(userMessage(err))
	}

	h.ResetState(userID)
	category, err := h.session.Category(state.CategoryID)
	if err != nil {
		return c.Send(userMessage(err))
	}

	markup := &tele.ReplyMarkup{}
	markup.Inline(markup.Row(
		markup.Data("📚 Open "+category.Label, cbCategory, category.ID),
		markup.Data("🏠 Menu", cbMenu),
	))
	return c.Send(fmt.Sprintf("✅ Added %d item(s) to %s", len(items), category.Label), markup)
}

func (h *Handler) handleCategoryText(c tele.Context, text string) error {
	category, err := h.session.CreateCategory(parseCategoryInput(text))
	if err != nil {
		return c.Send(userMessage(err)+"\n\nTry again or cancel.", cancelMarkup())
	}

	h.ResetState(c.Sender().ID)
	markup := &tele.ReplyMarkup{}
	markup.Inline(markup.Row(
		markup.Data("📥 Import", cbImport, category.ID),
		markup.Data("📚 Open", cbCategory, category.ID),
	))
	return c.Send(fmt.Sprintf("✅ Category %s created", category.Label), markup)
}

func (h *Handler) handleNoteText(c tele.Context, state *domain.StateData, text string) error {
	item, err := h.session.SetNote(state.ItemID, text)
	if err != nil {
		h.ResetState(c.Sender().ID)
		return c.Send(userMessage(err))
	}

	h.ResetState(c.Sender().ID)
	_, categoryID, err := h.session.Item(item.ID)
	if err != nil {
		return c.Send(userMessage(err))
	}
	markup := &tele.ReplyMarkup{}
	markup.Inline(markup.Row(markup.Data("◀️ Back", cbCategory, categoryID)))
	return c.Send("📝 Note saved", markup)
}
