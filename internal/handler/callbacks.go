package handler

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode"

	"go.uber.org/zap"
	tele "gopkg.in/telebot.v3"

	"correctionloop/internal/domain"
	"correctionloop/internal/service"
	"correctionloop/internal/store"
	"correctionloop/internal/translate"
)

const checkTimeout = 10 * time.Second

// cleanCallbackData removes all non-printable characters from callback data
func cleanCallbackData(data string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsPrint(r) {
			return r
		}
		return -1
	}, strings.TrimSpace(data))
}

// parseCallback splits a callback into endpoint and payload. Buttons built
// with ReplyMarkup.Data arrive as "\fendpoint|payload" when no endpoint
// handler is registered.
func parseCallback(unique, data string) (string, string) {
	data = cleanCallbackData(data)
	if unique = cleanCallbackData(unique); unique != "" {
		return unique, data
	}
	endpoint, payload, _ := strings.Cut(data, "|")
	return endpoint, payload
}

// userMessage turns an operation error into a short alert
func userMessage(err error) string {
	switch {
	case errors.Is(err, service.ErrCheckInProgress):
		return "Already checking this one…"
	case errors.Is(err, store.ErrNotDue):
		return "Not due for review yet"
	case errors.Is(err, store.ErrItemNotFound):
		return "This item no longer exists"
	case errors.Is(err, store.ErrCategoryNotFound):
		return "This category no longer exists"
	case errors.Is(err, store.ErrBuiltinCategory):
		return "Built-in categories cannot be deleted"
	case errors.Is(err, store.ErrEmptyImport):
		return "Nothing to import: every line was blank or a separator"
	case errors.Is(err, store.ErrNoteUnsupported):
		return "Notes are only available for algorithm items"
	case errors.Is(err, store.ErrInvalidInput):
		return strings.TrimPrefix(err.Error(), store.ErrInvalidInput.Error()+": ")
	case errors.Is(err, translate.ErrUnknownModel):
		return "Unknown translation model"
	default:
		return msgInternalError
	}
}

// handleEditError handles errors from c.Edit() - if message is not modified, just acknowledge callback
// Otherwise, acknowledge callback and return error so caller can send new message
func (h *Handler) handleEditError(err error, c tele.Context, userID int64) error {
	if err == nil {
		return nil
	}

	// Already edited by another callback
	if strings.Contains(err.Error(), "message is not modified") {
		h.logger.Debug("Message already modified by another callback, acknowledging",
			zap.Int64("user_id", userID),
			zap.String("callback_id", c.Callback().ID),
		)
		_ = c.Respond()
		return nil
	}

	h.logger.Warn("Failed to edit message, sending new",
		zap.Error(err),
		zap.Int64("user_id", userID),
		zap.String("callback_id", c.Callback().ID),
	)
	if ackErr := c.Respond(); ackErr != nil {
		h.logger.Warn("Failed to acknowledge callback", zap.Error(ackErr))
	}
	return err
}

// render edits the callback message in place, or sends a new one
func (h *Handler) render(c tele.Context, text string, markup *tele.ReplyMarkup) error {
	if c.Callback() == nil {
		return c.Send(text, markup)
	}
	if err := c.Edit(text, markup); err != nil {
		if handleErr := h.handleEditError(err, c, c.Sender().ID); handleErr == nil {
			return nil
		}
		return c.Send(text, markup)
	}
	return c.Respond()
}

func (h *Handler) alert(c tele.Context, err error) error {
	return c.Respond(&tele.CallbackResponse{Text: userMessage(err), ShowAlert: true})
}

// handleCallback handles ALL callback queries
func (h *Handler) handleCallback(c tele.Context) error {
	callback := c.Callback()
	if callback == nil {
		h.logger.Warn("handleCallback: callback is nil")
		return nil
	}

	endpoint, payload := parseCallback(callback.Unique, callback.Data)
	h.logger.Debug("Processing callback",
		zap.String("endpoint", endpoint),
		zap.String("payload", payload),
		zap.String("id", callback.ID),
		zap.Int64("user_id", c.Sender().ID),
	)

	// checks pace themselves and must not block the user's other buttons
	if endpoint == cbCheck {
		return h.handleCheck(c, payload)
	}

	lock := h.userLock(c.Sender().ID)
	lock.Lock()
	defer lock.Unlock()

	switch endpoint {
	case cbMenu, cbCancel:
		h.ResetState(c.Sender().ID)
		text, markup := h.mainMenu()
		return h.render(c, text, markup)
	case cbCategory:
		if err := h.session.SetActiveCategory(payload); err != nil {
			return h.alert(c, err)
		}
		return h.showCategory(c, payload)
	case cbArchive:
		return h.showArchive(c, payload)
	case cbImport:
		return h.handleImportPrompt(c, payload)
	case cbNewCategory:
		h.SetState(c.Sender().ID, &domain.StateData{State: domain.StateWaitingCategory})
		_ = c.Respond()
		return c.Send(
			"Send the new category as:\nLabel | Theme | Description\n\nThemes: "+themeList(),
			cancelMarkup(),
		)
	case cbDeleteCategory:
		if err := h.session.DeleteCategory(payload); err != nil {
			return h.alert(c, err)
		}
		text, markup := h.mainMenu()
		return h.render(c, text, markup)
	case cbModels:
		text, markup := modelsView(h.session.TranslationModel())
		return h.render(c, text, markup)
	case cbModel:
		if _, err := h.session.SelectTranslationProvider(payload); err != nil {
			return h.alert(c, err)
		}
		text, markup := modelsView(h.session.TranslationModel())
		return h.render(c, text, markup)
	case cbFlip:
		return h.handleFlip(c, payload)
	case cbRestore:
		return h.handleRestore(c, payload)
	case cbDeleteItem:
		return h.handleDeleteItem(c, payload)
	case cbNote:
		return h.handleNotePrompt(c, payload)
	}

	h.logger.Warn("Unhandled callback",
		zap.String("endpoint", endpoint),
		zap.String("payload", payload),
	)
	return c.Respond()
}

func (h *Handler) showCategory(c tele.Context, categoryID string) error {
	category, err := h.session.Category(categoryID)
	if err != nil {
		return h.alert(c, err)
	}
	items, err := h.session.Items(categoryID)
	if err != nil {
		return h.alert(c, err)
	}
	due, err := h.session.DueItems(categoryID, time.Now())
	if err != nil {
		return h.alert(c, err)
	}

	text, markup := categoryView(category, due, len(items))
	return h.render(c, text, markup)
}

func (h *Handler) showArchive(c tele.Context, categoryID string) error {
	category, err := h.session.Category(categoryID)
	if err != nil {
		return h.alert(c, err)
	}
	items, err := h.session.Items(categoryID)
	if err != nil {
		return h.alert(c, err)
	}

	text, markup := archiveView(category, items)
	return h.render(c, text, markup)
}

func (h *Handler) handleCheck(c tele.Context, itemID string) error {
	_, categoryID, err := h.session.Item(itemID)
	if err != nil {
		return h.alert(c, err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), checkTimeout)
	defer cancel()

	item, err := h.session.Check(ctx, itemID, store.CheckOptions{})
	if err != nil {
		return h.alert(c, err)
	}

	h.logger.Info("Item checked via bot",
		zap.Int64("user_id", c.Sender().ID),
		zap.String("item_id", itemID),
		zap.Bool("archived", item.IsArchived),
	)

	lock := h.userLock(c.Sender().ID)
	lock.Lock()
	defer lock.Unlock()
	return h.showCategory(c, categoryID)
}

func (h *Handler) handleFlip(c tele.Context, itemID string) error {
	_, categoryID, err := h.session.Item(itemID)
	if err != nil {
		return h.alert(c, err)
	}
	if _, err := h.session.Flip(itemID); err != nil {
		return h.alert(c, err)
	}
	return h.showCategory(c, categoryID)
}

func (h *Handler) handleRestore(c tele.Context, itemID string) error {
	_, categoryID, err := h.session.Item(itemID)
	if err != nil {
		return h.alert(c, err)
	}
	if _, err := h.session.Restore(itemID); err != nil {
		return h.alert(c, err)
	}
	return h.showArchive(c, categoryID)
}

func (h *Handler) handleDeleteItem(c tele.Context, itemID string) error {
	_, categoryID, err := h.session.Item(itemID)
	if err != nil {
		return h.alert(c, err)
	}
	if err := h.session.DeleteItem(itemID); err != nil {
		return h.alert(c, err)
	}
	return h.showCategory(c, categoryID)
}

func (h *Handler) handleImportPrompt(c tele.Context, categoryID string) error {
	category, err := h.session.Category(categoryID)
	if err != nil {
		return h.alert(c, err)
	}

	h.SetState(c.Sender().ID, &domain.StateData{
		State:      domain.StateWaitingImport,
		CategoryID: categoryID,
	})
	_ = c.Respond()

	prompt := fmt.Sprintf("📥 Send the lines to add to %s, one per line.", category.Label)
	if category.Kind == domain.KindVocabulary {
		prompt += "\nA line containing 章 or Chapter starts a new chapter; lines starting with --- are skipped."
	}
	return c.Send(prompt, cancelMarkup())
}

func (h *Handler) handleNotePrompt(c tele.Context, itemID string) error {
	item, _, err := h.session.Item(itemID)
	if err != nil {
		return h.alert(c, err)
	}

	h.SetState(c.Sender().ID, &domain.StateData{
		State:  domain.StateWaitingNote,
		ItemID: itemID,
	})
	_ = c.Respond()

	prompt := fmt.Sprintf("📝 Send the note for %q.", item.Content)
	if item.Note != "" {
		prompt += "\n\nCurrent note:\n" + item.Note
	}
	return c.Send(prompt, cancelMarkup())
}

func themeList() string {
	labels := make([]string, len(domain.ThemePresets))
	for i, t := range domain.ThemePresets {
		labels[i] = t.Label
	}
	return strings.Join(labels, ", ")
}
