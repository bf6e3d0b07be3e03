package handler

import (
	"fmt"
	"strings"

	tele "gopkg.in/telebot.v3"

	"correctionloop/internal/domain"
	"correctionloop/internal/store"
	"correctionloop/internal/translate"
)

const (
	maxListed      = 8
	maxButtonRunes = 24
)

func mainMenu(categories []domain.Category, active string, pending int, model translate.ModelConfig) (string, *tele.ReplyMarkup) {
	var b strings.Builder
	b.WriteString("🏠 Main menu\n\n")
	fmt.Fprintf(&b, "Translation model: %s\n", model.Name)
	if pending > 0 {
		fmt.Fprintf(&b, "Waiting for translation: %d\n", pending)
	}
	b.WriteString("\nPick a category:")

	markup := &tele.ReplyMarkup{}
	rows := make([]tele.Row, 0, len(categories)+1)
	for _, c := range categories {
		label := c.Label
		if c.ID == active {
			label = "▶️ " + label
		}
		rows = append(rows, markup.Row(markup.Data(label, cbCategory, c.ID)))
	}
	rows = append(rows, markup.Row(
		markup.Data("➕ New category", cbNewCategory),
		markup.Data("🤖 Model", cbModels),
	))
	markup.Inline(rows...)
	return b.String(), markup
}

func categoryView(c domain.Category, due []domain.Item, total int) (string, *tele.ReplyMarkup) {
	var b strings.Builder
	fmt.Fprintf(&b, "📚 %s\n", c.Label)
	if c.Description != "" {
		fmt.Fprintf(&b, "%s\n", c.Description)
	}
	fmt.Fprintf(&b, "\nDue now: %d of %d\n\n", len(due), total)

	markup := &tele.ReplyMarkup{}
	var rows []tele.Row

	shown := due
	if len(shown) > maxListed {
		shown = shown[:maxListed]
	}
	for i, item := range shown {
		fmt.Fprintf(&b, "%d. %s\n", i+1, formatItem(item, c.Kind))

		row := tele.Row{markup.Data("✅ "+truncate(item.Content, maxButtonRunes), cbCheck, item.ID)}
		switch c.Kind {
		case domain.KindVocabulary:
			row = append(row, markup.Data("🔄", cbFlip, item.ID))
		case domain.KindAlgorithm:
			row = append(row, markup.Data("📝", cbNote, item.ID))
		}
		row = append(row, markup.Data("🗑", cbDeleteItem, item.ID))
		rows = append(rows, row)
	}
	if len(due) == 0 {
		b.WriteString("Nothing to review right now.\n")
	} else if len(due) > maxListed {
		fmt.Fprintf(&b, "\n…and %d more\n", len(due)-maxListed)
	}

	rows = append(rows, markup.Row(
		markup.Data("📥 Import", cbImport, c.ID),
		markup.Data("🗄 Archive", cbArchive, c.ID),
	))
	if c.IsCustom {
		rows = append(rows, markup.Row(markup.Data("🗑 Delete category", cbDeleteCategory, c.ID)))
	}
	rows = append(rows, markup.Row(markup.Data("🏠 Menu", cbMenu)))
	markup.Inline(rows...)
	return b.String(), markup
}

func archiveView(c domain.Category, items []domain.Item) (string, *tele.ReplyMarkup) {
	var b strings.Builder
	fmt.Fprintf(&b, "🗄 %s archive\n\n", c.Label)

	markup := &tele.ReplyMarkup{}
	var rows []tele.Row
	n := 0
	for _, item := range items {
		if !item.IsArchived {
			continue
		}
		n++
		if n <= maxListed {
			fmt.Fprintf(&b, "%d. %s\n", n, item.Content)
			rows = append(rows, markup.Row(
				markup.Data("♻️ "+truncate(item.Content, maxButtonRunes), cbRestore, item.ID),
				markup.Data("🗑", cbDeleteItem, item.ID),
			))
		}
	}
	if n == 0 {
		b.WriteString("The archive is empty.\n")
	} else if n > maxListed {
		fmt.Fprintf(&b, "\n…and %d more\n", n-maxListed)
	}

	rows = append(rows, markup.Row(markup.Data("◀️ Back", cbCategory, c.ID)))
	markup.Inline(rows...)
	return b.String(), markup
}

func modelsView(current translate.ModelConfig) (string, *tele.ReplyMarkup) {
	markup := &tele.ReplyMarkup{}
	rows := make([]tele.Row, 0, len(translate.Models)+1)
	for _, m := range translate.Models {
		label := m.Name
		if m.ID == current.ID {
			label = "✅ " + label
		}
		rows = append(rows, markup.Row(markup.Data(label, cbModel, m.ID)))
	}
	rows = append(rows, markup.Row(markup.Data("🏠 Menu", cbMenu)))
	markup.Inline(rows...)
	return "🤖 Translation model:", markup
}

func cancelMarkup() *tele.ReplyMarkup {
	markup := &tele.ReplyMarkup{}
	markup.Inline(markup.Row(markup.Data("❌ Cancel", cbCancel)))
	return markup
}

// formatItem renders one list line
func formatItem(item domain.Item, kind domain.CategoryKind) string {
	var b strings.Builder
	b.WriteString(item.Content)
	if item.Chapter != "" && item.Chapter != store.DefaultChapter {
		fmt.Fprintf(&b, " [%s]", item.Chapter)
	}
	fmt.Fprintf(&b, " (%d/%d)", item.CheckCount, domain.ArchiveThreshold)

	switch kind {
	case domain.KindVocabulary:
		if !item.Flipped {
			break
		}
		switch {
		case item.HasTranslation():
			fmt.Fprintf(&b, "\n   → %s", item.Translation)
		case item.IsLoadingTranslation:
			b.WriteString("\n   → ⏳ translating…")
		case item.TranslationFailed:
			b.WriteString("\n   → ⚠️ translation failed, flip again to retry")
		}
	case domain.KindAlgorithm:
		if item.Note != "" {
			fmt.Fprintf(&b, "\n   📝 %s", truncate(item.Note, 80))
		}
	}
	return b.String()
}

// parseCategoryInput reads "Label | Theme | Description". Theme defaults to
// the first preset and matches case-insensitively.
func parseCategoryInput(text string) store.CategoryInput {
	parts := strings.SplitN(text, "|", 3)
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}

	in := store.CategoryInput{
		Label: parts[0],
		Theme: domain.ThemePresets[0].Label,
	}
	if len(parts) > 1 && parts[1] != "" {
		in.Theme = parts[1]
		for _, t := range domain.ThemePresets {
			if strings.EqualFold(t.Label, parts[1]) {
				in.Theme = t.Label
				break
			}
		}
	}
	if len(parts) > 2 {
		in.Description = parts[2]
	}
	return in
}

func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n-1]) + "…"
}
