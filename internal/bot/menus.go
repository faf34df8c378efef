package bot

import "github.com/okservice/repairdesk/internal/chat"

// Button labels. Routing matches keywords inside them, so a label change
// must keep its keyword.
const (
	btnAbout   = "💡 О сервисе"
	btnPrices  = "💰 Услуги и цены"
	btnPhoto   = "📸 Фото сервиса"
	btnAddress = "📍 Как добраться"
	btnHours   = "🕓 Время работы"
	btnContact = "☎️ Связаться с нами"
	btnMap     = "🗺 Показать на карте"
	btnRequest = "💬 Оставить заявку на ремонт"

	btnAdminList   = "📋 Все заявки"
	btnAdminFind   = "🔍 Найти по имени"
	btnAdminExport = "📤 Экспорт в Excel"
	btnAdminClear  = "🗑 Очистить базу"
	btnAdminHome   = "🏠 Главное меню"
)

// Callback payloads of the clear confirmation keyboard.
const (
	CallbackConfirmClear = "confirm_clear"
	CallbackCancelClear  = "cancel_clear"
)

const (
	textAccessDenied   = "⛔ У вас нет доступа к этой команде."
	textAdminWelcome   = "🛠 Добро пожаловать в панель администратора.\n\nВыберите действие:"
	textBackToMenu     = "🏠 Возвращаемся в главное меню."
	textNoRequests     = "📭 Заявок пока нет."
	textNothingFound   = "❌ Ничего не найдено."
	textSearchPrompt   = "🔍 Введите имя для поиска:"
	textNoExportData   = "📭 Нет данных для экспорта."
	textExportCaption  = "📤 Все заявки экспортированы в Excel!"
	textClearConfirm   = "⚠️ Вы уверены, что хотите очистить базу заявок?"
	textCleared        = "🧹 Все заявки успешно удалены! Удалено: %d"
	textClearCancelled = "❌ Отмена очистки базы."
	textPhotoMissing   = "⚠️ Фото не найдено."
	textNotUnderstood  = "🤔 Я вас не понял. Выберите нужный раздел из меню 👇"
	textCancelled      = "↩️ Действие отменено."
	textSaveFailed     = "❌ Не удалось сохранить заявку. Попробуйте ещё раз чуть позже."
	textInternalError  = "❌ Произошла ошибка. Попробуйте позже."
)

// MainMenu is the customer reply keyboard.
func MainMenu() *chat.Markup {
	return &chat.Markup{Reply: [][]string{
		{btnAbout, btnPrices},
		{btnPhoto, btnAddress},
		{btnHours, btnContact},
		{btnMap, btnRequest},
	}}
}

// AdminMenu is the operator reply keyboard.
func AdminMenu() *chat.Markup {
	return &chat.Markup{Reply: [][]string{
		{btnAdminList, btnAdminFind},
		{btnAdminExport, btnAdminClear},
		{btnAdminHome},
	}}
}

func clearConfirmation() *chat.Markup {
	return &chat.Markup{Inline: [][]chat.Button{{
		{Text: "✅ Да, удалить всё", Data: CallbackConfirmClear},
		{Text: "❌ Нет", Data: CallbackCancelClear},
	}}}
}

func linkButtons(links []chat.Button, perRow int) *chat.Markup {
	m := &chat.Markup{}
	for len(links) > 0 {
		n := perRow
		if len(links) < n {
			n = len(links)
		}
		m.Inline = append(m.Inline, links[:n])
		links = links[n:]
	}
	return m
}
