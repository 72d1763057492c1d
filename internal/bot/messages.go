package bot

// All user-facing bot messages in one place.

// ── /start & /help ──────────────────────────────────────────────────

const msgStart = `<b>Вітаю в No-Lights DTEK!</b>

Я перевіряю сайт ДТЕК Київські електромережі за вашою адресою та повідомляю, коли світло зникає або повертається.

/address - Вказати адресу
/status - Перевірити зараз
/help - Детальніше`

const msgHelp = `<b>Як це працює:</b>

1. Вкажіть адресу командою /address
2. Я підберу її у формі на сайті ДТЕК так само, як це зробили б ви
3. Кожні кілька хвилин я перевіряю стан і пишу вам, щойно він зміниться

<b>Формат адреси:</b>
<code>/address Київ, Хрещатик, 22</code>
Місто, вулиця та будинок через кому.

<b>Команди:</b>
/address — вказати або змінити адресу
/status — перевірити стан зараз
/cancel — скасувати поточну операцію`

// ── Menu buttons ────────────────────────────────────────────────────

const (
	menuBtnAddress = "📍 Адреса"
	menuBtnStatus  = "💡 Статус"
)

// ── /address ────────────────────────────────────────────────────────

const (
	msgAddressPrompt = `Надішліть адресу у форматі:
<code>Київ, Хрещатик, 22</code>`
	msgAddressInvalid = `Не вдалося розібрати адресу. Потрібно три частини через кому: місто, вулиця, будинок.
Наприклад: <code>Київ, Хрещатик, 22</code>`
	msgAddressSaved     = "✅ Адресу збережено: <b>%s</b>\n\nПерший стан надішлю після найближчої перевірки. Зараз — /status"
	msgAddressUnchanged = "Ця адреса вже збережена: <b>%s</b>"
)

// ── /status ─────────────────────────────────────────────────────────

const (
	msgNoAddress     = "Спершу вкажіть адресу: /address"
	msgChecking      = "⏳ Перевіряю на сайті ДТЕК, це займе до хвилини..."
	msgCheckFailed   = "😔 Не вдалося отримати стан: %s"
	msgCheckNotFound = "😔 ДТЕК не знайшов цю адресу (%s). Перевірте написання: /address"
	msgCheckBusy     = "Сайт ДТЕК зараз не відповідає. Спробуйте за кілька хвилин."
)

// ── Misc ────────────────────────────────────────────────────────────

const (
	msgCancelled = "Скасовано."
	msgError     = "Сталася помилка. Спробуйте пізніше."
)
