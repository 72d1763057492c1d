package tracker

// All notification strings in one place.

const (
	msgHeadlineOn      = "🟢 <b>Світло є</b>"
	msgHeadlineOff     = "🔴 <b>Світла немає</b>"
	msgHeadlineUnknown = "⚪️ <b>Статус невідомий</b>"

	msgAddressLine = "📍 %s"
	msgGroupLine   = "👥 Черга: %s"

	// After a fresh transition: how long the previous state lasted.
	msgWasOnFor  = "⏱ Світло було %s"
	msgWasOffFor = "⏱ Світла не було %s"
	// Without a transition: how long the current state has lasted.
	msgOnSince  = "⏱ Світло є вже %s"
	msgOffSince = "⏱ Світла немає вже %s"

	msgReasonLine    = "⚠️ Причина: %s"
	msgStartLine     = "🕐 Початок: %s"
	msgRestoreLine   = "🔌 Орієнтовне відновлення: %s"
	msgUpdatedAtLine = "🔄 Оновлено: %s"

	msgNextPlanned = "📅 Наступне відключення за графіком: %s"
	msgExpectedOn  = "📅 За графіком світло з %s"

	msgViewerLink = `<a href="%s">Графік відключень</a>`
)
