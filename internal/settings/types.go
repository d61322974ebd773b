package settings

// Keys of multi-valued template settings. Templates may use the placeholders
// {leader}, {group}, {last_date} and {time}.
const (
	KeyStaleReport   = "reminder.stale_report"
	KeyBeforeMeeting = "reminder.before_meeting"
	KeyAfterMeeting  = "reminder.after_meeting"
)

// Defaults apply when a key has no stored values.
var Defaults = map[string][]string{
	KeyStaleReport: {
		"Привет! Отчёт по группе {group} уже давно не заполнялся: в последний раз это было {last_date}.\n\n" +
			"Пожалуйста, заполни отчёты по прошедшим за это время группам, а в следующий раз не забывай присылать отчёт вовремя 😉",
		"{leader}, привет! По группе {group} нет отчётов с {last_date}. Заполни, пожалуйста, пропущенные встречи через /start.",
	},
	KeyBeforeMeeting: {
		"Привет, {leader}! Сегодня в {time} встреча группы {group}. Благословенного времени!",
	},
	KeyAfterMeeting: {
		"{leader}, как прошла встреча группы {group}? Не забудь отправить отчёт: /start",
	},
}
