package conversation

// User-facing texts. The bot speaks Russian only.
const (
	MsgAccessDenied     = "Извини, у тебя нет доступа к отчётам. Обратись к администратору, чтобы тебя добавили в список лидеров."
	MsgAlreadySubmitted = "Отчёт за эту дату по этой группе уже отправлен. Чтобы начать заново, отправь /start."
	MsgStoreError       = "Что-то пошло не так при сохранении. Попробуй ещё раз чуть позже."

	msgGreeting         = "Привет! Ты — %s, лидер группы %s."
	msgChooseGroup      = "Привет! Выбери группу, по которой заполняешь отчёт:"
	msgUnknownGroup     = "Такой группы нет в твоём списке. Выбери группу кнопкой ниже:"
	msgChooseDate       = "Выбери дату из списка или отправь дату в формате ДД/ММ/ГГ (27/12/25)"
	msgBadDate          = "Не получилось разобрать дату. Отправь её в формате ДД/ММ/ГГ (27/12/25) или выбери из списка."
	msgFutureDate       = "Эта дата ещё не наступила. Выбери сегодняшнюю или прошедшую дату."
	msgSelectedDate     = "Выбранная дата: %s"
	msgMarkVisitors     = "Отметь посещение за %s"
	msgEmptyRoster      = "В списке группы пока нет членов. Нажми «Подтвердить отметки», чтобы продолжить."
	msgMarkWithButtons  = "Отмечай посещение кнопками ✅ / 🚫 под списком."
	msgAskReason        = "Укажи причину отсутствия %s"
	msgToastAskReason   = "Укажи причину отсутствия"
	msgReasonSaved      = "%s: 🚫 %s"
	msgReasonRequired   = "Сначала укажи причину отсутствия %s"
	msgNotAllMarked     = "Ещё не все члены отмечены:\n%s"
	msgReview           = "Все члены отмечены, но ещё есть возможность изменить ответы:\n\n%s"
	msgReviewEmpty      = "В группе нет членов для отметки. Подтверди, чтобы продолжить."
	msgToastAllMarked   = "Все члены отмечены!"
	msgConfirmNoMeeting = "Подтверди, что домашняя группа %s не проводилась %s."
	msgNoMeetingSaved   = "Записал: домашняя группа %s не проводилась %s. Спасибо!"
	msgContinueMarking  = "Хорошо, продолжаем отмечать посещение."
	msgGuestsIntro      = "Переходим к добавлению гостей. Отправь в отдельных сообщениях имена новых гостей или выбери повторно посетивших из списка."
	msgGuestAdded       = "Добавлен гость %s"
	msgGuestDuplicate   = "Гость %s уже добавлен"
	msgGuestEmptyName   = "Отправь имя гостя текстом."
	msgGuestsSaved      = "Гости добавлены:\n\n%s"
	msgNoGuests         = "Гостей на встрече не было."
	msgToastGuestsSaved = "Гости добавлены"
	msgAnswerCheck      = "Проверь ответ:\n\n%s\n\nВсё верно?"
	msgAnswerRetry      = "Хорошо, отправь ответ ещё раз."
	msgAnswerEmpty      = "Ответ не должен быть пустым."
	msgChooseYesNo      = "Выбери «Да» или «Нет»."
	msgSummaryPrompt    = "Опиши кратко духовную часть встречи: какая была тема, что было главным?"
	msgTestimonyAsk     = "Были ли на встрече свидетельства?"
	msgTestimonyPrompt  = "Расскажи о свидетельствах."
	msgPersonalAsk      = "Были ли на этой неделе личные встречи с членами группы?"
	msgPersonalPrompt   = "С кем встречался и о чём говорили?"
	msgNewlyAsk         = "Есть ли обратная связь по новым людям, закреплённым за группой?"
	msgNewlyPrompt      = "Напиши обратную связь по новым людям."
	msgFinished         = "Спасибо! Отчёт по группе %s за %s сохранён."
	msgAlreadyFinished  = "Отчёт уже отправлен. Чтобы заполнить новый, отправь /start."

	labelConfirmMarks = "Подтвердить отметки"
	labelNoMeeting    = "Группа не проводилась"
	labelAllCorrect   = "Всё верно"
	labelFinishGuests = "Завершить добавление гостей"
	labelYes          = "Да"
	labelNo           = "Нет"
	labelPresent      = "✅"
	labelAbsent       = "🚫"
)

// NoMeetingReason is recorded for every unmarked member when the group did not meet.
const NoMeetingReason = "Домашняя группа не проводилась"

// Reasons offered on the absence reply keyboard. Free text is accepted too.
var Reasons = []string{
	"Работа / Учеба",
	"Семейные обстоятельства",
	"Болезнь",
	"Встреча по служению в церкви / Был на другой ДГ",
	"Отпуск / Был в другом городе",
	"Не захотел прийти/Забыл",
	"Удалить человека",
}
