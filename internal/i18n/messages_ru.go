package i18n

// russianMessages contains all Russian translations.
var russianMessages = map[string]string{
	// Request validation
	"error.missing_url":    "Отсутствует параметр ?url",
	"error.malformed_url":  "Некорректная ссылка",
	"error.invalid_url":    "Ссылка не соответствует формату плейлиста",
	"error.invalid_params": "Некорректные параметры",

	// Import failures
	"error.not_a_playlist":     "Ссылка не ведёт на плейлист",
	"error.playlist_not_found": "Плейлист не найден",
	"error.unsupported_link":   "Не удалось определить музыкальный сервис по ссылке",
	"error.server_config":      "Ошибка конфигурации сервера",
	"error.upstream":           "Ошибка при получении данных",
	"error.internal":           "Внутренняя ошибка сервера",

	// Routing and limits
	"error.resource_not_found": "Ресурс не найден",
	"error.rate_limited":       "Слишком много запросов, попробуйте позже",

	// Home page
	"page.title":     "Импорт плейлистов",
	"page.providers": "Поддерживаемые сервисы: %s",
	"page.usage":     "Использование: GET /api/{provider}/resolve?url=<ссылка на плейлист>",
}
