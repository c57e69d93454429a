package models

const (
	// DefaultPageSize размер страницы, если клиент его не указал
	DefaultPageSize = 10

	// DefaultRequestLimit количество заявок на бронирование от одного пользователя в окне
	DefaultRequestLimit = 20

	// DefaultRequestWindow окно ограничения заявок
	DefaultRequestWindow = 60 * 60 // 1 час в секундах

	// NotificationQueueSize размер очереди уведомлений
	NotificationQueueSize = 256
)
