package exchange

import (
	"errors"

	"github.com/gofiber/fiber/v3"
)

// Ошибки жизненного цикла обмена. Все они — ожидаемые, пользовательские
// исходы: операция ничего не меняет и возвращает ошибку вызывающему.
var (
	// ErrValidation — пустые или некорректные входные данные
	ErrValidation = errors.New("некорректные данные")

	// ErrInvalidRequest — попытка откликнуться на собственное объявление
	ErrInvalidRequest = errors.New("нельзя откликнуться на собственное объявление")

	// ErrDuplicatePending — по этому объявлению уже есть нерешённая заявка от этого пользователя
	ErrDuplicatePending = errors.New("ваша заявка по этому объявлению уже ожидает решения")

	// ErrListingClosed — объявление закрыто и не принимает заявки
	ErrListingClosed = errors.New("объявление закрыто и больше не принимает заявки")

	// ErrUnauthorized — действие доступно только владельцу объявления или участнику диалога
	ErrUnauthorized = errors.New("у вас нет прав на это действие")

	// ErrAlreadyDecided — заявка уже принята или отклонена
	ErrAlreadyDecided = errors.New("по этой заявке уже принято решение")

	// ErrConversationClosed — диалог закрыт для новых сообщений
	ErrConversationClosed = errors.New("диалог закрыт")

	// ErrNotFound — сущность не найдена
	ErrNotFound = errors.New("не найдено")

	// ErrConstraintViolation — проигран конкурентный доступ: кто-то успел раньше
	ErrConstraintViolation = errors.New("кто-то уже выполнил это действие — обновите страницу и повторите")
)

// Code возвращает стабильный код ошибки для клиента
func Code(err error) string {
	switch {
	case errors.Is(err, ErrValidation):
		return "validation"
	case errors.Is(err, ErrInvalidRequest):
		return "invalid_request"
	case errors.Is(err, ErrDuplicatePending):
		return "duplicate_pending"
	case errors.Is(err, ErrListingClosed):
		return "listing_closed"
	case errors.Is(err, ErrUnauthorized):
		return "unauthorized"
	case errors.Is(err, ErrAlreadyDecided):
		return "already_decided"
	case errors.Is(err, ErrConversationClosed):
		return "conversation_closed"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrConstraintViolation):
		return "constraint_violation"
	default:
		return "internal"
	}
}

// HTTPStatus возвращает HTTP статус для ошибки жизненного цикла
func HTTPStatus(err error) int {
	switch {
	case errors.Is(err, ErrValidation), errors.Is(err, ErrInvalidRequest):
		return fiber.StatusBadRequest
	case errors.Is(err, ErrUnauthorized), errors.Is(err, ErrConversationClosed):
		return fiber.StatusForbidden
	case errors.Is(err, ErrNotFound):
		return fiber.StatusNotFound
	case errors.Is(err, ErrDuplicatePending),
		errors.Is(err, ErrListingClosed),
		errors.Is(err, ErrAlreadyDecided),
		errors.Is(err, ErrConstraintViolation):
		return fiber.StatusConflict
	default:
		return fiber.StatusInternalServerError
	}
}
