// Package common — errors.go определяет ошибки, которые используются во всех модулях бота.
// Отказы в выдаче репутации — ожидаемые ошибки: обработчик превращает их
// в понятный пользователю ответ и не логирует как ошибку.
package common

import (
	"errors"
	"fmt"
	"time"
)

// Отказы проверки выдачи репутации (порядок совпадает с порядком проверок)
var (
	// ErrTargetNotFound — указанного пользователя нет на платформе
	ErrTargetNotFound = errors.New("user does not exist")
	// ErrTargetNotMember — пользователь не писал в сообществе
	ErrTargetNotMember = errors.New("user not active in this community")
	// ErrSelfAward — попытка выдать репутацию самому себе
	ErrSelfAward = errors.New("cannot award to yourself")
	// ErrCooldownActive — с прошлой выдачи прошло меньше кулдауна
	ErrCooldownActive = errors.New("cooldown active")
	// ErrAccountTooYoung — аккаунт выдающего слишком новый
	ErrAccountTooYoung = errors.New("account too young")
	// ErrLowKarma — у выдающего мало кармы за комментарии
	ErrLowKarma = errors.New("insufficient karma")
)

// Ошибки разбора команды
var (
	// ErrNoTarget — не указан получатель и у родительского сообщения нет автора
	ErrNoTarget = errors.New("no target to award")
	// ErrInvalidHandle — имя пользователя в неверном формате
	ErrInvalidHandle = errors.New("invalid username format")
)

// ErrCouldNotVerify — внешний сервис не ответил, проверить получателя нельзя.
// Это временная ошибка: репутация не меняется, пользователь получает общий ответ.
var ErrCouldNotVerify = errors.New("could not verify user")

// ErrAwarderUnverified — не удалось получить профиль выдающего. Частный случай ErrCouldNotVerify.
var ErrAwarderUnverified = fmt.Errorf("awarder: %w", ErrCouldNotVerify)

// Rejection — отказ проверки с деталями для ответа пользователю.
type Rejection struct {
	Reason    error
	Remaining time.Duration // только для ErrCooldownActive
}

func (r *Rejection) Error() string {
	if r.Remaining > 0 {
		return fmt.Sprintf("%v (%s left)", r.Reason, FormatRemaining(r.Remaining))
	}
	return r.Reason.Error()
}

func (r *Rejection) Unwrap() error { return r.Reason }

// Reject создаёт отказ без деталей.
func Reject(reason error) *Rejection {
	return &Rejection{Reason: reason}
}

// IsRejection сообщает, является ли err ожидаемым отказом проверки.
func IsRejection(err error) bool {
	var r *Rejection
	return errors.As(err, &r)
}
