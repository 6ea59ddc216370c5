package command

import (
	"errors"
	"fmt"
)

var (
	// ErrTimeout обработчик не уложился в отведенное время
	ErrTimeout = errors.New("command timed out")
	// ErrNotDirectory путь для ls не является каталогом
	ErrNotDirectory = errors.New("not a directory")
	// ErrMissingArgument не передан обязательный аргумент
	ErrMissingArgument = errors.New("missing argument")
	// ErrInvalidFilename имя файла пустое или содержит путь
	ErrInvalidFilename = errors.New("invalid filename")
	// ErrLookupFailed словарь не нашел слово или недоступен
	ErrLookupFailed = errors.New("dictionary lookup failed")
)

// HandlerError ошибка обработчика вместе с текстом, который уйдет в ответ
type HandlerError struct {
	Reply string // без префикса "Error: ", его добавляет Executor
	Err   error
}

func (e *HandlerError) Error() string { return e.Err.Error() }

func (e *HandlerError) Unwrap() error { return e.Err }

func replyErrorf(err error, format string, args ...any) error {
	return &HandlerError{Reply: fmt.Sprintf(format, args...), Err: err}
}

// replyText текст ответа для ошибки обработчика
func replyText(err error) string {
	var he *HandlerError
	if errors.As(err, &he) {
		return he.Reply
	}
	if errors.Is(err, ErrTimeout) {
		return "Command timed out."
	}
	return err.Error()
}
