// Package repository содержит хранилища товаров и их декораторы.
package repository

import (
	"errors"
	"fmt"
)

// ErrNotFound возвращается, когда товара с таким идентификатором нет.
var ErrNotFound = errors.New("item not found")

// PersistenceError оборачивает отказ движка хранения: нарушение ограничения, потерю соединения и т.п.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}

func persistenceErr(op string, err error) error {
	return &PersistenceError{Op: op, Err: err}
}
