package service

import "errors"

var (
	ErrInvalidInput        = errors.New("invalid input")
	ErrAccountNotConnected = errors.New("account not connected or inactive")
)
