package service

import "errors"

var (
	ErrEndpointNotFound  = errors.New("integration endpoint not found")
	ErrInvalidWebhookURL = errors.New("webhook url must be an absolute http or https url")
	ErrUnauthorized      = errors.New("unauthorized")
	ErrInvalidInput      = errors.New("invalid input")
)
