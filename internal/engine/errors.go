package engine

import "errors"

var (
	ErrInvalidProvider  = errors.New("invalid provider")
	ErrProviderExists   = errors.New("provider already exists")
	ErrProviderNotFound = errors.New("provider not found")
	ErrInvalidSlot      = errors.New("invalid time slot")
	ErrNoParticipants   = errors.New("no participants")
	ErrConflict         = errors.New("conflict")
)
