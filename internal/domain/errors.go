package domain

import "errors"

var (
	ErrHotelNotFound       = errors.New("hotel not found")
	ErrBookingNotFound     = errors.New("booking not found")
	ErrRoomTypeUnavailable = errors.New("room type not offered by hotel")
	ErrNoAvailability      = errors.New("no rooms available for the requested dates")
	ErrValidation          = errors.New("invalid request")
	ErrInvalidInput        = errors.New("invalid pricing input")
	ErrNotAuthorized       = errors.New("actor not authorized")
	ErrInvalidTransition   = errors.New("illegal booking state transition")
	ErrInvalidSignature    = errors.New("payment signature mismatch")
)
