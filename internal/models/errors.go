package models

import "errors"

var (
	ErrValidation        = errors.New("validation error")
	ErrRiskRejected      = errors.New("risk rejected")
	ErrMarketUnavailable = errors.New("market unavailable")
	ErrExchange          = errors.New("exchange call failed")
	ErrNotification      = errors.New("notification failed")

	// частные случаи ErrMarketUnavailable
	ErrCapacity    = errors.New("max open positions reached")
	ErrDuplicate   = errors.New("position already open")
	ErrCooldown    = errors.New("symbol in cooldown")
	ErrNotTradable = errors.New("instrument not tradable")
)

// IsMarketUnavailable отказ без побочных эффектов (лимит, дубль, кулдаун, инструмент).
func IsMarketUnavailable(err error) bool {
	return errors.Is(err, ErrMarketUnavailable) ||
		errors.Is(err, ErrCapacity) ||
		errors.Is(err, ErrDuplicate) ||
		errors.Is(err, ErrCooldown) ||
		errors.Is(err, ErrNotTradable)
}
