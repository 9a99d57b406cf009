package domain

import "errors"

var (
	ErrUserNotFound        = errors.New("kullanıcı bulunamadı")
	ErrTransactionNotFound = errors.New("işlem bulunamadı")
	ErrInsufficientFunds   = errors.New("yetersiz bakiye")
	ErrInvalidAmount       = errors.New("geçersiz miktar")
	ErrInvalidStatus       = errors.New("geçersiz işlem durumu")
	ErrLockTimeout         = errors.New("kilit zaman aşımına uğradı")
	ErrDuplicateWebhook    = errors.New("webhook zaten kayıtlı")
	ErrUnknownAcquirer     = errors.New("bilinmeyen sağlayıcı")
	ErrInvalidSignature    = errors.New("geçersiz webhook imzası")
	ErrInvalidEvent        = errors.New("geçersiz settlement eventi")
)
