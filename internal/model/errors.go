package model

import "errors"

// Lookup sentinels shared between services and their consumers. Services
// translate pgx.ErrNoRows into these so callers can branch on "missing"
// without importing the driver.
var (
	ErrProviderNotFound = errors.New("provider not found")
	ErrPartnerNotFound  = errors.New("partner not found")
	ErrAPIKeyNotFound   = errors.New("api key not found")
	ErrEmailNotFound    = errors.New("email message not found")
	ErrAssetNotFound    = errors.New("media asset not found")
)

// ErrInvalidCredentials is returned by partner authentication when the
// password does not match. Deliberately indistinguishable in handlers
// from an unknown account.
var ErrInvalidCredentials = errors.New("invalid credentials")

// ErrEmailNotCancellable is returned when a cancel request races the
// worker: the message is gone or already past queued state.
var ErrEmailNotCancellable = errors.New("not found or not queued")
