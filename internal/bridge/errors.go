package bridge

import "errors"

var (
	// ErrUnknownAccount is returned for an account name not in the config.
	ErrUnknownAccount = errors.New("unknown account")

	// ErrNoAccounts is returned by New when nothing is configured.
	ErrNoAccounts = errors.New("no accounts configured")
)
