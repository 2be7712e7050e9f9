package engine

import "errors"

var (
	// ErrDisposed is returned by Init after Dispose.
	ErrDisposed = errors.New("engine disposed")
	// ErrAlreadyInitialized is returned by a second Init call.
	ErrAlreadyInitialized = errors.New("engine already initialized")
	// ErrNotReady is returned by operations that need loaded assets.
	ErrNotReady = errors.New("engine not initialized")
)
