package extraction

import "errors"

var (
	// ErrTimeout marks a call still running when its batch deadline expired.
	ErrTimeout = errors.New("extraction call timed out")

	// ErrUnparseable marks a reply that is neither an opinion object nor a list.
	ErrUnparseable = errors.New("reply is not a valid opinion list")
)
