package diskmanager

import "errors"

var (
	// ErrCorruptPage is returned by ReadPage when the stored checksum does
	// not match the page bytes.
	ErrCorruptPage = errors.New("diskmanager: corrupt page (checksum mismatch)")
	// ErrClosed is returned by any operation performed after Close.
	ErrClosed = errors.New("diskmanager: manager is closed")
	// ErrShortBuffer is returned when a caller-supplied buffer isn't
	// exactly PageSize bytes.
	ErrShortBuffer = errors.New("diskmanager: buffer must be exactly PageSize bytes")
)
