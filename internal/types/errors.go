package types

import "errors"

// Sentinel errors shared by the capture pipeline
var (
	// ErrUnknownFormat is returned when no map/catalogue validates
	ErrUnknownFormat = errors.New("unknown disk format")

	// ErrSectorMissing is returned when a required sector is not in the store
	ErrSectorMissing = errors.New("sector missing")

	// ErrRetriesExhausted is returned for a track still incomplete after the retry ceiling
	ErrRetriesExhausted = errors.New("retries exhausted")

	// ErrBadChecksum is returned when a map or catalogue checksum does not verify
	ErrBadChecksum = errors.New("bad checksum")

	// ErrCorruptDirectory is returned for a directory without valid header or tail
	ErrCorruptDirectory = errors.New("corrupt directory")

	// ErrAddressOutOfRange is returned for a disc address beyond the disc size
	ErrAddressOutOfRange = errors.New("address out of range")

	// ErrNoFluxData is returned when a track capture holds no transitions
	ErrNoFluxData = errors.New("no flux data")

	// ErrFragmentNotFound is returned when a new-map fragment id is not in the zone bitmap
	ErrFragmentNotFound = errors.New("fragment not found")
)
