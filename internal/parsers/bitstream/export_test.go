package bitstream

const (
	FMIndexMark      = fmIndexMark
	FMIDMark         = fmIDMark
	FMDataMark       = fmDataMark
	FMDeletedMark    = fmDeletedMark
	MFMSyncA1        = mfmSyncA1
	MaxIntervalCells = maxIntervalCells
	ResyncGapRun     = resyncGapRun
)

var Nibble62Decode = nibble62Decode
