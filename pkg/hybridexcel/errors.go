package hybridexcel

import "errors"

// Fatal write errors. The partial file is removed and nothing is delivered.
var (
	ErrTargetUnwritable = errors.New("target not writable")
	ErrRowLength        = errors.New("row length does not match schema")
	ErrSheetFull        = errors.New("row count exceeds sheet limit")
	ErrInvalidSchema    = errors.New("invalid column schema")
)

// Configuration errors, reported before any content is written.
var (
	ErrInvalidRange    = errors.New("invalid cell range")
	ErrInvalidOperator = errors.New("invalid comparison operator")
	ErrInvalidRule     = errors.New("invalid conditional format rule")
	ErrUnknownColumn   = errors.New("unknown column")
)

// Feature injection errors. The Phase-1 document is kept as the result.
var (
	ErrContainerOpen    = errors.New("cannot open document container")
	ErrWorksheetMissing = errors.New("worksheet part not found")
	ErrPartTooLarge     = errors.New("document too large for feature injection")
	ErrMalformedPart    = errors.New("malformed worksheet part")
)
