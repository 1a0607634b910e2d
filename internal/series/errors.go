package series

import "errors"

// Domain errors for time-series persistence.
var (
	// ErrNoEpochs indicates a resume directory holding no parseable
	// epoch documents.
	ErrNoEpochs = errors.New("series: no epoch documents found")

	// ErrDecode indicates an epoch document that exists but is not a
	// valid time-series encoding.
	ErrDecode = errors.New("series: malformed epoch document")

	// ErrEncode indicates a series that cannot be serialized (e.g. a
	// non-finite value reached the encoder).
	ErrEncode = errors.New("series: epoch document not encodable")

	// ErrEmpty indicates a loaded series with no samples to resume from.
	ErrEmpty = errors.New("series: epoch document has no samples")
)
