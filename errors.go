package transcode

import "errors"

// Error taxonomy. All fallible operations return one of these sentinels
// wrapped with context via fmt.Errorf("%w: ..."), so callers can classify
// failures with errors.Is. I/O failures from the underlying byte source or
// sink propagate as the original error, wrapped where context helps.
var (
	// ErrContainerParse indicates malformed or truncated container
	// structure.
	ErrContainerParse = errors.New("container parse failed")

	// ErrCodec indicates an encoder or decoder internal error, including
	// foreign error codes translated to a message.
	ErrCodec = errors.New("codec error")

	// ErrUnsupportedFormat indicates a recognized but unimplemented format,
	// such as a payload type or colorspace this package does not handle.
	ErrUnsupportedFormat = errors.New("unsupported format")

	// ErrInvalidInput indicates the caller violated a documented
	// precondition: wrong dimensions, unknown track id, write after
	// finalize, and so on.
	ErrInvalidInput = errors.New("invalid input")

	// ErrAgain is returned by VideoEncoder.ReceivePacket while the encoder
	// is still buffering and no packet is ready yet. It is transient;
	// callers poll again after submitting more input. Distinct from io.EOF,
	// which is terminal.
	ErrAgain = errors.New("no packet ready")
)
