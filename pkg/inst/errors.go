package inst

import "github.com/pkg/errors"

// Sentinel errors forming the decoder/catalog half of the error taxonomy.
// Wrap these with errors.Wrapf to attach instruction-index/opcode context;
// callers classify with errors.Is.
var (
	ErrMalformedInstruction = errors.New("malformed instruction")
	ErrUnknownOpcode        = errors.New("unknown opcode")
)
