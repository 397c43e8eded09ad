package pmemobj

import (
	"errors"

	"github.com/fenilsonani/pmemobj/internal/pmemhdr"
	"github.com/fenilsonani/pmemobj/internal/registry"
)

func isInvalidImage(err error) bool {
	return errors.Is(err, pmemhdr.ErrBadSignature) ||
		errors.Is(err, pmemhdr.ErrBadMajor) ||
		errors.Is(err, pmemhdr.ErrBadChecksum) ||
		errors.Is(err, pmemhdr.ErrArchMismatch) ||
		errors.Is(err, pmemhdr.ErrUnknownIncompat)
}

func isAlreadyPresent(err error) bool {
	return errors.Is(err, registry.ErrAlreadyPresent)
}

func isInvalidArgument(err error) bool {
	return errors.Is(err, pmemhdr.ErrLayoutTooLong) ||
		errors.Is(err, pmemhdr.ErrLayoutMismatch) ||
		errors.Is(err, pmemhdr.ErrNotZeroed) ||
		errors.Is(err, errInvalidType) ||
		errors.Is(err, errUnknownPool)
}
