package sparseindex

import (
	"errors"

	"github.com/rpcpool/sparseann/quantize"
	"github.com/rpcpool/sparseann/radixpath"
)

// Where a lower-level package already owns the sentinel (quantize,
// radixpath), the façade re-exports it rather than declaring a second error
// for the same condition.
var (
	// ErrInvalidQuantization is fatal at construction: Q must be one of
	// {16, 32, 64}.
	ErrInvalidQuantization = quantize.ErrInvalidQuantization

	// ErrInvalidWeight means a NaN weight reached Insert/Quantize.
	ErrInvalidWeight = quantize.ErrInvalidWeight

	// ErrInvalidDimensionDelta means path(target, base) was asked for
	// target < base.
	ErrInvalidDimensionDelta = radixpath.ErrInvalidDimensionDelta

	// ErrNodeLoadFailed means the node cache could not materialize a lazy
	// child; fatal to the traversal that hit it, not to the index.
	ErrNodeLoadFailed = errors.New("sparseindex: node cache failed to materialize node")

	// ErrStorageUnavailable means the buffer manager / property file
	// collaborator could not be opened at construction; fatal.
	ErrStorageUnavailable = errors.New("sparseindex: storage collaborator unavailable")
)
