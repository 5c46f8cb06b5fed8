package scraper

import (
	"errors"
	"fmt"
)

var (
	// ErrStructureMismatch means a control the run depends on is missing or
	// could not be parsed. It is fatal for the run.
	ErrStructureMismatch = errors.New("page structure mismatch")
	// ErrRegionNotFound means the configured region is not in the city list.
	ErrRegionNotFound = fmt.Errorf("%w: region not found", ErrStructureMismatch)
	// ErrFetchFailure means a listing page could not be fetched or parsed.
	ErrFetchFailure = errors.New("listing fetch failed")
	// ErrFieldMissing means a loaded detail page lacks a required field.
	ErrFieldMissing = errors.New("required field missing")
	// ErrDuplicateProduct is returned under the reject duplicate policy.
	ErrDuplicateProduct = errors.New("duplicate product id")
)
