package domain

import "errors"

var (
	// ErrDataRootNotFound is returned when the input directory does not exist.
	ErrDataRootNotFound = errors.New("data root not found")

	// ErrNoParsableData is returned when no file under the input directory
	// yields a single emission record.
	ErrNoParsableData = errors.New("no parsable emission data found")

	// ErrNoDataForYear is returned when a specific year was requested and the
	// filtered dataset is empty.
	ErrNoDataForYear = errors.New("no data for year")

	// ErrInvalidParams is returned for run parameters outside their domain.
	ErrInvalidParams = errors.New("invalid run parameters")
)
