package domain

import "errors"

var (
	ErrInvalidFileFormat = errors.New("invalid file format")

	// ErrInvalidArgument covers bad CLI arguments and malformed chunk parameters.
	ErrInvalidArgument = errors.New("invalid argument")
	ErrFileNotFound    = errors.New("file not found")
	ErrSampleNotFound  = errors.New("large sample not found")
	// ErrInvalidShape means loaded data does not match the expected rows or columns.
	ErrInvalidShape     = errors.New("invalid shape")
	ErrInsufficientData = errors.New("insufficient data")
	ErrFit              = errors.New("surrogate fit failed")
	ErrModelPrediction  = errors.New("model prediction failed")
)
