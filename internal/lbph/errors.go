package lbph

import "errors"

var (
	// ErrEmptyTrainingSet is returned by Train when no images are given.
	ErrEmptyTrainingSet = errors.New("empty training set")

	// ErrSizeMismatch is returned when image and label counts differ.
	ErrSizeMismatch = errors.New("image and label counts differ")

	// ErrImageTooSmall is returned for images that cannot cover the grid.
	ErrImageTooSmall = errors.New("image too small for LBPH grid")

	// ErrCorruptModel is returned when a persisted model is inconsistent.
	ErrCorruptModel = errors.New("corrupt model")
)
