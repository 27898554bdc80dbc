package services

import "errors"

// Service-level errors
var (
	// Batch input errors
	ErrNoQuotes       = errors.New("no quotes provided")
	ErrNoSolvedQuotes = errors.New("no solved quotes provided")
	ErrNoGrid         = errors.New("no grid provided")

	// File errors
	ErrNoFilesFound = errors.New("no input files found")
	ErrFileNotFound = errors.New("file not found")

	// General errors
	ErrInvalidInput = errors.New("invalid input")
)
