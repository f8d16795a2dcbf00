package v1

import "net/http"

var (
	ErrBadRequest             = newError(http.StatusBadRequest, "bad request")
	ErrNotFound               = newError(http.StatusNotFound, "not found")
	ErrConflict               = newError(http.StatusConflict, "conflict")
	ErrInvalidStateTransition = newError(http.StatusConflict, "invalid state transition")
	ErrUnprocessableEntity    = newError(http.StatusUnprocessableEntity, "unprocessable entity")
	ErrInternalServerError    = newError(http.StatusInternalServerError, "internal server error")
	ErrHostAgentUnavailable   = newError(http.StatusBadGateway, "host agent unavailable")

	// host errors
	ErrHostNotFound     = newError(http.StatusNotFound, "host not found")
	ErrNoEligibleHost   = newError(http.StatusUnprocessableEntity, "no host is available for placement")
	ErrHostNotInstalled = newError(http.StatusConflict, "host has not been installed")

	// storage errors
	ErrStoragePoolNotFound   = newError(http.StatusNotFound, "storage pool not found")
	ErrStorageObjectNotFound = newError(http.StatusNotFound, "storage object not found")
	ErrBootSourceNotFound    = newError(http.StatusNotFound, "boot source not found")

	// transfer errors
	ErrTransferNotFound = newError(http.StatusNotFound, "transfer not found")

	// vm errors
	ErrVMNotFound = newError(http.StatusNotFound, "vm not found")

	// job errors
	ErrJobNotFound = newError(http.StatusNotFound, "job not found")
)
