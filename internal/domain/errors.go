package domain

import "errors"

var (
	ErrInvalidArgument         = errors.New("invalid argument")
	ErrUnsupportedDocumentType = errors.New("unsupported document type")
	ErrIndexOutOfRange         = errors.New("retrieval index out of range")
	ErrExternalService         = errors.New("external service error")
)
