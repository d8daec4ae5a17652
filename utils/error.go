package utils

import "errors"

var (
	ErrorRecordNotFound     = errors.New("record not found")
	ErrorBusinessIdRequired = errors.New("business id is required")
	ErrorLockNotObtained    = errors.New("could not obtain lock")
)
