package domain

import "errors"

var (
	ErrInvalidArticle = errors.New("invalid article")
	ErrInvalidSource  = errors.New("invalid source")
	ErrNotFound       = errors.New("not found")
	ErrAlreadyExists  = errors.New("already exists")
)
