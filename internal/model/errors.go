package model

import "errors"

var (
	ErrFolderNotFound  = errors.New("folder not found")
	ErrPromptNotFound  = errors.New("prompt not found")
	ErrInvalidSettings = errors.New("invalid settings")
)
