package database

import "errors"

var (
	ErrNodeNotFound      = errors.New("node not found or user is not the owner")
	ErrDuplicateNodeName = errors.New("a node with the same name already exists in this folder")
	ErrInvalidHierarchy  = errors.New("cannot move a node into itself or its own descendant")
	ErrTargetNotFound    = errors.New("target folder does not exist or is in trash")
	ErrNotAFolder        = errors.New("target node is not a folder")
	ErrQuotaExceeded     = errors.New("storage quota exceeded")
	ErrWrongLockSecret   = errors.New("wrong lock secret")
	ErrAlreadyLocked     = errors.New("folder is already locked")
	ErrNotLocked         = errors.New("folder is not locked")
)
