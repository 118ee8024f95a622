package main

// Exit codes for the CLI
const (
	ExitSuccess          = 0
	ExitGeneralError     = 1
	ExitValidation       = 2
	ExitFileError        = 3
	ExitTaskNotFound     = 4
	ExitPermissionDenied = 5
	ExitConflict         = 6
)
