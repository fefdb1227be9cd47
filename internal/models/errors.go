package models

import "errors"

// Application-wide standard errors
var (
	// Common Resource/DB Errors
	ErrNotFound         = errors.New("resource not found") // General not found
	ErrStoryNotFound    = errors.New("story not found")
	ErrSceneNotFound    = errors.New("scene not found")
	ErrSessionNotFound  = errors.New("session not found")
	ErrPlaylistNotFound = errors.New("playlist not found")

	// Auth Errors
	ErrUnauthorized   = errors.New("unauthorized") // Authentication required or failed
	ErrForbidden      = errors.New("forbidden")    // Authenticated, but lacks permission
	ErrTokenInvalid   = errors.New("token is invalid")
	ErrTokenMalformed = errors.New("token is malformed")
	ErrTokenExpired   = errors.New("token has expired")

	// Generation Errors
	ErrEmptyText             = errors.New("text is empty")
	ErrStoryTextMissing      = errors.New("story has no generated text")
	ErrNoScenesParsed        = errors.New("could not structure story text into scenes")
	ErrGenerationInProgress  = errors.New("generation is already in progress for this story")
	ErrSceneExists           = errors.New("scene with this number already exists")
	ErrNoAudioProduced       = errors.New("no audio produced")
	ErrAllImageProvidersDown = errors.New("all image providers failed")

	// Session Errors
	ErrSessionAlreadyEnded = errors.New("session is already ended")

	// General Request/Server Errors
	ErrInternalServer = errors.New("internal server error")
	ErrBadRequest     = errors.New("bad request")
	ErrInvalidInput   = errors.New("invalid input data")
)
