/*
Package errs provides custom error types and application-level error code constants.

This file maps every error code to its CustomError template, standardizing the
user-facing message and HTTP status per code.
*/
package errs

import "net/http"

// errorMap stores the CustomError template for every application error code.
// A zero Status defaults to 200 with the business code carried in the payload.
var errorMap = map[int]CustomError{
	// 1xxx: General Request Handling Errors
	ErrInvalidParams:         {Code: ErrInvalidParams, Message: "Invalid request parameters.", Status: http.StatusBadRequest},
	ErrUnsupportedMediaType:  {Code: ErrUnsupportedMediaType, Message: "Unsupported request format.", Status: http.StatusUnsupportedMediaType},
	ErrInvalidJSONFormat:     {Code: ErrInvalidJSONFormat, Message: "Unsupported request format.", Status: http.StatusBadRequest},
	ErrExtraContentInBody:    {Code: ErrExtraContentInBody, Message: "Request contains unexpected data.", Status: http.StatusBadRequest},
	ErrFormParseFailed:       {Code: ErrFormParseFailed, Message: "Failed to process uploaded data.", Status: http.StatusBadRequest},
	ErrRequestEntityTooLarge: {Code: ErrRequestEntityTooLarge, Message: "Request size is too large.", Status: http.StatusRequestEntityTooLarge},
	ErrRateLimitExceeded:     {Code: ErrRateLimitExceeded, Message: "Too many requests. Please try again later.", Status: http.StatusTooManyRequests},

	// 2xxx: Message and Content Errors
	ErrMessageContentMissing: {Code: ErrMessageContentMissing, Message: "Message needs text or an attachment.", Status: http.StatusBadRequest},
	ErrMessageContentTooLong: {Code: ErrMessageContentTooLong, Message: "Message is too long.", Status: http.StatusBadRequest},
	ErrChatIDMismatch:        {Code: ErrChatIDMismatch, Message: "Chat id does not match the conversation participants.", Status: http.StatusBadRequest},
	ErrAttachmentKindInvalid: {Code: ErrAttachmentKindInvalid, Message: "Attachment type is not supported.", Status: http.StatusBadRequest},
	ErrFileSizeTooLarge:      {Code: ErrFileSizeTooLarge, Message: "File is too large.", Status: http.StatusBadRequest},
	ErrFileTypeInvalid:       {Code: ErrFileTypeInvalid, Message: "File type is not supported.", Status: http.StatusBadRequest},

	// 3xxx: Identity and Session Errors
	ErrUnauthorized:     {Code: ErrUnauthorized, Message: "Please sign in to continue.", Status: http.StatusUnauthorized},
	ErrIdentityMismatch: {Code: ErrIdentityMismatch, Message: "You can only act as your own identity.", Status: http.StatusForbidden},
	ErrNotJoined:        {Code: ErrNotJoined, Message: "Announce your identity before sending.", Status: http.StatusBadRequest},

	// 4xxx: Relay and Signaling Errors
	ErrYouBlockedPeer:    {Code: ErrYouBlockedPeer, Message: "You have blocked %s. Unblock them to send messages.", Status: http.StatusForbidden},
	ErrBlockedByPeer:     {Code: ErrBlockedByPeer, Message: "You are blocked by %s.", Status: http.StatusForbidden},
	ErrPersistenceFailed: {Code: ErrPersistenceFailed, Message: "Message could not be saved. Please try again.", Status: http.StatusInternalServerError},
	ErrCalleeOffline:     {Code: ErrCalleeOffline, Message: "%s is not available right now.", Status: http.StatusOK},
	ErrCallerGone:        {Code: ErrCallerGone, Message: "The caller is no longer connected.", Status: http.StatusOK},
	ErrStaleCallSession:  {Code: ErrStaleCallSession, Message: "This call has already ended.", Status: http.StatusOK},

	// 5xxx: Internal System Errors
	ErrUnknown:           {Code: ErrUnknown, Message: "Something went wrong. Please try again.", Status: http.StatusInternalServerError},
	ErrFileStorageFailed: {Code: ErrFileStorageFailed, Message: "File upload failed. Please try again.", Status: http.StatusInternalServerError},
}
