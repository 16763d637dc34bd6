/*
Package errs provides custom error types and application-level error code constants.

The codes identify specific business or system errors both server-side and in
payloads sent to clients over REST and the websocket error event.
*/
package errs

// 1xxx: General Request Handling Errors
const (
	// ErrInvalidParams indicates that request parameter validation failed.
	ErrInvalidParams = 1001

	// ErrUnsupportedMediaType indicates that the request Content-Type is not supported.
	ErrUnsupportedMediaType = 1002

	// ErrInvalidJSONFormat indicates that the request body JSON is malformed.
	ErrInvalidJSONFormat = 1003

	// ErrExtraContentInBody indicates trailing content after valid JSON data.
	ErrExtraContentInBody = 1004

	// ErrFormParseFailed indicates failure to parse multipart or URL-encoded form data.
	ErrFormParseFailed = 1005

	// ErrRequestEntityTooLarge indicates that the request body exceeded the server limit.
	ErrRequestEntityTooLarge = 1006

	// ErrRateLimitExceeded indicates that the request rate exceeded the configured limit.
	ErrRateLimitExceeded = 1007
)

// 2xxx: Message and Content Errors
const (
	// ErrMessageContentMissing indicates a message carrying neither body text nor an attachment.
	ErrMessageContentMissing = 2101

	// ErrMessageContentTooLong indicates message body text over the maximum length.
	ErrMessageContentTooLong = 2102

	// ErrChatIDMismatch indicates a chat id that does not match the canonical id for the sender/recipient pair.
	ErrChatIDMismatch = 2103

	// ErrAttachmentKindInvalid indicates an attachment whose media kind is not image or pdf.
	ErrAttachmentKindInvalid = 2104

	// ErrFileSizeTooLarge indicates an uploaded file over the size cap.
	ErrFileSizeTooLarge = 2105

	// ErrFileTypeInvalid indicates an uploaded file whose MIME type is not accepted.
	ErrFileTypeInvalid = 2106
)

// 3xxx: Identity and Session Errors
const (
	// ErrUnauthorized indicates a missing or invalid bearer credential.
	ErrUnauthorized = 3001

	// ErrIdentityMismatch indicates an event whose claimed identity disagrees with the connection's bound identity.
	ErrIdentityMismatch = 3002

	// ErrNotJoined indicates an event arriving before the connection announced its identity.
	ErrNotJoined = 3003
)

// 4xxx: Relay and Signaling Errors
const (
	// ErrYouBlockedPeer indicates the sender has blocked the recipient.
	ErrYouBlockedPeer = 4101

	// ErrBlockedByPeer indicates the recipient has blocked the sender.
	ErrBlockedByPeer = 4102

	// ErrPersistenceFailed indicates the message store rejected the append; nothing was delivered.
	ErrPersistenceFailed = 4201

	// ErrCalleeOffline indicates a call attempt toward an identity with no live connection.
	ErrCalleeOffline = 4301

	// ErrCallerGone indicates the caller disappeared before the answer could be relayed.
	ErrCallerGone = 4302

	// ErrStaleCallSession indicates a signaling event for a call session that no longer exists.
	ErrStaleCallSession = 4303
)

// 5xxx: Internal System Errors
const (
	// ErrUnknown represents an unclassified server internal error.
	ErrUnknown = 5000

	// ErrFileStorageFailed indicates a failure talking to the attachment storage backend.
	ErrFileStorageFailed = 5001
)
