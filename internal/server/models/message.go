// Package models defines server-side data models persisted in the database.
package models

import "time"

// Message is a single chat message. Timestamp and EditedAt are always UTC;
// EditedAt stays nil until the first edit and is never before Timestamp.
//
// The Quoted* fields are a denormalized snapshot captured when the message
// was posted: if the quoted message or its author is deleted later, the
// quote still renders. They are never re-resolved after the fact.
type Message struct {
	ID         int64
	UserID     int64
	AuthorName string
	Content    string
	Timestamp  time.Time
	EditedAt   *time.Time
	Reactions  ReactionMap

	QuotedMessageID *int64
	QuotedAuthor    *string
	QuotedContent   *string
}
