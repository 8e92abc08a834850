package shared

import (
	"time"

	"penx/pkg/models"
)

// Comment event types
const (
	CommentAdded   = "comment_added"
	CommentDeleted = "comment_deleted"
)

// CommentEvent is the message pushed to live comment feed subscribers of a book
type CommentEvent struct {
	Type      string          `json:"type"`
	BookID    string          `json:"bookId"`
	CommentID int64           `json:"commentId"`
	Comment   *models.Comment `json:"comment,omitempty"`
	Timestamp int64           `json:"timestamp"` // Unix timestamp
}

// NewCommentAdded announces a new comment or reply
func NewCommentAdded(c models.Comment) CommentEvent {
	return CommentEvent{
		Type:      CommentAdded,
		BookID:    c.BookID,
		CommentID: c.ID,
		Comment:   &c,
		Timestamp: time.Now().Unix(),
	}
}

// NewCommentDeleted announces a removed comment
func NewCommentDeleted(bookID string, commentID int64) CommentEvent {
	return CommentEvent{
		Type:      CommentDeleted,
		BookID:    bookID,
		CommentID: commentID,
		Timestamp: time.Now().Unix(),
	}
}
