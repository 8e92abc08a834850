package library

import (
	"context"
	"errors"
	"sort"
	"strings"

	"penx/internal/apperr"
	"penx/internal/database"
	"penx/internal/shared"
	"penx/pkg/models"
)

// BuildCommentTree arranges the rows of one book into a forest. Rows are
// ordered by creation time then id. A live comment is attached under its
// parent when the parent is a live comment of the same rows; a reply whose
// parent was deleted is dropped; anything else is top-level.
func BuildCommentTree(rows []models.Comment) []*models.CommentNode {
	sorted := make([]models.Comment, len(rows))
	copy(sorted, rows)
	sort.SliceStable(sorted, func(i, j int) bool {
		a, b := sorted[i], sorted[j]
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.Before(b.CreatedAt)
		}
		return a.ID < b.ID
	})

	all := make(map[int64]models.Comment, len(sorted))
	nodes := make(map[int64]*models.CommentNode, len(sorted))
	for _, c := range sorted {
		all[c.ID] = c
		if !c.Deleted() {
			nodes[c.ID] = &models.CommentNode{Comment: c, Type: "comment", Replies: []*models.CommentNode{}}
		}
	}

	tree := []*models.CommentNode{}
	for _, c := range sorted {
		node, live := nodes[c.ID]
		if !live {
			continue
		}
		if c.ParentID != nil && *c.ParentID != c.ID {
			if parent, ok := all[*c.ParentID]; ok {
				if parent.Deleted() {
					continue
				}
				node.Type = "reply"
				nodes[parent.ID].Replies = append(nodes[parent.ID].Replies, node)
				continue
			}
		}
		tree = append(tree, node)
	}
	return tree
}

// CommentTree returns the live comments of a book with their replies.
func (s *Service) CommentTree(ctx context.Context, bookID string) ([]*models.CommentNode, error) {
	rows, err := s.db.CommentsForBook(ctx, bookID)
	if err != nil {
		return nil, apperr.Internal("Failed to fetch comments", err)
	}
	return BuildCommentTree(rows), nil
}

// AddComment stores a comment, or a reply when ParentID is set and non-zero.
// A reply's parent must exist, must not be deleted and must be top-level.
// The parent may belong to another book.
func (s *Service) AddComment(ctx context.Context, req models.CommentRequest) (models.Comment, error) {
	c := models.Comment{
		BookID:    strings.TrimSpace(req.BookID),
		UserEmail: strings.TrimSpace(req.UserEmail),
		UserName:  strings.TrimSpace(req.UserName),
		Comment:   strings.TrimSpace(req.Comment),
		ParentID:  req.ParentID,
	}
	if c.ParentID != nil && *c.ParentID == 0 {
		c.ParentID = nil
	}
	if c.BookID == "" || c.UserEmail == "" || c.UserName == "" || c.Comment == "" {
		return models.Comment{}, badRequest("All fields are required")
	}

	if c.ParentID != nil {
		parent, err := s.db.CommentByID(ctx, *c.ParentID)
		switch {
		case errors.Is(err, database.ErrNotFound):
			return models.Comment{}, badRequest("Parent comment not found")
		case err != nil:
			return models.Comment{}, apperr.Internal("Failed to add comment", err)
		case parent.Deleted():
			return models.Comment{}, badRequest("Cannot reply to a deleted comment")
		case parent.ParentID != nil:
			return models.Comment{}, badRequest("Replies cannot be nested")
		}
	}

	saved, err := s.db.InsertComment(ctx, c)
	if err != nil {
		return models.Comment{}, apperr.Internal("Failed to add comment", err)
	}
	if s.feed != nil {
		s.feed.Publish(shared.NewCommentAdded(saved))
	}
	return saved, nil
}

// DeleteComment soft deletes a comment owned by userEmail. Unknown ids and
// comments of other users are reported the same way.
func (s *Service) DeleteComment(ctx context.Context, id int64, userEmail string) error {
	userEmail = strings.TrimSpace(userEmail)
	if userEmail == "" {
		return badRequest("User email is required")
	}

	err := s.db.SoftDeleteComment(ctx, id, userEmail)
	if errors.Is(err, database.ErrNotFound) {
		return notFound("Comment not found or you do not have permission to delete it", err)
	}
	if err != nil {
		return apperr.Internal("Failed to delete comment", err)
	}

	if s.feed != nil {
		if c, err := s.db.CommentByID(ctx, id); err == nil {
			s.feed.Publish(shared.NewCommentDeleted(c.BookID, id))
		}
	}
	return nil
}
