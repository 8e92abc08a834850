package models

import (
	"time"
)

// BookMetadata is the book.json document stored in every book folder. Field
// names match the files already on disk.
type BookMetadata struct {
	Title       string   `json:"Title"`
	Author      string   `json:"Author"`
	Language    string   `json:"Language"`
	Genres      []string `json:"Genres"`
	Description string   `json:"Description"`
	Cover       string   `json:"Cover"`
	Pdf         string   `json:"Pdf"`
}

// BookEntry is a metadata document together with its folder name.
type BookEntry struct {
	ID string `json:"id"`
	BookMetadata
}

// BookDetail is the reader-facing view of one book.
type BookDetail struct {
	BookEntry
	DescriptionHTML string        `json:"descriptionHtml"`
	Rating          RatingSummary `json:"rating"`
}

// Author is a registered author account.
type Author struct {
	ID             int64     `json:"id"`
	Name           string    `json:"name"`
	Email          string    `json:"email"`
	PasswordHash   string    `json:"-"`
	Bio            string    `json:"bio"`
	InstitutionID  *int64    `json:"institution"`
	ProfilePicture *string   `json:"profilePicture"`
	CreatedAt      time.Time `json:"created_at"`
}

// AuthorProfile is an author with the institution they belong to, when it
// could be loaded.
type AuthorProfile struct {
	Author
	InstitutionDetails *Institution `json:"institutionDetails,omitempty"`
}

// Institution groups authors under one organisation.
type Institution struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Website     string    `json:"website"`
	Location    string    `json:"location"`
	AdminID     int64     `json:"admin_id"`
	CreatedAt   time.Time `json:"created_at"`
}

// Book is the relational record linking an author to a book folder.
type Book struct {
	ID         int64     `json:"id"`
	AuthorID   int64     `json:"author_id"`
	FolderName string    `json:"folder_name"`
	CreatedAt  time.Time `json:"created_at"`
}

// AuthorBook is a Book joined with its metadata. The metadata fields stay
// empty when book.json is missing or unreadable.
type AuthorBook struct {
	Book
	Title    string   `json:"title,omitempty"`
	Author   string   `json:"author,omitempty"`
	Cover    string   `json:"cover,omitempty"`
	Language string   `json:"language,omitempty"`
	Genres   []string `json:"genres,omitempty"`
}

// Comment is one comment or reply on a book.
type Comment struct {
	ID        int64      `json:"id"`
	BookID    string     `json:"book_id"`
	UserEmail string     `json:"user_email"`
	UserName  string     `json:"user_name"`
	Comment   string     `json:"comment"`
	ParentID  *int64     `json:"parent_id"`
	CreatedAt time.Time  `json:"created_at"`
	DeletedAt *time.Time `json:"-"`
}

// Deleted reports whether the comment has been soft deleted.
func (c Comment) Deleted() bool { return c.DeletedAt != nil }

// CommentNode is a comment with its direct replies.
type CommentNode struct {
	Comment
	Type    string         `json:"type"`
	Replies []*CommentNode `json:"replies"`
}

// Review is one reader's rating of a book.
type Review struct {
	ID         int64     `json:"id"`
	BookID     string    `json:"book_id"`
	UserEmail  string    `json:"user_email"`
	UserName   string    `json:"user_name"`
	Rating     int       `json:"rating"`
	ReviewText string    `json:"review_text"`
	CreatedAt  time.Time `json:"created_at"`
}

// RatingSummary is the mean rating of a book, rounded to one decimal.
type RatingSummary struct {
	AverageRating float64 `json:"averageRating"`
	TotalReviews  int     `json:"totalReviews"`
}

// Reader is one row of the reader accounts file.
type Reader struct {
	FirstName      string `json:"firstName"`
	LastName       string `json:"lastName"`
	Email          string `json:"email"`
	Password       string `json:"-"`
	ProfilePicture string `json:"profilePicture"`
}

// ReaderStats summarises a reader's activity.
type ReaderStats struct {
	FirstName      string   `json:"firstName"`
	LastName       string   `json:"lastName"`
	Email          string   `json:"email"`
	BooksRead      int      `json:"booksRead"`
	FavoriteGenres []string `json:"favoriteGenres"`
	ProfilePicture string   `json:"profilePicture"`
}

// BookStats is the engagement of one reader with one book plus global counts.
type BookStats struct {
	IsFavorited bool `json:"isFavorited"`
	HasRead     bool `json:"hasRead"`
	Reads       int  `json:"reads"`
	Favorites   int  `json:"favorites"`
}

// InstitutionAuthor is one author row of the institution rollup.
type InstitutionAuthor struct {
	Name           string `json:"name"`
	Score          int    `json:"score"`
	Publications   int    `json:"publications"`
	ProfilePicture string `json:"profilePicture"`
}

// InstitutionRollup aggregates publications across all book folders.
type InstitutionRollup struct {
	Name                   string              `json:"name"`
	CollectiveScore        int                 `json:"collectiveScore"`
	CollectivePublications int                 `json:"collectivePublications"`
	Authors                []InstitutionAuthor `json:"authors"`
}

// AuthorStats counts the publications credited to one author name.
type AuthorStats struct {
	Score        int `json:"score"`
	Publications int `json:"publications"`
}

// BookSummary is a book with its engagement totals.
type BookSummary struct {
	ID        string   `json:"id"`
	Title     string   `json:"title"`
	Author    string   `json:"author"`
	Language  string   `json:"language"`
	Genres    []string `json:"genres"`
	Reads     int      `json:"reads"`
	Favorites int      `json:"favorites"`
}

// AuthorSummary ranks an author by publications and reads.
type AuthorSummary struct {
	Name         string `json:"name"`
	Publications int    `json:"publications"`
	TotalReads   int    `json:"totalReads"`
}

type LanguageCount struct {
	Language string `json:"language"`
	Count    int    `json:"count"`
}

type GenreCount struct {
	Genre string `json:"genre"`
	Count int    `json:"count"`
}

// Activity is one entry of the dashboard activity feed.
type Activity struct {
	Type        string    `json:"type"`
	Description string    `json:"description"`
	Time        string    `json:"time"`
	Timestamp   time.Time `json:"timestamp"`
}

// Analytics is the admin dashboard payload.
type Analytics struct {
	TotalReaders         int             `json:"totalReaders"`
	TotalAuthors         int             `json:"totalAuthors"`
	TotalBooks           int             `json:"totalBooks"`
	TotalReads           int             `json:"totalReads"`
	TotalFavorites       int             `json:"totalFavorites"`
	TopBooks             []BookSummary   `json:"topBooks"`
	TopAuthors           []AuthorSummary `json:"topAuthors"`
	LanguageDistribution []LanguageCount `json:"languageDistribution"`
	GenreDistribution    []GenreCount    `json:"genreDistribution"`
	RecentActivity       []Activity      `json:"recentActivity"`
}

// ReaderSignupRequest for reader registration
type ReaderSignupRequest struct {
	FirstName string `json:"firstName" binding:"required"`
	LastName  string `json:"lastName" binding:"required"`
	Email     string `json:"email" binding:"required"`
	Password  string `json:"password" binding:"required"`
}

// LoginRequest for reader and author login
type LoginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// AuthorSignupRequest for author registration
type AuthorSignupRequest struct {
	Name        string `json:"name" binding:"required"`
	Email       string `json:"email" binding:"required"`
	Password    string `json:"password" binding:"required"`
	Bio         string `json:"bio"`
	Institution *int64 `json:"institution"`
}

// AuthResponse after successful author signup or login
type AuthResponse struct {
	Success  bool   `json:"success"`
	Token    string `json:"token"`
	AuthorID int64  `json:"authorId"`
}

// AdminLoginRequest for the dashboard login
type AdminLoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// TokenResponse carries an admin token
type TokenResponse struct {
	Token string `json:"token"`
}

// CommentRequest adds a comment, or a reply when ParentID is set
type CommentRequest struct {
	BookID    string `json:"bookId" binding:"required"`
	UserEmail string `json:"userEmail" binding:"required"`
	UserName  string `json:"userName" binding:"required"`
	Comment   string `json:"comment" binding:"required"`
	ParentID  *int64 `json:"parentId"`
}

// DeleteCommentRequest identifies the caller deleting a comment
type DeleteCommentRequest struct {
	UserEmail string `json:"userEmail" binding:"required"`
}

// ReviewRequest adds or replaces a review
type ReviewRequest struct {
	BookID     string `json:"bookId" binding:"required"`
	UserEmail  string `json:"userEmail" binding:"required"`
	UserName   string `json:"userName" binding:"required"`
	Rating     int    `json:"rating"`
	ReviewText string `json:"reviewText"`
}

// InstitutionRequest creates an institution
type InstitutionRequest struct {
	Name        string `json:"name" binding:"required"`
	Description string `json:"description" binding:"required"`
	Website     string `json:"website"`
	Location    string `json:"location" binding:"required"`
	AdminID     int64  `json:"adminId" binding:"required"`
}

// ToggleFavoriteRequest adds or removes one favorite
type ToggleFavoriteRequest struct {
	Email       string `json:"email" binding:"required"`
	BookID      string `json:"bookId" binding:"required"`
	IsFavorited bool   `json:"isFavorited"`
}

// FavoritesRequest replaces a reader's favorites list
type FavoritesRequest struct {
	Email     string   `json:"email" binding:"required"`
	Favorites []string `json:"favorites"`
}

// TrackReadRequest marks a book as read
type TrackReadRequest struct {
	Email  string `json:"email" binding:"required"`
	BookID string `json:"bookId" binding:"required"`
}

// UpdateBookRequest edits a book's description or genres
type UpdateBookRequest struct {
	BookID      string    `json:"bookId" binding:"required"`
	Description *string   `json:"description"`
	Genres      *[]string `json:"genres"`
}

// ProfilePictureRequest points a reader's picture at an existing path
type ProfilePictureRequest struct {
	Email          string `json:"email" binding:"required"`
	ProfilePicture string `json:"profilePicture" binding:"required"`
}
