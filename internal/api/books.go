package api

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"penx/internal/library"
	"penx/internal/search"
	"penx/pkg/models"
)

// UpdateBookResponse carries the rewritten metadata.
type UpdateBookResponse struct {
	Message  string              `json:"message"`
	BookData models.BookMetadata `json:"bookData"`
}

// AddBookResponse confirms an upload.
type AddBookResponse struct {
	Message string           `json:"message"`
	Book    models.BookEntry `json:"book"`
}

// @Summary      List book folders
// @Tags         Books
// @Produce      json
// @Success      200 {array} string
// @Router       /Books [get]
func (h *Handler) listFolders(c *gin.Context) {
	folders, err := h.svc.ListFolders()
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, folders)
}

// @Summary      List the files of a book
// @Tags         Books
// @Produce      json
// @Param        bookId path string true "Book folder"
// @Success      200 {array} string
// @Failure      404 {object} map[string]string
// @Router       /Books/{bookId} [get]
func (h *Handler) folderFiles(c *gin.Context) {
	files, err := h.svc.FolderFiles(c.Param("bookId"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, files)
}

// @Summary      Download a book file
// @Tags         Books
// @Param        bookId path string true "Book folder"
// @Param        file path string true "File name"
// @Success      200
// @Failure      404 {object} map[string]string
// @Router       /Books/{bookId}/{file} [get]
func (h *Handler) bookFile(c *gin.Context) {
	path, err := h.svc.BookFile(c.Param("bookId"), c.Param("file"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.File(path)
}

// @Summary      List books with metadata
// @Tags         Books
// @Produce      json
// @Success      200 {array} models.BookEntry
// @Router       /api/books [get]
func (h *Handler) books(c *gin.Context) {
	books, err := h.svc.Books(c.Request.Context())
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, books)
}

// @Summary      Search books
// @Tags         Books
// @Produce      json
// @Param        q query string false "Text"
// @Param        language query string false "Language"
// @Param        genre query string false "Genre"
// @Param        limit query int false "Maximum results (at most 100)"
// @Success      200 {array} models.BookEntry
// @Router       /api/books/search [get]
func (h *Handler) searchBooks(c *gin.Context) {
	q := search.Query{
		Q:        c.Query("q"),
		Language: c.Query("language"),
		Genre:    c.Query("genre"),
	}
	if raw := c.Query("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid limit"})
			return
		}
		q.Limit = min(limit, search.MaxLimit)
	}
	books, err := h.svc.SearchBooks(c.Request.Context(), q)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, books)
}

// @Summary      Book detail
// @Tags         Books
// @Produce      json
// @Param        bookId path string true "Book folder"
// @Success      200 {object} models.BookDetail
// @Failure      404 {object} map[string]string
// @Router       /api/books/{bookId} [get]
func (h *Handler) book(c *gin.Context) {
	detail, err := h.svc.Book(c.Request.Context(), c.Param("bookId"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, detail)
}

// @Summary      Publish a book
// @Tags         Books
// @Accept       multipart/form-data
// @Produce      json
// @Security     BearerAuth
// @Param        bookTitle formData string true "Title"
// @Param        authorName formData string true "Author display name"
// @Param        language formData string false "Language"
// @Param        genres formData string false "JSON array of genres"
// @Param        description formData string false "Markdown description"
// @Param        bookCover formData file true "Cover image"
// @Param        bookPdf formData file true "Book pdf"
// @Success      201 {object} api.AddBookResponse
// @Failure      400 {object} map[string]string
// @Router       /api/add-book [post]
func (h *Handler) addBook(c *gin.Context) {
	me, ok := requester(c)
	if !ok {
		return
	}

	cover, doneCover, err := formFile(c, "bookCover")
	if err != nil {
		badRequest(c, err)
		return
	}
	defer doneCover()
	pdf, donePdf, err := formFile(c, "bookPdf")
	if err != nil {
		badRequest(c, err)
		return
	}
	defer donePdf()

	fields := library.NewBook{
		Title:       c.PostForm("bookTitle"),
		AuthorName:  c.PostForm("authorName"),
		Language:    c.PostForm("language"),
		Genres:      c.PostForm("genres"),
		Description: c.PostForm("description"),
	}
	entry, err := h.svc.AddBook(c.Request.Context(), me, fields, cover, pdf)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, AddBookResponse{Message: "Book added successfully!", Book: entry})
}

// @Summary      Edit a book's description or genres
// @Tags         Books
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request body models.UpdateBookRequest true "Changes"
// @Success      200 {object} api.UpdateBookResponse
// @Failure      403 {object} map[string]string
// @Failure      404 {object} map[string]string
// @Router       /api/update-book [post]
func (h *Handler) updateBook(c *gin.Context) {
	me, ok := requester(c)
	if !ok {
		return
	}
	var req models.UpdateBookRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	meta, err := h.svc.UpdateBook(c.Request.Context(), me, req)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, UpdateBookResponse{Message: "Book updated successfully", BookData: meta})
}
