package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Therealpare/Bookstore/internal/catalog"
)

// handleListBooks serves the catalog snapshot, optionally filtered. Both
// search and category filtering run against the local live copy.
func (s *Server) handleListBooks(c *gin.Context) {
	var books []catalog.Book
	switch {
	case c.Query("q") != "":
		books = s.catalog.Search(c.Query("q"))
	case c.Query("category") != "":
		books = s.catalog.FilterByCategory(c.Query("category"))
	default:
		books = s.catalog.Books()
	}
	respond(c, booksPayload(books))
}

func (s *Server) handleHomeSections(c *gin.Context) {
	top, latest, upcoming := s.catalog.Sections()
	respond(c, gin.H{
		"top":      booksPayload(top),
		"latest":   booksPayload(latest),
		"upcoming": booksPayload(upcoming),
	})
}

// handleGetBook serves the book as of the last catalog refresh, matching
// the detail view's snapshot semantics.
func (s *Server) handleGetBook(c *gin.Context) {
	book, ok := s.catalog.Get(c.Param("id"))
	if !ok {
		respondError(c, http.StatusNotFound, "book not found")
		return
	}
	respond(c, bookPayload(book))
}

func (s *Server) handleCategories(c *gin.Context) {
	respond(c, catalog.Categories)
}

// bookPayload restores the record key, which Book keeps out of its stored
// JSON form.
func bookPayload(b catalog.Book) gin.H {
	return gin.H{
		"id":          b.ID,
		"title":       b.Title,
		"author":      b.Author,
		"category":    b.Category,
		"publisher":   b.Publisher,
		"ISBN":        b.ISBN,
		"price":       b.Price.String(),
		"stock":       b.Stock,
		"description": b.Description,
		"picture":     b.Picture,
	}
}

func booksPayload(books []catalog.Book) []gin.H {
	out := make([]gin.H, len(books))
	for i, b := range books {
		out[i] = bookPayload(b)
	}
	return out
}
