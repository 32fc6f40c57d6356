package api

import (
	"mime/multipart"
	"net/http"

	"careshare-service/internal/apperr"
	"careshare-service/internal/service"

	"github.com/gin-gonic/gin"
)

func (h *Handler) addProduct(c *gin.Context) {
	in := service.NewListing{
		Name:        c.PostForm("name"),
		Price:       c.PostForm("price"),
		Category:    c.PostForm("category"),
		Type:        c.PostForm("type"),
		Description: c.PostForm("description"),
		Condition:   c.PostForm("condition"),
	}

	image, closeImage, err := formUpload(c, "image")
	if err != nil {
		respondError(c, err)
		return
	}
	defer closeImage()

	product, err := h.listings.Submit(c.Request.Context(), identityFrom(c), in, image)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusCreated, "Product submitted successfully and is pending approval", gin.H{"product": product})
}

func (h *Handler) myProducts(c *gin.Context) {
	products, err := h.listings.ListMine(c.Request.Context(), identityFrom(c), c.Param("status"))
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, "Products retrieved successfully", gin.H{
		"products": products,
		"count":    len(products),
	})
}

func (h *Handler) availableProducts(c *gin.Context) {
	h.listAvailable(c, service.AvailableFilter{
		Type:     c.Query("type"),
		Category: c.Query("category"),
		Sort:     c.Query("sort"),
	})
}

func (h *Handler) availableProductsByType(c *gin.Context) {
	h.listAvailable(c, service.AvailableFilter{
		Type:     c.Param("type"),
		Category: c.Query("category"),
		Sort:     c.Query("sort"),
	})
}

func (h *Handler) listAvailable(c *gin.Context, f service.AvailableFilter) {
	products, err := h.listings.ListAvailable(c.Request.Context(), f)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, "Products retrieved successfully", gin.H{
		"products": products,
		"count":    len(products),
	})
}

func (h *Handler) getProduct(c *gin.Context) {
	id, err := parseID(c, "id")
	if err != nil {
		respondError(c, err)
		return
	}

	product, err := h.listings.Get(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, "Product retrieved successfully", gin.H{"product": product})
}

// formUpload opens an optional multipart file. The returned close func is
// always safe to call.
func formUpload(c *gin.Context, field string) (*service.Upload, func(), error) {
	header, err := c.FormFile(field)
	if err == http.ErrMissingFile {
		return nil, func() {}, nil
	}
	if err != nil {
		return nil, func() {}, apperr.Validation("Invalid multipart form")
	}

	file, err := header.Open()
	if err != nil {
		return nil, func() {}, apperr.Wrap(err, "Failed to read uploaded file")
	}
	return uploadFrom(header, file), func() { _ = file.Close() }, nil
}

func uploadFrom(header *multipart.FileHeader, file multipart.File) *service.Upload {
	return &service.Upload{
		Filename: header.Filename,
		Size:     header.Size,
		Content:  file,
	}
}
