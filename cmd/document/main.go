package main

import (
	"log"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"bibliotech/pkg/config"
	"bibliotech/pkg/database"
	"bibliotech/pkg/models"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

var (
	db          *gorm.DB
	syncer      *reservationSyncer
	storagePath string
)

func main() {
	log.Println("Starting document service...")

	cfg, err := config.LoadDocument()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	db = database.InitDocumentDB(cfg.DB)
	storagePath = cfg.StoragePath
	if err := os.MkdirAll(storagePath, 0o755); err != nil {
		log.Fatalf("Failed to create storage directory: %v", err)
	}

	syncer = newReservationSyncer(cfg.LoanServiceURL, cfg.SyncInterval, cfg.SyncMaxRetries)
	syncer.Start()

	server := gin.Default()
	corsCfg := cors.DefaultConfig()
	corsCfg.AllowOrigins = cfg.CORSOrigins
	server.Use(cors.New(corsCfg))

	server.POST("/api/v1/documents", createDocument)
	server.GET("/api/v1/documents", getDocuments)
	server.GET("/api/v1/documents/count", countDocuments)
	server.GET("/api/v1/documents/:documentUid", getDocument)
	server.PUT("/api/v1/documents/:documentUid", updateDocument)
	server.DELETE("/api/v1/documents/:documentUid", deleteDocument)
	server.POST("/api/v1/documents/upload", uploadFile)
	server.GET("/manage/health", healthCheck)

	log.Printf("Document service starting on :%s", cfg.Port)
	if err := server.Run(":" + cfg.Port); err != nil {
		log.Fatalf("Server failed: %v", err)
	}
}

func createDocument(c *gin.Context) {
	var request struct {
		Title      string `json:"title" binding:"required"`
		Author     string `json:"author"`
		Summary    string `json:"summary"`
		Status     string `json:"status"`
		IsPhysical *bool  `json:"isPhysical"`
		IsDigital  *bool  `json:"isDigital"`
		FilePath   string `json:"filePath"`
		CoverImage string `json:"coverImage"`
	}
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request", "details": err.Error()})
		return
	}

	isPhysical := true
	if request.IsPhysical != nil {
		isPhysical = *request.IsPhysical
	}
	isDigital := false
	if request.IsDigital != nil {
		isDigital = *request.IsDigital
	}
	if !isPhysical && !isDigital {
		c.JSON(http.StatusBadRequest, gin.H{"error": "document must be physical, digital or both"})
		return
	}
	if isDigital && request.FilePath == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "digital documents require a filePath"})
		return
	}

	status := request.Status
	if status == "" {
		status = models.DocStatusAvailable
	}
	if !validDocStatus(status) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid status " + status})
		return
	}

	filePath := ""
	if request.FilePath != "" {
		filePath = filepath.Base(request.FilePath)
	}
	document := models.Document{
		DocumentUid: uuid.New().String(),
		Title:       request.Title,
		Author:      request.Author,
		Summary:     request.Summary,
		Status:      status,
		IsPhysical:  isPhysical,
		IsDigital:   isDigital,
		FilePath:    filePath,
		CoverImage:  request.CoverImage,
	}
	if err := db.Create(&document).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create document"})
		return
	}

	log.Printf("Document created: %s (%s)", document.Title, document.DocumentUid)
	c.JSON(http.StatusCreated, docJSON(&document))
}

func getDocuments(c *gin.Context) {
	page, err := strconv.Atoi(c.DefaultQuery("page", "1"))
	if err != nil || page < 1 {
		page = 1
	}
	size, err := strconv.Atoi(c.DefaultQuery("size", "100"))
	if err != nil || size < 1 || size > 100 {
		size = 100
	}

	query := db.Model(&models.Document{})
	if search := c.Query("search"); search != "" {
		pattern := "%" + search + "%"
		query = query.Where("title LIKE ? OR author LIKE ?", pattern, pattern)
	}
	if status := c.Query("status"); status != "" {
		if !validDocStatus(status) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid status " + status})
			return
		}
		query = query.Where("status = ?", status)
	}
	if v := c.Query("isPhysical"); v != "" {
		isPhysical, err := strconv.ParseBool(v)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid isPhysical value"})
			return
		}
		query = query.Where("is_physical = ?", isPhysical)
	}
	if v := c.Query("isDigital"); v != "" {
		isDigital, err := strconv.ParseBool(v)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid isDigital value"})
			return
		}
		query = query.Where("is_digital = ?", isDigital)
	}

	var totalElements int64
	query.Count(&totalElements)

	var documents []models.Document
	offset := (page - 1) * size
	if err := query.Order("title").Offset(offset).Limit(size).Find(&documents).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	items := make([]gin.H, len(documents))
	for i := range documents {
		items[i] = docJSON(&documents[i])
	}
	c.JSON(http.StatusOK, gin.H{
		"page":          page,
		"pageSize":      size,
		"totalElements": totalElements,
		"items":         items,
	})
}

func countDocuments(c *gin.Context) {
	query := db.Model(&models.Document{})
	if status := c.Query("status"); status != "" {
		if !validDocStatus(status) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid status " + status})
			return
		}
		query = query.Where("status = ?", status)
	}
	var count int64
	if err := query.Count(&count).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"count": count})
}

func getDocument(c *gin.Context) {
	var document models.Document
	if err := db.Where("document_uid = ?", c.Param("documentUid")).First(&document).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "document not found"})
		return
	}
	c.JSON(http.StatusOK, docJSON(&document))
}

func updateDocument(c *gin.Context) {
	var document models.Document
	if err := db.Where("document_uid = ?", c.Param("documentUid")).First(&document).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "document not found"})
		return
	}

	var request struct {
		Title      *string `json:"title"`
		Author     *string `json:"author"`
		Summary    *string `json:"summary"`
		Status     *string `json:"status"`
		IsPhysical *bool   `json:"isPhysical"`
		IsDigital  *bool   `json:"isDigital"`
		FilePath   *string `json:"filePath"`
		CoverImage *string `json:"coverImage"`
	}
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request", "details": err.Error()})
		return
	}

	previousStatus := document.Status
	if request.Title != nil {
		document.Title = *request.Title
	}
	if request.Author != nil {
		document.Author = *request.Author
	}
	if request.Summary != nil {
		document.Summary = *request.Summary
	}
	if request.Status != nil {
		if !validDocStatus(*request.Status) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid status " + *request.Status})
			return
		}
		document.Status = *request.Status
	}
	if request.IsPhysical != nil {
		document.IsPhysical = *request.IsPhysical
	}
	if request.IsDigital != nil {
		document.IsDigital = *request.IsDigital
	}
	if request.FilePath != nil {
		document.FilePath = filepath.Base(*request.FilePath)
	}
	if request.CoverImage != nil {
		document.CoverImage = *request.CoverImage
	}
	if !document.IsPhysical && !document.IsDigital {
		c.JSON(http.StatusBadRequest, gin.H{"error": "document must be physical, digital or both"})
		return
	}

	if err := db.Save(&document).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to update document"})
		return
	}

	// A physical copy coming back to the shelf releases its holds.
	if document.IsPhysical && document.Status == models.DocStatusAvailable && previousStatus != models.DocStatusAvailable {
		syncer.Notify(document.DocumentUid)
	}

	c.JSON(http.StatusOK, docJSON(&document))
}

func deleteDocument(c *gin.Context) {
	var document models.Document
	if err := db.Where("document_uid = ?", c.Param("documentUid")).First(&document).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "document not found"})
		return
	}
	if err := db.Delete(&document).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to delete document"})
		return
	}
	log.Printf("Document deleted: %s", document.DocumentUid)
	c.Status(http.StatusNoContent)
}

func uploadFile(c *gin.Context) {
	file, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing file"})
		return
	}
	if !strings.EqualFold(filepath.Ext(file.Filename), ".pdf") {
		c.JSON(http.StatusBadRequest, gin.H{"error": "only PDF files are accepted"})
		return
	}

	fileName := uuid.New().String() + ".pdf"
	if err := c.SaveUploadedFile(file, filepath.Join(storagePath, fileName)); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to store file"})
		return
	}

	log.Printf("File uploaded: %s (original %s)", fileName, file.Filename)
	c.JSON(http.StatusCreated, gin.H{"filename": fileName})
}

func healthCheck(c *gin.Context) {
	sqlDB, err := db.DB()
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status":  "DOWN",
			"details": "Database connection failed",
			"error":   err.Error(),
		})
		return
	}
	if err := sqlDB.Ping(); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status":  "DOWN",
			"details": "Database ping failed",
			"error":   err.Error(),
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "UP", "pendingSyncs": syncer.pending.Size()})
}

func validDocStatus(status string) bool {
	return status == models.DocStatusAvailable || status == models.DocStatusCheckedOut
}

func docJSON(document *models.Document) gin.H {
	return gin.H{
		"documentUid": document.DocumentUid,
		"title":       document.Title,
		"author":      document.Author,
		"summary":     document.Summary,
		"status":      document.Status,
		"isPhysical":  document.IsPhysical,
		"isDigital":   document.IsDigital,
		"filePath":    document.FilePath,
		"coverImage":  document.CoverImage,
	}
}
