package main

import (
	"errors"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"bibliotech/pkg/clients"
	"bibliotech/pkg/config"
	"bibliotech/pkg/database"
	"bibliotech/pkg/errs"
	"bibliotech/pkg/ledger"
	"bibliotech/pkg/models"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

var (
	db           *gorm.DB
	loans        *ledger.LoanLedger
	reservations *ledger.ReservationLedger
	catalog      ledger.DocumentCatalog
	storagePath  string
)

func main() {
	log.Println("Starting loan service...")

	cfg, err := config.LoadLoan()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	db = database.InitLoanDB(cfg.DB)

	users := clients.NewUserClient(cfg.UserServiceURL, cfg.ClientTimeout)
	docs := clients.NewDocumentClient(cfg.DocumentServiceURL, cfg.ClientTimeout)
	catalog = docs
	checker := ledger.NewChecker(users, docs)
	loans = ledger.NewLoanLedger(db, checker, time.Now)
	reservations = ledger.NewReservationLedger(db, checker, time.Now)
	storagePath = cfg.StoragePath

	server := gin.Default()
	server.Use(cors.New(corsConfig(cfg.CORSOrigins)))

	server.POST("/api/v1/loans/digital", createDigitalLoan)
	server.POST("/api/v1/loans/:loanUid/return", returnLoan)
	server.GET("/api/v1/loans/count", countLoans)
	server.GET("/api/v1/loans/top", topBorrowed)
	server.GET("/api/v1/loans/:loanUid/access", accessDocument)

	server.POST("/api/v1/reservations/physical", createPhysicalReservation)
	server.POST("/api/v1/reservations/:reservationUid/cancel", cancelReservation)
	server.POST("/api/v1/reservations/:reservationUid/honor", honorReservation)
	server.GET("/api/v1/reservations/count", countReservations)
	server.POST("/api/v1/reservations/documents/:documentUid/sync", syncDocumentReservations)

	server.GET("/api/v1/users/:userUid/loans", getUserLoans)
	server.GET("/api/v1/users/:userUid/loans/check", checkActiveLoan)
	server.GET("/api/v1/users/:userUid/reservations", getUserReservations)
	server.GET("/api/v1/users/:userUid/reservations/check", checkActiveReservation)

	server.GET("/manage/health", healthCheck)

	log.Printf("Loan service starting on :%s", cfg.Port)
	if err := server.Run(":" + cfg.Port); err != nil {
		log.Fatalf("Server failed: %v", err)
	}
}

func corsConfig(origins []string) cors.Config {
	corsCfg := cors.DefaultConfig()
	corsCfg.AllowOrigins = origins
	corsCfg.AllowHeaders = append(corsCfg.AllowHeaders, "Authorization")
	return corsCfg
}

func createDigitalLoan(c *gin.Context) {
	var request struct {
		UserUid     string `json:"userUid" binding:"required"`
		DocumentUid string `json:"documentUid" binding:"required"`
	}
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request", "details": err.Error()})
		return
	}

	loan, err := loans.Create(c.Request.Context(), request.UserUid, request.DocumentUid)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, loanJSON(loan))
}

func returnLoan(c *gin.Context) {
	loanUid := c.Param("loanUid")

	loan, err := loans.MarkReturned(c.Request.Context(), loanUid)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, loanJSON(loan))
}

func countLoans(c *gin.Context) {
	status := c.DefaultQuery("status", models.LoanStatusActive)
	if !validLoanStatus(status) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid loan status"})
		return
	}

	count, err := loans.CountByStatus(c.Request.Context(), status)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"count": count})
}

func topBorrowed(c *gin.Context) {
	limitStr := c.DefaultQuery("limit", "5")
	limit, err := strconv.Atoi(limitStr)
	if err != nil || limit < 1 || limit > 20 {
		limit = 5
	}

	top, err := loans.TopBorrowed(c.Request.Context(), limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, top)
}

// accessDocument gates retrieval of the digital asset behind the loan.
// Expiry is evaluated here, lazily: an overdue loan flips to expired and
// access is denied.
func accessDocument(c *gin.Context) {
	loanUid := c.Param("loanUid")

	loan, granted, err := loans.CheckAccess(c.Request.Context(), loanUid)
	if err != nil {
		abortWithError(c, err)
		return
	}
	if !granted {
		c.JSON(http.StatusForbidden, gin.H{"error": "loan is not active", "status": loan.Status})
		return
	}

	doc, err := catalog.GetDocument(c.Request.Context(), loan.DocumentUid)
	if err != nil {
		abortWithError(c, err)
		return
	}
	if doc.FilePath == "" {
		c.JSON(http.StatusNotFound, gin.H{"error": "document has no digital asset"})
		return
	}

	// filepath.Base strips any directory components a tampered catalogue
	// entry could smuggle in.
	fileName := filepath.Base(doc.FilePath)
	fullPath := filepath.Join(storagePath, fileName)
	if _, err := os.Stat(fullPath); err != nil {
		log.Printf("PDF %s not found in %s", fileName, storagePath)
		c.JSON(http.StatusNotFound, gin.H{"error": "file not found on server"})
		return
	}

	c.Header("Content-Type", "application/pdf")
	c.File(fullPath)
}

func createPhysicalReservation(c *gin.Context) {
	var request struct {
		UserUid     string `json:"userUid" binding:"required"`
		DocumentUid string `json:"documentUid" binding:"required"`
	}
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request", "details": err.Error()})
		return
	}

	reservation, err := reservations.Create(c.Request.Context(), request.UserUid, request.DocumentUid)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, reservationJSON(reservation))
}

func cancelReservation(c *gin.Context) {
	reservation, err := reservations.Cancel(c.Request.Context(), c.Param("reservationUid"))
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, reservationJSON(reservation))
}

func honorReservation(c *gin.Context) {
	reservation, err := reservations.Honor(c.Request.Context(), c.Param("reservationUid"))
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, reservationJSON(reservation))
}

func countReservations(c *gin.Context) {
	status := c.DefaultQuery("status", models.ReservationStatusActive)
	if !validReservationStatus(status) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid reservation status"})
		return
	}

	count, err := reservations.CountByStatus(c.Request.Context(), status)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"count": count})
}

// syncDocumentReservations is called by the document service when a physical
// copy becomes available again: every active hold on it is cancelled.
func syncDocumentReservations(c *gin.Context) {
	documentUid := c.Param("documentUid")

	cancelled, err := reservations.CancelAllForDocument(c.Request.Context(), documentUid)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	log.Printf("Reservation sync for document %s: %d cancelled", documentUid, cancelled)
	c.JSON(http.StatusOK, gin.H{"cancelled": cancelled})
}

func getUserLoans(c *gin.Context) {
	status := c.Query("status")
	if status != "" && !validLoanStatus(status) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid loan status"})
		return
	}

	userLoans, err := loans.ListForUser(c.Request.Context(), c.Param("userUid"), status)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	items := make([]gin.H, len(userLoans))
	for i := range userLoans {
		items[i] = loanJSON(&userLoans[i])
	}
	c.JSON(http.StatusOK, items)
}

func checkActiveLoan(c *gin.Context) {
	documentUid := c.Query("documentUid")
	if documentUid == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "documentUid is required"})
		return
	}

	hasActive, err := loans.HasActive(c.Request.Context(), c.Param("userUid"), documentUid)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"hasActiveLoan": hasActive})
}

func getUserReservations(c *gin.Context) {
	status := c.Query("status")
	if status != "" && !validReservationStatus(status) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid reservation status"})
		return
	}

	userReservations, err := reservations.ListForUser(c.Request.Context(), c.Param("userUid"), status)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	items := make([]gin.H, len(userReservations))
	for i := range userReservations {
		items[i] = reservationJSON(&userReservations[i])
	}
	c.JSON(http.StatusOK, items)
}

func checkActiveReservation(c *gin.Context) {
	documentUid := c.Query("documentUid")
	if documentUid == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "documentUid is required"})
		return
	}

	hasActive, err := reservations.HasActive(c.Request.Context(), c.Param("userUid"), documentUid)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"hasActiveReservation": hasActive})
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
	c.JSON(http.StatusOK, gin.H{"status": "UP"})
}

func abortWithError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, errs.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, errs.ErrConflict), errors.Is(err, errs.ErrInvalidState):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, errs.ErrValidation):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, errs.ErrUnavailable):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}

func validLoanStatus(status string) bool {
	return status == models.LoanStatusActive ||
		status == models.LoanStatusReturned ||
		status == models.LoanStatusExpired
}

func validReservationStatus(status string) bool {
	return status == models.ReservationStatusActive ||
		status == models.ReservationStatusCancelled ||
		status == models.ReservationStatusHonored
}

func loanJSON(loan *models.Loan) gin.H {
	return gin.H{
		"loanUid":     loan.LoanUid,
		"userUid":     loan.UserUid,
		"documentUid": loan.DocumentUid,
		"loanDate":    loan.LoanDate.UTC().Format(time.RFC3339),
		"dueDate":     loan.DueDate.UTC().Format(time.RFC3339),
		"status":      loan.Status,
	}
}

func reservationJSON(reservation *models.Reservation) gin.H {
	return gin.H{
		"reservationUid":  reservation.ReservationUid,
		"userUid":         reservation.UserUid,
		"documentUid":     reservation.DocumentUid,
		"reservationDate": reservation.ReservationDate.UTC().Format(time.RFC3339),
		"status":          reservation.Status,
	}
}
