package main

import (
	"errors"
	"log"
	"net/http"
	"strconv"
	"time"

	"bibliotech/pkg/config"
	"bibliotech/pkg/database"
	"bibliotech/pkg/models"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

var (
	db        *gorm.DB
	jwtSecret []byte
	jwtTTL    time.Duration
)

func main() {
	log.Println("Starting user service...")

	cfg, err := config.LoadUser()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	db = database.InitUserDB(cfg.DB)
	jwtSecret = []byte(cfg.JWTSecret)
	jwtTTL = cfg.JWTTTL

	server := gin.Default()
	corsCfg := cors.DefaultConfig()
	corsCfg.AllowOrigins = cfg.CORSOrigins
	corsCfg.AllowHeaders = append(corsCfg.AllowHeaders, "Authorization")
	server.Use(cors.New(corsCfg))

	server.POST("/api/v1/users", createUser)
	server.GET("/api/v1/users", getUsers)
	server.GET("/api/v1/users/:userUid", getUser)
	server.PATCH("/api/v1/users/:userUid", updateUser)
	server.DELETE("/api/v1/users/:userUid", deleteUser)
	server.POST("/api/v1/auth/login", login)
	server.GET("/manage/health", healthCheck)

	log.Printf("User service starting on :%s", cfg.Port)
	if err := server.Run(":" + cfg.Port); err != nil {
		log.Fatalf("Server failed: %v", err)
	}
}

func createUser(c *gin.Context) {
	var request struct {
		Username         string  `json:"username" binding:"required"`
		Password         string  `json:"password" binding:"required"`
		Role             string  `json:"role" binding:"required"`
		Email            *string `json:"email"`
		SubscriptionType string  `json:"subscriptionType"`
	}
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request", "details": err.Error()})
		return
	}
	if !validRole(request.Role) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid role " + request.Role})
		return
	}

	var existing models.User
	if err := db.Where("username = ?", request.Username).First(&existing).Error; err == nil {
		c.JSON(http.StatusConflict, gin.H{"error": "username already taken"})
		return
	}
	if request.Email != nil {
		if err := db.Where("email = ?", *request.Email).First(&existing).Error; err == nil {
			c.JSON(http.StatusConflict, gin.H{"error": "email already in use"})
			return
		}
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(request.Password), bcrypt.DefaultCost)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to hash password"})
		return
	}

	subscriptionStatus := "n/a"
	subscriptionType := "none"
	if request.Role == models.RoleMember {
		subscriptionStatus = "pending"
		subscriptionType = request.SubscriptionType
	}

	user := models.User{
		UserUid:            uuid.New().String(),
		Username:           request.Username,
		Password:           string(hash),
		Role:               request.Role,
		Email:              request.Email,
		SubscriptionStatus: subscriptionStatus,
		SubscriptionType:   subscriptionType,
	}
	if err := db.Create(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			c.JSON(http.StatusConflict, gin.H{"error": "username or email already in use"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create user"})
		return
	}

	log.Printf("User created: %s (%s)", user.Username, user.UserUid)
	c.JSON(http.StatusCreated, userJSON(&user))
}

func login(c *gin.Context) {
	var request struct {
		Username string `json:"username" binding:"required"`
		Password string `json:"password" binding:"required"`
	}
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request", "details": err.Error()})
		return
	}

	var user models.User
	if err := db.Where("username = ?", request.Username).First(&user).Error; err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid username or password"})
		return
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(request.Password)); err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid username or password"})
		return
	}

	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":      user.UserUid,
		"username": user.Username,
		"role":     user.Role,
		"iat":      now.Unix(),
		"exp":      now.Add(jwtTTL).Unix(),
	})
	signed, err := token.SignedString(jwtSecret)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to sign token"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"token": signed, "user": userJSON(&user)})
}

func getUser(c *gin.Context) {
	var user models.User
	if err := db.Where("user_uid = ?", c.Param("userUid")).First(&user).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
		return
	}
	c.JSON(http.StatusOK, userJSON(&user))
}

func getUsers(c *gin.Context) {
	role := c.Query("role")
	if role != "" && !validRole(role) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid role " + role})
		return
	}

	page, err := strconv.Atoi(c.DefaultQuery("page", "1"))
	if err != nil || page < 1 {
		page = 1
	}
	size, err := strconv.Atoi(c.DefaultQuery("size", "100"))
	if err != nil || size < 1 || size > 100 {
		size = 100
	}

	query := db.Model(&models.User{})
	if role != "" {
		query = query.Where("role = ?", role)
	}

	var totalElements int64
	query.Count(&totalElements)

	var users []models.User
	offset := (page - 1) * size
	if err := query.Order("username").Offset(offset).Limit(size).Find(&users).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	items := make([]gin.H, len(users))
	for i := range users {
		items[i] = userJSON(&users[i])
	}
	c.JSON(http.StatusOK, gin.H{
		"page":          page,
		"pageSize":      size,
		"totalElements": totalElements,
		"items":         items,
	})
}

func updateUser(c *gin.Context) {
	var user models.User
	if err := db.Where("user_uid = ?", c.Param("userUid")).First(&user).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
		return
	}

	var request struct {
		Username           *string `json:"username"`
		Password           *string `json:"password"`
		Email              *string `json:"email"`
		SubscriptionStatus *string `json:"subscriptionStatus"`
		SubscriptionType   *string `json:"subscriptionType"`
	}
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request", "details": err.Error()})
		return
	}

	if request.Username != nil && *request.Username != user.Username {
		var existing models.User
		if err := db.Where("username = ?", *request.Username).First(&existing).Error; err == nil {
			c.JSON(http.StatusConflict, gin.H{"error": "username already taken"})
			return
		}
		user.Username = *request.Username
	}
	if request.Email != nil {
		var existing models.User
		if err := db.Where("email = ? AND user_uid <> ?", *request.Email, user.UserUid).First(&existing).Error; err == nil {
			c.JSON(http.StatusConflict, gin.H{"error": "email already in use"})
			return
		}
		user.Email = request.Email
	}
	if request.Password != nil {
		hash, err := bcrypt.GenerateFromPassword([]byte(*request.Password), bcrypt.DefaultCost)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to hash password"})
			return
		}
		user.Password = string(hash)
	}
	if request.SubscriptionStatus != nil {
		user.SubscriptionStatus = *request.SubscriptionStatus
	}
	if request.SubscriptionType != nil {
		user.SubscriptionType = *request.SubscriptionType
	}

	if err := db.Save(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			c.JSON(http.StatusConflict, gin.H{"error": "username or email already in use"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to update user"})
		return
	}
	c.JSON(http.StatusOK, userJSON(&user))
}

func deleteUser(c *gin.Context) {
	var user models.User
	if err := db.Where("user_uid = ?", c.Param("userUid")).First(&user).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
		return
	}
	// Managers cannot be removed through the API.
	if user.Role == models.RoleManager {
		c.JSON(http.StatusForbidden, gin.H{"error": "managers cannot be deleted"})
		return
	}
	if err := db.Delete(&user).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to delete user"})
		return
	}
	log.Printf("User deleted: %s (%s)", user.Username, user.UserUid)
	c.Status(http.StatusNoContent)
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

func validRole(role string) bool {
	return role == models.RoleMember || role == models.RoleLibrarian || role == models.RoleManager
}

// Password hashes never leave this service.
func userJSON(user *models.User) gin.H {
	return gin.H{
		"userUid":            user.UserUid,
		"username":           user.Username,
		"role":               user.Role,
		"email":              user.Email,
		"subscriptionStatus": user.SubscriptionStatus,
		"subscriptionType":   user.SubscriptionType,
	}
}
