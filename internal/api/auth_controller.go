package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"catererp/server/internal/models"
)

// AuthController управляет API endpoints для авторизации
type AuthController struct {
	db        *gorm.DB
	jwtSecret []byte
}

// NewAuthController создает новый контроллер авторизации
func NewAuthController(db *gorm.DB, jwtSecret string) *AuthController {
	return &AuthController{
		db:        db,
		jwtSecret: []byte(jwtSecret),
	}
}

// LoginRequest представляет запрос на вход
type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// LoginResponse представляет ответ на успешный вход
type LoginResponse struct {
	Token     string `json:"token"`
	UserID    string `json:"user_id"`
	Username  string `json:"username"`
	Role      string `json:"role"`
	ExpiresAt int64  `json:"expires_at"`
}

// authClaims - JWT claims токена доступа
type authClaims struct {
	UserID   string `json:"user_id"`
	Username string `json:"username"`
	Role     string `json:"role"`
	jwt.RegisteredClaims
}

// Login обрабатывает вход пользователя
// POST /api/v1/auth/login
func (ac *AuthController) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Неверные параметры запроса",
			"details": err.Error(),
		})
		return
	}

	var user models.AppUser
	if err := ac.db.Where("username = ? AND is_active = ?", req.Username, true).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusUnauthorized, gin.H{
				"error": "Неверный логин или пароль",
			})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Ошибка проверки учетных данных",
		})
		return
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{
			"error": "Неверный логин или пароль",
		})
		return
	}

	// Обновляем время последнего входа
	now := time.Now()
	user.LastLoginAt = &now
	ac.db.Save(&user)

	expiresAt := time.Now().Add(24 * time.Hour)
	token, err := ac.generateToken(&user, expiresAt)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Не удалось сгенерировать токен",
		})
		return
	}

	c.JSON(http.StatusOK, LoginResponse{
		Token:     token,
		UserID:    user.ID,
		Username:  user.Username,
		Role:      user.RoleName,
		ExpiresAt: expiresAt.Unix(),
	})
}

// RegisterRequest представляет запрос на создание пользователя (только админ)
type RegisterRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required,min=8"`
	Email    string `json:"email"`
	Role     string `json:"role"`
}

// Register создает нового пользователя системы
// POST /api/v1/auth/register (требует роль Admin)
func (ac *AuthController) Register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Неверные параметры запроса",
			"details": err.Error(),
		})
		return
	}

	var existing models.AppUser
	if err := ac.db.Where("username = ?", req.Username).First(&existing).Error; err == nil {
		c.JSON(http.StatusConflict, gin.H{
			"error": "Пользователь с таким логином уже существует",
		})
		return
	}

	if req.Role != "" {
		var role models.Role
		if err := ac.db.Where("name = ? AND is_active = ?", req.Role, true).First(&role).Error; err != nil {
			c.JSON(http.StatusBadRequest, gin.H{
				"error": "Указанная роль не существует",
			})
			return
		}
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Ошибка хэширования пароля",
		})
		return
	}

	user := models.AppUser{
		Username:     req.Username,
		PasswordHash: string(hash),
		Email:        req.Email,
		RoleName:     req.Role,
		IsActive:     true,
	}
	if err := ac.db.Create(&user).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Ошибка создания пользователя",
			"details": err.Error(),
		})
		return
	}

	c.JSON(http.StatusCreated, user)
}

// Me возвращает данные текущего пользователя из токена
// GET /api/v1/auth/me
func (ac *AuthController) Me(c *gin.Context) {
	userID := c.GetString("user_id")

	var user models.AppUser
	if err := ac.db.First(&user, "id = ?", userID).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{
			"error": "Пользователь не найден",
		})
		return
	}

	c.JSON(http.StatusOK, user)
}

// generateToken создает подписанный JWT для пользователя
func (ac *AuthController) generateToken(user *models.AppUser, expiresAt time.Time) (string, error) {
	claims := authClaims{
		UserID:   user.ID,
		Username: user.Username,
		Role:     user.RoleName,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			Subject:   user.ID,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(ac.jwtSecret)
}
