package authentication

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"mongo-user-service/config"
	"mongo-user-service/mailer"
	"mongo-user-service/users"
	"mongo-user-service/verification"
)

type Handler struct {
	mongoClient *mongo.Client
	config      *config.Config
	jwtSecret   []byte
	signingKey  []byte
	sessions    *RefreshStore
	mail        mailer.Sender
	logger      *zap.SugaredLogger
}

func NewHandler(mongoClient *mongo.Client, config *config.Config, sessions *RefreshStore, mail mailer.Sender, logger *zap.SugaredLogger) *Handler {
	return &Handler{
		mongoClient: mongoClient,
		config:      config,
		jwtSecret:   []byte(config.JWTSecret),
		signingKey:  []byte(config.TokenSigningKey),
		sessions:    sessions,
		mail:        mail,
		logger:      logger,
	}
}

func (h *Handler) collection() *mongo.Collection {
	return h.mongoClient.Database(h.config.DatabaseName).Collection(h.config.CollectionUserName)
}

// HandleSignup registers a new pending-verification user and mails the
// verification token.
func (h *Handler) HandleSignup(c *gin.Context) {
	var signupReq SignupRequest
	if err := c.ShouldBindJSON(&signupReq); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	email := strings.ToLower(strings.TrimSpace(signupReq.Email))
	username := strings.TrimSpace(signupReq.Username)
	if !strings.Contains(email, "@") {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid email address"})
		return
	}
	if strings.Contains(username, "@") || username == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid username"})
		return
	}
	if len(signupReq.Password) < 8 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Password must be at least 8 characters"})
		return
	}

	collection := h.collection()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	// Check if email already exists
	var existingUser users.User
	err := collection.FindOne(ctx, bson.M{"email": email}).Decode(&existingUser)
	if err == nil {
		c.JSON(http.StatusConflict, gin.H{"error": "Email already registered"})
		return
	} else if err != mongo.ErrNoDocuments {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	// Check if username already exists
	err = collection.FindOne(ctx, bson.M{"username": username}).Decode(&existingUser)
	if err == nil {
		c.JSON(http.StatusConflict, gin.H{"error": "Username already taken"})
		return
	} else if err != mongo.ErrNoDocuments {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	// Hash password
	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(signupReq.Password), bcrypt.DefaultCost)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Could not hash password"})
		return
	}

	// Generate the verification token before inserting, so a signing
	// failure cannot leave an account no mail was issued for.
	token, err := verification.NewVerificationToken(email, h.signingKey)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Could not generate verification token"})
		return
	}

	newUser := users.User{
		ID:           primitive.NewObjectID().Hex(),
		Username:     username,
		Email:        email,
		FirstName:    strings.TrimSpace(signupReq.FirstName),
		LastName:     strings.TrimSpace(signupReq.LastName),
		PasswordHash: string(hashedPassword),
		RegisteredAt: time.Now().UTC(),
		State:        users.StatePendingVerification,
	}

	_, err = collection.InsertOne(ctx, newUser)
	if err != nil {
		// The unique indexes catch the race between the checks above and
		// the insert.
		if mongo.IsDuplicateKeyError(err) {
			c.JSON(http.StatusConflict, gin.H{"error": "Email or username already registered"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Could not create user"})
		return
	}

	if err := h.mail.SendVerification(ctx, email, username, token); err != nil {
		h.logger.Warnw("could not send verification email", "email", email, "error", err)
	}

	c.JSON(http.StatusCreated, SignupResponse{User: newUser.Public()})
}

// HandleLogin authenticates by email or username and issues a token pair.
func (h *Handler) HandleLogin(c *gin.Context) {
	var loginReq LoginRequest
	if err := c.ShouldBindJSON(&loginReq); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	user, err := users.FindByIdentifier(ctx, h.collection(), loginReq.Identifier)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid identifier or password"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	err = bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(loginReq.Password))
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid identifier or password"})
		return
	}

	if !user.IsActive() {
		c.JSON(http.StatusForbidden, gin.H{"error": "Account pending verification"})
		return
	}

	response, err := h.issueTokens(ctx, user)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Could not generate token"})
		return
	}

	c.JSON(http.StatusOK, response)
}

// HandleLogout invalidates the caller's refresh token.
func (h *Handler) HandleLogout(c *gin.Context) {
	userID := c.GetString("user_id")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := h.sessions.Delete(ctx, userID); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Could not invalidate session"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "logged_out"})
}

// HandleRefresh rotates the refresh token: the presented token must match
// the one stored for the user, and is invalidated before a new pair is issued.
func (h *Handler) HandleRefresh(c *gin.Context) {
	var refreshReq RefreshRequest
	if err := c.ShouldBindJSON(&refreshReq); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	userID, err := ParseRefreshToken(refreshReq.RefreshToken, h.jwtSecret)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid refresh token"})
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	stored, err := h.sessions.Get(ctx, userID)
	if err != nil {
		if err == redis.Nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid refresh token"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Session store error"})
		return
	}
	if stored != refreshReq.RefreshToken {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid refresh token"})
		return
	}

	user, err := users.FindByID(ctx, h.collection(), userID)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid refresh token"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	if err := h.sessions.Delete(ctx, userID); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Session store error"})
		return
	}

	response, err := h.issueTokens(ctx, user)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Could not generate token"})
		return
	}

	c.JSON(http.StatusOK, response)
}

func (h *Handler) issueTokens(ctx context.Context, user *users.User) (*LoginResponse, error) {
	accessToken, err := GenerateAccessToken(user, h.jwtSecret)
	if err != nil {
		return nil, err
	}
	refreshToken, err := GenerateRefreshToken(user.ID, h.jwtSecret)
	if err != nil {
		return nil, err
	}
	if err := h.sessions.Save(ctx, user.ID, refreshToken, RefreshTokenTTL); err != nil {
		return nil, err
	}
	return &LoginResponse{
		Token:        accessToken,
		RefreshToken: refreshToken,
		User:         user.Public(),
	}, nil
}

// AuthMiddleware creates a gin handler function for authentication
func (h *Handler) AuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Authorization header required"})
			c.Abort()
			return
		}

		tokenString := strings.Replace(authHeader, "Bearer ", "", 1)
		claims, err := ParseToken(tokenString, h.jwtSecret)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid token"})
			c.Abort()
			return
		}

		// Refresh tokens never authorize requests.
		if purpose, _ := claims["purpose"].(string); purpose != "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid token"})
			c.Abort()
			return
		}

		c.Set("user_id", claims["user_id"])
		c.Set("email", claims["email"])
		c.Set("username", claims["username"])
		c.Next()
	}
}
