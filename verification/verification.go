package verification

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"mongo-user-service/config"
	"mongo-user-service/mailer"
	"mongo-user-service/users"
)

type Handler struct {
	mongoClient *mongo.Client
	config      *config.Config
	signingKey  []byte
	mail        mailer.Sender
	logger      *zap.SugaredLogger
}

func NewHandler(mongoClient *mongo.Client, config *config.Config, mail mailer.Sender, logger *zap.SugaredLogger) *Handler {
	return &Handler{
		mongoClient: mongoClient,
		config:      config,
		signingKey:  []byte(config.TokenSigningKey),
		mail:        mail,
		logger:      logger,
	}
}

func (h *Handler) collection() *mongo.Collection {
	return h.mongoClient.Database(h.config.DatabaseName).Collection(h.config.CollectionUserName)
}

// HandleVerify consumes a verification token and activates the account.
// Only pending accounts transition; a second verification fails.
func (h *Handler) HandleVerify(c *gin.Context) {
	var req VerifyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	email, err := ParseVerificationToken(req.Token, h.signingKey)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid verification token"})
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	result, err := h.collection().UpdateOne(ctx,
		bson.M{"email": email, "state": users.StatePendingVerification},
		bson.M{"$set": bson.M{"state": users.StateActive}},
	)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}
	if result.ModifiedCount != 1 {
		c.JSON(http.StatusConflict, gin.H{"error": "Account unknown or already verified"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "verified"})
}

// HandleResend re-sends the verification mail for a pending account. The
// response does not reveal whether the account exists.
func (h *Handler) HandleResend(c *gin.Context) {
	var req ResendRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	user, err := users.FindByIdentifier(ctx, h.collection(), req.Identifier)
	if err == nil && user.State == users.StatePendingVerification {
		token, err := NewVerificationToken(user.Email, h.signingKey)
		if err == nil {
			if err := h.mail.SendVerification(ctx, user.Email, user.Username, token); err != nil {
				h.logger.Warnw("could not send verification email", "email", user.Email, "error", err)
			}
		}
	} else if err != nil && err != mongo.ErrNoDocuments {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "sent"})
}

// HandleRequestReset mails a password-reset token. The response does not
// reveal whether the account exists.
func (h *Handler) HandleRequestReset(c *gin.Context) {
	var req ResetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	user, err := users.FindByIdentifier(ctx, h.collection(), req.Identifier)
	if err == nil {
		token, err := NewResetToken(user.Email, h.signingKey)
		if err == nil {
			if err := h.mail.SendPasswordReset(ctx, user.Email, token); err != nil {
				h.logger.Warnw("could not send password reset email", "email", user.Email, "error", err)
			}
		}
	} else if err != mongo.ErrNoDocuments {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "sent"})
}

// HandleConfirmReset sets a new password for the account a reset token was
// issued to.
func (h *Handler) HandleConfirmReset(c *gin.Context) {
	var req ResetConfirmRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}
	if len(req.Password) < 8 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Password must be at least 8 characters"})
		return
	}

	email, err := ParseResetToken(req.Token, h.signingKey)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid reset token"})
		return
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Could not hash password"})
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	result, err := h.collection().UpdateOne(ctx,
		bson.M{"email": email},
		bson.M{"$set": bson.M{"password_hash": string(hashedPassword)}},
	)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}
	if result.ModifiedCount != 1 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Account no longer exists"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "password_updated"})
}
