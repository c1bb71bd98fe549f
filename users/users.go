package users

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"mongo-user-service/config"
)

type Handler struct {
	mongoClient *mongo.Client
	config      *config.Config
}

func NewHandler(mongoClient *mongo.Client, config *config.Config) *Handler {
	return &Handler{
		mongoClient: mongoClient,
		config:      config,
	}
}

func (h *Handler) collection() *mongo.Collection {
	return h.mongoClient.Database(h.config.DatabaseName).Collection(h.config.CollectionUserName)
}

// FindByID returns the user with the given ID, or mongo.ErrNoDocuments.
func FindByID(ctx context.Context, collection *mongo.Collection, id string) (*User, error) {
	var user User
	err := collection.FindOne(ctx, bson.M{"_id": id}).Decode(&user)
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// FindByIdentifier returns the user matching the given email address or
// username, or mongo.ErrNoDocuments.
func FindByIdentifier(ctx context.Context, collection *mongo.Collection, identifier string) (*User, error) {
	var user User
	err := collection.FindOne(ctx, IdentifierFilter(identifier)).Decode(&user)
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// HandleMe returns the profile of the authenticated user.
func (h *Handler) HandleMe(c *gin.Context) {
	userID := c.GetString("user_id")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	user, err := FindByID(ctx, h.collection(), userID)
	if err == mongo.ErrNoDocuments {
		c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
		return
	} else if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	c.JSON(http.StatusOK, user.Public())
}

// HandleWelcome greets the authenticated user by name.
func (h *Handler) HandleWelcome(c *gin.Context) {
	username := c.GetString("username")
	c.JSON(http.StatusOK, gin.H{"message": fmt.Sprintf("Welcome %s", username)})
}
