package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/GimhanaMahela/BusWatch/internal/auth"
	"github.com/GimhanaMahela/BusWatch/internal/models"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

type AuthHandler struct {
	DB *mongo.Database
}

type CredentialsRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=8"`
}

// RegisterAdmin creates a new admin account and returns a token.
func (h *AuthHandler) RegisterAdmin(c *gin.Context) {
	var req CredentialsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	hashedPassword, err := auth.HashPassword(req.Password)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to hash password"})
		return
	}

	admin := models.Admin{
		Email:     req.Email,
		Password:  hashedPassword,
		CreatedAt: time.Now(),
	}

	collection := h.DB.Collection("admins")
	result, err := collection.InsertOne(c.Request.Context(), admin)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Admin already exists"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create admin"})
		return
	}
	if oid, ok := result.InsertedID.(primitive.ObjectID); ok {
		admin.ID = oid
	}

	token, err := auth.GenerateJWT(admin.ID.Hex(), admin.Email)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to generate token"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{"token": token})
}

// LoginAdmin verifies credentials and returns a token.
func (h *AuthHandler) LoginAdmin(c *gin.Context) {
	var req CredentialsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	collection := h.DB.Collection("admins")
	var admin models.Admin
	err := collection.FindOne(c.Request.Context(), bson.M{"email": req.Email}).Decode(&admin)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid Credentials"})
		} else {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to look up admin"})
		}
		return
	}

	if !auth.CheckPasswordHash(req.Password, admin.Password) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid Credentials"})
		return
	}

	token, err := auth.GenerateJWT(admin.ID.Hex(), admin.Email)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to generate token"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"token": token})
}

// GetAdmin returns the authenticated admin, password omitted.
func (h *AuthHandler) GetAdmin(c *gin.Context) {
	adminID := c.GetString("admin_id")
	oid, err := primitive.ObjectIDFromHex(adminID)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid admin identity"})
		return
	}

	collection := h.DB.Collection("admins")
	var admin models.Admin
	if err := collection.FindOne(c.Request.Context(), bson.M{"_id": oid}).Decode(&admin); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Admin not found"})
		return
	}

	c.JSON(http.StatusOK, admin)
}
