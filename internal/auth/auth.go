package auth

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

// JWTClaims defines the payload for the JWT.
type JWTClaims struct {
	AdminID string `json:"adminID"`
	Email   string `json:"email"`
	jwt.RegisteredClaims
}

// Hashing
func HashPassword(password string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), 14)
	return string(bytes), err
}

func CheckPasswordHash(password, hash string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	return err == nil
}

var (
	jwtSecret     []byte
	jwtExpiration = time.Hour
)

// Init sets the signing secret and token lifetime from configuration.
// Must be called once at startup before any token is issued or parsed.
func Init(secret, expiration string) {
	jwtSecret = []byte(secret)
	if d, err := time.ParseDuration(expiration); err == nil {
		jwtExpiration = d
	}
}

// Secret exposes the signing key to the token-parsing middleware.
func Secret() []byte {
	return jwtSecret
}

func GenerateJWT(adminID, email string) (string, error) {
	expirationTime := time.Now().Add(jwtExpiration)
	claims := &JWTClaims{
		AdminID: adminID,
		Email:   email,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(expirationTime),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(jwtSecret)
}
