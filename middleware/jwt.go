package middleware

import (
	"brz/config"
	"brz/models"
	"fmt"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v4"
)

// GenerateJWT issues a token carrying the actor id and role. The session
// service normally mints these; the CLI and tests use it directly.
func GenerateJWT(userID uint, role models.Role, ttl time.Duration) (string, error) {
	claims := jwt.MapClaims{
		"userId": userID,
		"role":   string(role),
		"iat":    time.Now().Unix(),
		"exp":    time.Now().Add(ttl).Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(config.AppConfig.JWTKey))
}

// JWTMiddleware rejects requests without a valid bearer token and stores the
// actor id and role in the request context.
func JWTMiddleware(c *fiber.Ctx) error {
	authHeader := c.Get("Authorization")
	if authHeader == "" {
		return JsonResponse(c, fiber.StatusUnauthorized, false, "Missing or invalid Authorization header", nil)
	}
	return authenticate(c, authHeader)
}

// OptionalJWT lets anonymous requests through but still validates a token when
// one is sent.
func OptionalJWT(c *fiber.Ctx) error {
	authHeader := c.Get("Authorization")
	if authHeader == "" {
		return c.Next()
	}
	return authenticate(c, authHeader)
}

func authenticate(c *fiber.Ctx, authHeader string) error {
	if !strings.HasPrefix(authHeader, "Bearer ") {
		return JsonResponse(c, fiber.StatusUnauthorized, false, "Invalid Authorization header format", nil)
	}
	tokenString := authHeader[len("Bearer "):]

	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(config.AppConfig.JWTKey), nil
	})
	if err != nil || !token.Valid {
		return JsonResponse(c, fiber.StatusUnauthorized, false, "Invalid or expired token", nil)
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || claims["userId"] == nil {
		return JsonResponse(c, fiber.StatusUnauthorized, false, "Invalid token payload", nil)
	}
	userID, ok := claims["userId"].(float64) // JSON numbers decode as float64
	if !ok || userID <= 0 {
		return JsonResponse(c, fiber.StatusUnauthorized, false, "Invalid token payload", nil)
	}
	role, _ := claims["role"].(string)

	c.Locals("userId", uint(userID))
	c.Locals("role", roleFromClaim(role))
	return c.Next()
}

// roleFromClaim maps session roles onto the two roles this service knows.
func roleFromClaim(role string) models.Role {
	switch strings.ToUpper(strings.TrimSpace(role)) {
	case "OPERATOR", "ADMIN", "SUPER-ADMIN":
		return models.RoleOperator
	default:
		return models.RoleApplicant
	}
}

// CurrentActor returns the authenticated actor, if any.
func CurrentActor(c *fiber.Ctx) (models.Actor, bool) {
	userID, ok := c.Locals("userId").(uint)
	if !ok {
		return models.Actor{}, false
	}
	role, _ := c.Locals("role").(models.Role)
	if role == "" {
		role = models.RoleApplicant
	}
	return models.Actor{ID: userID, Role: role}, true
}
