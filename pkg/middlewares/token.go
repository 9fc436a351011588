package middlewares

import (
	t_token "club_chat_service/pkg/token"

	"github.com/gofiber/fiber/v2"
)

const (
	//QueryToken token in query name
	QueryToken = "auth"

	//CookieToken token in cookie name
	CookieToken = "auth_token"

	//TokenMemberID get member form token, set c.locals name
	TokenMemberID = "MemberID"
	//TokenMemberName display name from token, set c.locals name
	TokenMemberName = "MemberName"
	//TokenRole get role form token, set c.locals name
	TokenRole = "role"
)

// JWTMiddleware validates the JWT taken from the query, the cookie or the Authorization header
func JWTMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		tokenStr := c.Query(QueryToken)
		if tokenStr == "" {
			tokenStr = c.Cookies(CookieToken)
		}
		if tokenStr == "" {
			tokenStr = t_token.FromBearer(c.Get(fiber.HeaderAuthorization))
		}

		if tokenStr == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Missing token",
			})
		}

		claims, err := t_token.ParseJWT(tokenStr)
		if err != nil {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Invalid token",
			})
		}

		c.Locals(TokenMemberID, claims.MemberID)
		c.Locals(TokenMemberName, claims.Name)
		c.Locals(TokenRole, claims.Role)
		return c.Next()
	}
}
