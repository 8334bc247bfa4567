package middleware

// identity.go defines helper functions shared across middleware files.
// Currently it provides a userID extraction function used by the rate
// limiter and the response cache to key entries per user. When no token
// is present the caller is keyed as "guest".

import (
    "fmt"

    "github.com/labstack/echo/v4"
)

// userID extracts a user identifier from the claims JWTAuth stored in
// the context. It returns "guest" when no user is authenticated.
func userID(c echo.Context) string {
    v := c.Get("user_id")
    if v == nil {
        return "guest"
    }
    switch t := v.(type) {
    case float64: // JWT numeric claims decode as float64
        return fmt.Sprintf("%d", uint64(t))
    case uint64:
        return fmt.Sprintf("%d", t)
    case string:
        if t != "" {
            return t
        }
    }
    return "guest"
}
