package middleware // middleware provides shared request processing for handlers

import (
    "net/http" // http package defines standard HTTP status codes

    "github.com/labstack/echo/v4" // echo provides middleware chaining and context
)

// RequireRole returns a middleware function that enforces that the
// authenticated user has one of the specified roles. The roles accepted
// should correspond to the values stored in the JWT's "role" claim. If
// the user's role is not in the allowed set, the request is aborted with
// a 403 Forbidden response. It assumes a previous middleware has
// extracted the role into the context under the key "role".
func RequireRole(roles ...string) echo.MiddlewareFunc {
    allowed := make(map[string]bool, len(roles))
    for _, r := range roles {
        allowed[r] = true
    }
    return func(next echo.HandlerFunc) echo.HandlerFunc {
        return func(c echo.Context) error {
            v := c.Get("role")
            role, ok := v.(string)
            if !ok || !allowed[role] {
                return c.JSON(http.StatusForbidden, map[string]string{"error": "forbidden"})
            }
            return next(c)
        }
    }
}

// RequireFinanceSubRole narrows a finance route to one of the two
// finance sub-roles (apa or am). It must run after JWTAuth and expects
// the "role" and "sub_role" claims in the context. The sub-role split is
// what enforces the two-person payment control: the APA forwards and
// executes, the AM verifies, and neither can do the other's step.
func RequireFinanceSubRole(subRoles ...string) echo.MiddlewareFunc {
    allowed := make(map[string]bool, len(subRoles))
    for _, s := range subRoles {
        allowed[s] = true
    }
    return func(next echo.HandlerFunc) echo.HandlerFunc {
        return func(c echo.Context) error {
            role, _ := c.Get("role").(string)
            subRole, _ := c.Get("sub_role").(string)
            if role != "finance" || !allowed[subRole] {
                return c.JSON(http.StatusForbidden, map[string]string{"error": "forbidden"})
            }
            return next(c)
        }
    }
}
