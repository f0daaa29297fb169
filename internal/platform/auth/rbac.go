package auth

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
)

const (
	RoleAdmin        = "admin"
	RoleDoctor       = "doctor"
	RoleNurse        = "nurse"
	RoleLabTech      = "lab_tech"
	RoleReceptionist = "receptionist"
)

// Role sets used by the route table.
var (
	ReadRoles          = []string{RoleDoctor, RoleNurse, RoleLabTech, RoleReceptionist}
	LabReportWriters   = []string{RoleDoctor, RoleLabTech}
	PatientWriters     = []string{RoleDoctor, RoleReceptionist}
	PrescriptionWriter = []string{RoleDoctor}
)

// RequireRole passes requests whose user holds one of roles. Admin passes
// every check.
func RequireRole(roles ...string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if HasAnyRole(RolesFromContext(c.Request().Context()), roles...) {
				return next(c)
			}
			return echo.NewHTTPError(http.StatusForbidden,
				fmt.Sprintf("required role: %s", strings.Join(roles, " or ")))
		}
	}
}

func HasAnyRole(userRoles []string, required ...string) bool {
	for _, has := range userRoles {
		if has == RoleAdmin {
			return true
		}
		for _, r := range required {
			if has == r {
				return true
			}
		}
	}
	return false
}
