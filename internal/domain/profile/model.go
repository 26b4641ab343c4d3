package profile

import (
	"strings"

	"barbershop/backend/internal/models"
)

// Route is where a signed-in user lands.
type Route string

const (
	RouteAdmin      Route = "admin"
	RouteClient     Route = "client"
	RouteNeedsPhone Route = "needs_phone"
)

// Session is the resolved state of a signed-in user.
type Session struct {
	Route   Route               `json:"route"`
	Profile *models.UserProfile `json:"profile,omitempty"`
	Admin   bool                `json:"admin"`
}

// UpdatePhoneInput is the body of a phone update.
type UpdatePhoneInput struct {
	Phone string `json:"phone"`
}

func (in *UpdatePhoneInput) Trim() {
	in.Phone = strings.TrimSpace(in.Phone)
}
