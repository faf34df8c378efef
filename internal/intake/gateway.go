package intake

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/okservice/repairdesk/internal/db"
)

const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// MissingContactMessage is shown when the form lacks a name or a phone.
const MissingContactMessage = "Имя и телефон обязательны"

// Payload is the website form body.
type Payload struct {
	Name    string `json:"name"`
	Phone   string `json:"phone"`
	Message string `json:"message,omitempty"`
}

// Result is the JSON answer to the form.
type Result struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

// Gateway accepts requests from the website.
type Gateway struct {
	service *Service
}

func NewGateway(service *Service) *Gateway {
	return &Gateway{service: service}
}

// Submit validates and stores one form submission. The returned error wraps
// db.ErrValidation or db.ErrStore so the HTTP layer can pick a status code;
// the Result is always safe to send back as is.
func (g *Gateway) Submit(ctx context.Context, p Payload) (Result, error) {
	name := strings.TrimSpace(p.Name)
	phone := strings.TrimSpace(p.Phone)
	if name == "" || phone == "" {
		return Result{Status: StatusError, Message: MissingContactMessage},
			fmt.Errorf("%w: name and phone are required", db.ErrValidation)
	}

	if _, err := g.service.Create(ctx, name, phone, strings.TrimSpace(p.Message), db.SourceSite); err != nil {
		if errors.Is(err, db.ErrValidation) {
			return Result{Status: StatusError, Message: MissingContactMessage}, err
		}
		return Result{Status: StatusError, Message: err.Error()}, err
	}
	return Result{Status: StatusSuccess}, nil
}
