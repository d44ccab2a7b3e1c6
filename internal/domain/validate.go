package domain

import (
	"errors"
	"fmt"
	"strings"
)

// Input-shape checks for identifiers crossing the collaborator
// boundary. These run before any collaborator call is made.

func ValidateOrderID(orderID string) error {
	orderID = strings.TrimSpace(orderID)
	if len(orderID) < 10 || len(orderID) > 50 {
		return fmt.Errorf("order id must be 10-50 characters, got %d", len(orderID))
	}
	for _, r := range orderID {
		switch {
		case r >= 'a' && r <= 'z':
		case r >= 'A' && r <= 'Z':
		case r >= '0' && r <= '9':
		case r == '-':
		default:
			return fmt.Errorf("order id contains invalid character %q", r)
		}
	}
	return nil
}

func ValidatePhotoID(photoID string) error {
	if len(photoID) != 36 {
		return fmt.Errorf("photo id must be 36 characters, got %d", len(photoID))
	}
	for i, r := range photoID {
		if i == 8 || i == 13 || i == 18 || i == 23 {
			if r != '-' {
				return errors.New("photo id is not hyphen-delimited")
			}
			continue
		}
		isHex := (r >= '0' && r <= '9') || (r >= 'a' && r <= 'f') || (r >= 'A' && r <= 'F')
		if !isHex {
			return fmt.Errorf("photo id contains invalid character %q", r)
		}
	}
	return nil
}

func ValidateEmail(email string) error {
	email = strings.TrimSpace(email)
	at := strings.Index(email, "@")
	if at < 1 || at == len(email)-1 {
		return errors.New("email address is malformed")
	}
	if !strings.Contains(email[at+1:], ".") {
		return errors.New("email domain is malformed")
	}
	if len(email) > 254 {
		return errors.New("email address is too long")
	}
	return nil
}
