package utils

import (
	"errors"

	"github.com/gin-gonic/gin"
)

const ActiveUserKey = "user"

var (
	ErrNoActiveUser      = errors.New("not authorized to access this resource")
	ErrMalformedIdentity = errors.New("request identity is malformed")
)

// ActiveUser returns the token claims stored by the auth middleware
func ActiveUser(ctx *gin.Context) (TokenObject, error) {
	value, exists := ctx.Get(ActiveUserKey)
	if !exists {
		return TokenObject{}, ErrNoActiveUser
	}

	user, ok := value.(TokenObject)
	if !ok {
		return TokenObject{}, ErrMalformedIdentity
	}
	return user, nil
}
