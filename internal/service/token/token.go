package token

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const accessTTL = time.Hour

// SignAccessToken issues the stateless identity token: subject id, role and
// expiry only, validity determined purely by signature and exp at parse time.
func SignAccessToken(userID uint, role string, secret []byte) (string, error) {
	claims := jwt.MapClaims{
		"sub":  userID,
		"role": role,
		"exp":  time.Now().Add(accessTTL).Unix(),
	}
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return t.SignedString(secret)
}
