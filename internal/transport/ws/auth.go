/*
Copyright © 2025 Benny Powers <web@bennypowers.com>

This program is free software: you can redistribute it and/or modify
it under the terms of the GNU General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

This program is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU General Public License for more details.

You should have received a copy of the GNU General Public License
along with this program. If not, see <http://www.gnu.org/licenses/>.
*/

package ws

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"codebuddy.dev/codebuddy/internal/proto"
)

// tokenClaims is the minimal HS256 JWT claim set the transport
// verifies: which
// project the token authorizes and when it expires. codebuddy only
// verifies tokens, it is not in the key-issuance business; the POST
// /auth endpoint (handleAuth in ws.go)
// is a minimal local-secret convenience for issuing a token against the
// same jwt_secret the server verifies with, not a general-purpose
// identity provider.
type tokenClaims struct {
	Project string `json:"project"`
	jwt.RegisteredClaims
}

// verifyToken checks raw against secret and, when wantProject is
// non-empty, the token's project claim against it, returning nil on
// success. A missing, malformed, or expired token is always
// ErrUnauthenticated; a validly signed token for a different
// project than the one the session requested is ErrUnauthorized.
func verifyToken(raw string, secret []byte, wantProject string) error {
	if raw == "" {
		return proto.ErrorUnauthenticated("missing token")
	}
	claims := &tokenClaims{}
	_, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return secret, nil
	})
	if err != nil {
		return proto.ErrorUnauthenticated("invalid token: " + err.Error())
	}
	if wantProject != "" && claims.Project != "" && claims.Project != wantProject {
		return proto.ErrorUnauthorized("token is not authorized for this project")
	}
	return nil
}

// issueToken signs a token authorizing project, valid for ttl.
func issueToken(project string, secret []byte, ttl time.Duration) (string, error) {
	claims := tokenClaims{
		Project: project,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(secret)
}
