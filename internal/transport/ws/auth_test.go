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
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIssueAndVerifyToken_RoundTrips(t *testing.T) {
	secret := []byte("test-secret")
	token, err := issueToken("my-project", secret, time.Hour)
	require.NoError(t, err)

	err = verifyToken(token, secret, "my-project")
	assert.NoError(t, err)
}

func TestVerifyToken_RejectsWrongSecret(t *testing.T) {
	token, err := issueToken("my-project", []byte("secret-a"), time.Hour)
	require.NoError(t, err)

	err = verifyToken(token, []byte("secret-b"), "")
	assert.Error(t, err)
}

func TestVerifyToken_RejectsExpiredToken(t *testing.T) {
	secret := []byte("test-secret")
	token, err := issueToken("my-project", secret, -time.Minute)
	require.NoError(t, err)

	err = verifyToken(token, secret, "")
	assert.Error(t, err)
}

func TestVerifyToken_RejectsProjectMismatch(t *testing.T) {
	secret := []byte("test-secret")
	token, err := issueToken("project-a", secret, time.Hour)
	require.NoError(t, err)

	err = verifyToken(token, secret, "project-b")
	assert.Error(t, err)
}

func TestVerifyToken_RejectsEmptyToken(t *testing.T) {
	assert.Error(t, verifyToken("", []byte("secret"), ""))
}
