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

package dispatcher

import "codebuddy.dev/codebuddy/internal/proto"

func errorInvalidParams(err error) *proto.ApiError {
	return proto.ErrorInvalidRequest("malformed tools/call params: " + err.Error())
}

func errorMethodNotFound(method string) *proto.ApiError {
	return proto.ErrorInvalidRequest("unknown method: " + method)
}

// toWireError converts the closed proto.ApiError taxonomy into the
// wire shape every transport serializes. Keeping a single conversion
// point is what keeps the taxonomy closed.
func toWireError(e *proto.ApiError) *WireError {
	return &WireError{
		Code:    string(e.Kind),
		Message: e.Message,
		Details: e.Details,
	}
}
