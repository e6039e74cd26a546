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

// Package dispatcher is the tool dispatcher: a {name → handler}
// registry built once at startup, resolving incoming "tools/call" requests
// to a handler, validating arguments against the tool's declared schema,
// and converting between internal proto.ApiError variants and the wire
// error shape {code, message, details?}. This is the only package
// that performs that conversion.
package dispatcher

// Session is the state of one transport connection. The stdio
// transport creates exactly one Session for the process lifetime; the
// websocket transport creates one per accepted connection and may later
// rebind the same Session to a new socket via "reconnect".
type Session struct {
	ID            string
	ProjectID     string
	ProjectRoot   string
	Authenticated bool
	Initialized   bool
}

// Endpoint is the caller side of a dispatch: the Session the call arrived
// on, and Public, which hides tools marked Internal. Both transports set
// Public to true explicitly rather than inferring it from session fields;
// only in-process callers that build an Endpoint directly use false.
// Visibility is a property of the caller, not of authentication state.
type Endpoint struct {
	Session *Session
	Public  bool // true: only Visibility==Public tools are reachable
}
