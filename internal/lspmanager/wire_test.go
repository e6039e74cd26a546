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

package lspmanager

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteReadFramedMessage_RoundTrip(t *testing.T) {
	var buf bytes.Buffer
	id := int64(7)
	msg := rpcMessage{JSONRPC: "2.0", ID: &id, Method: "initialize", Params: []byte(`{"rootUri":"file:///a"}`)}
	require.NoError(t, writeFramedMessage(&buf, msg))

	out := make(chan rpcMessage, 1)
	errs := make(chan error, 1)
	readFramedMessages(&buf, out, errs)

	select {
	case got := <-out:
		assert.Equal(t, "initialize", got.Method)
		require.NotNil(t, got.ID)
		assert.Equal(t, int64(7), *got.ID)
	default:
		t.Fatal("expected a decoded message")
	}
}

func TestReadFramedMessages_MultipleMessagesOneBuffer(t *testing.T) {
	var buf bytes.Buffer
	for i := int64(0); i < 3; i++ {
		id := i
		require.NoError(t, writeFramedMessage(&buf, rpcMessage{JSONRPC: "2.0", ID: &id, Method: "tick"}))
	}

	out := make(chan rpcMessage, 8)
	errs := make(chan error, 8)
	readFramedMessages(&buf, out, errs)

	var ids []int64
	for msg := range out {
		require.NotNil(t, msg.ID)
		ids = append(ids, *msg.ID)
	}
	assert.Equal(t, []int64{0, 1, 2}, ids)
	select {
	case err := <-errs:
		t.Fatalf("unexpected error: %v", err)
	default:
	}
}

func TestReadFramedMessages_MissingContentLength(t *testing.T) {
	buf := bytes.NewBufferString("X-Custom: 1\r\n\r\n{}")
	out := make(chan rpcMessage, 1)
	errs := make(chan error, 1)
	readFramedMessages(buf, out, errs)

	select {
	case err := <-errs:
		assert.Contains(t, err.Error(), "no Content-Length")
	default:
		t.Fatal("expected a framing error")
	}
}

func TestReadFramedMessages_MalformedBodyIsSkippedNotFatal(t *testing.T) {
	var buf bytes.Buffer
	buf.WriteString("Content-Length: 9\r\n\r\n")
	buf.WriteString("not-json!")
	id := int64(1)
	require.NoError(t, writeFramedMessage(&buf, rpcMessage{JSONRPC: "2.0", ID: &id, Method: "ok"}))

	out := make(chan rpcMessage, 4)
	errs := make(chan error, 4)
	readFramedMessages(&buf, out, errs)

	var got []rpcMessage
	for msg := range out {
		got = append(got, msg)
	}
	require.Len(t, got, 1)
	assert.Equal(t, "ok", got[0].Method)
}
