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

package fileservice

import (
	"codebuddy.dev/codebuddy/internal/platform"
)

// StartWatcher forwards external write events from w to the LSP change
// notifier: an editor (or any other process) saving a file codebuddy has
// open on some language server would otherwise leave that server with a
// stale buffer, since only writes made through this service send
// didChange themselves. NotifyFileChanged is a no-op for files no server
// has open, so forwarding every write is cheap.
//
// The returned stop function ends forwarding; it does not close w.
func (s *Service) StartWatcher(w platform.FileWatcher) (stop func()) {
	done := make(chan struct{})
	go func() {
		for {
			select {
			case ev, ok := <-w.Events():
				if !ok {
					return
				}
				if ev.Op&platform.Write == 0 && ev.Op&platform.Create == 0 {
					continue
				}
				if s.notify == nil {
					continue
				}
				content, err := s.fs.ReadFile(ev.Name)
				if err != nil {
					continue // deleted or unreadable between event and read
				}
				if err := s.notify.NotifyFileChanged(ev.Name, string(content)); err != nil {
					s.logger.Warning("external change notify for %s: %v", ev.Name, err)
				}
			case err, ok := <-w.Errors():
				if !ok {
					return
				}
				s.logger.Warning("file watcher: %v", err)
			case <-done:
				return
			}
		}
	}()
	return func() { close(done) }
}
