// Package locker provides an HTTP middleware that lets an operator lock a
// device against changes.  Writes to a locked device get 423 (Locked)
package locker

import (
	"net/http"
	"path"
	"sync/atomic"

	"github.com/nasa-jpl/saperacam/generichttp"
	"github.com/nasa-jpl/saperacam/server"
)

// Inject adds GET and POST /lock to a server.HTTPer, reading and setting l
func Inject(other server.HTTPer, l *Locker) {
	rt := other.RT()
	rt[server.MethodPath{Method: http.MethodGet, Path: "/lock"}] = generichttp.GetBool(func() (bool, error) {
		return l.Locked(), nil
	})
	rt[server.MethodPath{Method: http.MethodPost, Path: "/lock"}] = generichttp.SetBool(func(on bool) error {
		l.Set(on)
		return nil
	})
}

// Locker is a flag consulted by Check.  The zero value is unlocked and
// protects every path
type Locker struct {
	locked atomic.Bool

	// DoNotProtect holds final path elements that stay writable while locked
	DoNotProtect []string
}

// New returns an unlocked Locker that leaves /lock itself writable
func New() *Locker {
	return &Locker{DoNotProtect: []string{"lock"}}
}

// Set locks or unlocks
func (l *Locker) Set(on bool) { l.locked.Store(on) }

// Locked returns true if the locker is locked
func (l *Locker) Locked() bool { return l.locked.Load() }

func (l *Locker) exempt(p string) bool {
	base := path.Base(p)
	for _, s := range l.DoNotProtect {
		if base == s {
			return true
		}
	}
	return false
}

// Check is an HTTP middleware that bounces requests other than GET with
// http.StatusLocked while the locker is locked
func (l *Locker) Check(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if l.Locked() && r.Method != http.MethodGet && !l.exempt(r.URL.Path) {
			http.Error(w, "device is locked", http.StatusLocked)
			return
		}
		next.ServeHTTP(w, r)
	})
}
