package server

import (
	"database/sql"
	"encoding/json"
	"expvar"
	"fmt"
	"net/http"
	_ "net/http/pprof" // for pprof server
	"strings"

	"github.com/facebookgo/httpdown"
	"github.com/golang/groupcache/singleflight"
	"github.com/julienschmidt/httprouter"

	"github.com/ndlib/vhandle/core"
	"github.com/ndlib/vhandle/identifier"
	"github.com/ndlib/vhandle/internal/log"
)

// Version is the server version reported on the welcome page. It is set at
// build time with -ldflags.
var Version = "dev"

// RESTServer holds the configuration for a handle REST API server.
//
// Set all the public fields and then call Run. Run will listen on the given
// port and handle requests. Do not change any fields after calling Run.
type RESTServer struct {
	// Port number to listen on. defaults to 14000
	PortNumber string
	PProfPort  string

	// Provider does all the identifier work. Run will panic if it is nil.
	Provider *identifier.VersionedProvider

	// DB is the database the Provider's stores use. When it is set every
	// request runs inside one transaction, committed if the request
	// succeeds and rolled back otherwise. Leave it nil with memory stores.
	DB *sql.DB

	// Keys checks the API key sent with each request. If this is nil
	// then every caller is treated as an administrator.
	Keys KeyChecker

	server   httpdown.Server // used to close our listening socket
	resolves singleflight.Group
}

var (
	nResolve  = expvar.NewInt("handle.resolve")
	nNotFound = expvar.NewInt("handle.notfound")
	nRegister = expvar.NewInt("handle.register")
	nRestore  = expvar.NewInt("handle.restore")
	nDelete   = expvar.NewInt("handle.delete")
	nFailure  = expvar.NewInt("handle.failure")
)

// Run starts the server. It then blocks listening for and handling http
// requests.
func (s *RESTServer) Run() error {
	log.Info("==========")
	log.Infof("Starting Handle Server version %s", Version)

	if s.Provider == nil {
		panic("No identifier provider given. Provider is nil.")
	}
	if s.Keys == nil {
		log.Info("No API keys given")
		s.Keys = OpenAccess{}
	}
	if s.PortNumber == "" {
		s.PortNumber = "14000"
	}

	// for pprof
	if s.PProfPort != "" {
		log.Infof("Starting PProf on port %s", s.PProfPort)
		go func() {
			log.Error(http.ListenAndServe(":"+s.PProfPort, nil))
		}()
	}
	log.Infof("Listening on %s", s.PortNumber)

	h := httpdown.HTTP{}
	var err error
	s.server, err = h.ListenAndServe(&http.Server{
		Addr:    ":" + s.PortNumber,
		Handler: s.addRoutes(),
	})
	if err != nil {
		log.Error(err)
		return err
	}
	return s.server.Wait()
}

// Stop will stop the server and return when all the connections have
// finished and the socket is closed.
func (s *RESTServer) Stop() error {
	if s.server == nil {
		return nil
	}
	return s.server.Stop()
}

// contextHandle is a route handler running inside a unit of work. The value
// it returns is sent to the client as JSON once the work is committed.
type contextHandle func(c *core.Context, w http.ResponseWriter, r *http.Request, ps httprouter.Params) (interface{}, error)

func (s *RESTServer) addRoutes() http.Handler {
	var routes = []struct {
		method  string
		route   string
		role    core.Role // RoleUnknown means no API key is needed to access
		handler httprouter.Handle
	}{
		{"GET", "/handle/:prefix/*suffix", core.RoleUnknown, s.unit(s.ResolveHandler)},
		{"GET", "/object/:id/handle", core.RoleRead, s.unit(s.LookupHandler)},
		{"POST", "/object/:id/handle", core.RoleWrite, s.unit(s.RegisterHandler)},
		{"DELETE", "/object/:id/handle", core.RoleWrite, s.unit(s.DeleteHandler)},
		{"POST", "/object/:id/restore", core.RoleWrite, s.unit(s.RestoreHandler)},
		{"POST", "/object/:id/reserve", core.RoleWrite, s.unit(s.ReserveHandler)},

		// other
		{"GET", "/", core.RoleUnknown, WelcomeHandler},
		{"GET", "/stats", core.RoleUnknown, StatsHandler},
		{"GET", "/debug/vars", core.RoleUnknown, VarHandler}, // standard route for expvars data
	}

	r := httprouter.New()
	for _, route := range routes {
		r.Handle(route.method,
			route.route,
			logWrapper(s.authzWrapper(route.handler, route.role)))
	}
	return r
}

// unit adapts a contextHandle. It builds a Context for the caller, opens a
// transaction on DB if there is one, and commits it when the handler
// returns no error. Nothing is written to the client before the commit.
func (s *RESTServer) unit(handler contextHandle) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		role := core.ParseRole(ps.ByName("role"))
		c := core.NewContext(r.Context(), ps.ByName("username"), role)
		if s.DB != nil {
			if err := c.Begin(s.DB); err != nil {
				writeError(w, err)
				return
			}
		}
		val, err := handler(c, w, r, ps)
		if err != nil {
			c.Abort()
			writeError(w, err)
			return
		}
		if err = c.Commit(); err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, val)
	}
}

// General route handlers and convinence functions

// VarHandler adapts the expvar default handler to the httprouter three parameter handler.
func VarHandler(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	// this code is taken from the stdlib expvar package.
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	fmt.Fprintf(w, "{\n")
	first := true
	expvar.Do(func(kv expvar.KeyValue) {
		if !first {
			fmt.Fprintf(w, ",\n")
		}
		first = false
		fmt.Fprintf(w, "%q: %s", kv.Key, kv.Value)
	})
	fmt.Fprintf(w, "\n}\n")
}

// StatsHandler returns only the handle counters, as a JSON object.
func StatsHandler(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	stats := make(map[string]json.RawMessage)
	expvar.Do(func(kv expvar.KeyValue) {
		if strings.HasPrefix(kv.Key, "handle.") {
			stats[kv.Key] = json.RawMessage(kv.Value.String())
		}
	})
	writeJSON(w, stats)
}

// authzWrapper returns a Handler which will first verify the caller's API key
// as having at least the given Role. The caller name and role are added as
// the parameters "username" and "role".
func (s *RESTServer) authzWrapper(handler httprouter.Handle, leastRole core.Role) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		caller, err := s.Keys.Check(r.Header.Get("X-Api-Key"))
		if err != nil {
			w.WriteHeader(500)
			fmt.Fprintln(w, err.Error())
			return
		}

		// is role valid?
		if caller.Role < leastRole {
			w.WriteHeader(401)
			fmt.Fprintln(w, "Forbidden")
			return
		}

		ps = setParam(ps, "username", caller.Name)
		ps = setParam(ps, "role", caller.Role.String())
		handler(w, r, ps)
	}
}

// setParam replaces any previous value of key, so callers cannot pass their
// own.
func setParam(ps httprouter.Params, key, value string) httprouter.Params {
	for i := range ps {
		if ps[i].Key == key {
			ps[i].Value = value
			return ps
		}
	}
	return append(ps, httprouter.Param{Key: key, Value: value})
}

// logWrapper takes a handler and returns a handler which does the same thing,
// after first logging the request URL.
func logWrapper(handler httprouter.Handle) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		log.Infof("%s %s", r.Method, r.URL)
		handler(w, r, ps)
	}
}
