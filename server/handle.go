package server

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/antonholmquist/jason"
	"github.com/getsentry/raven-go"
	"github.com/google/uuid"
	"github.com/julienschmidt/httprouter"
	"github.com/pkg/errors"

	"github.com/ndlib/vhandle/content"
	"github.com/ndlib/vhandle/core"
	"github.com/ndlib/vhandle/handle"
	"github.com/ndlib/vhandle/identifier"
	"github.com/ndlib/vhandle/internal/log"
	"github.com/ndlib/vhandle/versioning"
)

// HandleInfo is the JSON returned for a handle.
type HandleInfo struct {
	Handle    string `json:"handle"`
	Canonical string `json:"canonical"`
	ID        string `json:"id"`
	Type      string `json:"type"`
}

var errNoHandle = errors.New("no handle in request")

// ResolveHandler returns the object a handle names. Concurrent requests for
// the same handle share one lookup.
func (s *RESTServer) ResolveHandler(c *core.Context, w http.ResponseWriter, r *http.Request, ps httprouter.Params) (interface{}, error) {
	nResolve.Add(1)
	// the star parameter in httprouter returns the leading slash
	id := ps.ByName("prefix") + ps.ByName("suffix")
	h, err := s.Provider.Handles.Parse(id)
	if err != nil {
		nNotFound.Add(1)
		return nil, errors.Wrap(handle.ErrNotFound, err.Error())
	}
	v, err := s.resolves.Do(h, func() (interface{}, error) {
		obj := s.Provider.Resolve(c, h)
		if obj == nil {
			return nil, errors.Wrap(handle.ErrNotFound, h)
		}
		return obj, nil
	})
	if err != nil {
		nNotFound.Add(1)
		return nil, err
	}
	return s.info(h, v.(*content.Object)), nil
}

// LookupHandler returns the handle of an object.
func (s *RESTServer) LookupHandler(c *core.Context, w http.ResponseWriter, r *http.Request, ps httprouter.Params) (interface{}, error) {
	obj, err := s.object(c, ps)
	if err != nil {
		return nil, err
	}
	h, err := s.Provider.Lookup(c, obj)
	if err != nil {
		return nil, err
	}
	return s.info(h, obj), nil
}

// RegisterHandler mints a handle for an object and records it in the
// object's metadata.
func (s *RESTServer) RegisterHandler(c *core.Context, w http.ResponseWriter, r *http.Request, ps httprouter.Params) (interface{}, error) {
	nRegister.Add(1)
	obj, err := s.object(c, ps)
	if err != nil {
		return nil, err
	}
	h, err := s.Provider.Register(c, obj)
	if err != nil {
		return nil, err
	}
	w.Header().Set("Location", "/handle/"+h)
	return s.info(h, obj), nil
}

// RestoreHandler registers an object under the handle given in the body,
// which looks like {"handle": "1234/100.2"}.
func (s *RESTServer) RestoreHandler(c *core.Context, w http.ResponseWriter, r *http.Request, ps httprouter.Params) (interface{}, error) {
	nRestore.Add(1)
	obj, err := s.object(c, ps)
	if err != nil {
		return nil, err
	}
	h, err := bodyHandle(r)
	if err != nil {
		return nil, err
	}
	if err := s.Provider.RegisterAs(c, obj, h); err != nil {
		return nil, err
	}
	return s.info(h, obj), nil
}

// ReserveHandler binds the handle given in the body to an object.
func (s *RESTServer) ReserveHandler(c *core.Context, w http.ResponseWriter, r *http.Request, ps httprouter.Params) (interface{}, error) {
	obj, err := s.object(c, ps)
	if err != nil {
		return nil, err
	}
	h, err := bodyHandle(r)
	if err != nil {
		return nil, err
	}
	if err := s.Provider.Reserve(c, obj, h); err != nil {
		return nil, err
	}
	return s.info(h, obj), nil
}

// DeleteHandler updates the handles of an object about to be removed.
func (s *RESTServer) DeleteHandler(c *core.Context, w http.ResponseWriter, r *http.Request, ps httprouter.Params) (interface{}, error) {
	nDelete.Add(1)
	obj, err := s.object(c, ps)
	if err != nil {
		return nil, err
	}
	return nil, s.Provider.Delete(c, obj)
}

func (s *RESTServer) object(c *core.Context, ps httprouter.Params) (*content.Object, error) {
	id, err := uuid.Parse(ps.ByName("id"))
	if err != nil {
		return nil, errors.Wrap(content.ErrNoObject, ps.ByName("id"))
	}
	return s.Provider.Objects.Find(c, id)
}

func (s *RESTServer) info(h string, obj *content.Object) HandleInfo {
	return HandleInfo{
		Handle:    h,
		Canonical: s.Provider.Handles.CanonicalForm(handle.Canonical(h)),
		ID:        obj.ID.String(),
		Type:      obj.Type.String(),
	}
}

func bodyHandle(r *http.Request) (string, error) {
	body, err := jason.NewObjectFromReader(r.Body)
	if err != nil {
		return "", errors.Wrap(errNoHandle, err.Error())
	}
	h, err := body.GetString("handle")
	if err != nil || h == "" {
		return "", errNoHandle
	}
	return h, nil
}

// writeJSON sends val, or an empty 204 response if val is nil.
func writeJSON(w http.ResponseWriter, val interface{}) {
	if val == nil {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	json.NewEncoder(w).Encode(val)
}

// writeError picks a status code for err. Anything unexpected is a 500 and
// is reported to Sentry.
func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, handle.ErrNotFound),
		errors.Is(err, content.ErrNoObject),
		errors.Is(err, identifier.ErrNotResolvable):
		status = http.StatusNotFound
	case errors.Is(err, handle.ErrMalformed),
		errors.Is(err, errNoHandle):
		status = http.StatusBadRequest
	case errors.Is(err, handle.ErrExists),
		errors.Is(err, versioning.ErrDuplicate):
		status = http.StatusConflict
	case errors.Is(err, core.ErrNotAuthorized):
		status = http.StatusUnauthorized
	default:
		nFailure.Add(1)
		raven.CaptureError(err, nil)
		log.Errorf("request failed: %v", err)
	}
	w.WriteHeader(status)
	fmt.Fprintln(w, err.Error())
}
