package handle

import (
	"strconv"

	"github.com/pkg/errors"

	"github.com/ndlib/vhandle/core"
)

// Service is the handle storage service. It mints fresh handles under the
// parser's prefix and keeps the mapping in a Store.
type Service struct {
	Store  Store
	Parser Parser
}

// NewService returns a Service minting under p.Prefix.
func NewService(s Store, p Parser) *Service {
	return &Service{Store: s, Parser: p}
}

// Prefix is the naming authority new handles are minted under.
func (s *Service) Prefix() string {
	return s.Parser.Prefix
}

// Create mints a new handle for ref from the suffix sequence and registers
// it.
func (s *Service) Create(c *core.Context, ref core.Ref) (string, error) {
	n, err := s.Store.NextID(c)
	if err != nil {
		return "", errors.Wrap(err, "handle sequence")
	}
	h := s.Prefix() + "/" + strconv.FormatInt(n, 10)
	if err := s.Store.Put(c, h, ref); err != nil {
		return "", err
	}
	return h, nil
}

// CreateWithHandle registers h for ref. If h is already registered it
// returns ErrExists, unless force is set, in which case the existing
// mapping is moved to ref.
func (s *Service) CreateWithHandle(c *core.Context, ref core.Ref, h string, force bool) (string, error) {
	err := s.Store.Put(c, h, ref)
	if errors.Is(err, ErrExists) && force {
		err = s.Store.Move(c, h, ref)
	}
	if err != nil {
		return "", err
	}
	return h, nil
}

// Resolve returns the object registered under h, or ErrNotFound.
func (s *Service) Resolve(c *core.Context, h string) (core.Ref, error) {
	return s.Store.Get(c, h)
}

// Modify points h at ref.
func (s *Service) Modify(c *core.Context, h string, ref core.Ref) error {
	return s.Store.Move(c, h, ref)
}

// Find returns the oldest handle naming ref, or "" if it has none.
func (s *Service) Find(c *core.Context, ref core.Ref) (string, error) {
	hs, err := s.Store.Handles(c, ref.ID)
	if err != nil || len(hs) == 0 {
		return "", err
	}
	return hs[0], nil
}

// FindAll returns every handle naming ref, oldest first.
func (s *Service) FindAll(c *core.Context, ref core.Ref) ([]string, error) {
	return s.Store.Handles(c, ref.ID)
}

// Parse reduces identifier to a bare handle.
func (s *Service) Parse(identifier string) (string, error) {
	return s.Parser.Parse(identifier)
}

// CanonicalForm returns the metadata value for h.
func (s *Service) CanonicalForm(h string) string {
	return s.Parser.CanonicalForm(h)
}
