package versioning

import (
	"time"

	"github.com/facebookgo/clock"
	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/ndlib/vhandle/core"
)

// Service answers lineage questions about items and records new versions.
type Service struct {
	Store Store
	Clock clock.Clock
}

// NewService returns a Service stamping versions with the wall clock.
func NewService(s Store) *Service {
	return &Service{Store: s, Clock: clock.New()}
}

// FindByItem returns the history item belongs to, or nil if it has none.
func (s *Service) FindByItem(c *core.Context, item uuid.UUID) (*History, error) {
	v, err := s.Store.VersionByItem(c, item)
	if errors.Is(err, ErrNoVersion) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &History{ID: v.History}, nil
}

// VersionOf returns the version pointing at item, or nil if it has none.
func (s *Service) VersionOf(c *core.Context, item uuid.UUID) (*Version, error) {
	v, err := s.Store.VersionByItem(c, item)
	if errors.Is(err, ErrNoVersion) {
		return nil, nil
	}
	return v, err
}

// Versions lists the versions of h, highest number first.
func (s *Service) Versions(c *core.Context, h *History) ([]*Version, error) {
	return s.Store.Versions(c, h.ID)
}

// Latest returns the highest numbered version of h, or nil for an empty
// history.
func (s *Service) Latest(c *core.Context, h *History) (*Version, error) {
	vs, err := s.Versions(c, h)
	if err != nil || len(vs) == 0 {
		return nil, err
	}
	return vs[0], nil
}

// Previous returns the version of h numbered immediately below v, or nil
// when v is the first.
func (s *Service) Previous(c *core.Context, h *History, v *Version) (*Version, error) {
	vs, err := s.Versions(c, h)
	if err != nil {
		return nil, err
	}
	for _, x := range vs {
		if x.Number < v.Number {
			return x, nil
		}
	}
	return nil, nil
}

// IsFirstVersion reports whether v has the lowest number in h.
func (s *Service) IsFirstVersion(c *core.Context, h *History, v *Version) (bool, error) {
	vs, err := s.Versions(c, h)
	if err != nil || len(vs) == 0 {
		return false, err
	}
	return vs[len(vs)-1].Number == v.Number, nil
}

// Create starts an empty history.
func (s *Service) Create(c *core.Context) (*History, error) {
	return s.Store.CreateHistory(c)
}

// CreateVersion adds item to h as version number. A number of 0 means one
// past the current latest. A zero date means now.
func (s *Service) CreateVersion(c *core.Context, h *History, item uuid.UUID, summary string, date time.Time, number int) (*Version, error) {
	if number == 0 {
		latest, err := s.Latest(c, h)
		if err != nil {
			return nil, err
		}
		number = 1
		if latest != nil {
			number = latest.Number + 1
		}
	}
	if date.IsZero() {
		date = s.Clock.Now()
	}
	v := &Version{
		History: h.ID,
		Item:    item,
		Number:  number,
		Date:    date,
		Summary: summary,
		Creator: c.User,
	}
	if err := s.Store.AddVersion(c, v); err != nil {
		return nil, err
	}
	return v, nil
}

// NewVersion records newItem as the next version of item. If item has no
// history yet, one is started with item as version 1. This is the step the
// submission workflow takes before the new item's identifiers are
// registered.
func (s *Service) NewVersion(c *core.Context, item, newItem uuid.UUID, summary string) (*Version, error) {
	h, err := s.FindByItem(c, item)
	if err != nil {
		return nil, err
	}
	if h == nil {
		h, err = s.Create(c)
		if err != nil {
			return nil, err
		}
		if _, err = s.CreateVersion(c, h, item, "", time.Time{}, 1); err != nil {
			return nil, err
		}
	}
	return s.CreateVersion(c, h, newItem, summary, time.Time{}, 0)
}

// Remove deletes v from its history. Identifier bookkeeping must happen
// before this is called, while v is still the latest.
func (s *Service) Remove(c *core.Context, v *Version) error {
	return s.Store.DeleteVersion(c, v.ID)
}
