package listing

import "fmt"

const (
	DefaultListLimit = 20
	MaxListLimit     = 100
	DefaultMineLimit = 50
	MaxMineLimit     = 200
)

// ListQuery filters the public catalogue. Only published listings are returned.
type ListQuery struct {
	Vertical Vertical
	Type     string
	Keyword  string
	City     string
	Currency string
	MinPrice *float64
	MaxPrice *float64
	Limit    int
	Offset   int
}

// MineQuery filters the caller's own listings, any status
type MineQuery struct {
	Vertical Vertical
	Type     string
	Status   string
	Limit    int
	Offset   int
}

func (q *ListQuery) normalize() error {
	if err := checkVerticalAndType(q.Vertical, q.Type); err != nil {
		return err
	}
	if q.MinPrice != nil && *q.MinPrice < 0 || q.MaxPrice != nil && *q.MaxPrice < 0 {
		return fmt.Errorf("%w: prices must be non-negative", ErrInvalidInput)
	}
	if q.MinPrice != nil && q.MaxPrice != nil && *q.MinPrice > *q.MaxPrice {
		return fmt.Errorf("%w: minPrice cannot be greater than maxPrice", ErrInvalidInput)
	}
	var err error
	q.Limit, q.Offset, err = window(q.Limit, q.Offset, DefaultListLimit, MaxListLimit)
	return err
}

func (q *MineQuery) normalize() error {
	if err := checkVerticalAndType(q.Vertical, q.Type); err != nil {
		return err
	}
	var err error
	q.Limit, q.Offset, err = window(q.Limit, q.Offset, DefaultMineLimit, MaxMineLimit)
	return err
}

func checkVerticalAndType(v Vertical, t string) error {
	if v != "" && !v.Valid() {
		return fmt.Errorf("%w: unknown vertical %q", ErrInvalidInput, v)
	}
	if t != "" && !validListingTypes.has(t) {
		return fmt.Errorf("%w: unknown type %q", ErrInvalidInput, t)
	}
	return nil
}

// window applies the default limit for 0 and rejects out of range values
func window(limit, offset, def, maxLimit int) (int, int, error) {
	if limit == 0 {
		limit = def
	}
	if limit < 1 || limit > maxLimit {
		return 0, 0, fmt.Errorf("%w: limit must be between 1 and %d", ErrInvalidInput, maxLimit)
	}
	if offset < 0 {
		return 0, 0, fmt.Errorf("%w: offset must be >= 0", ErrInvalidInput)
	}
	return limit, offset, nil
}

func verticalKeys(v Vertical) []string {
	if v == "" {
		return nil
	}
	return v.StorageCandidates()
}
