package facade

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrUnsupportedAddress is returned for any address that does not
// match one of the four supported patterns.
var ErrUnsupportedAddress = errors.New("unsupported address")

// Collection path segments.
const (
	PathPrescriptions = "prescriptions"
	PathTimeTerms     = "time_terms"
)

// Kind identifies which of the four address patterns matched.
type Kind int

const (
	// KindPrescriptions matches "prescriptions".
	KindPrescriptions Kind = iota + 1
	// KindPrescriptionItem matches "prescriptions/{uid}".
	KindPrescriptionItem
	// KindTimeTerms matches "time_terms".
	KindTimeTerms
	// KindTimeTermItem matches "time_terms/{id}".
	KindTimeTermItem
)

// Address is a parsed facade address: a collection, or a single item
// within one.
type Address struct {
	Kind Kind
	ID   int64 // set for item-level addresses only
}

// matchTable is the fixed mapping from path pattern to match kind -
// the facade's entire routing surface. Item patterns append a numeric
// identifier segment to their collection path.
var matchTable = []struct {
	collection string
	item       bool
	kind       Kind
}{
	{PathPrescriptions, false, KindPrescriptions},
	{PathPrescriptions, true, KindPrescriptionItem},
	{PathTimeTerms, false, KindTimeTerms},
	{PathTimeTerms, true, KindTimeTermItem},
}

// ParseAddress matches an address string against the four supported
// patterns. Unmatched addresses fail with ErrUnsupportedAddress.
func ParseAddress(s string) (Address, error) {
	segs := strings.Split(strings.Trim(s, "/"), "/")

	for _, m := range matchTable {
		switch {
		case !m.item && len(segs) == 1 && segs[0] == m.collection:
			return Address{Kind: m.kind}, nil
		case m.item && len(segs) == 2 && segs[0] == m.collection:
			id, err := strconv.ParseInt(segs[1], 10, 64)
			if err != nil {
				continue
			}
			return Address{Kind: m.kind, ID: id}, nil
		}
	}

	return Address{}, fmt.Errorf("%w: %q", ErrUnsupportedAddress, s)
}

// IsItem reports whether the address targets a single record.
func (a Address) IsItem() bool {
	return a.Kind == KindPrescriptionItem || a.Kind == KindTimeTermItem
}

// Collection returns the collection path segment of the address.
func (a Address) Collection() string {
	switch a.Kind {
	case KindPrescriptions, KindPrescriptionItem:
		return PathPrescriptions
	case KindTimeTerms, KindTimeTermItem:
		return PathTimeTerms
	default:
		return ""
	}
}

// String renders the address back to its canonical path form.
func (a Address) String() string {
	if a.IsItem() {
		return fmt.Sprintf("%s/%d", a.Collection(), a.ID)
	}
	return a.Collection()
}

// ItemAddress builds the canonical address of one item in a
// collection, e.g. "prescriptions/7".
func ItemAddress(collection string, id int64) string {
	return fmt.Sprintf("%s/%d", collection, id)
}
