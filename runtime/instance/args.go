package instance

import (
	"fmt"
)

// UserKey is the transition argument carrying the acting user.
const UserKey = "user"

// Args is an opaque key/value bag supplied with a transition.
type Args map[string]interface{}

// Identified is implemented by user objects passed under UserKey.
type Identified interface {
	ID() string
}

// UserID extracts the acting user id; it accepts a string, an Identified
// value or any integer.
func (a Args) UserID() string {
	value, ok := a[UserKey]
	if !ok || value == nil {
		return ""
	}
	switch actual := value.(type) {
	case string:
		return actual
	case Identified:
		return actual.ID()
	case int, int32, int64, uint, uint32, uint64:
		return fmt.Sprintf("%d", actual)
	}
	return ""
}

// Clone returns a shallow copy; nil stays nil.
func (a Args) Clone() Args {
	if a == nil {
		return nil
	}
	ret := make(Args, len(a))
	for k, v := range a {
		ret[k] = v
	}
	return ret
}

// Persistable returns the subset of arguments that can be stored in an audit
// record: scalars are kept, Identified values are reduced to their id.
func (a Args) Persistable() map[string]interface{} {
	if len(a) == 0 {
		return nil
	}
	ret := make(map[string]interface{}, len(a))
	for k, v := range a {
		switch actual := v.(type) {
		case nil:
		case string, bool, int, int32, int64, uint, uint32, uint64, float32, float64:
			ret[k] = actual
		case Identified:
			ret[k] = actual.ID()
		case fmt.Stringer:
			ret[k] = actual.String()
		default:
			ret[k] = fmt.Sprintf("%v", actual)
		}
	}
	return ret
}
