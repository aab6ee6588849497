package criteria

import (
	"github.com/viant/fixflow/service/dao"
)

// Fields exposes the filterable attributes of an entity.
type Fields func(name string) (string, bool)

// Match reports whether an entity satisfies all parameters. A parameter whose
// name is unknown to the entity does not match.
func Match(fields Fields, parameters []*dao.Parameter) bool {
	for _, parameter := range parameters {
		if parameter == nil {
			continue
		}
		value, ok := fields(parameter.Name)
		if !ok {
			return false
		}
		if !parameter.Accepts(value) {
			return false
		}
	}
	return true
}
