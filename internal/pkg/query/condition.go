package query

import "fmt"

// Condition is one WHERE predicate. SQL returns the fragment and its
// parameters; paramIndex is the first free @pN index.
type Condition interface {
	SQL(paramIndex int) (string, map[string]interface{})
}

type comparison struct {
	field string
	op    string
	value interface{}
}

// Eq matches field = value.
func Eq(field string, value interface{}) Condition {
	return &comparison{field: field, op: "=", value: value}
}

// Gte matches field >= value.
func Gte(field string, value interface{}) Condition {
	return &comparison{field: field, op: ">=", value: value}
}

// Lt matches field < value.
func Lt(field string, value interface{}) Condition {
	return &comparison{field: field, op: "<", value: value}
}

func (c *comparison) SQL(paramIndex int) (string, map[string]interface{}) {
	name := fmt.Sprintf("p%d", paramIndex)
	return fmt.Sprintf("%s %s @%s", c.field, c.op, name), map[string]interface{}{name: c.value}
}

type inCondition struct {
	field  string
	values []string
}

// In matches field against any of values.
func In(field string, values ...string) Condition {
	return &inCondition{field: field, values: values}
}

func (c *inCondition) SQL(paramIndex int) (string, map[string]interface{}) {
	name := fmt.Sprintf("p%d", paramIndex)
	return fmt.Sprintf("%s IN UNNEST(@%s)", c.field, name), map[string]interface{}{name: c.values}
}

type nullCheck struct {
	field string
	not   bool
}

// IsNull matches rows where field is NULL.
func IsNull(field string) Condition { return &nullCheck{field: field} }

// IsNotNull matches rows where field is not NULL.
func IsNotNull(field string) Condition { return &nullCheck{field: field, not: true} }

func (c *nullCheck) SQL(int) (string, map[string]interface{}) {
	if c.not {
		return c.field + " IS NOT NULL", map[string]interface{}{}
	}
	return c.field + " IS NULL", map[string]interface{}{}
}

type jsonValueEq struct {
	column string
	path   string
	value  string
}

// JSONValueEq matches JSON_VALUE(column, path) = value. path is written into
// the SQL as a literal and must come from code, never from user input.
func JSONValueEq(column, path, value string) Condition {
	return &jsonValueEq{column: column, path: path, value: value}
}

func (c *jsonValueEq) SQL(paramIndex int) (string, map[string]interface{}) {
	name := fmt.Sprintf("p%d", paramIndex)
	return fmt.Sprintf("JSON_VALUE(%s, '%s') = @%s", c.column, c.path, name), map[string]interface{}{name: c.value}
}
