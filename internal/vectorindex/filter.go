package vectorindex

import "time"

// Filter is the backend-native boolean expression tree. Flat input
// filters are translated into one of these before being pushed down to
// the vector store; see internal/search for the translation table.
type Filter struct {
	Must      []Condition
	Should    []Condition
	MustNot   []Condition
	MinShould *MinShould
}

// IsZero reports whether the filter carries no clauses at all, in
// which case the backend should treat it as "match everything".
func (f *Filter) IsZero() bool {
	if f == nil {
		return true
	}
	return len(f.Must) == 0 && len(f.Should) == 0 && len(f.MustNot) == 0 && f.MinShould == nil
}

// MinShould requires at least Count of the listed Conditions to match.
type MinShould struct {
	Count      int
	Conditions []Condition
}

// Condition is a leaf field condition. Exactly one of the Match*/Range*/
// Values*/Is* fields is set; Key always names the payload field.
type Condition struct {
	Key string

	MatchValue  any
	MatchAny    []any
	MatchExcept []any

	Range         *RangeCondition
	DatetimeRange *DatetimeRangeCondition
	ValuesCount   *ValuesCountCondition

	IsEmpty bool
	IsNull  bool
}

// RangeCondition bounds a numeric field. Nil bounds are omitted.
type RangeCondition struct {
	Gt, Gte, Lt, Lte *float64
}

// DatetimeRangeCondition bounds a timestamp field.
type DatetimeRangeCondition struct {
	Gt, Gte, Lt, Lte *time.Time
}

// ValuesCountCondition bounds the length of an array-valued field —
// used for e.g. `hasTrusts` (array length > 0).
type ValuesCountCondition struct {
	Gt, Gte, Lt, Lte *int
}

// MatchValueCond builds a single-value equality condition.
func MatchValueCond(key string, value any) Condition {
	return Condition{Key: key, MatchValue: value}
}

// MatchAnyCond builds an "any of these values" condition, used for
// array-field membership and IN-style scalar matches.
func MatchAnyCond(key string, values []any) Condition {
	return Condition{Key: key, MatchAny: values}
}

// MatchExceptCond builds a negated membership condition.
func MatchExceptCond(key string, values []any) Condition {
	return Condition{Key: key, MatchExcept: values}
}

// RangeCond builds a numeric range condition.
func RangeCond(key string, r RangeCondition) Condition {
	return Condition{Key: key, Range: &r}
}

// DatetimeRangeCond builds a timestamp range condition.
func DatetimeRangeCond(key string, r DatetimeRangeCondition) Condition {
	return Condition{Key: key, DatetimeRange: &r}
}

// ValuesCountCond builds an array-length condition.
func ValuesCountCond(key string, v ValuesCountCondition) Condition {
	return Condition{Key: key, ValuesCount: &v}
}

// IsEmptyCond builds a condition matching an absent or empty field.
func IsEmptyCond(key string) Condition {
	return Condition{Key: key, IsEmpty: true}
}

// IsNullCond builds a condition matching an explicit null field.
func IsNullCond(key string) Condition {
	return Condition{Key: key, IsNull: true}
}

// FloatBound and IntBound wrap a literal into the pointer form
// RangeCondition/ValuesCountCondition fields expect, so callers can
// write e.g. RangeCondition{Gt: FloatBound(0)} inline.
func FloatBound(f float64) *float64 { return &f }
func IntBound(i int) *int           { return &i }
