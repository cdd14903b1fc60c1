package vectorindex

import (
	"time"

	"github.com/qdrant/go-client/qdrant"
)

// toQdrantFilter lowers the backend-agnostic Filter tree into Qdrant's
// wire representation. A nil or empty Filter lowers to nil (match
// everything).
func toQdrantFilter(f *Filter) *qdrant.Filter {
	if f.IsZero() {
		return nil
	}

	out := &qdrant.Filter{
		Must:    toQdrantConditions(f.Must),
		Should:  toQdrantConditions(f.Should),
		MustNot: toQdrantConditions(f.MustNot),
	}
	if f.MinShould != nil {
		count := uint64(f.MinShould.Count)
		out.MinShould = &qdrant.MinShould{
			Conditions: toQdrantConditions(f.MinShould.Conditions),
			MinCount:   count,
		}
	}
	return out
}

func toQdrantConditions(conds []Condition) []*qdrant.Condition {
	if len(conds) == 0 {
		return nil
	}
	out := make([]*qdrant.Condition, 0, len(conds))
	for _, c := range conds {
		if cond := toQdrantCondition(c); cond != nil {
			out = append(out, cond)
		}
	}
	return out
}

// toQdrantCondition translates a single leaf condition. Exactly one of
// the Condition's variant fields is expected to be set; the first
// matching variant wins, mirroring the flat-filter translation table.
func toQdrantCondition(c Condition) *qdrant.Condition {
	switch {
	case c.MatchValue != nil:
		return qdrant.NewMatch(c.Key, toMatchValue(c.MatchValue))
	case c.MatchAny != nil:
		return qdrant.NewMatchKeywords(c.Key, toStrings(c.MatchAny)...)
	case c.MatchExcept != nil:
		return qdrant.NewMatchExcept(c.Key, toStrings(c.MatchExcept)...)
	case c.Range != nil:
		return qdrant.NewRange(c.Key, &qdrant.Range{
			Gt:  c.Range.Gt,
			Gte: c.Range.Gte,
			Lt:  c.Range.Lt,
			Lte: c.Range.Lte,
		})
	case c.DatetimeRange != nil:
		return qdrant.NewDatetimeRange(c.Key, &qdrant.DatetimeRange{
			Gt:  timePtrToTimestamp(c.DatetimeRange.Gt),
			Gte: timePtrToTimestamp(c.DatetimeRange.Gte),
			Lt:  timePtrToTimestamp(c.DatetimeRange.Lt),
			Lte: timePtrToTimestamp(c.DatetimeRange.Lte),
		})
	case c.ValuesCount != nil:
		return qdrant.NewValuesCount(c.Key, &qdrant.ValuesCount{
			Gt:  intPtrToUint64(c.ValuesCount.Gt),
			Gte: intPtrToUint64(c.ValuesCount.Gte),
			Lt:  intPtrToUint64(c.ValuesCount.Lt),
			Lte: intPtrToUint64(c.ValuesCount.Lte),
		})
	case c.IsEmpty:
		return qdrant.NewIsEmpty(c.Key)
	case c.IsNull:
		return qdrant.NewIsNull(c.Key)
	default:
		return nil
	}
}

// toMatchValue narrows the dynamic scalar into one of the concrete
// types qdrant.NewMatch accepts (string, int64, bool).
func toMatchValue(v any) any {
	switch t := v.(type) {
	case string, int64, bool:
		return t
	case int:
		return int64(t)
	default:
		return v
	}
}

func timePtrToTimestamp(t *time.Time) *qdrant.Timestamp {
	if t == nil {
		return nil
	}
	return qdrant.NewTimestamp(*t)
}

func intPtrToUint64(i *int) *uint64 {
	if i == nil {
		return nil
	}
	v := uint64(*i)
	return &v
}

func toStrings(values []any) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if s, ok := v.(string); ok {
			out = append(out, s)
			continue
		}
		out = append(out, toMatchValue(v).(string))
	}
	return out
}
