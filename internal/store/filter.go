package store

import (
	"reflect"
	"strings"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type op int

const (
	opEq op = iota
	opNe
	opIn
	opMissing
	opLt
)

// Clause is one predicate on a (possibly dotted) field.
type Clause struct {
	Field  string
	op     op
	values []interface{}
}

// Filter is a conjunction of clauses.
type Filter []Clause

func Where(clauses ...Clause) Filter { return Filter(clauses) }

func Eq(field string, value interface{}) Clause {
	return Clause{Field: field, op: opEq, values: []interface{}{value}}
}

func Ne(field string, value interface{}) Clause {
	return Clause{Field: field, op: opNe, values: []interface{}{value}}
}

func In[T any](field string, values ...T) Clause {
	vs := make([]interface{}, 0, len(values))
	for _, v := range values {
		vs = append(vs, v)
	}
	return Clause{Field: field, op: opIn, values: vs}
}

func Missing(field string) Clause {
	return Clause{Field: field, op: opMissing}
}

// Lt matches numeric fields strictly below value. Missing fields never match.
func Lt(field string, value interface{}) Clause {
	return Clause{Field: field, op: opLt, values: []interface{}{value}}
}

func (f Filter) toBSON(prefix string) bson.D {
	d := bson.D{}
	for _, c := range f {
		key := prefix + c.Field
		switch c.op {
		case opEq:
			d = append(d, bson.E{Key: key, Value: c.values[0]})
		case opNe:
			d = append(d, bson.E{Key: key, Value: bson.M{"$ne": c.values[0]}})
		case opIn:
			d = append(d, bson.E{Key: key, Value: bson.M{"$in": c.values}})
		case opMissing:
			d = append(d, bson.E{Key: key, Value: bson.M{"$exists": false}})
		case opLt:
			d = append(d, bson.E{Key: key, Value: bson.M{"$lt": c.values[0]}})
		}
	}
	return d
}

func (f Filter) matches(doc bson.M) bool {
	for _, c := range f {
		v, ok := lookup(doc, c.Field)
		switch c.op {
		case opEq:
			if !ok || !equalValues(v, c.values[0]) {
				return false
			}
		case opNe:
			if ok && equalValues(v, c.values[0]) {
				return false
			}
		case opIn:
			if !ok {
				return false
			}
			found := false
			for _, want := range c.values {
				if equalValues(v, want) {
					found = true
					break
				}
			}
			if !found {
				return false
			}
		case opMissing:
			if ok {
				return false
			}
		case opLt:
			if !ok || !lessThan(v, c.values[0]) {
				return false
			}
		}
	}
	return true
}

func lookup(doc bson.M, field string) (interface{}, bool) {
	var cur interface{} = doc
	for _, part := range strings.Split(field, ".") {
		m, ok := asMap(cur)
		if !ok {
			return nil, false
		}
		cur, ok = m[part]
		if !ok {
			return nil, false
		}
	}
	return cur, true
}

func asMap(v interface{}) (bson.M, bool) {
	switch t := v.(type) {
	case bson.M:
		return t, true
	case map[string]interface{}:
		return bson.M(t), true
	case primitive.D:
		m := bson.M{}
		for _, e := range t {
			m[e.Key] = e.Value
		}
		return m, true
	}
	return nil, false
}

// normalize gives v the shape it has after a bson round trip.
func normalize(v interface{}) (interface{}, error) {
	raw, err := bson.Marshal(bson.M{"v": v})
	if err != nil {
		return nil, err
	}
	var out bson.M
	if err := bson.Unmarshal(raw, &out); err != nil {
		return nil, err
	}
	return out["v"], nil
}

func equalValues(stored, want interface{}) bool {
	want, err := normalize(want)
	if err != nil {
		return false
	}
	if a, ok := toFloat(stored); ok {
		if b, ok := toFloat(want); ok {
			return a == b
		}
	}
	return reflect.DeepEqual(stored, want)
}

func toFloat(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case float64:
		return n, true
	}
	return 0, false
}

func lessThan(stored, bound interface{}) bool {
	a, ok := toFloat(stored)
	if !ok {
		return false
	}
	b, ok := toFloat(bound)
	return ok && a < b
}
