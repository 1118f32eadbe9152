package postgres

import (
	"reflect"
	"testing"
)

func TestBuildProductFiltersEmpty(t *testing.T) {
	where, args := buildProductFilters(map[string]interface{}{})
	if where != "" {
		t.Fatalf("where = %q, ожидалась пустая строка", where)
	}
	if len(args) != 0 {
		t.Fatalf("args = %v", args)
	}
}

func TestBuildProductFiltersSubstring(t *testing.T) {
	where, args := buildProductFilters(map[string]interface{}{
		"sku":  "abc",
		"name": "товар",
	})

	if where != " WHERE sku ILIKE $1 AND name ILIKE $2" {
		t.Fatalf("where = %q", where)
	}
	if !reflect.DeepEqual(args, []interface{}{"%abc%", "%товар%"}) {
		t.Fatalf("args = %v", args)
	}
}

func TestBuildProductFiltersActiveBothValues(t *testing.T) {
	for _, active := range []bool{true, false} {
		where, args := buildProductFilters(map[string]interface{}{"active": active})
		if where != " WHERE active = $1" {
			t.Fatalf("where = %q", where)
		}
		if !reflect.DeepEqual(args, []interface{}{active}) {
			t.Fatalf("args = %v", args)
		}
	}
}

func TestBuildProductFiltersIgnoresEmptyStrings(t *testing.T) {
	where, args := buildProductFilters(map[string]interface{}{
		"sku":         "",
		"description": "зимний",
	})

	if where != " WHERE description ILIKE $1" {
		t.Fatalf("where = %q", where)
	}
	if len(args) != 1 {
		t.Fatalf("args = %v", args)
	}
}
