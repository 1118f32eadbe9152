package services

import (
	"testing"

	"github.com/athebyme/catalog-service/internal/domain/models"
)

func TestResolverMatchesCaseInsensitive(t *testing.T) {
	existing := []*models.Product{
		{ID: "p1", SKU: "ABC-1", Name: "Первый"},
	}
	resolver := newIdentityResolver(existing)

	for _, raw := range []string{"ABC-1", "abc-1", "  Abc-1  "} {
		product, ok := resolver.Resolve(raw)
		if !ok {
			t.Fatalf("не найден товар для SKU %q", raw)
		}
		if product.ID != "p1" {
			t.Fatalf("для SKU %q найден товар %s, ожидался p1", raw, product.ID)
		}
	}

	if _, ok := resolver.Resolve("abc-2"); ok {
		t.Fatal("найден товар для неизвестного SKU")
	}
}

func TestResolverStageCollapsesDuplicates(t *testing.T) {
	resolver := newIdentityResolver(nil)

	staged := &models.Product{SKU: "NEW-1", Name: "Новый"}
	resolver.Stage(staged)

	product, ok := resolver.Resolve(" new-1 ")
	if !ok {
		t.Fatal("застейдженный товар не найден по регистронезависимому SKU")
	}
	if product != staged {
		t.Fatal("резолвер вернул другую запись вместо застейдженной")
	}
}
