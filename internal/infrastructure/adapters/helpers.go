package adapters

import (
	"strings"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/sellerops/marketplace-hub/internal/domain"
)

func attributeOption(key, value string) trace.SpanStartOption {
	return trace.WithAttributes(attribute.String(key, value))
}

// filterCategories walks a category tree and returns flat matches whose
// name contains the lowercased query.
func filterCategories(nodes []domain.Category, loweredQuery string) []domain.Category {
	var matches []domain.Category
	for _, node := range nodes {
		if strings.Contains(strings.ToLower(node.Name), loweredQuery) {
			match := node
			match.Children = nil
			matches = append(matches, match)
		}
		matches = append(matches, filterCategories(node.Children, loweredQuery)...)
	}
	return matches
}
