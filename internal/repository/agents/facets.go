package agents

import (
	"context"
	"fmt"

	"github.com/xpersona/agentdex/internal/domain/search/index"
	"github.com/xpersona/agentdex/internal/domain/search/result"
)

// maxFacetBuckets bounds each histogram.
const maxFacetBuckets = 10

// Facets aggregates protocol, capability and language histograms over the
// full filtered match set, ignoring pagination.
func (s *Store) Facets(ctx context.Context, q index.Query) (result.Facets, error) {
	var f result.Facets

	protocols, err := s.facetColumn(ctx, q, "protocols")
	if err != nil {
		return f, err
	}
	capabilities, err := s.facetColumn(ctx, q, "capabilities")
	if err != nil {
		return f, err
	}
	languages, err := s.facetColumn(ctx, q, "languages")
	if err != nil {
		return f, err
	}

	f.Protocols = protocols
	f.Capabilities = capabilities
	f.Languages = languages
	return f, nil
}

func (s *Store) facetColumn(ctx context.Context, q index.Query, column string) ([]result.Bucket, error) {
	inner, args := s.buildInner(ctx, q, false)

	stmt := fmt.Sprintf(`SELECT json_each.value AS v, COUNT(*) AS c
		FROM (%s) r, json_each(r.%s)
		WHERE json_each.value != ''
		GROUP BY v
		ORDER BY c DESC, v ASC
		LIMIT %d`, inner, column, maxFacetBuckets)

	rows, err := s.db.QueryContext(ctx, stmt, args...)
	if err != nil {
		return nil, fmt.Errorf("facet query (%s): %w", column, err)
	}
	defer rows.Close()

	var buckets []result.Bucket
	for rows.Next() {
		var b result.Bucket
		if err := rows.Scan(&b.Value, &b.Count); err != nil {
			return nil, fmt.Errorf("scanning facet row: %w", err)
		}
		buckets = append(buckets, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("facet rows (%s): %w", column, err)
	}
	return buckets, nil
}
