package agents

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/xpersona/agentdex/internal/domain/agent"
)

// SampleLimit bounds the rows fetched for suggestion candidate mining.
const SampleLimit = 50

// SuggestSample fetches the top active agents matching the query by name
// prefix, in-name word prefix, description substring or capability substring.
// The sample feeds both entity suggestions and capability-token candidates.
func (s *Store) SuggestSample(ctx context.Context, q string, limit int) ([]agent.Record, error) {
	if limit <= 0 || limit > SampleLimit {
		limit = SampleLimit
	}

	esc := escapeLike(strings.ToLower(strings.TrimSpace(q)))
	if esc == "" {
		return nil, nil
	}
	prefix := esc + "%"
	wordPrefix := "% " + esc + "%"
	substr := "%" + esc + "%"

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, slug, description, protocols, capabilities,
			overall_rank, created_at
		FROM agents a
		WHERE status = ?
		  AND (lower(name) LIKE ? ESCAPE '\'
			OR lower(name) LIKE ? ESCAPE '\'
			OR lower(description) LIKE ? ESCAPE '\'
			OR lower(capabilities) LIKE ? ESCAPE '\')
		ORDER BY overall_rank DESC, created_at DESC
		LIMIT ?`,
		agent.StatusActive, prefix, wordPrefix, substr, substr, limit)
	if err != nil {
		return nil, fmt.Errorf("suggest sample query: %w", err)
	}
	defer rows.Close()

	var records []agent.Record
	for rows.Next() {
		var (
			rec                     agent.Record
			protocols, capabilities string
			createdAt               int64
		)
		if err := rows.Scan(&rec.ID, &rec.Name, &rec.Slug, &rec.Description,
			&protocols, &capabilities, &rec.OverallRank, &createdAt); err != nil {
			return nil, fmt.Errorf("scanning sample row: %w", err)
		}
		rec.CreatedAt = time.Unix(0, createdAt)
		if err := decodeList(protocols, &rec.Protocols); err != nil {
			return nil, err
		}
		if err := decodeList(capabilities, &rec.Capabilities); err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sample rows: %w", err)
	}
	return records, nil
}
