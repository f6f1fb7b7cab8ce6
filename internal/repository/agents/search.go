package agents

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/xpersona/agentdex/internal/domain/agent"
	"github.com/xpersona/agentdex/internal/domain/search/index"
	"github.com/xpersona/agentdex/internal/domain/search/mode"
)

// Search executes the ranking read: filter, order by the composite sort key
// descending, apply the keyset predicate, fetch Limit rows. The returned
// total counts the full filtered match set, not the page.
func (s *Store) Search(ctx context.Context, q index.Query) ([]agent.Record, int, error) {
	inner, args := s.buildInner(ctx, q, true)

	var sb strings.Builder
	sb.WriteString("SELECT * FROM (")
	sb.WriteString(inner)
	sb.WriteString(") r")
	if q.After != nil {
		sb.WriteString(` WHERE (r.homepage_priority, r.sort_primary, r.overall_rank, r.created_at, r.id)
			< (?, ?, ?, ?, ?)`)
		args = append(args, q.After.HomepagePriority, q.After.Primary, q.After.Rank, q.After.CreatedAtNanos, q.After.ID)
	}
	sb.WriteString(` ORDER BY r.homepage_priority DESC, r.sort_primary DESC,
		r.overall_rank DESC, r.created_at DESC, r.id DESC LIMIT ?`)
	args = append(args, q.Limit)

	rows, err := s.db.QueryContext(ctx, sb.String(), args...)
	if err != nil {
		return nil, 0, fmt.Errorf("search query: %w", err)
	}
	defer rows.Close()

	var (
		records []agent.Record
		total   int
	)
	for rows.Next() {
		rec, t, err := scanRecord(rows)
		if err != nil {
			return nil, 0, err
		}
		records = append(records, rec)
		total = t
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("search rows: %w", err)
	}
	return records, total, nil
}

// buildInner assembles the filtered projection. The windowed total is
// computed here, before the keyset predicate, so it stays constant across
// pages of the same query.
func (s *Store) buildInner(ctx context.Context, q index.Query, withSnippet bool) (string, []any) {
	hasHomepage := s.hasHomepageColumn(ctx)

	homepageCol := "''"
	hpExpr := "0"
	if hasHomepage {
		homepageCol = "a.homepage_url"
		hpExpr = "CASE WHEN a.homepage_url != '' THEN 1 ELSE 0 END"
	}

	match := ""
	if q.Parsed != nil && q.Parsed.HasText() {
		match = matchExpression(q.Parsed)
	}

	// Placeholder order follows the SQL: the sort and snippet expressions
	// appear in the SELECT list, so their args precede the WHERE args.
	var args []any

	primaryExpr := sortPrimaryExpr(q.Sort)
	if primaryExpr == "" {
		primaryExpr = "a.overall_rank"
		if match != "" {
			// bm25 reports smaller-is-better negative scores; negated, any
			// full-text match sorts above the 0.0 given to rows recalled by
			// the substring arms alone.
			primaryExpr = `COALESCE((SELECT -bm25(agents_fts) FROM agents_fts
				WHERE agents_fts.rowid = a.rowid AND agents_fts MATCH ?), 0.0)`
			args = append(args, match)
		}
	}

	snippetExpr := "''"
	if withSnippet && match != "" {
		snippetExpr = `COALESCE((SELECT snippet(agents_fts, -1, '[MATCH]', '[/MATCH]', '…', 12)
			FROM agents_fts WHERE agents_fts.rowid = a.rowid AND agents_fts MATCH ?), '')`
		args = append(args, match)
	}

	from := "FROM agents a"
	var conds []string

	if q.Parsed != nil && q.Parsed.HasText() {
		// The full-text match is ORed with name, description and capability
		// substring arms: the tokenizer under-recalls short or partial
		// tokens, and those still have to find their agents.
		pattern := "%" + escapeLike(strings.ToLower(q.Parsed.FreeText())) + "%"
		like := `lower(a.name) LIKE ? ESCAPE '\'
			OR lower(a.description) LIKE ? ESCAPE '\'
			OR lower(a.capabilities) LIKE ? ESCAPE '\'`
		if match != "" {
			conds = append(conds,
				"(a.rowid IN (SELECT rowid FROM agents_fts WHERE agents_fts MATCH ?) OR "+like+")")
			args = append(args, match, pattern, pattern, pattern)
		} else {
			conds = append(conds, "("+like+")")
			args = append(args, pattern, pattern, pattern)
		}
	}

	if q.IncludePending {
		conds = append(conds, "a.status IN (?, ?)")
		args = append(args, agent.StatusActive, agent.StatusPending)
	} else {
		conds = append(conds, "a.status = ?")
		args = append(args, agent.StatusActive)
	}

	if c, a := membershipCond("a.protocols", q.Protocols); c != "" {
		conds, args = append(conds, c), append(args, a...)
	}
	if c, a := membershipCond("a.capabilities", q.Capabilities); c != "" {
		conds, args = append(conds, c), append(args, a...)
	}
	if c, a := membershipCond("a.languages", q.Languages); c != "" {
		conds, args = append(conds, c), append(args, a...)
	}
	if q.Source != "" {
		conds = append(conds, "a.source = ?")
		args = append(args, q.Source)
	}
	if q.MinSafety != nil {
		conds = append(conds, "a.safety_score >= ?")
		args = append(args, *q.MinSafety)
	}
	if q.MinRank != nil {
		conds = append(conds, "a.overall_rank >= ?")
		args = append(args, *q.MinRank)
	}
	if q.Parsed != nil {
		for _, tok := range q.Parsed.Excluded {
			pattern := "%" + escapeLike(tok) + "%"
			conds = append(conds, `(lower(a.name) NOT LIKE ? ESCAPE '\'
				AND lower(a.description) NOT LIKE ? ESCAPE '\')`)
			args = append(args, pattern, pattern)
		}
	}

	inner := fmt.Sprintf(`SELECT a.id, a.name, a.slug, a.description, %s AS homepage_url,
		a.protocols, a.capabilities, a.languages, a.source,
		a.safety_score, a.popularity_score, a.freshness_score, a.overall_rank,
		a.status, a.created_at,
		%s AS homepage_priority,
		%s AS sort_primary,
		%s AS snippet,
		COUNT(*) OVER () AS total
		%s
		WHERE %s`,
		homepageCol, hpExpr, primaryExpr, snippetExpr, from, strings.Join(conds, " AND "))
	return inner, args
}

// sortPrimaryExpr maps an explicit sort mode onto its column. Returns ""
// for relevance, which the caller resolves to the full-text score (or the
// overall rank for filter-only queries).
func sortPrimaryExpr(m mode.Mode) string {
	switch m {
	case mode.Safety:
		return "CAST(a.safety_score AS REAL)"
	case mode.Popularity:
		return "CAST(a.popularity_score AS REAL)"
	case mode.Freshness:
		return "CAST(a.freshness_score AS REAL)"
	case mode.Rank:
		return "a.overall_rank"
	}
	return ""
}

// membershipCond matches rows whose JSON array column contains any of the
// wanted values.
func membershipCond(column string, values []string) (string, []any) {
	if len(values) == 0 {
		return "", nil
	}
	parts := make([]string, len(values))
	args := make([]any, len(values))
	for i, v := range values {
		parts[i] = fmt.Sprintf("EXISTS (SELECT 1 FROM json_each(%s) WHERE json_each.value = ?)", column)
		args[i] = v
	}
	return "(" + strings.Join(parts, " OR ") + ")", args
}

func scanRecord(rows *sql.Rows) (agent.Record, int, error) {
	var (
		rec                                agent.Record
		protocols, capabilities, languages string
		createdAt                          int64
		homepagePriority                   int
		total                              int
	)
	err := rows.Scan(&rec.ID, &rec.Name, &rec.Slug, &rec.Description, &rec.HomepageURL,
		&protocols, &capabilities, &languages, &rec.Source,
		&rec.SafetyScore, &rec.PopularityScore, &rec.FreshnessScore, &rec.OverallRank,
		&rec.Status, &createdAt,
		&homepagePriority, &rec.SortPrimary, &rec.Snippet, &total)
	if err != nil {
		return agent.Record{}, 0, fmt.Errorf("scanning agent row: %w", err)
	}

	rec.CreatedAt = time.Unix(0, createdAt)
	if err := decodeList(protocols, &rec.Protocols); err != nil {
		return agent.Record{}, 0, err
	}
	if err := decodeList(capabilities, &rec.Capabilities); err != nil {
		return agent.Record{}, 0, err
	}
	if err := decodeList(languages, &rec.Languages); err != nil {
		return agent.Record{}, 0, err
	}
	return rec, total, nil
}

func decodeList(raw string, dst *[]string) error {
	if raw == "" {
		return nil
	}
	if err := json.Unmarshal([]byte(raw), dst); err != nil {
		return fmt.Errorf("decoding list column: %w", err)
	}
	return nil
}
