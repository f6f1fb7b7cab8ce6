package agents

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/xpersona/agentdex/internal/domain/agent"
)

// Upsert inserts or replaces an agent record and its full-text shadow row in
// one transaction. A missing ID gets a fresh UUID; a missing slug is derived
// from the name. Returns the record's ID.
func (s *Store) Upsert(ctx context.Context, rec agent.Record) (string, error) {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.Slug == "" {
		rec.Slug = Slugify(rec.Name)
	}
	if rec.Status == "" {
		rec.Status = agent.StatusActive
	}

	protocols, err := encodeList(rec.Protocols)
	if err != nil {
		return "", err
	}
	capabilities, err := encodeList(rec.Capabilities)
	if err != nil {
		return "", err
	}
	languages, err := encodeList(rec.Languages)
	if err != nil {
		return "", err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT OR REPLACE INTO agents
			(id, name, slug, description, homepage_url, protocols, capabilities,
			 languages, source, safety_score, popularity_score, freshness_score,
			 overall_rank, status, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.Name, rec.Slug, rec.Description, rec.HomepageURL,
		protocols, capabilities, languages, rec.Source,
		rec.SafetyScore, rec.PopularityScore, rec.FreshnessScore,
		rec.OverallRank, rec.Status, rec.CreatedAt.UnixNano())
	if err != nil {
		return "", fmt.Errorf("upserting agent: %w", err)
	}

	// FTS rows share the base table's rowid so ranking reads can join them.
	_, err = tx.ExecContext(ctx, `
		INSERT OR REPLACE INTO agents_fts (rowid, name, description, capabilities)
		VALUES ((SELECT rowid FROM agents WHERE id = ?), ?, ?, ?)`,
		rec.ID, rec.Name, rec.Description, strings.Join(rec.Capabilities, " "))
	if err != nil {
		return "", fmt.Errorf("upserting fts row: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("committing upsert: %w", err)
	}
	return rec.ID, nil
}

// Delete removes an agent and its full-text row.
func (s *Store) Delete(ctx context.Context, id string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		"DELETE FROM agents_fts WHERE rowid = (SELECT rowid FROM agents WHERE id = ?)", id); err != nil {
		return fmt.Errorf("deleting fts row: %w", err)
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM agents WHERE id = ?", id); err != nil {
		return fmt.Errorf("deleting agent: %w", err)
	}
	return tx.Commit()
}

// Slugify lowercases the name and collapses non-alphanumeric runs to single
// hyphens.
func Slugify(name string) string {
	var sb strings.Builder
	sb.Grow(len(name))
	lastHyphen := true
	for _, r := range strings.ToLower(name) {
		switch {
		case r >= 'a' && r <= 'z' || r >= '0' && r <= '9':
			sb.WriteRune(r)
			lastHyphen = false
		case !lastHyphen:
			sb.WriteByte('-')
			lastHyphen = true
		}
	}
	return strings.TrimSuffix(sb.String(), "-")
}

func encodeList(list []string) (string, error) {
	if list == nil {
		list = []string{}
	}
	raw, err := json.Marshal(list)
	if err != nil {
		return "", fmt.Errorf("encoding list column: %w", err)
	}
	return string(raw), nil
}
