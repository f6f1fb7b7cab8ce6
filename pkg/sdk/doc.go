// Package agentdex provides an embedded Go client for the agentdex
// discovery engine: full-text agent search with keyset pagination and
// query autocomplete over a local SQLite index.
//
//	client, _ := agentdex.New(ctx, agentdex.WithDatabase("agents.db"))
//	defer client.Close()
//
//	id, _ := client.Upsert(ctx, agentdex.Agent{
//	    Name:         "Trading Assistant",
//	    Description:  "executes trades on signal",
//	    Protocols:    []string{"MCP"},
//	    Capabilities: []string{"trading"},
//	})
//
//	page, _ := client.Search(ctx, agentdex.SearchParams{Query: "trading"})
//	for _, a := range page.Agents {
//	    fmt.Println(a.Name, a.OverallRank)
//	}
//
//	sugg, _ := client.Suggest(ctx, agentdex.SuggestParams{Query: "trad"})
//
// With Redis configured the client shares query frequency history across
// replicas; without it history stays in-process.
package agentdex
