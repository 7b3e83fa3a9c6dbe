// Package kbsearch is the embeddable entry point to kbsearch: a BM25 search
// engine over several named knowledge bases.
//
// An [Engine] owns the knowledge base registry, the indexer and the query
// engine. The CLI and the MCP server are thin layers over it.
//
// # Usage
//
//	cfg, _ := config.Load(".")
//	eng, err := kbsearch.Open(cfg, kbsearch.WithLogger(logger))
//	if err != nil {
//	    return err
//	}
//	defer eng.Close()
//
//	_, _ = eng.Add(ctx, registry.AddRequest{Name: "notes", Path: "~/notes"})
//	_, _ = eng.Index(ctx, kbsearch.IndexRequest{Name: "notes"})
//	resp, err := eng.Search(ctx, search.Request{Query: "bm25 ranking"})
//
// # Concurrency
//
// Engine is safe for concurrent use. Searches read the last published index
// of each knowledge base and never wait for a build. Builds of one knowledge
// base are serialized; builds of different bases may overlap.
package kbsearch
