// Package embedding turns arguments into vectors.
//
// Service sends argument texts to an ai.Embedder in fixed-size batches and
// returns one vector per argument, aligned by argument id. Vectors can be
// cached by model and content id so re-runs only embed new texts.
//
//	svc := embedding.NewService(embedder,
//	    embedding.WithCache(repo.Embeddings),
//	    embedding.WithModelName("text-embedding-3-small"),
//	)
//	vectors, err := svc.Embed(ctx, args)
package embedding
