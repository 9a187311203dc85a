// Package extraction turns raw comments into deduplicated arguments.
//
// An Extractor sends each comment to a chat model together with the
// extraction prompt and collects the opinions listed in the reply. Comments
// are processed in batches of the configured worker count; every batch runs
// under one deadline and calls still pending when it expires are cancelled
// and contribute nothing.
//
// Identical argument texts are merged across the whole run. The first comment
// that produces a text mints its id and every later occurrence only adds a
// relation row.
//
//	ex := extraction.New(chat, usage,
//	    extraction.WithWorkers(8),
//	    extraction.WithPrompt(prompt),
//	)
//	result, err := ex.Extract(ctx, comments)
package extraction
