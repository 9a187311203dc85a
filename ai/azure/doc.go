// Package azure serves the Enterprise provider against Azure OpenAI deployments.
//
// Chat and embeddings may live on different Azure resources, so each service
// gets its own go-openai client built from the Enterprise credentials.
// Deployment names replace model identifiers in every request URL.
package azure
