// Package toolkit provides the building blocks for writing GitHub Actions in
// Go: the `github` context resolved from runner environment variables and the
// webhook event payload, workflow commands (annotations, masks, log groups),
// command-file writers for outputs, env vars, state and PATH entries, typed
// action inputs, and a step summary builder.
package toolkit
