// Package match implements the cross-repository matching heuristics.
//
// Two independent signals are computed for a pair of repositories:
//
//   - Shared symbols: nodes whose repo-local base name recurs in both
//     repositories with compatible kind and type.
//   - API connections: api_route provider nodes in one repository whose
//     normalized route is contained in the normalized url of an
//     api_consumer node in the other.
//
// Both are deliberate best-effort heuristics. A match is a candidate for
// coupling, not a proven integration: name recurrence can be coincidental,
// and substring containment can pair a route "/login" with an unrelated url
// containing "relogin". Callers own the interpretation.
//
// The endpoint heuristic is pluggable via the Strategy interface so a
// stricter matcher (schema-based, exact-path) can replace containment
// without touching the integration registry.
package match
