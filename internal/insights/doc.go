// Package insights prepares AI decision queries and interprets their results.
//
// Queries are checked against an embedded JSON schema before they are sent. Results are
// normalised into an Insight with a numeric confidence score and kept in a short History.
package insights
