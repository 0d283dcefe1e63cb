// Package rp provides a scope-based client for the Report Portal API, as used
// to replay xUnit results: launches, test items, logs, and the filter, widget
// and dashboard entities of the auto-dashboard.
//
// Usage:
//
//	client, err := rp.New(endpoint, token, rp.WithTimeout(30*time.Second))
//	session := rp.NewSession(client, "my-project")
//	id, err := session.ImportResultsArchive(ctx, "results/junit.xml")
//	merged, err := session.MergeLaunches(ctx, "nightly", "merged launches", rp.MergeDeep)
//
// A Session is not safe for concurrent use; callers process one payload at a
// time per session.
package rp
