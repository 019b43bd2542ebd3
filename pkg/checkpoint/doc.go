// Package checkpoint persists crawl and queue progress so an
// interrupted run resumes instead of rescanning. The state file is a
// single JSON document written atomically (temp file, fsync, rename);
// an unparseable file is quarantined with a timestamped suffix rather
// than aborting the run.
package checkpoint
