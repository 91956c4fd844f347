// Package journal keeps a local history of upload runs in SQLite.
//
// Every batch becomes a Run with one Upload row per document. The history
// backs "pbx documents history" and lets --skip-uploaded leave out documents
// that already reached the same target.
//
// Typical usage:
//
//	j, _ := journal.Open(ctx, "~/.pbx/journal.db")
//	defer j.Close()
//	run := &journal.Run{Target: "inboxes/abc", Pattern: "data/*.pdf"}
//	_ = j.Repo.CreateRun(ctx, run)
//	_ = j.Record(ctx, run, uploads)
package journal
