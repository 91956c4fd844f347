// Package cli implements the pbx command tree:
//
//	pbx [-V|--version]
//	pbx documents upload <document-path> [flags]
//	pbx documents history [--limit N]
//
// The document path may contain {placeholder} tokens and * / ? wildcards.
// Captured placeholders named inbox_id, router_id, tag_type_id,
// document_class or document_subclass override the matching flags for that
// file. Paths starting with s3:// are read from an S3-compatible bucket.
package cli
