package upload

import (
	"fmt"

	"github.com/dmitrijs2005/pbx/internal/common"
)

// Target is the collection a document is uploaded to. Exactly one of the ids
// must be set.
type Target struct {
	InboxID  string
	RouterID string
}

func (t Target) Validate() error {
	switch {
	case t.InboxID != "" && t.RouterID != "":
		return fmt.Errorf("%w: got both inbox %q and router %q", common.ErrInvalidTarget, t.InboxID, t.RouterID)
	case t.InboxID == "" && t.RouterID == "":
		return common.ErrInvalidTarget
	}
	return nil
}

// Path is the target-specific URL segment, e.g. "inboxes/<id>".
func (t Target) Path() string {
	if t.InboxID != "" {
		return "inboxes/" + t.InboxID
	}
	return "routers/" + t.RouterID
}

// String is Path for a valid target and empty otherwise.
func (t Target) String() string {
	if t.Validate() != nil {
		return ""
	}
	return t.Path()
}

// Metadata holds the optional free-text labels sent with a document.
type Metadata struct {
	TagTypeID        string
	DocumentClass    string
	DocumentSubclass string
}

// Params describes one document upload.
type Params struct {
	Path     string
	Target   Target
	Metadata Metadata
}

// Placeholder names that override upload parameters per file.
const (
	VarInboxID          = "inbox_id"
	VarRouterID         = "router_id"
	VarTagTypeID        = "tag_type_id"
	VarDocumentClass    = "document_class"
	VarDocumentSubclass = "document_subclass"
)

// WithVars returns a copy of p with values captured from the path pattern
// applied. Unknown names are ignored.
func (p Params) WithVars(vars map[string]string) Params {
	for name, v := range vars {
		switch name {
		case VarInboxID:
			p.Target.InboxID = v
		case VarRouterID:
			p.Target.RouterID = v
		case VarTagTypeID:
			p.Metadata.TagTypeID = v
		case VarDocumentClass:
			p.Metadata.DocumentClass = v
		case VarDocumentSubclass:
			p.Metadata.DocumentSubclass = v
		}
	}
	return p
}
