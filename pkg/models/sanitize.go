package models

// MetadataFields are assigned by the store and are never part of the
// logical document: revision tag, self link, etag, attachments marker
// and last-modified timestamp.
var MetadataFields = []string{"_rid", "_self", "_etag", "_attachments", "_ts"}

// IsMetadataField reports whether name is a store metadata field.
func IsMetadataField(name string) bool {
	for _, f := range MetadataFields {
		if f == name {
			return true
		}
	}
	return false
}

// Sanitize returns a shallow copy of doc without store metadata fields.
// The input is left untouched. A nil document sanitizes to nil.
func Sanitize(doc Document) Document {
	if doc == nil {
		return nil
	}
	out := make(Document, len(doc))
	for k, v := range doc {
		if IsMetadataField(k) {
			continue
		}
		out[k] = v
	}
	return out
}

// SanitizeAll applies Sanitize to every document of docs.
func SanitizeAll(docs []Document) []Document {
	out := make([]Document, len(docs))
	for i, d := range docs {
		out[i] = Sanitize(d)
	}
	return out
}
