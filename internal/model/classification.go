package model

// Role is the syntactic bucket a token is classified into
type Role string

const (
	RoleRoot    Role = "root"
	RoleSubject Role = "subject"
	RoleObject  Role = "object"
	RoleOther   Role = "" // Plain token, rendered without annotation
)

// ParseRole converts a config string to a Role
func ParseRole(s string) (Role, bool) {
	switch Role(s) {
	case RoleRoot, RoleSubject, RoleObject:
		return Role(s), true
	default:
		return RoleOther, false
	}
}

// AnnotatedToken is a token as rendered after classification.
// A token with an empty Class is plain text.
type AnnotatedToken struct {
	Text  string `json:"text"`            // Token text including trailing whitespace
	Label string `json:"label,omitempty"` // POS tag for roots, dependency label for subjects/objects
	Class Role   `json:"class,omitempty"` // root, subject, object or empty
}

// IsPlain reports whether the token carries no role
func (a AnnotatedToken) IsPlain() bool {
	return a.Class == RoleOther
}

// ClassificationResult is the outcome of one classifier pass over a sentence
type ClassificationResult struct {
	Tokens     []AnnotatedToken `json:"tokens"`
	HasSubject bool             `json:"has_subject"`
	HasRoot    bool             `json:"has_root"`
	HasObject  bool             `json:"has_object"`
}

// Has reports whether the given role was found in the sentence
func (r ClassificationResult) Has(role Role) bool {
	switch role {
	case RoleRoot:
		return r.HasRoot
	case RoleSubject:
		return r.HasSubject
	case RoleObject:
		return r.HasObject
	default:
		return false
	}
}
