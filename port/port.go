// Package port defines Port, the node type used throughout the definition
// and serialization engine to describe a single argument, return value, or
// state field. A Port tree is the schema shared by the Definition Builder,
// the Serializer, and the State Worker.
package port

// Kind enumerates the wire-level value kinds a Port can describe.
type Kind string

const (
	KindInt             Kind = "INT"
	KindFloat           Kind = "FLOAT"
	KindString          Kind = "STRING"
	KindBool            Kind = "BOOL"
	KindDate            Kind = "DATE"
	KindList            Kind = "LIST"
	KindDict            Kind = "DICT"
	KindUnion           Kind = "UNION"
	KindStructure       Kind = "STRUCTURE"
	KindMemoryStructure Kind = "MEMORY_STRUCTURE"
	KindModel           Kind = "MODEL"
	KindEnum            Kind = "ENUM"
)

// Validator is a user-declared expression attached to a Port, of the form
// `(self[, dep1, dep2...]) => ...`. Dependencies must name sibling port
// keys; this is enforced at definition-build time, not here.
type Validator struct {
	Function     string   `json:"function"`
	Dependencies []string `json:"dependencies,omitempty"`
	Label        string   `json:"label,omitempty"`
	ErrorMessage string   `json:"errorMessage,omitempty"`
}

// Effect is a side-effecting expression triggered when the port's value
// changes in a UI context (e.g. populate a sibling default). The agent
// runtime carries it through unevaluated -- effects are interpreted by the
// widget/UI layer, an explicit non-goal of this module.
type Effect struct {
	Function     string   `json:"function"`
	Dependencies []string `json:"dependencies,omitempty"`
}

// Widget carries UI hint metadata opaquely; the widget/search-DSL layer
// that interprets it is an external collaborator (see spec Non-goals).
type Widget struct {
	Kind    string         `json:"kind"`
	Options map[string]any `json:"options,omitempty"`
}

// Port is a node in a Definition's argument or return tree, or in a
// State's schema tree.
type Port struct {
	Key        string      `json:"key"`
	Kind       Kind        `json:"kind"`
	Nullable   bool        `json:"nullable"`
	Identifier *string     `json:"identifier,omitempty"`
	Children   []*Port     `json:"children,omitempty"`
	Default    any         `json:"default,omitempty"`
	Validators []Validator `json:"validators,omitempty"`
	Effects    []Effect    `json:"effects,omitempty"`
	Widgets    []Widget    `json:"widgets,omitempty"`
	Label      string      `json:"label,omitempty"`
	Description string     `json:"description,omitempty"`
}

// Validate checks the structural invariants from the data model: LIST and
// DICT must have exactly one child, UNION must have at least one ordered
// child, MODEL must have at least one child, and STRUCTURE/MODEL/ENUM
// kinds must carry an identifier.
func (p *Port) Validate() error {
	switch p.Kind {
	case KindList, KindDict:
		if len(p.Children) != 1 {
			return &ValidationError{Key: p.Key, Kind: p.Kind, Reason: "must have exactly one child"}
		}
	case KindUnion:
		if len(p.Children) < 1 {
			return &ValidationError{Key: p.Key, Kind: p.Kind, Reason: "must have at least one ordered child"}
		}
	case KindModel:
		if len(p.Children) < 1 {
			return &ValidationError{Key: p.Key, Kind: p.Kind, Reason: "must have at least one child"}
		}
		if p.Identifier == nil {
			return &ValidationError{Key: p.Key, Kind: p.Kind, Reason: "must carry an identifier"}
		}
	case KindStructure, KindMemoryStructure, KindEnum:
		if p.Identifier == nil {
			return &ValidationError{Key: p.Key, Kind: p.Kind, Reason: "must carry an identifier"}
		}
	}
	for _, child := range p.Children {
		if err := child.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// ValidationError reports a structural invariant violation on a Port tree.
type ValidationError struct {
	Key    string
	Kind   Kind
	Reason string
}

func (e *ValidationError) Error() string {
	return "port " + e.Key + " (" + string(e.Kind) + "): " + e.Reason
}
