package repository

import (
	"fmt"
	"time"
)

// ElementKind is the type tag of a model element. Kinds form a closed set;
// computation-driving fields live on the typed analysis rows, never in the
// open property map.
type ElementKind string

const (
	KindBlock          ElementKind = "Block"
	KindPart           ElementKind = "Part"
	KindComponent      ElementKind = "Component"
	KindHazard         ElementKind = "Hazard"
	KindMalfunction    ElementKind = "Malfunction"
	KindScenario       ElementKind = "Scenario"
	KindSafetyGoal     ElementKind = "SafetyGoal"
	KindCyberGoal      ElementKind = "CybersecurityGoal"
	KindFaultTreeNode  ElementKind = "FaultTreeNode"
	KindRequirement    ElementKind = "Requirement"
	KindCyberRiskEntry ElementKind = "CyberRiskEntry"
	KindTriggeringCond ElementKind = "TriggeringCondition"
	KindFunctionalInsuf ElementKind = "FunctionalInsufficiency"
)

// ValueKind discriminates the Value union
type ValueKind uint8

const (
	ValueString ValueKind = iota
	ValueInt
	ValueFloat
	ValueBool
	ValueTime
)

// Value is a typed property value. Only free-form metadata (notes, rationale
// text, external references) belongs in element property maps; anything a
// computation reads is a typed field on the owning row.
type Value struct {
	Kind ValueKind `yaml:"kind"`
	Str  string    `yaml:"str,omitempty"`
	Int  int64     `yaml:"int,omitempty"`
	Flt  float64   `yaml:"flt,omitempty"`
	Bool bool      `yaml:"bool,omitempty"`
	Time time.Time `yaml:"time,omitempty"`
}

// StringValue creates a string-typed value
func StringValue(s string) Value { return Value{Kind: ValueString, Str: s} }

// IntValue creates an int-typed value
func IntValue(i int64) Value { return Value{Kind: ValueInt, Int: i} }

// FloatValue creates a float-typed value
func FloatValue(f float64) Value { return Value{Kind: ValueFloat, Flt: f} }

// BoolValue creates a bool-typed value
func BoolValue(b bool) Value { return Value{Kind: ValueBool, Bool: b} }

// TimeValue creates a timestamp-typed value
func TimeValue(t time.Time) Value { return Value{Kind: ValueTime, Time: t} }

// AsString returns the string payload or an error for a non-string value
func (v Value) AsString() (string, error) {
	if v.Kind != ValueString {
		return "", fmt.Errorf("value is not a string")
	}
	return v.Str, nil
}

// AsInt returns the int payload or an error for a non-int value
func (v Value) AsInt() (int64, error) {
	if v.Kind != ValueInt {
		return 0, fmt.Errorf("value is not an int")
	}
	return v.Int, nil
}

// AsFloat returns the float payload or an error for a non-float value
func (v Value) AsFloat() (float64, error) {
	if v.Kind != ValueFloat {
		return 0, fmt.Errorf("value is not a float")
	}
	return v.Flt, nil
}

// AsBool returns the bool payload or an error for a non-bool value
func (v Value) AsBool() (bool, error) {
	if v.Kind != ValueBool {
		return false, fmt.Errorf("value is not a bool")
	}
	return v.Bool, nil
}

// AsTime returns the timestamp payload or an error for a non-time value
func (v Value) AsTime() (time.Time, error) {
	if v.Kind != ValueTime {
		return time.Time{}, fmt.Errorf("value is not a timestamp")
	}
	return v.Time, nil
}

// Metadata tracks creation and modification info for an entity
type Metadata struct {
	Created         time.Time `yaml:"created"`
	Author          string    `yaml:"author"`
	AuthorEmail     string    `yaml:"author_email"`
	Modified        time.Time `yaml:"modified"`
	ModifiedBy      string    `yaml:"modified_by"`
	ModifiedByEmail string    `yaml:"modified_by_email"`
}

// Element is a typed model node
type Element struct {
	ID         uint64           `yaml:"id"`
	Kind       ElementKind      `yaml:"kind"`
	Name       string           `yaml:"name"`
	Properties map[string]Value `yaml:"properties,omitempty"`
	Meta       Metadata         `yaml:"meta"`
}

// Clone creates a deep copy of an element
func (e *Element) Clone() *Element {
	clone := &Element{
		ID:   e.ID,
		Kind: e.Kind,
		Name: e.Name,
		Meta: e.Meta,
	}
	if e.Properties != nil {
		clone.Properties = make(map[string]Value, len(e.Properties))
		for k, v := range e.Properties {
			clone.Properties[k] = v
		}
	}
	return clone
}

// Relationship is a typed directed edge between two elements
type Relationship struct {
	ID         uint64           `yaml:"id"`
	FromID     uint64           `yaml:"from_id"`
	ToID       uint64           `yaml:"to_id"`
	Stereotype string           `yaml:"stereotype"`
	Properties map[string]Value `yaml:"properties,omitempty"`
	Meta       Metadata         `yaml:"meta"`
}

// Clone creates a deep copy of a relationship
func (r *Relationship) Clone() *Relationship {
	clone := &Relationship{
		ID:         r.ID,
		FromID:     r.FromID,
		ToID:       r.ToID,
		Stereotype: r.Stereotype,
		Meta:       r.Meta,
	}
	if r.Properties != nil {
		clone.Properties = make(map[string]Value, len(r.Properties))
		for k, v := range r.Properties {
			clone.Properties[k] = v
		}
	}
	return clone
}

// DrawnObject is a drawn record on a diagram, optionally bound to an element.
// Coordinate and visual-state fields belong to the rendering layer; the model
// only cares about the binding.
type DrawnObject struct {
	ObjID     uint64  `yaml:"obj_id"`
	ElementID uint64  `yaml:"element_id,omitempty"` // 0 = unbound decoration
	X         float64 `yaml:"x"`
	Y         float64 `yaml:"y"`
	Width     float64 `yaml:"width"`
	Height    float64 `yaml:"height"`
	Hidden    bool    `yaml:"hidden,omitempty"`
	Locked    bool    `yaml:"locked,omitempty"`
}

// DrawnConnection is a drawn connection record, optionally bound to a relationship
type DrawnConnection struct {
	ConnID         uint64 `yaml:"conn_id"`
	RelationshipID uint64 `yaml:"relationship_id,omitempty"`
	FromObjID      uint64 `yaml:"from_obj_id"`
	ToObjID        uint64 `yaml:"to_obj_id"`
	Hidden         bool   `yaml:"hidden,omitempty"`
}

// Diagram is a named container of drawn objects and connections
type Diagram struct {
	ID          uint64            `yaml:"id"`
	Name        string            `yaml:"name"`
	Objects     []DrawnObject     `yaml:"objects,omitempty"`
	Connections []DrawnConnection `yaml:"connections,omitempty"`
	Meta        Metadata          `yaml:"meta"`
	nextObjID   uint64
}

// ObjIDCounter exposes the drawn-record ID allocator for snapshot capture
func (d *Diagram) ObjIDCounter() uint64 {
	return d.nextObjID
}

// Clone creates a deep copy of a diagram
func (d *Diagram) Clone() *Diagram {
	clone := &Diagram{
		ID:        d.ID,
		Name:      d.Name,
		Meta:      d.Meta,
		nextObjID: d.nextObjID,
	}
	clone.Objects = append([]DrawnObject(nil), d.Objects...)
	clone.Connections = append([]DrawnConnection(nil), d.Connections...)
	return clone
}

// Document is implemented by every analysis document registered with the
// repository. Documents own their rows; the repository owns document identity
// and lifecycle.
type Document interface {
	// DocName returns the unique document name
	DocName() string
	// DocKind returns the document family tag (e.g. "hazop", "fmeda")
	DocKind() string
}
