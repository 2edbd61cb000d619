// Package search holds the value types exchanged between callers and the Solr adapter:
// criteria trees, query options, facet requests and results, and indexable documents.
package search

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	serr "github.com/uvalib/solr-search-ws/internal/errors"
)

// Operation names a leaf comparison
type Operation string

const (
	OperationAnything           Operation = "Anything"
	OperationEqual              Operation = "Equal"
	OperationNotEqual           Operation = "NotEqual"
	OperationLessThan           Operation = "LessThan"
	OperationLessOrEqualThan    Operation = "LessOrEqualThan"
	OperationGreaterThan        Operation = "GreaterThan"
	OperationGreaterOrEqualThan Operation = "GreaterOrEqualThan"
	OperationLike               Operation = "Like"
	OperationFullText           Operation = "FullText"
)

// Condition joins the children of a composite criterion
type Condition string

const (
	ConditionAnd Condition = "and"
	ConditionOr  Condition = "or"
)

// Criterion is either a *Composite or a *Leaf
type Criterion interface {
	json.Marshaler
	isCriterion()
}

// Composite combines child criteria with a single condition
type Composite struct {
	Condition Condition
	Criteria  []Criterion
}

// Leaf compares one field against one value
type Leaf struct {
	Operation  Operation
	FieldName  string
	FieldValue string
}

func (*Composite) isCriterion() {}
func (*Leaf) isCriterion() {}

// And creates a composite criterion matching all children
func And(criteria ...Criterion) *Composite {
	return &Composite{Condition: ConditionAnd, Criteria: criteria}
}

// Or creates a composite criterion matching any child
func Or(criteria ...Criterion) *Composite {
	return &Composite{Condition: ConditionOr, Criteria: criteria}
}

// NewLeaf creates a leaf criterion
func NewLeaf(op Operation, fieldName, fieldValue string) *Leaf {
	return &Leaf{Operation: op, FieldName: fieldName, FieldValue: fieldValue}
}

// Equal is shorthand for an Equal leaf
func Equal(fieldName, fieldValue string) *Leaf {
	return NewLeaf(OperationEqual, fieldName, fieldValue)
}

// Like is shorthand for a Like leaf
func Like(fieldName, fieldValue string) *Leaf {
	return NewLeaf(OperationLike, fieldName, fieldValue)
}

type compositeWire struct {
	Condition Condition         `json:"condition"`
	Criteria  []json.RawMessage `json:"criteria"`
}

type leafWire struct {
	FieldName  string          `json:"fieldName"`
	FieldValue json.RawMessage `json:"fieldValue"`
	Operation  Operation       `json:"operation"`
}

// MarshalJSON renders {"condition": ..., "criteria": [...]}
func (c *Composite) MarshalJSON() ([]byte, error) {
	wire := compositeWire{Condition: c.Condition, Criteria: make([]json.RawMessage, 0, len(c.Criteria))}

	for _, child := range c.Criteria {
		raw, err := child.MarshalJSON()
		if err != nil {
			return nil, err
		}
		wire.Criteria = append(wire.Criteria, raw)
	}

	return json.Marshal(wire)
}

// MarshalJSON renders {"fieldName": ..., "fieldValue": ..., "operation": ...}
func (l *Leaf) MarshalJSON() ([]byte, error) {
	value, err := json.Marshal(l.FieldValue)
	if err != nil {
		return nil, err
	}

	return json.Marshal(leafWire{FieldName: l.FieldName, FieldValue: value, Operation: l.Operation})
}

// UnmarshalCriterion decodes the nested criteria wire format
func UnmarshalCriterion(data []byte) (Criterion, error) {
	var fields map[string]json.RawMessage

	if err := json.Unmarshal(data, &fields); err != nil {
		return nil, serr.NewValidationError("criteria", err.Error())
	}

	if _, ok := fields["condition"]; ok == true {
		return unmarshalComposite(data)
	}

	return unmarshalLeaf(data)
}

func unmarshalComposite(data []byte) (Criterion, error) {
	var wire compositeWire

	if err := json.Unmarshal(data, &wire); err != nil {
		return nil, serr.NewValidationError("criteria", err.Error())
	}

	cond := Condition(strings.ToLower(string(wire.Condition)))
	if cond != ConditionAnd && cond != ConditionOr {
		return nil, serr.NewValidationError("condition", fmt.Sprintf("unknown condition '%s'", wire.Condition))
	}

	composite := &Composite{Condition: cond}

	for _, raw := range wire.Criteria {
		child, err := UnmarshalCriterion(raw)
		if err != nil {
			return nil, err
		}
		composite.Criteria = append(composite.Criteria, child)
	}

	return composite, nil
}

func unmarshalLeaf(data []byte) (Criterion, error) {
	var wire leafWire

	if err := json.Unmarshal(data, &wire); err != nil {
		return nil, serr.NewValidationError("criteria", err.Error())
	}

	if wire.Operation == "" {
		return nil, serr.NewValidationError("operation", "missing criterion operation")
	}

	value, err := scalarString(wire.FieldValue)
	if err != nil {
		return nil, serr.NewValidationError("fieldValue", err.Error())
	}

	return &Leaf{Operation: wire.Operation, FieldName: wire.FieldName, FieldValue: value}, nil
}

// scalarString accepts a JSON string, number or boolean and returns its text
func scalarString(raw json.RawMessage) (string, error) {
	raw = bytes.TrimSpace(raw)

	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return "", nil
	}

	if raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return "", err
		}
		return s, nil
	}

	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()

	var v interface{}
	if err := dec.Decode(&v); err != nil {
		return "", err
	}

	switch val := v.(type) {
	case json.Number:
		return val.String(), nil
	case bool:
		return fmt.Sprintf("%t", val), nil
	}

	return "", fmt.Errorf("expected a scalar value, got %s", string(raw))
}
