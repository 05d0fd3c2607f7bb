// Package ruleexpr implements the small declarative expression language that
// clinical protocol rules are authored in: a tagged-variant AST of comparison
// nodes, boolean combinators and named predicates, plus a tree-walking
// interpreter evaluated against a patient-state context.
package ruleexpr

import (
	"encoding/json"
	"fmt"
)

// Node is one expression-tree node. Concrete variants are Compare, Bool,
// Predicate, Field and Literal.
type Node interface {
	Eval(ctx *Context) (any, error)
	validate(reg Registry) error
}

// Compare is a binary comparison node.
type Compare struct {
	Op    string // ">", "<", ">=", "<=", "==", "!="
	Left  Node
	Right Node
}

// Bool combines operands with "and" or "or". Evaluation short-circuits.
type Bool struct {
	Op       string
	Operands []Node
}

// Predicate invokes a named domain predicate from the registry. Predicates
// are resolved by string key at evaluation time, not hard-wired into the
// interpreter.
type Predicate struct {
	Name string
	Args []Node
}

// Field resolves a dot-path against the evaluation context, e.g.
// "vitals.heart_rate" or "labs.hba1c". An unresolvable path evaluates to
// nil, not an error; comparisons against nil are false.
type Field struct {
	Path string
}

// Literal is a constant value.
type Literal struct {
	Value any
}

// Rule is the complete expression of one protocol rule: an if-tree plus the
// declared then/fallback action identifiers.
type Rule struct {
	If       Node
	Then     string
	Fallback string
}

// envelope is the wire form of a node.
type envelope struct {
	Type     string            `json:"type"`
	Op       string            `json:"op,omitempty"`
	Left     json.RawMessage   `json:"left,omitempty"`
	Right    json.RawMessage   `json:"right,omitempty"`
	Operands []json.RawMessage `json:"operands,omitempty"`
	Name     string            `json:"name,omitempty"`
	Args     []json.RawMessage `json:"args,omitempty"`
	Path     string            `json:"path,omitempty"`
	Value    any               `json:"value,omitempty"`
}

// DecodeNode decodes the JSON wire form of an expression node.
func DecodeNode(raw json.RawMessage) (Node, error) {
	if len(raw) == 0 {
		return nil, fmt.Errorf("empty expression node")
	}
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("decoding expression node: %w", err)
	}

	switch env.Type {
	case "compare":
		left, err := DecodeNode(env.Left)
		if err != nil {
			return nil, fmt.Errorf("compare left: %w", err)
		}
		right, err := DecodeNode(env.Right)
		if err != nil {
			return nil, fmt.Errorf("compare right: %w", err)
		}
		return &Compare{Op: env.Op, Left: left, Right: right}, nil

	case "bool":
		if len(env.Operands) == 0 {
			return nil, fmt.Errorf("bool node %q has no operands", env.Op)
		}
		operands := make([]Node, 0, len(env.Operands))
		for i, rawOp := range env.Operands {
			n, err := DecodeNode(rawOp)
			if err != nil {
				return nil, fmt.Errorf("bool operand %d: %w", i, err)
			}
			operands = append(operands, n)
		}
		return &Bool{Op: env.Op, Operands: operands}, nil

	case "predicate":
		args := make([]Node, 0, len(env.Args))
		for i, rawArg := range env.Args {
			n, err := DecodeNode(rawArg)
			if err != nil {
				return nil, fmt.Errorf("predicate %q arg %d: %w", env.Name, i, err)
			}
			args = append(args, n)
		}
		return &Predicate{Name: env.Name, Args: args}, nil

	case "field":
		if env.Path == "" {
			return nil, fmt.Errorf("field node missing path")
		}
		return &Field{Path: env.Path}, nil

	case "literal":
		return &Literal{Value: env.Value}, nil

	default:
		return nil, fmt.Errorf("unknown expression node type %q", env.Type)
	}
}

// ruleWire is the wire form of a rule's logic block.
type ruleWire struct {
	If       json.RawMessage `json:"if"`
	Then     string          `json:"then"`
	Fallback string          `json:"fallback"`
}

// UnmarshalJSON decodes a rule logic block from its wire form.
func (r *Rule) UnmarshalJSON(data []byte) error {
	var w ruleWire
	if err := json.Unmarshal(data, &w); err != nil {
		return fmt.Errorf("decoding rule logic: %w", err)
	}
	node, err := DecodeNode(w.If)
	if err != nil {
		return err
	}
	r.If = node
	r.Then = w.Then
	r.Fallback = w.Fallback
	return nil
}

// MarshalJSON encodes a rule logic block into its wire form.
func (r *Rule) MarshalJSON() ([]byte, error) {
	raw, err := encodeNode(r.If)
	if err != nil {
		return nil, err
	}
	return json.Marshal(ruleWire{If: raw, Then: r.Then, Fallback: r.Fallback})
}

func encodeNode(n Node) (json.RawMessage, error) {
	switch v := n.(type) {
	case *Compare:
		left, err := encodeNode(v.Left)
		if err != nil {
			return nil, err
		}
		right, err := encodeNode(v.Right)
		if err != nil {
			return nil, err
		}
		return json.Marshal(envelope{Type: "compare", Op: v.Op, Left: left, Right: right})
	case *Bool:
		operands := make([]json.RawMessage, 0, len(v.Operands))
		for _, op := range v.Operands {
			raw, err := encodeNode(op)
			if err != nil {
				return nil, err
			}
			operands = append(operands, raw)
		}
		return json.Marshal(envelope{Type: "bool", Op: v.Op, Operands: operands})
	case *Predicate:
		args := make([]json.RawMessage, 0, len(v.Args))
		for _, arg := range v.Args {
			raw, err := encodeNode(arg)
			if err != nil {
				return nil, err
			}
			args = append(args, raw)
		}
		return json.Marshal(envelope{Type: "predicate", Name: v.Name, Args: args})
	case *Field:
		return json.Marshal(envelope{Type: "field", Path: v.Path})
	case *Literal:
		return json.Marshal(envelope{Type: "literal", Value: v.Value})
	default:
		return nil, fmt.Errorf("unknown node variant %T", n)
	}
}

// Validate checks a rule against the predicate registry before it is
// admitted to a catalog: unknown operators and unregistered predicate names
// are authoring errors, caught at load time rather than evaluation time.
func (r *Rule) Validate(reg Registry) error {
	if r.If == nil {
		return fmt.Errorf("rule has no condition tree")
	}
	if r.Then == "" {
		return fmt.Errorf("rule has no then action")
	}
	if r.Fallback == "" {
		return fmt.Errorf("rule has no fallback action")
	}
	return r.If.validate(reg)
}

func (c *Compare) validate(reg Registry) error {
	switch c.Op {
	case ">", "<", ">=", "<=", "==", "!=":
	default:
		return fmt.Errorf("unknown comparison operator %q", c.Op)
	}
	if c.Left == nil || c.Right == nil {
		return fmt.Errorf("comparison %q missing operand", c.Op)
	}
	if err := c.Left.validate(reg); err != nil {
		return err
	}
	return c.Right.validate(reg)
}

func (b *Bool) validate(reg Registry) error {
	if b.Op != "and" && b.Op != "or" {
		return fmt.Errorf("unknown boolean combinator %q", b.Op)
	}
	for _, op := range b.Operands {
		if err := op.validate(reg); err != nil {
			return err
		}
	}
	return nil
}

func (p *Predicate) validate(reg Registry) error {
	if _, ok := reg[p.Name]; !ok {
		return fmt.Errorf("unregistered predicate %q", p.Name)
	}
	for _, arg := range p.Args {
		if err := arg.validate(reg); err != nil {
			return err
		}
	}
	return nil
}

func (f *Field) validate(Registry) error {
	if f.Path == "" {
		return fmt.Errorf("field node missing path")
	}
	return nil
}

func (l *Literal) validate(Registry) error { return nil }
