// Package document renders the GraphQL documents of the list, get, create,
// update and delete operations of a domain.
package document

import (
	"errors"
	"fmt"
	"strings"

	"github.com/vektah/gqlparser/v2/ast"
	"github.com/vektah/gqlparser/v2/parser"

	"github.com/neoscript99/go-gql-domain/pkg/schema"
	"github.com/neoscript99/go-gql-domain/types"
)

var (
	// ErrEmptySelection is returned when an operation that selects domain
	// fields is rendered without a field set.
	ErrEmptySelection = errors.New("empty selection set")
	// ErrInvalidDomain is returned for a domain that is not a GraphQL name.
	ErrInvalidDomain = errors.New("invalid domain name")
	// ErrInvalidDocument is returned when a rendered document does not parse.
	ErrInvalidDocument = errors.New("invalid document")
)

// Kind identifies one of the conventional domain operations.
type Kind uint8

const (
	KindList Kind = iota
	KindGet
	KindCreate
	KindUpdate
	KindDelete
)

func (k Kind) String() string {
	switch k {
	case KindList:
		return "list"
	case KindGet:
		return "get"
	case KindCreate:
		return "create"
	case KindUpdate:
		return "update"
	case KindDelete:
		return "delete"
	default:
		return fmt.Sprintf("Kind(%d)", uint8(k))
	}
}

// IsMutation reports whether the kind is sent as a mutation.
func (k Kind) IsMutation() bool {
	return k == KindCreate || k == KindUpdate || k == KindDelete
}

// Operation describes a document to render.
type Operation struct {
	Domain string
	Kind   Kind
	Fields schema.FieldSet
}

// Variable is one declared operation variable.
type Variable struct {
	Name string
	Type string
}

// Document is a rendered operation.
type Document struct {
	// Name is the operation name, e.g. "userListQuery".
	Name string
	// Type is "query" or "mutation".
	Type string
	// ResultKey is the single top-level key of the response data.
	ResultKey string
	Variables []Variable
	Text      string
}

// shape holds the per-kind naming rules.
type shape struct {
	nameSuffix  string
	fieldSuffix string
	variables   func(domain string) []Variable
	selection   func(fields schema.FieldSet) string
	needsFields bool
}

var shapes = map[Kind]shape{
	KindList: {
		nameSuffix:  types.ListQuerySuffix,
		fieldSuffix: types.ListFieldSuffix,
		variables: func(string) []Variable {
			return []Variable{{Name: types.CriteriaVariable, Type: "String"}}
		},
		selection: func(fields schema.FieldSet) string {
			return "results{" + string(fields) + "},totalCount"
		},
		needsFields: true,
	},
	KindGet: {
		nameSuffix: types.GetSuffix,
		variables: func(string) []Variable {
			return []Variable{{Name: types.IDVariable, Type: "String"}}
		},
		selection:   func(fields schema.FieldSet) string { return string(fields) },
		needsFields: true,
	},
	KindCreate: {
		nameSuffix:  types.CreateMutateSuffix,
		fieldSuffix: types.CreateFieldSuffix,
		variables: func(domain string) []Variable {
			return []Variable{{Name: domain, Type: schema.TypeName(domain) + types.CreateFieldSuffix}}
		},
		selection:   func(fields schema.FieldSet) string { return string(fields) },
		needsFields: true,
	},
	KindUpdate: {
		nameSuffix:  types.UpdateMutateSuffix,
		fieldSuffix: types.UpdateFieldSuffix,
		variables: func(domain string) []Variable {
			return []Variable{
				{Name: types.IDVariable, Type: "String!"},
				{Name: domain, Type: schema.TypeName(domain) + types.UpdateFieldSuffix},
			}
		},
		selection:   func(fields schema.FieldSet) string { return string(fields) },
		needsFields: true,
	},
	KindDelete: {
		nameSuffix:  types.DeleteMutateSuffix,
		fieldSuffix: types.DeleteFieldSuffix,
		variables: func(string) []Variable {
			return []Variable{{Name: types.IDVariable, Type: "String"}}
		},
		selection: func(schema.FieldSet) string { return "success,error" },
	},
}

// Render builds the document of op and checks that it parses.
//
// E.g., {Domain: "user", Kind: KindGet, Fields: "id,name"} ->
// "query userGet($id:String){user(id:$id){id,name}}".
func Render(op Operation) (Document, error) {
	if !schema.IsName(op.Domain) {
		return Document{}, fmt.Errorf("%w: %q", ErrInvalidDomain, op.Domain)
	}
	sh, ok := shapes[op.Kind]
	if !ok {
		return Document{}, fmt.Errorf("unknown operation kind %v", op.Kind)
	}
	if sh.needsFields && op.Fields.Empty() {
		return Document{}, fmt.Errorf("%s %s: %w", op.Domain, op.Kind, ErrEmptySelection)
	}

	doc := Document{
		Name:      op.Domain + sh.nameSuffix,
		Type:      "query",
		ResultKey: op.Domain + sh.fieldSuffix,
		Variables: sh.variables(op.Domain),
	}
	if op.Kind.IsMutation() {
		doc.Type = "mutation"
	}

	var b strings.Builder
	b.WriteString(doc.Type)
	b.WriteString(" ")
	b.WriteString(doc.Name)
	b.WriteString("(")
	writeDeclarations(&b, doc.Variables)
	b.WriteString("){")
	b.WriteString(doc.ResultKey)
	b.WriteString("(")
	writeArguments(&b, doc.Variables)
	b.WriteString("){")
	b.WriteString(sh.selection(op.Fields))
	b.WriteString("}}")
	doc.Text = b.String()

	if err := Validate(doc.Text); err != nil {
		return Document{}, err
	}
	return doc, nil
}

// writeDeclarations writes "$a:T,$b:U".
func writeDeclarations(b *strings.Builder, vars []Variable) {
	for i, v := range vars {
		if i > 0 {
			b.WriteString(",")
		}
		b.WriteString("$")
		b.WriteString(v.Name)
		b.WriteString(":")
		b.WriteString(v.Type)
	}
}

// writeArguments writes "a:$a,b:$b".
func writeArguments(b *strings.Builder, vars []Variable) {
	for i, v := range vars {
		if i > 0 {
			b.WriteString(",")
		}
		b.WriteString(v.Name)
		b.WriteString(":$")
		b.WriteString(v.Name)
	}
}

// Validate parses text as an executable GraphQL document.
func Validate(text string) error {
	if _, err := parser.ParseQuery(&ast.Source{Name: "document", Input: text}); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidDocument, err)
	}
	return nil
}
