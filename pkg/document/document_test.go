package document_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/neoscript99/go-gql-domain/pkg/document"
)

func TestRender(t *testing.T) {
	tests := []struct {
		op       document.Operation
		wantText string
		wantType string
		wantKey  string
		wantVars []document.Variable
		wantName string
	}{
		{
			op:       document.Operation{Domain: "user", Kind: document.KindList, Fields: "id,name"},
			wantText: "query userListQuery($criteria:String){userList(criteria:$criteria){results{id,name},totalCount}}",
			wantType: "query",
			wantKey:  "userList",
			wantName: "userListQuery",
			wantVars: []document.Variable{{Name: "criteria", Type: "String"}},
		},
		{
			op:       document.Operation{Domain: "user", Kind: document.KindGet, Fields: "id,name,role{id}"},
			wantText: "query userGet($id:String){user(id:$id){id,name,role{id}}}",
			wantType: "query",
			wantKey:  "user",
			wantName: "userGet",
			wantVars: []document.Variable{{Name: "id", Type: "String"}},
		},
		{
			op:       document.Operation{Domain: "user", Kind: document.KindCreate, Fields: "id,errors{field,message}"},
			wantText: "mutation userCreateMutate($user:UserCreate){userCreate(user:$user){id,errors{field,message}}}",
			wantType: "mutation",
			wantKey:  "userCreate",
			wantName: "userCreateMutate",
			wantVars: []document.Variable{{Name: "user", Type: "UserCreate"}},
		},
		{
			op:       document.Operation{Domain: "user", Kind: document.KindUpdate, Fields: "id,name"},
			wantText: "mutation userUpdateMutate($id:String!,$user:UserUpdate){userUpdate(id:$id,user:$user){id,name}}",
			wantType: "mutation",
			wantKey:  "userUpdate",
			wantName: "userUpdateMutate",
			wantVars: []document.Variable{{Name: "id", Type: "String!"}, {Name: "user", Type: "UserUpdate"}},
		},
		{
			op:       document.Operation{Domain: "user", Kind: document.KindDelete},
			wantText: "mutation userDeleteMutate($id:String){userDelete(id:$id){success,error}}",
			wantType: "mutation",
			wantKey:  "userDelete",
			wantName: "userDeleteMutate",
			wantVars: []document.Variable{{Name: "id", Type: "String"}},
		},
	}
	for _, tt := range tests {
		t.Run(tt.op.Kind.String(), func(t *testing.T) {
			doc, err := document.Render(tt.op)
			require.NoError(t, err)
			assert.Equal(t, tt.wantText, doc.Text)
			assert.Equal(t, tt.wantType, doc.Type)
			assert.Equal(t, tt.wantKey, doc.ResultKey)
			assert.Equal(t, tt.wantName, doc.Name)
			assert.Equal(t, tt.wantVars, doc.Variables)
		})
	}
}

func TestRender_emptySelection(t *testing.T) {
	for _, kind := range []document.Kind{document.KindList, document.KindGet, document.KindCreate, document.KindUpdate} {
		_, err := document.Render(document.Operation{Domain: "user", Kind: kind})
		assert.ErrorIs(t, err, document.ErrEmptySelection, kind.String())
	}
}

func TestRender_invalidDomain(t *testing.T) {
	for _, domain := range []string{"", "user list", "user{id}", "9user"} {
		_, err := document.Render(document.Operation{Domain: domain, Kind: document.KindGet, Fields: "id"})
		assert.ErrorIs(t, err, document.ErrInvalidDomain, domain)
	}
}

func TestRender_invalidFields(t *testing.T) {
	_, err := document.Render(document.Operation{Domain: "user", Kind: document.KindGet, Fields: "id,role{"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, document.ErrInvalidDocument))
}

func TestValidate(t *testing.T) {
	assert.NoError(t, document.Validate("query a($id:String){user(id:$id){id,name}}"))
	assert.ErrorIs(t, document.Validate("query {"), document.ErrInvalidDocument)
}

func TestKind(t *testing.T) {
	assert.False(t, document.KindList.IsMutation())
	assert.False(t, document.KindGet.IsMutation())
	assert.True(t, document.KindCreate.IsMutation())
	assert.True(t, document.KindUpdate.IsMutation())
	assert.True(t, document.KindDelete.IsMutation())
	assert.Equal(t, "list", document.KindList.String())
	assert.Equal(t, "delete", document.KindDelete.String())
}
