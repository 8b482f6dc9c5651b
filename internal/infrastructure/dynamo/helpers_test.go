package dynamo

import (
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildUpdateExpr_SingleField(t *testing.T) {
	expr, names, values, err := buildUpdateExpr(map[string]interface{}{"username": "alice"})
	require.NoError(t, err)
	assert.Equal(t, "SET #f0 = :v0", expr)
	assert.Equal(t, map[string]string{"#f0": "username"}, names)
	_, ok := values[":v0"]
	assert.True(t, ok)
}

func TestBuildUpdateExpr_MultipleFields_Deterministic(t *testing.T) {
	updates := map[string]interface{}{
		"verified":       true,
		"pending_ticket": "",
		"email":          "a@b.com",
	}
	expr1, names1, _, err := buildUpdateExpr(updates)
	require.NoError(t, err)
	expr2, _, _, err := buildUpdateExpr(updates)
	require.NoError(t, err)

	assert.Equal(t, expr1, expr2)

	// Keys are sorted: email < pending_ticket < verified
	assert.Equal(t, "email", names1["#f0"])
	assert.Equal(t, "pending_ticket", names1["#f1"])
	assert.Equal(t, "verified", names1["#f2"])
	assert.Equal(t, "SET #f0 = :v0, #f1 = :v1, #f2 = :v2", expr1)
}

func TestBuildUpdateExpr_ValuesMarshalledCorrectly(t *testing.T) {
	_, _, values, err := buildUpdateExpr(map[string]interface{}{"revoked": true})
	require.NoError(t, err)
	av, ok := values[":v0"]
	require.True(t, ok)
	boolVal, isBool := av.(*types.AttributeValueMemberBOOL)
	require.True(t, isBool)
	assert.True(t, boolVal.Value)
}

func TestBuildUpdateExpr_EmptyMap_ReturnsError(t *testing.T) {
	_, _, _, err := buildUpdateExpr(map[string]interface{}{})
	assert.ErrorContains(t, err, "no fields to update")
}

func TestConflictField_MapsMarkerPositions(t *testing.T) {
	code := "ConditionalCheckFailed"
	none := "None"

	cases := []struct {
		name    string
		reasons []types.CancellationReason
		field   string
		ok      bool
	}{
		{"email marker", []types.CancellationReason{{Code: &none}, {Code: &code}, {Code: &none}}, "email", true},
		{"username marker", []types.CancellationReason{{Code: &none}, {Code: &none}, {Code: &code}}, "username", true},
		{"account row", []types.CancellationReason{{Code: &code}, {Code: &none}, {Code: &none}}, "account", true},
		{"no conditional failure", []types.CancellationReason{{Code: &none}, {Code: &none}, {Code: &none}}, "", false},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			err := &types.TransactionCanceledException{CancellationReasons: c.reasons}
			field, ok := conflictField(err)
			assert.Equal(t, c.ok, ok)
			assert.Equal(t, c.field, field)
		})
	}
}

func TestConflictField_NonTransactionError(t *testing.T) {
	_, ok := conflictField(assert.AnError)
	assert.False(t, ok)
}
