package objectstore

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeType(t *testing.T) {
	tests := []struct {
		native     string
		wantType   ColumnType
		wantTarget string
	}{
		{"INTEGER", TypeInteger, ""},
		{"bigint", TypeInteger, ""},
		{"BOOL", TypeBoolean, ""},
		{"BOOLEAN", TypeBoolean, ""},
		{"TEXT", TypeString, ""},
		{"varchar(20)", TypeString, ""},
		{"BLOB", TypeBinary, ""},
		{"FLOAT", TypeFloat, ""},
		{"DOUBLE", TypeDouble, ""},
		{"REAL", TypeDouble, ""},
		{"DATETIME", TypeDate, ""},
		{"OLD_DATETIME", TypeDate, ""},
		{"LINK class_Dog", TypeObject, "class_Dog"},
		{"LINKLIST  class_Dog", TypeList, "class_Dog"},
		{"link_list class_Cat", TypeList, "class_Cat"},
		{"INTEGER NOT_A_TARGET", TypeInteger, ""},
		{"LINK(class_Dog)", TypeObject, "class_Dog"},
		{"object( class_Dog )", TypeObject, "class_Dog"},
		{"LINKLIST(class_Dog)", TypeList, "class_Dog"},
		{"LINK_LIST(class_Cat)", TypeList, "class_Cat"},
		{"MIXED", TypeUnsupported, ""},
		{"", TypeUnsupported, ""},
	}

	for _, tt := range tests {
		t.Run(tt.native, func(t *testing.T) {
			got, target := NormalizeType(tt.native)
			assert.Equal(t, tt.wantType, got)
			assert.Equal(t, tt.wantTarget, target)
		})
	}
}

func TestIsUserTable(t *testing.T) {
	assert.True(t, IsUserTable("class_Person"))
	assert.False(t, IsUserTable("metadata"))
	assert.False(t, IsUserTable("Person"))
}

func TestValidateKey(t *testing.T) {
	assert.NoError(t, ValidateKey("a.objdb", nil))
	assert.NoError(t, ValidateKey("a.objdb", make([]byte, KeyLength)))

	err := ValidateKey("a.objdb", make([]byte, 16))
	var lenErr *KeyLengthError
	assert.ErrorAs(t, err, &lenErr)
	assert.Equal(t, 16, lenErr.Length)
	assert.Contains(t, err.Error(), "must be 64 bytes, yours was 16")
}
