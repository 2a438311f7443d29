package objectstore

import "strings"

// ColumnType is the closed set of cell types the inspector understands.
type ColumnType int

const (
	TypeUnsupported ColumnType = iota
	TypeInteger
	TypeBoolean
	TypeString
	TypeBinary
	TypeFloat
	TypeDouble
	TypeDate
	TypeObject
	TypeList
)

var columnTypeNames = map[ColumnType]string{
	TypeUnsupported: "UNSUPPORTED",
	TypeInteger:     "INTEGER",
	TypeBoolean:     "BOOLEAN",
	TypeString:      "STRING",
	TypeBinary:      "BINARY",
	TypeFloat:       "FLOAT",
	TypeDouble:      "DOUBLE",
	TypeDate:        "DATE",
	TypeObject:      "OBJECT",
	TypeList:        "LIST",
}

func (t ColumnType) String() string {
	if name, ok := columnTypeNames[t]; ok {
		return name
	}
	return "UNSUPPORTED"
}

// spellings maps every engine type spelling, current and legacy, onto a tag.
var spellings = map[string]ColumnType{
	"INTEGER":      TypeInteger,
	"INT":          TypeInteger,
	"BIGINT":       TypeInteger,
	"LONG":         TypeInteger,
	"BOOLEAN":      TypeBoolean,
	"BOOL":         TypeBoolean,
	"TEXT":         TypeString,
	"STRING":       TypeString,
	"VARCHAR":      TypeString,
	"BLOB":         TypeBinary,
	"BINARY":       TypeBinary,
	"FLOAT":        TypeFloat,
	"DOUBLE":       TypeDouble,
	"REAL":         TypeDouble,
	"DATETIME":     TypeDate,
	"DATE":         TypeDate,
	"TIMESTAMP":    TypeDate,
	"OLD_DATETIME": TypeDate,
	"LINK":         TypeObject,
	"OBJECT":       TypeObject,
	"LINKLIST":     TypeList,
	"LINK_LIST":    TypeList,
	"LIST":         TypeList,
}

// NormalizeType maps a native type spelling such as "LINK class_Dog",
// "LINK(class_Dog)" or "varchar(20)" onto a ColumnType and returns the
// target table for link types. The target follows the type word, either as
// a second word or in parentheses.
func NormalizeType(native string) (ColumnType, string) {
	spelling := strings.TrimSpace(native)
	var arg string
	if open := strings.IndexByte(spelling, '('); open >= 0 {
		if end := strings.LastIndexByte(spelling, ')'); end > open {
			arg = strings.TrimSpace(spelling[open+1 : end])
		}
		spelling = strings.TrimSpace(spelling[:open])
	}
	if word, rest, ok := strings.Cut(spelling, " "); ok {
		spelling = word
		if arg == "" {
			arg = strings.TrimSpace(rest)
		}
	}
	t, ok := spellings[strings.ToUpper(spelling)]
	if !ok {
		return TypeUnsupported, ""
	}
	if t != TypeObject && t != TypeList {
		arg = ""
	}
	return t, arg
}

// IsUserTable reports whether name follows the user object table convention.
func IsUserTable(name string) bool {
	return strings.HasPrefix(name, TablePrefix)
}
