package schema

import (
	"strconv"
	"strings"

	"streamteam/pkg/types"
)

// InnerKey maps an element to the secondary discriminator a state store
// addresses values by. STATIC and NONE
// are reserved aliases for a constant, per-key global slot; EXPR(expr)
// evaluates a schema and renders it as a string.
type InnerKey interface {
	Resolve(e *types.Element) (string, error)
}

type staticInnerKey struct{}

func (staticInnerKey) Resolve(*types.Element) (string, error) { return "", nil }

// Static is the reserved STATIC/NONE inner-key schema: always the empty
// string, i.e. a single per-key global slot.
var Static InnerKey = staticInnerKey{}

type exprInnerKey struct {
	schema Schema
}

// Expr compiles an EXPR(expr) inner-key schema from an already-parsed
// Schema. The resolved scalar is rendered to its string form.
func Expr(s Schema) InnerKey {
	return exprInnerKey{schema: s}
}

func (k exprInnerKey) Resolve(e *types.Element) (string, error) {
	v, err := k.schema.Apply(e)
	if err != nil {
		return "", err
	}
	return renderValue(v), nil
}

func renderValue(v types.Value) string {
	switch v.Kind {
	case types.KindNull:
		return ""
	case types.KindLong:
		return strconv.FormatInt(v.Long, 10)
	case types.KindDouble:
		return strconv.FormatFloat(v.Double, 'g', -1, 64)
	case types.KindString:
		return v.String
	case types.KindBool:
		return strconv.FormatBool(v.Bool)
	case types.KindVector3:
		return strconv.FormatFloat(v.Vector3.X, 'g', -1, 64) + "," +
			strconv.FormatFloat(v.Vector3.Y, 'g', -1, 64) + "," +
			strconv.FormatFloat(v.Vector3.Z, 'g', -1, 64)
	case types.KindPhase:
		return v.Phase.String()
	case types.KindPossession:
		return v.Possession.TeamID + "/" + v.Possession.PlayerID
	default:
		return ""
	}
}

// ParseInnerKey compiles the literal forms "STATIC", "NONE", or
// "EXPR(expr)" into an InnerKey.
func ParseInnerKey(expr string) (InnerKey, error) {
	expr = strings.TrimSpace(expr)
	switch {
	case expr == "STATIC", expr == "NONE", expr == "":
		return Static, nil
	case strings.HasPrefix(expr, "EXPR(") && strings.HasSuffix(expr, ")"):
		inner := expr[len("EXPR(") : len(expr)-1]
		s, err := Parse(inner)
		if err != nil {
			return nil, err
		}
		return Expr(s), nil
	default:
		s, err := Parse(expr)
		if err != nil {
			return nil, err
		}
		return Expr(s), nil
	}
}
