package filter

import (
	"strconv"
	"strings"

	"github.com/hugr-lab/viewsearch/analysis"
)

// Format renders a filter tree in a compact functional notation, e.g.
//
//	AND(RANGE(seq, [1, 5]), NOT(TERM(value, true)))
func Format(f Filter) string {
	var sb strings.Builder
	writeFilter(&sb, f)
	return sb.String()
}

func writeFilter(sb *strings.Builder, f Filter) {
	switch f := f.(type) {
	case nil:
		sb.WriteString("<nil>")
	case *All:
		sb.WriteString("ALL")
	case *Empty:
		sb.WriteString("EMPTY")
	case *Exists:
		sb.WriteString("EXISTS(")
		sb.WriteString(f.Field)
		if f.Type != PresenceAny {
			sb.WriteString(", ")
			sb.WriteString(f.Type.String())
		}
		if f.Type == PresenceAnalyzer {
			sb.WriteString(", ")
			sb.WriteString(f.Analyzer)
		}
		sb.WriteByte(')')
	case *Equality:
		sb.WriteString("EQ(")
		writeField(sb, f.Field, f.Analyzer)
		sb.WriteString(", ")
		sb.WriteString(f.Value.String())
		sb.WriteByte(')')
	case *BooleanTerm:
		sb.WriteString("TERM(")
		sb.WriteString(f.Field)
		sb.WriteString(", ")
		sb.WriteString(strconv.FormatBool(f.Value))
		sb.WriteByte(')')
	case *Range:
		sb.WriteString("RANGE(")
		writeField(sb, f.Field, f.Analyzer)
		sb.WriteString(", ")
		if f.Min != nil && f.Min.Inclusive {
			sb.WriteByte('[')
		} else {
			sb.WriteByte('(')
		}
		if f.Min != nil {
			sb.WriteString(f.Min.Value.String())
		} else {
			sb.WriteString("-inf")
		}
		sb.WriteString(", ")
		if f.Max != nil {
			sb.WriteString(f.Max.Value.String())
		} else {
			sb.WriteString("+inf")
		}
		if f.Max != nil && f.Max.Inclusive {
			sb.WriteByte(']')
		} else {
			sb.WriteByte(')')
		}
		sb.WriteByte(')')
	case *Phrase:
		sb.WriteString("PHRASE(")
		writeField(sb, f.Field, f.Analyzer)
		for _, t := range f.Terms {
			sb.WriteString(", ")
			if t.Offset > 1 {
				sb.WriteString("+")
				sb.WriteString(strconv.Itoa(t.Offset - 1))
				sb.WriteByte(' ')
			}
			sb.WriteString(strconv.Quote(t.Term))
		}
		sb.WriteByte(')')
	case *Prefix:
		sb.WriteString("PREFIX(")
		writeField(sb, f.Field, f.Analyzer)
		sb.WriteString(", ")
		sb.WriteString(strconv.Quote(f.Prefix))
		sb.WriteByte(')')
	case *GeoDistance:
		sb.WriteString("GEO_DISTANCE(")
		writeField(sb, f.Field, f.Analyzer)
		sb.WriteString(", ")
		writePoint(sb, f.Origin[0], f.Origin[1])
		sb.WriteString(") ")
		sb.WriteString(f.Op.Symbol())
		sb.WriteByte(' ')
		sb.WriteString(formatFloat(f.Threshold))
	case *GeoInRange:
		sb.WriteString("GEO_IN_RANGE(")
		writeField(sb, f.Field, f.Analyzer)
		sb.WriteString(", ")
		writePoint(sb, f.Origin[0], f.Origin[1])
		sb.WriteString(", ")
		if f.MinInclusive {
			sb.WriteByte('[')
		} else {
			sb.WriteByte('(')
		}
		sb.WriteString(formatFloat(f.Min))
		sb.WriteString(", ")
		sb.WriteString(formatFloat(f.Max))
		if f.MaxInclusive {
			sb.WriteByte(']')
		} else {
			sb.WriteByte(')')
		}
		sb.WriteByte(')')
	case *GeoIntersects:
		sb.WriteString("GEO_INTERSECTS(")
		writeField(sb, f.Field, f.Analyzer)
		sb.WriteString(", ")
		sb.WriteString(analysis.GeometryTypeName(f.Shape))
		sb.WriteByte(')')
	case *GeoContains:
		if f.Within {
			sb.WriteString("GEO_WITHIN(")
		} else {
			sb.WriteString("GEO_CONTAINS(")
		}
		writeField(sb, f.Field, f.Analyzer)
		sb.WriteString(", ")
		sb.WriteString(analysis.GeometryTypeName(f.Shape))
		sb.WriteByte(')')
	case *And:
		writeList(sb, "AND", f.Children)
	case *Or:
		writeList(sb, "OR", f.Children)
	case *Not:
		sb.WriteString("NOT(")
		writeFilter(sb, f.Child)
		sb.WriteByte(')')
	case *MinMatch:
		writeList(sb, "MIN_MATCH", f.Children)
		sb.WriteString("/")
		sb.WriteString(strconv.Itoa(f.Min))
	case *Expression:
		sb.WriteString("EXPR(")
		sb.WriteString(f.Node.String())
		sb.WriteByte(')')
	default:
		sb.WriteString("UNKNOWN")
	}
}

func writeField(sb *strings.Builder, field, analyzer string) {
	sb.WriteString(field)
	if analyzer != "" && analyzer != analysis.IdentityName {
		sb.WriteByte('@')
		sb.WriteString(analyzer)
	}
}

func writeList(sb *strings.Builder, name string, children []Filter) {
	sb.WriteString(name)
	sb.WriteByte('(')
	for i, c := range children {
		if i > 0 {
			sb.WriteString(", ")
		}
		writeFilter(sb, c)
	}
	sb.WriteByte(')')
}

func writePoint(sb *strings.Builder, lng, lat float64) {
	sb.WriteByte('[')
	sb.WriteString(formatFloat(lng))
	sb.WriteString(", ")
	sb.WriteString(formatFloat(lat))
	sb.WriteByte(']')
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'g', -1, 64)
}
