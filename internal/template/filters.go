package template

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/polygen/polygen/internal/ir"
	"github.com/polygen/polygen/internal/langconfig"
)

// Filter is one pipeline stage's implementation: given the value flowing
// through the pipeline and its (already scope-resolved) arguments, it
// returns the transformed value.
type Filter func(input any, args []any) (any, error)

// Filters is the built-in filter registry. spec.md §4.5 names these by
// the case-conversion/driver-lookup/formatting concerns a .ptpl author
// needs; each is grounded on the equivalent helper in
// original_source/src/template/filters.rs.
var Filters = map[string]Filter{
	"pascal_case": stringFilter(toPascalCase),
	"snake_case":  stringFilter(toSnakeCase),
	"camel_case":  stringFilter(toCamelCase),
	"upper":       stringFilter(strings.ToUpper),
	"lower":       stringFilter(strings.ToLower),
	"count":       filterCount,
	"lang_type":   filterLangType,
	"binary_read": filterBinaryRead,
	"csv_read":    filterCSVRead,
	"is_embedded": filterIsEmbedded,
	"format":      filterFormat,
	"quote":       filterQuote,
	"join":        filterJoin,
	"prefix":      filterPrefix,
	"suffix":      filterSuffix,
}

func stringFilter(f func(string) string) Filter {
	return func(input any, _ []any) (any, error) {
		s, err := asString(input)
		if err != nil {
			return nil, err
		}
		return f(s), nil
	}
}

func asString(v any) (string, error) {
	switch x := v.(type) {
	case string:
		return x, nil
	case fmt.Stringer:
		return x.String(), nil
	case int64:
		return strconv.FormatInt(x, 10), nil
	case int:
		return strconv.Itoa(x), nil
	case bool:
		return strconv.FormatBool(x), nil
	default:
		return "", fmt.Errorf("cannot convert %T to string", v)
	}
}

func toPascalCase(s string) string {
	parts := splitWords(s)
	var b strings.Builder
	for _, p := range parts {
		if p == "" {
			continue
		}
		b.WriteString(strings.ToUpper(p[:1]))
		b.WriteString(strings.ToLower(p[1:]))
	}
	return b.String()
}

func toCamelCase(s string) string {
	p := toPascalCase(s)
	if p == "" {
		return p
	}
	return strings.ToLower(p[:1]) + p[1:]
}

func toSnakeCase(s string) string {
	parts := splitWords(s)
	for i, p := range parts {
		parts[i] = strings.ToLower(p)
	}
	return strings.Join(parts, "_")
}

// splitWords breaks s on underscores, hyphens, whitespace, and
// camelCase/PascalCase boundaries.
func splitWords(s string) []string {
	var words []string
	var cur strings.Builder
	flush := func() {
		if cur.Len() > 0 {
			words = append(words, cur.String())
			cur.Reset()
		}
	}
	runes := []rune(s)
	for i, r := range runes {
		switch {
		case r == '_' || r == '-' || r == ' ':
			flush()
		case i > 0 && isUpper(r) && !isUpper(runes[i-1]):
			flush()
			cur.WriteRune(r)
		default:
			cur.WriteRune(r)
		}
	}
	flush()
	return words
}

func isUpper(r rune) bool {
	return r >= 'A' && r <= 'Z'
}

func filterCount(input any, _ []any) (any, error) {
	items, err := AsIterable(input)
	if err != nil {
		return nil, err
	}
	return len(items), nil
}

func filterLangType(input any, args []any) (any, error) {
	if len(args) != 1 {
		return nil, fmt.Errorf("lang_type requires one argument (the driver config)")
	}
	cfg, ok := args[0].(*langconfig.Config)
	if !ok {
		return nil, fmt.Errorf("lang_type argument must be a driver config")
	}
	tr, ok := input.(ir.TypeRef)
	if !ok {
		return nil, fmt.Errorf("lang_type input must be a type reference")
	}
	return resolveLangType(tr, cfg), nil
}

func resolveLangType(tr ir.TypeRef, cfg *langconfig.Config) string {
	if tr.IsOption {
		return cfg.Resolve(resolveLangType(*tr.Inner, cfg), true, false)
	}
	if tr.IsList {
		return cfg.Resolve(resolveLangType(*tr.Inner, cfg), false, true)
	}
	if tr.IsPrimitive {
		return cfg.Resolve(tr.Primitive, false, false)
	}
	return tr.FQN
}

func filterBinaryRead(input any, args []any) (any, error) {
	return driverTableLookup(input, args, func(c *langconfig.Config) map[string]string { return c.BinaryRead })
}

func filterCSVRead(input any, args []any) (any, error) {
	return driverTableLookup(input, args, func(c *langconfig.Config) map[string]string { return c.CSVRead })
}

func driverTableLookup(input any, args []any, table func(*langconfig.Config) map[string]string) (any, error) {
	if len(args) != 1 {
		return nil, fmt.Errorf("requires one argument (the driver config)")
	}
	cfg, ok := args[0].(*langconfig.Config)
	if !ok {
		return nil, fmt.Errorf("argument must be a driver config")
	}
	primitive, err := asString(input)
	if err != nil {
		return nil, err
	}
	return table(cfg)[primitive], nil
}

func filterIsEmbedded(input any, args []any) (any, error) {
	if len(args) != 1 {
		return nil, fmt.Errorf("is_embedded requires one argument (the schema context)")
	}
	ctx, ok := args[0].(*ir.SchemaContext)
	if !ok {
		return nil, fmt.Errorf("is_embedded argument must be a schema context")
	}
	fqn, err := asString(input)
	if err != nil {
		return nil, err
	}
	for _, f := range ctx.Files {
		for _, ns := range f.Namespaces {
			for _, item := range ns.Items {
				if item.Kind == ir.ItemStruct && item.Struct.FQN == fqn {
					return item.Struct.IsEmbed, nil
				}
			}
		}
	}
	return false, nil
}

func filterFormat(input any, args []any) (any, error) {
	if len(args) != 1 {
		return nil, fmt.Errorf("format requires one argument")
	}
	pattern, err := asString(args[0])
	if err != nil {
		return nil, err
	}
	val, err := asString(input)
	if err != nil {
		return nil, err
	}
	return strings.ReplaceAll(pattern, "{}", val), nil
}

func filterQuote(input any, _ []any) (any, error) {
	s, err := asString(input)
	if err != nil {
		return nil, err
	}
	return strconv.Quote(s), nil
}

func filterJoin(input any, args []any) (any, error) {
	if len(args) != 1 {
		return nil, fmt.Errorf("join requires one argument (the separator)")
	}
	sep, err := asString(args[0])
	if err != nil {
		return nil, err
	}
	items, err := AsIterable(input)
	if err != nil {
		return nil, err
	}
	parts := make([]string, len(items))
	for i, it := range items {
		parts[i], err = asString(it)
		if err != nil {
			return nil, err
		}
	}
	return strings.Join(parts, sep), nil
}

func filterPrefix(input any, args []any) (any, error) {
	if len(args) != 1 {
		return nil, fmt.Errorf("prefix requires one argument")
	}
	p, err := asString(args[0])
	if err != nil {
		return nil, err
	}
	s, err := asString(input)
	if err != nil {
		return nil, err
	}
	return p + s, nil
}

func filterSuffix(input any, args []any) (any, error) {
	if len(args) != 1 {
		return nil, fmt.Errorf("suffix requires one argument")
	}
	suf, err := asString(args[0])
	if err != nil {
		return nil, err
	}
	s, err := asString(input)
	if err != nil {
		return nil, err
	}
	return s + suf, nil
}
